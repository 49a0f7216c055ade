package orders

import "strconv"

const (
	TopicOrderPlaced   = "storefront.order.placed"
	TopicStockReserved = "storefront.stock.reserved"
	TopicStockRejected = "storefront.stock.rejected"
	TopicStockUnsynced = "storefront.stock.unsynced"
	TopicNotifications = "storefront.notifications"
)

// Partition key = correlation id, so every event of one order or product keeps its order.
func PartitionKey(id string) []byte { return []byte(id) }

func ProductKey(productID int64) string { return "product:" + strconv.FormatInt(productID, 10) }
