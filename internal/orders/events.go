package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced   = "OrderPlaced"
	EventStockReserved = "StockReserved"
	EventStockRejected = "StockRejected"
	EventStockUnsynced = "StockUnsynced"
	EventNotification  = "Notification"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // one of the consts above
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"` // e.g. "storefront-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order reference or product id
	Payload       json.RawMessage `json:"payload"`
}

// ---- payloads ----

type OrderPlacedPayload struct {
	OrderReference string      `json:"order_reference"`
	TrackingNumber string      `json:"tracking_number"`
	CustomerEmail  string      `json:"customer_email"`
	Items          []OrderItem `json:"items"`
	TotalCents     int64       `json:"total_cents"`
}

type StockReservedPayload struct {
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
	Remaining int   `json:"remaining"`
	Synced    bool  `json:"synced"`
}

type StockRejectedDetail struct {
	ProductID int64 `json:"product_id"`
	Required  int   `json:"required"`
	Available int   `json:"available"`
}

type StockRejectedPayload struct {
	Reason  string                `json:"reason"` // OUT_OF_STOCK
	Details []StockRejectedDetail `json:"details,omitempty"`
}

// StockUnsyncedPayload is emitted when the ledger applied a debit that the
// store did not accept. The stock sync worker replays it.
type StockUnsyncedPayload struct {
	ProductID      int64  `json:"product_id"`
	AvailableUnits int    `json:"available_units"`
	Cause          string `json:"cause,omitempty"`
}

type NotificationPayload struct {
	Key     string `json:"key"`
	Level   string `json:"level"`
	Message string `json:"message"`
}
