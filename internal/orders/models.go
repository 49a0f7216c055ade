package orders

import "time"

type Product struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	Thumbnail  string    `json:"thumbnail"`
	Category   string    `json:"category"`
	Stock      int       `json:"stock"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StockRecord is the believed availability of one product.
type StockRecord struct {
	ProductID      int64 `json:"product_id"`
	AvailableUnits int   `json:"available_units"`
}

type OrderItem struct {
	ProductID int64  `json:"product_id" dynamodbav:"product_id"`
	Name      string `json:"name" dynamodbav:"name"`
	UnitPrice int64  `json:"unit_price" dynamodbav:"unit_price"`
	Quantity  int    `json:"quantity" dynamodbav:"quantity"`
}

// OrderRecord is written once at checkout and only read afterwards.
// Money fields are minor currency units.
type OrderRecord struct {
	OrderReference        string      `json:"order_reference" dynamodbav:"order_reference"`
	TrackingNumber        string      `json:"tracking_number" dynamodbav:"tracking_number"` // PK
	CustomerName          string      `json:"customer_name" dynamodbav:"customer_name"`
	CustomerEmail         string      `json:"customer_email" dynamodbav:"customer_email"`
	Items                 []OrderItem `json:"items" dynamodbav:"items"`
	Subtotal              int64       `json:"subtotal" dynamodbav:"subtotal"`
	Shipping              int64       `json:"shipping" dynamodbav:"shipping"`
	Tax                   int64       `json:"tax" dynamodbav:"tax"`
	Total                 int64       `json:"total" dynamodbav:"total"`
	OrderDate             time.Time   `json:"order_date" dynamodbav:"order_date"`
	EstimatedDeliveryDate time.Time   `json:"estimated_delivery_date" dynamodbav:"estimated_delivery_date"`
	ShippingAddress       string      `json:"shipping_address" dynamodbav:"shipping_address"`
}
