// Package tracking derives a shipment timeline from a stored order. Nothing
// about status transitions is persisted; the timeline is recomputed on every
// query from the order date, the estimated delivery date and the clock.
package tracking

import (
	"time"

	"github.com/ariefcatur/go-storefront/internal/orders"
)

const (
	ProcessingAfter = 12 * time.Hour
	ShippedAfter    = 36 * time.Hour
)

type StatusEvent struct {
	Status      orders.Status `json:"status"`
	OccursAt    time.Time     `json:"occurs_at"`
	Location    string        `json:"location"`
	Description string        `json:"description"`
}

type Timeline struct {
	OrderReference        string        `json:"order_reference"`
	TrackingNumber        string        `json:"tracking_number"`
	Status                orders.Status `json:"status"`
	EstimatedDeliveryDate time.Time     `json:"estimated_delivery_date"`
	ShippingAddress       string        `json:"shipping_address"`
	Events                []StatusEvent `json:"events"`
}

// Synthesize is pure: the same record and now always give the same timeline,
// and a later now can only append events.
func Synthesize(o orders.OrderRecord, now time.Time) Timeline {
	stages := []StatusEvent{
		{orders.StatusPending, o.OrderDate, "Online store", "Order placed and payment received"},
		{orders.StatusProcessing, o.OrderDate.Add(ProcessingAfter), "Fulfillment center", "Order is being picked and packed"},
		{orders.StatusShipped, o.OrderDate.Add(ShippedAfter), "Distribution hub", "Package handed over to the carrier"},
		{orders.StatusDelivered, o.EstimatedDeliveryDate, o.ShippingAddress, "Package delivered"},
	}
	events := stages[:1:1]
	for _, next := range stages[1:] {
		if next.OccursAt.After(now) {
			continue
		}
		events = advance(events, next)
	}
	return Timeline{
		OrderReference:        o.OrderReference,
		TrackingNumber:        o.TrackingNumber,
		Status:                events[len(events)-1].Status,
		EstimatedDeliveryDate: o.EstimatedDeliveryDate,
		ShippingAddress:       o.ShippingAddress,
		Events:                events,
	}
}

// advance appends next only if it moves the shipment forward.
func advance(events []StatusEvent, next StatusEvent) []StatusEvent {
	if !orders.Precedes(events[len(events)-1].Status, next.Status) {
		return events
	}
	return append(events, next)
}
