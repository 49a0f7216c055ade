package notify

import (
	"context"
	"log"

	"github.com/ariefcatur/go-storefront/internal/orders"
)

// Emitter publishes a domain event. *kafka.EventBus implements it.
type Emitter interface {
	Emit(ctx context.Context, topic, eventType, correlationID string, payload any) error
}

// EventSink publishes notifications on the notifications topic, keyed by the
// dedup key so a consumer sees repeats of one key in order.
type EventSink struct {
	Emitter Emitter
}

func (s EventSink) Notify(ctx context.Context, n Notification) {
	err := s.Emitter.Emit(ctx, orders.TopicNotifications, orders.EventNotification, n.Key,
		orders.NotificationPayload{Key: n.Key, Level: string(n.Level), Message: n.Message})
	if err != nil {
		log.Printf("[notify] publish %s: %v", n.Key, err)
	}
}
