package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"strconv"
	"time"
)

// EventBus owns one Producer per topic and wraps payloads in an orders.Envelope.
type EventBus struct {
	producers map[string]*Producer
	service   string
	now       func() time.Time
}

func NewEventBus(brokers []string, service string, topics ...string) *EventBus {
	b := &EventBus{producers: make(map[string]*Producer, len(topics)), service: service, now: time.Now}
	for _, t := range topics {
		b.producers[t] = NewProducer(brokers, t, 1024)
	}
	return b
}

func (b *EventBus) Start(ctx context.Context) {
	for _, p := range b.producers {
		p.Start(ctx)
	}
}

// Emit publishes payload on topic. correlationID is the partition key.
func (b *EventBus) Emit(ctx context.Context, topic, eventType, correlationID string, payload any) error {
	p, ok := b.producers[topic]
	if !ok {
		return fmt.Errorf("emit %s: unknown topic %q", eventType, topic)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("emit %s: %w", eventType, err)
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    b.now().UTC(),
		Producer:      b.service,
		CorrelationID: correlationID,
		Payload:       raw,
	}
	return p.Publish(ctx, orders.PartitionKey(correlationID), MustMarshal(ev),
		kafka.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafka.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(ev.EventVersion))},
	)
}

// Close stops accepting events and waits until every producer has flushed.
func (b *EventBus) Close() {
	for _, p := range b.producers {
		p.Close()
	}
	for _, p := range b.producers {
		p.WaitClosed()
	}
}
