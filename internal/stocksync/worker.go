// Package stocksync replays stock levels that the API applied locally but
// could not write to the store. It consumes StockUnsynced events, and
// StockReserved events to learn which levels already reached the store.
package stocksync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
)

type StockWriter interface {
	WriteStock(ctx context.Context, productID int64, units int) error
}

// Deduper is *redisx.Dedup.
type Deduper interface {
	FirstSeen(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

// Marks is *redisx.Watermarks.
type Marks interface {
	Advance(ctx context.Context, productID int64, at time.Time) (bool, error)
}

type Worker struct {
	Store   StockWriter
	Dedup   Deduper // optional
	Marks   Marks   // optional
	Timeout time.Duration
}

// Handle is a kafka.Handler. A nil return commits the message and an error has
// the consumer retry it after a backoff. Malformed or
// irrelevant messages are committed so they do not block the partition.
func (w *Worker) Handle(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.DecodeEnvelope(m.Value)
	if err != nil {
		log.Printf("[stocksync] skip offset %d: %v", m.Offset, err)
		return nil
	}
	switch env.EventType {
	case orders.EventStockReserved:
		return w.handleReserved(ctx, env)
	case orders.EventStockUnsynced:
		return w.handleUnsynced(ctx, env)
	}
	return nil
}

func (w *Worker) handleReserved(ctx context.Context, env orders.Envelope) error {
	p, err := kafkax.UnwrapPayload[orders.StockReservedPayload](env.Payload)
	if err != nil {
		log.Printf("[stocksync] %s: %v", env.EventID, err)
		return nil
	}
	if !p.Synced || w.Marks == nil {
		return nil
	}
	if _, err := w.Marks.Advance(ctx, p.ProductID, env.OccurredAt); err != nil {
		return fmt.Errorf("mark product %d: %w", p.ProductID, err)
	}
	return nil
}

func (w *Worker) handleUnsynced(ctx context.Context, env orders.Envelope) error {
	p, err := kafkax.UnwrapPayload[orders.StockUnsyncedPayload](env.Payload)
	if err != nil {
		log.Printf("[stocksync] %s: %v", env.EventID, err)
		return nil
	}

	if w.Dedup != nil {
		first, err := w.Dedup.FirstSeen(ctx, env.EventID)
		if err != nil {
			return fmt.Errorf("dedup %s: %w", env.EventID, err)
		}
		if !first {
			return nil
		}
	}

	if w.Marks != nil {
		newer, err := w.Marks.Advance(ctx, p.ProductID, env.OccurredAt)
		if err != nil {
			w.forget(ctx, env.EventID)
			return fmt.Errorf("mark product %d: %w", p.ProductID, err)
		}
		if !newer {
			log.Printf("[stocksync] product %d: level %d superseded, skipping", p.ProductID, p.AvailableUnits)
			return nil
		}
	}

	wctx := ctx
	if w.Timeout > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, w.Timeout)
		defer cancel()
	}
	err = w.Store.WriteStock(wctx, p.ProductID, p.AvailableUnits)
	switch {
	case err == nil:
		log.Printf("[stocksync] product %d synced to %d", p.ProductID, p.AvailableUnits)
		return nil
	case errors.Is(err, orders.ErrNotFound):
		log.Printf("[stocksync] product %d no longer exists, dropping", p.ProductID)
		return nil
	default:
		w.forget(ctx, env.EventID)
		return orders.Unavailable(fmt.Sprintf("sync product %d", p.ProductID), err)
	}
}

func (w *Worker) forget(ctx context.Context, id string) {
	if w.Dedup == nil {
		return
	}
	if err := w.Dedup.Forget(ctx, id); err != nil {
		log.Printf("[stocksync] forget %s: %v", id, err)
	}
}
