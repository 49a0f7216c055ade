// Package notify delivers user-facing messages. Every notification carries a
// stable key per (operation, product) so repeats can be collapsed.
package notify

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Notification struct {
	Key     string `json:"key"`
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Sink is fire-and-forget: implementations swallow their own failures.
type Sink interface {
	Notify(ctx context.Context, n Notification)
}

// Key builds the dedup key for an operation on a product.
func Key(op string, productID int64) string {
	return fmt.Sprintf("%s-%d", op, productID)
}

// Discard drops everything.
type Discard struct{}

func (Discard) Notify(context.Context, Notification) {}

// Log writes notifications to the standard logger.
type Log struct{}

func (Log) Notify(_ context.Context, n Notification) {
	log.Printf("[notify] %s %s: %s", n.Level, n.Key, n.Message)
}

// Fanout delivers to every sink in order.
type Fanout []Sink

func (f Fanout) Notify(ctx context.Context, n Notification) {
	for _, s := range f {
		s.Notify(ctx, n)
	}
}

// Recorder keeps everything it receives. Safe for concurrent use.
type Recorder struct {
	mu  sync.Mutex
	got []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.got...)
}

func (r *Recorder) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.got))
	for _, n := range r.got {
		keys = append(keys, n.Key)
	}
	return keys
}

// Dedup forwards a notification only if the same key was not forwarded within
// window. Rapid repeats collapse into the first one.
type Dedup struct {
	next   Sink
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

func NewDedup(next Sink, window time.Duration) *Dedup {
	return &Dedup{next: next, window: window, now: time.Now, last: make(map[string]time.Time)}
}

func (d *Dedup) Notify(ctx context.Context, n Notification) {
	now := d.now()
	d.mu.Lock()
	if at, ok := d.last[n.Key]; ok && now.Sub(at) < d.window {
		d.mu.Unlock()
		return
	}
	d.last[n.Key] = now
	// keep the map from growing without bound
	if len(d.last) > 4096 {
		for k, at := range d.last {
			if now.Sub(at) >= d.window {
				delete(d.last, k)
			}
		}
	}
	d.mu.Unlock()
	d.next.Notify(ctx, n)
}
