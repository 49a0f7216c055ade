package cart

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ariefcatur/go-storefront/internal/localstore"
	"github.com/ariefcatur/go-storefront/internal/notify"
)

const DefaultSession = "anonymous"

// Registry hands out one Ledger per client session. Each ledger sees its own
// slice of the shared durable cache.
type Registry struct {
	cache localstore.Cache
	sink  notify.Sink

	mu    sync.Mutex
	carts map[string]*Ledger
	group singleflight.Group
}

func NewRegistry(cache localstore.Cache, sink notify.Sink) *Registry {
	return &Registry{cache: cache, sink: sink, carts: make(map[string]*Ledger)}
}

// Get returns the session's ledger, loading it from durable storage on first use.
// A ledger whose load failed is loaded again on the next Get.
func (r *Registry) Get(ctx context.Context, session string) *Ledger {
	if session == "" {
		session = DefaultSession
	}
	if l, ok := r.lookup(session); ok {
		if r.cache != nil && !l.Hydrated() {
			l.Load(ctx)
		}
		return l
	}
	v, _, _ := r.group.Do(session, func() (any, error) {
		if l, ok := r.lookup(session); ok {
			return l, nil
		}
		var cache localstore.Cache
		if r.cache != nil {
			cache = localstore.NewScoped(r.cache, "session:"+session)
		}
		l := New(cache, r.sink)
		// shared by every waiter, so one caller's cancel must not abort it
		l.Load(context.WithoutCancel(ctx))
		r.mu.Lock()
		r.carts[session] = l
		r.mu.Unlock()
		return l, nil
	})
	return v.(*Ledger)
}

func (r *Registry) lookup(session string) (*Ledger, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.carts[session]
	return l, ok
}

// Drop forgets the in-memory ledger of a session. Its durable copy stays.
func (r *Registry) Drop(session string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, session)
}
