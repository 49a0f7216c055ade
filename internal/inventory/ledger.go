// Package inventory tracks believed stock per product and debits it at
// checkout. The in-memory ledger is authoritative for "may this purchase
// proceed"; the store of record is updated best-effort.
package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront/internal/localstore"
	"github.com/ariefcatur/go-storefront/internal/notify"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"golang.org/x/sync/singleflight"
)

// StockStore is the remote store of record. *orders.Repo implements it.
type StockStore interface {
	FetchAllStock(ctx context.Context) ([]orders.StockRecord, error)
	WriteStock(ctx context.Context, productID int64, units int) error
}

type Options struct {
	// DefaultUnits is the stock assumed for a product the store has never reported.
	DefaultUnits int
	// LowStockThreshold: remaining stock in 1..LowStockThreshold triggers a warning.
	LowStockThreshold int
	// StoreTimeout bounds each remote call. Zero means no timeout.
	StoreTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{DefaultUnits: 10, LowStockThreshold: 5, StoreTimeout: 3 * time.Second}
}

type Ledger struct {
	store   StockStore
	cache   localstore.Cache
	sink    notify.Sink
	emitter notify.Emitter
	opts    Options

	mu      sync.RWMutex
	stock   map[int64]int
	loading bool
	durable bool

	locks   productLocks
	refresh singleflight.Group
}

// New builds a ledger. cache, sink and emitter may be nil.
func New(store StockStore, cache localstore.Cache, sink notify.Sink, emitter notify.Emitter, opts Options) *Ledger {
	if sink == nil {
		sink = notify.Discard{}
	}
	return &Ledger{
		store:   store,
		cache:   cache,
		sink:    sink,
		emitter: emitter,
		opts:    opts,
		stock:   make(map[int64]int),
	}
}

// Load restores the last durable snapshot. Without usable durable storage the
// ledger stays memory-only; storage that comes up later is attached on the
// next write or snapshot read.
func (l *Ledger) Load(ctx context.Context) {
	l.mu.Lock()
	l.loading = true
	l.mu.Unlock()
	if !l.attach(ctx) {
		return
	}

	recs, ok := l.readSnapshot(ctx)
	if !ok {
		return
	}
	l.mu.Lock()
	l.replaceLocked(recs)
	l.mu.Unlock()
}

func (l *Ledger) readSnapshot(ctx context.Context) ([]orders.StockRecord, bool) {
	if !l.attach(ctx) {
		return nil, false
	}
	raw, ok, err := l.cache.Get(ctx, localstore.KeyInventory)
	if err != nil {
		log.Printf("[inventory] read snapshot: %v", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var recs []orders.StockRecord
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		log.Printf("[inventory] discarding snapshot: %v: %v", orders.ErrCorruptLocalState, err)
		if err := l.cache.Delete(ctx, localstore.KeyInventory); err != nil {
			log.Printf("[inventory] delete corrupt snapshot: %v", err)
		}
		return nil, false
	}
	return recs, true
}

// attach reports whether the durable cache is in use, switching it on once it
// becomes usable after Load.
func (l *Ledger) attach(ctx context.Context) bool {
	l.mu.RLock()
	durable, loading := l.durable, l.loading
	l.mu.RUnlock()
	if durable {
		return true
	}
	if !loading || !localstore.Usable(ctx, l.cache) {
		return false
	}
	l.mu.Lock()
	l.durable = true
	l.mu.Unlock()
	return true
}

func (l *Ledger) replaceLocked(recs []orders.StockRecord) {
	m := make(map[int64]int, len(recs))
	for _, r := range recs {
		m[r.ProductID] = max(r.AvailableUnits, 0)
	}
	l.stock = m
}

func (l *Ledger) snapshotLocked() []orders.StockRecord {
	out := make([]orders.StockRecord, 0, len(l.stock))
	for id, units := range l.stock {
		out = append(out, orders.StockRecord{ProductID: id, AvailableUnits: units})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func (l *Ledger) persist(ctx context.Context, snap []orders.StockRecord) {
	if !l.attach(ctx) {
		return
	}
	b, err := json.Marshal(snap)
	if err != nil {
		log.Printf("[inventory] encode snapshot: %v", err)
		return
	}
	if err := l.cache.Set(ctx, localstore.KeyInventory, string(b)); err != nil {
		log.Printf("[inventory] persist snapshot: %v", err)
	}
}

func (l *Ledger) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.opts.StoreTimeout > 0 {
		return context.WithTimeout(ctx, l.opts.StoreTimeout)
	}
	return context.WithCancel(ctx)
}

// storeErr classifies a remote failure. Timeouts and transport errors are
// StoreUnavailable; a missing product stays NotFound.
func storeErr(op string, err error) error {
	if errors.Is(err, orders.ErrStoreUnavailable) || errors.Is(err, orders.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return orders.Unavailable(op, err)
}

// Refresh replaces the ledger with the store's stock levels. On failure the
// last durable snapshot (if any) is restored and the error is returned.
// Concurrent calls share one remote fetch.
func (l *Ledger) Refresh(ctx context.Context) error {
	_, err, _ := l.refresh.Do("refresh", func() (any, error) {
		return nil, l.doRefresh(context.WithoutCancel(ctx))
	})
	return err
}

func (l *Ledger) doRefresh(ctx context.Context) error {
	sctx, cancel := l.storeCtx(ctx)
	recs, err := l.store.FetchAllStock(sctx)
	cancel()
	if err != nil {
		err = storeErr("refresh stock", err)
		if snap, ok := l.readSnapshot(ctx); ok {
			l.mu.Lock()
			l.replaceLocked(snap)
			l.mu.Unlock()
			log.Printf("[inventory] %v; using cached snapshot of %d products", err, len(snap))
		} else {
			log.Printf("[inventory] %v; keeping in-memory stock", err)
		}
		return err
	}

	l.mu.Lock()
	l.replaceLocked(recs)
	snap := l.snapshotLocked()
	l.mu.Unlock()
	l.persist(ctx, snap)
	return nil
}

// SeedIfEmpty installs stock levels the caller already knows, but only when
// the ledger has never been populated.
func (l *Ledger) SeedIfEmpty(ctx context.Context, defaults []orders.StockRecord) bool {
	l.mu.Lock()
	if len(l.stock) > 0 || len(defaults) == 0 {
		l.mu.Unlock()
		return false
	}
	l.replaceLocked(defaults)
	snap := l.snapshotLocked()
	l.mu.Unlock()
	l.persist(ctx, snap)
	return true
}

// Available returns the believed stock, or DefaultUnits for an unknown product.
func (l *Ledger) Available(productID int64) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if units, ok := l.stock[productID]; ok {
		return units
	}
	return l.opts.DefaultUnits
}

func (l *Ledger) Known(productID int64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.stock[productID]
	return ok
}

// Snapshot returns every tracked record ordered by product id.
func (l *Ledger) Snapshot() []orders.StockRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshotLocked()
}
