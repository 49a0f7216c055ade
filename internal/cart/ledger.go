// Package cart keeps a client's shopping cart in memory and mirrors it into
// the durable local cache under the "cart" key.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/ariefcatur/go-storefront/internal/localstore"
	"github.com/ariefcatur/go-storefront/internal/notify"
	"github.com/ariefcatur/go-storefront/internal/orders"
)

// MaxLineQuantity caps a single line.
const MaxLineQuantity = 999

// Line is one product in the cart. Quantity is in 1..MaxLineQuantity.
type Line struct {
	ProductID int64  `json:"id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"price"`
	Thumbnail string `json:"image"`
	Category  string `json:"category"`
	Quantity  int    `json:"quantity"`
}

// Product is what the storefront knows about an item when it is added.
type Product struct {
	ID        int64
	Name      string
	UnitPrice int64
	Thumbnail string
	Category  string
}

func FromCatalog(p orders.Product) Product {
	return Product{ID: p.ID, Name: p.Name, UnitPrice: p.PriceCents, Thumbnail: p.Thumbnail, Category: p.Category}
}

type Ledger struct {
	cache localstore.Cache
	sink  notify.Sink

	mu       sync.Mutex
	lines    []Line
	loading  bool
	hydrated bool
}

// New returns an empty ledger. cache may be nil for in-memory only operation.
// Nothing is written to cache until Load has confirmed it is usable.
func New(cache localstore.Cache, sink notify.Sink) *Ledger {
	if sink == nil {
		sink = notify.Discard{}
	}
	return &Ledger{cache: cache, sink: sink}
}

// Load restores the cart from the durable cache. A corrupt value is discarded
// and the cart starts empty; the failure is logged, never returned.
// Load may be called again after a failed attempt. Lines added while the
// ledger was memory-only win over the stored cart and are written through.
func (l *Ledger) Load(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loading = true
	l.hydrateLocked(ctx, len(l.lines) > 0)
}

// hydrateLocked attaches the ledger to the cache. With keepMemory the
// in-memory lines overwrite whatever is stored. Caller holds l.mu.
func (l *Ledger) hydrateLocked(ctx context.Context, keepMemory bool) {
	if l.hydrated || !localstore.Usable(ctx, l.cache) {
		return
	}
	raw, ok, err := l.cache.Get(ctx, localstore.KeyCart)
	if err != nil {
		// storage is there but unreadable right now; stay memory-only
		log.Printf("[cart] load: %v", err)
		return
	}
	l.hydrated = true
	if keepMemory {
		l.persistLocked(ctx)
		return
	}
	if !ok {
		return
	}
	lines, err := decodeLines(raw)
	if err != nil {
		log.Printf("[cart] discarding stored cart: %v", err)
		if err := l.cache.Delete(ctx, localstore.KeyCart); err != nil {
			log.Printf("[cart] delete corrupt cart: %v", err)
		}
		l.lines = nil
		return
	}
	l.lines = lines
}

func decodeLines(raw string) ([]Line, error) {
	var lines []Line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, fmt.Errorf("%w: %v", orders.ErrCorruptLocalState, err)
	}
	seen := make(map[int64]bool, len(lines))
	for _, ln := range lines {
		if ln.ProductID == 0 || ln.Quantity < 1 || ln.Quantity > MaxLineQuantity || seen[ln.ProductID] {
			return nil, fmt.Errorf("%w: bad line for product %d", orders.ErrCorruptLocalState, ln.ProductID)
		}
		seen[ln.ProductID] = true
	}
	return lines, nil
}

// Hydrated reports whether the ledger is mirrored into durable storage.
func (l *Ledger) Hydrated() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hydrated
}

// persistLocked writes the whole line list. Caller holds l.mu.
func (l *Ledger) persistLocked(ctx context.Context) {
	if !l.hydrated {
		if l.loading {
			// a failed Load is retried on the next mutation
			l.hydrateLocked(ctx, true)
		}
		return
	}
	lines := l.lines
	if lines == nil {
		lines = []Line{}
	}
	b, err := json.Marshal(lines)
	if err != nil {
		log.Printf("[cart] encode: %v", err)
		return
	}
	if err := l.cache.Set(ctx, localstore.KeyCart, string(b)); err != nil {
		log.Printf("[cart] persist: %v", err)
	}
}

func (l *Ledger) indexLocked(productID int64) int {
	for i := range l.lines {
		if l.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// AddOrIncrement adds qty units of p, creating the line if needed.
// Stock is not checked here; that happens at reservation time.
func (l *Ledger) AddOrIncrement(ctx context.Context, p Product, qty int) (Line, error) {
	if qty < 1 || qty > MaxLineQuantity {
		return Line{}, fmt.Errorf("add product %d: %w", p.ID, orders.ErrInvalidQuantity)
	}

	l.mu.Lock()
	var (
		line Line
		n    notify.Notification
	)
	if i := l.indexLocked(p.ID); i >= 0 {
		if qty > MaxLineQuantity-l.lines[i].Quantity {
			l.mu.Unlock()
			return l.lines[i], fmt.Errorf("add product %d: %d more would exceed %d: %w",
				p.ID, qty, MaxLineQuantity, orders.ErrInvalidQuantity)
		}
		l.lines[i].Quantity += qty
		line = l.lines[i]
		n = notify.Notification{
			Key:     notify.Key("cart-add", p.ID),
			Level:   notify.LevelSuccess,
			Message: fmt.Sprintf("%s quantity updated to %d", line.Name, line.Quantity),
		}
	} else {
		line = Line{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.UnitPrice,
			Thumbnail: p.Thumbnail,
			Category:  p.Category,
			Quantity:  qty,
		}
		l.lines = append(l.lines, line)
		n = notify.Notification{
			Key:     notify.Key("cart-add", p.ID),
			Level:   notify.LevelSuccess,
			Message: fmt.Sprintf("%s added to cart", p.Name),
		}
	}
	l.persistLocked(ctx)
	l.mu.Unlock()

	l.sink.Notify(ctx, n)
	return line, nil
}

// SetQuantity overwrites a line's quantity; qty <= 0 removes it.
// Unknown products are ignored. Above MaxLineQuantity nothing changes and
// ErrInvalidQuantity is returned.
func (l *Ledger) SetQuantity(ctx context.Context, productID int64, qty int) error {
	if qty <= 0 {
		l.Remove(ctx, productID)
		return nil
	}
	if qty > MaxLineQuantity {
		return fmt.Errorf("set product %d to %d: %w", productID, qty, orders.ErrInvalidQuantity)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexLocked(productID)
	if i < 0 {
		return nil
	}
	l.lines[i].Quantity = qty
	l.persistLocked(ctx)
	return nil
}

func (l *Ledger) Remove(ctx context.Context, productID int64) {
	l.mu.Lock()
	i := l.indexLocked(productID)
	if i < 0 {
		l.mu.Unlock()
		return
	}
	name := l.lines[i].Name
	l.lines = slices.Delete(l.lines, i, i+1)
	l.persistLocked(ctx)
	l.mu.Unlock()

	l.sink.Notify(ctx, notify.Notification{
		Key:     notify.Key("cart-remove", productID),
		Level:   notify.LevelInfo,
		Message: fmt.Sprintf("%s removed from cart", name),
	})
}

func (l *Ledger) Clear(ctx context.Context) {
	l.mu.Lock()
	l.lines = nil
	l.persistLocked(ctx)
	l.mu.Unlock()

	l.sink.Notify(ctx, notify.Notification{Key: "cart-clear", Level: notify.LevelInfo, Message: "Cart cleared"})
}

func (l *Ledger) TotalItemCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ln := range l.lines {
		n += ln.Quantity
	}
	return n
}

// TotalPrice is the sum of unit price times quantity, in minor units.
func (l *Ledger) TotalPrice() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var sum int64
	for _, ln := range l.lines {
		sum += ln.UnitPrice * int64(ln.Quantity)
	}
	return sum
}

func (l *Ledger) Contains(productID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.indexLocked(productID) >= 0
}

func (l *Ledger) Line(productID int64) (Line, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexLocked(productID); i >= 0 {
		return l.lines[i], true
	}
	return Line{}, false
}

// Lines returns a copy in insertion order. Never nil.
func (l *Ledger) Lines() []Line {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append(make([]Line, 0, len(l.lines)), l.lines...)
}
