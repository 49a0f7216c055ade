package cart_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/localstore"
	"github.com/ariefcatur/go-storefront/internal/notify"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	mug    = cart.Product{ID: 1, Name: "Mug", UnitPrice: 1250, Thumbnail: "mug.png", Category: "kitchen"}
	teapot = cart.Product{ID: 2, Name: "Teapot", UnitPrice: 3900, Thumbnail: "teapot.png", Category: "kitchen"}
)

// offlineCache is present but not reachable, like storage before the client has mounted.
type offlineCache struct {
	*localstore.Memory
	sets int
}

func (c *offlineCache) Available(context.Context) bool { return false }

func (c *offlineCache) Set(ctx context.Context, k, v string) error {
	c.sets++
	return c.Memory.Set(ctx, k, v)
}

// flakyCache fails the first failGets reads.
type flakyCache struct {
	*localstore.Memory
	failGets int
}

func (c *flakyCache) Get(ctx context.Context, k string) (string, bool, error) {
	if c.failGets > 0 {
		c.failGets--
		return "", false, errors.New("disk busy")
	}
	return c.Memory.Get(ctx, k)
}

func newLoaded(t *testing.T, cache localstore.Cache) (*cart.Ledger, *notify.Recorder) {
	t.Helper()
	rec := &notify.Recorder{}
	l := cart.New(cache, rec)
	l.Load(context.Background())
	return l, rec
}

func TestAddOrIncrement(t *testing.T) {
	ctx := context.Background()
	l, rec := newLoaded(t, localstore.NewMemory())

	line, err := l.AddOrIncrement(ctx, mug, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)

	line, err = l.AddOrIncrement(ctx, mug, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, line.Quantity)

	_, err = l.AddOrIncrement(ctx, teapot, 1)
	require.NoError(t, err)

	assert.Equal(t, 4, l.TotalItemCount())
	assert.Equal(t, int64(3*1250+3900), l.TotalPrice())
	assert.True(t, l.Contains(1))
	assert.False(t, l.Contains(99))

	msgs := rec.All()
	require.Len(t, msgs, 3)
	assert.Equal(t, "Mug added to cart", msgs[0].Message)
	assert.Equal(t, "Mug quantity updated to 3", msgs[1].Message)
	assert.Equal(t, "cart-add-1", msgs[1].Key)
}

func TestAddOrIncrement_RejectsNonPositive(t *testing.T) {
	l, _ := newLoaded(t, nil)
	_, err := l.AddOrIncrement(context.Background(), mug, 0)
	assert.ErrorIs(t, err, orders.ErrInvalidQuantity)
	assert.Empty(t, l.Lines())
}

func TestAddOrIncrement_CapsLineQuantity(t *testing.T) {
	ctx := context.Background()
	cache := localstore.NewMemory()
	l, _ := newLoaded(t, cache)

	_, err := l.AddOrIncrement(ctx, mug, math.MaxInt)
	require.ErrorIs(t, err, orders.ErrInvalidQuantity)
	assert.Empty(t, l.Lines())

	_, err = l.AddOrIncrement(ctx, mug, cart.MaxLineQuantity)
	require.NoError(t, err)
	_, err = l.AddOrIncrement(ctx, mug, 1)
	require.ErrorIs(t, err, orders.ErrInvalidQuantity)
	ln, _ := l.Line(mug.ID)
	assert.Equal(t, cart.MaxLineQuantity, ln.Quantity)
	assert.Equal(t, int64(cart.MaxLineQuantity)*mug.UnitPrice, l.TotalPrice())

	err = l.SetQuantity(ctx, mug.ID, math.MaxInt)
	require.ErrorIs(t, err, orders.ErrInvalidQuantity)
	ln, _ = l.Line(mug.ID)
	assert.Equal(t, cart.MaxLineQuantity, ln.Quantity)

	reloaded, _ := newLoaded(t, cache)
	assert.Equal(t, l.Lines(), reloaded.Lines())
}

func TestSetQuantityAndRemove(t *testing.T) {
	ctx := context.Background()
	l, rec := newLoaded(t, localstore.NewMemory())
	_, _ = l.AddOrIncrement(ctx, mug, 2)
	_, _ = l.AddOrIncrement(ctx, teapot, 1)

	require.NoError(t, l.SetQuantity(ctx, 1, 5))
	ln, ok := l.Line(1)
	require.True(t, ok)
	assert.Equal(t, 5, ln.Quantity)

	require.NoError(t, l.SetQuantity(ctx, 42, 3)) // absent: no-op
	assert.Len(t, l.Lines(), 2)

	require.NoError(t, l.SetQuantity(ctx, 2, 0))
	assert.False(t, l.Contains(2))
	assert.Contains(t, rec.Keys(), "cart-remove-2")

	l.Remove(ctx, 2) // already gone: no-op, no notification
	assert.Len(t, rec.All(), 3)

	l.Clear(ctx)
	assert.Empty(t, l.Lines())
	assert.Equal(t, 0, l.TotalItemCount())
	assert.Equal(t, int64(0), l.TotalPrice())
	assert.Equal(t, "cart-clear", rec.All()[len(rec.All())-1].Key)
}

func TestQuantityFloor(t *testing.T) {
	ctx := context.Background()
	l, _ := newLoaded(t, localstore.NewMemory())
	rng := rand.New(rand.NewSource(7))
	products := []cart.Product{mug, teapot, {ID: 3, Name: "Cup", UnitPrice: 500}}

	for i := 0; i < 500; i++ {
		p := products[rng.Intn(len(products))]
		if rng.Intn(2) == 0 {
			_, _ = l.AddOrIncrement(ctx, p, rng.Intn(4)) // 0 is rejected
		} else {
			_ = l.SetQuantity(ctx, p.ID, rng.Intn(7)-3)
		}
		for _, ln := range l.Lines() {
			require.GreaterOrEqual(t, ln.Quantity, 1, "step %d product %d", i, ln.ProductID)
		}
	}
}

func TestRoundTripPersistence(t *testing.T) {
	ctx := context.Background()
	cache := localstore.NewMemory()
	l, _ := newLoaded(t, cache)
	_, _ = l.AddOrIncrement(ctx, mug, 3)
	_, _ = l.AddOrIncrement(ctx, teapot, 1)
	_, _ = l.AddOrIncrement(ctx, cart.Product{ID: 9, Name: "Spoon", UnitPrice: 99}, 2)
	l.Remove(ctx, 9)
	want := l.Lines()

	reloaded, _ := newLoaded(t, cache)
	got := reloaded.Lines()

	byID := func(ls []cart.Line) { sort.Slice(ls, func(i, j int) bool { return ls[i].ProductID < ls[j].ProductID }) }
	byID(want)
	byID(got)
	assert.Equal(t, want, got)
}

func TestCorruptCacheStartsEmpty(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":       "{{{not json",
		"object":         `{"id":1}`,
		"wrong types":    `[{"id":"one","quantity":"lots"}]`,
		"zero quantity":  `[{"id":1,"name":"Mug","price":1250,"quantity":0}]`,
		"duplicate line": `[{"id":1,"quantity":1},{"id":1,"quantity":2}]`,
		"over the cap":   `[{"id":1,"name":"Mug","price":1250,"quantity":1000}]`,
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			cache := localstore.NewMemory()
			require.NoError(t, cache.Set(ctx, localstore.KeyCart, raw))

			var l *cart.Ledger
			require.NotPanics(t, func() { l, _ = newLoaded(t, cache) })
			assert.Empty(t, l.Lines())
			assert.True(t, l.Hydrated())

			_, ok, _ := cache.Get(ctx, localstore.KeyCart)
			assert.False(t, ok, "corrupt value should be discarded")

			_, err := l.AddOrIncrement(ctx, mug, 1)
			require.NoError(t, err)
			v, _, _ := cache.Get(ctx, localstore.KeyCart)
			assert.JSONEq(t, `[{"id":1,"name":"Mug","price":1250,"image":"mug.png","category":"kitchen","quantity":1}]`, v)
		})
	}
}

func TestNoWritesBeforeStorageIsAvailable(t *testing.T) {
	ctx := context.Background()
	cache := &offlineCache{Memory: localstore.NewMemory()}
	l, _ := newLoaded(t, cache)

	assert.False(t, l.Hydrated())
	assert.Empty(t, l.Lines())

	_, err := l.AddOrIncrement(ctx, mug, 2)
	require.NoError(t, err)
	require.NoError(t, l.SetQuantity(ctx, 1, 4))
	l.Clear(ctx)

	assert.Zero(t, cache.sets)
}

func TestNilCacheIsMemoryOnly(t *testing.T) {
	ctx := context.Background()
	l, _ := newLoaded(t, nil)
	_, err := l.AddOrIncrement(ctx, teapot, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, l.TotalItemCount())
	assert.False(t, l.Hydrated())
}

func TestClearPersistsEmptyArray(t *testing.T) {
	ctx := context.Background()
	cache := localstore.NewMemory()
	l, _ := newLoaded(t, cache)
	_, _ = l.AddOrIncrement(ctx, mug, 1)
	l.Clear(ctx)

	v, ok, _ := cache.Get(ctx, localstore.KeyCart)
	require.True(t, ok)
	assert.Equal(t, "[]", v)
}

func TestLoadRetriesAfterReadFailure(t *testing.T) {
	ctx := context.Background()
	cache := &flakyCache{Memory: localstore.NewMemory(), failGets: 1}
	require.NoError(t, cache.Set(ctx, localstore.KeyCart, `[{"id":2,"name":"Teapot","price":3900,"quantity":1}]`))

	l, _ := newLoaded(t, cache)
	require.False(t, l.Hydrated())

	l.Load(ctx)
	require.True(t, l.Hydrated())
	assert.Equal(t, 1, l.TotalItemCount())
}

func TestMutationAfterFailedLoadKeepsMemoryLines(t *testing.T) {
	ctx := context.Background()
	cache := &flakyCache{Memory: localstore.NewMemory(), failGets: 1}
	require.NoError(t, cache.Set(ctx, localstore.KeyCart, `[{"id":2,"name":"Teapot","price":3900,"quantity":1}]`))

	l, _ := newLoaded(t, cache)
	require.False(t, l.Hydrated())

	_, err := l.AddOrIncrement(ctx, mug, 2)
	require.NoError(t, err)
	assert.True(t, l.Hydrated())

	v, _, _ := cache.Get(ctx, localstore.KeyCart)
	assert.JSONEq(t, `[{"id":1,"name":"Mug","price":1250,"image":"mug.png","category":"kitchen","quantity":2}]`, v)
}

func TestClearAfterFailedLoadIsNotUndone(t *testing.T) {
	ctx := context.Background()
	cache := &flakyCache{Memory: localstore.NewMemory(), failGets: 1}
	require.NoError(t, cache.Set(ctx, localstore.KeyCart, `[{"id":2,"name":"Teapot","price":3900,"quantity":1}]`))

	l, _ := newLoaded(t, cache)
	l.Clear(ctx)

	assert.Empty(t, l.Lines())
	v, _, _ := cache.Get(ctx, localstore.KeyCart)
	assert.Equal(t, "[]", v)
}
