package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestProducer_FlushesOnClose(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "t", 8)
	p.Start(context.Background())

	require.NoError(t, p.Publish(context.Background(), []byte("k"), []byte("v1")))
	require.NoError(t, p.Publish(context.Background(), []byte("k"), []byte("v2")))
	p.Close()
	p.WaitClosed()

	assert.True(t, w.closed)
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "v1", string(w.msgs[0].Value))
	assert.Equal(t, "v2", string(w.msgs[1].Value))

	assert.ErrorIs(t, p.Publish(context.Background(), nil, []byte("late")), ErrProducerClosed)
	p.Close() // second close is a no-op
}

func TestProducer_StopsOnContextCancel(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "t", 8)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	require.NoError(t, p.Publish(context.Background(), nil, []byte("v")))
	cancel()

	select {
	case <-p.closeCh:
	case <-time.After(2 * time.Second):
		t.Fatal("producer did not stop")
	}
	assert.True(t, w.closed)
}

// gatedWriter blocks every write until gate is closed.
type gatedWriter struct {
	fakeWriter
	entered chan struct{}
	gate    chan struct{}
}

func (g *gatedWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.gate
	return g.fakeWriter.WriteMessages(ctx, msgs...)
}

func TestProducer_PublishAfterStopIsClosed(t *testing.T) {
	p := newProducer(&fakeWriter{}, "t", 1)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	cancel()
	p.WaitClosed()

	assert.ErrorIs(t, p.Publish(context.Background(), nil, []byte("v")), ErrProducerClosed)
}

func TestProducer_BlockedPublishDoesNotDeadlockClose(t *testing.T) {
	w := &gatedWriter{entered: make(chan struct{}, 1), gate: make(chan struct{})}
	p := newProducer(w, "t", 1)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	require.NoError(t, p.Publish(context.Background(), nil, []byte("v1")))
	<-w.entered
	require.NoError(t, p.Publish(context.Background(), nil, []byte("v2")))

	published := make(chan error, 1)
	go func() { published <- p.Publish(context.Background(), nil, []byte("v3")) }()

	cancel()
	close(w.gate)

	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("publish stayed blocked after the producer stopped")
	}

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("close deadlocked")
	}
	p.WaitClosed()
}

// fakeReader serves msgs once, then blocks until the context ends.
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.msgs) > 0 {
		m := f.msgs[0]
		f.msgs = f.msgs[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeReader) commits() []kafka.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kafka.Message(nil), f.committed...)
}

func TestConsumer_RetriesAndCommitsInPartitionOrder(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{
		{Topic: "t", Partition: 0, Offset: 0},
		{Topic: "t", Partition: 1, Offset: 0},
		{Topic: "t", Partition: 0, Offset: 1},
		{Topic: "t", Partition: 1, Offset: 1},
	}}
	c := newConsumer(r, 2)
	c.backoff = time.Millisecond
	c.maxBackoff = 5 * time.Millisecond

	var mu sync.Mutex
	calls := map[[2]int64]int{}
	h := func(_ context.Context, m kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		k := [2]int64{int64(m.Partition), m.Offset}
		calls[k]++
		if k == [2]int64{0, 0} && calls[k] <= 2 {
			return assert.AnError
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h) }()

	require.Eventually(t, func() bool { return len(r.commits()) == 4 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	assert.Equal(t, 3, calls[[2]int64{0, 0}])
	assert.Equal(t, 1, calls[[2]int64{0, 1}])
	mu.Unlock()

	perPartition := map[int][]int64{}
	for _, m := range r.commits() {
		perPartition[m.Partition] = append(perPartition[m.Partition], m.Offset)
	}
	assert.Equal(t, []int64{0, 1}, perPartition[0])
	assert.Equal(t, []int64{0, 1}, perPartition[1])
	assert.True(t, r.closed)
}

func TestConsumer_FailingMessageIsNeverCommitted(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{
		{Topic: "t", Partition: 0, Offset: 0},
		{Topic: "t", Partition: 0, Offset: 1},
	}}
	c := newConsumer(r, 1)
	c.backoff = time.Millisecond
	c.maxBackoff = time.Millisecond

	var attempts atomic.Int32
	h := func(_ context.Context, m kafka.Message) error {
		if m.Offset == 0 {
			attempts.Add(1)
			return assert.AnError
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h) }()

	require.Eventually(t, func() bool { return attempts.Load() >= 3 }, 2*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Empty(t, r.commits(), "later offsets must not be committed past a failing one")
}

func TestEventBus_EmitWrapsEnvelope(t *testing.T) {
	w := &fakeWriter{}
	bus := &EventBus{
		producers: map[string]*Producer{orders.TopicStockUnsynced: newProducer(w, orders.TopicStockUnsynced, 8)},
		service:   "storefront-api",
		now:       func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
	bus.Start(context.Background())

	err := bus.Emit(context.Background(), orders.TopicStockUnsynced, orders.EventStockUnsynced, "product:7",
		orders.StockUnsyncedPayload{ProductID: 7, AvailableUnits: 3})
	require.NoError(t, err)
	bus.Close()

	require.Len(t, w.msgs, 1)
	m := w.msgs[0]
	assert.Equal(t, "product:7", string(m.Key))

	env, err := DecodeEnvelope(m.Value)
	require.NoError(t, err)
	assert.Equal(t, orders.EventStockUnsynced, env.EventType)
	assert.Equal(t, "storefront-api", env.Producer)
	assert.Equal(t, 1, env.EventVersion)
	assert.NotEmpty(t, env.EventID)

	p, err := UnwrapPayload[orders.StockUnsyncedPayload](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.ProductID)
	assert.Equal(t, 3, p.AvailableUnits)
}

func TestEventBus_UnknownTopic(t *testing.T) {
	bus := &EventBus{producers: map[string]*Producer{}, now: time.Now}
	err := bus.Emit(context.Background(), "nope", orders.EventOrderPlaced, "x", struct{}{})
	assert.ErrorContains(t, err, "unknown topic")
}
