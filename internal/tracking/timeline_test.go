package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var placedAt = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func sampleOrder() orders.OrderRecord {
	return orders.OrderRecord{
		OrderReference:        "ORD-1",
		TrackingNumber:        "TRK-ABC",
		CustomerName:          "Sam",
		CustomerEmail:         "sam@example.com",
		OrderDate:             placedAt,
		EstimatedDeliveryDate: placedAt.Add(5 * 24 * time.Hour),
		ShippingAddress:       "1 Harbour St, Springfield",
	}
}

func statuses(tl Timeline) []orders.Status {
	out := make([]orders.Status, 0, len(tl.Events))
	for _, e := range tl.Events {
		out = append(out, e.Status)
	}
	return out
}

func TestSynthesize_Thresholds(t *testing.T) {
	o := sampleOrder()
	cases := []struct {
		name string
		now  time.Time
		want []orders.Status
	}{
		{"at order time", placedAt, []orders.Status{orders.StatusPending}},
		{"just before processing", placedAt.Add(12*time.Hour - time.Second), []orders.Status{orders.StatusPending}},
		{"exactly processing", placedAt.Add(12 * time.Hour), []orders.Status{orders.StatusPending, orders.StatusProcessing}},
		{"shipped", placedAt.Add(36 * time.Hour), []orders.Status{orders.StatusPending, orders.StatusProcessing, orders.StatusShipped}},
		{"delivered", o.EstimatedDeliveryDate, []orders.Status{orders.StatusPending, orders.StatusProcessing, orders.StatusShipped, orders.StatusDelivered}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tl := Synthesize(o, tc.now)
			assert.Equal(t, tc.want, statuses(tl))
			assert.Equal(t, tc.want[len(tc.want)-1], tl.Status)
		})
	}
}

func TestSynthesize_Monotonic(t *testing.T) {
	o := sampleOrder()
	first := Synthesize(o, placedAt)
	second := Synthesize(o, placedAt.Add(13*time.Hour))
	third := Synthesize(o, o.EstimatedDeliveryDate)

	assert.Len(t, first.Events, 1)
	assert.GreaterOrEqual(t, len(second.Events), 2)
	assert.Len(t, third.Events, 4)

	assert.Equal(t, first.Events, second.Events[:len(first.Events)])
	assert.Equal(t, second.Events, third.Events[:len(second.Events)])

	for i := 1; i < len(third.Events); i++ {
		assert.True(t, orders.Precedes(third.Events[i-1].Status, third.Events[i].Status))
		assert.False(t, third.Events[i].OccursAt.Before(third.Events[i-1].OccursAt))
	}
	assert.Equal(t, o.ShippingAddress, third.Events[3].Location)
}

func TestSynthesize_Deterministic(t *testing.T) {
	o := sampleOrder()
	now := placedAt.Add(40 * time.Hour)
	assert.Equal(t, Synthesize(o, now), Synthesize(o, now))
}

// Early delivery estimates still never produce "delivered" before "now".
func TestSynthesize_DeliveryBeforeShipping(t *testing.T) {
	o := sampleOrder()
	o.EstimatedDeliveryDate = placedAt.Add(24 * time.Hour)
	tl := Synthesize(o, placedAt.Add(30*time.Hour))
	assert.Equal(t, []orders.Status{orders.StatusPending, orders.StatusProcessing, orders.StatusDelivered}, statuses(tl))
	assert.Equal(t, orders.StatusDelivered, tl.Status)
}

type memArchive struct {
	byTracking map[string]orders.OrderRecord
	err        error
}

func (m *memArchive) FindByTrackingNumber(_ context.Context, tn string) (*orders.OrderRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	o, ok := m.byTracking[tn]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *memArchive) AppendOrder(_ context.Context, o orders.OrderRecord) error {
	m.byTracking[o.TrackingNumber] = o
	return nil
}

func TestAdvance_OnlyMovesForward(t *testing.T) {
	events := []StatusEvent{{Status: orders.StatusShipped}}
	events = advance(events, StatusEvent{Status: orders.StatusProcessing})
	events = advance(events, StatusEvent{Status: orders.StatusShipped})
	require.Len(t, events, 1)

	events = advance(events, StatusEvent{Status: orders.StatusDelivered})
	require.Len(t, events, 2)
	assert.Equal(t, orders.StatusDelivered, events[1].Status)
}

func TestTracker(t *testing.T) {
	ctx := context.Background()
	arch := &memArchive{byTracking: map[string]orders.OrderRecord{}}
	require.NoError(t, arch.AppendOrder(ctx, sampleOrder()))
	tr := NewTracker(arch, func() time.Time { return placedAt.Add(13 * time.Hour) })

	tl, found, err := tr.Track(ctx, " TRK-ABC ")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, orders.StatusProcessing, tl.Status)
	assert.Equal(t, "ORD-1", tl.OrderReference)

	_, found, err = tr.Track(ctx, "TRK-NOPE")
	assert.NoError(t, err)
	assert.False(t, found)

	_, found, err = tr.Track(ctx, "")
	assert.NoError(t, err)
	assert.False(t, found)

	arch.err = errors.New("archive offline")
	_, _, err = tr.Track(ctx, "TRK-ABC")
	assert.Error(t, err)
}
