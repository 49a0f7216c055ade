package tracking

import (
	"context"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront/internal/orders"
)

// Archive is where placed orders live. FindByTrackingNumber returns (nil, nil)
// when nothing matches. *orders.Repo and *dynamo.OrderArchive implement it.
type Archive interface {
	FindByTrackingNumber(ctx context.Context, trackingNumber string) (*orders.OrderRecord, error)
	AppendOrder(ctx context.Context, o orders.OrderRecord) error
}

type Tracker struct {
	archive Archive
	now     func() time.Time
}

func NewTracker(archive Archive, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{archive: archive, now: now}
}

// Track looks up the order and derives its timeline. An unknown tracking
// number is found=false with a nil error; err is only set when the archive
// itself failed.
func (t *Tracker) Track(ctx context.Context, trackingNumber string) (tl Timeline, found bool, err error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return Timeline{}, false, nil
	}
	o, err := t.archive.FindByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return Timeline{}, false, err
	}
	if o == nil {
		return Timeline{}, false, nil
	}
	return Synthesize(*o, t.now()), true, nil
}
