package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// advanceMark stores ARGV[1] unless the stored mark is already newer.
var advanceMark = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur and tonumber(cur) > tonumber(ARGV[1]) then
  return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return 1
`)

// Watermarks keeps, per product, the time of the newest stock level known to
// have reached the store, so an older replay never overwrites a newer write.
type Watermarks struct {
	rdb redis.Cmdable
}

func NewWatermarks(rdb redis.Cmdable) *Watermarks {
	return &Watermarks{rdb: rdb}
}

// Advance moves the mark for productID to at and reports false when the mark
// was already past at. Equal marks advance, so a retried event is not skipped.
func (w *Watermarks) Advance(ctx context.Context, productID int64, at time.Time) (bool, error) {
	key := fmt.Sprintf(KeyWatermark, productID)
	n, err := advanceMark.Run(ctx, w.rdb, []string{key}, at.UnixNano(), TTLDedup.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("advance %s: %w", key, err)
	}
	return n == 1, nil
}
