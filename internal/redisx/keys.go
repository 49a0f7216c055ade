package redisx

import "time"

const (
	// Durable cache entry: durable:{scope:key} -> JSON document ("cart", "inventory")
	KeyDurable = "durable:%s"

	// Dedup event processing: dedup:{service}:{id} (id = event_id)
	KeyDedup = "dedup:%s:%s"

	// Newest synced stock level per product: stocksync:mark:{product_id} -> unix nanos
	KeyWatermark = "stocksync:mark:%d"
)

var (
	// Carts left untouched for this long are dropped by Redis.
	TTLDurable = 30 * 24 * time.Hour
	TTLDedup   = 48 * time.Hour
)
