// Package localstore holds the client-local durable key-value cache the
// ledgers mirror themselves into so state survives a restart.
package localstore

import "context"

const (
	KeyCart      = "cart"
	KeyInventory = "inventory"
)

// Cache is a string key-value store. Get reports ok=false for a missing key.
// Available is false when the backing storage cannot be used right now; callers
// then keep their state in memory only.
type Cache interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Available(ctx context.Context) bool
}

// Usable reports whether c is non-nil and reachable.
func Usable(ctx context.Context, c Cache) bool {
	return c != nil && c.Available(ctx)
}
