package localstore

import "context"

// Scoped prefixes every key with scope, giving each client session its own
// "cart" key inside one shared backend.
type Scoped struct {
	inner Cache
	scope string
}

func NewScoped(inner Cache, scope string) *Scoped {
	return &Scoped{inner: inner, scope: scope}
}

func (s *Scoped) key(k string) string { return s.scope + ":" + k }

func (s *Scoped) Get(ctx context.Context, key string) (string, bool, error) {
	return s.inner.Get(ctx, s.key(key))
}

func (s *Scoped) Set(ctx context.Context, key, value string) error {
	return s.inner.Set(ctx, s.key(key), value)
}

func (s *Scoped) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.key(key))
}

func (s *Scoped) Available(ctx context.Context) bool {
	return s.inner != nil && s.inner.Available(ctx)
}
