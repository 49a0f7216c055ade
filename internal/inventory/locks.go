package inventory

import "sync"

// productLocks serializes reservations per product so two concurrent
// debits of one product cannot read the same starting stock.
type productLocks struct {
	mu sync.Mutex
	m  map[int64]*productLock
}

type productLock struct {
	mu   sync.Mutex
	refs int
}

func (p *productLocks) lock(id int64) (unlock func()) {
	p.mu.Lock()
	if p.m == nil {
		p.m = make(map[int64]*productLock)
	}
	pl, ok := p.m[id]
	if !ok {
		pl = &productLock{}
		p.m[id] = pl
	}
	pl.refs++
	p.mu.Unlock()

	pl.mu.Lock()
	return func() {
		pl.mu.Unlock()
		p.mu.Lock()
		pl.refs--
		if pl.refs == 0 {
			delete(p.m, id)
		}
		p.mu.Unlock()
	}
}
