package sandbox

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var ErrPoolClosed = errors.New("sandbox pool is closed")

// Pool keeps realms pre-built so VM setup happens off the request path.
// Realms are handed out once and never returned; every Acquire triggers a
// background refill.
type Pool struct {
	config Config
	realms chan Realm
	size   int
	mu     sync.RWMutex
	closed bool

	served  atomic.Int64
	misses  atomic.Int64
	refills sync.WaitGroup
}

// PoolStats is a point-in-time view of the pool.
type PoolStats struct {
	Size      int   `json:"size"`
	Available int   `json:"available"`
	Served    int64 `json:"served"`
	Misses    int64 `json:"misses"`
	Closed    bool  `json:"closed"`
}

// NewPool creates a realm pool
func NewPool(config Config, size int) (*Pool, error) {
	if size <= 0 {
		size = 4
	}

	pool := &Pool{
		config: config,
		realms: make(chan Realm, size),
		size:   size,
	}

	// Pre-create realms
	for i := 0; i < size; i++ {
		realm, err := NewRealm(config)
		if err != nil {
			pool.Close()
			return nil, err
		}
		pool.realms <- realm
	}

	return pool, nil
}

// Acquire hands out a fresh realm. When none is ready one is built inline.
func (p *Pool) Acquire(ctx context.Context) (Realm, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, ErrPoolClosed
	}
	var realm Realm
	select {
	case realm = <-p.realms:
	default:
	}
	p.refill()
	p.mu.RUnlock()

	p.served.Add(1)
	if realm != nil {
		return realm, nil
	}
	p.misses.Add(1)
	return NewRealm(p.config)
}

// Factory adapts the pool for Executor.
func (p *Pool) Factory() RealmFactory {
	return func() (Realm, error) {
		return p.Acquire(context.Background())
	}
}

// refill builds one realm in the background. Callers hold p.mu for reading.
func (p *Pool) refill() {
	p.refills.Add(1)
	go func() {
		defer p.refills.Done()

		realm, err := NewRealm(p.config)
		if err != nil {
			return
		}

		p.mu.RLock()
		defer p.mu.RUnlock()
		if p.closed {
			realm.Destroy()
			return
		}
		select {
		case p.realms <- realm:
		default:
			// Pool full
			realm.Destroy()
		}
	}()
}

// Close destroys idle realms. Acquire fails with ErrPoolClosed afterwards.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	// refills started before closed was set finish under the read lock
	p.refills.Wait()

	close(p.realms)
	for realm := range p.realms {
		realm.Destroy()
	}
	return nil
}

// Stats returns pool statistics
func (p *Pool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return PoolStats{
		Size:      p.size,
		Available: len(p.realms),
		Served:    p.served.Load(),
		Misses:    p.misses.Load(),
		Closed:    p.closed,
	}
}
