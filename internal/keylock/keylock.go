// Package keylock serializes work per key so that read-then-write sequences
// on the same cart line or wishlist entry never interleave.
package keylock

import (
	"context"
	"strings"
	"sync"
)

// Unlock releases a held key. It is safe to call more than once.
type Unlock func()

// Locker grants exclusive ownership of a key until the returned Unlock runs.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// Key joins parts into a lock key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

type entry struct {
	sem  chan struct{}
	refs int
}

// Local is an in-process keyed mutex. Waiters on one key are granted in
// arrival order; unrelated keys never contend.
type Local struct {
	mu    sync.Mutex
	locks map[string]*entry
}

func NewLocal() *Local {
	return &Local{locks: make(map[string]*entry)}
}

func (l *Local) Lock(ctx context.Context, key string) (Unlock, error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.drop(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.drop(key, e)
		})
	}, nil
}

// Held reports the number of keys with a holder or waiter.
func (l *Local) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *Local) drop(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}
