// Package aggregate holds the local, observable copy of a remote collection.
// A Store has a single serialized write path and any number of readers.
package aggregate

import "sync"

// Store is a generic aggregate cell. Writes go through Apply or Reset and are
// delivered to subscribers in write order.
type Store[T any] struct {
	// write serializes Apply, Reset and the notifications that follow them.
	write sync.Mutex

	mu     sync.RWMutex
	state  T
	gen    uint64
	closed bool
	clone  func(T) T
	subs   map[int]func(T)
	nextID int
}

// NewStore builds a store holding initial. clone must return a deep copy so
// that snapshots never alias internal state.
func NewStore[T any](initial T, clone func(T) T) *Store[T] {
	return &Store[T]{state: initial, clone: clone, subs: make(map[int]func(T))}
}

// Snapshot returns a copy of the current state.
func (s *Store[T]) Snapshot() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clone(s.state)
}

// Generation identifies the current epoch. Operations capture it when they
// start and pass it back to Apply with their outcome.
func (s *Store[T]) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Apply replaces the state with fn(state) when gen is still current and the
// store is open. It reports whether the write happened; stale outcomes are
// dropped.
func (s *Store[T]) Apply(gen uint64, fn func(T) T) bool {
	s.write.Lock()
	defer s.write.Unlock()

	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return false
	}
	s.state = fn(s.clone(s.state))
	subs := s.subscribers()
	next := s.state
	s.mu.Unlock()

	s.publish(subs, next)
	return true
}

// Reset replaces the state and starts a new generation, discarding every
// outcome still in flight.
func (s *Store[T]) Reset(value T) {
	s.write.Lock()
	defer s.write.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.gen++
	s.state = value
	subs := s.subscribers()
	s.mu.Unlock()

	s.publish(subs, value)
}

// Subscribe registers fn to receive a snapshot after every write. Callbacks
// run synchronously on the writer's goroutine; they may call Snapshot but
// must not call Apply or Reset.
func (s *Store[T]) Subscribe(fn func(T)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Close tears the store down. Later outcomes are discarded and subscribers
// are dropped.
func (s *Store[T]) Close() {
	s.write.Lock()
	defer s.write.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.gen++
	s.subs = make(map[int]func(T))
}

func (s *Store[T]) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Store[T]) subscribers() []func(T) {
	out := make([]func(T), 0, len(s.subs))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.subs[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func (s *Store[T]) publish(subs []func(T), state T) {
	for _, fn := range subs {
		fn(s.clone(state))
	}
}
