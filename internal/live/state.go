package live

import (
	"context"
	"sync"
)

// State holds the latest value of a watched query. Readers never block on
// the store; they see the initial value until the first evaluation lands.
type State[T any] struct {
	mu      sync.RWMutex
	value   T
	err     error
	version uint64
	changed chan struct{}
	done    chan struct{}
}

// StateIn starts watching q and keeps the latest value. The state stops
// updating when ctx is done.
func StateIn[T any](ctx context.Context, feed *Feed, q Query[T], initial T) *State[T] {
	s := &State[T]{
		value:   initial,
		changed: make(chan struct{}),
		done:    make(chan struct{}),
	}
	updates := q.Watch(ctx, feed)
	go func() {
		defer close(s.done)
		for u := range updates {
			s.set(u)
		}
	}()
	return s
}

func (s *State[T]) set(u Update[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.Err != nil {
		s.err = u.Err
	} else {
		s.value = u.Value
		s.err = nil
	}
	s.version++
	close(s.changed)
	s.changed = make(chan struct{})
}

// Value returns the latest value.
func (s *State[T]) Value() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Err returns the error of the latest evaluation, if it failed.
func (s *State[T]) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Version counts updates received so far.
func (s *State[T]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Changed returns a channel closed at the next update.
func (s *State[T]) Changed() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changed
}

// Done is closed once the state stops updating.
func (s *State[T]) Done() <-chan struct{} {
	return s.done
}
