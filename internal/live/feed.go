package live

import (
	"sync"
)

// Op is the kind of mutation that produced a Change.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change describes one committed mutation of a table row.
type Change struct {
	Table string `json:"table"`
	Op    Op     `json:"op"`
	ID    int64  `json:"id"`
}

// Feed fans committed changes out to subscribers.
//
// Publish never blocks: each subscription buffers its pending changes and
// owns a signal channel of capacity one, so any number of publishes between
// two reads coalesce into a single wakeup.
type Feed struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[uint64]*Subscription)}
}

// Subscribe registers interest in the given tables. With no tables the
// subscription receives every change.
func (f *Feed) Subscribe(tables ...string) *Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	sub := &Subscription{
		feed:   f,
		signal: make(chan struct{}, 1),
	}
	if len(tables) > 0 {
		sub.tables = make(map[string]bool, len(tables))
		for _, t := range tables {
			sub.tables[t] = true
		}
	}
	if f.closed {
		sub.closed = true
		close(sub.signal)
		return sub
	}

	f.nextID++
	sub.id = f.nextID
	f.subs[sub.id] = sub
	return sub
}

// Publish delivers changes to every interested subscriber.
func (f *Feed) Publish(changes ...Change) {
	if len(changes) == 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	for _, sub := range f.subs {
		sub.deliver(changes)
	}
}

// Len returns the number of active subscriptions.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Close ends every subscription. Further publishes are dropped.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for id, sub := range f.subs {
		sub.shut()
		delete(f.subs, id)
	}
}

func (f *Feed) remove(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub, ok := f.subs[id]; ok {
		sub.shut()
		delete(f.subs, id)
	}
}

// Subscription receives changes for a set of tables.
type Subscription struct {
	feed   *Feed
	id     uint64
	tables map[string]bool // nil means all tables

	mu      sync.Mutex
	pending []Change
	closed  bool
	signal  chan struct{}
}

// C returns a channel that fires when changes may be pending. It is closed
// when the subscription or its feed is closed.
func (s *Subscription) C() <-chan struct{} {
	return s.signal
}

// Drain returns and clears all pending changes.
func (s *Subscription) Drain() []Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	if s.feed == nil {
		return
	}
	s.feed.remove(s.id)
}

// interested reports whether any change touches a subscribed table.
func (s *Subscription) interested(changes []Change) []Change {
	if s.tables == nil {
		return changes
	}
	var out []Change
	for _, c := range changes {
		if s.tables[c.Table] {
			out = append(out, c)
		}
	}
	return out
}

// deliver is called with the feed lock held.
func (s *Subscription) deliver(changes []Change) {
	relevant := s.interested(changes)
	if len(relevant) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.pending = append(s.pending, relevant...)

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// shut is called with the feed lock held.
func (s *Subscription) shut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.signal)
}
