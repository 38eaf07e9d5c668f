package live

import (
	"context"
	"reflect"
	"sort"
)

// EvalFunc computes the current value of a query.
type EvalFunc[T any] func(ctx context.Context) (T, error)

// Query is a re-evaluable read over a set of tables.
type Query[T any] struct {
	tables []string
	eval   EvalFunc[T]
}

// NewQuery returns a query that depends on the given tables.
func NewQuery[T any](eval EvalFunc[T], tables ...string) Query[T] {
	return Query[T]{tables: dedupe(tables), eval: eval}
}

// Tables returns the tables the query reads, sorted.
func (q Query[T]) Tables() []string {
	out := make([]string, len(q.tables))
	copy(out, q.tables)
	return out
}

// Get evaluates the query once.
func (q Query[T]) Get(ctx context.Context) (T, error) {
	return q.eval(ctx)
}

// Update is one emission of a watched query.
type Update[T any] struct {
	Value T
	Err   error
}

// Watch emits the current value, then a new value each time a dependent
// table changes and the result differs from the last emitted one. Errors
// are delivered as updates and do not end the watch. The channel closes
// when ctx is done or the feed is closed.
func (q Query[T]) Watch(ctx context.Context, feed *Feed) <-chan Update[T] {
	out := make(chan Update[T], 1)
	// Subscribe before the first evaluation so no change slips between them.
	sub := feed.Subscribe(q.tables...)

	go func() {
		defer close(out)
		defer sub.Close()

		var last T
		have := false

		emit := func() bool {
			v, err := q.eval(ctx)
			if ctx.Err() != nil {
				return false
			}
			u := Update[T]{Value: v, Err: err}
			if err == nil {
				if have && reflect.DeepEqual(last, v) {
					return true
				}
				last, have = v, true
			} else {
				// The next good value must reach the consumer even if it
				// equals the one before the error.
				have = false
			}
			select {
			case out <- u:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-sub.C():
				if !ok {
					return
				}
				sub.Drain()
				if !emit() {
					return
				}
			}
		}
	}()

	return out
}

// Map transforms the result of q.
func Map[T, U any](q Query[T], f func(T) U) Query[U] {
	return Query[U]{
		tables: q.tables,
		eval: func(ctx context.Context) (U, error) {
			v, err := q.eval(ctx)
			if err != nil {
				var zero U
				return zero, err
			}
			return f(v), nil
		},
	}
}

// Combine2 evaluates a and b together and merges them with f. The result
// depends on the union of both queries' tables.
func Combine2[A, B, R any](a Query[A], b Query[B], f func(A, B) R) Query[R] {
	return Query[R]{
		tables: dedupe(append(a.Tables(), b.tables...)),
		eval: func(ctx context.Context) (R, error) {
			var zero R
			av, err := a.eval(ctx)
			if err != nil {
				return zero, err
			}
			bv, err := b.eval(ctx)
			if err != nil {
				return zero, err
			}
			return f(av, bv), nil
		},
	}
}

// Combine3 is Combine2 for three inputs.
func Combine3[A, B, C, R any](a Query[A], b Query[B], c Query[C], f func(A, B, C) R) Query[R] {
	ab := Combine2(a, b, func(av A, bv B) pair[A, B] { return pair[A, B]{av, bv} })
	return Combine2(ab, c, func(p pair[A, B], cv C) R { return f(p.a, p.b, cv) })
}

type pair[A, B any] struct {
	a A
	b B
}

func dedupe(tables []string) []string {
	seen := make(map[string]bool, len(tables))
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}
