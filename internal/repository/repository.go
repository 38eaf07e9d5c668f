// Package repository is the view-model layer over the store.
//
// Mutations validate their input, apply the graph's feature flags and run
// multi-step changes in one transaction. Views are live.Query values that
// re-evaluate whenever a table they read changes; callers Get them once or
// Watch them.
package repository

import (
	"context"

	"go.uber.org/zap"

	"github.com/AplusKminus/GraphWalker/internal/live"
	"github.com/AplusKminus/GraphWalker/internal/logger"
	"github.com/AplusKminus/GraphWalker/internal/store"
)

// Repository wraps a store with the application's rules.
type Repository struct {
	store *store.Store
	log   *zap.SugaredLogger
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger overrides the package logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Repository) { r.log = l }
}

// New creates a repository over st.
func New(st *store.Store, opts ...Option) *Repository {
	r := &Repository{store: st, log: logger.Named("repository")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the underlying store.
func (r *Repository) Store() *store.Store {
	return r.store
}

// Feed returns the change feed views are watched against.
func (r *Repository) Feed() *live.Feed {
	return r.store.Feed()
}

// tx runs fn in a store transaction. fn must only use q: the store holds a
// single connection, so touching r.store inside fn would block forever.
func (r *Repository) tx(ctx context.Context, fn func(q *store.Queries) error) error {
	return r.store.WithTx(ctx, func(tx *store.Tx) error {
		return fn(tx.Queries)
	})
}

// Transact runs fn in one store transaction for callers that need several
// reads or writes to see a single snapshot, like document import and export.
// Change notifications are published once fn returns nil.
func (r *Repository) Transact(ctx context.Context, fn func(q *store.Queries) error) error {
	return r.tx(ctx, fn)
}

// q is the non-transactional query set.
func (r *Repository) q() *store.Queries {
	return r.store.Queries
}
