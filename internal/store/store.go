package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/live"
	"github.com/AplusKminus/GraphWalker/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Table names, also used as live.Change tables.
const (
	TableGraphs      = "graphs"
	TableNodes       = "nodes"
	TableConnectors  = "connectors"
	TableEdges       = "edges"
	TableCliques     = "cliques"
	TableCliqueNodes = "clique_nodes"
)

// AllTables lists every table in dependency order.
var AllTables = []string{TableGraphs, TableNodes, TableConnectors, TableEdges, TableCliques, TableCliqueNodes}

// Schema version tracking:
// 0 - Initial schema (graphs, nodes, connectors, edges)
// 1 - Indexes on edge endpoints
// 2 - Cliques and clique membership
const currentSchemaVersion = model.SchemaVersion

// Store provides durable storage for graphs. The embedded Queries run
// directly against the database and publish each change immediately.
type Store struct {
	*Queries
	db     *sql.DB
	feed   *live.Feed
	logger *zap.SugaredLogger
}

// Option configures Open.
type Option func(*options)

type options struct {
	busyTimeoutMS int
	logger        *zap.SugaredLogger
}

// WithBusyTimeout sets the SQLite busy timeout.
func WithBusyTimeout(ms int) Option {
	return func(o *options) { o.busyTimeoutMS = ms }
}

// WithLogger makes the store log lifecycle events.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) { o.logger = l }
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Store, error) {
	o := options{busyTimeoutMS: 5000, logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	// SQLite allows one writer; a single connection also keeps
	// in-memory databases alive for the lifetime of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db, o.busyTimeoutMS); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to apply pragmas")
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to apply schema")
	}

	feed := live.NewFeed()
	s := &Store{
		Queries: &Queries{q: db, publish: feed.Publish},
		db:      db,
		feed:    feed,
		logger:  o.logger,
	}
	o.logger.Debugw("Database opened", "path", path, "schema_version", currentSchemaVersion)
	return s, nil
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory(opts ...Option) (*Store, error) {
	return Open(":memory:", opts...)
}

// Close ends all live subscriptions and closes the database connection.
func (s *Store) Close() error {
	if s.feed != nil {
		s.feed.Close()
	}
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Feed returns the change feed that live queries subscribe to.
func (s *Store) Feed() *live.Feed {
	return s.feed
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - writes made through it are not published.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Tx is a transaction. Its Queries buffer changes, which are published only
// if the transaction commits.
type Tx struct {
	*Queries
	pending []live.Change
}

// WithTx runs fn inside a transaction. fn's error rolls everything back and
// nothing is published.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer sqlTx.Rollback() // No-op if committed

	tx := &Tx{}
	tx.Queries = &Queries{
		q:       sqlTx,
		publish: func(c ...live.Change) { tx.pending = append(tx.pending, c...) },
	}

	if err := fn(tx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	s.feed.Publish(tx.pending...)
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB, busyTimeoutMS int) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMS),
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return errors.Wrapf(err, "failed to execute %q", pragma)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return errors.Wrap(err, "failed to execute schema")
	}

	if err := runMigrations(db); err != nil {
		return errors.Wrap(err, "failed to run migrations")
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return errors.Wrap(err, "get user_version")
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}
	if version < 2 {
		if err := migrateToV2(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return errors.Wrap(err, "set user_version")
	}

	return nil
}

// migrateToV1 adds edge endpoint indexes to databases created before them.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_connector_id);
		CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_connector_id);
	`)
	if err != nil {
		return errors.Wrap(err, "migrate to v1")
	}
	return nil
}

// migrateToV2 adds the clique tables to databases created before cliques existed.
func migrateToV2(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cliques (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			graph_id    INTEGER NOT NULL REFERENCES graphs(id) ON DELETE CASCADE,
			name        TEXT    NOT NULL,
			edge_weight REAL    NOT NULL DEFAULT 1.0
		);
		CREATE TABLE IF NOT EXISTS clique_nodes (
			clique_id INTEGER NOT NULL REFERENCES cliques(id) ON DELETE CASCADE,
			node_id   INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
			PRIMARY KEY (clique_id, node_id)
		);
	`)
	if err != nil {
		return errors.Wrap(err, "migrate to v2")
	}
	return nil
}

// mapConstraint turns SQLite constraint failures into domain errors.
func mapConstraint(err error, what string) error {
	if err == nil {
		return nil
	}
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.ExtendedCode {
		case sqlite3.ErrConstraintForeignKey:
			return errors.Invalidf("%s: referenced row does not exist", what)
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return errors.Conflictf("%s: already exists", what)
		}
	}
	return errors.Wrap(err, what)
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return errors.Wrapf(err, "failed to query %s", name)
	}
	if value != expected {
		return errors.Newf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
