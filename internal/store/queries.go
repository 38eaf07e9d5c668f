package store

import (
	"context"
	"database/sql"

	"github.com/AplusKminus/GraphWalker/internal/live"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds every read and write the store offers. It runs either
// directly on the database (Store) or inside a transaction (Tx).
type Queries struct {
	q       querier
	publish func(...live.Change)
}

// cascades lists, per table, the tables whose rows can disappear or change
// when a row of that table is deleted.
var cascades = map[string][]string{
	TableGraphs:     {TableNodes, TableConnectors, TableEdges, TableCliques, TableCliqueNodes},
	TableNodes:      {TableGraphs, TableConnectors, TableEdges, TableCliqueNodes},
	TableConnectors: {TableEdges},
	TableCliques:    {TableCliqueNodes},
}

func (q *Queries) changed(table string, op live.Op, id int64) {
	q.publish(live.Change{Table: table, Op: op, ID: id})
}

// deleted publishes the delete itself plus one change per cascaded table.
// Cascaded changes carry ID 0 since the affected rows are not known.
func (q *Queries) deleted(table string, id int64) {
	changes := []live.Change{{Table: table, Op: live.OpDelete, ID: id}}
	for _, t := range cascades[table] {
		changes = append(changes, live.Change{Table: t, Op: live.OpDelete})
	}
	q.publish(changes...)
}

// execOne runs a statement that must affect exactly one row.
func (q *Queries) execOne(ctx context.Context, what string, id int64, query string, args ...any) error {
	res, err := q.q.ExecContext(ctx, query, args...)
	if err != nil {
		return mapConstraint(err, what)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapConstraint(err, what)
	}
	if n == 0 {
		return notFound(what, id)
	}
	return nil
}

// insert runs an INSERT and returns the new row id.
func (q *Queries) insert(ctx context.Context, what string, query string, args ...any) (int64, error) {
	res, err := q.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapConstraint(err, what)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, mapConstraint(err, what)
	}
	return id, nil
}
