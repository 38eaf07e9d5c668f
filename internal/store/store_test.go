package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/live"
	"github.com/AplusKminus/GraphWalker/internal/model"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	// Verify file was created
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_QuietAboveDebug(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s, err := Open(filepath.Join(t.TempDir(), "quiet.db"), WithLogger(zap.New(core).Sugar()))
	require.NoError(t, err)
	defer s.Close()

	assert.Zero(t, logs.Len(), "opening a database logs only at debug level")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range AllTables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_KeepsDataAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	id, err := s1.InsertGraph(ctx, model.Graph{Name: "Metro", GraphFlags: model.DefaultFlags()})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	g, err := s2.GetGraph(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Metro", g.Name)
	assert.True(t, g.Directed)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestOpenInMemory(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	// A single connection keeps the in-memory database alive between calls.
	_, err = s.InsertGraph(context.Background(), model.Graph{Name: "a"})
	require.NoError(t, err)
	graphs, err := s.ListGraphs(context.Background())
	require.NoError(t, err)
	assert.Len(t, graphs, 1)
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestClose_EndsSubscriptions(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	sub := s.Feed().Subscribe(TableGraphs)
	require.NoError(t, s.Close())

	_, ok := <-sub.C()
	assert.False(t, ok)
}

func TestDB_ReturnsUnderlyingConnection(t *testing.T) {
	s := createTestStore(t)

	db := s.DB()
	require.NotNil(t, db)
	assert.NoError(t, db.Ping())
}

// Pragma tests

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name string
		want string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.verifyPragma(tt.name, tt.want); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestPragma_CustomBusyTimeout(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), WithBusyTimeout(250))
	require.NoError(t, err)
	defer s.Close()

	assert.NoError(t, s.verifyPragma("busy_timeout", "250"))
}

// Schema tests

func TestSchema_Columns(t *testing.T) {
	s := createTestStore(t)

	expected := map[string][]string{
		TableGraphs:      {"id", "name", "starting_node_id", "is_directed", "has_edge_weights", "has_edge_labels", "has_connectors"},
		TableNodes:       {"id", "graph_id", "name", "tags"},
		TableConnectors:  {"id", "node_id", "name"},
		TableEdges:       {"id", "from_connector_id", "to_connector_id", "bidirectional", "name", "weight"},
		TableCliques:     {"id", "graph_id", "name", "edge_weight"},
		TableCliqueNodes: {"clique_id", "node_id"},
	}
	for table, cols := range expected {
		columns := getTableColumns(t, s.db, table)
		for _, col := range cols {
			if !contains(columns, col) {
				t.Errorf("%s table missing column %q", table, col)
			}
		}
	}
}

func TestSchema_Indexes(t *testing.T) {
	s := createTestStore(t)

	expected := map[string][]string{
		TableNodes:       {"idx_nodes_graph"},
		TableConnectors:  {"idx_connectors_node"},
		TableEdges:       {"idx_edges_from", "idx_edges_to"},
		TableCliques:     {"idx_cliques_graph"},
		TableCliqueNodes: {"idx_clique_nodes_node"},
	}
	for table, idxs := range expected {
		indexes := getTableIndexes(t, s.db, table)
		for _, idx := range idxs {
			if !contains(indexes, idx) {
				t.Errorf("%s table missing index %q", table, idx)
			}
		}
	}
}

// Migration tests

func TestMigration_SchemaVersion(t *testing.T) {
	s := createTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("failed to get user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestMigration_UpgradeFromV0(t *testing.T) {
	// Simulate a database written before edge indexes and cliques existed.
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	_, err = db.Exec(`
		CREATE TABLE graphs (
			id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL,
			starting_node_id INTEGER, is_directed INTEGER NOT NULL DEFAULT 1,
			has_edge_weights INTEGER NOT NULL DEFAULT 0, has_edge_labels INTEGER NOT NULL DEFAULT 0,
			has_connectors INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE nodes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			graph_id INTEGER NOT NULL REFERENCES graphs(id) ON DELETE CASCADE,
			name TEXT NOT NULL, tags TEXT NOT NULL DEFAULT '[]'
		);
		CREATE TABLE connectors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			node_id INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
			name TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE edges (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			from_connector_id INTEGER NOT NULL REFERENCES connectors(id) ON DELETE CASCADE,
			to_connector_id INTEGER NOT NULL REFERENCES connectors(id) ON DELETE CASCADE,
			bidirectional INTEGER NOT NULL DEFAULT 0, name TEXT NOT NULL DEFAULT '',
			weight REAL NOT NULL DEFAULT 1.0
		);
		INSERT INTO graphs (name) VALUES ('legacy');
		PRAGMA user_version = 0;
	`)
	if err != nil {
		t.Fatalf("failed to create v0 schema: %v", err)
	}
	db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)

	assert.Contains(t, getTableIndexes(t, s.db, TableEdges), "idx_edges_from")
	assert.Contains(t, getTableColumns(t, s.db, TableCliques), "edge_weight")

	graphs, err := s.ListGraphs(context.Background())
	require.NoError(t, err)
	require.Len(t, graphs, 1)
	assert.Equal(t, "legacy", graphs[0].Name)
}

// Transaction tests

func TestWithTx_PublishesAfterCommit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	sub := s.Feed().Subscribe()
	defer sub.Close()

	err := s.WithTx(ctx, func(tx *Tx) error {
		gid, err := tx.InsertGraph(ctx, model.Graph{Name: "g"})
		if err != nil {
			return err
		}
		// Nothing is visible to subscribers until commit.
		assert.Empty(t, sub.Drain())
		_, err = tx.InsertNode(ctx, model.Node{GraphID: gid, Name: "n"})
		return err
	})
	require.NoError(t, err)

	changes := sub.Drain()
	require.Len(t, changes, 2)
	assert.Equal(t, TableGraphs, changes[0].Table)
	assert.Equal(t, TableNodes, changes[1].Table)
}

func TestWithTx_RollbackPublishesNothing(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	sub := s.Feed().Subscribe()
	defer sub.Close()

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.InsertGraph(ctx, model.Graph{Name: "g"}); err != nil {
			return err
		}
		return boom
	})
	assert.True(t, errors.Is(err, boom))
	assert.Empty(t, sub.Drain())

	graphs, err := s.ListGraphs(ctx)
	require.NoError(t, err)
	assert.Empty(t, graphs)
}

func TestMapConstraint(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.InsertNode(ctx, model.Node{GraphID: 999, Name: "orphan"})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err), "foreign key failure should be invalid: %v", err)

	assert.NoError(t, mapConstraint(nil, "noop"))
}

func TestFeedAccessor(t *testing.T) {
	s := createTestStore(t)
	assert.IsType(t, &live.Feed{}, s.Feed())
}

// Helper functions

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
