package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AplusKminus/GraphWalker/internal/live"
	"github.com/AplusKminus/GraphWalker/internal/model"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// fixture is a small graph: a -(out)-> b, plus a connector on b without edges.
type fixture struct {
	graph          int64
	a, b           int64
	aOut, bIn, bIO int64
	edge           int64
}

func createFixture(t *testing.T, s *Store) fixture {
	t.Helper()
	ctx := context.Background()
	var f fixture
	var err error

	flags := model.DefaultFlags()
	flags.HasConnectors = true
	f.graph, err = s.InsertGraph(ctx, model.Graph{Name: "Metro", GraphFlags: flags})
	require.NoError(t, err)

	f.a, err = s.InsertNode(ctx, model.Node{GraphID: f.graph, Name: "A", Tags: []string{"start"}})
	require.NoError(t, err)
	f.b, err = s.InsertNode(ctx, model.Node{GraphID: f.graph, Name: "B"})
	require.NoError(t, err)

	f.aOut, err = s.InsertConnector(ctx, model.Connector{NodeID: f.a, Name: "out"})
	require.NoError(t, err)
	f.bIn, err = s.InsertConnector(ctx, model.Connector{NodeID: f.b, Name: "in"})
	require.NoError(t, err)
	f.bIO, err = s.InsertConnector(ctx, model.Connector{NodeID: f.b, Name: "io"})
	require.NoError(t, err)

	f.edge, err = s.InsertEdge(ctx, model.Edge{FromConnectorID: f.aOut, ToConnectorID: f.bIn, Weight: model.DefaultWeight})
	require.NoError(t, err)
	return f
}

// tablesOf returns the distinct tables of changes in first-seen order.
func tablesOf(changes []live.Change) []string {
	var out []string
	seen := map[string]bool{}
	for _, c := range changes {
		if !seen[c.Table] {
			seen[c.Table] = true
			out = append(out, c.Table)
		}
	}
	return out
}
