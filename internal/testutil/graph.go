package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AplusKminus/GraphWalker/internal/model"
	"github.com/AplusKminus/GraphWalker/internal/repository"
	"github.com/AplusKminus/GraphWalker/internal/store"
)

// NewRepo opens a repository over a fresh SQLite file in t's temp dir.
func NewRepo(t *testing.T) *repository.Repository {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "graphwalker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return repository.New(st)
}

// Metro holds the ids of the graph SeedMetro creates.
//
//	Alpha[out] --"Line 1" 2.5--> [in]Beta[out] <--> [in]Gamma
//
// Alpha is the starting node; clique "Core" (weight 3) holds Alpha and Gamma.
type Metro struct {
	Graph                              int64
	Alpha, Beta, Gamma                 int64
	AlphaOut, BetaIn, BetaOut, GammaIn int64
	Line1, Link                        int64
	Core                               int64
}

// MetroFlags turns every feature on.
func MetroFlags() model.GraphFlags {
	return model.GraphFlags{Directed: true, HasEdgeWeights: true, HasEdgeLabels: true, HasConnectors: true}
}

// SeedMetro creates the Metro graph through the repository.
func SeedMetro(t *testing.T, r *repository.Repository) Metro {
	t.Helper()
	ctx := context.Background()
	var m Metro
	var err error

	m.Graph, err = r.CreateGraph(ctx, "Metro", MetroFlags())
	require.NoError(t, err)

	m.Alpha, err = r.AddNode(ctx, m.Graph, "Alpha", "start")
	require.NoError(t, err)
	m.Beta, err = r.AddNode(ctx, m.Graph, "Beta")
	require.NoError(t, err)
	m.Gamma, err = r.AddNode(ctx, m.Graph, "Gamma", "x<y", "café")
	require.NoError(t, err)

	m.AlphaOut, err = r.AddConnector(ctx, m.Alpha, "out")
	require.NoError(t, err)
	m.BetaIn, err = r.AddConnector(ctx, m.Beta, "in")
	require.NoError(t, err)
	m.BetaOut, err = r.AddConnector(ctx, m.Beta, "out")
	require.NoError(t, err)
	m.GammaIn, err = r.AddConnector(ctx, m.Gamma, "in")
	require.NoError(t, err)

	m.Line1, err = r.CreateEdge(ctx, model.Edge{FromConnectorID: m.AlphaOut, ToConnectorID: m.BetaIn, Name: "Line 1", Weight: 2.5})
	require.NoError(t, err)
	m.Link, err = r.CreateEdge(ctx, model.Edge{FromConnectorID: m.BetaOut, ToConnectorID: m.GammaIn, Weight: 1, Bidirectional: true})
	require.NoError(t, err)

	m.Core, err = r.CreateClique(ctx, m.Graph, "Core", 3)
	require.NoError(t, err)
	require.NoError(t, r.AddNodeToClique(ctx, m.Core, m.Alpha))
	require.NoError(t, r.AddNodeToClique(ctx, m.Core, m.Gamma))

	require.NoError(t, r.SetStartingNode(ctx, m.Graph, &m.Alpha))
	return m
}
