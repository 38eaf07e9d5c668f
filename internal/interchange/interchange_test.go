package interchange

import (
	"bytes"
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/model"
	"github.com/AplusKminus/GraphWalker/internal/testutil"
)

func newGolden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestExport_Golden(t *testing.T) {
	r := testutil.NewRepo(t)
	m := testutil.SeedMetro(t, r)

	doc, err := Export(context.Background(), r, m.Graph)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc, FormatJSON))
	newGolden(t).Assert(t, "export_metro", buf.Bytes())
}

func TestMarshalCanonical_Golden(t *testing.T) {
	r := testutil.NewRepo(t)
	m := testutil.SeedMetro(t, r)

	doc, err := Export(context.Background(), r, m.Graph)
	require.NoError(t, err)

	canonical, err := MarshalCanonical(doc)
	require.NoError(t, err)
	newGolden(t).Assert(t, "canonical_metro", canonical)
}

func TestImport_RoundTrip(t *testing.T) {
	r := testutil.NewRepo(t)
	m := testutil.SeedMetro(t, r)
	ctx := context.Background()

	first, err := Export(ctx, r, m.Graph)
	require.NoError(t, err)

	id, err := Import(ctx, r, first)
	require.NoError(t, err)
	assert.NotEqual(t, m.Graph, id)

	second, err := Export(ctx, r, id)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	fp1, err := Fingerprint(first)
	require.NoError(t, err)
	fp2, err := Fingerprint(second)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 64)
}

func TestImport_ThroughEveryFormat(t *testing.T) {
	r := testutil.NewRepo(t)
	m := testutil.SeedMetro(t, r)
	ctx := context.Background()

	doc, err := Export(ctx, r, m.Graph)
	require.NoError(t, err)

	var yamlBuf bytes.Buffer
	require.NoError(t, Encode(&yamlBuf, doc, FormatYAML))

	decoded, err := Decode(yamlBuf.Bytes(), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, doc, decoded)
}

const tinyJSON = `{
  "name": "Tiny",
  "flags": {"directed": true, "has_edge_weights": true},
  "start": "a",
  "nodes": [
    {"key": "a", "name": "A"},
    {"key": "b", "name": "B", "tags": ["t"]}
  ],
  "edges": [{"from": {"node": "a"}, "to": {"node": "b"}, "weight": 2}],
  "cliques": [{"name": "K", "nodes": ["a", "b"]}]
}`

const tinyYAML = `
name: Tiny
flags:
  directed: true
  has_edge_weights: true
start: a
nodes:
  - key: a
    name: A
  - key: b
    name: B
    tags: [t]
edges:
  - from: {node: a}
    to: {node: b}
    weight: 2
cliques:
  - name: K
    nodes: [a, b]
`

const tinyCUE = `
name: "Tiny"
flags: {directed: true, has_edge_weights: true}
start: "a"
nodes: [
	{key: "a", name: "A"},
	{key: "b", name: "B", tags: ["t"]},
]
edges: [{from: {node: "a"}, to: {node: "b"}, weight: 2.0}]
cliques: [{name: "K", nodes: ["a", "b"]}]
`

const tinyHCL = `
name  = "Tiny"
start = "a"

flags {
  directed         = true
  has_edge_weights = true
}

node "a" {
  name = "A"
}

node "b" {
  name = "B"
  tags = ["t"]
}

edge {
  from   = "a"
  to     = "b"
  weight = 2
}

clique "K" {
  nodes = ["a", "b"]
}
`

func TestDecode_FormatsAgree(t *testing.T) {
	want, err := Decode([]byte(tinyJSON), FormatJSON)
	require.NoError(t, err)
	wantFP, err := Fingerprint(want)
	require.NoError(t, err)

	inputs := map[Format]string{
		FormatYAML: tinyYAML,
		FormatCUE:  tinyCUE,
		FormatHCL:  tinyHCL,
	}
	for f, src := range inputs {
		t.Run(string(f), func(t *testing.T) {
			got, err := Decode([]byte(src), f)
			require.NoError(t, err)
			fp, err := Fingerprint(got)
			require.NoError(t, err)
			assert.Equal(t, wantFP, fp)
			assert.Equal(t, model.DocumentVersion, got.Version)
		})
	}
}

func TestDecode_HCLExpressions(t *testing.T) {
	src := `
name = upper("tiny")
node "a" {
  name = format("node-%d", 1)
  tags = concat(["x"], ["y"])
}
clique "K" {
  edge_weight = default_weight * 2
  nodes       = ["a"]
}
`
	doc, err := Decode([]byte(src), FormatHCL)
	require.NoError(t, err)
	assert.Equal(t, "TINY", doc.Name)
	assert.Equal(t, "node-1", doc.Nodes[0].Name)
	assert.Equal(t, []string{"x", "y"}, doc.Nodes[0].Tags)
	require.NotNil(t, doc.Cliques[0].EdgeWeight)
	assert.Equal(t, 2.0, *doc.Cliques[0].EdgeWeight)
}

func TestDecode_DirectedByDefault(t *testing.T) {
	tests := []struct {
		name     string
		format   Format
		src      string
		directed bool
	}{
		{"json no flags", FormatJSON, `{"name":"x","nodes":[]}`, true},
		{"json flags without directed", FormatJSON, `{"name":"x","flags":{"has_connectors":true},"nodes":[]}`, true},
		{"json undirected", FormatJSON, `{"name":"x","flags":{"directed":false},"nodes":[]}`, false},
		{"yaml no flags", FormatYAML, "name: x\nnodes: []\n", true},
		{"yaml undirected", FormatYAML, "name: x\nflags: {directed: false}\nnodes: []\n", false},
		{"cue no flags", FormatCUE, `name: "x", nodes: []`, true},
		{"cue flags without directed", FormatCUE, `name: "x", flags: {has_connectors: true}, nodes: []`, true},
		{"cue undirected", FormatCUE, `name: "x", flags: {directed: false}, nodes: []`, false},
		{"hcl no flags", FormatHCL, `name = "x"`, true},
		{"hcl flags without directed", FormatHCL, "name = \"x\"\nflags {\n  has_connectors = true\n}\n", true},
		{"hcl undirected", FormatHCL, "name = \"x\"\nflags {\n  directed = false\n}\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Decode([]byte(tt.src), tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.directed, doc.Flags.Directed)
		})
	}
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		src    string
	}{
		{"json unknown field", FormatJSON, `{"name":"x","nodes":[],"colour":"red"}`},
		{"json missing name", FormatJSON, `{"nodes":[]}`},
		{"json wrong type", FormatJSON, `{"name":"x","nodes":[{"key":"a","name":3}]}`},
		{"json not json", FormatJSON, `{"name":`},
		{"json wrong version", FormatJSON, `{"version":"9","name":"x","nodes":[]}`},
		{"yaml unknown field", FormatYAML, "name: x\nnodes: []\nextra: 1\n"},
		{"yaml broken", FormatYAML, "name: [x\n"},
		{"cue unknown field", FormatCUE, `name: "x", nodes: [], extra: 1`},
		{"cue empty name", FormatCUE, `name: "", nodes: []`},
		{"hcl missing name", FormatHCL, `start = "a"`},
		{"hcl unknown block", FormatHCL, "name = \"x\"\nwidget {}\n"},
		{"duplicate key", FormatJSON, `{"name":"x","nodes":[{"key":"a","name":"A"},{"key":"a","name":"B"}]}`},
		{"unknown start", FormatJSON, `{"name":"x","start":"z","nodes":[]}`},
		{"unknown edge node", FormatJSON, `{"name":"x","nodes":[{"key":"a","name":"A"}],"edges":[{"from":{"node":"a"},"to":{"node":"z"}}]}`},
		{"unknown clique member", FormatJSON, `{"name":"x","nodes":[],"cliques":[{"name":"K","nodes":["z"]}]}`},
		{"duplicate connector", FormatJSON, `{"name":"x","nodes":[{"key":"a","name":"A","connectors":["p","p"]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.src), tt.format)
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err), "want ErrInvalid, got %v", err)
		})
	}
}

func TestImport_UnknownConnectorRollsBack(t *testing.T) {
	r := testutil.NewRepo(t)
	ctx := context.Background()

	doc, err := Decode([]byte(`{
		"name": "Broken",
		"flags": {"has_connectors": true},
		"nodes": [{"key": "a", "name": "A", "connectors": ["out"]}, {"key": "b", "name": "B"}],
		"edges": [{"from": {"node": "a", "connector": "out"}, "to": {"node": "b", "connector": "missing"}}]
	}`), FormatJSON)
	require.NoError(t, err)

	_, err = Import(ctx, r, doc)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	graphs, err := r.Graphs().Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, graphs)
}

func TestImport_DefaultConnectors(t *testing.T) {
	r := testutil.NewRepo(t)
	ctx := context.Background()

	doc, err := Decode([]byte(tinyJSON), FormatJSON)
	require.NoError(t, err)
	doc.Edges = append(doc.Edges, EdgeDoc{From: Endpoint{Node: "b"}, To: Endpoint{Node: "a"}})

	id, err := Import(ctx, r, doc)
	require.NoError(t, err)

	conns, err := r.GraphConnectors(id).Get(ctx)
	require.NoError(t, err)
	require.Len(t, conns, 2, "one default connector per node, reused by the second edge")
	for _, c := range conns {
		assert.True(t, c.IsDefault())
	}

	edges, err := r.GraphEdges(id).Get(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, 2.0, edges[0].Weight)
	assert.Equal(t, model.DefaultWeight, edges[1].Weight)

	fg, err := r.FullGraph(id).Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, fg.StartingNode)
	assert.Equal(t, "A", fg.StartingNode.Name)

	cliques, err := r.CliquesWithNodes(id).Get(ctx)
	require.NoError(t, err)
	require.Len(t, cliques, 1)
	assert.Len(t, cliques[0].Nodes, 2)
	assert.Equal(t, model.DefaultWeight, cliques[0].EdgeWeight)
}

func TestImport_EmptyConnectorNeverBindsNamedConnector(t *testing.T) {
	ctx := context.Background()

	t.Run("graph with connectors", func(t *testing.T) {
		r := testutil.NewRepo(t)
		doc, err := Decode([]byte(`{
			"name": "Named",
			"flags": {"has_connectors": true},
			"nodes": [{"key": "a", "name": "A", "connectors": ["out"]}, {"key": "b", "name": "B", "connectors": ["in"]}],
			"edges": [{"from": {"node": "a"}, "to": {"node": "b", "connector": "in"}}]
		}`), FormatJSON)
		require.NoError(t, err)

		_, err = Import(ctx, r, doc)
		require.Error(t, err)
		assert.True(t, errors.IsInvalid(err))

		graphs, err := r.Graphs().Get(ctx)
		require.NoError(t, err)
		assert.Empty(t, graphs)
	})

	t.Run("listed default connector", func(t *testing.T) {
		r := testutil.NewRepo(t)
		doc, err := Decode([]byte(`{
			"name": "Listed",
			"flags": {"has_connectors": true},
			"nodes": [{"key": "a", "name": "A", "connectors": ["out", ""]}, {"key": "b", "name": "B", "connectors": ["in"]}],
			"edges": [{"from": {"node": "a"}, "to": {"node": "b", "connector": "in"}}]
		}`), FormatJSON)
		require.NoError(t, err)

		id, err := Import(ctx, r, doc)
		require.NoError(t, err)
		edges, err := r.GraphEdges(id).Get(ctx)
		require.NoError(t, err)
		require.Len(t, edges, 1)
		from, err := r.Connector(edges[0].FromConnectorID).Get(ctx)
		require.NoError(t, err)
		require.NotNil(t, from)
		assert.True(t, from.IsDefault())
	})

	t.Run("graph without connectors", func(t *testing.T) {
		r := testutil.NewRepo(t)
		doc, err := Decode([]byte(`{
			"name": "Plain",
			"nodes": [{"key": "a", "name": "A", "connectors": ["spare"]}, {"key": "b", "name": "B"}],
			"edges": [{"from": {"node": "a"}, "to": {"node": "b"}}]
		}`), FormatJSON)
		require.NoError(t, err)

		id, err := Import(ctx, r, doc)
		require.NoError(t, err)
		edges, err := r.GraphEdges(id).Get(ctx)
		require.NoError(t, err)
		require.Len(t, edges, 1)
		from, err := r.Connector(edges[0].FromConnectorID).Get(ctx)
		require.NoError(t, err)
		require.NotNil(t, from)
		assert.True(t, from.IsDefault(), "the edge uses a new default connector, not \"spare\"")
	})
}

func TestImport_AppliesGraphFlags(t *testing.T) {
	r := testutil.NewRepo(t)
	ctx := context.Background()

	doc := &Document{
		Name:  "Plain",
		Nodes: []NodeDoc{{Key: "a", Name: "A"}, {Key: "b", Name: "B"}},
		Edges: []EdgeDoc{{From: Endpoint{Node: "a"}, To: Endpoint{Node: "b"}, Name: "ignored", Weight: weightPtr(7)}},
	}
	id, err := Import(ctx, r, doc)
	require.NoError(t, err)

	edges, err := r.GraphEdges(id).Get(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Empty(t, edges[0].Name)
	assert.Equal(t, model.DefaultWeight, edges[0].Weight)
	assert.True(t, edges[0].Bidirectional)
}

func TestExport_DuplicateConnectorNames(t *testing.T) {
	r := testutil.NewRepo(t)
	ctx := context.Background()
	m := testutil.SeedMetro(t, r)

	_, err := r.AddConnector(ctx, m.Beta, "in")
	require.NoError(t, err)

	_, err = Export(ctx, r, m.Graph)
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
}

func TestExport_MissingGraph(t *testing.T) {
	r := testutil.NewRepo(t)
	_, err := Export(context.Background(), r, 42)
	assert.True(t, errors.IsNotFound(err))
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"json": FormatJSON, ".yml": FormatYAML, "YAML": FormatYAML, "cue": FormatCUE, ".hcl": FormatHCL} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("xml")
	assert.True(t, errors.IsInvalid(err))

	f, err := FormatFromPath("/tmp/graph.cue")
	require.NoError(t, err)
	assert.Equal(t, FormatCUE, f)

	assert.True(t, FormatYAML.CanEncode())
	assert.False(t, FormatHCL.CanEncode())
	assert.Error(t, Encode(&bytes.Buffer{}, &Document{}, FormatHCL))
}
