package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AplusKminus/GraphWalker/internal/live"
)

func mustParse(t *testing.T, doc string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(doc))
	require.NoError(t, err)
	return s
}

func TestRun_BindsAndResolvesRefs(t *testing.T) {
	s := mustParse(t, `
name: refs
description: "ids flow between steps"
steps:
  - op: create_graph
    as: g
    args: { name: Plain }
  - op: add_node
    as: a
    args: { graph: $g, name: A }
  - op: add_node
    as: b
    args: { graph: $g, name: B }
  - op: connect_nodes
    as: e
    args: { from: $a, to: $b, name: ignored }
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)

	assert.Equal(t, map[string]int64{"g": 1, "a": 1, "b": 2, "e": 1}, result.Refs)
	require.Len(t, result.Trace, 4)
	assert.Equal(t, int64(1), result.Trace[1].Args["graph"])

	// connect_nodes creates both default connectors and the edge in one
	// transaction.
	assert.Equal(t, []live.Change{
		{Table: "connectors", Op: live.OpInsert, ID: 1},
		{Table: "connectors", Op: live.OpInsert, ID: 2},
		{Table: "edges", Op: live.OpInsert, ID: 1},
	}, result.Trace[3].Changes)
}

func TestRun_SecondaryRefs(t *testing.T) {
	s := mustParse(t, `
name: secondary
description: "connector ids are bound as name.connector_id"
steps:
  - op: create_graph
    as: g
    args: { name: Metro, has_connectors: true }
  - op: create_node_and_connector
    as: a
    args: { graph: $g, name: A, connector: out }
  - op: rename_connector
    args: { id: $a.connector_id, name: east }
assertions:
  - type: view
    view: connector
    id: $a.connector_id
    expect: { name: east, node_id: 1 }
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	assert.Equal(t, int64(1), result.Refs["a.connector_id"])
}

func TestRun_ExpectCases(t *testing.T) {
	s := mustParse(t, `
name: cases
description: "error kinds map to cases"
steps:
  - op: create_graph
    args: { name: "   " }
    expect: { case: invalid }
  - op: rename_graph
    args: { id: 42, name: Ghost }
    expect: { case: not_found }
  - op: create_graph
    as: g
    args: { name: Real }
  - op: add_node
    as: a
    args: { graph: $g, name: A, tags: [x] }
  - op: add_tag
    args: { node: $a, tag: x }
    expect: { case: ok, result: { changed: false } }
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)

	assert.Equal(t, CaseInvalid, result.Trace[0].Case)
	assert.NotEmpty(t, result.Trace[0].Error)
	assert.Nil(t, result.Trace[0].Output)
	assert.Empty(t, result.Trace[0].Changes)
	assert.Equal(t, CaseNotFound, result.Trace[1].Case)
}

func TestRun_UnexpectedOutcomeFails(t *testing.T) {
	s := mustParse(t, `
name: mismatch
description: "expectations that do not hold are reported"
steps:
  - op: delete_graph
    args: { id: 7 }
  - op: create_graph
    as: g
    args: { name: G }
  - op: create_clique
    as: c
    args: { graph: $g, name: C }
  - op: clear_clique
    args: { clique: $c }
    expect: { case: ok, result: { removed: 3 } }
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "expected case ok, got not_found")
	assert.Contains(t, result.Errors[1], "expected result")
}

func TestRun_UnboundRefIsAnError(t *testing.T) {
	s := mustParse(t, `
name: unbound
description: "typos in refs abort the run"
steps:
  - op: add_node
    args: { graph: $nope, name: A }
`)
	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "$nope is not bound")
}

func TestRun_ArgTypeMismatchIsAnError(t *testing.T) {
	s := mustParse(t, `
name: types
description: "wrong argument types abort the run"
steps:
  - op: create_graph
    args: { name: G, directed: "yes" }
`)
	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `arg "directed"`)
}

func TestRun_FailedStepDoesNotBind(t *testing.T) {
	s := mustParse(t, `
name: nobind
description: "a failed step binds nothing"
steps:
  - op: create_graph
    as: g
    args: { name: "" }
    expect: { case: invalid }
  - op: add_node
    args: { graph: $g, name: A }
`)
	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "$g is not bound")
}

func TestRun_UpdateEdgeKeepsUnsetFields(t *testing.T) {
	s := mustParse(t, `
name: update_edge
description: "update_edge overlays only the given attributes"
steps:
  - op: create_graph
    as: g
    args: { name: W, directed: true, has_edge_weights: true, has_edge_labels: true, has_connectors: true }
  - op: create_node_and_connector
    as: a
    args: { graph: $g, name: A, connector: out }
  - op: create_node_and_connector
    as: b
    args: { graph: $g, name: B, connector: in }
  - op: create_edge
    as: e
    args: { from: $a.connector_id, to: $b.connector_id, name: Line, weight: 2 }
  - op: update_edge
    args: { id: $e, weight: 5.5 }
  - op: update_edge
    args: { id: 99, weight: 1 }
    expect: { case: not_found }
assertions:
  - type: view
    view: edge
    id: $e
    expect: { name: Line, weight: 5.5, from_connector_id: 1, to_connector_id: 2 }
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_ImportAndExport(t *testing.T) {
	s := mustParse(t, `
name: interchange
description: "documents can seed a scenario"
steps:
  - op: import
    as: g
    args:
      format: yaml
      document: |
        version: "1"
        name: Loop
        nodes:
          - { key: a, name: A }
          - { key: b, name: B }
        edges:
          - { from: { node: a }, to: { node: b } }
  - op: export
    args: { graph: $g }
    expect: { case: ok, result: { nodes: 2, edges: 1, cliques: 0 } }
assertions:
  - type: view
    view: full_graph
    id: $g
    expect: { name: Loop }
  - type: view
    view: graph_edges
    id: $g
    count: 1
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	assert.Len(t, result.Trace[1].Output["fingerprint"], 64)
}
