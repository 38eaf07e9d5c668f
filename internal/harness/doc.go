// Package harness runs scripted sessions against a fresh GraphWalker
// database and checks what they leave behind.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: connector_cascade
//	description: "Deleting a connector removes its edges"
//	steps:
//	  - op: create_graph
//	    as: g
//	    args: { name: Metro, directed: true, has_connectors: true }
//	  - op: create_node_and_connector
//	    as: a
//	    args: { graph: $g, name: Alpha, connector: out }
//	  - op: delete_connector
//	    args: { id: $a.connector_id }
//	  - op: delete_node
//	    args: { id: 99 }
//	    expect: { case: not_found }
//	assertions:
//	  - type: view
//	    view: unconnected
//	    id: $g
//	    count: 0
//	  - type: change_count
//	    table: edges
//	    op: delete
//	    count: 1
//
// "as" binds the id a step returns; later steps and assertions refer to it
// as "$name". Steps without an expect clause must succeed.
//
// # Assertion Types
//
//   - view: evaluates a named repository view and checks count, expect
//     (subset of a single row), contains (subset of some list element) or
//     missing (no row)
//   - changes_contain: some published change touched table (and op)
//   - change_count: exactly count changes touched table (and op)
//   - integrity: the store's integrity check reports nothing
//
// # Deterministic Testing
//
// Every run uses a private in-memory database, so ids and published
// changes are identical across runs. RunWithGolden compares the trace with
// a goldie snapshot in testdata/golden.
package harness
