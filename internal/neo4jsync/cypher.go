// Package neo4jsync mirrors GraphWalker documents into Neo4j.
//
// Every pushed element carries a graph property holding the push key, so a
// push first removes what an earlier push under the same key left behind.
// Statement building is pure; only Client talks to a server.
package neo4jsync

import (
	"github.com/AplusKminus/GraphWalker/internal/interchange"
	"github.com/AplusKminus/GraphWalker/internal/model"
)

// Statement is one parameterized Cypher query.
type Statement struct {
	Query  string
	Params map[string]any
}

const (
	resetQuery = `MATCH (x) WHERE (x:Graph OR x:Node OR x:Clique) AND x.graph = $graph DETACH DELETE x`

	graphQuery = `MERGE (g:Graph {graph: $graph})
SET g.name = $name,
	g.directed = $directed,
	g.has_edge_weights = $has_edge_weights,
	g.has_edge_labels = $has_edge_labels,
	g.has_connectors = $has_connectors,
	g.fingerprint = $fingerprint`

	nodesQuery = `MATCH (g:Graph {graph: $graph})
UNWIND $nodes AS n
MERGE (x:Node {graph: $graph, key: n.key})
SET x.name = n.name, x.tags = n.tags, x.connectors = n.connectors
MERGE (g)-[:HAS]->(x)`

	edgesQuery = `UNWIND $edges AS e
MATCH (a:Node {graph: $graph, key: e.from}), (b:Node {graph: $graph, key: e.to})
CREATE (a)-[:CONNECTS {
	name: e.name,
	weight: e.weight,
	from_connector: e.from_connector,
	to_connector: e.to_connector,
	bidirectional: e.bidirectional
}]->(b)`

	cliquesQuery = `MATCH (g:Graph {graph: $graph})
UNWIND $cliques AS c
CREATE (q:Clique {graph: $graph, name: c.name, edge_weight: c.edge_weight})
MERGE (g)-[:HAS]->(q)
WITH q, c
UNWIND c.nodes AS k
MATCH (n:Node {graph: $graph, key: k})
MERGE (q)-[:CONTAINS]->(n)`

	startQuery = `MATCH (g:Graph {graph: $graph}), (n:Node {graph: $graph, key: $start})
MERGE (g)-[:STARTS_AT]->(n)`
)

// ResetStatement removes everything pushed under key.
func ResetStatement(key string) Statement {
	return Statement{Query: resetQuery, Params: map[string]any{"graph": key}}
}

// PushStatements replaces whatever was pushed under key with doc.
// Statements for empty sections are left out.
func PushStatements(key string, doc *interchange.Document, fingerprint string) []Statement {
	stmts := []Statement{
		ResetStatement(key),
		{Query: graphQuery, Params: map[string]any{
			"graph":            key,
			"name":             doc.Name,
			"directed":         doc.Flags.Directed,
			"has_edge_weights": doc.Flags.HasEdgeWeights,
			"has_edge_labels":  doc.Flags.HasEdgeLabels,
			"has_connectors":   doc.Flags.HasConnectors,
			"fingerprint":      fingerprint,
		}},
	}

	if len(doc.Nodes) > 0 {
		nodes := make([]any, 0, len(doc.Nodes))
		for _, n := range doc.Nodes {
			nodes = append(nodes, map[string]any{
				"key":        n.Key,
				"name":       n.Name,
				"tags":       stringList(n.Tags),
				"connectors": stringList(n.Connectors),
			})
		}
		stmts = append(stmts, Statement{Query: nodesQuery, Params: map[string]any{"graph": key, "nodes": nodes}})
	}

	if len(doc.Edges) > 0 {
		edges := make([]any, 0, len(doc.Edges))
		for _, e := range doc.Edges {
			edges = append(edges, map[string]any{
				"from":           e.From.Node,
				"to":             e.To.Node,
				"from_connector": e.From.Connector,
				"to_connector":   e.To.Connector,
				"name":           e.Name,
				"weight":         weight(e.Weight),
				"bidirectional":  e.Bidirectional,
			})
		}
		stmts = append(stmts, Statement{Query: edgesQuery, Params: map[string]any{"graph": key, "edges": edges}})
	}

	if len(doc.Cliques) > 0 {
		cliques := make([]any, 0, len(doc.Cliques))
		for _, c := range doc.Cliques {
			cliques = append(cliques, map[string]any{
				"name":        c.Name,
				"edge_weight": weight(c.EdgeWeight),
				"nodes":       stringList(c.Nodes),
			})
		}
		stmts = append(stmts, Statement{Query: cliquesQuery, Params: map[string]any{"graph": key, "cliques": cliques}})
	}

	if doc.Start != "" {
		stmts = append(stmts, Statement{Query: startQuery, Params: map[string]any{"graph": key, "start": doc.Start}})
	}
	return stmts
}

// stringList converts to the []any the driver packs as a Cypher list.
func stringList(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func weight(w *float64) float64 {
	if w == nil {
		return model.DefaultWeight
	}
	return *w
}
