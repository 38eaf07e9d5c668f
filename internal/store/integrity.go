package store

import (
	"context"

	"github.com/AplusKminus/GraphWalker/internal/errors"
)

// Problem kinds reported by CheckIntegrity.
const (
	ProblemCrossGraphEdge    = "cross_graph_edge"
	ProblemForeignCliqueNode = "foreign_clique_member"
	ProblemForeignStartNode  = "foreign_starting_node"
)

// Problem is one row that breaks a rule the schema cannot express.
type Problem struct {
	Kind    string `json:"kind"`
	GraphID int64  `json:"graph_id"`
	ID      int64  `json:"id"`
	Detail  string `json:"detail"`
}

// CheckIntegrity finds rows whose references cross graph boundaries.
// Foreign keys guarantee references exist; they cannot guarantee that:
//   - both endpoints of an edge belong to nodes of the same graph
//   - a clique only contains nodes of its own graph
//   - a graph's starting node belongs to that graph
//
// The repository never creates such rows, but databases written by other
// tools may contain them. Results are ordered by kind, then id.
func (q *Queries) CheckIntegrity(ctx context.Context) ([]Problem, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT kind, graph_id, id, detail FROM (
			-- Edges joining nodes of two different graphs
			SELECT 'cross_graph_edge' AS kind, nf.graph_id AS graph_id, e.id AS id,
			       'to node ' || nt.id || ' in graph ' || nt.graph_id AS detail
			FROM edges e
			JOIN connectors cf ON cf.id = e.from_connector_id
			JOIN nodes nf ON nf.id = cf.node_id
			JOIN connectors ct ON ct.id = e.to_connector_id
			JOIN nodes nt ON nt.id = ct.node_id
			WHERE nf.graph_id <> nt.graph_id

			UNION ALL

			-- Clique members from another graph
			SELECT 'foreign_clique_member', q.graph_id, q.id,
			       'node ' || n.id || ' in graph ' || n.graph_id
			FROM clique_nodes cn
			JOIN cliques q ON q.id = cn.clique_id
			JOIN nodes n ON n.id = cn.node_id
			WHERE q.graph_id <> n.graph_id

			UNION ALL

			-- Starting nodes from another graph
			SELECT 'foreign_starting_node', g.id, g.id,
			       'node ' || n.id || ' in graph ' || n.graph_id
			FROM graphs g
			JOIN nodes n ON n.id = g.starting_node_id
			WHERE g.id <> n.graph_id
		)
		ORDER BY kind, id
	`)
	if err != nil {
		return nil, errors.Wrap(err, "check integrity")
	}
	defer rows.Close()

	problems := []Problem{}
	for rows.Next() {
		var p Problem
		if err := rows.Scan(&p.Kind, &p.GraphID, &p.ID, &p.Detail); err != nil {
			return nil, errors.Wrap(err, "scan problem")
		}
		problems = append(problems, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate problems")
	}
	return problems, nil
}
