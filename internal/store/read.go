package store

import (
	"context"
	"database/sql"

	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/model"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const (
	graphColumns     = `g.id, g.name, g.starting_node_id, g.is_directed, g.has_edge_weights, g.has_edge_labels, g.has_connectors`
	nodeColumns      = `n.id, n.graph_id, n.name, n.tags`
	connectorColumns = `c.id, c.node_id, c.name`
	edgeColumns      = `e.id, e.from_connector_id, e.to_connector_id, e.bidirectional, e.name, e.weight`
	cliqueColumns    = `q.id, q.graph_id, q.name, q.edge_weight`
)

func scanGraph(r rowScanner) (model.Graph, error) {
	var g model.Graph
	var start sql.NullInt64
	err := r.Scan(&g.ID, &g.Name, &start, &g.Directed, &g.HasEdgeWeights, &g.HasEdgeLabels, &g.HasConnectors)
	if err != nil {
		return g, err
	}
	g.StartingNodeID = int64Ptr(start)
	return g, nil
}

func scanNode(r rowScanner) (model.Node, error) {
	var n model.Node
	var tags string
	if err := r.Scan(&n.ID, &n.GraphID, &n.Name, &tags); err != nil {
		return n, err
	}
	parsed, err := unmarshalTags(tags)
	if err != nil {
		return n, errors.Wrapf(err, "node %d", n.ID)
	}
	n.Tags = parsed
	return n, nil
}

func scanConnector(r rowScanner) (model.Connector, error) {
	var c model.Connector
	err := r.Scan(&c.ID, &c.NodeID, &c.Name)
	return c, err
}

func scanEdge(r rowScanner) (model.Edge, error) {
	var e model.Edge
	err := r.Scan(&e.ID, &e.FromConnectorID, &e.ToConnectorID, &e.Bidirectional, &e.Name, &e.Weight)
	return e, err
}

func scanClique(r rowScanner) (model.Clique, error) {
	var c model.Clique
	err := r.Scan(&c.ID, &c.GraphID, &c.Name, &c.EdgeWeight)
	return c, err
}

// queryAll runs query and scans every row with scan. The result is never nil.
func queryAll[T any](ctx context.Context, q querier, what string, scan func(rowScanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", what)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, errors.Wrapf(err, "scan %s", what)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "iterate %s", what)
	}
	return out, nil
}

// GetGraph returns the graph with the given id.
func (q *Queries) GetGraph(ctx context.Context, id int64) (model.Graph, error) {
	g, err := scanGraph(q.q.QueryRowContext(ctx, `SELECT `+graphColumns+` FROM graphs g WHERE g.id = ?`, id))
	if err != nil {
		return g, wrapNoRows(err, "graph", id)
	}
	return g, nil
}

// ListGraphs returns every graph ordered by id.
func (q *Queries) ListGraphs(ctx context.Context) ([]model.Graph, error) {
	return queryAll(ctx, q.q, "graphs", scanGraph, `SELECT `+graphColumns+` FROM graphs g ORDER BY g.id`)
}

// GetNode returns the node with the given id.
func (q *Queries) GetNode(ctx context.Context, id int64) (model.Node, error) {
	n, err := scanNode(q.q.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes n WHERE n.id = ?`, id))
	if err != nil {
		return n, wrapNoRows(err, "node", id)
	}
	return n, nil
}

// ListNodes returns every node of every graph.
func (q *Queries) ListNodes(ctx context.Context) ([]model.Node, error) {
	return queryAll(ctx, q.q, "nodes", scanNode, `SELECT `+nodeColumns+` FROM nodes n ORDER BY n.id`)
}

// ListNodesByGraph returns the nodes of one graph.
func (q *Queries) ListNodesByGraph(ctx context.Context, graphID int64) ([]model.Node, error) {
	return queryAll(ctx, q.q, "nodes", scanNode,
		`SELECT `+nodeColumns+` FROM nodes n WHERE n.graph_id = ? ORDER BY n.id`, graphID)
}

// ListNodesByIDs returns the nodes among ids that exist. Unknown ids are skipped.
func (q *Queries) ListNodesByIDs(ctx context.Context, ids []int64) ([]model.Node, error) {
	if len(ids) == 0 {
		return []model.Node{}, nil
	}
	return queryAll(ctx, q.q, "nodes", scanNode,
		`SELECT `+nodeColumns+` FROM nodes n WHERE n.id IN (`+placeholders(len(ids))+`) ORDER BY n.id`,
		int64Args(ids)...)
}

// GetConnector returns the connector with the given id.
func (q *Queries) GetConnector(ctx context.Context, id int64) (model.Connector, error) {
	c, err := scanConnector(q.q.QueryRowContext(ctx, `SELECT `+connectorColumns+` FROM connectors c WHERE c.id = ?`, id))
	if err != nil {
		return c, wrapNoRows(err, "connector", id)
	}
	return c, nil
}

// ListConnectors returns every connector.
func (q *Queries) ListConnectors(ctx context.Context) ([]model.Connector, error) {
	return queryAll(ctx, q.q, "connectors", scanConnector,
		`SELECT `+connectorColumns+` FROM connectors c ORDER BY c.id`)
}

// ListConnectorsByNode returns the connectors of one node.
func (q *Queries) ListConnectorsByNode(ctx context.Context, nodeID int64) ([]model.Connector, error) {
	return queryAll(ctx, q.q, "connectors", scanConnector,
		`SELECT `+connectorColumns+` FROM connectors c WHERE c.node_id = ? ORDER BY c.id`, nodeID)
}

// ListConnectorsByGraph returns the connectors of every node in a graph.
func (q *Queries) ListConnectorsByGraph(ctx context.Context, graphID int64) ([]model.Connector, error) {
	return queryAll(ctx, q.q, "connectors", scanConnector, `
		SELECT `+connectorColumns+`
		FROM connectors c
		JOIN nodes n ON n.id = c.node_id
		WHERE n.graph_id = ?
		ORDER BY c.id
	`, graphID)
}

// GetEdge returns the edge with the given id.
func (q *Queries) GetEdge(ctx context.Context, id int64) (model.Edge, error) {
	e, err := scanEdge(q.q.QueryRowContext(ctx, `SELECT `+edgeColumns+` FROM edges e WHERE e.id = ?`, id))
	if err != nil {
		return e, wrapNoRows(err, "edge", id)
	}
	return e, nil
}

// ListEdges returns every edge.
func (q *Queries) ListEdges(ctx context.Context) ([]model.Edge, error) {
	return queryAll(ctx, q.q, "edges", scanEdge, `SELECT `+edgeColumns+` FROM edges e ORDER BY e.id`)
}

// ListEdgesByConnector returns the edges starting or ending at a connector.
func (q *Queries) ListEdgesByConnector(ctx context.Context, connectorID int64) ([]model.Edge, error) {
	return queryAll(ctx, q.q, "edges", scanEdge, `
		SELECT `+edgeColumns+`
		FROM edges e
		WHERE e.from_connector_id = ? OR e.to_connector_id = ?
		ORDER BY e.id
	`, connectorID, connectorID)
}

// ListEdgesByGraph returns the edges with at least one endpoint in a graph.
func (q *Queries) ListEdgesByGraph(ctx context.Context, graphID int64) ([]model.Edge, error) {
	return queryAll(ctx, q.q, "edges", scanEdge, `
		SELECT `+edgeColumns+`
		FROM edges e
		WHERE e.from_connector_id IN (
			SELECT c.id FROM connectors c JOIN nodes n ON n.id = c.node_id WHERE n.graph_id = ?
		) OR e.to_connector_id IN (
			SELECT c.id FROM connectors c JOIN nodes n ON n.id = c.node_id WHERE n.graph_id = ?
		)
		ORDER BY e.id
	`, graphID, graphID)
}

// GetClique returns the clique with the given id.
func (q *Queries) GetClique(ctx context.Context, id int64) (model.Clique, error) {
	c, err := scanClique(q.q.QueryRowContext(ctx, `SELECT `+cliqueColumns+` FROM cliques q WHERE q.id = ?`, id))
	if err != nil {
		return c, wrapNoRows(err, "clique", id)
	}
	return c, nil
}

// ListCliquesByGraph returns the cliques of a graph ordered by name, then id.
func (q *Queries) ListCliquesByGraph(ctx context.Context, graphID int64) ([]model.Clique, error) {
	return queryAll(ctx, q.q, "cliques", scanClique,
		`SELECT `+cliqueColumns+` FROM cliques q WHERE q.graph_id = ? ORDER BY q.name, q.id`, graphID)
}

// ListCliqueMemberships returns the membership rows of every clique in a graph.
func (q *Queries) ListCliqueMemberships(ctx context.Context, graphID int64) ([]model.CliqueMembership, error) {
	return queryAll(ctx, q.q, "clique members", func(r rowScanner) (model.CliqueMembership, error) {
		var m model.CliqueMembership
		err := r.Scan(&m.CliqueID, &m.NodeID)
		return m, err
	}, `
		SELECT cn.clique_id, cn.node_id
		FROM clique_nodes cn
		JOIN cliques q ON q.id = cn.clique_id
		WHERE q.graph_id = ?
		ORDER BY cn.clique_id, cn.node_id
	`, graphID)
}

// ListCliqueNodes returns the member nodes of a clique.
func (q *Queries) ListCliqueNodes(ctx context.Context, cliqueID int64) ([]model.Node, error) {
	return queryAll(ctx, q.q, "clique nodes", scanNode, `
		SELECT `+nodeColumns+`
		FROM nodes n
		JOIN clique_nodes cn ON cn.node_id = n.id
		WHERE cn.clique_id = ?
		ORDER BY n.id
	`, cliqueID)
}

// ListNodeCliques returns the cliques a node belongs to, ordered by name, then id.
func (q *Queries) ListNodeCliques(ctx context.Context, nodeID int64) ([]model.Clique, error) {
	return queryAll(ctx, q.q, "node cliques", scanClique, `
		SELECT `+cliqueColumns+`
		FROM cliques q
		JOIN clique_nodes cn ON cn.clique_id = q.id
		WHERE cn.node_id = ?
		ORDER BY q.name, q.id
	`, nodeID)
}
