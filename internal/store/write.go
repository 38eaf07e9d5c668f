package store

import (
	"context"

	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/live"
	"github.com/AplusKminus/GraphWalker/internal/model"
)

// InsertGraph inserts g and returns its new id. g.ID is ignored.
func (q *Queries) InsertGraph(ctx context.Context, g model.Graph) (int64, error) {
	id, err := q.insert(ctx, "insert graph", `
		INSERT INTO graphs (name, starting_node_id, is_directed, has_edge_weights, has_edge_labels, has_connectors)
		VALUES (?, ?, ?, ?, ?, ?)
	`, g.Name, nullInt64(g.StartingNodeID), g.Directed, g.HasEdgeWeights, g.HasEdgeLabels, g.HasConnectors)
	if err != nil {
		return 0, err
	}
	q.changed(TableGraphs, live.OpInsert, id)
	return id, nil
}

// UpdateGraph overwrites every column of the graph with id g.ID.
func (q *Queries) UpdateGraph(ctx context.Context, g model.Graph) error {
	err := q.execOne(ctx, "graph", g.ID, `
		UPDATE graphs
		SET name = ?, starting_node_id = ?, is_directed = ?, has_edge_weights = ?, has_edge_labels = ?, has_connectors = ?
		WHERE id = ?
	`, g.Name, nullInt64(g.StartingNodeID), g.Directed, g.HasEdgeWeights, g.HasEdgeLabels, g.HasConnectors, g.ID)
	if err != nil {
		return err
	}
	q.changed(TableGraphs, live.OpUpdate, g.ID)
	return nil
}

// DeleteGraph deletes a graph along with its nodes, connectors, edges and cliques.
func (q *Queries) DeleteGraph(ctx context.Context, id int64) error {
	if err := q.execOne(ctx, "graph", id, `DELETE FROM graphs WHERE id = ?`, id); err != nil {
		return err
	}
	q.deleted(TableGraphs, id)
	return nil
}

// InsertNode inserts n and returns its new id. Tags are stored as given.
func (q *Queries) InsertNode(ctx context.Context, n model.Node) (int64, error) {
	tags, err := marshalTags(n.Tags)
	if err != nil {
		return 0, errors.Wrap(err, "insert node")
	}
	id, err := q.insert(ctx, "insert node", `
		INSERT INTO nodes (graph_id, name, tags) VALUES (?, ?, ?)
	`, n.GraphID, n.Name, tags)
	if err != nil {
		return 0, err
	}
	q.changed(TableNodes, live.OpInsert, id)
	return id, nil
}

// UpdateNode overwrites name and tags of the node with id n.ID. A node never
// moves between graphs, so n.GraphID is ignored.
func (q *Queries) UpdateNode(ctx context.Context, n model.Node) error {
	tags, err := marshalTags(n.Tags)
	if err != nil {
		return errors.Wrap(err, "update node")
	}
	if err := q.execOne(ctx, "node", n.ID, `
		UPDATE nodes SET name = ?, tags = ? WHERE id = ?
	`, n.Name, tags, n.ID); err != nil {
		return err
	}
	q.changed(TableNodes, live.OpUpdate, n.ID)
	return nil
}

// DeleteNode deletes a node, its connectors, their edges and its clique
// memberships. A graph starting at this node loses its starting node.
func (q *Queries) DeleteNode(ctx context.Context, id int64) error {
	if err := q.execOne(ctx, "node", id, `DELETE FROM nodes WHERE id = ?`, id); err != nil {
		return err
	}
	q.deleted(TableNodes, id)
	return nil
}

// InsertConnector inserts c and returns its new id.
func (q *Queries) InsertConnector(ctx context.Context, c model.Connector) (int64, error) {
	id, err := q.insert(ctx, "insert connector", `
		INSERT INTO connectors (node_id, name) VALUES (?, ?)
	`, c.NodeID, c.Name)
	if err != nil {
		return 0, err
	}
	q.changed(TableConnectors, live.OpInsert, id)
	return id, nil
}

// UpdateConnector renames the connector with id c.ID.
func (q *Queries) UpdateConnector(ctx context.Context, c model.Connector) error {
	if err := q.execOne(ctx, "connector", c.ID, `
		UPDATE connectors SET name = ? WHERE id = ?
	`, c.Name, c.ID); err != nil {
		return err
	}
	q.changed(TableConnectors, live.OpUpdate, c.ID)
	return nil
}

// DeleteConnector deletes a connector and every edge touching it.
func (q *Queries) DeleteConnector(ctx context.Context, id int64) error {
	if err := q.execOne(ctx, "connector", id, `DELETE FROM connectors WHERE id = ?`, id); err != nil {
		return err
	}
	q.deleted(TableConnectors, id)
	return nil
}

// InsertEdge inserts e and returns its new id.
func (q *Queries) InsertEdge(ctx context.Context, e model.Edge) (int64, error) {
	id, err := q.insert(ctx, "insert edge", `
		INSERT INTO edges (from_connector_id, to_connector_id, bidirectional, name, weight)
		VALUES (?, ?, ?, ?, ?)
	`, e.FromConnectorID, e.ToConnectorID, e.Bidirectional, e.Name, e.Weight)
	if err != nil {
		return 0, err
	}
	q.changed(TableEdges, live.OpInsert, id)
	return id, nil
}

// UpdateEdge overwrites every column of the edge with id e.ID.
func (q *Queries) UpdateEdge(ctx context.Context, e model.Edge) error {
	if err := q.execOne(ctx, "edge", e.ID, `
		UPDATE edges
		SET from_connector_id = ?, to_connector_id = ?, bidirectional = ?, name = ?, weight = ?
		WHERE id = ?
	`, e.FromConnectorID, e.ToConnectorID, e.Bidirectional, e.Name, e.Weight, e.ID); err != nil {
		return err
	}
	q.changed(TableEdges, live.OpUpdate, e.ID)
	return nil
}

// DeleteEdge deletes a single edge.
func (q *Queries) DeleteEdge(ctx context.Context, id int64) error {
	if err := q.execOne(ctx, "edge", id, `DELETE FROM edges WHERE id = ?`, id); err != nil {
		return err
	}
	q.deleted(TableEdges, id)
	return nil
}

// InsertClique inserts c and returns its new id.
func (q *Queries) InsertClique(ctx context.Context, c model.Clique) (int64, error) {
	id, err := q.insert(ctx, "insert clique", `
		INSERT INTO cliques (graph_id, name, edge_weight) VALUES (?, ?, ?)
	`, c.GraphID, c.Name, c.EdgeWeight)
	if err != nil {
		return 0, err
	}
	q.changed(TableCliques, live.OpInsert, id)
	return id, nil
}

// UpdateClique overwrites name and edge weight of the clique with id c.ID.
func (q *Queries) UpdateClique(ctx context.Context, c model.Clique) error {
	if err := q.execOne(ctx, "clique", c.ID, `
		UPDATE cliques SET name = ?, edge_weight = ? WHERE id = ?
	`, c.Name, c.EdgeWeight, c.ID); err != nil {
		return err
	}
	q.changed(TableCliques, live.OpUpdate, c.ID)
	return nil
}

// DeleteClique deletes a clique and its memberships. Member nodes survive.
func (q *Queries) DeleteClique(ctx context.Context, id int64) error {
	if err := q.execOne(ctx, "clique", id, `DELETE FROM cliques WHERE id = ?`, id); err != nil {
		return err
	}
	q.deleted(TableCliques, id)
	return nil
}

// AddCliqueMember adds nodeID to cliqueID.
// Uses ON CONFLICT DO NOTHING for idempotency - adding a member twice is silently ignored.
// Both rows must exist (foreign key constraint).
func (q *Queries) AddCliqueMember(ctx context.Context, cliqueID, nodeID int64) error {
	res, err := q.q.ExecContext(ctx, `
		INSERT INTO clique_nodes (clique_id, node_id) VALUES (?, ?)
		ON CONFLICT DO NOTHING
	`, cliqueID, nodeID)
	if err != nil {
		return mapConstraint(err, "add clique member")
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		q.changed(TableCliqueNodes, live.OpInsert, cliqueID)
	}
	return nil
}

// RemoveCliqueMember removes nodeID from cliqueID. Removing a non-member is a no-op.
func (q *Queries) RemoveCliqueMember(ctx context.Context, cliqueID, nodeID int64) error {
	res, err := q.q.ExecContext(ctx, `
		DELETE FROM clique_nodes WHERE clique_id = ? AND node_id = ?
	`, cliqueID, nodeID)
	if err != nil {
		return errors.Wrap(err, "remove clique member")
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		q.changed(TableCliqueNodes, live.OpDelete, cliqueID)
	}
	return nil
}

// ClearClique removes every member of cliqueID and returns how many were removed.
func (q *Queries) ClearClique(ctx context.Context, cliqueID int64) (int64, error) {
	res, err := q.q.ExecContext(ctx, `DELETE FROM clique_nodes WHERE clique_id = ?`, cliqueID)
	if err != nil {
		return 0, errors.Wrap(err, "clear clique")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "clear clique")
	}
	if n > 0 {
		q.changed(TableCliqueNodes, live.OpDelete, cliqueID)
	}
	return n, nil
}
