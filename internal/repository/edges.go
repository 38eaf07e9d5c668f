package repository

import (
	"context"

	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/logger"
	"github.com/AplusKminus/GraphWalker/internal/model"
	"github.com/AplusKminus/GraphWalker/internal/store"
)

// CreateEdge links two connectors of the same graph. The graph's flags
// decide direction, weight and name (see model.Graph.NormalizeEdge).
func (r *Repository) CreateEdge(ctx context.Context, e model.Edge) (int64, error) {
	var id int64
	err := r.tx(ctx, func(q *store.Queries) error {
		var err error
		id, err = createEdge(ctx, q, e)
		return err
	})
	if err != nil {
		return 0, errors.Wrap(err, "create edge")
	}
	r.log.Debugw("Edge created", logger.FieldEdgeID, id,
		"from", e.FromConnectorID, "to", e.ToConnectorID)
	return id, nil
}

// ConnectNodes links two nodes of a graph without connectors through their
// default connectors, creating them as needed. e's connector ids are ignored.
func (r *Repository) ConnectNodes(ctx context.Context, fromNodeID, toNodeID int64, e model.Edge) (int64, error) {
	var id int64
	err := r.tx(ctx, func(q *store.Queries) error {
		from, err := ensureDefaultConnector(ctx, q, fromNodeID)
		if err != nil {
			return err
		}
		to, err := ensureDefaultConnector(ctx, q, toNodeID)
		if err != nil {
			return err
		}
		e.FromConnectorID, e.ToConnectorID = from.ID, to.ID
		id, err = createEdge(ctx, q, e)
		return err
	})
	if err != nil {
		return 0, errors.Wrapf(err, "connect nodes %d and %d", fromNodeID, toNodeID)
	}
	return id, nil
}

// UpdateEdge overwrites endpoints, name, weight and direction of e.ID,
// normalized like CreateEdge.
func (r *Repository) UpdateEdge(ctx context.Context, e model.Edge) error {
	err := r.tx(ctx, func(q *store.Queries) error {
		if _, err := q.GetEdge(ctx, e.ID); err != nil {
			return err
		}
		g, err := edgeGraph(ctx, q, e.FromConnectorID, e.ToConnectorID)
		if err != nil {
			return err
		}
		e = g.NormalizeEdge(e)
		if err := model.ValidateWeight(e.Weight); err != nil {
			return err
		}
		return q.UpdateEdge(ctx, e)
	})
	if err != nil {
		return errors.Wrapf(err, "update edge %d", e.ID)
	}
	return nil
}

// DeleteEdge deletes one edge.
func (r *Repository) DeleteEdge(ctx context.Context, id int64) error {
	if err := r.q().DeleteEdge(ctx, id); err != nil {
		return errors.Wrapf(err, "delete edge %d", id)
	}
	return nil
}

func createEdge(ctx context.Context, q *store.Queries, e model.Edge) (int64, error) {
	g, err := edgeGraph(ctx, q, e.FromConnectorID, e.ToConnectorID)
	if err != nil {
		return 0, err
	}
	e = g.NormalizeEdge(e)
	if err := model.ValidateWeight(e.Weight); err != nil {
		return 0, err
	}
	return q.InsertEdge(ctx, e)
}

// edgeGraph returns the graph both connectors belong to.
func edgeGraph(ctx context.Context, q *store.Queries, fromID, toID int64) (model.Graph, error) {
	fromGraph, err := connectorGraph(ctx, q, fromID)
	if err != nil {
		return model.Graph{}, err
	}
	toGraph, err := connectorGraph(ctx, q, toID)
	if err != nil {
		return model.Graph{}, err
	}
	if fromGraph != toGraph {
		return model.Graph{}, errors.Invalidf("connectors %d and %d are in different graphs", fromID, toID)
	}
	return q.GetGraph(ctx, fromGraph)
}

func connectorGraph(ctx context.Context, q *store.Queries, connectorID int64) (int64, error) {
	c, err := q.GetConnector(ctx, connectorID)
	if errors.IsNotFound(err) {
		return 0, errors.Invalidf("connector %d does not exist", connectorID)
	}
	if err != nil {
		return 0, err
	}
	n, err := q.GetNode(ctx, c.NodeID)
	if err != nil {
		return 0, err
	}
	return n.GraphID, nil
}
