package repository

import (
	"context"

	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/logger"
	"github.com/AplusKminus/GraphWalker/internal/model"
	"github.com/AplusKminus/GraphWalker/internal/store"
)

// CreateGraph creates an empty graph.
func (r *Repository) CreateGraph(ctx context.Context, name string, flags model.GraphFlags) (int64, error) {
	name, err := model.RequireName("graph", name)
	if err != nil {
		return 0, err
	}
	id, err := r.q().InsertGraph(ctx, model.Graph{Name: name, GraphFlags: flags})
	if err != nil {
		return 0, errors.Wrap(err, "create graph")
	}
	r.log.Infow("Graph created", logger.FieldGraphID, id, "name", name)
	return id, nil
}

// UpdateGraph overwrites name, flags and starting node of g.ID. A starting
// node must belong to the graph.
func (r *Repository) UpdateGraph(ctx context.Context, g model.Graph) error {
	name, err := model.RequireName("graph", g.Name)
	if err != nil {
		return err
	}
	g.Name = name
	return r.tx(ctx, func(q *store.Queries) error {
		if _, err := q.GetGraph(ctx, g.ID); err != nil {
			return err
		}
		if err := checkStartingNode(ctx, q, g.ID, g.StartingNodeID); err != nil {
			return err
		}
		return q.UpdateGraph(ctx, g)
	})
}

// RenameGraph changes only the name of a graph.
func (r *Repository) RenameGraph(ctx context.Context, id int64, name string) error {
	name, err := model.RequireName("graph", name)
	if err != nil {
		return err
	}
	return r.modifyGraph(ctx, id, func(g *model.Graph) error {
		g.Name = name
		return nil
	})
}

// SetFlags changes the feature flags of a graph. Existing edges are kept
// as they are.
func (r *Repository) SetFlags(ctx context.Context, id int64, flags model.GraphFlags) error {
	return r.modifyGraph(ctx, id, func(g *model.Graph) error {
		g.GraphFlags = flags
		return nil
	})
}

// SetStartingNode makes nodeID the starting node of a graph. A nil nodeID
// clears it.
func (r *Repository) SetStartingNode(ctx context.Context, graphID int64, nodeID *int64) error {
	return r.tx(ctx, func(q *store.Queries) error {
		g, err := q.GetGraph(ctx, graphID)
		if err != nil {
			return err
		}
		if err := checkStartingNode(ctx, q, graphID, nodeID); err != nil {
			return err
		}
		g.StartingNodeID = nodeID
		return q.UpdateGraph(ctx, g)
	})
}

// CreateStartingNode adds a node and makes it the graph's starting node.
// Name and flags of the graph are preserved.
func (r *Repository) CreateStartingNode(ctx context.Context, graphID int64, name string) (int64, error) {
	name, err := model.RequireName("node", name)
	if err != nil {
		return 0, err
	}
	var nodeID int64
	err = r.tx(ctx, func(q *store.Queries) error {
		g, err := q.GetGraph(ctx, graphID)
		if err != nil {
			return err
		}
		nodeID, err = q.InsertNode(ctx, model.Node{GraphID: graphID, Name: name, Tags: []string{}})
		if err != nil {
			return err
		}
		g.StartingNodeID = &nodeID
		return q.UpdateGraph(ctx, g)
	})
	if err != nil {
		return 0, errors.Wrap(err, "create starting node")
	}
	return nodeID, nil
}

// DeleteGraph deletes a graph and everything in it.
func (r *Repository) DeleteGraph(ctx context.Context, id int64) error {
	if err := r.q().DeleteGraph(ctx, id); err != nil {
		return errors.Wrapf(err, "delete graph %d", id)
	}
	r.log.Infow("Graph deleted", logger.FieldGraphID, id)
	return nil
}

// modifyGraph applies fn to the current row of a graph and writes it back.
func (r *Repository) modifyGraph(ctx context.Context, id int64, fn func(*model.Graph) error) error {
	return r.tx(ctx, func(q *store.Queries) error {
		g, err := q.GetGraph(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(&g); err != nil {
			return err
		}
		return q.UpdateGraph(ctx, g)
	})
}

func checkStartingNode(ctx context.Context, q *store.Queries, graphID int64, nodeID *int64) error {
	if nodeID == nil {
		return nil
	}
	n, err := q.GetNode(ctx, *nodeID)
	if errors.IsNotFound(err) {
		return errors.Invalidf("starting node %d does not exist", *nodeID)
	}
	if err != nil {
		return err
	}
	if n.GraphID != graphID {
		return errors.Invalidf("node %d belongs to graph %d, not %d", n.ID, n.GraphID, graphID)
	}
	return nil
}
