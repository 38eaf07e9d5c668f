package repository

import (
	"context"

	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/model"
	"github.com/AplusKminus/GraphWalker/internal/store"
)

// CreateClique creates an empty clique in a graph.
func (r *Repository) CreateClique(ctx context.Context, graphID int64, name string, edgeWeight float64) (int64, error) {
	name, err := model.RequireName("clique", name)
	if err != nil {
		return 0, err
	}
	if err := model.ValidateWeight(edgeWeight); err != nil {
		return 0, err
	}
	id, err := r.q().InsertClique(ctx, model.Clique{GraphID: graphID, Name: name, EdgeWeight: edgeWeight})
	if err != nil {
		return 0, errors.Wrapf(err, "create clique in graph %d", graphID)
	}
	return id, nil
}

// UpdateClique overwrites name and edge weight of c.ID.
func (r *Repository) UpdateClique(ctx context.Context, c model.Clique) error {
	name, err := model.RequireName("clique", c.Name)
	if err != nil {
		return err
	}
	if err := model.ValidateWeight(c.EdgeWeight); err != nil {
		return err
	}
	c.Name = name
	if err := r.q().UpdateClique(ctx, c); err != nil {
		return errors.Wrapf(err, "update clique %d", c.ID)
	}
	return nil
}

// DeleteClique deletes a clique. Its nodes are kept.
func (r *Repository) DeleteClique(ctx context.Context, id int64) error {
	if err := r.q().DeleteClique(ctx, id); err != nil {
		return errors.Wrapf(err, "delete clique %d", id)
	}
	return nil
}

// AddNodeToClique adds a node of the clique's graph to the clique. Adding a
// member twice is a no-op.
func (r *Repository) AddNodeToClique(ctx context.Context, cliqueID, nodeID int64) error {
	err := r.tx(ctx, func(q *store.Queries) error {
		c, err := q.GetClique(ctx, cliqueID)
		if err != nil {
			return err
		}
		n, err := q.GetNode(ctx, nodeID)
		if err != nil {
			return err
		}
		if n.GraphID != c.GraphID {
			return errors.Invalidf("node %d belongs to graph %d, clique %d to graph %d",
				n.ID, n.GraphID, c.ID, c.GraphID)
		}
		return q.AddCliqueMember(ctx, cliqueID, nodeID)
	})
	if err != nil {
		return errors.Wrapf(err, "add node %d to clique %d", nodeID, cliqueID)
	}
	return nil
}

// RemoveNodeFromClique removes a member. Removing a non-member is a no-op.
func (r *Repository) RemoveNodeFromClique(ctx context.Context, cliqueID, nodeID int64) error {
	if err := r.q().RemoveCliqueMember(ctx, cliqueID, nodeID); err != nil {
		return errors.Wrapf(err, "remove node %d from clique %d", nodeID, cliqueID)
	}
	return nil
}

// ClearClique removes every member of a clique and returns how many there were.
func (r *Repository) ClearClique(ctx context.Context, cliqueID int64) (int64, error) {
	if _, err := r.q().GetClique(ctx, cliqueID); err != nil {
		return 0, err
	}
	return r.q().ClearClique(ctx, cliqueID)
}
