package repository

import (
	"context"

	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/model"
	"github.com/AplusKminus/GraphWalker/internal/store"
)

// AddNode adds a node to a graph. Tags are normalized.
func (r *Repository) AddNode(ctx context.Context, graphID int64, name string, tags ...string) (int64, error) {
	name, err := model.RequireName("node", name)
	if err != nil {
		return 0, err
	}
	id, err := r.q().InsertNode(ctx, model.Node{GraphID: graphID, Name: name, Tags: model.NormalizeTags(tags)})
	if err != nil {
		return 0, errors.Wrapf(err, "add node to graph %d", graphID)
	}
	return id, nil
}

// RenameNode changes the name of a node.
func (r *Repository) RenameNode(ctx context.Context, id int64, name string) error {
	name, err := model.RequireName("node", name)
	if err != nil {
		return err
	}
	_, err = r.modifyNode(ctx, id, func(n *model.Node) bool {
		if n.Name == name {
			return false
		}
		n.Name = name
		return true
	})
	return err
}

// DeleteNode deletes a node with its connectors, their edges and its clique
// memberships.
func (r *Repository) DeleteNode(ctx context.Context, id int64) error {
	if err := r.q().DeleteNode(ctx, id); err != nil {
		return errors.Wrapf(err, "delete node %d", id)
	}
	return nil
}

// AddTag adds tag to a node. Adding a tag the node already carries is a
// no-op; the boolean reports whether anything changed.
func (r *Repository) AddTag(ctx context.Context, nodeID int64, tag string) (bool, error) {
	if model.NormalizeName(tag) == "" {
		return false, errors.Invalidf("tag must not be blank")
	}
	return r.modifyNode(ctx, nodeID, func(n *model.Node) bool {
		var changed bool
		n.Tags, changed = model.AddTag(n.Tags, tag)
		return changed
	})
}

// RemoveTag removes tag from a node.
func (r *Repository) RemoveTag(ctx context.Context, nodeID int64, tag string) (bool, error) {
	return r.modifyNode(ctx, nodeID, func(n *model.Node) bool {
		var changed bool
		n.Tags, changed = model.RemoveTag(n.Tags, tag)
		return changed
	})
}

// UpdateTag renames oldTag to newTag on a node. Nothing happens when the
// node already carries newTag.
func (r *Repository) UpdateTag(ctx context.Context, nodeID int64, oldTag, newTag string) (bool, error) {
	if model.NormalizeName(newTag) == "" {
		return false, errors.Invalidf("tag must not be blank")
	}
	return r.modifyNode(ctx, nodeID, func(n *model.Node) bool {
		var changed bool
		n.Tags, changed = model.ReplaceTag(n.Tags, oldTag, newTag)
		return changed
	})
}

// modifyNode applies fn to the current row of a node and writes it back if
// fn reports a change.
func (r *Repository) modifyNode(ctx context.Context, id int64, fn func(*model.Node) bool) (bool, error) {
	var changed bool
	err := r.tx(ctx, func(q *store.Queries) error {
		n, err := q.GetNode(ctx, id)
		if err != nil {
			return err
		}
		if !fn(&n) {
			return nil
		}
		changed = true
		return q.UpdateNode(ctx, n)
	})
	if err != nil {
		return false, errors.Wrapf(err, "update node %d", id)
	}
	return changed, nil
}
