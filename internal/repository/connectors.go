package repository

import (
	"context"

	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/model"
	"github.com/AplusKminus/GraphWalker/internal/store"
)

// AddConnector adds a named connector to a node.
func (r *Repository) AddConnector(ctx context.Context, nodeID int64, name string) (int64, error) {
	name, err := model.RequireName("connector", name)
	if err != nil {
		return 0, err
	}
	id, err := r.q().InsertConnector(ctx, model.Connector{NodeID: nodeID, Name: name})
	if err != nil {
		return 0, errors.Wrapf(err, "add connector to node %d", nodeID)
	}
	return id, nil
}

// RenameConnector changes the name of a connector.
func (r *Repository) RenameConnector(ctx context.Context, id int64, name string) error {
	name, err := model.RequireName("connector", name)
	if err != nil {
		return err
	}
	return r.tx(ctx, func(q *store.Queries) error {
		c, err := q.GetConnector(ctx, id)
		if err != nil {
			return err
		}
		c.Name = name
		return q.UpdateConnector(ctx, c)
	})
}

// DeleteConnector deletes a connector and every edge touching it.
func (r *Repository) DeleteConnector(ctx context.Context, id int64) error {
	if err := r.q().DeleteConnector(ctx, id); err != nil {
		return errors.Wrapf(err, "delete connector %d", id)
	}
	return nil
}

// EnsureDefaultConnector returns the connector edges of nodeID attach to in
// a graph without connectors: the node's first connector, created with an
// empty name when the node has none yet.
func (r *Repository) EnsureDefaultConnector(ctx context.Context, nodeID int64) (model.Connector, error) {
	var c model.Connector
	err := r.tx(ctx, func(q *store.Queries) error {
		var err error
		c, err = ensureDefaultConnector(ctx, q, nodeID)
		return err
	})
	return c, err
}

// CreateNodeAndConnector adds a node and one connector to it. In graphs
// without connectors the connector is the node's default one and
// connectorName is ignored.
func (r *Repository) CreateNodeAndConnector(ctx context.Context, graphID int64, nodeName, connectorName string) (nodeID, connectorID int64, err error) {
	nodeName, err = model.RequireName("node", nodeName)
	if err != nil {
		return 0, 0, err
	}
	err = r.tx(ctx, func(q *store.Queries) error {
		g, err := q.GetGraph(ctx, graphID)
		if err != nil {
			return err
		}
		name := ""
		if g.HasConnectors {
			if name, err = model.RequireName("connector", connectorName); err != nil {
				return err
			}
		}
		nodeID, err = q.InsertNode(ctx, model.Node{GraphID: graphID, Name: nodeName, Tags: []string{}})
		if err != nil {
			return err
		}
		connectorID, err = q.InsertConnector(ctx, model.Connector{NodeID: nodeID, Name: name})
		return err
	})
	if err != nil {
		return 0, 0, errors.Wrap(err, "create node and connector")
	}
	return nodeID, connectorID, nil
}

func ensureDefaultConnector(ctx context.Context, q *store.Queries, nodeID int64) (model.Connector, error) {
	n, err := q.GetNode(ctx, nodeID)
	if err != nil {
		return model.Connector{}, err
	}
	g, err := q.GetGraph(ctx, n.GraphID)
	if err != nil {
		return model.Connector{}, err
	}
	if g.HasConnectors {
		return model.Connector{}, errors.Invalidf("graph %d uses named connectors", g.ID)
	}
	conns, err := q.ListConnectorsByNode(ctx, nodeID)
	if err != nil {
		return model.Connector{}, err
	}
	if len(conns) > 0 {
		return conns[0], nil
	}
	c := model.Connector{NodeID: nodeID, Name: ""}
	if c.ID, err = q.InsertConnector(ctx, c); err != nil {
		return model.Connector{}, err
	}
	return c, nil
}
