package interchange

import (
	"context"
	"strconv"

	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/model"
	"github.com/AplusKminus/GraphWalker/internal/repository"
	"github.com/AplusKminus/GraphWalker/internal/store"
)

// Export builds the document of one graph. Node keys are "n1", "n2", ...
// in id order. A node with two connectors of the same name cannot be
// referenced unambiguously and fails with ErrConflict.
func Export(ctx context.Context, repo *repository.Repository, graphID int64) (*Document, error) {
	var doc *Document
	err := repo.Transact(ctx, func(q *store.Queries) error {
		var err error
		doc, err = export(ctx, q, graphID)
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "export graph %d", graphID)
	}
	return doc, nil
}

type connectorRef struct {
	node string
	name string
}

func export(ctx context.Context, q *store.Queries, graphID int64) (*Document, error) {
	g, err := q.GetGraph(ctx, graphID)
	if err != nil {
		return nil, err
	}
	nodes, err := q.ListNodesByGraph(ctx, graphID)
	if err != nil {
		return nil, err
	}
	conns, err := q.ListConnectorsByGraph(ctx, graphID)
	if err != nil {
		return nil, err
	}
	edges, err := q.ListEdgesByGraph(ctx, graphID)
	if err != nil {
		return nil, err
	}
	cliques, err := q.ListCliquesWithNodesByGraph(ctx, graphID)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Version: model.DocumentVersion,
		Name:    g.Name,
		Flags:   g.GraphFlags,
		Nodes:   make([]NodeDoc, 0, len(nodes)),
	}

	keys := make(map[int64]string, len(nodes))
	index := make(map[int64]int, len(nodes))
	for i, n := range nodes {
		key := "n" + strconv.Itoa(i+1)
		keys[n.ID] = key
		index[n.ID] = len(doc.Nodes)
		nd := NodeDoc{Key: key, Name: n.Name}
		if len(n.Tags) > 0 {
			nd.Tags = n.Tags
		}
		doc.Nodes = append(doc.Nodes, nd)
	}
	if g.StartingNodeID != nil {
		doc.Start = keys[*g.StartingNodeID]
	}

	refs := make(map[int64]connectorRef, len(conns))
	for _, c := range conns {
		nd := &doc.Nodes[index[c.NodeID]]
		for _, existing := range nd.Connectors {
			if existing == c.Name {
				return nil, errors.Conflictf("node %q has two connectors named %q", nd.Name, c.Name)
			}
		}
		nd.Connectors = append(nd.Connectors, c.Name)
		refs[c.ID] = connectorRef{node: nd.Key, name: c.Name}
	}

	for _, e := range edges {
		from, ok := refs[e.FromConnectorID]
		if !ok {
			return nil, errors.Invalidf("edge %d starts outside graph %d", e.ID, graphID)
		}
		to, ok := refs[e.ToConnectorID]
		if !ok {
			return nil, errors.Invalidf("edge %d ends outside graph %d", e.ID, graphID)
		}
		doc.Edges = append(doc.Edges, EdgeDoc{
			From:          Endpoint{Node: from.node, Connector: from.name},
			To:            Endpoint{Node: to.node, Connector: to.name},
			Name:          e.Name,
			Weight:        weightPtr(e.Weight),
			Bidirectional: e.Bidirectional,
		})
	}

	for _, c := range cliques {
		cd := CliqueDoc{Name: c.Name, EdgeWeight: weightPtr(c.EdgeWeight), Nodes: make([]string, 0, len(c.Nodes))}
		for _, n := range c.Nodes {
			key, ok := keys[n.ID]
			if !ok {
				return nil, errors.Invalidf("clique %q contains node %d from another graph", c.Name, n.ID)
			}
			cd.Nodes = append(cd.Nodes, key)
		}
		doc.Cliques = append(doc.Cliques, cd)
	}
	return doc, nil
}
