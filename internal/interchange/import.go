package interchange

import (
	"context"

	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/model"
	"github.com/AplusKminus/GraphWalker/internal/repository"
	"github.com/AplusKminus/GraphWalker/internal/store"
)

// Import creates a new graph from doc in one transaction and returns its id.
// Any unresolvable reference rolls the whole import back with ErrInvalid.
//
// Endpoints name a connector listed on their node. The empty name resolves
// to the node's default connector. Graphs without connectors get one
// created on demand; graphs with connectors must list "" on the node.
func Import(ctx context.Context, repo *repository.Repository, doc *Document) (int64, error) {
	if err := doc.Validate(); err != nil {
		return 0, err
	}
	var graphID int64
	err := repo.Transact(ctx, func(q *store.Queries) error {
		var err error
		graphID, err = importDocument(ctx, q, doc)
		return err
	})
	if err != nil {
		return 0, errors.Wrapf(err, "import graph %q", doc.Name)
	}
	return graphID, nil
}

type importedNode struct {
	id         int64
	connectors map[string]int64
}

func importDocument(ctx context.Context, q *store.Queries, doc *Document) (int64, error) {
	name, err := model.RequireName("graph", doc.Name)
	if err != nil {
		return 0, err
	}
	g := model.Graph{Name: name, GraphFlags: doc.Flags}
	if g.ID, err = q.InsertGraph(ctx, g); err != nil {
		return 0, err
	}

	nodes := make(map[string]*importedNode, len(doc.Nodes))
	for _, nd := range doc.Nodes {
		nodeName, err := model.RequireName("node", nd.Name)
		if err != nil {
			return 0, err
		}
		id, err := q.InsertNode(ctx, model.Node{GraphID: g.ID, Name: nodeName, Tags: model.NormalizeTags(nd.Tags)})
		if err != nil {
			return 0, err
		}
		in := &importedNode{id: id, connectors: make(map[string]int64, len(nd.Connectors))}
		for _, cname := range nd.Connectors {
			cname = model.NormalizeName(cname)
			if _, dup := in.connectors[cname]; dup {
				return 0, errors.Invalidf("node %q lists connector %q twice", nd.Key, cname)
			}
			cid, err := q.InsertConnector(ctx, model.Connector{NodeID: id, Name: cname})
			if err != nil {
				return 0, err
			}
			in.connectors[cname] = cid
		}
		nodes[nd.Key] = in
	}

	resolve := func(end Endpoint) (int64, error) {
		in := nodes[end.Node]
		name := model.NormalizeName(end.Connector)
		if id, ok := in.connectors[name]; ok {
			return id, nil
		}
		if name != "" {
			return 0, errors.Invalidf("node %q has no connector %q", end.Node, name)
		}
		if g.HasConnectors {
			return 0, errors.Invalidf("node %q has no default connector; name one of its connectors", end.Node)
		}
		id, err := q.InsertConnector(ctx, model.Connector{NodeID: in.id, Name: ""})
		if err != nil {
			return 0, err
		}
		in.connectors[""] = id
		return id, nil
	}

	for i, ed := range doc.Edges {
		from, err := resolve(ed.From)
		if err != nil {
			return 0, errors.Wrapf(err, "edges[%d]", i)
		}
		to, err := resolve(ed.To)
		if err != nil {
			return 0, errors.Wrapf(err, "edges[%d]", i)
		}
		e := g.NormalizeEdge(model.Edge{
			FromConnectorID: from,
			ToConnectorID:   to,
			Name:            ed.Name,
			Weight:          weightOr(ed.Weight),
			Bidirectional:   ed.Bidirectional,
		})
		if err := model.ValidateWeight(e.Weight); err != nil {
			return 0, errors.Wrapf(err, "edges[%d]", i)
		}
		if _, err := q.InsertEdge(ctx, e); err != nil {
			return 0, err
		}
	}

	for _, cd := range doc.Cliques {
		cname, err := model.RequireName("clique", cd.Name)
		if err != nil {
			return 0, err
		}
		weight := weightOr(cd.EdgeWeight)
		if err := model.ValidateWeight(weight); err != nil {
			return 0, err
		}
		cid, err := q.InsertClique(ctx, model.Clique{GraphID: g.ID, Name: cname, EdgeWeight: weight})
		if err != nil {
			return 0, err
		}
		for _, key := range cd.Nodes {
			if err := q.AddCliqueMember(ctx, cid, nodes[key].id); err != nil {
				return 0, err
			}
		}
	}

	if doc.Start != "" {
		start := nodes[doc.Start].id
		g.StartingNodeID = &start
		if err := q.UpdateGraph(ctx, g); err != nil {
			return 0, err
		}
	}
	return g.ID, nil
}
