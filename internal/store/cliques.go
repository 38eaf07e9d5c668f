package store

import (
	"context"

	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/model"
)

// ListCliquesWithNodesByGraph returns every clique of a graph with its
// member nodes, using three queries regardless of clique count.
func (q *Queries) ListCliquesWithNodesByGraph(ctx context.Context, graphID int64) ([]model.CliqueWithNodes, error) {
	cliques, err := q.ListCliquesByGraph(ctx, graphID)
	if err != nil {
		return nil, err
	}
	members, err := q.ListCliqueMemberships(ctx, graphID)
	if err != nil {
		return nil, err
	}
	nodes, err := q.ListNodesByGraph(ctx, graphID)
	if err != nil {
		return nil, err
	}
	return assembleCliques(cliques, members, nodes), nil
}

// GetCliqueWithNodes returns one clique with its member nodes.
func (q *Queries) GetCliqueWithNodes(ctx context.Context, id int64) (model.CliqueWithNodes, error) {
	c, err := q.GetClique(ctx, id)
	if err != nil {
		return model.CliqueWithNodes{}, err
	}
	nodes, err := q.ListCliqueNodes(ctx, id)
	if err != nil {
		return model.CliqueWithNodes{}, err
	}
	return model.CliqueWithNodes{Clique: c, Nodes: nodes}, nil
}

// GetNodeWithCliques returns one node with the cliques it belongs to.
func (q *Queries) GetNodeWithCliques(ctx context.Context, id int64) (model.NodeWithCliques, error) {
	n, err := q.GetNode(ctx, id)
	if err != nil {
		return model.NodeWithCliques{}, err
	}
	cliques, err := q.ListNodeCliques(ctx, id)
	if err != nil {
		return model.NodeWithCliques{}, err
	}
	return model.NodeWithCliques{Node: n, Cliques: cliques}, nil
}

// ListNodesWithCliquesByGraph returns every node of a graph with its cliques.
func (q *Queries) ListNodesWithCliquesByGraph(ctx context.Context, graphID int64) ([]model.NodeWithCliques, error) {
	nodes, err := q.ListNodesByGraph(ctx, graphID)
	if err != nil {
		return nil, err
	}
	cliques, err := q.ListCliquesByGraph(ctx, graphID)
	if err != nil {
		return nil, err
	}
	members, err := q.ListCliqueMemberships(ctx, graphID)
	if err != nil {
		return nil, errors.Wrap(err, "list nodes with cliques")
	}

	byNode := make(map[int64]map[int64]bool, len(nodes))
	for _, m := range members {
		if byNode[m.NodeID] == nil {
			byNode[m.NodeID] = map[int64]bool{}
		}
		byNode[m.NodeID][m.CliqueID] = true
	}

	out := make([]model.NodeWithCliques, 0, len(nodes))
	for _, n := range nodes {
		nc := model.NodeWithCliques{Node: n, Cliques: []model.Clique{}}
		// cliques are already ordered by name, id
		for _, c := range cliques {
			if byNode[n.ID][c.ID] {
				nc.Cliques = append(nc.Cliques, c)
			}
		}
		out = append(out, nc)
	}
	return out, nil
}

// assembleCliques joins cliques with their members in memory. Clique order
// is kept; members are ordered by node id.
func assembleCliques(cliques []model.Clique, members []model.CliqueMembership, nodes []model.Node) []model.CliqueWithNodes {
	nodeByID := make(map[int64]model.Node, len(nodes))
	for _, n := range nodes {
		nodeByID[n.ID] = n
	}
	memberIDs := make(map[int64][]int64)
	for _, m := range members {
		memberIDs[m.CliqueID] = append(memberIDs[m.CliqueID], m.NodeID)
	}

	out := make([]model.CliqueWithNodes, 0, len(cliques))
	for _, c := range cliques {
		cw := model.CliqueWithNodes{Clique: c, Nodes: []model.Node{}}
		for _, id := range memberIDs[c.ID] {
			if n, ok := nodeByID[id]; ok {
				cw.Nodes = append(cw.Nodes, n)
			}
		}
		out = append(out, cw)
	}
	return out
}
