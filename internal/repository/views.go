package repository

import (
	"context"

	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/live"
	"github.com/AplusKminus/GraphWalker/internal/model"
	"github.com/AplusKminus/GraphWalker/internal/search"
	"github.com/AplusKminus/GraphWalker/internal/store"
)

// optional turns a single-row lookup into a pointer that is nil when the
// row does not exist.
func optional[T any](v T, err error) (*T, error) {
	if errors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Graphs lists every graph.
func (r *Repository) Graphs() live.Query[[]model.Graph] {
	return live.NewQuery(r.q().ListGraphs, store.TableGraphs)
}

// allNodes lists every node of every graph.
func (r *Repository) allNodes() live.Query[[]model.Node] {
	return live.NewQuery(r.q().ListNodes, store.TableNodes)
}

func (r *Repository) allConnectors() live.Query[[]model.Connector] {
	return live.NewQuery(r.q().ListConnectors, store.TableConnectors)
}

func (r *Repository) allEdges() live.Query[[]model.Edge] {
	return live.NewQuery(r.q().ListEdges, store.TableEdges)
}

// AllFullGraphs lists every graph with its nodes and starting node.
func (r *Repository) AllFullGraphs() live.Query[[]model.FullGraph] {
	return live.Combine2(r.Graphs(), r.allNodes(), func(graphs []model.Graph, nodes []model.Node) []model.FullGraph {
		byGraph := make(map[int64][]model.Node)
		for _, n := range nodes {
			byGraph[n.GraphID] = append(byGraph[n.GraphID], n)
		}
		out := make([]model.FullGraph, 0, len(graphs))
		for _, g := range graphs {
			out = append(out, model.NewFullGraph(g, byGraph[g.ID]))
		}
		return out
	})
}

// Graph is one graph, nil once it is deleted.
func (r *Repository) Graph(id int64) live.Query[*model.Graph] {
	return live.NewQuery(func(ctx context.Context) (*model.Graph, error) {
		return optional(r.q().GetGraph(ctx, id))
	}, store.TableGraphs)
}

// FullGraph is one graph with its nodes, nil once the graph is deleted.
func (r *Repository) FullGraph(id int64) live.Query[*model.FullGraph] {
	return live.Combine2(r.Graph(id), r.Nodes(id), func(g *model.Graph, nodes []model.Node) *model.FullGraph {
		if g == nil {
			return nil
		}
		fg := model.NewFullGraph(*g, nodes)
		return &fg
	})
}

// Nodes lists the nodes of a graph.
func (r *Repository) Nodes(graphID int64) live.Query[[]model.Node] {
	return live.NewQuery(func(ctx context.Context) ([]model.Node, error) {
		return r.q().ListNodesByGraph(ctx, graphID)
	}, store.TableNodes)
}

// Node is one node, nil once it is deleted.
func (r *Repository) Node(id int64) live.Query[*model.Node] {
	return live.NewQuery(func(ctx context.Context) (*model.Node, error) {
		return optional(r.q().GetNode(ctx, id))
	}, store.TableNodes)
}

// NodesByIDs lists the existing nodes among ids.
func (r *Repository) NodesByIDs(ids []int64) live.Query[[]model.Node] {
	return live.NewQuery(func(ctx context.Context) ([]model.Node, error) {
		return r.q().ListNodesByIDs(ctx, ids)
	}, store.TableNodes)
}

// NodeConnectors lists the connectors of a node.
func (r *Repository) NodeConnectors(nodeID int64) live.Query[[]model.Connector] {
	return live.NewQuery(func(ctx context.Context) ([]model.Connector, error) {
		return r.q().ListConnectorsByNode(ctx, nodeID)
	}, store.TableConnectors)
}

// GraphConnectors lists the connectors of every node in a graph.
func (r *Repository) GraphConnectors(graphID int64) live.Query[[]model.Connector] {
	return live.NewQuery(func(ctx context.Context) ([]model.Connector, error) {
		return r.q().ListConnectorsByGraph(ctx, graphID)
	}, store.TableConnectors, store.TableNodes)
}

// Connector is one connector, nil once it is deleted.
func (r *Repository) Connector(id int64) live.Query[*model.Connector] {
	return live.NewQuery(func(ctx context.Context) (*model.Connector, error) {
		return optional(r.q().GetConnector(ctx, id))
	}, store.TableConnectors)
}

// GraphEdges lists the edges of a graph.
func (r *Repository) GraphEdges(graphID int64) live.Query[[]model.Edge] {
	return live.NewQuery(func(ctx context.Context) ([]model.Edge, error) {
		return r.q().ListEdgesByGraph(ctx, graphID)
	}, store.TableEdges, store.TableConnectors, store.TableNodes)
}

// Edge is one edge, nil once it is deleted.
func (r *Repository) Edge(id int64) live.Query[*model.Edge] {
	return live.NewQuery(func(ctx context.Context) (*model.Edge, error) {
		return optional(r.q().GetEdge(ctx, id))
	}, store.TableEdges)
}

// EdgeCounts maps each connector of a node to the number of edges touching it.
func (r *Repository) EdgeCounts(nodeID int64) live.Query[map[int64]int] {
	return live.Combine2(r.NodeConnectors(nodeID), r.allEdges(), func(conns []model.Connector, edges []model.Edge) map[int64]int {
		counts := make(map[int64]int, len(conns))
		for _, c := range conns {
			n := 0
			for _, e := range edges {
				if e.Touches(c.ID) {
					n++
				}
			}
			counts[c.ID] = n
		}
		return counts
	})
}

func (r *Repository) connectorEdgesRaw(connectorID int64) live.Query[[]model.Edge] {
	return live.NewQuery(func(ctx context.Context) ([]model.Edge, error) {
		return r.q().ListEdgesByConnector(ctx, connectorID)
	}, store.TableEdges)
}

// ConnectorEdges lists the edges of a connector with their far end resolved.
func (r *Repository) ConnectorEdges(connectorID int64) live.Query[[]model.ConnectorEdge] {
	return live.Combine3(r.connectorEdgesRaw(connectorID), r.allConnectors(), r.allNodes(),
		func(edges []model.Edge, conns []model.Connector, nodes []model.Node) []model.ConnectorEdge {
			return resolveConnectorEdges(connectorID, edges, conns, nodes)
		})
}

// ConnectedConnectors maps each edge of a connector to a display name of its
// far end: "Node (Connector)", the connector name alone when its node is
// gone, or "Unknown".
func (r *Repository) ConnectedConnectors(connectorID int64) live.Query[map[int64]string] {
	return live.Map(r.ConnectorEdges(connectorID), func(edges []model.ConnectorEdge) map[int64]string {
		out := make(map[int64]string, len(edges))
		for _, e := range edges {
			out[e.ID] = e.DisplayName
		}
		return out
	})
}

// TargetNodeIDs maps each edge of a connector to the node at its far end,
// or model.UnknownNodeID.
func (r *Repository) TargetNodeIDs(connectorID int64) live.Query[map[int64]int64] {
	return live.Map(r.ConnectorEdges(connectorID), func(edges []model.ConnectorEdge) map[int64]int64 {
		out := make(map[int64]int64, len(edges))
		for _, e := range edges {
			out[e.ID] = e.OtherNodeID
		}
		return out
	})
}

func resolveConnectorEdges(connectorID int64, edges []model.Edge, conns []model.Connector, nodes []model.Node) []model.ConnectorEdge {
	connByID := make(map[int64]model.Connector, len(conns))
	for _, c := range conns {
		connByID[c.ID] = c
	}
	nodeByID := make(map[int64]model.Node, len(nodes))
	for _, n := range nodes {
		nodeByID[n.ID] = n
	}

	out := make([]model.ConnectorEdge, 0, len(edges))
	for _, e := range edges {
		ce := model.ConnectorEdge{
			Edge:             e,
			OtherConnectorID: e.Other(connectorID),
			OtherNodeID:      model.UnknownNodeID,
			DisplayName:      "Unknown",
		}
		if c, ok := connByID[ce.OtherConnectorID]; ok {
			ce.OtherNodeID = c.NodeID
			ce.DisplayName = c.Name
			if n, ok := nodeByID[c.NodeID]; ok {
				ce.DisplayName = n.Name + " (" + c.Name + ")"
			}
		}
		out = append(out, ce)
	}
	return out
}

// UnconnectedConnectors lists the connectors of a graph that no edge touches.
func (r *Repository) UnconnectedConnectors(graphID int64) live.Query[[]model.UnconnectedConnector] {
	return live.Combine3(r.Nodes(graphID), r.GraphConnectors(graphID), r.GraphEdges(graphID),
		func(nodes []model.Node, conns []model.Connector, edges []model.Edge) []model.UnconnectedConnector {
			return unconnected(nodes, conns, edges)
		})
}

func unconnected(nodes []model.Node, conns []model.Connector, edges []model.Edge) []model.UnconnectedConnector {
	used := make(map[int64]bool, 2*len(edges))
	for _, e := range edges {
		used[e.FromConnectorID] = true
		used[e.ToConnectorID] = true
	}
	nodeByID := make(map[int64]model.Node, len(nodes))
	for _, n := range nodes {
		nodeByID[n.ID] = n
	}

	out := []model.UnconnectedConnector{}
	for _, c := range conns {
		if used[c.ID] {
			continue
		}
		uc := model.UnconnectedConnector{Connector: c}
		if n, ok := nodeByID[c.NodeID]; ok {
			uc.Node = &n
		}
		out = append(out, uc)
	}
	return out
}

// Cliques lists the cliques of a graph, by name.
func (r *Repository) Cliques(graphID int64) live.Query[[]model.Clique] {
	return live.NewQuery(func(ctx context.Context) ([]model.Clique, error) {
		return r.q().ListCliquesByGraph(ctx, graphID)
	}, store.TableCliques)
}

// CliquesWithNodes lists the cliques of a graph with their members.
func (r *Repository) CliquesWithNodes(graphID int64) live.Query[[]model.CliqueWithNodes] {
	return live.NewQuery(func(ctx context.Context) ([]model.CliqueWithNodes, error) {
		return r.q().ListCliquesWithNodesByGraph(ctx, graphID)
	}, store.TableCliques, store.TableCliqueNodes, store.TableNodes)
}

// CliqueWithNodes is one clique with its members, nil once it is deleted.
func (r *Repository) CliqueWithNodes(id int64) live.Query[*model.CliqueWithNodes] {
	return live.NewQuery(func(ctx context.Context) (*model.CliqueWithNodes, error) {
		return optional(r.q().GetCliqueWithNodes(ctx, id))
	}, store.TableCliques, store.TableCliqueNodes, store.TableNodes)
}

// NodeWithCliques is one node with its cliques, nil once it is deleted.
func (r *Repository) NodeWithCliques(id int64) live.Query[*model.NodeWithCliques] {
	return live.NewQuery(func(ctx context.Context) (*model.NodeWithCliques, error) {
		return optional(r.q().GetNodeWithCliques(ctx, id))
	}, store.TableNodes, store.TableCliques, store.TableCliqueNodes)
}

// NodesWithCliques lists the nodes of a graph with their cliques.
func (r *Repository) NodesWithCliques(graphID int64) live.Query[[]model.NodeWithCliques] {
	return live.NewQuery(func(ctx context.Context) ([]model.NodeWithCliques, error) {
		return r.q().ListNodesWithCliquesByGraph(ctx, graphID)
	}, store.TableNodes, store.TableCliques, store.TableCliqueNodes)
}

// Search matches text against one graph. A filter that the graph's flags do
// not offer is rejected.
func (r *Repository) Search(graphID int64, text string, filter search.Filter) live.Query[[]search.Result] {
	return live.NewQuery(func(ctx context.Context) ([]search.Result, error) {
		in, err := r.searchInput(ctx, graphID)
		if err != nil {
			return nil, err
		}
		if !search.Allowed(in.Graph, filter) {
			return nil, errors.Invalidf("filter %q is not available for graph %d", filter, graphID)
		}
		return search.Run(in, text, filter), nil
	}, store.AllTables...)
}

func (r *Repository) searchInput(ctx context.Context, graphID int64) (search.Input, error) {
	q := r.q()
	var in search.Input
	var err error
	if in.Graph, err = q.GetGraph(ctx, graphID); err != nil {
		return in, err
	}
	if in.Nodes, err = q.ListNodesByGraph(ctx, graphID); err != nil {
		return in, err
	}
	if in.Connectors, err = q.ListConnectorsByGraph(ctx, graphID); err != nil {
		return in, err
	}
	if in.Edges, err = q.ListEdgesByGraph(ctx, graphID); err != nil {
		return in, err
	}
	if in.Cliques, err = q.ListCliquesWithNodesByGraph(ctx, graphID); err != nil {
		return in, err
	}
	return in, nil
}
