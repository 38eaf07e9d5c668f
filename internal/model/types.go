package model

// DefaultWeight is the weight of an edge or clique when none is given.
const DefaultWeight = 1.0

// UnknownNodeID marks an edge endpoint whose node could not be resolved.
const UnknownNodeID int64 = -1

// GraphFlags are the per-graph feature switches.
type GraphFlags struct {
	Directed       bool `json:"directed" yaml:"directed"`
	HasEdgeWeights bool `json:"has_edge_weights" yaml:"has_edge_weights"`
	HasEdgeLabels  bool `json:"has_edge_labels" yaml:"has_edge_labels"`
	HasConnectors  bool `json:"has_connectors" yaml:"has_connectors"`
}

// DefaultFlags returns the flags a new graph gets when none are chosen.
func DefaultFlags() GraphFlags {
	return GraphFlags{Directed: true}
}

// Graph is a named collection of nodes.
type Graph struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	StartingNodeID *int64 `json:"starting_node_id,omitempty"`
	GraphFlags
}

// Node belongs to exactly one graph.
type Node struct {
	ID      int64    `json:"id"`
	GraphID int64    `json:"graph_id"`
	Name    string   `json:"name"`
	Tags    []string `json:"tags"`
}

// HasTag reports whether the node carries tag.
func (n Node) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Connector is a named attachment point on a node. The empty name is
// reserved for the implicit default connector of graphs without connectors.
type Connector struct {
	ID     int64  `json:"id"`
	NodeID int64  `json:"node_id"`
	Name   string `json:"name"`
}

// IsDefault reports whether c is an implicit default connector.
func (c Connector) IsDefault() bool {
	return c.Name == ""
}

// Edge links two connectors.
type Edge struct {
	ID              int64   `json:"id"`
	FromConnectorID int64   `json:"from_connector_id"`
	ToConnectorID   int64   `json:"to_connector_id"`
	Bidirectional   bool    `json:"bidirectional"`
	Name            string  `json:"name"`
	Weight          float64 `json:"weight"`
}

// Touches reports whether either endpoint of e is connectorID.
func (e Edge) Touches(connectorID int64) bool {
	return e.FromConnectorID == connectorID || e.ToConnectorID == connectorID
}

// Other returns the endpoint opposite to connectorID.
func (e Edge) Other(connectorID int64) int64 {
	if e.FromConnectorID == connectorID {
		return e.ToConnectorID
	}
	return e.FromConnectorID
}

// Clique is a named, weighted grouping of nodes within a graph.
type Clique struct {
	ID         int64   `json:"id"`
	GraphID    int64   `json:"graph_id"`
	Name       string  `json:"name"`
	EdgeWeight float64 `json:"edge_weight"`
}

// CliqueMembership is one row of the clique/node cross reference.
type CliqueMembership struct {
	CliqueID int64 `json:"clique_id"`
	NodeID   int64 `json:"node_id"`
}

// FullGraph is a graph together with its nodes and resolved starting node.
type FullGraph struct {
	Graph
	Nodes        []Node `json:"nodes"`
	StartingNode *Node  `json:"starting_node,omitempty"`
}

// NewFullGraph resolves the starting node of g among nodes. A starting node
// id that does not match any node resolves to nil.
func NewFullGraph(g Graph, nodes []Node) FullGraph {
	fg := FullGraph{Graph: g, Nodes: nodes}
	if fg.Nodes == nil {
		fg.Nodes = []Node{}
	}
	if g.StartingNodeID != nil {
		for i := range nodes {
			if nodes[i].ID == *g.StartingNodeID {
				n := nodes[i]
				fg.StartingNode = &n
				break
			}
		}
	}
	return fg
}

// CliqueWithNodes is a clique and its member nodes.
type CliqueWithNodes struct {
	Clique
	Nodes []Node `json:"nodes"`
}

// NodeWithCliques is a node and the cliques it belongs to.
type NodeWithCliques struct {
	Node
	Cliques []Clique `json:"cliques"`
}

// ConnectorEdge is an edge seen from one of its connectors.
type ConnectorEdge struct {
	Edge
	OtherConnectorID int64  `json:"other_connector_id"`
	OtherNodeID      int64  `json:"other_node_id"`
	DisplayName      string `json:"display_name"`
}

// UnconnectedConnector is a connector without edges, with its owning node.
type UnconnectedConnector struct {
	Connector Connector `json:"connector"`
	Node      *Node     `json:"node,omitempty"`
}
