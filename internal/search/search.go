// Package search finds nodes, connectors, edges and cliques of one graph by
// case-insensitive substring match.
package search

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/model"
)

// Filter restricts a search to one kind of entity.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterNodes      Filter = "nodes"
	FilterConnectors Filter = "connectors"
	FilterEdges      Filter = "edges"
	FilterCliques    Filter = "cliques"
)

// Kind is the kind of entity a Result points at.
type Kind string

const (
	KindNode      Kind = "node"
	KindConnector Kind = "connector"
	KindEdge      Kind = "edge"
	KindClique    Kind = "clique"
)

var kindRank = map[Kind]int{KindNode: 0, KindConnector: 1, KindEdge: 2, KindClique: 3}

// Input is everything a search looks at. Connectors and edges outside the
// graph are ignored.
type Input struct {
	Graph      model.Graph
	Nodes      []model.Node
	Connectors []model.Connector
	Edges      []model.Edge
	Cliques    []model.CliqueWithNodes
}

// Result is one match, ready for display.
type Result struct {
	Kind    Kind     `json:"kind"`
	ID      int64    `json:"id"`
	Title   string   `json:"title"`
	Context []string `json:"context"`

	// NodeID is the node to navigate to, when there is one.
	NodeID int64 `json:"node_id,omitempty"`
}

// ParseFilter accepts a filter name, case-insensitively. Blank means all.
func ParseFilter(s string) (Filter, error) {
	f := Filter(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterNodes, FilterConnectors, FilterEdges, FilterCliques:
		return f, nil
	}
	return "", errors.Invalidf("unknown search filter %q", s)
}

// AvailableFilters returns the filters that make sense for g. Connectors
// are searchable only in graphs with connectors, edges only in graphs with
// edge labels.
func AvailableFilters(g model.Graph) []Filter {
	out := []Filter{FilterAll, FilterNodes}
	if g.HasConnectors {
		out = append(out, FilterConnectors)
	}
	if g.HasEdgeLabels {
		out = append(out, FilterEdges)
	}
	return append(out, FilterCliques)
}

// Allowed reports whether f is one of AvailableFilters(g).
func Allowed(g model.Graph, f Filter) bool {
	for _, a := range AvailableFilters(g) {
		if a == f {
			return true
		}
	}
	return false
}

// Run searches in for text. Blank text yields an empty result. Results are
// ordered by kind (nodes, connectors, edges, cliques), then id.
func Run(in Input, text string, f Filter) []Result {
	results := []Result{}
	if strings.TrimSpace(text) == "" {
		return results
	}
	// Casers are stateful, so each run gets its own.
	folder := cases.Fold()
	query := folder.String(text)
	match := func(s string) bool { return strings.Contains(folder.String(s), query) }
	want := func(k Filter) bool { return f == FilterAll || f == k }

	nodes := make(map[int64]model.Node, len(in.Nodes))
	for _, n := range in.Nodes {
		nodes[n.ID] = n
	}
	conns := make(map[int64]model.Connector)
	for _, c := range in.Connectors {
		if _, ok := nodes[c.NodeID]; ok {
			conns[c.ID] = c
		}
	}

	if want(FilterNodes) {
		for _, n := range in.Nodes {
			if match(n.Name) || anyMatch(n.Tags, match) {
				results = append(results, nodeResult(n))
			}
		}
	}

	if want(FilterConnectors) {
		for _, c := range in.Connectors {
			if _, ok := conns[c.ID]; ok && match(c.Name) {
				results = append(results, connectorResult(c, nodes))
			}
		}
	}

	if want(FilterEdges) {
		for _, e := range in.Edges {
			_, fromOK := conns[e.FromConnectorID]
			_, toOK := conns[e.ToConnectorID]
			if (fromOK || toOK) && match(e.Name) {
				results = append(results, edgeResult(e, conns, nodes))
			}
		}
	}

	if want(FilterCliques) {
		for _, c := range in.Cliques {
			if match(c.Name) {
				results = append(results, Result{
					Kind:    KindClique,
					ID:      c.ID,
					Title:   c.Name,
					Context: []string{fmt.Sprintf("Nodes: %d", len(c.Nodes))},
				})
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Kind != results[j].Kind {
			return kindRank[results[i].Kind] < kindRank[results[j].Kind]
		}
		return results[i].ID < results[j].ID
	})
	return results
}

func anyMatch(ss []string, match func(string) bool) bool {
	for _, s := range ss {
		if match(s) {
			return true
		}
	}
	return false
}

func nodeResult(n model.Node) Result {
	r := Result{Kind: KindNode, ID: n.ID, Title: n.Name, Context: []string{}, NodeID: n.ID}
	if len(n.Tags) > 0 {
		r.Context = append(r.Context, "Tags: "+strings.Join(n.Tags, ", "))
	}
	return r
}

func connectorResult(c model.Connector, nodes map[int64]model.Node) Result {
	title := c.Name
	if strings.TrimSpace(title) == "" {
		title = "(Unnamed connector)"
	}
	nodeName := "Unknown"
	if n, ok := nodes[c.NodeID]; ok {
		nodeName = n.Name
	}
	return Result{
		Kind:    KindConnector,
		ID:      c.ID,
		Title:   title,
		Context: []string{"In node: " + nodeName},
		NodeID:  c.NodeID,
	}
}

func edgeResult(e model.Edge, conns map[int64]model.Connector, nodes map[int64]model.Node) Result {
	from := endpoint(e.FromConnectorID, conns, nodes)
	to := endpoint(e.ToConnectorID, conns, nodes)
	title := e.Name
	if strings.TrimSpace(title) == "" {
		title = "(Unnamed edge)"
	}
	r := Result{
		Kind:    KindEdge,
		ID:      e.ID,
		Title:   title,
		Context: []string{fmt.Sprintf("%s %s %s", from, Arrow(e), to)},
	}
	if e.Weight != model.DefaultWeight {
		r.Context = append(r.Context, "Weight: "+FormatWeight(e.Weight))
	}
	return r
}

// endpoint renders "Node:Connector" with blank connector names shown as
// "(unnamed)" and unresolvable parts as "Unknown".
func endpoint(connectorID int64, conns map[int64]model.Connector, nodes map[int64]model.Node) string {
	c, ok := conns[connectorID]
	if !ok {
		return "Unknown:Unknown"
	}
	nodeName := "Unknown"
	if n, ok := nodes[c.NodeID]; ok {
		nodeName = n.Name
	}
	connName := c.Name
	if strings.TrimSpace(connName) == "" {
		connName = "(unnamed)"
	}
	return nodeName + ":" + connName
}

// Arrow returns "↔" for bidirectional edges and "→" otherwise.
func Arrow(e model.Edge) string {
	if e.Bidirectional {
		return "↔"
	}
	return "→"
}

// FormatWeight renders w with at least one decimal place, so 2 prints as "2.0".
func FormatWeight(w float64) string {
	s := strconv.FormatFloat(w, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
