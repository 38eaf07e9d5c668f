package repository

import (
	"sort"

	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/live"
	"github.com/AplusKminus/GraphWalker/internal/search"
)

// ViewArgs parameterizes a named view. ID is the graph, node, connector,
// edge or clique id the view is about; Text and Filter are used by search.
type ViewArgs struct {
	ID     int64  `json:"id"`
	Text   string `json:"text,omitempty"`
	Filter string `json:"filter,omitempty"`
}

type viewFunc func(r *Repository, a ViewArgs) (live.Query[any], error)

func erase[T any](q live.Query[T]) live.Query[any] {
	return live.Map(q, func(v T) any { return v })
}

func byID[T any](f func(r *Repository, id int64) live.Query[T]) viewFunc {
	return func(r *Repository, a ViewArgs) (live.Query[any], error) {
		return erase(f(r, a.ID)), nil
	}
}

var views = map[string]viewFunc{
	"graphs": func(r *Repository, _ ViewArgs) (live.Query[any], error) {
		return erase(r.Graphs()), nil
	},
	"full_graphs": func(r *Repository, _ ViewArgs) (live.Query[any], error) {
		return erase(r.AllFullGraphs()), nil
	},
	"graph":                byID((*Repository).Graph),
	"full_graph":           byID((*Repository).FullGraph),
	"nodes":                byID((*Repository).Nodes),
	"node":                 byID((*Repository).Node),
	"node_connectors":      byID((*Repository).NodeConnectors),
	"graph_connectors":     byID((*Repository).GraphConnectors),
	"connector":            byID((*Repository).Connector),
	"graph_edges":          byID((*Repository).GraphEdges),
	"edge":                 byID((*Repository).Edge),
	"edge_counts":          byID((*Repository).EdgeCounts),
	"connector_edges":      byID((*Repository).ConnectorEdges),
	"connected_connectors": byID((*Repository).ConnectedConnectors),
	"target_node_ids":      byID((*Repository).TargetNodeIDs),
	"unconnected":          byID((*Repository).UnconnectedConnectors),
	"cliques":              byID((*Repository).Cliques),
	"cliques_with_nodes":   byID((*Repository).CliquesWithNodes),
	"clique":               byID((*Repository).CliqueWithNodes),
	"node_with_cliques":    byID((*Repository).NodeWithCliques),
	"nodes_with_cliques":   byID((*Repository).NodesWithCliques),
	"search": func(r *Repository, a ViewArgs) (live.Query[any], error) {
		f, err := search.ParseFilter(a.Filter)
		if err != nil {
			return live.Query[any]{}, err
		}
		return erase(r.Search(a.ID, a.Text, f)), nil
	},
}

// View looks up a view by name, for callers that pick views at runtime
// such as WebSocket subscriptions and the watch command.
func (r *Repository) View(name string, args ViewArgs) (live.Query[any], error) {
	f, ok := views[name]
	if !ok {
		return live.Query[any]{}, errors.Invalidf("unknown view %q", name)
	}
	return f(r, args)
}

// ViewNames lists every view View accepts, sorted.
func ViewNames() []string {
	names := make([]string, 0, len(views))
	for name := range views {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
