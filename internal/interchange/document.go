// Package interchange moves whole graphs in and out of the store as
// portable documents.
//
// A Document carries no database ids. Nodes get document-local keys, edges
// name their endpoints by node key and connector name, cliques list member
// keys. Documents are written as JSON or YAML and read from JSON, YAML,
// CUE or HCL.
package interchange

import (
	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/model"
)

// Document is a portable description of one graph.
type Document struct {
	Version string           `json:"version" yaml:"version"`
	Name    string           `json:"name" yaml:"name"`
	Flags   model.GraphFlags `json:"flags" yaml:"flags"` // omitted keys take model.DefaultFlags
	Start   string           `json:"start,omitempty" yaml:"start,omitempty"`
	Nodes   []NodeDoc        `json:"nodes" yaml:"nodes"`
	Edges   []EdgeDoc        `json:"edges,omitempty" yaml:"edges,omitempty"`
	Cliques []CliqueDoc      `json:"cliques,omitempty" yaml:"cliques,omitempty"`
}

// NodeDoc is a node with its tags and connectors.
type NodeDoc struct {
	Key        string   `json:"key" yaml:"key"`
	Name       string   `json:"name" yaml:"name"`
	Tags       []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Connectors []string `json:"connectors,omitempty" yaml:"connectors,omitempty"`
}

// Endpoint names a connector by its node's key and its own name. An empty
// connector means the node's default connector.
type Endpoint struct {
	Node      string `json:"node" yaml:"node"`
	Connector string `json:"connector,omitempty" yaml:"connector,omitempty"`
}

// EdgeDoc is an edge between two endpoints. A nil weight means
// model.DefaultWeight.
type EdgeDoc struct {
	From          Endpoint `json:"from" yaml:"from"`
	To            Endpoint `json:"to" yaml:"to"`
	Name          string   `json:"name,omitempty" yaml:"name,omitempty"`
	Weight        *float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
	Bidirectional bool     `json:"bidirectional,omitempty" yaml:"bidirectional,omitempty"`
}

// CliqueDoc is a clique and the keys of its members.
type CliqueDoc struct {
	Name       string   `json:"name" yaml:"name"`
	EdgeWeight *float64 `json:"edge_weight,omitempty" yaml:"edge_weight,omitempty"`
	Nodes      []string `json:"nodes" yaml:"nodes"`
}

// Validate checks the rules a schema cannot express: unique node keys and
// resolvable references. Connector references are checked by Import, since
// default connectors are created on demand.
func (d *Document) Validate() error {
	if d.Version != "" && d.Version != model.DocumentVersion {
		return errors.Invalidf("unsupported document version %q", d.Version)
	}
	if model.NormalizeName(d.Name) == "" {
		return errors.Invalidf("document has no graph name")
	}

	keys := make(map[string]bool, len(d.Nodes))
	for i, n := range d.Nodes {
		if n.Key == "" {
			return errors.Invalidf("nodes[%d] has no key", i)
		}
		if keys[n.Key] {
			return errors.Invalidf("duplicate node key %q", n.Key)
		}
		keys[n.Key] = true
		if model.NormalizeName(n.Name) == "" {
			return errors.Invalidf("node %q has no name", n.Key)
		}
		seen := map[string]bool{}
		for _, c := range n.Connectors {
			if seen[c] {
				return errors.Invalidf("node %q lists connector %q twice", n.Key, c)
			}
			seen[c] = true
		}
	}

	if d.Start != "" && !keys[d.Start] {
		return errors.Invalidf("start refers to unknown node %q", d.Start)
	}
	for i, e := range d.Edges {
		for _, end := range []Endpoint{e.From, e.To} {
			if !keys[end.Node] {
				return errors.Invalidf("edges[%d] refers to unknown node %q", i, end.Node)
			}
		}
	}
	for _, c := range d.Cliques {
		if model.NormalizeName(c.Name) == "" {
			return errors.Invalidf("clique without name")
		}
		for _, k := range c.Nodes {
			if !keys[k] {
				return errors.Invalidf("clique %q refers to unknown node %q", c.Name, k)
			}
		}
	}
	return nil
}

func weightOr(w *float64) float64 {
	if w == nil {
		return model.DefaultWeight
	}
	return *w
}

func weightPtr(w float64) *float64 {
	if w == model.DefaultWeight {
		return nil
	}
	return &w
}

// normalize fills defaults that decoders may leave zero.
func (d *Document) normalize() {
	if d.Version == "" {
		d.Version = model.DocumentVersion
	}
	if d.Nodes == nil {
		d.Nodes = []NodeDoc{}
	}
}
