package interchange

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/model"
)

// hclFile is the block layout of an HCL document:
//
//	name  = "Metro"
//	start = "a"
//	flags { has_connectors = true }
//	node "a" {
//	  name       = "Alpha"
//	  connectors = ["out"]
//	}
//	edge {
//	  from = "a"
//	  from_connector = "out"
//	  to   = "b"
//	}
//	clique "Line 1" { nodes = ["a", "b"] }
type hclFile struct {
	Version string      `hcl:"version,optional"`
	Name    string      `hcl:"name"`
	Start   string      `hcl:"start,optional"`
	Flags   *hclFlags   `hcl:"flags,block"`
	Nodes   []hclNode   `hcl:"node,block"`
	Edges   []hclEdge   `hcl:"edge,block"`
	Cliques []hclClique `hcl:"clique,block"`
}

type hclFlags struct {
	Directed       *bool `hcl:"directed,optional"`
	HasEdgeWeights bool  `hcl:"has_edge_weights,optional"`
	HasEdgeLabels  bool  `hcl:"has_edge_labels,optional"`
	HasConnectors  bool  `hcl:"has_connectors,optional"`
}

type hclNode struct {
	Key        string   `hcl:"key,label"`
	Name       string   `hcl:"name"`
	Tags       []string `hcl:"tags,optional"`
	Connectors []string `hcl:"connectors,optional"`
}

type hclEdge struct {
	From          string   `hcl:"from"`
	FromConnector string   `hcl:"from_connector,optional"`
	To            string   `hcl:"to"`
	ToConnector   string   `hcl:"to_connector,optional"`
	Name          string   `hcl:"name,optional"`
	Weight        *float64 `hcl:"weight,optional"`
	Bidirectional bool     `hcl:"bidirectional,optional"`
}

type hclClique struct {
	Name       string   `hcl:"name,label"`
	EdgeWeight *float64 `hcl:"edge_weight,optional"`
	Nodes      []string `hcl:"nodes"`
}

// hclEvalContext exposes default_weight and a few string helpers to
// expressions in HCL documents.
func hclEvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"default_weight": cty.NumberFloatVal(model.DefaultWeight),
		},
		Functions: map[string]function.Function{
			"upper":  stdlib.UpperFunc,
			"lower":  stdlib.LowerFunc,
			"concat": stdlib.ConcatFunc,
			"format": stdlib.FormatFunc,
		},
	}
}

func decodeHCL(data []byte) (*Document, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(data, "document.hcl")
	if diags.HasErrors() {
		return nil, errors.Invalidf("invalid HCL: %v", diags)
	}

	var parsed hclFile
	diags = gohcl.DecodeBody(f.Body, hclEvalContext(), &parsed)
	if diags.HasErrors() {
		return nil, errors.Invalidf("decode HCL: %v", diags)
	}
	return parsed.document(), nil
}

func (f *hclFile) document() *Document {
	doc := &Document{
		Version: f.Version,
		Name:    f.Name,
		Start:   f.Start,
		Flags:   model.DefaultFlags(),
	}
	if f.Flags != nil {
		if f.Flags.Directed != nil {
			doc.Flags.Directed = *f.Flags.Directed
		}
		doc.Flags.HasEdgeWeights = f.Flags.HasEdgeWeights
		doc.Flags.HasEdgeLabels = f.Flags.HasEdgeLabels
		doc.Flags.HasConnectors = f.Flags.HasConnectors
	}
	for _, n := range f.Nodes {
		doc.Nodes = append(doc.Nodes, NodeDoc{Key: n.Key, Name: n.Name, Tags: n.Tags, Connectors: n.Connectors})
	}
	for _, e := range f.Edges {
		doc.Edges = append(doc.Edges, EdgeDoc{
			From:          Endpoint{Node: e.From, Connector: e.FromConnector},
			To:            Endpoint{Node: e.To, Connector: e.ToConnector},
			Name:          e.Name,
			Weight:        e.Weight,
			Bidirectional: e.Bidirectional,
		})
	}
	for _, c := range f.Cliques {
		doc.Cliques = append(doc.Cliques, CliqueDoc{Name: c.Name, EdgeWeight: c.EdgeWeight, Nodes: c.Nodes})
	}
	return doc
}
