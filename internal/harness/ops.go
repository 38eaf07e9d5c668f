package harness

import (
	"context"
	"fmt"
	"math"

	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/interchange"
	"github.com/AplusKminus/GraphWalker/internal/model"
	"github.com/AplusKminus/GraphWalker/internal/repository"
)

// opFunc runs one operation. The returned map is the step's output; an
// "id" entry is what "as" binds.
type opFunc func(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error)

var operations = map[string]opFunc{
	"create_graph":              createGraph,
	"rename_graph":              renameGraph,
	"set_flags":                 setFlags,
	"set_starting_node":         setStartingNode,
	"create_starting_node":      createStartingNode,
	"delete_graph":              deleteGraph,
	"add_node":                  addNode,
	"rename_node":               renameNode,
	"delete_node":               deleteNode,
	"add_tag":                   addTag,
	"remove_tag":                removeTag,
	"update_tag":                updateTag,
	"add_connector":             addConnector,
	"rename_connector":          renameConnector,
	"delete_connector":          deleteConnector,
	"ensure_default_connector":  ensureDefaultConnector,
	"create_node_and_connector": createNodeAndConnector,
	"create_edge":               createEdge,
	"connect_nodes":             connectNodes,
	"update_edge":               updateEdge,
	"delete_edge":               deleteEdge,
	"create_clique":             createClique,
	"update_clique":             updateClique,
	"delete_clique":             deleteClique,
	"add_to_clique":             addToClique,
	"remove_from_clique":        removeFromClique,
	"clear_clique":              clearClique,
	"import":                    importDocument,
	"export":                    exportDocument,
}

func idOutput(id int64) map[string]any { return map[string]any{"id": id} }

func changedOutput(changed bool) map[string]any { return map[string]any{"changed": changed} }

func flags(a *args) model.GraphFlags {
	return model.GraphFlags{
		Directed:       a.boolean("directed"),
		HasEdgeWeights: a.boolean("has_edge_weights"),
		HasEdgeLabels:  a.boolean("has_edge_labels"),
		HasConnectors:  a.boolean("has_connectors"),
	}
}

func createGraph(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	id, err := r.CreateGraph(ctx, a.str("name"), flags(a))
	return idOutput(id), err
}

func renameGraph(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	return nil, r.RenameGraph(ctx, a.id("id"), a.str("name"))
}

func setFlags(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	return nil, r.SetFlags(ctx, a.id("id"), flags(a))
}

func setStartingNode(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	var node *int64
	if a.has("node") {
		id := a.id("node")
		node = &id
	}
	return nil, r.SetStartingNode(ctx, a.id("graph"), node)
}

func createStartingNode(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	id, err := r.CreateStartingNode(ctx, a.id("graph"), a.str("name"))
	return idOutput(id), err
}

func deleteGraph(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	return nil, r.DeleteGraph(ctx, a.id("id"))
}

func addNode(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	id, err := r.AddNode(ctx, a.id("graph"), a.str("name"), a.strings("tags")...)
	return idOutput(id), err
}

func renameNode(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	return nil, r.RenameNode(ctx, a.id("id"), a.str("name"))
}

func deleteNode(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	return nil, r.DeleteNode(ctx, a.id("id"))
}

func addTag(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	changed, err := r.AddTag(ctx, a.id("node"), a.str("tag"))
	return changedOutput(changed), err
}

func removeTag(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	changed, err := r.RemoveTag(ctx, a.id("node"), a.str("tag"))
	return changedOutput(changed), err
}

func updateTag(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	changed, err := r.UpdateTag(ctx, a.id("node"), a.str("old"), a.str("new"))
	return changedOutput(changed), err
}

func addConnector(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	id, err := r.AddConnector(ctx, a.id("node"), a.str("name"))
	return idOutput(id), err
}

func renameConnector(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	return nil, r.RenameConnector(ctx, a.id("id"), a.str("name"))
}

func deleteConnector(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	return nil, r.DeleteConnector(ctx, a.id("id"))
}

func ensureDefaultConnector(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	c, err := r.EnsureDefaultConnector(ctx, a.id("node"))
	return idOutput(c.ID), err
}

func createNodeAndConnector(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	nodeID, connectorID, err := r.CreateNodeAndConnector(ctx, a.id("graph"), a.str("name"), a.str("connector"))
	return map[string]any{"id": nodeID, "connector_id": connectorID}, err
}

// edgeAttrs overlays name, weight and bidirectional onto e when present.
func edgeAttrs(a *args, e model.Edge) model.Edge {
	if a.has("name") {
		e.Name = a.str("name")
	}
	if a.has("weight") {
		e.Weight = a.float("weight")
	}
	if a.has("bidirectional") {
		e.Bidirectional = a.boolean("bidirectional")
	}
	return e
}

func createEdge(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	e := edgeAttrs(a, model.Edge{
		FromConnectorID: a.id("from"),
		ToConnectorID:   a.id("to"),
		Weight:          model.DefaultWeight,
	})
	id, err := r.CreateEdge(ctx, e)
	return idOutput(id), err
}

func connectNodes(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	e := edgeAttrs(a, model.Edge{Weight: model.DefaultWeight})
	id, err := r.ConnectNodes(ctx, a.id("from"), a.id("to"), e)
	return idOutput(id), err
}

func updateEdge(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	id := a.id("id")
	cur, err := r.Edge(id).Get(ctx)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, errors.NotFoundf("edge %d", id)
	}
	e := edgeAttrs(a, *cur)
	if a.has("from") {
		e.FromConnectorID = a.id("from")
	}
	if a.has("to") {
		e.ToConnectorID = a.id("to")
	}
	return nil, r.UpdateEdge(ctx, e)
}

func deleteEdge(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	return nil, r.DeleteEdge(ctx, a.id("id"))
}

func createClique(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	weight := model.DefaultWeight
	if a.has("edge_weight") {
		weight = a.float("edge_weight")
	}
	id, err := r.CreateClique(ctx, a.id("graph"), a.str("name"), weight)
	return idOutput(id), err
}

func updateClique(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	id := a.id("id")
	cur, err := r.CliqueWithNodes(id).Get(ctx)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, errors.NotFoundf("clique %d", id)
	}
	c := cur.Clique
	if a.has("name") {
		c.Name = a.str("name")
	}
	if a.has("edge_weight") {
		c.EdgeWeight = a.float("edge_weight")
	}
	return nil, r.UpdateClique(ctx, c)
}

func deleteClique(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	return nil, r.DeleteClique(ctx, a.id("id"))
}

func addToClique(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	return nil, r.AddNodeToClique(ctx, a.id("clique"), a.id("node"))
}

func removeFromClique(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	return nil, r.RemoveNodeFromClique(ctx, a.id("clique"), a.id("node"))
}

func clearClique(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	n, err := r.ClearClique(ctx, a.id("clique"))
	return map[string]any{"removed": n}, err
}

func importDocument(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	format := interchange.FormatYAML
	if a.has("format") {
		f, err := interchange.ParseFormat(a.str("format"))
		if err != nil {
			return nil, err
		}
		format = f
	}
	doc, err := interchange.Decode([]byte(a.str("document")), format)
	if err != nil {
		return nil, err
	}
	id, err := interchange.Import(ctx, r, doc)
	return idOutput(id), err
}

func exportDocument(ctx context.Context, r *repository.Repository, a *args) (map[string]any, error) {
	doc, err := interchange.Export(ctx, r, a.id("graph"))
	if err != nil {
		return nil, err
	}
	fp, err := interchange.Fingerprint(doc)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"fingerprint": fp,
		"nodes":       len(doc.Nodes),
		"edges":       len(doc.Edges),
		"cliques":     len(doc.Cliques),
	}, nil
}

// args reads typed step arguments. The first type mismatch is kept in err
// and aborts the scenario; missing arguments read as zero values.
type args struct {
	values map[string]any
	err    error
}

func (a *args) has(key string) bool {
	_, ok := a.values[key]
	return ok
}

func (a *args) fail(key, want string, got any) {
	if a.err == nil {
		a.err = fmt.Errorf("arg %q: want %s, got %T", key, want, got)
	}
}

func (a *args) id(key string) int64 {
	v, ok := a.values[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case uint64:
		return int64(n)
	case float64:
		if n == math.Trunc(n) {
			return int64(n)
		}
	}
	a.fail(key, "an integer id", v)
	return 0
}

func (a *args) str(key string) string {
	v, ok := a.values[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		a.fail(key, "a string", v)
	}
	return s
}

func (a *args) float(key string) float64 {
	switch n := a.values[key].(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	default:
		a.fail(key, "a number", n)
		return 0
	}
}

func (a *args) boolean(key string) bool {
	v, ok := a.values[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		a.fail(key, "a bool", v)
	}
	return b
}

func (a *args) strings(key string) []string {
	v, ok := a.values[key]
	if !ok || v == nil {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		a.fail(key, "a list of strings", v)
		return nil
	}
	out := make([]string, 0, len(list))
	for _, elem := range list {
		s, ok := elem.(string)
		if !ok {
			a.fail(key, "a list of strings", elem)
			return nil
		}
		out = append(out, s)
	}
	return out
}
