package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AplusKminus/GraphWalker/internal/neo4jsync"
)

// cliDB runs commands against one database file.
type cliDB struct {
	t    *testing.T
	path string
}

func newCLIDB(t *testing.T) *cliDB {
	return &cliDB{t: t, path: filepath.Join(t.TempDir(), "cli.db")}
}

// run executes args and returns stdout.
func (c *cliDB) run(args ...string) (string, error) {
	c.t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(append([]string{"--db", c.path}, args...))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// json executes args with --format json and decodes the envelope data.
func (c *cliDB) json(v any, args ...string) {
	c.t.Helper()
	out, err := c.run(append([]string{"--format", "json"}, args...)...)
	require.NoError(c.t, err, "%v: %s", args, out)
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(c.t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(c.t, "ok", resp.Status)
	if v == nil {
		return
	}
	data := resp.Data
	if len(data) == 0 {
		// Empty lists are omitted from the envelope.
		data = json.RawMessage("null")
	}
	require.NoError(c.t, json.Unmarshal(data, v), string(data))
}

func (c *cliDB) id(args ...string) int64 {
	c.t.Helper()
	var res createdResult
	c.json(&res, args...)
	require.NotZero(c.t, res.ID)
	return res.ID
}

func str(id int64) string { return fmt.Sprint(id) }

// metroCLI builds a small graph through the CLI and returns its ids.
type metroCLI struct {
	graph, depot, yard, north, south, edge, core int64
}

func seedCLI(t *testing.T, c *cliDB) metroCLI {
	t.Helper()
	var m metroCLI
	m.graph = c.id("graph", "create", "Metro", "--weights", "--labels", "--connectors")

	var n nodeCreated
	c.json(&n, "node", "add", str(m.graph), "Depot", "--connector", "north", "--tag", "yard")
	m.depot, m.north = n.ID, *n.ConnectorID
	c.json(&n, "node", "add", str(m.graph), "Yard", "--connector", "south")
	m.yard, m.south = n.ID, *n.ConnectorID

	m.edge = c.id("edge", "add", str(m.north), str(m.south), "--name", "Line 1", "--weight", "2.5")
	m.core = c.id("clique", "create", str(m.graph), "Core", "--weight", "3")
	c.json(nil, "clique", "add", str(m.core), str(m.depot), str(m.yard))
	return m
}

func TestGraphCommands(t *testing.T) {
	c := newCLIDB(t)
	m := seedCLI(t, c)

	var d graphDetail
	c.json(&d, "graph", "show", str(m.graph))
	assert.Equal(t, "Metro", d.Graph.Name)
	assert.True(t, d.Graph.HasConnectors)
	require.Len(t, d.Nodes, 2)
	assert.Equal(t, []string{"yard"}, d.Nodes[0].Tags)
	require.Len(t, d.Edges, 1)
	assert.Equal(t, "Line 1", d.Edges[0].Name)
	assert.Equal(t, 2.5, d.Edges[0].Weight)
	require.Len(t, d.Cliques, 1)
	assert.Len(t, d.Cliques[0].Nodes, 2)

	out, err := c.run("graph", "show", str(m.graph))
	require.NoError(t, err)
	assert.Contains(t, out, "Graph 1: Metro (directed,weights,labels,connectors)")
	assert.Contains(t, out, "Line 1  w=2.5")
	assert.Contains(t, out, "Core  w=3  {Depot, Yard}")

	c.json(nil, "graph", "rename", str(m.graph), "Subway")
	var flags struct {
		Directed bool `json:"directed"`
		Weights  bool `json:"has_edge_weights"`
	}
	c.json(&flags, "graph", "set", str(m.graph), "--directed=false")
	assert.False(t, flags.Directed)
	assert.True(t, flags.Weights)

	out, err = c.run("graph", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Subway")
	assert.Contains(t, out, "undirected,weights,labels,connectors")

	var start map[string]*int64
	c.json(&start, "graph", "start", str(m.graph), "--create", "Hub")
	require.NotNil(t, start["starting_node_id"])
	c.json(&start, "graph", "start", str(m.graph), str(m.depot))
	assert.Equal(t, m.depot, *start["starting_node_id"])
	c.json(&start, "graph", "start", str(m.graph), "--clear")
	assert.Nil(t, start["starting_node_id"])

	_, err = c.run("graph", "set", str(m.graph))
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err = c.run("graph", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "No problems found")

	c.json(nil, "graph", "delete", str(m.graph))
	_, err = c.run("graph", "show", str(m.graph))
	assert.Equal(t, ErrCodeNotFound, errorCode(err))
}

func TestNodeAndTagCommands(t *testing.T) {
	c := newCLIDB(t)
	m := seedCLI(t, c)

	var changed struct {
		Changed bool `json:"changed"`
	}
	c.json(&changed, "node", "tag", "add", str(m.yard), "Freight")
	assert.True(t, changed.Changed)
	c.json(&changed, "node", "tag", "add", str(m.yard), "Freight")
	assert.False(t, changed.Changed)
	c.json(&changed, "node", "tag", "mv", str(m.yard), "Freight", "cargo")
	assert.True(t, changed.Changed)

	var detail nodeDetail
	c.json(&detail, "node", "show", str(m.yard))
	assert.Equal(t, []string{"cargo"}, detail.Tags)
	require.Len(t, detail.Connectors, 1)
	assert.Equal(t, "south", detail.Connectors[0].Name)
	require.Len(t, detail.Cliques, 1)

	c.json(&changed, "node", "tag", "rm", str(m.yard), "cargo")
	assert.True(t, changed.Changed)

	c.json(nil, "node", "rename", str(m.yard), "Sidings")
	c.json(&detail, "node", "show", str(m.yard))
	assert.Equal(t, "Sidings", detail.Name)

	_, err := c.run("node", "rename", str(m.yard), "   ")
	assert.Equal(t, ErrCodeInvalid, errorCode(err))

	c.json(nil, "node", "delete", str(m.yard))
	var edges []map[string]any
	c.json(&edges, "edge", "list", str(m.graph))
	assert.Empty(t, edges)
}

func TestConnectorCommands(t *testing.T) {
	c := newCLIDB(t)
	m := seedCLI(t, c)

	spare := c.id("connector", "add", str(m.depot), "spare")

	var unconnected []struct {
		Connector struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"connector"`
	}
	c.json(&unconnected, "connector", "unconnected", str(m.graph))
	require.Len(t, unconnected, 1)
	assert.Equal(t, spare, unconnected[0].Connector.ID)

	out, err := c.run("connector", "list", str(m.depot))
	require.NoError(t, err)
	assert.Contains(t, out, "north")
	assert.Contains(t, out, "spare")

	out, err = c.run("connector", "edges", str(m.south))
	require.NoError(t, err)
	assert.Contains(t, out, "Depot (north)")

	c.json(nil, "connector", "rename", str(spare), "north")
	_, err = c.run("export", str(m.graph))
	assert.Equal(t, ErrCodeConflict, errorCode(err))
	c.json(nil, "connector", "rename", str(spare), "east")

	c.json(nil, "connector", "delete", str(m.north))
	var edges []map[string]any
	c.json(&edges, "edge", "list", str(m.graph))
	assert.Empty(t, edges)
}

func TestEdgeCommands(t *testing.T) {
	c := newCLIDB(t)
	m := seedCLI(t, c)

	c.json(nil, "edge", "update", str(m.edge), "--weight", "4", "--bidirectional")
	var edges []struct {
		ID            int64   `json:"id"`
		Name          string  `json:"name"`
		Weight        float64 `json:"weight"`
		Bidirectional bool    `json:"bidirectional"`
	}
	c.json(&edges, "edge", "list", str(m.graph))
	require.Len(t, edges, 1)
	assert.Equal(t, "Line 1", edges[0].Name)
	assert.Equal(t, 4.0, edges[0].Weight)
	assert.True(t, edges[0].Bidirectional)

	plain := c.id("graph", "create", "Plain")
	a := c.id("node", "add", str(plain), "A")
	b := c.id("node", "add", str(plain), "B")
	c.id("edge", "connect", str(a), str(b), "--name", "ignored", "--weight", "9")
	c.json(&edges, "edge", "list", str(plain))
	require.Len(t, edges, 1)
	assert.Equal(t, "", edges[0].Name)
	assert.Equal(t, 1.0, edges[0].Weight)

	_, err := c.run("edge", "add", str(m.north), "999")
	assert.Error(t, err)

	c.json(nil, "edge", "delete", str(m.edge))
	c.json(&edges, "edge", "list", str(m.graph))
	assert.Empty(t, edges)
}

func TestCliqueCommands(t *testing.T) {
	c := newCLIDB(t)
	m := seedCLI(t, c)

	c.json(nil, "clique", "update", str(m.core), "--name", "Centre")
	out, err := c.run("clique", "list", str(m.graph))
	require.NoError(t, err)
	assert.Contains(t, out, "Centre")
	assert.Contains(t, out, "Depot, Yard")

	c.json(nil, "clique", "rm", str(m.core), str(m.yard))
	out, err = c.run("clique", "show", str(m.core))
	require.NoError(t, err)
	assert.Contains(t, out, "Clique 1: Centre (weight 3)")
	assert.NotContains(t, out, "Yard")

	var cleared map[string]int64
	c.json(&cleared, "clique", "clear", str(m.core))
	assert.Equal(t, int64(1), cleared["removed"])

	c.json(nil, "clique", "delete", str(m.core))
	_, err = c.run("clique", "show", str(m.core))
	assert.Equal(t, ErrCodeNotFound, errorCode(err))
}

func TestSearchCommand(t *testing.T) {
	c := newCLIDB(t)
	m := seedCLI(t, c)

	out, err := c.run("search", str(m.graph), "LINE")
	require.NoError(t, err)
	assert.Contains(t, out, "edge")
	assert.Contains(t, out, "Line 1")

	out, err = c.run("search", str(m.graph), "yard", "--filter", "nodes")
	require.NoError(t, err)
	assert.Contains(t, out, "Depot")
	assert.Contains(t, out, "Yard")

	_, err = c.run("search", str(m.graph), "x", "--filter", "planets")
	assert.Equal(t, ErrCodeInvalid, errorCode(err))
}

func TestExportImportCommands(t *testing.T) {
	c := newCLIDB(t)
	m := seedCLI(t, c)
	dir := t.TempDir()
	file := filepath.Join(dir, "metro.yaml")

	var exp ExportResult
	c.json(&exp, "export", str(m.graph), "-o", file)
	assert.Equal(t, "yaml", exp.Format)
	assert.Len(t, exp.Fingerprint, 64)
	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Equal(t, int64(exp.Bytes), info.Size())

	var imp ImportResult
	c.json(&imp, "import", file)
	assert.Equal(t, "Metro", imp.Name)
	assert.Equal(t, 2, imp.Nodes)
	assert.Equal(t, 1, imp.Edges)
	assert.Equal(t, exp.Fingerprint, imp.Fingerprint)

	var again ExportResult
	c.json(&again, "export", str(imp.GraphID), "-o", filepath.Join(dir, "copy.json"))
	assert.Equal(t, exp.Fingerprint, again.Fingerprint)

	out, err := c.run("export", str(m.graph))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "{"))

	out, err = c.run("export", str(m.graph), "-o", filepath.Join(dir, "m.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "Exported graph 1 to")
	assert.Regexp(t, `\(\d+(\.\d+)? [kM]?B\)`, out)

	_, err = c.run("export", str(m.graph), "--as", "hcl")
	assert.Equal(t, ErrCodeInvalid, errorCode(err))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"version":"1","name":"X","nodes":[{"key":"a","name":""}]}`), 0o644))
	_, err = c.run("import", bad)
	assert.Equal(t, ErrCodeInvalid, errorCode(err))

	_, err = c.run("import", filepath.Join(dir, "missing.json"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestImportFromStdinHCL(t *testing.T) {
	c := newCLIDB(t)
	doc := `
version = "1"
name    = "Loop"

node "a" {
  name = "A"
}
node "b" {
  name = "B"
}

edge {
  from = "a"
  to   = "b"
}
`
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--db", c.path, "--format", "json", "import", "-", "--as", "hcl"})
	cmd.SetIn(strings.NewReader(doc))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	require.NoError(t, cmd.Execute(), out.String())
	assert.Contains(t, out.String(), `"name":"Loop"`)
	assert.Contains(t, out.String(), `"edges":1`)
}

type recordingRunner struct {
	batches [][]neo4jsync.Statement
}

func (r *recordingRunner) RunWrite(ctx context.Context, stmts []neo4jsync.Statement) error {
	r.batches = append(r.batches, stmts)
	return nil
}

func TestNeo4jCommands(t *testing.T) {
	rec := &recordingRunner{}
	var gotURI string
	orig := connectRunner
	connectRunner = func(ctx context.Context, opts *RootOptions, uri string) (neo4jsync.Runner, func(), error) {
		gotURI = uri
		return rec, func() {}, nil
	}
	t.Cleanup(func() { connectRunner = orig })

	c := newCLIDB(t)
	m := seedCLI(t, c)

	var res pushResult
	c.json(&res, "neo4j", "push", str(m.graph), "--uri", "bolt://example:7687")
	assert.Equal(t, "graph-1", res.Key)
	assert.Equal(t, "bolt://example:7687", gotURI)
	require.Len(t, rec.batches, 1)
	assert.Equal(t, neo4jsync.ResetStatement("graph-1"), rec.batches[0][0])

	c.json(nil, "neo4j", "reset", "graph-1")
	require.Len(t, rec.batches, 2)
	assert.Equal(t, []neo4jsync.Statement{neo4jsync.ResetStatement("graph-1")}, rec.batches[1])
}

func TestWatchCommand(t *testing.T) {
	c := newCLIDB(t)
	m := seedCLI(t, c)

	out, err := c.run("watch", "unconnected", "--id", str(m.graph), "--count", "1")
	require.NoError(t, err)
	sc := bufio.NewScanner(strings.NewReader(out))
	require.True(t, sc.Scan())
	var ev struct {
		View string `json:"view"`
		Data []any  `json:"data"`
	}
	require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
	assert.Equal(t, "unconnected", ev.View)
	assert.Empty(t, ev.Data)
	assert.False(t, sc.Scan())

	out, err = c.run("watch", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "full_graph\n")

	_, err = c.run("watch", "planets")
	assert.Equal(t, ErrCodeInvalid, errorCode(err))
}
