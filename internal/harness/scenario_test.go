package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	scenarioPath := filepath.Join(dir, "test.yaml")

	content := `
name: test_scenario
description: "Test scenario for validation"
steps:
  - op: create_graph
    as: g
    args:
      name: Metro
      directed: true
  - op: add_node
    args: { graph: $g, name: Alpha, tags: [start] }
assertions:
  - type: view
    view: nodes
    id: $g
    count: 1
`
	require.NoError(t, os.WriteFile(scenarioPath, []byte(content), 0644))

	scenario, err := LoadScenario(scenarioPath)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	require.Len(t, scenario.Steps, 2)
	assert.Equal(t, "create_graph", scenario.Steps[0].Op)
	assert.Equal(t, "g", scenario.Steps[0].As)
	assert.Equal(t, "Metro", scenario.Steps[0].Args["name"])
	assert.Equal(t, "$g", scenario.Steps[1].Args["graph"])
	require.Len(t, scenario.Assertions, 1)
	require.NotNil(t, scenario.Assertions[0].Count)
	assert.Equal(t, 1, *scenario.Assertions[0].Count)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_RejectsUnknownFields(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: "steps misspelled"
step:
  - op: create_graph
    args: { name: X }
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\nsteps: [{op: create_graph, args: {}}]",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\nsteps: [{op: create_graph, args: {}}]",
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			yaml:    "name: n\ndescription: d\nsteps: []",
			wantErr: "steps list is required",
		},
		{
			name:    "unknown op",
			yaml:    "name: n\ndescription: d\nsteps: [{op: launch_rocket, args: {}}]",
			wantErr: `unknown op "launch_rocket"`,
		},
		{
			name:    "missing args",
			yaml:    "name: n\ndescription: d\nsteps: [{op: create_graph}]",
			wantErr: "args is required",
		},
		{
			name:    "bad case",
			yaml:    "name: n\ndescription: d\nsteps: [{op: create_graph, args: {}, expect: {case: maybe}}]",
			wantErr: `unknown case "maybe"`,
		},
		{
			name:    "rebinding",
			yaml:    "name: n\ndescription: d\nsteps: [{op: create_graph, as: g, args: {}}, {op: create_graph, as: g, args: {}}]",
			wantErr: `"g" is already bound`,
		},
		{
			name:    "view without check",
			yaml:    "name: n\ndescription: d\nsteps: [{op: create_graph, args: {}}]\nassertions: [{type: view, view: graphs}]",
			wantErr: "view needs count, expect, contains or missing",
		},
		{
			name:    "change_count without count",
			yaml:    "name: n\ndescription: d\nsteps: [{op: create_graph, args: {}}]\nassertions: [{type: change_count, table: edges}]",
			wantErr: "non-negative count is required",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: n\ndescription: d\nsteps: [{op: create_graph, args: {}}]\nassertions: [{type: final_state}]",
			wantErr: `unknown assertion type "final_state"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOperationNames_Sorted(t *testing.T) {
	names := OperationNames()
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "connect_nodes")
	assert.Contains(t, names, "import")
}
