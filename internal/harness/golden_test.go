package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios runs every scenario under testdata/scenarios and compares
// its trace with the golden file of the same name.
func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err, path)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors=%v", result.Errors)
			assert.NotEmpty(t, result.Trace)
		})
	}
}

// TestScenariosReplay checks that running a scenario twice produces
// identical snapshots.
func TestScenariosReplay(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/metro_cascade.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := NewTraceSnapshot(scenario.Name, first).MarshalSnapshot()
	require.NoError(t, err)
	b, err := NewTraceSnapshot(scenario.Name, second).MarshalSnapshot()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestMarshalSnapshot_OmitsArgsAndErrors(t *testing.T) {
	result := NewResult()
	result.Trace = append(result.Trace, TraceStep{
		Index: 0,
		Op:    "delete_node",
		Args:  map[string]any{"id": 9},
		Case:  CaseNotFound,
		Error: "delete node 9: node 9: not found",
	})

	data, err := NewTraceSnapshot("tiny", result).MarshalSnapshot()
	require.NoError(t, err)
	assert.Equal(t, `{"scenario_name":"tiny","steps":[{"case":"not_found","index":0,"op":"delete_node"}]}`, string(data))
}
