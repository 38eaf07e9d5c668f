package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/AplusKminus/GraphWalker/internal/interchange"
	"github.com/AplusKminus/GraphWalker/internal/live"
)

// TraceSnapshot captures the observable behavior of a scenario run: what
// each step returned and which changes it published. Arguments and error
// messages are left out so golden files survive rewording.
type TraceSnapshot struct {
	ScenarioName string         `json:"scenario_name"`
	Steps        []SnapshotStep `json:"steps"`
}

// SnapshotStep is the golden form of a TraceStep.
type SnapshotStep struct {
	Index   int            `json:"index"`
	Op      string         `json:"op"`
	Case    string         `json:"case"`
	Output  map[string]any `json:"output,omitempty"`
	Changes []live.Change  `json:"changes,omitempty"`
}

// NewTraceSnapshot builds the snapshot of result.
func NewTraceSnapshot(name string, result *Result) TraceSnapshot {
	s := TraceSnapshot{ScenarioName: name, Steps: make([]SnapshotStep, len(result.Trace))}
	for i, ts := range result.Trace {
		s.Steps[i] = SnapshotStep{
			Index:   ts.Index,
			Op:      ts.Op,
			Case:    ts.Case,
			Output:  ts.Output,
			Changes: ts.Changes,
		}
	}
	return s
}

// MarshalSnapshot renders the snapshot as canonical JSON.
func (s TraceSnapshot) MarshalSnapshot() ([]byte, error) {
	return interchange.MarshalCanonical(s)
}

// RunWithGolden executes a scenario and compares its trace against a golden
// file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewTraceSnapshot(scenarioName, result).MarshalSnapshot()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
