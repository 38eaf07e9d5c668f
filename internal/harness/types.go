package harness

import (
	"github.com/AplusKminus/GraphWalker/internal/live"
)

// TraceStep records one executed step: its resolved arguments, what it
// returned and the changes it published.
type TraceStep struct {
	Index   int            `json:"index"`
	Op      string         `json:"op"`
	Args    map[string]any `json:"args,omitempty"`
	Case    string         `json:"case"`
	Output  map[string]any `json:"output,omitempty"`
	Error   string         `json:"error,omitempty"`
	Changes []live.Change  `json:"changes,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds one entry per step, in order.
	Trace []TraceStep `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Refs maps every "as" binding to the id it received.
	Refs map[string]int64 `json:"refs,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceStep{},
		Errors: []string{},
		Refs:   map[string]int64{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Changes returns every change recorded in the trace, in order.
func (r *Result) Changes() []live.Change {
	var out []live.Change
	for _, s := range r.Trace {
		out = append(out, s.Changes...)
	}
	return out
}
