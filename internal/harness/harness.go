package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/AplusKminus/GraphWalker/internal/errors"
	"github.com/AplusKminus/GraphWalker/internal/repository"
	"github.com/AplusKminus/GraphWalker/internal/store"
)

// Harness runs scenarios against a repository.
type Harness struct {
	repo *repository.Repository
	refs map[string]int64
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database, so ids start at 1 and
// traces are identical across runs.
//
// Execution flow:
// 1. Open an in-memory store and subscribe to its change feed
// 2. Execute steps, checking each expect clause and draining the feed
// 3. Evaluate assertions
//
// Run returns an error only when the scenario itself is broken, for
// example when it references an unbound name. Failed expectations are
// reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.OpenInMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		repo: repository.New(st, repository.WithLogger(zap.NewNop().Sugar())),
		refs: map[string]int64{},
	}
	ctx := context.Background()

	result := NewResult()
	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, err
	}
	for k, v := range h.refs {
		result.Refs[k] = v
	}

	actx := &AssertionContext{Ctx: ctx, Repo: h.repo, Refs: h.refs}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// executeSteps runs every step and records it in the trace.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	sub := h.repo.Feed().Subscribe()
	defer sub.Close()

	for i, step := range steps {
		op, ok := operations[step.Op]
		if !ok {
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		resolved, err := h.resolve(step.Args)
		if err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}

		a := &args{values: resolved}
		output, opErr := op(ctx, h.repo, a)
		if a.err != nil {
			return fmt.Errorf("steps[%d] %s: %w", i, step.Op, a.err)
		}

		ts := TraceStep{
			Index:   i,
			Op:      step.Op,
			Args:    resolved,
			Case:    caseOf(opErr),
			Output:  output,
			Changes: sub.Drain(),
		}
		if opErr != nil {
			ts.Error = opErr.Error()
			ts.Output = nil
		}
		result.Trace = append(result.Trace, ts)

		if msg := checkExpect(i, step, ts); msg != "" {
			result.AddError(msg)
		}
		if opErr == nil && step.As != "" {
			h.bind(step.As, output)
		}
	}
	return nil
}

// bind stores output["id"] as name and every other integer output as
// name.key.
func (h *Harness) bind(name string, output map[string]any) {
	for k, v := range output {
		id, ok := v.(int64)
		if !ok {
			continue
		}
		if k == "id" {
			h.refs[name] = id
		} else {
			h.refs[name+"."+k] = id
		}
	}
}

// resolve replaces "$name" strings, also inside lists, with bound ids.
func (h *Harness) resolve(in map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for k, v := range in {
		r, err := h.resolveValue(v)
		if err != nil {
			return nil, fmt.Errorf("arg %q: %w", k, err)
		}
		out[k] = r
	}
	return out, nil
}

func (h *Harness) resolveValue(v any) (any, error) {
	switch val := v.(type) {
	case string:
		if !strings.HasPrefix(val, "$") {
			return val, nil
		}
		id, ok := h.refs[val[1:]]
		if !ok {
			return nil, fmt.Errorf("%s is not bound (bound: %s)", val, strings.Join(h.boundNames(), ", "))
		}
		return id, nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			r, err := h.resolveValue(elem)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	default:
		return v, nil
	}
}

func (h *Harness) boundNames() []string {
	names := make([]string, 0, len(h.refs))
	for k := range h.refs {
		names = append(names, "$"+k)
	}
	sort.Strings(names)
	return names
}

// caseOf maps an operation error to an expect case.
func caseOf(err error) string {
	switch {
	case err == nil:
		return CaseOK
	case errors.IsNotFound(err):
		return CaseNotFound
	case errors.IsInvalid(err):
		return CaseInvalid
	case errors.IsConflict(err):
		return CaseConflict
	default:
		return CaseError
	}
}

// checkExpect compares a step's outcome with its expect clause and returns
// a message when they differ.
func checkExpect(index int, step Step, ts TraceStep) string {
	want := CaseOK
	if step.Expect != nil {
		want = step.Expect.Case
	}
	if ts.Case != want {
		msg := fmt.Sprintf("steps[%d] %s: expected case %s, got %s", index, step.Op, want, ts.Case)
		if ts.Error != "" {
			msg += ": " + ts.Error
		}
		return msg
	}
	if step.Expect != nil && len(step.Expect.Result) > 0 {
		if !matchSubset(normalize(ts.Output), normalize(step.Expect.Result)) {
			return fmt.Sprintf("steps[%d] %s: expected result %v, got %v", index, step.Op, step.Expect.Result, ts.Output)
		}
	}
	return ""
}
