package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/AplusKminus/GraphWalker/internal/live"
	"github.com/AplusKminus/GraphWalker/internal/repository"
	"github.com/AplusKminus/GraphWalker/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Changes  []live.Change // Recorded changes for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Changes) > 0 {
		fmt.Fprintf(&buf, "\nRecorded changes:\n")
		for i, c := range e.Changes {
			fmt.Fprintf(&buf, "  [%d] %s %s %d\n", i+1, c.Op, c.Table, c.ID)
		}
	}
	return buf.String()
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Ctx  context.Context
	Repo *repository.Repository
	Refs map[string]int64
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides repository access for view and integrity
// assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertChangesContain:
			err = assertChangesContain(result.Changes(), assertion)
		case AssertChangeCount:
			err = assertChangeCount(result.Changes(), assertion)
		case AssertView, AssertIntegrity:
			if actx == nil || actx.Repo == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a repository", i, assertion.Type)
			} else if assertion.Type == AssertView {
				err = assertView(actx, assertion)
			} else {
				err = assertIntegrity(actx)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func changeMatches(c live.Change, a Assertion) bool {
	return c.Table == a.Table && (a.Op == "" || string(c.Op) == a.Op)
}

func describeChange(a Assertion) string {
	if a.Op == "" {
		return "any change to " + a.Table
	}
	return a.Op + " on " + a.Table
}

// assertChangesContain checks that at least one recorded change matches.
func assertChangesContain(changes []live.Change, a Assertion) error {
	for _, c := range changes {
		if changeMatches(c, a) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertChangesContain,
		Expected: describeChange(a),
		Actual:   "not recorded",
		Changes:  changes,
	}
}

// assertChangeCount checks the exact number of matching changes.
func assertChangeCount(changes []live.Change, a Assertion) error {
	count := 0
	for _, c := range changes {
		if changeMatches(c, a) {
			count++
		}
	}
	if count != *a.Count {
		return &AssertionError{
			Type:     AssertChangeCount,
			Expected: fmt.Sprintf("%d x %s", *a.Count, describeChange(a)),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Changes:  changes,
		}
	}
	return nil
}

// assertView evaluates a named view and checks it against the assertion.
// The view's value is compared in its JSON form, so field names are the
// JSON names the API and WebSocket clients see.
func assertView(actx *AssertionContext, a Assertion) error {
	id, err := resolveID(a.ID, actx.Refs)
	if err != nil {
		return err
	}
	q, err := actx.Repo.View(a.View, repository.ViewArgs{ID: id, Text: a.Text, Filter: a.Filter})
	if err != nil {
		return err
	}
	v, err := q.Get(actx.Ctx)
	if err != nil {
		return &AssertionError{
			Type:     AssertView,
			Expected: fmt.Sprintf("view %s(%d) to load", a.View, id),
			Actual:   err.Error(),
		}
	}
	actual, err := toJSONValue(v)
	if err != nil {
		return err
	}
	label := fmt.Sprintf("view %s(%d)", a.View, id)

	if a.Missing {
		if actual != nil {
			return &AssertionError{Type: AssertView, Expected: label + " to have no row", Actual: fmt.Sprintf("%v", actual)}
		}
		return nil
	}

	if a.Count != nil {
		n, ok := length(actual)
		if !ok {
			return &AssertionError{Type: AssertView, Expected: label + " to be a list or map", Actual: fmt.Sprintf("%T", actual)}
		}
		if n != *a.Count {
			return &AssertionError{Type: AssertView, Expected: fmt.Sprintf("%s to hold %d entries", label, *a.Count), Actual: fmt.Sprintf("%d entries", n)}
		}
	}

	if a.Expect != nil {
		if !matchSubset(actual, normalize(a.Expect)) {
			return &AssertionError{Type: AssertView, Expected: fmt.Sprintf("%s to match %v", label, a.Expect), Actual: fmt.Sprintf("%v", actual)}
		}
	}

	if a.Contains != nil {
		want := normalize(a.Contains)
		list, _ := actual.([]any)
		found := false
		for _, elem := range list {
			if matchSubset(elem, want) {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{Type: AssertView, Expected: fmt.Sprintf("%s to contain %v", label, a.Contains), Actual: fmt.Sprintf("%v", actual)}
		}
	}
	return nil
}

// assertIntegrity checks that the database holds no cross-graph links.
func assertIntegrity(actx *AssertionContext) error {
	var problems []store.Problem
	err := actx.Repo.Transact(actx.Ctx, func(q *store.Queries) error {
		var err error
		problems, err = q.CheckIntegrity(actx.Ctx)
		return err
	})
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		parts := make([]string, len(problems))
		for i, p := range problems {
			parts[i] = fmt.Sprintf("%s %d: %s", p.Kind, p.ID, p.Detail)
		}
		return &AssertionError{Type: AssertIntegrity, Expected: "no problems", Actual: strings.Join(parts, "; ")}
	}
	return nil
}

func resolveID(v any, refs map[string]int64) (int64, error) {
	switch id := v.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(id), nil
	case int64:
		return id, nil
	case string:
		if strings.HasPrefix(id, "$") {
			if n, ok := refs[id[1:]]; ok {
				return n, nil
			}
		}
		return 0, fmt.Errorf("view id %q is not bound", id)
	default:
		return 0, fmt.Errorf("view id must be an integer or $ref, got %T", v)
	}
}

func length(v any) (int, bool) {
	switch val := v.(type) {
	case nil:
		return 0, true
	case []any:
		return len(val), true
	case map[string]any:
		return len(val), true
	default:
		return 0, false
	}
}

// toJSONValue round-trips v through encoding/json so it can be compared
// with values decoded from YAML.
func toJSONValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// normalize brings YAML-decoded or Go-built expectations into JSON form:
// every number becomes float64.
func normalize(v any) any {
	out, err := toJSONValue(v)
	if err != nil {
		return v
	}
	return out
}

// matchSubset reports whether actual contains expected. Maps match when
// every expected key matches; everything else must be deeply equal.
func matchSubset(actual, expected any) bool {
	expMap, ok := expected.(map[string]any)
	if !ok {
		return reflect.DeepEqual(actual, expected)
	}
	actMap, ok := actual.(map[string]any)
	if !ok {
		return false
	}
	for key, want := range expMap {
		got, exists := actMap[key]
		if !exists {
			return false
		}
		if !matchSubset(got, want) {
			return false
		}
	}
	return true
}
