package harness

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted session against a fresh database: a list of
// repository operations followed by assertions on the views and on the
// changes the operations published.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Steps run in order. A step whose expect clause is missing must succeed.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// Step invokes one repository operation.
type Step struct {
	// Op names the operation, e.g. "create_graph" or "connect_nodes".
	Op string `yaml:"op"`

	// As binds the id the operation returns to a name later steps can
	// reference as "$name". Secondary ids are bound as "$name.<key>", for
	// example "$a.connector_id" after create_node_and_connector.
	As string `yaml:"as,omitempty"`

	// Args are the operation's arguments. String values starting with "$"
	// are replaced by bound ids.
	Args map[string]any `yaml:"args"`

	// Expect checks the outcome. Nil means the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Case is "ok" or the error kind: "not_found", "invalid", "conflict"
	// or "error" for anything else.
	Case string `yaml:"case"`

	// Result is a subset of the step's output, e.g. {changed: false}.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates the final views or the recorded changes.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// View, ID, Text and Filter select a named view (view assertions).
	// ID may be a literal or a "$ref".
	View   string `yaml:"view,omitempty"`
	ID     any    `yaml:"id,omitempty"`
	Text   string `yaml:"text,omitempty"`
	Filter string `yaml:"filter,omitempty"`

	// Count is the expected list length (view) or number of matching
	// changes (change_count).
	Count *int `yaml:"count,omitempty"`

	// Expect is a subset of a single-row view's value.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Contains is a subset some element of a list view must match.
	Contains map[string]any `yaml:"contains,omitempty"`

	// Missing asserts that a single-row view has no row.
	Missing bool `yaml:"missing,omitempty"`

	// Table and Op select changes (changes_contain, change_count). An
	// empty Op matches every op.
	Table string `yaml:"table,omitempty"`
	Op    string `yaml:"op,omitempty"`
}

// Assertion type constants.
const (
	AssertView           = "view"
	AssertChangesContain = "changes_contain"
	AssertChangeCount    = "change_count"
	AssertIntegrity      = "integrity"
)

// Expect case constants.
const (
	CaseOK       = "ok"
	CaseNotFound = "not_found"
	CaseInvalid  = "invalid"
	CaseConflict = "conflict"
	CaseError    = "error"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML. Unknown fields are rejected.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	bound := map[string]bool{}
	for i, step := range s.Steps {
		if step.Op == "" {
			return fmt.Errorf("steps[%d]: op is required", i)
		}
		if _, ok := operations[step.Op]; !ok {
			return fmt.Errorf("steps[%d]: unknown op %q (known: %s)", i, step.Op, strings.Join(OperationNames(), ", "))
		}
		if step.Args == nil {
			return fmt.Errorf("steps[%d]: args is required (use {} if there are none)", i)
		}
		if step.Expect != nil {
			if err := validateCase(step.Expect.Case); err != nil {
				return fmt.Errorf("steps[%d].expect: %w", i, err)
			}
		}
		if step.As != "" {
			if bound[step.As] {
				return fmt.Errorf("steps[%d]: %q is already bound", i, step.As)
			}
			bound[step.As] = true
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateCase(c string) error {
	switch c {
	case CaseOK, CaseNotFound, CaseInvalid, CaseConflict, CaseError:
		return nil
	case "":
		return fmt.Errorf("case is required")
	default:
		return fmt.Errorf("unknown case %q", c)
	}
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertView:
		if a.View == "" {
			return fmt.Errorf("assertions[%d]: view is required for view", index)
		}
		if a.Count == nil && a.Expect == nil && a.Contains == nil && !a.Missing {
			return fmt.Errorf("assertions[%d]: view needs count, expect, contains or missing", index)
		}
	case AssertChangesContain:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for changes_contain", index)
		}
	case AssertChangeCount:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for change_count", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for change_count", index)
		}
	case AssertIntegrity:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// OperationNames lists the ops a step may invoke, sorted.
func OperationNames() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
