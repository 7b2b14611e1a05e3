package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Ruleset is the ruleset file or directory, relative to the scenario file.
	Ruleset string `yaml:"ruleset"`

	// Entry names the ruleset to evaluate.
	Entry string `yaml:"entry"`

	// Inputs are handed to expressions, probes and actions.
	Inputs map[string]any `yaml:"inputs,omitempty"`

	// Probes script dynamic facts: each call returns the next value and the
	// last value repeats.
	Probes map[string][]bool `yaml:"probes,omitempty"`

	// Actions map action names to the value they return.
	Actions map[string]any `yaml:"actions,omitempty"`

	// Expect is the expected outcome of the evaluation.
	Expect ExpectClause `yaml:"expect"`

	// Assertions validate the recorded evaluation.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// Path is the file the scenario was loaded from.
	Path string `yaml:"-"`
}

// ExpectClause specifies the expected evaluation outcome: either a final
// value or an error code, never both.
type ExpectClause struct {
	// Result is the expected final value. A literal null expects nil.
	Result any `yaml:"result"`

	// Error is the expected error code, e.g. UNKNOWN_FACT or UNKNOWN_PROBE.
	Error string `yaml:"error,omitempty"`

	hasResult bool
}

// HasResult reports whether the scenario states an expected result.
func (e ExpectClause) HasResult() bool { return e.hasResult }

// UnmarshalYAML records whether result was given, so null can be expected.
func (e *ExpectClause) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expect must be a mapping", node.Line)
	}
	var hasResult bool
	for i := 0; i+1 < len(node.Content); i += 2 {
		switch key := node.Content[i].Value; key {
		case "result":
			hasResult = true
		case "error":
		default:
			return fmt.Errorf("line %d: field %s not found in type harness.ExpectClause", node.Content[i].Line, key)
		}
	}

	type plain ExpectClause
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*e = ExpectClause(p)
	e.hasResult = hasResult
	return nil
}

// Assertion validates the recorded evaluation.
type Assertion struct {
	// Type specifies the assertion type (see the Assert constants).
	Type string `yaml:"type"`

	// Doc identifies a rule by its doc string (fired, not_fired, skipped).
	Doc string `yaml:"doc,omitempty"`

	// Ruleset limits doc matching to one ruleset, or names the ruleset
	// counted by an evaluations assertion.
	Ruleset string `yaml:"ruleset,omitempty"`

	// Probe is the probe name (probe_calls).
	Probe string `yaml:"probe,omitempty"`

	// Action is the action name (action_calls).
	Action string `yaml:"action,omitempty"`

	// Count is the expected number (probe_calls, action_calls, depth, evaluations).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertFired       = "fired"
	AssertNotFired    = "not_fired"
	AssertSkipped     = "skipped"
	AssertProbeCalls  = "probe_calls"
	AssertActionCalls = "action_calls"
	AssertDepth       = "depth"
	AssertEvaluations = "evaluations"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// The ruleset path is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("%s: failed to parse YAML: %w", path, err)
	}
	scenario.Path = path

	if scenario.Ruleset != "" && !filepath.IsAbs(scenario.Ruleset) {
		scenario.Ruleset = filepath.Join(filepath.Dir(path), scenario.Ruleset)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("%s: invalid scenario: %w", path, err)
	}

	return &scenario, nil
}

// LoadScenarios loads every .yaml/.yml scenario in dir, ordered by file name.
// If filter is non-empty, only scenarios whose name contains it are kept.
func LoadScenarios(dir, filter string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenarios directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	scenarios := []*Scenario{}
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		if filter != "" && !strings.Contains(s.Name, filter) {
			continue
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Ruleset == "" {
		return fmt.Errorf("ruleset is required")
	}
	if _, err := os.Stat(s.Ruleset); os.IsNotExist(err) {
		return fmt.Errorf("ruleset not found: %s", s.Ruleset)
	}

	if s.Entry == "" {
		return fmt.Errorf("entry is required")
	}

	if s.Expect.HasResult() && s.Expect.Error != "" {
		return fmt.Errorf("expect: result and error are mutually exclusive")
	}
	if !s.Expect.HasResult() && s.Expect.Error == "" {
		return fmt.Errorf("expect: one of result or error is required")
	}

	for name, values := range s.Probes {
		if len(values) == 0 {
			return fmt.Errorf("probes[%s]: at least one value is required", name)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFired, AssertNotFired, AssertSkipped:
		if a.Doc == "" {
			return fmt.Errorf("assertions[%d]: doc is required for %s", index, a.Type)
		}
	case AssertProbeCalls:
		if a.Probe == "" {
			return fmt.Errorf("assertions[%d]: probe is required for probe_calls", index)
		}
	case AssertActionCalls:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for action_calls", index)
		}
	case AssertDepth:
	case AssertEvaluations:
		if a.Ruleset == "" {
			return fmt.Errorf("assertions[%d]: ruleset is required for evaluations", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}
	return nil
}
