package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/ruler/internal/engine"
	"github.com/roach88/ruler/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			if ev.Kind != string(engine.EventRule) && ev.Kind != string(engine.EventDefault) {
				continue
			}
			fmt.Fprintf(&buf, "  [%d] %s %s %q %s\n", ev.Seq, ev.Ruleset, ev.Kind, ev.Doc, outcome(ev))
		}
	}

	return buf.String()
}

// outcome names what happened to a rule statement.
func outcome(ev TraceEvent) string {
	switch {
	case ev.Fired:
		return "fired"
	case ev.Skipped:
		return "skipped"
	default:
		return "not matched"
	}
}

// ruleEvents returns the rule statements of the trace matching doc and, if
// given, ruleset.
func ruleEvents(trace []TraceEvent, doc, ruleset string) []TraceEvent {
	var out []TraceEvent
	for _, ev := range trace {
		if ev.Kind != string(engine.EventRule) || ev.Doc != doc {
			continue
		}
		if ruleset != "" && ev.Ruleset != ruleset {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// describeRule renders the rule an assertion refers to.
func describeRule(a Assertion) string {
	if a.Ruleset != "" {
		return fmt.Sprintf("rule %q in %s", a.Doc, a.Ruleset)
	}
	return fmt.Sprintf("rule %q", a.Doc)
}

// assertFired checks that at least one rule with the doc fired.
func assertFired(trace []TraceEvent, a Assertion) error {
	matches := ruleEvents(trace, a.Doc, a.Ruleset)
	for _, ev := range matches {
		if ev.Fired {
			return nil
		}
	}
	actual := "not present in trace"
	if len(matches) > 0 {
		actual = fmt.Sprintf("%d statement(s), none fired", len(matches))
	}
	return &AssertionError{
		Type:     AssertFired,
		Expected: describeRule(a) + " fired",
		Actual:   actual,
		Trace:    trace,
	}
}

// assertNotFired checks that no rule with the doc fired.
// A rule absent from the trace passes.
func assertNotFired(trace []TraceEvent, a Assertion) error {
	for _, ev := range ruleEvents(trace, a.Doc, a.Ruleset) {
		if ev.Fired {
			return &AssertionError{
				Type:     AssertNotFired,
				Expected: describeRule(a) + " not fired",
				Actual:   fmt.Sprintf("fired at seq %d", ev.Seq),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertSkipped checks that a rule with the doc was skipped because its
// scope had already matched.
func assertSkipped(trace []TraceEvent, a Assertion) error {
	matches := ruleEvents(trace, a.Doc, a.Ruleset)
	for _, ev := range matches {
		if ev.Skipped {
			return nil
		}
	}
	actual := "not present in trace"
	if len(matches) > 0 {
		actual = outcome(matches[0])
	}
	return &AssertionError{
		Type:     AssertSkipped,
		Expected: describeRule(a) + " skipped",
		Actual:   actual,
		Trace:    trace,
	}
}

// assertCount compares a call count.
func assertCount(kind, name string, calls map[string]int, want int) error {
	got, ok := calls[name]
	if !ok {
		return &AssertionError{
			Type:     kind,
			Expected: fmt.Sprintf("%s called %d time(s)", name, want),
			Actual:   fmt.Sprintf("%s is not configured by the scenario", name),
		}
	}
	if got != want {
		return &AssertionError{
			Type:     kind,
			Expected: fmt.Sprintf("%s called %d time(s)", name, want),
			Actual:   fmt.Sprintf("called %d time(s)", got),
		}
	}
	return nil
}

// assertDepth checks the deepest nesting of the evaluation.
func assertDepth(result *Result, a Assertion) error {
	if got := result.MaxDepth(); got != a.Count {
		return &AssertionError{
			Type:     AssertDepth,
			Expected: fmt.Sprintf("maximum depth %d", a.Count),
			Actual:   fmt.Sprintf("maximum depth %d", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertEvaluations counts the stored evaluations of a ruleset.
func assertEvaluations(ctx context.Context, st *store.Store, a Assertion) error {
	evals, err := st.ListEvaluations(ctx, store.ListOptions{Name: a.Ruleset})
	if err != nil {
		return fmt.Errorf("evaluations: query store: %w", err)
	}
	if len(evals) != a.Count {
		return &AssertionError{
			Type:     AssertEvaluations,
			Expected: fmt.Sprintf("%d evaluation(s) of %s", a.Count, a.Ruleset),
			Actual:   fmt.Sprintf("%d evaluation(s)", len(evals)),
		}
	}
	return nil
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for evaluations assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFired:
			err = assertFired(result.Trace, assertion)
		case AssertNotFired:
			err = assertNotFired(result.Trace, assertion)
		case AssertSkipped:
			err = assertSkipped(result.Trace, assertion)
		case AssertProbeCalls:
			err = assertCount(AssertProbeCalls, assertion.Probe, result.ProbeCalls, assertion.Count)
		case AssertActionCalls:
			err = assertCount(AssertActionCalls, assertion.Action, result.ActionCalls, assertion.Count)
		case AssertDepth:
			err = assertDepth(result, assertion)
		case AssertEvaluations:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: evaluations requires database context", i)
			} else {
				err = assertEvaluations(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
