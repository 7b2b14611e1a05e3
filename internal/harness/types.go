package harness

import (
	"github.com/roach88/ruler/internal/engine"
)

// TraceEvent is one recorded step of a scenario evaluation.
type TraceEvent struct {
	Kind      string   `json:"kind"` // "begin", "rule", "default" or "end"
	Seq       int64    `json:"seq"`
	ScopeID   string   `json:"scope_id"`
	Ruleset   string   `json:"ruleset,omitempty"`
	Depth     int      `json:"depth"`
	RuleIndex int      `json:"rule_index,omitempty"`
	Doc       string   `json:"doc,omitempty"`
	Guards    []string `json:"guards,omitempty"`
	Fired     bool     `json:"fired,omitempty"`
	Skipped   bool     `json:"skipped,omitempty"`
	Result    any      `json:"result,omitempty"`
	ErrorCode string   `json:"error_code,omitempty"`
}

// traceEventOf converts a replayed engine event.
func traceEventOf(ev engine.Event) TraceEvent {
	return TraceEvent{
		Kind:      string(ev.Kind),
		Seq:       ev.Seq,
		ScopeID:   ev.ScopeID,
		Ruleset:   ev.Name,
		Depth:     ev.Depth,
		RuleIndex: ev.RuleIndex,
		Doc:       ev.Doc,
		Guards:    ev.Guards,
		Fired:     ev.Fired,
		Skipped:   ev.Skipped,
		Result:    ev.Result,
		ErrorCode: string(ev.ErrCode),
	}
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Scenario is the name of the scenario that produced this result.
	Scenario string `json:"scenario"`

	// Pass indicates overall test success.
	// True if the expect clause and every assertion hold.
	Pass bool `json:"pass"`

	// Value is the final value of the entry ruleset.
	Value any `json:"value,omitempty"`

	// ErrorCode and Error describe the evaluation failure, if any.
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`

	// Trace contains every recorded step, ordered by seq.
	Trace []TraceEvent `json:"trace"`

	// ProbeCalls and ActionCalls count invocations by name.
	ProbeCalls  map[string]int `json:"probe_calls,omitempty"`
	ActionCalls map[string]int `json:"action_calls,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(scenario string) *Result {
	return &Result{
		Scenario:    scenario,
		Pass:        true,
		Trace:       []TraceEvent{},
		ProbeCalls:  make(map[string]int),
		ActionCalls: make(map[string]int),
		Errors:      []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// MaxDepth returns the number of stacked evaluations at the deepest point
// of the trace: 1 for a ruleset that nests nothing, 0 if nothing began.
func (r *Result) MaxDepth() int {
	depth := 0
	for _, ev := range r.Trace {
		if ev.Kind == string(engine.EventBegin) && ev.Depth+1 > depth {
			depth = ev.Depth + 1
		}
	}
	return depth
}
