package engine

import "context"

// EventKind identifies what an Event records.
type EventKind string

const (
	// EventBegin records a scope being pushed.
	EventBegin EventKind = "begin"

	// EventRule records the outcome of one rule statement.
	EventRule EventKind = "rule"

	// EventDefault records the outcome of a default rule statement.
	EventDefault EventKind = "default"

	// EventEnd records a scope being popped, with its final value or error.
	EventEnd EventKind = "end"
)

// Event is one step of an evaluation, stamped with the engine's logical clock.
//
// Events describe outcomes only. Working memory is never part of an event,
// so nothing recorded can leak into a later evaluation.
type Event struct {
	Kind     EventKind
	Seq      int64
	ScopeID  string
	ParentID string
	Name     string
	Depth    int
	Mode     Mode

	// Rule statements only.
	RuleIndex int
	Doc       string
	Guards    []string

	// Fired is true when the rule's action (or the default action) ran.
	Fired bool

	// Skipped is true when a singletary scope had already matched, so the
	// statement returned the stored match without evaluating anything.
	Skipped bool

	// Result is the value of the statement, or the final value for EventEnd.
	Result any

	// ErrCode and Error describe the failure that ended the scope (EventEnd only).
	ErrCode RuleErrorCode
	Error   string
}

// Recorder receives evaluation events, e.g. to persist an audit log.
//
// Record is called synchronously from the evaluating goroutine. A recorder
// shared between engines evaluating concurrently must be safe for
// concurrent use. Record errors are logged and never abort the evaluation.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(ctx context.Context, ev Event) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, ev Event) error { return f(ctx, ev) }

// record stamps ev with scope identity and the next seq and passes it on.
func (s *Scope) record(ev Event) {
	rec := s.engine.recorder
	if rec == nil {
		return
	}
	ev.Seq = s.engine.clock.Next()
	ev.ScopeID = s.id
	ev.Name = s.name
	ev.Depth = s.depth
	ev.Mode = s.mode
	if s.parent != nil {
		ev.ParentID = s.parent.id
	}
	if err := rec.Record(s.ctx, ev); err != nil {
		// Log and continue: recording is an audit concern, not part of matching.
		s.engine.logger.Error("record evaluation event failed",
			"scope", s.id,
			"kind", ev.Kind,
			"error", err,
		)
	}
}
