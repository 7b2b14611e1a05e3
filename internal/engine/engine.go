package engine

import (
	"log/slog"
)

// ScopeIDGenerator generates unique evaluation scope ids.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
// See ids.go for implementations.
type ScopeIDGenerator interface {
	Generate() string
}

// Engine evaluates rulesets.
//
// An Engine holds configuration only: tracer, logger, recorder, scope id
// generator and the logical clock that stamps recorded events. All
// evaluation state lives in the Scope values returned by Begin, so one
// Engine can serve any number of concurrent evaluations as long as each
// goroutine uses its own scopes.
//
// Thread-safety model:
//   - Begin/Evaluate/Ruleset/MultiRuleset: safe from any goroutine
//   - Scope methods: must be called from the goroutine that owns the scope
//   - The Tracer and Recorder must be safe for concurrent use if shared
type Engine struct {
	tracer   Tracer
	logger   *slog.Logger
	recorder Recorder
	ids      ScopeIDGenerator
	clock    *Clock
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithTracer installs a diagnostic tracer called before every rule.
// A nil tracer disables tracing (the default).
func WithTracer(t Tracer) EngineOption {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRecorder sets the recorder receiving evaluation events.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithIDGenerator sets the scope id generator. Default: UUIDv7Generator.
// Use a FixedGenerator for deterministic ids in tests.
func WithIDGenerator(g ScopeIDGenerator) EngineOption {
	return func(e *Engine) {
		if g != nil {
			e.ids = g
		}
	}
}

// WithClock sets the logical clock stamping recorded events.
// Used to resume seq numbering after previously recorded evaluations.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// New creates an Engine. Without options it does not trace or record,
// logs to slog.Default() and generates UUIDv7 scope ids.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		logger: slog.Default(),
		ids:    UUIDv7Generator{},
		clock:  NewClock(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Tracing reports whether a tracer is installed.
func (e *Engine) Tracing() bool {
	return e.tracer != nil
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}
