package engine

import (
	"context"
	"fmt"
)

// Mode defines how many rules may fire within one evaluation.
type Mode string

const (
	// ModeSingle lets at most one rule fire: the first whose guards hold (default).
	// Later rules return the stored match without evaluating their guards.
	ModeSingle Mode = "single"

	// ModeMulti lets every rule whose guards hold fire, in declaration order.
	// Default rules are rejected in this mode.
	ModeMulti Mode = "multi"
)

// ParseMode converts a mode name to a Mode.
// Empty is valid and defaults to ModeSingle.
func ParseMode(mode string) (Mode, error) {
	switch Mode(mode) {
	case ModeSingle, ModeMulti:
		return Mode(mode), nil
	case "":
		return ModeSingle, nil
	default:
		return "", fmt.Errorf("invalid mode %q: must be single or multi", mode)
	}
}

// Singletary reports whether at most one rule may fire in this mode.
func (m Mode) Singletary() bool {
	return m != ModeMulti
}

// Scope is one active evaluation: its working memory, its firing policy and
// the result of the first match.
//
// A Scope is created by Engine.Begin and ends with End. Scopes form a stack
// through their parent link; a nested evaluation started inside a rule action
// gets its own Scope and never sees the facts of the enclosing one.
//
// A Scope is not safe for concurrent use. Each goroutine evaluating rules
// must begin its own.
type Scope struct {
	engine *Engine
	ctx    context.Context

	id     string
	name   string
	parent *Scope
	depth  int
	mode   Mode

	memory map[string]factRecord

	matched  any
	hasMatch bool
	last     any

	rules  int // rule statements seen so far, used as rule index
	closed bool
	err    error // first error raised in this scope
}

// ScopeOption configures a scope at Begin.
type ScopeOption func(*Scope)

// WithName labels the scope, typically with the ruleset it evaluates.
// The label appears in logs, traces and recorded events.
func WithName(name string) ScopeOption {
	return func(s *Scope) {
		s.name = name
	}
}

// ID returns the unique id of the scope.
func (s *Scope) ID() string { return s.id }

// Name returns the scope label, empty if none was given.
func (s *Scope) Name() string { return s.name }

// Mode returns the firing policy of the scope.
func (s *Scope) Mode() Mode { return s.mode }

// Parent returns the enclosing scope, nil for a root evaluation.
func (s *Scope) Parent() *Scope { return s.parent }

// Depth returns the nesting depth; root evaluations have depth 0.
func (s *Scope) Depth() int { return s.depth }

// Matched returns the stored match and whether one exists.
// Only singletary scopes ever record a match.
func (s *Scope) Matched() (any, bool) {
	return s.matched, s.hasMatch
}

// Closed reports whether the scope has ended.
func (s *Scope) Closed() bool { return s.closed }

// Err returns the first error raised by a declaration in this scope.
func (s *Scope) Err() error { return s.err }

// Has reports whether name is declared in this scope's working memory.
func (s *Scope) Has(name string) bool {
	_, ok := s.memory[name]
	return ok
}

// Facts returns the number of facts in working memory.
func (s *Scope) Facts() int { return len(s.memory) }

// checkOpen returns a scope closed error once the scope has ended.
func (s *Scope) checkOpen() error {
	if s.closed {
		return NewScopeClosedError(s.id)
	}
	return nil
}

// fail remembers the first error so End can report it, and returns err.
func (s *Scope) fail(err error) error {
	if err != nil && s.err == nil {
		s.err = err
	}
	return err
}
