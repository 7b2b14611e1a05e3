package ruleset

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
)

// CompileError is a ruleset source error with a CUE position when known.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RunErrorCode classifies interpreter failures that are not engine errors.
type RunErrorCode string

const (
	// ErrCodeUnknownRuleset: no ruleset of that name is in the library.
	ErrCodeUnknownRuleset RunErrorCode = "UNKNOWN_RULESET"

	// ErrCodeUnknownProbe: a dynamic fact names a probe that is not registered.
	ErrCodeUnknownProbe RunErrorCode = "UNKNOWN_PROBE"

	// ErrCodeUnknownAction: a rule names an action that is not registered.
	ErrCodeUnknownAction RunErrorCode = "UNKNOWN_ACTION"

	// ErrCodeDepthExceeded: nested ruleset evaluation went deeper than allowed.
	ErrCodeDepthExceeded RunErrorCode = "DEPTH_EXCEEDED"

	// ErrCodeBadExpr: a CUE expression failed to compile or is not a bool.
	ErrCodeBadExpr RunErrorCode = "BAD_EXPR"
)

// RunError reports why the interpreter could not carry out a statement.
type RunError struct {
	Code    RunErrorCode
	Ruleset string
	Name    string // ruleset, probe, action or expression involved
	Message string
	Err     error
}

func (e *RunError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Name != "" {
		msg += fmt.Sprintf(" (%s)", e.Name)
	}
	if e.Ruleset != "" {
		msg += fmt.Sprintf(" in ruleset %q", e.Ruleset)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RunError) Unwrap() error { return e.Err }

func hasRunCode(err error, code RunErrorCode) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsUnknownRuleset checks if err is an unknown ruleset error.
func IsUnknownRuleset(err error) bool { return hasRunCode(err, ErrCodeUnknownRuleset) }

// IsUnknownProbe checks if err is an unknown probe error.
func IsUnknownProbe(err error) bool { return hasRunCode(err, ErrCodeUnknownProbe) }

// IsUnknownAction checks if err is an unknown action error.
func IsUnknownAction(err error) bool { return hasRunCode(err, ErrCodeUnknownAction) }

// IsDepthExceeded checks if err is a nesting depth error.
func IsDepthExceeded(err error) bool { return hasRunCode(err, ErrCodeDepthExceeded) }

// IsBadExpr checks if err is an expression error.
func IsBadExpr(err error) bool { return hasRunCode(err, ErrCodeBadExpr) }

// newDepthExceededError reports nesting beyond the interpreter's limit.
func newDepthExceededError(ruleset string, depth, limit int) *RunError {
	return &RunError{
		Code:    ErrCodeDepthExceeded,
		Ruleset: ruleset,
		Message: fmt.Sprintf("nesting depth %d exceeds limit %d", depth, limit),
	}
}
