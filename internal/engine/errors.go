package engine

import (
	"errors"
	"fmt"
)

// RuleError represents a misuse of the engine detected during an evaluation.
//
// Rule errors are contract violations, never transient failures:
//   - Bad fact: a computed fact failed while being evaluated
//   - Bad not call: Not was applied to a dynamic fact
//   - Bad default rule: DefaultRule was declared in a multi scope
//   - Unknown fact: a guard or negation named a fact missing from working memory
//
// All of them abort the current evaluation. The scope that raised them is
// still popped before the error reaches the host.
type RuleError struct {
	// Code identifies the error category.
	Code RuleErrorCode

	// Message is a human-readable description.
	Message string

	// Fact is the fact name involved, if any.
	Fact string

	// ScopeID identifies the evaluation scope that raised the error.
	ScopeID string

	// Err is the underlying cause (BadFact only).
	Err error
}

// RuleErrorCode categorizes rule errors.
type RuleErrorCode string

const (
	// ErrCodeBadFact indicates a computed fact returned an error.
	ErrCodeBadFact RuleErrorCode = "BAD_FACT"

	// ErrCodeBadNotCall indicates Not was called on a dynamic fact.
	ErrCodeBadNotCall RuleErrorCode = "BAD_NOT_CALL"

	// ErrCodeBadDefaultRule indicates a default rule in a multi scope.
	ErrCodeBadDefaultRule RuleErrorCode = "BAD_DEFAULT_RULE"

	// ErrCodeUnknownFact indicates a fact name absent from working memory.
	ErrCodeUnknownFact RuleErrorCode = "UNKNOWN_FACT"

	// ErrCodeScopeClosed indicates a declaration on a scope that already ended.
	ErrCodeScopeClosed RuleErrorCode = "SCOPE_CLOSED"
)

// Error implements the error interface.
func (e *RuleError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Fact != "" {
		msg = fmt.Sprintf("%s (fact=%s)", msg, e.Fact)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuleError) Unwrap() error {
	return e.Err
}

// CodeOf returns the RuleErrorCode carried by err, or "" if err is not a RuleError.
func CodeOf(err error) RuleErrorCode {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsBadFact returns true if the error is a bad fact error.
// Uses errors.As to handle wrapped errors.
func IsBadFact(err error) bool {
	return CodeOf(err) == ErrCodeBadFact
}

// IsBadNotCall returns true if the error is a bad not call error.
func IsBadNotCall(err error) bool {
	return CodeOf(err) == ErrCodeBadNotCall
}

// IsBadDefaultRule returns true if the error is a bad default rule error.
func IsBadDefaultRule(err error) bool {
	return CodeOf(err) == ErrCodeBadDefaultRule
}

// IsUnknownFact returns true if the error is an unknown fact error.
func IsUnknownFact(err error) bool {
	return CodeOf(err) == ErrCodeUnknownFact
}

// IsScopeClosed returns true if the error is a scope closed error.
func IsScopeClosed(err error) bool {
	return CodeOf(err) == ErrCodeScopeClosed
}

// NewBadFactError wraps the failure of a computed fact.
func NewBadFactError(scopeID, fact string, cause error) *RuleError {
	return &RuleError{
		Code:    ErrCodeBadFact,
		Message: "fact computation failed",
		Fact:    fact,
		ScopeID: scopeID,
		Err:     cause,
	}
}

// NewBadNotCallError creates a RuleError for Not applied to a dynamic fact.
func NewBadNotCallError(scopeID, fact string) *RuleError {
	return &RuleError{
		Code:    ErrCodeBadNotCall,
		Message: "cannot negate a dynamic fact",
		Fact:    fact,
		ScopeID: scopeID,
	}
}

// NewBadDefaultRuleError creates a RuleError for a default rule in a multi scope.
func NewBadDefaultRuleError(scopeID string) *RuleError {
	return &RuleError{
		Code:    ErrCodeBadDefaultRule,
		Message: "cannot have a default rule when multiple matches are allowed",
		ScopeID: scopeID,
	}
}

// NewUnknownFactError creates a RuleError for a missing fact.
func NewUnknownFactError(scopeID, fact string) *RuleError {
	return &RuleError{
		Code:    ErrCodeUnknownFact,
		Message: "fact is not declared in working memory",
		Fact:    fact,
		ScopeID: scopeID,
	}
}

// NewScopeClosedError creates a RuleError for use of an ended scope.
func NewScopeClosedError(scopeID string) *RuleError {
	return &RuleError{
		Code:    ErrCodeScopeClosed,
		Message: "evaluation scope has already ended",
		ScopeID: scopeID,
	}
}
