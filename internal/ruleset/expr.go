package ruleset

import (
	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// exprEvaluator evaluates CUE boolean expressions against one set of inputs:
//
//	outside_temp > 150 && season != "winter"
//
// Input names resolve as identifiers and CUE builtins are available by
// package name (e.g. strings.HasPrefix). An evaluator is bound to a single
// run and is not safe for concurrent use.
type exprEvaluator struct {
	ctx   *cue.Context
	scope cue.Value
}

func newExprEvaluator(inputs map[string]any) *exprEvaluator {
	if inputs == nil {
		inputs = map[string]any{}
	}
	ctx := cuecontext.New()
	return &exprEvaluator{ctx: ctx, scope: ctx.Encode(inputs)}
}

// Eval compiles and evaluates expr. The result must be a concrete bool.
func (e *exprEvaluator) Eval(expr string) (bool, error) {
	if err := e.scope.Err(); err != nil {
		return false, &RunError{Code: ErrCodeBadExpr, Name: expr, Message: "inputs cannot be encoded", Err: formatCUEError(err)}
	}
	v := e.ctx.CompileString(expr, cue.Scope(e.scope), cue.InferBuiltins(true))
	if err := v.Err(); err != nil {
		return false, &RunError{Code: ErrCodeBadExpr, Name: expr, Message: "expression failed", Err: formatCUEError(err)}
	}
	b, err := v.Bool()
	if err != nil {
		return false, &RunError{Code: ErrCodeBadExpr, Name: expr, Message: "expression is not a concrete bool", Err: formatCUEError(err)}
	}
	return b, nil
}

// EvalExpr evaluates a single boolean expression against inputs.
func EvalExpr(expr string, inputs map[string]any) (bool, error) {
	return newExprEvaluator(inputs).Eval(expr)
}
