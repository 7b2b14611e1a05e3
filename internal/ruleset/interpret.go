package ruleset

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/ruler/internal/engine"
)

// DefaultMaxDepth bounds nested ruleset evaluation when Interpreter.MaxDepth is 0.
const DefaultMaxDepth = 32

// ProbeFunc computes a dynamic fact from the host.
// It is called on every reference to the fact.
type ProbeFunc func(ctx context.Context, inputs map[string]any) (bool, error)

// ActionFunc is a host action named by a rule's then clause.
// ctx carries the scope of the rule that fired.
type ActionFunc func(ctx context.Context, inputs map[string]any) (any, error)

// Interpreter evaluates library definitions on an engine.
//
// An Interpreter may be shared between goroutines as long as its probes and
// actions are safe for concurrent use.
type Interpreter struct {
	Engine  *engine.Engine
	Library *Library
	Probes  map[string]ProbeFunc
	Actions map[string]ActionFunc

	// MaxDepth limits how many scopes nested ruleset references may stack.
	MaxDepth int

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Run evaluates the named ruleset with inputs and returns its final value.
//
// Run nests inside any scope already carried by ctx. Errors are those of the
// engine (bad fact, unknown fact, ...) or a *RunError for problems only the
// interpreter can detect, such as an unregistered probe.
func (in *Interpreter) Run(ctx context.Context, name string, inputs map[string]any) (any, error) {
	return in.run(ctx, name, inputs, newExprEvaluator(inputs))
}

func (in *Interpreter) run(ctx context.Context, name string, inputs map[string]any, exprs *exprEvaluator) (any, error) {
	def, ok := in.Library.Get(name)
	if !ok {
		return nil, &RunError{Code: ErrCodeUnknownRuleset, Name: name, Message: "ruleset not found"}
	}

	limit := in.MaxDepth
	if limit <= 0 {
		limit = DefaultMaxDepth
	}
	if depth := engine.Depth(ctx); depth >= limit {
		return nil, newDepthExceededError(def.Name, depth+1, limit)
	}

	mode, err := engine.ParseMode(string(def.Mode))
	if err != nil {
		return nil, fmt.Errorf("ruleset %q: %w", def.Name, err)
	}

	in.logger().Debug("interpret ruleset",
		"ruleset", def.Name,
		"hash", in.Library.Hash(def.Name),
		"depth", engine.Depth(ctx),
	)

	return in.Engine.Evaluate(ctx, mode, func(ctx context.Context, s *engine.Scope) error {
		for i, st := range def.Statements {
			if err := in.exec(ctx, s, def, st, inputs, exprs); err != nil {
				if _, isRun := err.(*RunError); !isRun && s.Err() == nil {
					return fmt.Errorf("ruleset %q: statements[%d]: %w", def.Name, i, err)
				}
				return err
			}
		}
		return nil
	}, engine.WithName(def.Name))
}

// exec carries out one statement with the matching builder call.
func (in *Interpreter) exec(ctx context.Context, s *engine.Scope, def *Definition, st Statement, inputs map[string]any, exprs *exprEvaluator) error {
	switch st.Kind() {
	case KindFact:
		f := st.Fact
		switch {
		case f.Value != nil:
			return s.Fact(f.Name, *f.Value)
		case f.Expr != "":
			return s.FactFunc(f.Name, func() (bool, error) {
				return exprs.Eval(f.Expr)
			})
		case f.Not != "":
			value, err := s.Not(f.Not)
			if err != nil {
				return err
			}
			return s.Fact(f.Name, value)
		default:
			return fmt.Errorf("fact %q: exactly one of value, expr or not is required", f.Name)
		}

	case KindDynamic:
		d := st.Dynamic
		if d.Expr != "" {
			return s.DynamicFact(d.Name, func() (bool, error) {
				return exprs.Eval(d.Expr)
			})
		}
		probe, ok := in.Probes[d.Probe]
		if !ok {
			return &RunError{Code: ErrCodeUnknownProbe, Ruleset: def.Name, Name: d.Probe, Message: "probe not registered"}
		}
		return s.DynamicFact(d.Name, func() (bool, error) {
			return probe(ctx, inputs)
		})

	case KindRule:
		_, err := s.Rule(st.Rule.When, st.Rule.Doc, in.action(ctx, def, st.Rule.Then, inputs, exprs))
		return err

	case KindDefault:
		_, err := s.DefaultRule(in.action(ctx, def, st.Default.Then, inputs, exprs))
		return err

	default:
		return fmt.Errorf("exactly one of fact, dynamic, rule or default is required")
	}
}

// action builds the engine action for a then clause.
func (in *Interpreter) action(ctx context.Context, def *Definition, t Then, inputs map[string]any, exprs *exprEvaluator) engine.Action {
	switch {
	case t.Action != "":
		return func() (any, error) {
			fn, ok := in.Actions[t.Action]
			if !ok {
				return nil, &RunError{Code: ErrCodeUnknownAction, Ruleset: def.Name, Name: t.Action, Message: "action not registered"}
			}
			return fn(ctx, inputs)
		}
	case t.Ruleset != "":
		return func() (any, error) {
			return in.run(ctx, t.Ruleset, inputs, exprs)
		}
	default:
		value := t.Value
		return func() (any, error) { return value, nil }
	}
}

func (in *Interpreter) logger() *slog.Logger {
	if in.Logger != nil {
		return in.Logger
	}
	return slog.Default()
}
