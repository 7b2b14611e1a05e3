package engine

import "context"

type scopeKey struct{}

// Current returns the innermost active scope carried by ctx, or nil.
func Current(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	return s
}

// Depth returns the number of scopes carried by ctx.
func Depth(ctx context.Context) int {
	s := Current(ctx)
	if s == nil {
		return 0
	}
	return s.depth + 1
}

// Begin pushes a new evaluation scope with empty working memory and no match.
//
// The scope's parent is the innermost scope carried by ctx, so a Begin made
// inside a rule action (with the context handed to that evaluation) nests.
// The returned context carries the new scope. The stack is the immutable
// parent chain of scopes: goroutines branching from one context each push
// onto their own chain and never share a mutable stack.
//
// Every Begin must be paired with End, typically deferred:
//
//	ctx, s := eng.Begin(ctx, engine.ModeSingle)
//	defer s.End()
func (e *Engine) Begin(ctx context.Context, mode Mode, opts ...ScopeOption) (context.Context, *Scope) {
	if mode == "" {
		mode = ModeSingle
	}
	parent := Current(ctx)
	s := &Scope{
		engine: e,
		id:     e.ids.Generate(),
		parent: parent,
		mode:   mode,
		memory: make(map[string]factRecord),
	}
	if parent != nil {
		s.depth = parent.depth + 1
	}
	for _, opt := range opts {
		opt(s)
	}
	ctx = context.WithValue(ctx, scopeKey{}, s)
	s.ctx = ctx

	e.logger.Debug("evaluation begin",
		"scope", s.id,
		"name", s.name,
		"mode", s.mode,
		"depth", s.depth,
	)
	s.record(Event{Kind: EventBegin})
	return ctx, s
}

// End pops the scope and returns the evaluation's final value: the result
// of the last rule or default rule statement.
//
// If any declaration in the scope raised an error, End returns that error
// and a nil value; no partial result is produced. End always closes the
// scope, whatever happened before. Calling End again returns the same
// outcome without recording anything.
func (s *Scope) End() (any, error) {
	if s.closed {
		if s.err != nil {
			return nil, s.err
		}
		return s.last, nil
	}

	ev := Event{Kind: EventEnd}
	if s.err != nil {
		ev.ErrCode = CodeOf(s.err)
		ev.Error = s.err.Error()
	} else {
		ev.Result = s.last
	}
	s.record(ev)
	s.closed = true

	s.engine.logger.Debug("evaluation end",
		"scope", s.id,
		"name", s.name,
		"depth", s.depth,
		"matched", s.hasMatch,
		"error", s.err,
	)

	if s.err != nil {
		return nil, s.err
	}
	return s.last, nil
}

// Evaluate runs fn inside a fresh scope and returns the scope's final value.
//
// The scope is popped on every exit path, including when fn returns an
// error or panics. An error returned by fn is remembered by the scope
// (unless an earlier declaration already failed) and returned.
//
// fn receives the context carrying the new scope; nested evaluations
// started from rule actions must use it.
func (e *Engine) Evaluate(ctx context.Context, mode Mode, fn func(ctx context.Context, s *Scope) error, opts ...ScopeOption) (result any, err error) {
	ctx, s := e.Begin(ctx, mode, opts...)
	defer func() {
		result, err = s.End()
	}()

	if fnErr := fn(ctx, s); fnErr != nil {
		s.fail(fnErr)
	}
	return nil, nil
}

// Ruleset evaluates fn in a singletary scope.
func (e *Engine) Ruleset(ctx context.Context, fn func(ctx context.Context, s *Scope) error, opts ...ScopeOption) (any, error) {
	return e.Evaluate(ctx, ModeSingle, fn, opts...)
}

// MultiRuleset evaluates fn in a multi scope, where every matching rule fires.
func (e *Engine) MultiRuleset(ctx context.Context, fn func(ctx context.Context, s *Scope) error, opts ...ScopeOption) (any, error) {
	return e.Evaluate(ctx, ModeMulti, fn, opts...)
}
