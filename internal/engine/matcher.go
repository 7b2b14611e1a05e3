package engine

// Action is the body of a rule. Its return value becomes the rule's result.
type Action func() (any, error)

// Rule declares a rule and evaluates it immediately against the scope.
//
// The rule fires when every guard fact resolves true. Matching follows the
// scope mode:
//  1. If tracing is on, every guard is resolved and traced first
//  2. A singletary scope that already matched returns the stored match
//     without evaluating guards or running the action
//  3. Otherwise guards are resolved left to right; an undeclared guard
//     is an unknown fact error raised before any action runs
//  4. If all guards hold, the action runs and its result is returned
//     (and stored as the match in a singletary scope)
//  5. If not, the rule returns nil
//
// doc is free text describing the rule. It is carried into traces and
// recorded events only.
func (s *Scope) Rule(guards []string, doc string, action Action) (any, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	index := s.rules
	s.rules++

	if s.engine.tracer != nil {
		if err := s.trace(index, guards, doc); err != nil {
			return nil, err
		}
	}

	if s.mode.Singletary() && s.hasMatch {
		s.engine.logger.Debug("rule skipped, scope already matched",
			"scope", s.id,
			"rule", index,
			"doc", doc,
		)
		s.last = s.matched
		s.record(Event{Kind: EventRule, RuleIndex: index, Doc: doc, Guards: guards, Skipped: true, Result: s.matched})
		return s.matched, nil
	}

	hold, err := s.guardsHold(guards)
	if err != nil {
		return nil, err
	}
	if !hold {
		s.engine.logger.Debug("rule not matched",
			"scope", s.id,
			"rule", index,
			"doc", doc,
		)
		s.last = nil
		s.record(Event{Kind: EventRule, RuleIndex: index, Doc: doc, Guards: guards})
		return nil, nil
	}

	s.engine.logger.Debug("rule matched",
		"scope", s.id,
		"rule", index,
		"doc", doc,
		"guards", guards,
	)
	result, err := s.fire(action)
	if err != nil {
		return nil, err
	}
	if s.mode.Singletary() {
		s.matched, s.hasMatch = result, true
	}
	s.last = result
	s.record(Event{Kind: EventRule, RuleIndex: index, Doc: doc, Guards: guards, Fired: true, Result: result})
	return result, nil
}

// DefaultRule declares the fallback of a singletary scope: action runs only
// if no rule has matched so far, and its result becomes the match.
// Once a rule matched, the stored match is returned unchanged.
//
// Multi scopes reject default rules with a bad default rule error, whatever
// their match state.
func (s *Scope) DefaultRule(action Action) (any, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if !s.mode.Singletary() {
		return nil, s.fail(NewBadDefaultRuleError(s.id))
	}

	if s.hasMatch {
		s.last = s.matched
		s.record(Event{Kind: EventDefault, Skipped: true, Result: s.matched})
		return s.matched, nil
	}

	s.engine.logger.Debug("default rule fired", "scope", s.id)
	result, err := s.fire(action)
	if err != nil {
		return nil, err
	}
	s.matched, s.hasMatch = result, true
	s.last = result
	s.record(Event{Kind: EventDefault, Fired: true, Result: result})
	return result, nil
}

// guardsHold folds the guards with logical AND.
//
// All names are checked against working memory before any is resolved, so
// an undeclared guard always fails the rule even when an earlier guard is
// false. Every guard is then resolved: a dynamic fact is recomputed once per
// reference, independent of the other guards' values.
func (s *Scope) guardsHold(guards []string) (bool, error) {
	for _, name := range guards {
		if _, err := s.lookup(name); err != nil {
			return false, err
		}
	}

	hold := true
	for _, name := range guards {
		value, err := s.resolve(name)
		if err != nil {
			return false, err
		}
		hold = hold && value
	}
	return hold, nil
}

// fire runs a rule action. A nil action fires with a nil result.
func (s *Scope) fire(action Action) (any, error) {
	if action == nil {
		return nil, nil
	}
	result, err := action()
	if err != nil {
		return nil, s.fail(err)
	}
	return result, nil
}
