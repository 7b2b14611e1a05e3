// Package engine implements a forward-evaluation rule engine.
//
// Callers declare named boolean facts and an ordered list of rules inside an
// evaluation scope. Each rule names the facts that must all be true for it
// to fire, and is evaluated the moment it is declared:
//
//	result, err := eng.Ruleset(ctx, func(ctx context.Context, s *engine.Scope) error {
//		s.Fact("hot", true)
//		s.Fact("thirsty", true)
//		s.FactFunc("tea_made", teaIsMade)
//		noTea, err := s.Not("tea_made")
//		if err != nil {
//			return err
//		}
//		s.Fact("no_tea", noTea)
//
//		if _, err := s.Rule([]string{"hot", "thirsty", "no_tea"}, "make tea", makeTea); err != nil {
//			return err
//		}
//		_, err = s.Rule([]string{"hot", "thirsty", "tea_made"}, "drink tea", drinkTea)
//		return err
//	})
//
// EVALUATION MODEL:
//
// Single forward pass. Rules run in declaration order, against facts
// declared before them. Facts declared after the last rule are inert. There
// is no dependency graph, no priority besides order, no backward chaining.
//
// Singletary scopes (ModeSingle, the default) let only the first matching
// rule fire; every later rule and the default rule return that first match.
// Multi scopes (ModeMulti) fire every matching rule and reject default
// rules. The value of an evaluation is the value of its last rule statement.
//
// Facts are static (a literal, or a FactFunc computed once at declaration)
// or dynamic (recomputed on each guard reference, never cached). Only static
// facts can be negated with Not.
//
// SCOPES:
//
// Working memory belongs to one Scope. Scopes nest through the context:
// an evaluation begun inside a rule action gets a fresh scope and cannot see
// the enclosing one's facts. Scopes are popped on every exit path.
//
// ERRORS:
//
// Misuse is reported as *RuleError with codes BAD_FACT, BAD_NOT_CALL,
// BAD_DEFAULT_RULE and UNKNOWN_FACT. They abort the evaluation; none is
// downgraded to a false value.
package engine
