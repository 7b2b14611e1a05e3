// Package ruleset loads declarative rulesets and interprets them on the engine.
//
// A ruleset is an ordered list of statements, written in YAML or CUE:
//
//	rulesets:
//	  - name: tea
//	    statements:
//	      - fact: {name: it_is_hot, expr: "outside_temp > 150"}
//	      - dynamic: {name: am_thirsty, probe: thirst}
//	      - fact: {name: iced_tea_made, value: false}
//	      - fact: {name: no_iced_tea, not: iced_tea_made}
//	      - rule:
//	          when: [it_is_hot, am_thirsty, no_iced_tea]
//	          then: {value: "Making tea"}
//	      - default:
//	          then: {value: null}
//
// Statements run in order, exactly as the equivalent builder calls would:
// facts are declared when reached, and a rule is matched against the facts
// declared before it. A rule's then clause produces a literal value, calls a
// host-registered action, or evaluates another ruleset in a nested scope.
//
// Fact names are NFC-normalized on load so visually identical names refer to
// the same fact. Hash gives each definition a content-addressed identity.
package ruleset
