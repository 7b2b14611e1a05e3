// Package harness runs conformance scenarios against declarative rulesets.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: tea_when_hot
//	description: "A hot day with tea already made means drinking it"
//	ruleset: ../rulesets/tea.yaml
//	entry: tea
//	inputs: { outside_temp: 190 }
//	probes:
//	  thirsty: [true]
//	expect:
//	  result: Ahhhhhhh
//	assertions:
//	  - type: fired
//	    doc: drink tea
//	  - type: not_fired
//	    doc: make tea
//	  - type: probe_calls
//	    probe: thirsty
//	    count: 2
//
// The ruleset path is relative to the scenario file and may name a file or
// a directory of rulesets. Probes replay their listed values in order and
// repeat the last one. Actions return their configured value.
//
// # Assertion Types
//
//   - fired: a rule with the given doc fired
//   - not_fired: no rule with the given doc fired
//   - skipped: a rule with the given doc was skipped after an earlier match
//   - probe_calls: a probe was called exactly count times
//   - action_calls: an action was called exactly count times
//   - depth: the deepest point stacked exactly count evaluations (1 without nesting)
//   - evaluations: the store holds exactly count evaluations of a ruleset
//
// An optional ruleset field on fired, not_fired and skipped limits the match
// to statements of that ruleset.
//
// # Deterministic Testing
//
// Every scenario runs on a fresh in-memory store with sequential scope ids
// (scope-1, scope-2, ...) and a logical clock starting at zero, so traces
// are identical across runs and suitable for golden comparison.
package harness
