package ruleset

import (
	"github.com/roach88/ruler/internal/engine"
)

// File is the top-level shape of a YAML ruleset file.
type File struct {
	Rulesets []Definition `yaml:"rulesets" json:"rulesets"`
}

// Definition is one named ruleset.
type Definition struct {
	Name       string      `yaml:"name" json:"name"`
	Mode       engine.Mode `yaml:"mode,omitempty" json:"mode,omitempty"`
	Doc        string      `yaml:"doc,omitempty" json:"doc,omitempty"`
	Statements []Statement `yaml:"statements" json:"statements"`

	// Source is the file the definition was loaded from, if any.
	Source string `yaml:"-" json:"-"`
}

// Statement kinds.
const (
	KindFact    = "fact"
	KindDynamic = "dynamic"
	KindRule    = "rule"
	KindDefault = "default"
)

// Statement is exactly one of a fact, dynamic fact, rule or default rule.
type Statement struct {
	Fact    *FactDecl    `yaml:"fact,omitempty" json:"fact,omitempty"`
	Dynamic *DynamicDecl `yaml:"dynamic,omitempty" json:"dynamic,omitempty"`
	Rule    *RuleDecl    `yaml:"rule,omitempty" json:"rule,omitempty"`
	Default *DefaultDecl `yaml:"default,omitempty" json:"default,omitempty"`
}

// Kind returns the statement kind, or "" unless exactly one is set.
func (s Statement) Kind() string {
	kind, n := "", 0
	if s.Fact != nil {
		kind, n = KindFact, n+1
	}
	if s.Dynamic != nil {
		kind, n = KindDynamic, n+1
	}
	if s.Rule != nil {
		kind, n = KindRule, n+1
	}
	if s.Default != nil {
		kind, n = KindDefault, n+1
	}
	if n != 1 {
		return ""
	}
	return kind
}

// FactDecl declares a static fact. Exactly one of Value, Expr or Not is set:
// a literal, a CUE expression over the inputs evaluated once at declaration,
// or the negation of an earlier static fact.
type FactDecl struct {
	Name  string `yaml:"name" json:"name"`
	Value *bool  `yaml:"value,omitempty" json:"value,omitempty"`
	Expr  string `yaml:"expr,omitempty" json:"expr,omitempty"`
	Not   string `yaml:"not,omitempty" json:"not,omitempty"`
}

// DynamicDecl declares a fact recomputed on every reference, either by a
// host-registered probe or a CUE expression over the inputs.
type DynamicDecl struct {
	Name  string `yaml:"name" json:"name"`
	Probe string `yaml:"probe,omitempty" json:"probe,omitempty"`
	Expr  string `yaml:"expr,omitempty" json:"expr,omitempty"`
}

// RuleDecl declares a rule guarded by the conjunction of When.
type RuleDecl struct {
	When []string `yaml:"when" json:"when"`
	Doc  string   `yaml:"doc,omitempty" json:"doc,omitempty"`
	Then Then     `yaml:"then" json:"then"`
}

// DefaultDecl declares the fallback of a singletary ruleset.
type DefaultDecl struct {
	Then Then `yaml:"then" json:"then"`
}

// Then is the action of a rule. At most one of Action or Ruleset is set;
// otherwise the action yields Value, which may be nil.
type Then struct {
	Value   any    `yaml:"value,omitempty" json:"value,omitempty"`
	Action  string `yaml:"action,omitempty" json:"action,omitempty"`
	Ruleset string `yaml:"ruleset,omitempty" json:"ruleset,omitempty"`
}
