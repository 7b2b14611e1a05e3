package ruleset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ruler/internal/engine"
)

func boolPtr(b bool) *bool { return &b }

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate_TeaIsClean(t *testing.T) {
	defs, err := LoadFile("testdata/rulesets/tea.yaml")
	require.NoError(t, err)
	assert.Empty(t, Validate(defs[0]))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		def   Definition
		codes []string
	}{
		{
			name:  "missing name",
			def:   Definition{Statements: []Statement{}},
			codes: []string{ErrNameRequired},
		},
		{
			name:  "bad mode",
			def:   Definition{Name: "r", Mode: "parallel"},
			codes: []string{ErrInvalidMode},
		},
		{
			name:  "empty statement",
			def:   Definition{Name: "r", Statements: []Statement{{}}},
			codes: []string{ErrInvalidStatement},
		},
		{
			name: "fact without source",
			def: Definition{Name: "r", Statements: []Statement{
				{Fact: &FactDecl{Name: "a"}},
			}},
			codes: []string{ErrInvalidFactSource},
		},
		{
			name: "fact with two sources",
			def: Definition{Name: "r", Statements: []Statement{
				{Fact: &FactDecl{Name: "a", Value: boolPtr(true), Expr: "true"}},
			}},
			codes: []string{ErrInvalidFactSource},
		},
		{
			name: "unnamed dynamic",
			def: Definition{Name: "r", Statements: []Statement{
				{Dynamic: &DynamicDecl{Probe: "p"}},
			}},
			codes: []string{ErrFactNameRequired},
		},
		{
			name: "dynamic with probe and expr",
			def: Definition{Name: "r", Statements: []Statement{
				{Dynamic: &DynamicDecl{Name: "d", Probe: "p", Expr: "true"}},
			}},
			codes: []string{ErrInvalidDynamic},
		},
		{
			name: "rule before fact",
			def: Definition{Name: "r", Statements: []Statement{
				{Rule: &RuleDecl{When: []string{"later"}}},
				{Fact: &FactDecl{Name: "later", Value: boolPtr(true)}},
			}},
			codes: []string{ErrUndeclaredFact},
		},
		{
			name: "default in multi",
			def: Definition{Name: "r", Mode: engine.ModeMulti, Statements: []Statement{
				{Default: &DefaultDecl{}},
			}},
			codes: []string{ErrDefaultInMulti},
		},
		{
			name: "not of dynamic",
			def: Definition{Name: "r", Statements: []Statement{
				{Dynamic: &DynamicDecl{Name: "d", Probe: "p"}},
				{Fact: &FactDecl{Name: "nd", Not: "d"}},
			}},
			codes: []string{ErrNotOfDynamic},
		},
		{
			name: "not of undeclared",
			def: Definition{Name: "r", Statements: []Statement{
				{Fact: &FactDecl{Name: "nd", Not: "ghost"}},
			}},
			codes: []string{ErrNotOfUndeclared},
		},
		{
			name: "then with value and action",
			def: Definition{Name: "r", Statements: []Statement{
				{Default: &DefaultDecl{Then: Then{Value: 1, Action: "a"}}},
			}},
			codes: []string{ErrInvalidThen},
		},
		{
			name: "unparseable expression",
			def: Definition{Name: "r", Statements: []Statement{
				{Fact: &FactDecl{Name: "a", Expr: "temp >"}},
			}},
			codes: []string{ErrInvalidExpr},
		},
		{
			name: "errors are collected",
			def: Definition{Mode: engine.ModeMulti, Statements: []Statement{
				{Rule: &RuleDecl{When: []string{"x"}}},
				{Default: &DefaultDecl{}},
			}},
			codes: []string{ErrNameRequired, ErrUndeclaredFact, ErrDefaultInMulti},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.codes, codes(Validate(&tt.def)))
		})
	}
}

func TestValidateLibrary_UnknownNestedRuleset(t *testing.T) {
	lib, err := NewLibrary(&Definition{Name: "outer", Statements: []Statement{
		{Fact: &FactDecl{Name: "go", Value: boolPtr(true)}},
		{Rule: &RuleDecl{When: []string{"go"}, Then: Then{Ruleset: "missing"}}},
	}})
	require.NoError(t, err)

	errs := ValidateLibrary(lib)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnknownRuleset, errs[0].Code)
	assert.Equal(t, "statements[1].then.ruleset", errs[0].Field)
	assert.Contains(t, errs[0].Error(), "[E213] outer:")
}

func TestValidateLibrary_TestdataIsClean(t *testing.T) {
	lib, err := LoadDir("testdata/rulesets")
	require.NoError(t, err)
	assert.Empty(t, ValidateLibrary(lib))
}
