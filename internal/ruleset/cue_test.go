package ruleset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ruler/internal/engine"
)

const teaCUE = `
ruleset: tea: {
	doc: "Decide between making and drinking iced tea."
	statements: [
		{fact: {name: "it_is_hot", expr: "outside_temp >= 100.0"}},
		{fact: {name: "iced_tea_made", value: true}},
		{fact: {name: "no_iced_tea", not: "iced_tea_made"}},
		{dynamic: {name: "am_thirsty", probe: "thirsty"}},
		{rule: {when: ["it_is_hot", "am_thirsty", "no_iced_tea"], doc: "make tea", then: value: "Making tea"}},
		{rule: {when: ["it_is_hot", "am_thirsty", "iced_tea_made"], doc: "drink tea", then: value: "Ahhhhhhh"}},
	]
}
`

func TestCompileCUE_MatchesYAML(t *testing.T) {
	fromCUE, err := CompileCUEString(teaCUE, "tea.cue")
	require.NoError(t, err)
	require.Len(t, fromCUE, 1)

	fromYAML, err := LoadFile("testdata/rulesets/tea.yaml")
	require.NoError(t, err)

	cueHash, err := Hash(fromCUE[0])
	require.NoError(t, err)
	yamlHash, err := Hash(fromYAML[0])
	require.NoError(t, err)

	assert.Equal(t, yamlHash, cueHash, "the same ruleset hashes equal in both formats")
	assert.Equal(t, "tea.cue", fromCUE[0].Source)
}

func TestCompileCUE_ModeAndNested(t *testing.T) {
	defs, err := CompileCUEString(`
ruleset: outer: statements: [
	{fact: {name: "go", value: true}},
	{rule: {when: ["go"], then: ruleset: "inner"}},
]
ruleset: inner: {
	mode: "multi"
	statements: [{fact: {name: "x", value: false}}]
}
`, "nested.cue")
	require.NoError(t, err)
	require.Len(t, defs, 2)

	byName := map[string]*Definition{}
	for _, d := range defs {
		byName[d.Name] = d
	}
	assert.Equal(t, "inner", byName["outer"].Statements[1].Rule.Then.Ruleset)
	assert.Equal(t, engine.ModeMulti, byName["inner"].Mode)
}

func TestCompileCUE_ThenValueKinds(t *testing.T) {
	defs, err := CompileCUEString(`
ruleset: values: {
	mode: "multi"
	statements: [
		{fact: {name: "t", value: true}},
		{rule: {when: ["t"], then: value: 42}},
		{rule: {when: ["t"], then: value: 1.5}},
		{rule: {when: ["t"], then: value: false}},
		{rule: {when: ["t"], then: value: null}},
		{rule: {when: ["t"], then: value: {a: "x", b: ["y"]}}},
	]
}
`, "values.cue")
	require.NoError(t, err)

	stmts := defs[0].Statements
	assert.Equal(t, 42, stmts[1].Rule.Then.Value)
	assert.Equal(t, 1.5, stmts[2].Rule.Then.Value)
	assert.Equal(t, false, stmts[3].Rule.Then.Value)
	assert.Nil(t, stmts[4].Rule.Then.Value)
	assert.Equal(t, map[string]any{"a": "x", "b": []any{"y"}}, stmts[5].Rule.Then.Value)
}

func TestCompileCUE_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{
			name:    "no ruleset",
			src:     `other: 1`,
			wantMsg: "no ruleset declared",
		},
		{
			name:    "missing statements",
			src:     `ruleset: a: doc: "x"`,
			wantMsg: "statements are required",
		},
		{
			name:    "empty statement",
			src:     `ruleset: a: statements: [{}]`,
			wantMsg: "exactly one of fact, dynamic, rule or default",
		},
		{
			name:    "two kinds",
			src:     `ruleset: a: statements: [{fact: {name: "x", value: true}, default: {}}]`,
			wantMsg: "exactly one of fact, dynamic, rule or default",
		},
		{
			name:    "fact without name",
			src:     `ruleset: a: statements: [{fact: {value: true}}]`,
			wantMsg: "name is required",
		},
		{
			name:    "rule without when",
			src:     `ruleset: a: statements: [{rule: {then: value: 1}}]`,
			wantMsg: "when is required",
		},
		{
			name:    "name disagrees with label",
			src:     `ruleset: a: {name: "b", statements: []}`,
			wantMsg: "does not match label",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileCUEString(tt.src, "bad.cue")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestCompileCUE_SyntaxErrorHasPosition(t *testing.T) {
	_, err := CompileCUEString("ruleset: a: {\n  statements: [\n", "broken.cue")
	require.Error(t, err)

	var cerr *CompileError
	require.True(t, errors.As(err, &cerr))
	assert.True(t, cerr.Pos.IsValid())
	assert.Contains(t, cerr.Error(), "broken.cue")
}
