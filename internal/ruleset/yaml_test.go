package ruleset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/ruler/internal/engine"
)

func TestLoadYAML_Tea(t *testing.T) {
	defs, err := LoadFile("testdata/rulesets/tea.yaml")
	require.NoError(t, err)
	require.Len(t, defs, 1)

	def := defs[0]
	assert.Equal(t, "tea", def.Name)
	assert.Equal(t, engine.Mode(""), def.Mode)
	assert.Equal(t, "testdata/rulesets/tea.yaml", def.Source)
	require.Len(t, def.Statements, 6)

	kinds := make([]string, len(def.Statements))
	for i, st := range def.Statements {
		kinds[i] = st.Kind()
	}
	assert.Equal(t, []string{KindFact, KindFact, KindFact, KindDynamic, KindRule, KindRule}, kinds)

	assert.Equal(t, "outside_temp >= 100.0", def.Statements[0].Fact.Expr)
	require.NotNil(t, def.Statements[1].Fact.Value)
	assert.True(t, *def.Statements[1].Fact.Value)
	assert.Equal(t, "iced_tea_made", def.Statements[2].Fact.Not)
	assert.Equal(t, "thirsty", def.Statements[3].Dynamic.Probe)
	assert.Equal(t, []string{"it_is_hot", "am_thirsty", "no_iced_tea"}, def.Statements[4].Rule.When)
	assert.Equal(t, "Making tea", def.Statements[4].Rule.Then.Value)
}

func TestLoadYAML_RejectsUnknownFields(t *testing.T) {
	_, err := LoadFile("testdata/invalid/typo.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statments")
}

func TestLoadYAML_Empty(t *testing.T) {
	_, err := LoadYAML([]byte(""), "empty.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty ruleset file")

	_, err = LoadYAML([]byte("rulesets: []\n"), "none.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be non-empty")
}

func TestLoadYAML_NormalizesNames(t *testing.T) {
	decomposed := norm.NFD.String("café")
	src := "rulesets:\n" +
		"  - name: drinks\n" +
		"    statements:\n" +
		"      - fact: {name: " + decomposed + ", value: true}\n" +
		"      - rule: {when: [" + decomposed + "], then: {value: ok}}\n"

	defs, err := LoadYAML([]byte(src), "drinks.yaml")
	require.NoError(t, err)

	composed := norm.NFC.String("café")
	assert.Equal(t, composed, defs[0].Statements[0].Fact.Name)
	assert.Equal(t, []string{composed}, defs[0].Statements[1].Rule.When)
}

func TestLoadYAML_NullValue(t *testing.T) {
	src := `
rulesets:
  - name: nothing
    statements:
      - default: {then: {value: null}}
`
	defs, err := LoadYAML([]byte(src), "nothing.yaml")
	require.NoError(t, err)
	assert.Nil(t, defs[0].Statements[0].Default.Then.Value)
}

func TestLoadFile_UnsupportedExtension(t *testing.T) {
	_, err := LoadFile("testdata/rulesets/tea.yaml.bak")
	require.Error(t, err)
}
