package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidDirectory(t *testing.T) {
	out, _, err := execute(t, "validate", filepath.Join("testdata", "rulesets"))
	require.NoError(t, err)
	assert.Equal(t, "✓ 3 ruleset(s) valid\n", out)
}

func TestValidate_JSONSummaries(t *testing.T) {
	out, _, err := execute(t, "validate", filepath.Join("testdata", "rulesets"), "--format", "json")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, true, data["valid"])

	rulesets := data["rulesets"].([]any)
	require.Len(t, rulesets, 3)
	names := make([]string, len(rulesets))
	modes := map[string]string{}
	for i, r := range rulesets {
		m := r.(map[string]any)
		names[i] = m["name"].(string)
		modes[names[i]] = m["mode"].(string)
	}
	assert.Equal(t, []string{"tea", "route", "audit"}, names)
	assert.Equal(t, "multi", modes["audit"])
	assert.Equal(t, "single", modes["tea"])
}

func TestValidate_UndeclaredFact(t *testing.T) {
	out, _, err := execute(t, "validate", filepath.Join("testdata", "invalid", "undeclared.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ [E207] broken: statements[1].rule.when[1]")
	assert.Contains(t, out, `"thirsty"`)
}

func TestValidate_UndeclaredFactJSON(t *testing.T) {
	out, _, err := execute(t, "validate", filepath.Join("testdata", "invalid", "undeclared.yaml"), "--format", "json")
	require.Error(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E207", resp.Error.Code)
}

func TestValidate_LoadFailure(t *testing.T) {
	out, _, err := execute(t, "validate", filepath.Join("testdata", "invalid", "malformed.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
}

func TestValidate_EmptyDirectory(t *testing.T) {
	out, _, err := execute(t, "validate", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
}

func TestValidate_CycleIsWarning(t *testing.T) {
	out, _, err := execute(t, "validate", filepath.Join("testdata", "recursive"))
	require.NoError(t, err)
	assert.Contains(t, out, "! ruleset countdown evaluates itself\n")
	assert.Contains(t, out, "✓ 1 ruleset(s) valid\n")
}

func TestValidate_CycleWarningJSON(t *testing.T) {
	out, _, err := execute(t, "validate", filepath.Join("testdata", "recursive"), "--format", "json")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	data := resp.Data.(map[string]any)
	warnings := data["warnings"].([]any)
	require.Len(t, warnings, 1)
	assert.Equal(t, []any{"countdown", "countdown"}, warnings[0].(map[string]any)["path"])
}
