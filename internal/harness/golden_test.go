package harness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_TeaHotDrink(t *testing.T) {
	s := loadTestScenario(t, "01_tea_hot_drink.yaml")

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestMarshalSnapshot_TrailingNewline(t *testing.T) {
	r := NewResult("empty")

	data, err := MarshalSnapshot("empty", r)
	require.NoError(t, err)
	require.Equal(t, "{\n  \"scenario_name\": \"empty\",\n  \"trace\": []\n}\n", string(data))
}
