package teadrinker

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ruler/internal/engine"
)

func quiet() engine.EngineOption {
	return engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestTeaCheck(t *testing.T) {
	tests := []struct {
		name    string
		temp    float64
		made    bool
		want    any
		printed string
	}{
		{name: "hot with tea made", temp: 190.0, made: true, want: "Ahhhhhhh", printed: "Ahhhhhhh\n"},
		{name: "hot without tea", temp: 190.0, made: false, want: "Making tea", printed: "Making tea\n"},
		{name: "threshold is hot", temp: HotThreshold, made: true, want: "Ahhhhhhh", printed: "Ahhhhhhh\n"},
		{name: "cold", temp: 60.0, made: true, want: nil, printed: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			d := New(&out, false, quiet())
			d.IcedTeaMade = tt.made

			got, err := d.TeaCheck(context.Background(), tt.temp)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.printed, out.String())
		})
	}
}

func TestTeaCheck_DebugTrace(t *testing.T) {
	var out bytes.Buffer
	d := New(&out, true, quiet())

	got, err := d.TeaCheck(context.Background(), 190.0)
	require.NoError(t, err)
	assert.Equal(t, "Ahhhhhhh", got)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "tea_check_debug", out.Bytes())
}

func TestTeaCheck_Thirsty(t *testing.T) {
	assert.True(t, New(io.Discard, false).Thirsty())
}
