package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectRecorder keeps every event in memory.
type collectRecorder struct {
	events []Event
}

func (r *collectRecorder) Record(_ context.Context, ev Event) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *collectRecorder) kinds() []EventKind {
	out := make([]EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

func TestRecorder_EventSequence(t *testing.T) {
	rec := &collectRecorder{}
	eng := newTestEngine(WithRecorder(rec))

	_, err := eng.Ruleset(testContext(), func(ctx context.Context, s *Scope) error {
		require.NoError(t, s.Fact("a", false))
		require.NoError(t, s.Fact("b", true))
		if _, err := s.Rule([]string{"a"}, "needs a", value(1)); err != nil {
			return err
		}
		if _, err := s.Rule([]string{"b"}, "needs b", value(2)); err != nil {
			return err
		}
		if _, err := s.Rule([]string{"a", "b"}, "needs both", value(3)); err != nil {
			return err
		}
		_, err := s.DefaultRule(value(4))
		return err
	}, WithName("sample"))
	require.NoError(t, err)

	assert.Equal(t, []EventKind{EventBegin, EventRule, EventRule, EventRule, EventDefault, EventEnd}, rec.kinds())
	for i, ev := range rec.events {
		assert.Equal(t, int64(i+1), ev.Seq, "events stamped in order")
		assert.Equal(t, "scope-1", ev.ScopeID)
		assert.Equal(t, "sample", ev.Name)
		assert.Equal(t, ModeSingle, ev.Mode)
	}

	notMatched, fired, skipped := rec.events[1], rec.events[2], rec.events[3]
	assert.False(t, notMatched.Fired)
	assert.Equal(t, "needs a", notMatched.Doc)
	assert.Equal(t, 0, notMatched.RuleIndex)

	assert.True(t, fired.Fired)
	assert.Equal(t, 2, fired.Result)
	assert.Equal(t, []string{"b"}, fired.Guards)
	assert.Equal(t, 1, fired.RuleIndex)

	assert.True(t, skipped.Skipped)
	assert.Equal(t, 2, skipped.Result)
	assert.Equal(t, 2, skipped.RuleIndex)

	assert.True(t, rec.events[4].Skipped, "default skipped after a match")
	assert.Equal(t, 2, rec.events[5].Result)
}

func TestRecorder_NestedScopesCarryParent(t *testing.T) {
	rec := &collectRecorder{}
	eng := newTestEngine(WithRecorder(rec))

	_, err := eng.Ruleset(testContext(), func(ctx context.Context, s *Scope) error {
		_, err := s.DefaultRule(func() (any, error) {
			return eng.MultiRuleset(ctx, func(ctx context.Context, s *Scope) error { return nil })
		})
		return err
	})
	require.NoError(t, err)

	var inner []Event
	for _, ev := range rec.events {
		if ev.ScopeID == "scope-2" {
			inner = append(inner, ev)
		}
	}
	require.Len(t, inner, 2)
	assert.Equal(t, "scope-1", inner[0].ParentID)
	assert.Equal(t, 1, inner[0].Depth)
	assert.Equal(t, ModeMulti, inner[0].Mode)
}

func TestRecorder_EndCarriesError(t *testing.T) {
	rec := &collectRecorder{}
	eng := newTestEngine(WithRecorder(rec))

	_, err := eng.MultiRuleset(testContext(), func(ctx context.Context, s *Scope) error {
		_, err := s.DefaultRule(value(1))
		return err
	})
	require.Error(t, err)

	end := rec.events[len(rec.events)-1]
	assert.Equal(t, EventEnd, end.Kind)
	assert.Equal(t, ErrCodeBadDefaultRule, end.ErrCode)
	assert.Contains(t, end.Error, "BAD_DEFAULT_RULE")
	assert.Nil(t, end.Result)
}

func TestRecorder_FailureIsLoggedNotFatal(t *testing.T) {
	var logs bytes.Buffer
	failing := RecorderFunc(func(context.Context, Event) error {
		return errors.New("disk full")
	})
	eng := newTestEngine(
		WithRecorder(failing),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)

	result, err := eng.Ruleset(testContext(), func(ctx context.Context, s *Scope) error {
		_, err := s.DefaultRule(value("still works"))
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, "still works", result)
	assert.Contains(t, logs.String(), "record evaluation event failed")
	assert.Contains(t, logs.String(), "disk full")
}

func TestRecorder_ClockContinues(t *testing.T) {
	rec := &collectRecorder{}
	eng := newTestEngine(WithRecorder(rec), WithClock(NewClockAt(100)))

	_, err := eng.Ruleset(testContext(), func(ctx context.Context, s *Scope) error { return nil })
	require.NoError(t, err)

	require.Len(t, rec.events, 2)
	assert.Equal(t, int64(101), rec.events[0].Seq)
	assert.Equal(t, int64(102), rec.events[1].Seq)
}
