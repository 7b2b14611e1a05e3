package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ruler/internal/testutil"
)

func TestRule_SingletaryExclusivity(t *testing.T) {
	testCases := []struct {
		name      string
		facts     map[string]bool
		guards    [][]string
		wantFired []int
		want      any
	}{
		{
			name:      "first of two matching rules",
			facts:     map[string]bool{"a": true, "b": true},
			guards:    [][]string{{"a"}, {"b"}},
			wantFired: []int{0},
			want:      0,
		},
		{
			name:      "skips non matching then fires",
			facts:     map[string]bool{"a": false, "b": true},
			guards:    [][]string{{"a"}, {"b"}, {"b"}},
			wantFired: []int{1},
			want:      1,
		},
		{
			name:      "nothing matches",
			facts:     map[string]bool{"a": false, "b": false},
			guards:    [][]string{{"a"}, {"a", "b"}},
			wantFired: nil,
			want:      nil,
		},
		{
			name:      "empty guard list always holds",
			facts:     map[string]bool{},
			guards:    [][]string{{}, {}},
			wantFired: []int{0},
			want:      0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			eng := newTestEngine()
			var fired []int

			result, err := eng.Ruleset(testContext(), func(ctx context.Context, s *Scope) error {
				for name, v := range tc.facts {
					require.NoError(t, s.Fact(name, v))
				}
				for i, guards := range tc.guards {
					if _, err := s.Rule(guards, "", func() (any, error) {
						fired = append(fired, i)
						return i, nil
					}); err != nil {
						return err
					}
				}
				return nil
			})

			require.NoError(t, err)
			assert.Equal(t, tc.wantFired, fired)
			assert.Equal(t, tc.want, result)
		})
	}
}

func TestRule_SingletaryMatchedSkipsGuardEvaluation(t *testing.T) {
	eng := newTestEngine()
	probe := testutil.NewProbe(true)

	_, err := eng.Ruleset(testContext(), func(ctx context.Context, s *Scope) error {
		require.NoError(t, s.DynamicFact("dyn", probe.Func()))
		if _, err := s.Rule([]string{"dyn"}, "", value("first")); err != nil {
			return err
		}
		got, err := s.Rule([]string{"dyn"}, "", value("second"))
		assert.Equal(t, "first", got)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 1, probe.Calls(), "guards are not evaluated after a match")
}

func TestRule_SingletaryMatchedSkipsUnknownGuard(t *testing.T) {
	eng := newTestEngine()

	result, err := eng.Ruleset(testContext(), func(ctx context.Context, s *Scope) error {
		require.NoError(t, s.Fact("a", true))
		if _, err := s.Rule([]string{"a"}, "", value(1)); err != nil {
			return err
		}
		_, err := s.Rule([]string{"never_declared"}, "", value(2))
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result)
}

func TestRule_MultiFiresIndependently(t *testing.T) {
	eng := newTestEngine()
	var order []string

	_, err := eng.MultiRuleset(testContext(), func(ctx context.Context, s *Scope) error {
		require.NoError(t, s.Fact("yes", true))
		require.NoError(t, s.Fact("no", false))
		rules := []struct {
			name   string
			guards []string
		}{
			{"r1", []string{"yes"}},
			{"r2", []string{"no"}},
			{"r3", []string{"yes", "yes"}},
			{"r4", []string{"yes", "no"}},
			{"r5", []string{}},
		}
		for _, r := range rules {
			name := r.name
			got, err := s.Rule(r.guards, name, func() (any, error) {
				order = append(order, name)
				return name, nil
			})
			if err != nil {
				return err
			}
			if got != nil {
				assert.Equal(t, name, got, "each rule returns its own result")
			}
		}
		_, matched := s.Matched()
		assert.False(t, matched, "multi scopes never record a match")
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r3", "r5"}, order)
}

func TestRule_MultiLastStatementValue(t *testing.T) {
	eng := newTestEngine()

	result, err := eng.MultiRuleset(testContext(), func(ctx context.Context, s *Scope) error {
		require.NoError(t, s.Fact("a", true))
		require.NoError(t, s.Fact("b", false))
		if _, err := s.Rule([]string{"a"}, "", value(1)); err != nil {
			return err
		}
		_, err := s.Rule([]string{"b"}, "", value(2))
		return err
	})

	require.NoError(t, err)
	assert.Nil(t, result, "the last statement did not fire")
}

func TestRule_UnknownFactBeforeAnyAction(t *testing.T) {
	testCases := []struct {
		name   string
		guards []string
	}{
		{"only guard", []string{"missing"}},
		{"after true guard", []string{"t", "missing"}},
		{"after false guard", []string{"f", "missing"}},
		{"before guards", []string{"missing", "t"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			eng := newTestEngine()
			probe := testutil.NewProbe(true)
			ran := false

			_, err := eng.Ruleset(testContext(), func(ctx context.Context, s *Scope) error {
				require.NoError(t, s.Fact("t", true))
				require.NoError(t, s.Fact("f", false))
				require.NoError(t, s.DynamicFact("d", probe.Func()))
				_, err := s.Rule(append([]string{"d"}, tc.guards...), "", func() (any, error) {
					ran = true
					return nil, nil
				})
				return err
			})

			require.Error(t, err)
			assert.True(t, IsUnknownFact(err))
			assert.False(t, ran)
			assert.Zero(t, probe.Calls(), "no guard is resolved once one is unknown")

			var re *RuleError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, "missing", re.Fact)
			assert.Equal(t, "scope-1", re.ScopeID)
		})
	}
}

func TestRule_ActionErrorPropagates(t *testing.T) {
	eng := newTestEngine()
	boom := errors.New("boom")
	afterRan := false

	_, s := eng.Begin(testContext(), ModeMulti)
	require.NoError(t, s.Fact("a", true))

	_, err := s.Rule([]string{"a"}, "", func() (any, error) { return nil, boom })
	require.ErrorIs(t, err, boom)

	_, _ = s.Rule([]string{"a"}, "", func() (any, error) {
		afterRan = true
		return 1, nil
	})
	assert.True(t, afterRan, "the host decides whether to continue after an error")

	result, err := s.End()
	assert.ErrorIs(t, err, boom, "End reports the first error")
	assert.Nil(t, result)
}

func TestRule_RepeatedRuleRerunsFold(t *testing.T) {
	eng := newTestEngine()
	probe := testutil.NewScriptedProbe(false, true)

	result, err := eng.Ruleset(testContext(), func(ctx context.Context, s *Scope) error {
		require.NoError(t, s.DynamicFact("ready", probe.Func()))
		for i := 0; i < 3; i++ {
			if _, err := s.Rule([]string{"ready"}, "", value(i)); err != nil {
				return err
			}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result, "second declaration matched, third short-circuited")
	assert.Equal(t, 2, probe.Calls())
}

func TestRule_NilActionFires(t *testing.T) {
	eng := newTestEngine()

	_, s := eng.Begin(testContext(), ModeSingle)
	require.NoError(t, s.Fact("a", true))
	got, err := s.Rule([]string{"a"}, "", nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, matched := s.Matched()
	assert.True(t, matched, "a rule firing with a nil result still counts as the match")

	got, err = s.DefaultRule(value("fallback"))
	require.NoError(t, err)
	assert.Nil(t, got, "default returns the stored nil match")
	_, _ = s.End()
}

func TestDefaultRule_RunsOnceAndBecomesMatch(t *testing.T) {
	eng := newTestEngine()
	runs := 0
	action := func() (any, error) {
		runs++
		return "fallback", nil
	}

	result, err := eng.Ruleset(testContext(), func(ctx context.Context, s *Scope) error {
		if _, err := s.DefaultRule(action); err != nil {
			return err
		}
		got, err := s.DefaultRule(action)
		assert.Equal(t, "fallback", got)
		if err != nil {
			return err
		}
		m, ok := s.Matched()
		assert.True(t, ok)
		assert.Equal(t, "fallback", m)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "fallback", result)
	assert.Equal(t, 1, runs)
}

func TestDefaultRule_AfterMatchReturnsMatch(t *testing.T) {
	eng := newTestEngine()
	defaultRan := false

	result, err := eng.Ruleset(testContext(), func(ctx context.Context, s *Scope) error {
		require.NoError(t, s.Fact("a", true))
		if _, err := s.Rule([]string{"a"}, "", value("rule")); err != nil {
			return err
		}
		_, err := s.DefaultRule(func() (any, error) {
			defaultRan = true
			return "default", nil
		})
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, "rule", result)
	assert.False(t, defaultRan)
}

func TestDefaultRule_RejectedInMultiAfterMatches(t *testing.T) {
	eng := newTestEngine()

	_, err := eng.MultiRuleset(testContext(), func(ctx context.Context, s *Scope) error {
		require.NoError(t, s.Fact("a", true))
		if _, err := s.Rule([]string{"a"}, "", value(1)); err != nil {
			return err
		}
		_, err := s.DefaultRule(value(2))
		return err
	})

	assert.True(t, IsBadDefaultRule(err))
}

func TestDefaultRule_ActionError(t *testing.T) {
	eng := newTestEngine()
	boom := errors.New("no default")

	result, err := eng.Ruleset(testContext(), func(ctx context.Context, s *Scope) error {
		_, err := s.DefaultRule(func() (any, error) { return nil, boom })
		return err
	})

	assert.ErrorIs(t, err, boom)
	assert.Nil(t, result)
}
