package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/ruler/internal/engine"
	"github.com/roach88/ruler/internal/testutil"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// teeRecorder records into the store and keeps a copy of every event.
type teeRecorder struct {
	store  *Store
	events []engine.Event
}

func (r *teeRecorder) Record(ctx context.Context, ev engine.Event) error {
	r.events = append(r.events, ev)
	return r.store.Record(ctx, ev)
}

// createTestEngine returns an engine recording into s with ids scope-1, scope-2, ...
func createTestEngine(rec engine.Recorder) *engine.Engine {
	return engine.New(
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithIDGenerator(testutil.NewSequentialIDGenerator("scope")),
		engine.WithRecorder(rec),
	)
}

// teaRuleset is the classic iced tea decision at the given temperature.
func teaRuleset(outsideTemp float64) func(ctx context.Context, s *engine.Scope) error {
	return func(ctx context.Context, s *engine.Scope) error {
		if err := s.FactFunc("it_is_hot", func() (bool, error) { return outsideTemp >= 100.0, nil }); err != nil {
			return err
		}
		if err := s.Fact("iced_tea_made", true); err != nil {
			return err
		}
		noTea, err := s.Not("iced_tea_made")
		if err != nil {
			return err
		}
		if err := s.Fact("no_iced_tea", noTea); err != nil {
			return err
		}
		if err := s.Fact("am_thirsty", true); err != nil {
			return err
		}
		if _, err := s.Rule([]string{"it_is_hot", "am_thirsty", "no_iced_tea"}, "make", func() (any, error) { return "Making tea", nil }); err != nil {
			return err
		}
		_, err = s.Rule([]string{"it_is_hot", "am_thirsty", "iced_tea_made"}, "drink", func() (any, error) { return "Ahhhhhhh", nil })
		return err
	}
}
