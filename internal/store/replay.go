package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/ruler/internal/engine"
)

// GetLastSeq returns the highest seq recorded, or 0 for an empty log.
// Pass it to engine.NewClockAt so new events continue the sequence.
func (s *Store) GetLastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(
			COALESCE((SELECT MAX(begin_seq) FROM evaluations), 0),
			COALESCE((SELECT MAX(end_seq) FROM evaluations), 0),
			COALESCE((SELECT MAX(seq) FROM rule_firings), 0)
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return seq, nil
}

// FindIncompleteEvaluations returns evaluations that began but never ended.
// A non-empty result after a clean shutdown indicates a crash mid-evaluation.
func (s *Store) FindIncompleteEvaluations(ctx context.Context) ([]Evaluation, error) {
	return s.queryEvaluations(ctx, `
		SELECT `+evaluationColumns+`
		FROM evaluations
		WHERE end_seq IS NULL
		ORDER BY begin_seq ASC, scope_id COLLATE BINARY ASC
	`)
}

// ReadTree returns scopeID and every evaluation nested under it, in begin
// seq order.
func (s *Store) ReadTree(ctx context.Context, scopeID string) ([]Evaluation, error) {
	evals, err := s.queryEvaluations(ctx, `
		WITH RECURSIVE tree(scope_id) AS (
			SELECT scope_id FROM evaluations WHERE scope_id = ?
			UNION ALL
			SELECT e.scope_id FROM evaluations e JOIN tree t ON e.parent_id = t.scope_id
		)
		SELECT `+evaluationColumns+`
		FROM evaluations
		WHERE scope_id IN (SELECT scope_id FROM tree)
		ORDER BY begin_seq ASC, scope_id COLLATE BINARY ASC
	`, scopeID)
	if err != nil {
		return nil, fmt.Errorf("read tree: %w", err)
	}
	return evals, nil
}

// ReplayEvaluation rebuilds the event stream of scopeID and its nested
// evaluations, ordered by seq, as the engine originally recorded it.
// Statement and end results are decoded from JSON, so numbers come back as
// json.Number.
func (s *Store) ReplayEvaluation(ctx context.Context, scopeID string) ([]engine.Event, error) {
	evals, err := s.ReadTree(ctx, scopeID)
	if err != nil {
		return nil, err
	}

	var events []engine.Event
	for _, ev := range evals {
		base := engine.Event{
			ScopeID:  ev.ScopeID,
			ParentID: ev.ParentID,
			Name:     ev.Name,
			Depth:    ev.Depth,
			Mode:     ev.Mode,
		}

		begin := base
		begin.Kind, begin.Seq = engine.EventBegin, ev.BeginSeq
		events = append(events, begin)

		firings, err := s.ReadFirings(ctx, ev.ScopeID)
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", ev.ScopeID, err)
		}
		for _, f := range firings {
			step := base
			step.Seq = f.Seq
			step.Kind = engine.EventRule
			step.RuleIndex = f.RuleIndex
			if f.Default {
				step.Kind, step.RuleIndex = engine.EventDefault, 0
			}
			step.Doc, step.Guards = f.Doc, f.Guards
			step.Fired, step.Skipped = f.Fired, f.Skipped
			if step.Result, err = f.Result(); err != nil {
				return nil, fmt.Errorf("replay %s: %w", ev.ScopeID, err)
			}
			if f.Default {
				step.Guards = nil
			}
			events = append(events, step)
		}

		if !ev.Ended {
			continue
		}
		end := base
		end.Kind, end.Seq = engine.EventEnd, ev.EndSeq
		end.ErrCode, end.Error = engine.RuleErrorCode(ev.ErrorCode), ev.ErrorMessage
		if !ev.Failed() {
			if end.Result, err = ev.Result(); err != nil {
				return nil, fmt.Errorf("replay %s: %w", ev.ScopeID, err)
			}
		}
		events = append(events, end)
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Seq < events[j].Seq })
	return events, nil
}
