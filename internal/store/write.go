package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/ruler/internal/engine"
)

// defaultRuleIndex marks rows written for default rule statements.
const defaultRuleIndex = -1

// Record implements engine.Recorder.
//
// Writes are idempotent: recording the same begin or statement event twice
// leaves one row. An end event for an unknown scope is an error.
func (s *Store) Record(ctx context.Context, ev engine.Event) error {
	switch ev.Kind {
	case engine.EventBegin:
		return s.writeBegin(ctx, ev)
	case engine.EventRule, engine.EventDefault:
		return s.writeFiring(ctx, ev)
	case engine.EventEnd:
		return s.writeEnd(ctx, ev)
	default:
		return fmt.Errorf("record: unknown event kind %q", ev.Kind)
	}
}

func (s *Store) writeBegin(ctx context.Context, ev engine.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evaluations
		(scope_id, parent_id, name, mode, depth, begin_seq)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(scope_id) DO NOTHING
	`,
		ev.ScopeID,
		nullString(ev.ParentID),
		ev.Name,
		string(ev.Mode),
		ev.Depth,
		ev.Seq,
	)
	if err != nil {
		return fmt.Errorf("write evaluation begin: %w", err)
	}
	return nil
}

func (s *Store) writeFiring(ctx context.Context, ev engine.Event) error {
	guards, err := marshalGuards(ev.Guards)
	if err != nil {
		return fmt.Errorf("write rule firing: %w", err)
	}

	index, isDefault := ev.RuleIndex, ev.Kind == engine.EventDefault
	if isDefault {
		index = defaultRuleIndex
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rule_firings
		(scope_id, seq, rule_index, is_default, doc, guards, fired, skipped, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(scope_id, seq) DO NOTHING
	`,
		ev.ScopeID,
		ev.Seq,
		index,
		isDefault,
		ev.Doc,
		guards,
		ev.Fired,
		ev.Skipped,
		marshalValue(ev.Result),
	)
	if err != nil {
		return fmt.Errorf("write rule firing: %w", err)
	}
	return nil
}

func (s *Store) writeEnd(ctx context.Context, ev engine.Event) error {
	var result sql.NullString
	if ev.Error == "" {
		result = sql.NullString{String: marshalValue(ev.Result), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE evaluations
		SET end_seq = ?, result = ?, error_code = ?, error_message = ?
		WHERE scope_id = ?
	`,
		ev.Seq,
		result,
		string(ev.ErrCode),
		ev.Error,
		ev.ScopeID,
	)
	if err != nil {
		return fmt.Errorf("write evaluation end: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write evaluation end: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("write evaluation end: scope %s was never begun", ev.ScopeID)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
