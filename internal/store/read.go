package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/ruler/internal/engine"
)

// Evaluation is one recorded scope.
type Evaluation struct {
	ScopeID  string      `json:"scope_id"`
	ParentID string      `json:"parent_id,omitempty"`
	Name     string      `json:"name,omitempty"`
	Mode     engine.Mode `json:"mode"`
	Depth    int         `json:"depth"`
	BeginSeq int64       `json:"begin_seq"`

	// Ended is false for a scope whose end was never recorded, e.g. after a
	// crash mid-evaluation. EndSeq and Result are only meaningful once ended.
	Ended  bool  `json:"ended"`
	EndSeq int64 `json:"end_seq,omitempty"`

	// ResultJSON is the final value as stored; empty when the scope failed.
	ResultJSON string `json:"result,omitempty"`

	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Failed reports whether the evaluation ended with an error.
func (e Evaluation) Failed() bool {
	return e.ErrorMessage != ""
}

// Result decodes the stored final value.
func (e Evaluation) Result() (any, error) {
	return unmarshalValue(e.ResultJSON)
}

// Firing is one recorded rule or default rule statement.
type Firing struct {
	ScopeID    string   `json:"scope_id"`
	Seq        int64    `json:"seq"`
	RuleIndex  int      `json:"rule_index"`
	Default    bool     `json:"default,omitempty"`
	Doc        string   `json:"doc,omitempty"`
	Guards     []string `json:"guards"`
	Fired      bool     `json:"fired"`
	Skipped    bool     `json:"skipped,omitempty"`
	ResultJSON string   `json:"result"`
}

// Result decodes the stored statement value.
func (f Firing) Result() (any, error) {
	return unmarshalValue(f.ResultJSON)
}

// ListOptions filters ListEvaluations.
type ListOptions struct {
	// RootsOnly skips nested evaluations.
	RootsOnly bool

	// Name keeps only evaluations with this scope name.
	Name string

	// Limit caps the number of rows; 0 means no limit.
	Limit int
}

const evaluationColumns = `
	scope_id, parent_id, name, mode, depth, begin_seq, end_seq, result, error_code, error_message
`

// ListEvaluations returns recorded evaluations ordered by begin seq.
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListEvaluations(ctx context.Context, opts ListOptions) ([]Evaluation, error) {
	query := `SELECT ` + evaluationColumns + ` FROM evaluations WHERE 1 = 1`
	var args []any
	if opts.RootsOnly {
		query += ` AND parent_id IS NULL`
	}
	if opts.Name != "" {
		query += ` AND name = ?`
		args = append(args, opts.Name)
	}
	query += ` ORDER BY begin_seq ASC, scope_id COLLATE BINARY ASC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	return s.queryEvaluations(ctx, query, args...)
}

// ReadEvaluation retrieves a single evaluation by scope id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadEvaluation(ctx context.Context, scopeID string) (Evaluation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+evaluationColumns+`
		FROM evaluations
		WHERE scope_id = ?
	`, scopeID)
	return scanEvaluation(row)
}

// ReadChildren returns the evaluations nested directly in scopeID.
func (s *Store) ReadChildren(ctx context.Context, scopeID string) ([]Evaluation, error) {
	return s.queryEvaluations(ctx, `
		SELECT `+evaluationColumns+`
		FROM evaluations
		WHERE parent_id = ?
		ORDER BY begin_seq ASC, scope_id COLLATE BINARY ASC
	`, scopeID)
}

// ReadFirings returns the statements recorded for scopeID in seq order.
func (s *Store) ReadFirings(ctx context.Context, scopeID string) ([]Firing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT scope_id, seq, rule_index, is_default, doc, guards, fired, skipped, result
		FROM rule_firings
		WHERE scope_id = ?
		ORDER BY seq ASC
	`, scopeID)
	if err != nil {
		return nil, fmt.Errorf("query rule firings: %w", err)
	}
	defer rows.Close()

	firings := []Firing{}
	for rows.Next() {
		var f Firing
		var guards string
		if err := rows.Scan(&f.ScopeID, &f.Seq, &f.RuleIndex, &f.Default, &f.Doc, &guards, &f.Fired, &f.Skipped, &f.ResultJSON); err != nil {
			return nil, fmt.Errorf("scan rule firing: %w", err)
		}
		if f.Guards, err = unmarshalGuards(guards); err != nil {
			return nil, err
		}
		firings = append(firings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rule firings: %w", err)
	}
	return firings, nil
}

func (s *Store) queryEvaluations(ctx context.Context, query string, args ...any) ([]Evaluation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	evals := []Evaluation{}
	for rows.Next() {
		ev, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		evals = append(evals, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluations: %w", err)
	}
	return evals, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvaluation(row scanner) (Evaluation, error) {
	var ev Evaluation
	var parent, result sql.NullString
	var endSeq sql.NullInt64
	var mode string
	err := row.Scan(&ev.ScopeID, &parent, &ev.Name, &mode, &ev.Depth, &ev.BeginSeq,
		&endSeq, &result, &ev.ErrorCode, &ev.ErrorMessage)
	if err == sql.ErrNoRows {
		return Evaluation{}, err
	}
	if err != nil {
		return Evaluation{}, fmt.Errorf("scan evaluation: %w", err)
	}
	ev.ParentID = parent.String
	ev.Mode = engine.Mode(mode)
	ev.Ended, ev.EndSeq = endSeq.Valid, endSeq.Int64
	ev.ResultJSON = result.String
	return ev, nil
}
