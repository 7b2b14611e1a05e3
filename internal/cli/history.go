package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ruler/internal/engine"
	"github.com/roach88/ruler/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database   string
	ScopeID    string // optional - one evaluation and its nested ones
	Ruleset    string // optional - filter listing by ruleset
	Limit      int
	Incomplete bool // list evaluations that never ended
}

// HistoryEvent is one step of a replayed evaluation.
type HistoryEvent struct {
	Seq       int64    `json:"seq"`
	Kind      string   `json:"kind"`
	ScopeID   string   `json:"scope_id"`
	Ruleset   string   `json:"ruleset,omitempty"`
	Depth     int      `json:"depth"`
	RuleIndex int      `json:"rule_index,omitempty"`
	Doc       string   `json:"doc,omitempty"`
	Guards    []string `json:"guards,omitempty"`
	Fired     bool     `json:"fired,omitempty"`
	Skipped   bool     `json:"skipped,omitempty"`
	Result    any      `json:"result,omitempty"`
	ErrorCode string   `json:"error_code,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// HistoryStats holds summary statistics for one evaluation tree.
type HistoryStats struct {
	Evaluations int  `json:"evaluations"`
	Rules       int  `json:"rules"`
	Fired       int  `json:"fired"`
	Skipped     int  `json:"skipped"`
	IsComplete  bool `json:"is_complete"`
}

// HistoryTrace is the replay of one evaluation.
type HistoryTrace struct {
	ScopeID  string         `json:"scope_id"`
	Timeline []HistoryEvent `json:"timeline"`
	Stats    HistoryStats   `json:"stats"`

	// Nested lists the evaluations started directly by this one's rules.
	Nested []store.Evaluation `json:"nested"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query the evaluation log",
		Long: `Query the evaluation log written by run --db.

Without --scope, lists root evaluations with their final value or error.
With --scope, replays that evaluation and every nested one as a timeline
of rule outcomes in the order they were recorded.

Examples:
  ruler history --db ./ruler.db
  ruler history --db ./ruler.db --ruleset tea --limit 10
  ruler history --db ./ruler.db --scope 0190a5c4-...
  ruler history --db ./ruler.db --incomplete --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.ScopeID, "scope", "", "replay one evaluation")
	cmd.Flags().StringVar(&opts.Ruleset, "ruleset", "", "list evaluations of this ruleset only")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum evaluations listed (0 = all)")
	cmd.Flags().BoolVar(&opts.Incomplete, "incomplete", false, "list evaluations that began but never ended")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err), nil)
	}
	defer st.Close()

	if opts.ScopeID != "" {
		return showEvaluation(ctx, st, opts.ScopeID, formatter)
	}

	var evals []store.Evaluation
	if opts.Incomplete {
		evals, err = st.FindIncompleteEvaluations(ctx)
	} else {
		evals, err = st.ListEvaluations(ctx, store.ListOptions{
			RootsOnly: opts.Ruleset == "",
			Name:      opts.Ruleset,
			Limit:     opts.Limit,
		})
	}
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}
	if evals == nil {
		evals = []store.Evaluation{}
	}

	if formatter.JSON() {
		return formatter.Success(evals)
	}
	w := cmd.OutOrStdout()
	if len(evals) == 0 {
		fmt.Fprintln(w, "No evaluations found.")
		return nil
	}
	for _, ev := range evals {
		fmt.Fprintf(w, "%-38s %-16s %-6s %s\n", ev.ScopeID, ev.Name, ev.Mode, evaluationOutcome(ev))
	}
	return nil
}

// showEvaluation replays one evaluation tree.
func showEvaluation(ctx context.Context, st *store.Store, scopeID string, formatter *OutputFormatter) error {
	if _, err := st.ReadEvaluation(ctx, scopeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("evaluation not found: %s", scopeID), nil)
		}
		return formatter.fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}

	events, err := st.ReplayEvaluation(ctx, scopeID)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to replay evaluation: %v", err), nil)
	}
	trace := buildHistoryTrace(scopeID, events)
	if trace.Nested, err = st.ReadChildren(ctx, scopeID); err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}

	if formatter.JSON() {
		return formatter.Success(trace)
	}
	writeTimeline(formatter.Writer, trace)
	return nil
}

func buildHistoryTrace(scopeID string, events []engine.Event) HistoryTrace {
	trace := HistoryTrace{ScopeID: scopeID, Timeline: make([]HistoryEvent, 0, len(events))}
	begun, ended := 0, 0
	for _, ev := range events {
		trace.Timeline = append(trace.Timeline, HistoryEvent{
			Seq:       ev.Seq,
			Kind:      string(ev.Kind),
			ScopeID:   ev.ScopeID,
			Ruleset:   ev.Name,
			Depth:     ev.Depth,
			RuleIndex: ev.RuleIndex,
			Doc:       ev.Doc,
			Guards:    ev.Guards,
			Fired:     ev.Fired,
			Skipped:   ev.Skipped,
			Result:    ev.Result,
			ErrorCode: string(ev.ErrCode),
			Error:     ev.Error,
		})
		switch ev.Kind {
		case engine.EventBegin:
			begun++
		case engine.EventEnd:
			ended++
		case engine.EventRule, engine.EventDefault:
			trace.Stats.Rules++
			if ev.Fired {
				trace.Stats.Fired++
			}
			if ev.Skipped {
				trace.Stats.Skipped++
			}
		}
	}
	trace.Stats.Evaluations = begun
	trace.Stats.IsComplete = begun == ended
	return trace
}

func writeTimeline(w io.Writer, trace HistoryTrace) {
	fmt.Fprintf(w, "Evaluation %s\n\n", trace.ScopeID)
	for _, ev := range trace.Timeline {
		indent := strings.Repeat("  ", ev.Depth)
		switch engine.EventKind(ev.Kind) {
		case engine.EventBegin:
			fmt.Fprintf(w, "[%d] %sbegin %s (%s)\n", ev.Seq, indent, ev.Ruleset, ev.ScopeID)
		case engine.EventEnd:
			if ev.Error != "" {
				fmt.Fprintf(w, "[%d] %send %s: error %s\n", ev.Seq, indent, ev.Ruleset, ev.Error)
			} else {
				fmt.Fprintf(w, "[%d] %send %s => %s\n", ev.Seq, indent, ev.Ruleset, formatValue(ev.Result))
			}
		case engine.EventDefault:
			fmt.Fprintf(w, "[%d] %s  default: %s\n", ev.Seq, indent, ruleOutcome(ev))
		default:
			label := ev.Doc
			if label == "" {
				label = fmt.Sprintf("rule %d", ev.RuleIndex)
			}
			fmt.Fprintf(w, "[%d] %s  %s [%s]: %s\n", ev.Seq, indent, label, strings.Join(ev.Guards, " & "), ruleOutcome(ev))
		}
	}
	fmt.Fprintf(w, "\n%d evaluation(s), %d rule(s), %d fired, %d skipped", trace.Stats.Evaluations, trace.Stats.Rules, trace.Stats.Fired, trace.Stats.Skipped)
	if !trace.Stats.IsComplete {
		fmt.Fprint(w, ", incomplete")
	}
	fmt.Fprintln(w)
}

func ruleOutcome(ev HistoryEvent) string {
	switch {
	case ev.Fired:
		return "fired => " + formatValue(ev.Result)
	case ev.Skipped:
		return "skipped"
	default:
		return "not matched"
	}
}

func evaluationOutcome(ev store.Evaluation) string {
	switch {
	case !ev.Ended:
		return "(incomplete)"
	case ev.Failed():
		return "error " + ev.ErrorMessage
	default:
		return "=> " + ev.ResultJSON
	}
}
