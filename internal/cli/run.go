package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/ruler/internal/engine"
	"github.com/roach88/ruler/internal/harness"
	"github.com/roach88/ruler/internal/ruleset"
	"github.com/roach88/ruler/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Ruleset  string
	Inputs   []string // key=value, values parsed as YAML scalars
	Probes   []string // name=true|false
	Actions  []string // name=value
	Database string
	Trace    bool

	// IDGenerator allows overriding the scope id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator engine.ScopeIDGenerator
}

// RunResult is the outcome of a run.
type RunResult struct {
	Ruleset string `json:"ruleset"`
	Hash    string `json:"hash"`
	ScopeID string `json:"scope_id,omitempty"`
	Value   any    `json:"value"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <rulesets>",
		Short: "Evaluate a ruleset",
		Long: `Evaluate a ruleset from a file or directory and print its final value.

Inputs are handed to CUE expression facts. Probes back dynamic facts
with a fixed value; actions return a fixed value when their rule fires.
With --db every evaluation step is appended to a SQLite log that the
history command reads.

Exit codes:
  0 - Evaluation succeeded
  1 - Evaluation failed (unknown fact, bad fact, ...)
  2 - Command error (invalid paths, malformed flags, etc.)

Examples:
  ruler run ./rulesets/tea.yaml --input outside_temp=190 --probe thirsty=true
  ruler run ./rulesets --ruleset route --input amount=6000 --input country=US --action log_audit=ok
  ruler run ./rulesets/tea.yaml --db ./ruler.db --trace`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuleset(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Ruleset, "ruleset", "", "ruleset to evaluate (required when several are loaded)")
	cmd.Flags().StringArrayVar(&opts.Inputs, "input", nil, "input as key=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Probes, "probe", nil, "probe as name=true|false (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Actions, "action", nil, "action as name=value (repeatable)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite evaluation log")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "dump every rule with its guard values")

	return cmd
}

func runRuleset(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	lib, err := LoadRulesets(path)
	if err != nil {
		return loadFailure(formatter, err)
	}

	entry, err := entryRuleset(lib, opts.Ruleset)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeBadFlag, err.Error(), lib.Names())
	}

	inputs, err := parseInputs(opts.Inputs)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeBadFlag, err.Error(), nil)
	}
	probes, err := parseProbes(opts.Probes)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeBadFlag, err.Error(), nil)
	}
	actions, err := parseActions(opts.Actions)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeBadFlag, err.Error(), nil)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	idGen := opts.IDGenerator
	if idGen == nil {
		idGen = engine.UUIDv7Generator{}
	}
	engOpts := []engine.EngineOption{
		engine.WithLogger(logger),
		engine.WithIDGenerator(idGen),
	}
	if opts.Trace {
		var w io.Writer = cmd.OutOrStdout()
		if formatter.JSON() {
			w = cmd.ErrOrStderr()
		}
		engOpts = append(engOpts, engine.WithTracer(engine.NewTextTracer(w)))
	}

	// rootID remembers the first scope begun, which is the entry evaluation.
	var rootID string
	var rec engine.Recorder
	if opts.Database != "" {
		logger.Debug("opening database", "path", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err), nil)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		seq, err := st.GetLastSeq(ctx)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
		}
		engOpts = append(engOpts, engine.WithClock(engine.NewClockAt(seq)))
		rec = st
	}
	engOpts = append(engOpts, engine.WithRecorder(engine.RecorderFunc(func(ctx context.Context, ev engine.Event) error {
		if ev.Kind == engine.EventBegin && rootID == "" {
			rootID = ev.ScopeID
		}
		if rec == nil {
			return nil
		}
		return rec.Record(ctx, ev)
	})))

	in := &ruleset.Interpreter{
		Engine:  engine.New(engOpts...),
		Library: lib,
		Probes:  probes,
		Actions: actions,
		Logger:  logger,
	}

	logger.Info("evaluation begin", "ruleset", entry, "hash", lib.Hash(entry))
	value, err := in.Run(ctx, entry, inputs)
	if err != nil {
		logger.Error("evaluation failed", "ruleset", entry, "error", err)
		return formatter.fail(ExitFailure, harness.ErrorCode(err), err.Error(), map[string]any{
			"ruleset":  entry,
			"scope_id": rootID,
		})
	}
	logger.Info("evaluation end", "ruleset", entry, "scope", rootID)

	result := RunResult{
		Ruleset: entry,
		Hash:    lib.Hash(entry),
		ScopeID: rootID,
		Value:   value,
	}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintln(cmd.OutOrStdout(), formatValue(value))
	if opts.Database != "" {
		formatter.VerboseLog("recorded as %s", rootID)
	}
	return nil
}

// entryRuleset picks the ruleset to evaluate: the named one, or the only one
// loaded.
func entryRuleset(lib *ruleset.Library, name string) (string, error) {
	if name != "" {
		if _, ok := lib.Get(ruleset.NormalizeName(name)); !ok {
			return "", fmt.Errorf("ruleset %q not found", name)
		}
		return ruleset.NormalizeName(name), nil
	}
	names := lib.Names()
	if len(names) != 1 {
		return "", fmt.Errorf("%d rulesets loaded; choose one with --ruleset", len(names))
	}
	return names[0], nil
}

// splitPair splits a key=value flag.
func splitPair(flag, s string) (string, string, error) {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid --%s %q: expected name=value", flag, s)
	}
	return key, value, nil
}

// parseScalar decodes a flag value as a YAML scalar, so 190 is a number,
// true a bool and anything else a string.
func parseScalar(s string) (any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

func parseInputs(pairs []string) (map[string]any, error) {
	inputs := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, raw, err := splitPair("input", p)
		if err != nil {
			return nil, err
		}
		value, err := parseScalar(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid --input %q: %w", p, err)
		}
		inputs[key] = value
	}
	return inputs, nil
}

func parseProbes(pairs []string) (map[string]ruleset.ProbeFunc, error) {
	probes := make(map[string]ruleset.ProbeFunc, len(pairs))
	for _, p := range pairs {
		name, raw, err := splitPair("probe", p)
		if err != nil {
			return nil, err
		}
		var value bool
		switch raw {
		case "true":
			value = true
		case "false":
		default:
			return nil, fmt.Errorf("invalid --probe %q: value must be true or false", p)
		}
		probes[name] = func(context.Context, map[string]any) (bool, error) {
			return value, nil
		}
	}
	return probes, nil
}

func parseActions(pairs []string) (map[string]ruleset.ActionFunc, error) {
	actions := make(map[string]ruleset.ActionFunc, len(pairs))
	for _, p := range pairs {
		name, raw, err := splitPair("action", p)
		if err != nil {
			return nil, err
		}
		value, err := parseScalar(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid --action %q: %w", p, err)
		}
		actions[name] = func(context.Context, map[string]any) (any, error) {
			return value, nil
		}
	}
	return actions, nil
}

// formatValue renders a final value for text output.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%s", k, formatValue(val[k]))
		}
		return "{" + strings.Join(parts, " ") + "}"
	default:
		return fmt.Sprint(val)
	}
}

// loadFailure reports a ruleset load error.
func loadFailure(formatter *OutputFormatter, err error) error {
	code := ErrCodeGeneric
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		code = loadErr.Code
	}
	return formatter.fail(ExitCommandError, code, err.Error(), nil)
}
