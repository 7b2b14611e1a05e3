package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/ruler/internal/engine"
	"github.com/roach88/ruler/internal/ruleset"
	"github.com/roach88/ruler/internal/store"
	"github.com/roach88/ruler/internal/testutil"
)

// rootScopeID is the id of the entry evaluation under sequential ids.
const rootScopeID = "scope-1"

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, with
// sequential scope ids and a clock starting at zero.
//
// Execution flow:
//  1. Load the ruleset library named by the scenario
//  2. Wire scripted probes and counted actions into an interpreter
//  3. Evaluate the entry ruleset, recording every step in the store
//  4. Replay the recorded steps into the trace
//  5. Check the expect clause and evaluate assertions
//
// An error is returned only when the scenario cannot be set up. Evaluation
// failures are outcomes, compared against expect.error.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	lib, err := loadLibrary(scenario.Ruleset)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(
		engine.WithLogger(logger),
		engine.WithRecorder(st),
		engine.WithIDGenerator(testutil.NewSequentialIDGenerator("scope")),
	)

	probes := make(map[string]*testutil.Probe, len(scenario.Probes))
	probeFuncs := make(map[string]ruleset.ProbeFunc, len(scenario.Probes))
	for name, values := range scenario.Probes {
		p := testutil.NewScriptedProbe(values...)
		probes[name] = p
		probeFuncs[name] = func(context.Context, map[string]any) (bool, error) {
			return p.Call()
		}
	}

	actions := make(map[string]*countedAction, len(scenario.Actions))
	actionFuncs := make(map[string]ruleset.ActionFunc, len(scenario.Actions))
	for name, value := range scenario.Actions {
		a := &countedAction{value: value}
		actions[name] = a
		actionFuncs[name] = a.call
	}

	in := &ruleset.Interpreter{
		Engine:  eng,
		Library: lib,
		Probes:  probeFuncs,
		Actions: actionFuncs,
		Logger:  logger,
	}

	result := NewResult(scenario.Name)
	value, runErr := in.Run(ctx, scenario.Entry, scenario.Inputs)
	if runErr != nil {
		result.ErrorCode = ErrorCode(runErr)
		result.Error = runErr.Error()
	} else {
		result.Value = value
	}

	events, err := st.ReplayEvaluation(ctx, rootScopeID)
	if err != nil {
		return nil, fmt.Errorf("failed to replay trace: %w", err)
	}
	for _, ev := range events {
		result.Trace = append(result.Trace, traceEventOf(ev))
	}
	for name, p := range probes {
		result.ProbeCalls[name] = p.Calls()
	}
	for name, a := range actions {
		result.ActionCalls[name] = a.Calls()
	}

	checkExpect(scenario.Expect, runErr, result)

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// RunAll executes scenarios concurrently, at most parallel at a time
// (unbounded if parallel <= 0). Results keep the order of scenarios.
// The first setup error cancels the remaining scenarios.
func RunAll(ctx context.Context, scenarios []*Scenario, parallel int) ([]*Result, error) {
	results := make([]*Result, len(scenarios))
	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, s := range scenarios {
		i, s := i, s
		g.Go(func() error {
			r, err := Run(ctx, s)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ErrorCode classifies an evaluation error: the engine's rule error code,
// the interpreter's run error code, or ERROR for anything else.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if code := engine.CodeOf(err); code != "" {
		return string(code)
	}
	var runErr *ruleset.RunError
	if errors.As(err, &runErr) {
		return string(runErr.Code)
	}
	return "ERROR"
}

// checkExpect compares the outcome with the expect clause.
func checkExpect(expect ExpectClause, runErr error, result *Result) {
	if expect.Error != "" {
		switch {
		case runErr == nil:
			result.AddError(fmt.Sprintf("expected error %s, got result %v", expect.Error, result.Value))
		case result.ErrorCode != expect.Error:
			result.AddError(fmt.Sprintf("expected error %s, got %s: %s", expect.Error, result.ErrorCode, result.Error))
		}
		return
	}

	if runErr != nil {
		result.AddError(fmt.Sprintf("expected result %v, got error %s: %s", expect.Result, result.ErrorCode, result.Error))
		return
	}
	want, err := normalizeValue(expect.Result)
	if err != nil {
		result.AddError(fmt.Sprintf("expected result: %v", err))
		return
	}
	got, err := normalizeValue(result.Value)
	if err != nil {
		result.AddError(fmt.Sprintf("result: %v", err))
		return
	}
	if !reflect.DeepEqual(want, got) {
		result.AddError(fmt.Sprintf("expected result %v, got %v", expect.Result, result.Value))
	}
}

// normalizeValue round-trips v through JSON so values decoded from YAML,
// CUE and action returns compare by content rather than Go type.
func normalizeValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// loadLibrary loads a ruleset file or directory.
func loadLibrary(path string) (*ruleset.Library, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("ruleset: %w", err)
	}
	if info.IsDir() {
		return ruleset.LoadDir(path)
	}
	defs, err := ruleset.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return ruleset.NewLibrary(defs...)
}

// countedAction returns a fixed value and counts its calls.
type countedAction struct {
	mu    sync.Mutex
	value any
	calls int
}

func (a *countedAction) call(context.Context, map[string]any) (any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return a.value, nil
}

// Calls returns how many times the action ran.
func (a *countedAction) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}
