package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ruler/internal/ruleset"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                      `json:"valid"`
	Rulesets []RulesetSummary          `json:"rulesets"`
	Errors   []ruleset.ValidationError `json:"errors,omitempty"`
	Warnings []ruleset.CycleWarning    `json:"warnings,omitempty"`
}

// RulesetSummary describes one loaded ruleset.
type RulesetSummary struct {
	Name       string `json:"name"`
	Mode       string `json:"mode"`
	Statements int    `json:"statements"`
	Hash       string `json:"hash"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <rulesets>",
		Short: "Check rulesets without evaluating them",
		Long: `Load rulesets from a file or directory and check them statically.

Reports rules that reference facts not declared before them, default
rules in multi rulesets, negations of dynamic facts, malformed CUE
expressions and nested references to rulesets that do not exist.

Rulesets that can reach themselves through nested references are
reported as warnings. They do not fail validation.

Exit codes:
  0 - All rulesets are valid
  1 - Validation errors found
  2 - Command error (invalid paths, unreadable files, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	lib, err := LoadRulesets(path)
	if err != nil {
		return loadFailure(formatter, err)
	}

	result := ValidationResult{Rulesets: []RulesetSummary{}}
	for _, name := range lib.Names() {
		def, _ := lib.Get(name)
		mode := string(def.Mode)
		if mode == "" {
			mode = "single"
		}
		formatter.VerboseLog("Validating ruleset: %s", name)
		result.Rulesets = append(result.Rulesets, RulesetSummary{
			Name:       name,
			Mode:       mode,
			Statements: len(def.Statements),
			Hash:       lib.Hash(name),
		})
	}
	result.Errors = ruleset.ValidateLibrary(lib)
	result.Valid = len(result.Errors) == 0
	result.Warnings = ruleset.AnalyzeCycles(lib)

	if formatter.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    result.Errors[0].Code,
				Message: fmt.Sprintf("%d validation error(s)", len(result.Errors)),
			}
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, e := range result.Errors {
			fmt.Fprintf(w, "✗ %s\n", e.Error())
		}
		for _, warn := range result.Warnings {
			fmt.Fprintf(w, "! %s\n", warn.Message)
		}
		if result.Valid {
			fmt.Fprintf(w, "✓ %d ruleset(s) valid\n", len(result.Rulesets))
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(result.Errors)))
	}
	return nil
}
