package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/ruler/internal/engine"
	"github.com/roach88/ruler/internal/harness"
	"github.com/roach88/ruler/internal/teadrinker"
)

// TeaOptions holds flags for the tea command.
type TeaOptions struct {
	*RootOptions
	Temp  float64
	Made  bool
	Debug bool
}

// TeaResult is the outcome of a tea check.
type TeaResult struct {
	OutsideTemp float64 `json:"outside_temp"`
	IcedTeaMade bool    `json:"iced_tea_made"`
	Did         any     `json:"did"`
}

// NewTeaCommand creates the tea command.
func NewTeaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TeaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tea",
		Short: "Ask the tea drinker what to do",
		Long: `Run the built-in tea drinker, a host written against the rule
builder API: on a hot day it drinks the iced tea already made, or makes
some if there is none.

Examples:
  ruler tea --temp 190
  ruler tea --temp 190 --made=false --debug`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTea(opts, cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Temp, "temp", 190, "outside temperature in Fahrenheit")
	cmd.Flags().BoolVar(&opts.Made, "made", true, "iced tea is already made")
	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "trace every rule")

	return cmd
}

func runTea(opts *TeaOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	var out io.Writer = cmd.OutOrStdout()
	if formatter.JSON() {
		out = cmd.ErrOrStderr()
	}
	drinker := teadrinker.New(out, opts.Debug, engine.WithLogger(newLogger(cmd.ErrOrStderr(), opts.Verbose)))
	drinker.IcedTeaMade = opts.Made

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	did, err := drinker.TeaCheck(ctx, opts.Temp)
	if err != nil {
		return formatter.fail(ExitFailure, harness.ErrorCode(err), err.Error(), nil)
	}

	if formatter.JSON() {
		return formatter.Success(TeaResult{OutsideTemp: opts.Temp, IcedTeaMade: opts.Made, Did: did})
	}
	if did == nil {
		formatter.VerboseLog("not hot enough for tea")
	}
	return nil
}
