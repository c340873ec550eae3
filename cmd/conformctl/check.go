package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"conform/internal/fixture"
	"conform/internal/observ"
	"conform/internal/report"
	"conform/internal/trace"
)

var checkCmd = &cobra.Command{
	Use:   "check <fixture.toml|fixture.yaml>",
	Short: "Build a fixture's conformances and run its queries",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().String("format", "text", "report format (text|json|msgpack)")
	checkCmd.Flags().Int("jobs", 0, "max parallel queries (0=auto)")
	checkCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	checkCmd.Flags().Bool("watch", false, "re-run whenever the fixture file changes")
}

var errQueriesFailed = errors.New("some queries failed")

type checkOptions struct {
	path        string
	format      report.Format
	jobs        int
	ui          uiMode
	quiet       bool
	showTimings bool
	out         io.Writer
	errOut      io.Writer
}

func runCheck(cmd *cobra.Command, args []string) (err error) {
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer func() { cleanup(err) }()

	opts, watch, err := readCheckOptions(cmd, args[0])
	if err != nil {
		return err
	}
	if !watch {
		return checkOnce(cmd.Context(), opts)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	opts.ui = uiModeOff
	run := func() error {
		err := checkOnce(ctx, opts)
		if errors.Is(err, errQueriesFailed) {
			return nil
		}
		return err
	}
	if err := run(); err != nil {
		fmt.Fprintln(opts.errOut, "error:", err)
	}
	return watchFixture(ctx, opts.path, opts.errOut, run)
}

func readCheckOptions(cmd *cobra.Command, path string) (checkOptions, bool, error) {
	opts := checkOptions{path: path, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}

	formatStr, err := cmd.Flags().GetString("format")
	if err != nil {
		return opts, false, fmt.Errorf("failed to get format flag: %w", err)
	}
	if opts.format, err = report.ParseFormat(formatStr); err != nil {
		return opts, false, err
	}
	if opts.jobs, err = cmd.Flags().GetInt("jobs"); err != nil {
		return opts, false, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return opts, false, fmt.Errorf("failed to get ui flag: %w", err)
	}
	if opts.ui, err = readUIMode(uiValue); err != nil {
		return opts, false, err
	}
	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return opts, false, fmt.Errorf("failed to get watch flag: %w", err)
	}
	if opts.quiet, err = cmd.Root().PersistentFlags().GetBool("quiet"); err != nil {
		return opts, false, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if opts.showTimings, err = cmd.Root().PersistentFlags().GetBool("timings"); err != nil {
		return opts, false, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if opts.quiet || opts.format != report.FormatText {
		opts.ui = uiModeOff
	}
	return opts, watch, nil
}

// checkOnce loads the fixture, evaluates its queries and writes the report.
func checkOnce(ctx context.Context, opts checkOptions) error {
	timer := observ.NewTimer()

	var m *fixture.Module
	err := runPhase(ctx, timer, "load", func() error {
		var loadErr error
		m, loadErr = fixture.Load(opts.path, fixture.Options{Tracer: trace.FromContext(ctx)})
		return loadErr
	})
	if err != nil {
		return err
	}

	var rep *report.Report
	evalOpts := report.Options{Jobs: opts.jobs}
	useTUI := opts.ui.showsProgress(m, opts.jobs, isTerminal(os.Stdout))
	err = runPhase(ctx, timer, "evaluate", func() error {
		var evalErr error
		if useTUI {
			rep, evalErr = evaluateWithUI(ctx, m, evalOpts)
		} else {
			rep, evalErr = report.Evaluate(ctx, m, evalOpts)
		}
		return evalErr
	})
	if err != nil {
		return err
	}

	err = runPhase(ctx, timer, "encode", func() error {
		return report.Write(opts.out, rep, opts.format)
	})
	if err != nil {
		return err
	}

	if opts.showTimings {
		fmt.Fprint(opts.errOut, timer.Summary())
	}
	if rep.Failed > 0 {
		if !opts.quiet && opts.format == report.FormatText {
			fmt.Fprintln(opts.errOut, color.New(color.FgRed, color.Bold).Sprintf("%d of %d queries failed", rep.Failed, len(rep.Results)))
		}
		return errQueriesFailed
	}
	return nil
}

// runPhase measures fn on the timer and wraps it in a driver trace span.
func runPhase(ctx context.Context, timer *observ.Timer, name string, fn func() error) error {
	span := trace.Begin(trace.FromContext(ctx), trace.ScopeDriver, name, 0)
	err := timer.Measure(name, fn)
	if err != nil {
		span.End(err.Error())
		return err
	}
	span.End("ok")
	return nil
}
