package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/haricheung/boxplan/internal/config"
	"github.com/haricheung/boxplan/internal/pddl"
	"github.com/haricheung/boxplan/internal/planner"
	"github.com/haricheung/boxplan/internal/problem"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitInvalid     = 2 // bad input document or command line
	exitPlanner     = 3 // planner could not run, found no plan, or wrote garbage
	exitInterrupted = 130
)

// app carries the streams and resolved settings shared by all subcommands.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configFile string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *slog.Logger

	// newRunner builds the planner process adapter; tests replace it.
	newRunner func(p config.Planner, logger *slog.Logger) planner.Runner
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		newRunner: func(p config.Planner, logger *slog.Logger) planner.Runner {
			return &planner.ExecRunner{
				Command: p.Command,
				Args:    p.Args,
				Timeout: p.Timeout,
				Grace:   p.Grace,
				Logger:  logger,
			}
		},
	}
}

// execute runs the command line and maps the outcome to an exit code.
func (a *app) execute(ctx context.Context, args []string) int {
	root := a.rootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(a.stderr, "boxplan: %v\n", err)
	return exitCode(err)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "boxplan",
		Short:         "Compile box-world problems to PDDL and harvest planner output",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default ./"+config.DefaultFile+" if present)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: text, json")

	root.AddCommand(a.convertCmd(), a.solveCmd(), a.domainCmd())
	return root
}

// setup resolves configuration and builds the logger. Subcommand flags that
// override config are applied by the subcommands themselves.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(config.Options{File: a.configFile})
	if err != nil {
		return &usageError{err: err}
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return &usageError{err: err}
	}
	a.cfg = cfg
	a.logger = newLogger(cfg.LogLevel, cfg.LogFormat, a.stderr)
	return nil
}

// newLogger builds the process logger. Logs go to w (stderr) so stdout
// carries only PDDL or plan JSON.
func newLogger(levelStr, formatStr string, w io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// usageError marks a malformed command line or configuration.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// exactArgs is cobra.ExactArgs with the error marked as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

// exitCode classifies err.
//
// Expectations:
//   - Input validation and usage errors map to 2
//   - Planner invocation, no-plan and plan-format errors map to 3
//   - Cancellation maps to 130
//   - Everything else (I/O, internal errors) maps to 1
func exitCode(err error) int {
	var (
		usage     *usageError
		schema    *problem.SchemaError
		dup       *problem.DuplicateNameError
		color     *problem.InvalidColorError
		ref       *problem.UnknownReferenceError
		placement *problem.PlacementInvariantError
		empty     *problem.GoalEmptyError
		invoke    *planner.PlannerInvocationError
		noPlan    *planner.NoPlanFoundError
		format    *planner.PlanFormatError
		internal  *pddl.InternalError
	)
	switch {
	case errors.As(err, &internal):
		return exitFailure
	case errors.As(err, &usage), errors.As(err, &schema), errors.As(err, &dup), errors.As(err, &color),
		errors.As(err, &ref), errors.As(err, &placement), errors.As(err, &empty):
		return exitInvalid
	case errors.As(err, &invoke), errors.As(err, &noPlan), errors.As(err, &format):
		return exitPlanner
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		return exitFailure
	}
}
