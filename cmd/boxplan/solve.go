package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/haricheung/boxplan/internal/pddl"
	"github.com/haricheung/boxplan/internal/planner"
	"github.com/haricheung/boxplan/internal/runlog"
	"github.com/haricheung/boxplan/internal/ui"
	"github.com/haricheung/boxplan/internal/workspace"
)

type solveFlags struct {
	out         string
	planner     string
	timeout     time.Duration
	keepWorkdir bool
	workspace   string
	summary     bool
}

func (a *app) solveCmd() *cobra.Command {
	var f solveFlags
	cmd := &cobra.Command{
		Use:   "solve INPUT.json",
		Short: "Compile a problem, run the planner and print the best plan as JSON",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("planner") {
				a.cfg.Planner.Command = f.planner
			}
			if cmd.Flags().Changed("timeout") {
				a.cfg.Planner.Timeout = f.timeout
			}
			if cmd.Flags().Changed("keep-workdir") {
				a.cfg.KeepWorkdir = f.keepWorkdir
			}
			if cmd.Flags().Changed("workspace") {
				a.cfg.Workspace = f.workspace
			}
			if err := a.cfg.Validate(); err != nil {
				return &usageError{err: err}
			}
			return a.solve(cmd.Context(), args[0], f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.out, "out", "o", "", "write the plan JSON here instead of stdout")
	fl.StringVar(&f.planner, "planner", "", "planner executable (overrides planner.command)")
	fl.DurationVar(&f.timeout, "timeout", 0, "planner time limit, e.g. 5m (0 = none)")
	fl.BoolVar(&f.keepWorkdir, "keep-workdir", false, "keep the run directory after a successful solve")
	fl.StringVar(&f.workspace, "workspace", "", "root for run directories (overrides workspace)")
	fl.BoolVar(&f.summary, "summary", false, "print a readable plan summary to stderr")
	return cmd
}

// solve runs one compile-plan-harvest cycle. The run directory is removed
// after success unless keep_workdir is set, and always kept after a failure.
func (a *app) solve(ctx context.Context, input string, f solveFlags) error {
	text, m, err := a.compile(input)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	dir, err := workspace.RunDir(a.cfg.Workspace, runID)
	if err != nil {
		return err
	}
	reg := runlog.NewRegistry(a.cfg.RunLogDir())
	rl := reg.Open(runID, input)
	rl.Compiled(m.Name, len(m.Locations)+len(m.Boxes), len(m.Facts()), len(m.Goal.Clauses))
	a.logger.Info("[PLANNER] run started", "run_id", runID, "dir", dir, "problem", m.Name)

	h := &planner.Harvester{
		Runner:   a.newRunner(a.cfg.Planner, a.logger),
		PlanBase: a.cfg.Planner.PlanBase,
		RunLog:   rl,
		Logger:   a.logger,
	}
	res, err := h.Solve(ctx, planner.Request{Dir: dir, Domain: pddl.Domain, Problem: text})
	status := "solved"
	switch {
	case err != nil && errors.Is(err, context.Canceled):
		status = "interrupted"
	case err != nil:
		status = "failed"
	}
	reg.Close(runID, status, err)
	if err != nil {
		a.logger.Error("[PLANNER] run failed", "run_id", runID, "dir", dir, "error", err)
		return err
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	if err := workspace.WriteOutput(f.out, a.stdout, append(data, '\n')); err != nil {
		return err
	}
	if f.summary {
		ui.Summary(a.stderr, res, reg.GetStats(runID), isTerminal(a.stderr))
	}

	if !a.cfg.KeepWorkdir {
		if err := os.RemoveAll(dir); err != nil {
			a.logger.Warn("[PLANNER] could not remove run directory", "dir", dir, "error", err)
		}
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
