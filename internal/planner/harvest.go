package planner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/haricheung/boxplan/internal/runlog"
	"github.com/haricheung/boxplan/internal/workspace"
)

const (
	domainFile  = "domain.pddl"
	problemFile = "problem.pddl"
)

// Request is one solve: the rendered texts and the directory to run in.
type Request struct {
	Dir     string
	Domain  string
	Problem string
}

// Harvester runs the planner through Runner and turns its best plan file
// into a Result. RunLog and Logger may be nil.
type Harvester struct {
	Runner   Runner
	PlanBase string // defaults to DefaultPlanBase
	RunLog   *runlog.RunLog
	Logger   *slog.Logger
}

// Solve writes the domain and problem files into req.Dir, invokes the
// planner, and parses the highest-numbered plan file it produced.
//
// Expectations:
//   - Stale plan files already in req.Dir are removed before the planner runs
//   - Returns *PlannerInvocationError when the planner cannot be started
//   - The planner's exit status alone never fails the solve
//   - A planner stopped by its time limit still yields its best plan so far
//   - Returns *NoPlanFoundError when no base.N file exists after the run
//   - Returns *PlanFormatError when the selected file has a malformed line
//   - Returns ctx.Err() (wrapped) when the caller cancelled the run
func (h *Harvester) Solve(ctx context.Context, req Request) (*Result, error) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	base := h.PlanBase
	if base == "" {
		base = DefaultPlanBase
	}

	if err := os.MkdirAll(req.Dir, 0o755); err != nil {
		return nil, &PlannerInvocationError{Command: "mkdir", Err: err}
	}
	inv := Invocation{
		Dir:         req.Dir,
		DomainPath:  filepath.Join(req.Dir, domainFile),
		ProblemPath: filepath.Join(req.Dir, problemFile),
		PlanBase:    filepath.Join(req.Dir, base),
	}
	if err := workspace.WriteFileAtomic(inv.DomainPath, []byte(req.Domain), 0o644); err != nil {
		return nil, fmt.Errorf("planner: write domain: %w", err)
	}
	if err := workspace.WriteFileAtomic(inv.ProblemPath, []byte(req.Problem), 0o644); err != nil {
		return nil, fmt.Errorf("planner: write problem: %w", err)
	}
	if err := removeStale(req.Dir, base, logger); err != nil {
		return nil, err
	}

	var argv []string
	if d, ok := h.Runner.(describer); ok {
		argv = d.CommandLine(inv)
	}
	h.RunLog.PlannerStart(argv, req.Dir)
	logger.Info("[HARVEST] invoking planner", "dir", req.Dir, "argv", argv)

	info, err := h.Runner.Run(ctx, inv)
	if err != nil {
		return nil, err
	}
	h.RunLog.PlannerExit(info.ExitCode, info.TimedOut, info.Elapsed, info.Stderr)
	if ctx.Err() != nil {
		return nil, fmt.Errorf("planner: run interrupted: %w", ctx.Err())
	}
	if info.ExitCode != 0 && !info.TimedOut {
		logger.Warn("[HARVEST] planner exited non-zero", "exit_code", info.ExitCode)
	}

	cands, err := Discover(req.Dir, base)
	if err != nil {
		return nil, fmt.Errorf("planner: scan %s: %w", req.Dir, err)
	}
	files := make([]string, len(cands))
	for i, c := range cands {
		files[i] = filepath.Base(c.Path)
	}
	h.RunLog.Candidates(files)

	best, ok := Best(cands)
	if !ok {
		return nil, &NoPlanFoundError{
			Dir:      req.Dir,
			PlanBase: base,
			TimedOut: info.TimedOut,
			ExitCode: info.ExitCode,
			Stderr:   info.Stderr,
		}
	}
	res, err := ParsePlanFile(best.Path)
	if err != nil {
		return nil, err
	}
	h.RunLog.PlanSelected(filepath.Base(best.Path), len(res.Actions), res.Cost)
	logger.Info("[HARVEST] plan selected",
		"file", filepath.Base(best.Path),
		"candidates", len(cands),
		"actions", len(res.Actions),
		"timed_out", info.TimedOut)
	return res, nil
}

func removeStale(dir, base string, logger *slog.Logger) error {
	stale, err := Discover(dir, base)
	if err != nil {
		return fmt.Errorf("planner: scan %s: %w", dir, err)
	}
	for _, c := range stale {
		logger.Debug("[HARVEST] removing stale plan file", "path", c.Path)
		if err := os.Remove(c.Path); err != nil {
			return fmt.Errorf("planner: remove stale plan: %w", err)
		}
	}
	return nil
}
