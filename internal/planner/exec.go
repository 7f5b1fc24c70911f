package planner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultCommand is the Fast Downward driver script.
	DefaultCommand = "fast-downward.py"
	// DefaultPlanBase is the plan file prefix handed to the planner.
	DefaultPlanBase = "sas_plan"

	defaultGrace   = 5 * time.Second
	stderrTailSize = 4 << 10
	outputLogName  = "planner.log"
)

// DefaultArgs runs anytime LAMA, which writes an improving plan to
// {plan}.1, {plan}.2, ... until it proves optimality or runs out of time.
func DefaultArgs() []string {
	return []string{"--alias", "seq-sat-lama-2011", "--plan-file", "{plan}", "{domain}", "{problem}"}
}

// ExecRunner runs the planner as a child process through os/exec.
//
// Args is a template: "{domain}", "{problem}" and "{plan}" are replaced by
// the Invocation paths wherever they occur inside an argument.
// The child gets its own process group. When ctx is cancelled or Timeout
// expires the whole group receives SIGTERM, and SIGKILL after Grace.
// Combined stdout and stderr are kept in planner.log in the run directory.
type ExecRunner struct {
	Command string
	Args    []string
	Timeout time.Duration // zero means no limit
	Grace   time.Duration // zero means 5s
	Logger  *slog.Logger
}

// CommandLine returns the argv Run would execute for inv.
func (r *ExecRunner) CommandLine(inv Invocation) []string {
	return append([]string{r.command()}, expandArgs(r.Args, inv)...)
}

// Run implements Runner.
//
// Expectations:
//   - Start failures (missing or non-executable command) return *PlannerInvocationError
//   - A non-zero exit returns a nil error with ExitInfo.ExitCode set
//   - Hitting Timeout returns a nil error with ExitInfo.TimedOut set, so the
//     caller can still harvest plans written before the deadline
//   - Blocks until the child has exited
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (ExitInfo, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	grace := r.Grace
	if grace <= 0 {
		grace = defaultGrace
	}

	out, err := os.Create(filepath.Join(inv.Dir, outputLogName))
	if err != nil {
		return ExitInfo{}, &PlannerInvocationError{Command: r.command(), Err: err}
	}
	defer out.Close()

	argv := r.CommandLine(inv)
	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = inv.Dir
	tail := &tailBuffer{max: stderrTailSize}
	cmd.Stdout = out
	cmd.Stderr = io.MultiWriter(out, tail)
	group := prepareGroup(cmd, grace)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return ExitInfo{}, &PlannerInvocationError{Command: argv[0], Err: err}
	}
	logger.Debug("[PLANNER] started", "pid", cmd.Process.Pid, "argv", argv, "dir", inv.Dir)

	waitErr := cmd.Wait()
	group.finish()

	info := ExitInfo{
		ExitCode: cmd.ProcessState.ExitCode(),
		Elapsed:  time.Since(start),
		Stderr:   tail.String(),
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		info.TimedOut = true
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) && runCtx.Err() == nil {
		logger.Warn("[PLANNER] wait failed", "error", waitErr)
	}
	logger.Info("[PLANNER] finished",
		"exit_code", info.ExitCode,
		"timed_out", info.TimedOut,
		"elapsed", info.Elapsed.Round(time.Millisecond))
	return info, nil
}

func (r *ExecRunner) command() string {
	if r.Command == "" {
		return DefaultCommand
	}
	return r.Command
}

func expandArgs(tmpl []string, inv Invocation) []string {
	if tmpl == nil {
		tmpl = DefaultArgs()
	}
	rep := strings.NewReplacer(
		"{domain}", inv.DomainPath,
		"{problem}", inv.ProblemPath,
		"{plan}", inv.PlanBase,
	)
	out := make([]string, len(tmpl))
	for i, a := range tmpl {
		out[i] = rep.Replace(a)
	}
	return out
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string { return string(t.buf) }
