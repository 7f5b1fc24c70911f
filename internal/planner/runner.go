// Package planner drives an external PDDL planner and harvests its output.
//
// The planner is reached only through the Runner interface. A run writes the
// domain and problem files into a run directory, invokes the Runner, then
// scans the directory for the numbered plan files base.1 .. base.N the
// planner left behind. The highest N wins; it is parsed into a Result.
package planner

import (
	"context"
	"time"
)

// Invocation is everything a Runner needs to start one planner run.
// Paths are absolute or relative to Dir; PlanBase is the path prefix the
// planner appends ".N" to.
type Invocation struct {
	Dir         string
	DomainPath  string
	ProblemPath string
	PlanBase    string
}

// ExitInfo describes how a planner run ended. It is informational: the plan
// files on disk, not the exit status, decide success.
type ExitInfo struct {
	ExitCode int
	TimedOut bool
	Elapsed  time.Duration
	Stderr   string // tail of the planner's stderr
}

// Runner runs one planner invocation to completion and blocks until the
// process (and anything it spawned) is gone.
//
// Expectations:
//   - Returns *PlannerInvocationError when the process cannot be started
//   - Returns a nil error for any run that started, whatever its exit status
//   - Sets ExitInfo.TimedOut when the run was stopped by its own time limit
type Runner interface {
	Run(ctx context.Context, inv Invocation) (ExitInfo, error)
}

// describer is implemented by Runners that can report the command line they
// would execute, for the run log.
type describer interface {
	CommandLine(inv Invocation) []string
}
