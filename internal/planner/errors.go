package planner

import (
	"fmt"
	"strings"
)

// PlannerInvocationError means the planner executable could not be started
// at all: not found, not executable, or the run directory is unusable.
type PlannerInvocationError struct {
	Command string
	Err     error
}

func (e *PlannerInvocationError) Error() string {
	return fmt.Sprintf("planner: cannot invoke %q: %v", e.Command, e.Err)
}

func (e *PlannerInvocationError) Unwrap() error { return e.Err }

// NoPlanFoundError means the planner ran but left no base.N file behind.
// TimedOut and ExitCode describe how the run ended.
type NoPlanFoundError struct {
	Dir      string
	PlanBase string
	TimedOut bool
	ExitCode int
	Stderr   string
}

func (e *NoPlanFoundError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "planner: no plan found (%s.N in %s)", e.PlanBase, e.Dir)
	switch {
	case e.TimedOut:
		b.WriteString(": planner timed out")
	case e.ExitCode != 0:
		fmt.Fprintf(&b, ": planner exited with code %d", e.ExitCode)
	}
	return b.String()
}

// PlanFormatError reports a line in a plan file that is neither an action,
// a comment, nor blank.
type PlanFormatError struct {
	Path string
	Line int
	Text string
}

func (e *PlanFormatError) Error() string {
	return fmt.Sprintf("planner: %s:%d: malformed plan line %q", e.Path, e.Line, e.Text)
}
