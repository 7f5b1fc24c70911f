//go:build !unix

package planner

import (
	"os/exec"
	"time"
)

// procGroup falls back to killing the child alone where process groups
// are unavailable.
type procGroup struct{}

func prepareGroup(cmd *exec.Cmd, grace time.Duration) *procGroup {
	cmd.WaitDelay = grace
	return &procGroup{}
}

func (g *procGroup) finish() {}
