//go:build unix

package planner

import (
	"errors"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// procGroup terminates the child's whole process group on cancellation:
// SIGTERM first, SIGKILL once the grace period has passed.
type procGroup struct {
	cmd   *exec.Cmd
	grace time.Duration

	mu     sync.Mutex
	killer *time.Timer
}

func prepareGroup(cmd *exec.Cmd, grace time.Duration) *procGroup {
	g := &procGroup{cmd: cmd, grace: grace}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = g.terminate
	cmd.WaitDelay = grace
	return g
}

func (g *procGroup) terminate() error {
	pid := g.cmd.Process.Pid
	err := syscall.Kill(-pid, syscall.SIGTERM)
	if errors.Is(err, syscall.ESRCH) {
		return os.ErrProcessDone
	}
	g.mu.Lock()
	g.killer = time.AfterFunc(g.grace, func() { _ = syscall.Kill(-pid, syscall.SIGKILL) })
	g.mu.Unlock()
	return err
}

// finish runs after Wait. If the group was signalled, stragglers that
// outlived the leader are killed now instead of at the end of the grace period.
func (g *procGroup) finish() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.killer == nil {
		return
	}
	g.killer.Stop()
	_ = syscall.Kill(-g.cmd.Process.Pid, syscall.SIGKILL)
}
