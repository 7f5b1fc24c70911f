// Package runlog keeps a structured audit trail of every solve run.
//
// Each run gets one JSONL file named after its run ID. Events record the
// compiled problem size, the planner command line and how it exited, the plan
// files found and the one selected.
//
// Design constraints:
//   - All RunLog methods are nil-safe (no-op on nil receiver) so callers never
//     check before logging; a Registry with an empty dir hands out nil logs.
//   - Registry is the sole owner of JSONL persistence; callers never open files.
package runlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventKind labels a single structured event in the run log.
type EventKind string

const (
	KindRunBegin     EventKind = "run_begin"
	KindRunEnd       EventKind = "run_end"
	KindCompiled     EventKind = "compiled"
	KindPlannerStart EventKind = "planner_start"
	KindPlannerExit  EventKind = "planner_exit"
	KindCandidates   EventKind = "candidates"
	KindPlanSelected EventKind = "plan_selected"
)

// Event is one JSONL line in the run log.
// Fields are omitempty so each event only serialises relevant data.
type Event struct {
	Kind      EventKind `json:"kind"`
	Timestamp string    `json:"ts"`

	// run_begin / run_end
	RunID     string `json:"run_id,omitempty"`
	Input     string `json:"input,omitempty"`
	Status    string `json:"status,omitempty"` // "solved" | "failed" | "interrupted"
	ElapsedMs int64  `json:"elapsed_ms,omitempty"`
	Error     string `json:"error,omitempty"`

	// compiled
	Problem     string `json:"problem,omitempty"`
	Objects     int    `json:"objects,omitempty"`
	InitFacts   int    `json:"init_facts,omitempty"`
	GoalClauses int    `json:"goal_clauses,omitempty"`

	// planner_start / planner_exit
	Argv      []string `json:"argv,omitempty"`
	Dir       string   `json:"dir,omitempty"`
	ExitCode  *int     `json:"exit_code,omitempty"` // pointer: 0 must be serialised
	TimedOut  bool     `json:"timed_out,omitempty"`
	PlannerMs int64    `json:"planner_ms,omitempty"`
	Stderr    string   `json:"stderr,omitempty"`

	// candidates / plan_selected
	Files    []string `json:"files,omitempty"`
	PlanFile string   `json:"plan_file,omitempty"`
	Actions  *int     `json:"actions,omitempty"`
	Cost     *int     `json:"cost,omitempty"`
}

// RunStats summarises one run for display after it ends.
type RunStats struct {
	RunID      string `json:"run_id"`
	PlannerMs  int64  `json:"planner_ms"`
	TimedOut   bool   `json:"timed_out"`
	ExitCode   int    `json:"exit_code"`
	Candidates int    `json:"candidates"`
	PlanFile   string `json:"plan_file"`
	Actions    int    `json:"actions"`
	Cost       *int   `json:"cost"`
}

// RunLog is a handle for writing structured events for one run.
//
// Expectations:
//   - All methods are nil-safe (no-op when called on nil *RunLog)
//   - Concurrent writes are safe (mutex-protected)
type RunLog struct {
	runID   string
	started time.Time
	mu      sync.Mutex
	f       *os.File
	stats   RunStats
}

// Registry maps run IDs to open RunLogs.
// It is the sole authority for creating and closing run log files.
//
// Expectations:
//   - Open returns nil when the registry has no directory (run logging disabled)
//   - Open creates the log directory if absent
//   - Open writes a run_begin event as the first JSONL line
//   - Open returns the existing log without re-opening when called twice for the same runID
//   - Get returns nil for unknown run IDs
//   - Close writes run_end with status and elapsed_ms before flushing
//   - Close removes the runID from the registry so subsequent Get returns nil
//   - Close no-ops gracefully when runID is not registered
type Registry struct {
	dir   string
	mu    sync.Mutex
	logs  map[string]*RunLog
	cache map[string]*RunStats // runID -> stats snapshot saved on Close
}

// NewRegistry creates a Registry that writes one JSONL file per run under dir.
// An empty dir disables run logging.
func NewRegistry(dir string) *Registry {
	return &Registry{
		dir:   dir,
		logs:  make(map[string]*RunLog),
		cache: make(map[string]*RunStats),
	}
}

// Open creates a new RunLog for runID, writes a run_begin event, and registers it.
func (r *Registry) Open(runID, input string) *RunLog {
	if r == nil || r.dir == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if rl, ok := r.logs[runID]; ok {
		return rl
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		slog.Error("[RUNLOG] could not create dir", "dir", r.dir, "error", err)
		return nil
	}
	path := filepath.Join(r.dir, runID+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Error("[RUNLOG] could not open log file", "path", path, "error", err)
		return nil
	}

	rl := &RunLog{runID: runID, started: time.Now(), f: f, stats: RunStats{RunID: runID}}
	r.logs[runID] = rl
	rl.write(Event{
		Kind:  KindRunBegin,
		RunID: runID,
		Input: input,
	})
	return rl
}

// Get returns the RunLog for runID, or nil if not found.
func (r *Registry) Get(runID string) *RunLog {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logs[runID]
}

// Close writes a run_end event, closes the file, and removes the entry from
// the registry. runErr may be nil. Safe on a nil *Registry or unknown runID.
func (r *Registry) Close(runID, status string, runErr error) {
	if r == nil {
		return
	}
	r.mu.Lock()
	rl, ok := r.logs[runID]
	if !ok {
		r.mu.Unlock()
		return
	}
	r.cache[runID] = rl.Stats()
	delete(r.logs, runID)
	r.mu.Unlock()

	e := Event{
		Kind:      KindRunEnd,
		RunID:     runID,
		Status:    status,
		ElapsedMs: time.Since(rl.started).Milliseconds(),
	}
	if runErr != nil {
		e.Error = runErr.Error()
	}
	rl.write(e)

	rl.mu.Lock()
	if rl.f != nil {
		_ = rl.f.Close()
		rl.f = nil
	}
	rl.mu.Unlock()
}

// GetStats returns and removes the cached RunStats for runID.
//
// Expectations:
//   - Returns nil for unknown runID
//   - Deletes the cache entry on first call (subsequent calls return nil)
func (r *Registry) GetStats(runID string) *RunStats {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.cache[runID]
	delete(r.cache, runID)
	return s
}

// Compiled writes a compiled event with the size of the emitted problem.
func (rl *RunLog) Compiled(problem string, objects, initFacts, goalClauses int) {
	if rl == nil {
		return
	}
	rl.write(Event{
		Kind:        KindCompiled,
		Problem:     problem,
		Objects:     objects,
		InitFacts:   initFacts,
		GoalClauses: goalClauses,
	})
}

// PlannerStart writes a planner_start event. argv may be nil when the runner
// cannot describe its command line.
func (rl *RunLog) PlannerStart(argv []string, dir string) {
	if rl == nil {
		return
	}
	rl.write(Event{Kind: KindPlannerStart, Argv: argv, Dir: dir})
}

// PlannerExit writes a planner_exit event.
//
// Expectations:
//   - exit_code is serialised even when it is 0
//   - Stats reflects the exit code, timeout flag and elapsed time
func (rl *RunLog) PlannerExit(exitCode int, timedOut bool, elapsed time.Duration, stderr string) {
	if rl == nil {
		return
	}
	ms := elapsed.Milliseconds()
	rl.mu.Lock()
	rl.stats.ExitCode = exitCode
	rl.stats.TimedOut = timedOut
	rl.stats.PlannerMs = ms
	rl.mu.Unlock()
	code := exitCode
	rl.write(Event{
		Kind:      KindPlannerExit,
		ExitCode:  &code,
		TimedOut:  timedOut,
		PlannerMs: ms,
		Stderr:    stderr,
	})
}

// Candidates writes the plan files found after the planner exited.
func (rl *RunLog) Candidates(files []string) {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	rl.stats.Candidates = len(files)
	rl.mu.Unlock()
	rl.write(Event{Kind: KindCandidates, Files: files})
}

// PlanSelected writes the plan file chosen and what it contained.
func (rl *RunLog) PlanSelected(file string, actions int, cost *int) {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	rl.stats.PlanFile = file
	rl.stats.Actions = actions
	rl.stats.Cost = cost
	rl.mu.Unlock()
	n := actions
	rl.write(Event{Kind: KindPlanSelected, PlanFile: file, Actions: &n, Cost: cost})
}

// Stats returns a snapshot of the run's metrics so far.
func (rl *RunLog) Stats() *RunStats {
	if rl == nil {
		return nil
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	s := rl.stats
	return &s
}

// write appends one JSON line to the run log file. Adds timestamp, mutex-protected.
func (rl *RunLog) write(e Event) {
	e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("[RUNLOG] marshal event", "error", err)
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.f == nil {
		return
	}
	if _, err = fmt.Fprintf(rl.f, "%s\n", data); err != nil {
		slog.Error("[RUNLOG] write event", "error", err)
	}
}
