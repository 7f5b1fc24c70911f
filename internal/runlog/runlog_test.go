package runlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// readEvents parses all JSONL lines from a file into a slice of Events.
func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("readEvents: %v", err)
	}
	defer f.Close()
	var events []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if sc.Text() == "" {
			continue
		}
		var e Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("readEvents: unmarshal %q: %v", sc.Text(), err)
		}
		events = append(events, e)
	}
	return events
}

// --- Registry.Open ---

func TestRegistry_Open_WritesRunBegin(t *testing.T) {
	// Open creates the log directory and writes a run_begin event as the first JSONL line
	dir := t.TempDir()
	r := NewRegistry(filepath.Join(dir, "runs"))
	rl := r.Open("run1", "tiny.json")
	if rl == nil {
		t.Fatal("expected non-nil RunLog")
	}
	r.Close("run1", "solved", nil)

	events := readEvents(t, filepath.Join(dir, "runs", "run1.jsonl"))
	if len(events) == 0 {
		t.Fatal("expected at least one event")
	}
	if events[0].Kind != KindRunBegin {
		t.Errorf("first event kind = %q, want %q", events[0].Kind, KindRunBegin)
	}
	if events[0].RunID != "run1" || events[0].Input != "tiny.json" {
		t.Errorf("run_begin = %+v", events[0])
	}
}

func TestRegistry_Open_ReturnsExistingOnDuplicate(t *testing.T) {
	// Open returns the existing log without re-opening when called twice for the same runID
	dir := t.TempDir()
	r := NewRegistry(dir)
	rl1 := r.Open("run1", "a.json")
	rl2 := r.Open("run1", "b.json")
	if rl1 != rl2 {
		t.Errorf("expected same *RunLog pointer on second Open")
	}
	r.Close("run1", "solved", nil)

	begins := 0
	for _, e := range readEvents(t, filepath.Join(dir, "run1.jsonl")) {
		if e.Kind == KindRunBegin {
			begins++
		}
	}
	if begins != 1 {
		t.Errorf("expected 1 run_begin, got %d", begins)
	}
}

func TestRegistry_Open_DisabledWithoutDir(t *testing.T) {
	// A registry with no directory hands out nil logs, which are safe to use
	r := NewRegistry("")
	rl := r.Open("run1", "in.json")
	if rl != nil {
		t.Fatalf("expected nil RunLog, got %v", rl)
	}
	rl.Compiled("p", 1, 2, 3)
	r.Close("run1", "solved", nil)
	if s := r.GetStats("run1"); s != nil {
		t.Errorf("expected no stats, got %+v", s)
	}
}

// --- Registry.Get ---

func TestRegistry_Get(t *testing.T) {
	// Get returns the pointer Open returned, and nil for unknown or closed runs
	r := NewRegistry(t.TempDir())
	if got := r.Get("nonexistent"); got != nil {
		t.Errorf("expected nil for unknown runID, got %v", got)
	}
	rl := r.Open("run1", "in.json")
	if got := r.Get("run1"); got != rl {
		t.Errorf("Get returned different pointer than Open")
	}
	r.Close("run1", "solved", nil)
	if got := r.Get("run1"); got != nil {
		t.Errorf("expected nil after Close, got %v", got)
	}
}

// --- Registry.Close ---

func TestRegistry_Close_WritesRunEnd(t *testing.T) {
	// Close writes run_end with status and the error text
	dir := t.TempDir()
	r := NewRegistry(dir)
	r.Open("run1", "in.json")
	r.Close("run1", "failed", errors.New("no plan found"))

	events := readEvents(t, filepath.Join(dir, "run1.jsonl"))
	last := events[len(events)-1]
	if last.Kind != KindRunEnd {
		t.Errorf("last event kind = %q, want %q", last.Kind, KindRunEnd)
	}
	if last.Status != "failed" || last.Error != "no plan found" {
		t.Errorf("run_end = %+v", last)
	}
}

func TestRegistry_Close_NoopsForUnknown(t *testing.T) {
	// Close no-ops gracefully when runID is not registered
	r := NewRegistry(t.TempDir())
	r.Close("nonexistent", "solved", nil)
	var nilReg *Registry
	nilReg.Close("x", "solved", nil)
}

// --- nil RunLog safety ---

func TestRunLog_NilReceiverNoops(t *testing.T) {
	// All RunLog methods are no-ops when called on nil *RunLog
	var rl *RunLog
	rl.Compiled("p", 3, 10, 1)
	rl.PlannerStart([]string{"planner"}, "/tmp")
	rl.PlannerExit(1, true, time.Second, "boom")
	rl.Candidates([]string{"sas_plan.1"})
	rl.PlanSelected("sas_plan.1", 4, nil)
	if rl.Stats() != nil {
		t.Error("Stats on nil should be nil")
	}
}

// --- event content ---

func TestRunLog_PlannerExit_ZeroExitCodeIsSerialised(t *testing.T) {
	// planner_exit includes "exit_code":0 (pointer ensures this)
	dir := t.TempDir()
	r := NewRegistry(dir)
	rl := r.Open("run1", "in.json")
	rl.PlannerExit(0, false, 1500*time.Millisecond, "")
	r.Close("run1", "solved", nil)

	for _, e := range readEvents(t, filepath.Join(dir, "run1.jsonl")) {
		if e.Kind != KindPlannerExit {
			continue
		}
		if e.ExitCode == nil {
			t.Fatal("exit_code not serialised")
		}
		if *e.ExitCode != 0 || e.PlannerMs != 1500 {
			t.Errorf("planner_exit = %+v", e)
		}
		return
	}
	t.Fatal("no planner_exit event found")
}

func TestRegistry_GetStats_SnapshotOnClose(t *testing.T) {
	// Close caches a stats snapshot; GetStats returns it once
	r := NewRegistry(t.TempDir())
	rl := r.Open("run1", "in.json")
	rl.PlannerExit(0, true, 2*time.Second, "")
	rl.Candidates([]string{"sas_plan.1", "sas_plan.2"})
	cost := 7
	rl.PlanSelected("sas_plan.2", 7, &cost)
	r.Close("run1", "solved", nil)

	s := r.GetStats("run1")
	if s == nil {
		t.Fatal("expected stats")
	}
	if s.RunID != "run1" || !s.TimedOut || s.PlannerMs != 2000 || s.Candidates != 2 ||
		s.PlanFile != "sas_plan.2" || s.Actions != 7 || s.Cost == nil || *s.Cost != 7 {
		t.Errorf("stats = %+v", s)
	}
	if again := r.GetStats("run1"); again != nil {
		t.Errorf("second GetStats = %+v, want nil", again)
	}
}
