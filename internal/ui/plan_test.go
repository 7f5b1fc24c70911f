package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"github.com/haricheung/boxplan/internal/planner"
	"github.com/haricheung/boxplan/internal/runlog"
)

func TestSummary_NumbersAndFooter(t *testing.T) {
	// Actions are numbered with aligned indices; footer carries count, cost and file
	acts := make([]string, 10)
	for i := range acts {
		acts[i] = "(move l1 l2)"
	}
	cost := 10
	res := &planner.Result{Actions: acts, Cost: &cost, PlanFile: "/run/sas_plan.3"}
	var buf bytes.Buffer
	Summary(&buf, res, &runlog.RunStats{Candidates: 3, PlannerMs: 1500}, false)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 11 {
		t.Fatalf("got %d lines, want 11:\n%s", len(lines), buf.String())
	}
	if lines[0] != "   1  (move l1 l2)" {
		t.Errorf("first line = %q", lines[0])
	}
	if lines[9] != "  10  (move l1 l2)" {
		t.Errorf("tenth line = %q", lines[9])
	}
	footer := lines[10]
	for _, want := range []string{"10 actions", "cost 10", "sas_plan.3 of 3", "1.5s"} {
		if !strings.Contains(footer, want) {
			t.Errorf("footer %q missing %q", footer, want)
		}
	}
	if strings.Contains(buf.String(), "\033[") {
		t.Error("unexpected ANSI codes with color disabled")
	}
}

func TestSummary_UnknownCostAndTimeout(t *testing.T) {
	// A missing cost reads "unknown"; a timed-out run is flagged
	var buf bytes.Buffer
	Summary(&buf, &planner.Result{Actions: []string{}}, &runlog.RunStats{TimedOut: true}, true)
	out := buf.String()
	if !strings.Contains(out, "cost unknown") {
		t.Errorf("expected unknown cost, got %q", out)
	}
	if !strings.Contains(out, "time limit") {
		t.Errorf("expected timeout note, got %q", out)
	}
	if !strings.Contains(out, ansiGreen) {
		t.Errorf("expected ANSI color with color enabled")
	}
}

func TestClip_DisplayWidth(t *testing.T) {
	// clip measures display columns, so wide runes count double
	if got := clip("(move l1 l2)", 72); got != "(move l1 l2)" {
		t.Errorf("short string changed: %q", got)
	}
	got := clip(strings.Repeat("箱", 50), 10)
	if w := runewidth.StringWidth(got); w > 10 {
		t.Errorf("clipped width = %d, want <= 10", w)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("expected ellipsis, got %q", got)
	}
}
