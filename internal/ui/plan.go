// Package ui renders human-facing summaries on stderr. Machine output
// (PDDL, plan JSON) never goes through here.
package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/haricheung/boxplan/internal/planner"
	"github.com/haricheung/boxplan/internal/runlog"
)

// ANSI codes
const (
	ansiReset  = "\033[0m"
	ansiDim    = "\033[2m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
)

// MaxActionWidth is the display width an action is clipped to.
const MaxActionWidth = 72

// Summary prints a numbered plan listing followed by a one-line footer.
// stats may be nil. color enables ANSI styling.
//
// Expectations:
//   - One line per action, numbered from 1, numbers right-aligned to a common width
//   - Actions wider than MaxActionWidth display columns are clipped with "…"
//   - The footer shows the action count, the cost or "unknown", and the plan file
//   - A timed-out run is flagged in the footer
func Summary(w io.Writer, res *planner.Result, stats *runlog.RunStats, color bool) {
	paint := func(code, s string) string {
		if !color {
			return s
		}
		return code + s + ansiReset
	}

	width := len(strconv.Itoa(len(res.Actions)))
	for i, a := range res.Actions {
		n := runewidth.FillLeft(strconv.Itoa(i+1), width)
		fmt.Fprintf(w, "  %s  %s\n", paint(ansiDim, n), clip(a, MaxActionWidth))
	}

	cost := "unknown"
	if res.Cost != nil {
		cost = strconv.Itoa(*res.Cost)
	}
	footer := fmt.Sprintf("✅ %d actions, cost %s", len(res.Actions), cost)
	if res.PlanFile != "" {
		footer += " (" + filepath.Base(res.PlanFile)
		if stats != nil && stats.Candidates > 0 {
			footer += fmt.Sprintf(" of %d", stats.Candidates)
		}
		footer += ")"
	}
	if stats != nil && stats.PlannerMs > 0 {
		footer += " in " + (time.Duration(stats.PlannerMs) * time.Millisecond).String()
	}
	fmt.Fprintln(w, paint(ansiGreen, footer))
	if stats != nil && stats.TimedOut {
		fmt.Fprintln(w, paint(ansiYellow, "⏱  planner hit its time limit; this is the best plan found so far"))
	}
}

// clip truncates s to at most n display columns, appending "…" if trimmed.
func clip(s string, n int) string {
	return runewidth.Truncate(s, n, "…")
}
