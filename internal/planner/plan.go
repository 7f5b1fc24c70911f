package planner

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Result is the harvested plan. It marshals as {"plan": [...], "cost": n|null}.
type Result struct {
	Actions  []string `json:"plan"`
	Cost     *int     `json:"cost"`
	PlanFile string   `json:"-"`
}

// costRe captures the whole token after "cost =", so "12.5" is seen as
// 12.5 and not as 12.
var costRe = regexp.MustCompile(`^;\s*cost\s*=\s*([^\s(]+)`)

// ParsePlan reads one plan file body. name is used in error messages only.
//
// Expectations:
//   - Each non-blank line starting with "(" and ending with ")" is one action, kept verbatim
//   - Lines starting with ";" are comments; "; cost = N ..." sets Cost (last one wins)
//   - A cost that is not an integer (e.g. "12.5") leaves Cost nil rather than truncated
//   - Any other non-blank line returns *PlanFormatError with its 1-based line number
//   - An empty plan yields a non-nil, empty Actions slice
func ParsePlan(r io.Reader, name string) (*Result, error) {
	res := &Result{Actions: []string{}, PlanFile: name}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		switch {
		case text == "":
		case strings.HasPrefix(text, ";"):
			if m := costRe.FindStringSubmatch(text); m != nil {
				if cost, err := strconv.Atoi(m[1]); err == nil {
					res.Cost = &cost
				} else {
					res.Cost = nil
				}
			}
		case strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")"):
			res.Actions = append(res.Actions, text)
		default:
			return nil, &PlanFormatError{Path: name, Line: line, Text: text}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("planner: read %s: %w", name, err)
	}
	return res, nil
}

// ParsePlanFile opens path and parses it with ParsePlan.
func ParsePlanFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("planner: open plan: %w", err)
	}
	defer f.Close()
	return ParsePlan(f, path)
}
