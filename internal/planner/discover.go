package planner

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Candidate is one numbered plan file left by the planner.
type Candidate struct {
	N    int
	Path string
}

// Discover lists the files in dir named base.N, N a positive decimal
// integer without leading zeros, sorted by ascending N.
// Subdirectories and entries that cannot be inspected are skipped.
//
// Expectations:
//   - "sas_plan.1", "sas_plan.12" match base "sas_plan"
//   - "sas_plan", "sas_plan.0", "sas_plan.01", "sas_plan.1.bak", "sas_plan.x" do not
//   - Returns an empty slice, not an error, when nothing matches
func Discover(dir, base string) ([]Candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	prefix := filepath.Base(base) + "."
	var out []Candidate
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		n, ok := planIndex(strings.TrimPrefix(e.Name(), prefix))
		if !ok {
			continue
		}
		out = append(out, Candidate{N: n, Path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].N < out[j].N })
	return out, nil
}

// Best returns the candidate with the largest N.
func Best(cands []Candidate) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.N > best.N {
			best = c
		}
	}
	return best, true
}

func planIndex(s string) (int, bool) {
	if s == "" || s[0] == '0' {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
