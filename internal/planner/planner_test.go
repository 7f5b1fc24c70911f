package planner

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haricheung/boxplan/internal/runlog"
)

// fakeRunner writes the given plan files (name suffix -> body) as a planner would.
type fakeRunner struct {
	plans map[string]string
	info  ExitInfo
	err   error
	got   Invocation
}

func (f *fakeRunner) Run(_ context.Context, inv Invocation) (ExitInfo, error) {
	f.got = inv
	if f.err != nil {
		return ExitInfo{}, f.err
	}
	for suffix, body := range f.plans {
		if err := os.WriteFile(inv.PlanBase+"."+suffix, []byte(body), 0o644); err != nil {
			return ExitInfo{}, err
		}
	}
	return f.info, nil
}

func request(t *testing.T) Request {
	t.Helper()
	return Request{Dir: t.TempDir(), Domain: "(define (domain BOX-WORLD))", Problem: "(define (problem p))"}
}

// ── ParsePlan ────────────────────────────────────────────────────────────────

func TestParsePlan_ActionsAndCost(t *testing.T) {
	// Actions are kept in order; the cost comment sets Cost
	body := "(move l1 l2)\n\n  (pickup b1 l2)  \n; cost = 2 (unit cost)\n"
	res, err := ParsePlan(strings.NewReader(body), "sas_plan.1")
	require.NoError(t, err)
	assert.Equal(t, []string{"(move l1 l2)", "(pickup b1 l2)"}, res.Actions)
	require.NotNil(t, res.Cost)
	assert.Equal(t, 2, *res.Cost)
}

func TestParsePlan_NoCostComment(t *testing.T) {
	// Without a cost comment Cost is nil and marshals as null
	res, err := ParsePlan(strings.NewReader("(move l1 l2)\n; found by hand\n"), "p")
	require.NoError(t, err)
	assert.Nil(t, res.Cost)
	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"plan":["(move l1 l2)"],"cost":null}`, string(data))
}

func TestParsePlan_NonIntegerCostIsUnknown(t *testing.T) {
	// A fractional or non-numeric cost is reported as unknown, never truncated
	for _, line := range []string{
		"; cost = 12.5 (general cost)",
		"; cost = 12.5",
		"; cost = 1e3 (general cost)",
		"; cost = lots",
	} {
		res, err := ParsePlan(strings.NewReader("(a)\n"+line+"\n"), "p")
		require.NoError(t, err, line)
		assert.Nil(t, res.Cost, line)
		assert.Equal(t, []string{"(a)"}, res.Actions, line)
	}

	res, err := ParsePlan(strings.NewReader("(a)\n; cost = 7(unit cost)\n"), "p")
	require.NoError(t, err)
	require.NotNil(t, res.Cost)
	assert.Equal(t, 7, *res.Cost)
}

func TestParsePlan_EmptyPlan(t *testing.T) {
	// A goal already satisfied yields an empty, non-null plan
	res, err := ParsePlan(strings.NewReader("; cost = 0 (unit cost)\n"), "p")
	require.NoError(t, err)
	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"plan":[],"cost":0}`, string(data))
}

func TestParsePlan_MalformedLine(t *testing.T) {
	// A line that is neither action, comment nor blank is a PlanFormatError
	_, err := ParsePlan(strings.NewReader("(move l1 l2)\nmove l2 l3\n"), "sas_plan.3")
	var pfe *PlanFormatError
	require.ErrorAs(t, err, &pfe)
	assert.Equal(t, "sas_plan.3", pfe.Path)
	assert.Equal(t, 2, pfe.Line)
	assert.Equal(t, "move l2 l3", pfe.Text)
}

// ── Discover / Best ──────────────────────────────────────────────────────────

func TestDiscover_MatchesNumberedFilesOnly(t *testing.T) {
	// Only base.N with N a positive integer without leading zeros is a candidate
	dir := t.TempDir()
	for _, name := range []string{"sas_plan.2", "sas_plan.10", "sas_plan.1", "sas_plan", "sas_plan.0",
		"sas_plan.01", "sas_plan.x", "sas_plan.1.bak", "other.3"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sas_plan.99"), 0o755))

	cands, err := Discover(dir, "sas_plan")
	require.NoError(t, err)
	var ns []int
	for _, c := range cands {
		ns = append(ns, c.N)
	}
	assert.Equal(t, []int{1, 2, 10}, ns)

	best, ok := Best(cands)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "sas_plan.10"), best.Path)
}

func TestBest_Empty(t *testing.T) {
	// No candidates, no best
	_, ok := Best(nil)
	assert.False(t, ok)
}

// ── Harvester.Solve ──────────────────────────────────────────────────────────

func TestSolve_SelectsHighestNumberedPlan(t *testing.T) {
	// With plan.1..3 present, plan.3 is parsed and returned
	fr := &fakeRunner{plans: map[string]string{
		"1": "(move l1 l2)\n(move l2 l1)\n(move l1 l2)\n; cost = 3 (unit cost)\n",
		"2": "(move l1 l3)\n(move l3 l2)\n; cost = 2 (unit cost)\n",
		"3": "(move l1 l2)\n; cost = 1 (unit cost)\n",
	}}
	req := request(t)
	h := &Harvester{Runner: fr}
	res, err := h.Solve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"(move l1 l2)"}, res.Actions)
	require.NotNil(t, res.Cost)
	assert.Equal(t, 1, *res.Cost)
	assert.Equal(t, filepath.Join(req.Dir, "sas_plan.3"), res.PlanFile)

	domain, err := os.ReadFile(fr.got.DomainPath)
	require.NoError(t, err)
	assert.Equal(t, req.Domain, string(domain))
	problem, err := os.ReadFile(fr.got.ProblemPath)
	require.NoError(t, err)
	assert.Equal(t, req.Problem, string(problem))
}

func TestSolve_NoPlanFound(t *testing.T) {
	// No plan files after the run is a NoPlanFoundError carrying the exit status
	fr := &fakeRunner{info: ExitInfo{ExitCode: 12}}
	_, err := (&Harvester{Runner: fr}).Solve(context.Background(), request(t))
	var npf *NoPlanFoundError
	require.ErrorAs(t, err, &npf)
	assert.Equal(t, 12, npf.ExitCode)
	assert.False(t, npf.TimedOut)
	assert.Contains(t, npf.Error(), "code 12")
}

func TestSolve_NonZeroExitWithPlanSucceeds(t *testing.T) {
	// Plan files, not the exit status, decide success
	fr := &fakeRunner{
		plans: map[string]string{"1": "(move l1 l2)\n"},
		info:  ExitInfo{ExitCode: 1},
	}
	res, err := (&Harvester{Runner: fr}).Solve(context.Background(), request(t))
	require.NoError(t, err)
	assert.Len(t, res.Actions, 1)
}

func TestSolve_TimedOutKeepsBestPlanSoFar(t *testing.T) {
	// A planner stopped by its time limit still yields the plans it wrote
	fr := &fakeRunner{
		plans: map[string]string{"1": "(move l1 l2)\n(move l2 l3)\n", "2": "(move l1 l3)\n"},
		info:  ExitInfo{ExitCode: -1, TimedOut: true},
	}
	res, err := (&Harvester{Runner: fr}).Solve(context.Background(), request(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"(move l1 l3)"}, res.Actions)
}

func TestSolve_TimedOutWithoutPlan(t *testing.T) {
	// A timeout with nothing written is NoPlanFoundError with TimedOut set
	fr := &fakeRunner{info: ExitInfo{ExitCode: -1, TimedOut: true}}
	_, err := (&Harvester{Runner: fr}).Solve(context.Background(), request(t))
	var npf *NoPlanFoundError
	require.ErrorAs(t, err, &npf)
	assert.True(t, npf.TimedOut)
}

func TestSolve_InvocationErrorPropagates(t *testing.T) {
	// A runner that cannot start the planner fails with PlannerInvocationError
	fr := &fakeRunner{err: &PlannerInvocationError{Command: "nope", Err: os.ErrNotExist}}
	_, err := (&Harvester{Runner: fr}).Solve(context.Background(), request(t))
	var pie *PlannerInvocationError
	require.ErrorAs(t, err, &pie)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSolve_StalePlansRemoved(t *testing.T) {
	// Plan files left from an earlier run never win over the new run's output
	req := request(t)
	require.NoError(t, os.WriteFile(filepath.Join(req.Dir, "sas_plan.9"), []byte("(stale)\n"), 0o644))
	fr := &fakeRunner{plans: map[string]string{"1": "(fresh)\n"}}
	res, err := (&Harvester{Runner: fr}).Solve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"(fresh)"}, res.Actions)
}

func TestSolve_MalformedSelectedPlan(t *testing.T) {
	// A malformed best plan is a PlanFormatError
	fr := &fakeRunner{plans: map[string]string{"1": "(ok)\n", "2": "garbage\n"}}
	_, err := (&Harvester{Runner: fr}).Solve(context.Background(), request(t))
	var pfe *PlanFormatError
	require.ErrorAs(t, err, &pfe)
}

func TestSolve_CustomPlanBase(t *testing.T) {
	// PlanBase controls which files are harvested
	fr := &fakeRunner{plans: map[string]string{"1": "(a)\n"}}
	req := request(t)
	res, err := (&Harvester{Runner: fr, PlanBase: "plan"}).Solve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(req.Dir, "plan"), fr.got.PlanBase)
	assert.Equal(t, []string{"(a)"}, res.Actions)
}

func TestSolve_RecordsRunLog(t *testing.T) {
	// The run log receives planner_exit, candidates and plan_selected
	reg := runlog.NewRegistry(t.TempDir())
	rl := reg.Open("r1", "in.json")
	fr := &fakeRunner{plans: map[string]string{"1": "(a)\n", "2": "(b)\n(c)\n; cost = 2\n"}}
	_, err := (&Harvester{Runner: fr, RunLog: rl}).Solve(context.Background(), request(t))
	require.NoError(t, err)
	reg.Close("r1", "solved", nil)

	s := reg.GetStats("r1")
	require.NotNil(t, s)
	assert.Equal(t, 2, s.Candidates)
	assert.Equal(t, "sas_plan.2", s.PlanFile)
	assert.Equal(t, 2, s.Actions)
	require.NotNil(t, s.Cost)
	assert.Equal(t, 2, *s.Cost)
}

func TestSolve_CancelledContext(t *testing.T) {
	// A caller cancellation is reported as an interruption, not a missing plan
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fr := &fakeRunner{plans: map[string]string{"1": "(a)\n"}}
	_, err := (&Harvester{Runner: fr}).Solve(ctx, request(t))
	assert.ErrorIs(t, err, context.Canceled)
}

// ── ExecRunner ───────────────────────────────────────────────────────────────

func TestExpandArgs_ReplacesPlaceholders(t *testing.T) {
	// Placeholders are replaced anywhere inside an argument
	inv := Invocation{DomainPath: "/r/domain.pddl", ProblemPath: "/r/problem.pddl", PlanBase: "/r/sas_plan"}
	got := expandArgs([]string{"--plan-file={plan}", "{domain}", "{problem}", "--x"}, inv)
	assert.Equal(t, []string{"--plan-file=/r/sas_plan", "/r/domain.pddl", "/r/problem.pddl", "--x"}, got)

	def := (&ExecRunner{}).CommandLine(inv)
	assert.Equal(t, DefaultCommand, def[0])
	assert.Contains(t, def, "/r/sas_plan")
}

func TestTailBuffer_KeepsLastBytes(t *testing.T) {
	// Only the most recent max bytes are kept
	tb := &tailBuffer{max: 4}
	_, _ = tb.Write([]byte("abc"))
	_, _ = tb.Write([]byte("defg"))
	assert.Equal(t, "defg", tb.String())
}

func requireSh(t *testing.T) string {
	t.Helper()
	for _, p := range []string{"/bin/sh", "/usr/bin/sh"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	t.Skip("sh not available")
	return ""
}

func newInvocation(t *testing.T) Invocation {
	dir := t.TempDir()
	return Invocation{
		Dir:         dir,
		DomainPath:  filepath.Join(dir, "domain.pddl"),
		ProblemPath: filepath.Join(dir, "problem.pddl"),
		PlanBase:    filepath.Join(dir, "sas_plan"),
	}
}

func TestExecRunner_WritesPlansAndExitCode(t *testing.T) {
	// A scripted planner writes numbered plans; a non-zero exit is not an error
	sh := requireSh(t)
	inv := newInvocation(t)
	r := &ExecRunner{
		Command: sh,
		Args:    []string{"-c", `echo "(move l1 l2)" > "$1.1"; echo "(move l1 l2)" > "$1.2"; echo oops >&2; exit 3`, "planner", "{plan}"},
	}
	info, err := r.Run(context.Background(), inv)
	require.NoError(t, err)
	assert.Equal(t, 3, info.ExitCode)
	assert.False(t, info.TimedOut)
	assert.Contains(t, info.Stderr, "oops")

	cands, err := Discover(inv.Dir, "sas_plan")
	require.NoError(t, err)
	assert.Len(t, cands, 2)
	assert.FileExists(t, filepath.Join(inv.Dir, outputLogName))
}

func TestExecRunner_MissingCommand(t *testing.T) {
	// A command that does not exist is a PlannerInvocationError
	r := &ExecRunner{Command: filepath.Join(t.TempDir(), "no-such-planner")}
	_, err := r.Run(context.Background(), newInvocation(t))
	var pie *PlannerInvocationError
	require.ErrorAs(t, err, &pie)
}

func TestExecRunner_TimeoutTerminatesGroup(t *testing.T) {
	// On timeout the planner and its children are stopped and TimedOut is set
	sh := requireSh(t)
	inv := newInvocation(t)
	r := &ExecRunner{
		Command: sh,
		Args:    []string{"-c", `echo "(a)" > "$1.1"; sleep 30 & wait`, "planner", "{plan}"},
		Timeout: 300 * time.Millisecond,
		Grace:   500 * time.Millisecond,
	}
	start := time.Now()
	info, err := r.Run(context.Background(), inv)
	require.NoError(t, err)
	assert.True(t, info.TimedOut)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.FileExists(t, inv.PlanBase+".1")
}
