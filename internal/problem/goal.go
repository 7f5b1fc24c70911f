package problem

import (
	"fmt"
	"strings"
)

// Clause is one conjunct of a goal: either a structured Atom or a Verbatim
// formula copied from the document.
type Clause interface {
	clause()
	String() string
}

func (Atom) clause() {}

// Verbatim is caller-supplied PDDL text inserted into the goal unchanged.
// It is never parsed or reference-checked.
type Verbatim string

func (Verbatim) clause() {}

func (v Verbatim) String() string { return string(v) }

// Goal is the conjunction of its clauses.
type Goal struct {
	Clauses []Clause
}

// Structured returns the structured clauses in goal order.
func (g Goal) Structured() []Atom {
	var out []Atom
	for _, c := range g.Clauses {
		if a, ok := c.(Atom); ok {
			out = append(out, a)
		}
	}
	return out
}

// String renders the goal formula. One clause renders bare; more are
// wrapped in (and ...).
func (g Goal) String() string {
	switch len(g.Clauses) {
	case 0:
		return "(and)"
	case 1:
		return g.Clauses[0].String()
	}
	parts := make([]string, len(g.Clauses))
	for i, c := range g.Clauses {
		parts[i] = c.String()
	}
	return "(and " + strings.Join(parts, " ") + ")"
}

// compileGoal resolves the goal object into an ordered conjunction.
//
// Expectations:
//   - Clause order is all "on", then "box-at", then "clear", then "pddl", each in input order
//   - "on" needs a box on top and a box or location underneath
//   - "box-at" needs a box and a location; "clear" a box or location
//   - Verbatim formulas are not inspected
//   - Returns *GoalEmptyError when nothing is left to achieve
func compileGoal(reg *Registry, gs GoalSpec) (Goal, error) {
	var g Goal
	for i, p := range gs.On {
		path := fmt.Sprintf("goal.on[%d]", i)
		if err := reg.requireBox(p[0], path+"[0]"); err != nil {
			return g, err
		}
		if err := reg.requireObject(p[1], path+"[1]"); err != nil {
			return g, err
		}
		g.Clauses = append(g.Clauses, NewAtom(PredOn, p[0], p[1]))
	}
	for i, p := range gs.BoxAt {
		path := fmt.Sprintf("goal.box-at[%d]", i)
		if err := reg.requireBox(p[0], path+"[0]"); err != nil {
			return g, err
		}
		if err := reg.requireLocation(p[1], path+"[1]"); err != nil {
			return g, err
		}
		g.Clauses = append(g.Clauses, NewAtom(PredBoxAt, p[0], p[1]))
	}
	for i, name := range gs.Clear {
		if err := reg.requireObject(name, fmt.Sprintf("goal.clear[%d]", i)); err != nil {
			return g, err
		}
		g.Clauses = append(g.Clauses, NewAtom(PredClear, name))
	}
	for _, f := range gs.PDDL {
		g.Clauses = append(g.Clauses, Verbatim(f))
	}
	if len(g.Clauses) == 0 {
		return g, &GoalEmptyError{}
	}
	return g, nil
}
