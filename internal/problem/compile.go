// Package problem turns a box-world JSON document into a validated, immutable
// Model: declared objects, initial facts, stacking constraints and the goal.
//
// Decode handles JSON shape (array-or-object entity lists, optional and
// nullable fields). Compile handles meaning: name resolution, the
// exactly-once placement rule and fact derivation. Both stages return typed
// errors carrying the JSON field path so a caller can fix the input.
package problem

import (
	"fmt"
	"io"
	"log/slog"
)

// Model is a compiled problem. It is built once by Compile and never mutated.
type Model struct {
	Name      string
	Locations []Entity
	Boxes     []Entity
	RobotAt   string
	Holding   string              // empty when hands are empty
	Stacks    map[string][]string // non-empty stacks only, top to bottom
	Forbidden []Pair
	Init      []Atom // world-state facts (robot, hand, on, clear, box-at)
	Goal      Goal
}

// Compile validates doc and builds its Model.
// logger may be nil; slog.Default() is used then.
//
// Expectations:
//   - Returns the first validation error found, in the order registry,
//     initial state, forbidden_stack, goal
//   - Never returns a partially built Model
func Compile(doc *Document, logger *slog.Logger) (*Model, error) {
	if logger == nil {
		logger = slog.Default()
	}
	reg, err := NewRegistry(doc.Locations, doc.Boxes)
	if err != nil {
		return nil, err
	}
	ws, err := compileState(reg, doc.Initial)
	if err != nil {
		return nil, err
	}
	forbidden, err := compileForbidden(reg, doc.Forbidden)
	if err != nil {
		return nil, err
	}
	goal, err := compileGoal(reg, doc.Goal)
	if err != nil {
		return nil, err
	}

	m := &Model{
		Name:      doc.ProblemName,
		Locations: reg.Locations(),
		Boxes:     reg.Boxes(),
		RobotAt:   ws.robotAt,
		Holding:   ws.holding,
		Stacks:    ws.stacks,
		Forbidden: forbidden,
		Init:      ws.facts,
		Goal:      goal,
	}
	logger.Debug("[COMPILE] problem compiled",
		"problem", m.Name,
		"locations", len(m.Locations),
		"boxes", len(m.Boxes),
		"init_facts", len(m.Init),
		"forbidden", len(m.Forbidden),
		"goal_clauses", len(m.Goal.Clauses))
	return m, nil
}

// Load decodes and compiles one document from r.
func Load(r io.Reader, logger *slog.Logger) (*Model, error) {
	doc, err := Decode(r)
	if err != nil {
		return nil, err
	}
	m, err := Compile(doc, logger)
	if err != nil {
		return nil, fmt.Errorf("problem %q: %w", doc.ProblemName, err)
	}
	return m, nil
}

// Facts returns every initial fact of the problem: the world-state facts,
// one forbidden-stack fact per pair, and one black/white fact per colored
// entity. Order is not significant; the emitter sorts.
func (m *Model) Facts() []Atom {
	facts := make([]Atom, 0, len(m.Init)+len(m.Forbidden)+len(m.Locations)+len(m.Boxes))
	facts = append(facts, m.Init...)
	for _, p := range m.Forbidden {
		facts = append(facts, NewAtom(PredForbiddenStack, p.Top, p.Bottom))
	}
	for _, group := range [][]Entity{m.Locations, m.Boxes} {
		for _, e := range group {
			switch e.Color {
			case ColorBlack:
				facts = append(facts, NewAtom(PredBlack, e.Name))
			case ColorWhite:
				facts = append(facts, NewAtom(PredWhite, e.Name))
			}
		}
	}
	return facts
}
