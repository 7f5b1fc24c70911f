package problem

import "fmt"

// worldState is the compiled initial_state: where the robot is, what it
// holds, which boxes sit where, and the facts that describe it.
type worldState struct {
	robotAt string
	holding string
	stacks  map[string][]string // non-empty stacks only, top to bottom
	facts   []Atom
}

// compileState resolves initial_state against the registry, enforces the
// exactly-once placement rule and derives the initial facts.
//
// Expectations:
//   - robot_at must be a declared location, holding (when set) a declared box
//   - stacks keys must be declared locations and their entries declared boxes
//   - A box held and stacked, stacked twice, or listed twice in one stack,
//     and any box placed nowhere, fail with a single *PlacementInvariantError
//   - Stack [t0..tk] at L yields on(ti,ti+1), on(tk,L), clear(t0), box-at(ti,L)
//   - Every location without boxes yields clear(L) and nothing else
//   - Hand state is holding(B) or hands-empty
func compileState(reg *Registry, st InitialState) (worldState, error) {
	ws := worldState{stacks: make(map[string][]string)}

	if err := reg.requireLocation(st.RobotAt, "initial_state.robot_at"); err != nil {
		return ws, err
	}
	ws.robotAt = st.RobotAt

	if st.Holding != "" {
		if err := reg.requireBox(st.Holding, "initial_state.holding"); err != nil {
			return ws, err
		}
		ws.holding = st.Holding
	}

	for _, s := range st.Stacks {
		path := "initial_state.stacks." + s.Location
		if err := reg.requireLocation(s.Location, path); err != nil {
			return ws, err
		}
		for i, b := range s.Boxes {
			if err := reg.requireBox(b, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return ws, err
			}
		}
	}

	if err := checkPlacement(reg, st); err != nil {
		return ws, err
	}

	ws.facts = append(ws.facts, NewAtom(PredRobotAt, ws.robotAt))
	if ws.holding != "" {
		ws.facts = append(ws.facts, NewAtom(PredHolding, ws.holding))
	} else {
		ws.facts = append(ws.facts, NewAtom(PredHandsEmpty))
	}

	for _, s := range st.Stacks {
		if len(s.Boxes) == 0 {
			continue
		}
		ws.stacks[s.Location] = s.Boxes
		ws.facts = append(ws.facts, stackFacts(s.Location, s.Boxes)...)
	}
	for _, l := range reg.Locations() {
		if _, occupied := ws.stacks[l.Name]; !occupied {
			ws.facts = append(ws.facts, NewAtom(PredClear, l.Name))
		}
	}
	return ws, nil
}

// checkPlacement verifies that holding ∪ stacks covers every declared box exactly once.
func checkPlacement(reg *Registry, st InitialState) error {
	seen := make(map[string]bool)
	reported := make(map[string]bool)
	var dup []string

	place := func(b string) {
		if seen[b] {
			if !reported[b] {
				reported[b] = true
				dup = append(dup, b)
			}
			return
		}
		seen[b] = true
	}
	if st.Holding != "" {
		place(st.Holding)
	}
	for _, s := range st.Stacks {
		for _, b := range s.Boxes {
			place(b)
		}
	}

	var unplaced []string
	for _, b := range reg.Boxes() {
		if !seen[b.Name] {
			unplaced = append(unplaced, b.Name)
		}
	}
	if len(dup) > 0 || len(unplaced) > 0 {
		return &PlacementInvariantError{Duplicated: dup, Unplaced: unplaced}
	}
	return nil
}

// stackFacts derives the facts for one non-empty stack, listed top to bottom.
func stackFacts(loc string, boxes []string) []Atom {
	facts := make([]Atom, 0, 2*len(boxes)+1)
	for i := 0; i < len(boxes)-1; i++ {
		facts = append(facts, NewAtom(PredOn, boxes[i], boxes[i+1]))
	}
	facts = append(facts, NewAtom(PredOn, boxes[len(boxes)-1], loc))
	facts = append(facts, NewAtom(PredClear, boxes[0]))
	for _, b := range boxes {
		facts = append(facts, NewAtom(PredBoxAt, b, loc))
	}
	return facts
}
