package problem

import "strings"

// Predicate names of the BOX-WORLD domain.
const (
	PredHolding        = "holding"
	PredHandsEmpty     = "hands-empty"
	PredRobotAt        = "robot-at"
	PredBoxAt          = "box-at"
	PredForbiddenStack = "forbidden-stack"
	PredOn             = "on"
	PredClear          = "clear"
	PredBlack          = "black"
	PredWhite          = "white"
)

// Atom is a ground predicate application such as (on B1 B2).
type Atom struct {
	Pred string
	Args []string
}

// NewAtom builds an Atom.
func NewAtom(pred string, args ...string) Atom {
	return Atom{Pred: pred, Args: args}
}

// String renders the atom in PDDL syntax. A nullary atom renders as "(pred)".
func (a Atom) String() string {
	if len(a.Args) == 0 {
		return "(" + a.Pred + ")"
	}
	return "(" + a.Pred + " " + strings.Join(a.Args, " ") + ")"
}

// Pair is an ordered (top, bottom) pair of box names.
type Pair struct {
	Top    string
	Bottom string
}
