package problem

import (
	"fmt"
	"strings"
)

// SchemaError reports a document whose shape does not match the input schema:
// a missing required field, a value of the wrong JSON type, or a name that is
// not a valid PDDL identifier.
type SchemaError struct {
	Path   string // JSON field path, e.g. "initial_state.stacks.L1[0]"
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// DuplicateNameError reports a name declared twice. Object names are
// case-insensitive and boxes share one namespace with locations, so "b1"
// clashes with "B1", and a box may not reuse a location's name.
type DuplicateNameError struct {
	Kind     Kind   // kind of the later declaration
	Name     string // the later spelling
	Existing string // the earlier spelling
	Other    Kind   // kind of the earlier declaration
}

func (e *DuplicateNameError) Error() string {
	switch {
	case e.Other != "" && e.Other != e.Kind:
		return fmt.Sprintf("%ss: name %q is already declared as %s %q", e.Kind, e.Name, e.Other, e.Existing)
	case e.Existing != "" && e.Existing != e.Name:
		return fmt.Sprintf("%ss: duplicate name %q (names are case-insensitive; %q already declared)", e.Kind, e.Name, e.Existing)
	}
	return fmt.Sprintf("%ss: duplicate name %q", e.Kind, e.Name)
}

// InvalidColorError reports a color property other than "black" or "white".
type InvalidColorError struct {
	Path  string
	Value string // raw JSON text of the offending value
}

func (e *InvalidColorError) Error() string {
	return fmt.Sprintf("%s: invalid color %s (want \"black\" or \"white\")", e.Path, e.Value)
}

// UnknownReferenceError reports a name that does not resolve to a declared
// entity of the expected kind.
type UnknownReferenceError struct {
	Path string
	Name string
	Want string // "location", "box", or "box or location"
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("%s: %q is not a declared %s", e.Path, e.Name, e.Want)
}

// PlacementInvariantError reports a violation of the exactly-once placement
// rule: every declared box must be held or stacked, and only once.
type PlacementInvariantError struct {
	Duplicated []string // boxes placed more than once, in first-seen order
	Unplaced   []string // declared boxes placed nowhere, in declaration order
}

func (e *PlacementInvariantError) Error() string {
	var parts []string
	if len(e.Duplicated) > 0 {
		parts = append(parts, "placed more than once: "+strings.Join(e.Duplicated, ", "))
	}
	if len(e.Unplaced) > 0 {
		parts = append(parts, "not placed: "+strings.Join(e.Unplaced, ", "))
	}
	return "initial_state: each box must be held or stacked exactly once; " + strings.Join(parts, "; ")
}

// GoalEmptyError reports a goal with no structured predicates and no
// verbatim formulas.
type GoalEmptyError struct{}

func (e *GoalEmptyError) Error() string {
	return "goal: at least one condition is required"
}
