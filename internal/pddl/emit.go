// Package pddl renders a compiled problem.Model as a BOX-WORLD problem
// instance and carries the fixed domain text the instance refers to.
package pddl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/haricheung/boxplan/internal/problem"
)

// InternalError reports a Model that violates a contract the compiler is
// supposed to guarantee. Seeing one means a bug upstream, not bad input.
type InternalError struct {
	Reason string
}

func (e *InternalError) Error() string {
	return "pddl: internal error: " + e.Reason
}

// Render returns the problem text for m. Output is a pure function of m:
// the same Model always renders byte-identical text.
//
// Expectations:
//   - Objects are declared boxes first, then locations, each in Model order
//   - :init lists Model.Facts() sorted lexicographically, one per line
//   - The goal is rendered by problem.Goal.String (bare for one clause, (and ...) otherwise)
//   - Returns *InternalError and no text when a structured atom names an
//     undeclared object, or two objects share a name ignoring case
//   - Compile rejects both cases as input errors, so neither is reachable from a document
func Render(m *problem.Model) (string, error) {
	if m == nil {
		return "", &InternalError{Reason: "nil model"}
	}
	declared, err := objectTable(m)
	if err != nil {
		return "", err
	}

	facts := m.Facts()
	init := make([]string, 0, len(facts))
	for _, f := range facts {
		if err := checkAtom(f, declared, ":init"); err != nil {
			return "", err
		}
		init = append(init, f.String())
	}
	sort.Strings(init)
	for _, a := range m.Goal.Structured() {
		if err := checkAtom(a, declared, ":goal"); err != nil {
			return "", err
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "(define (problem %s)\n", m.Name)
	fmt.Fprintf(&b, "  (:domain %s)\n", DomainName)
	b.WriteString("  (:objects\n")
	writeObjects(&b, m.Boxes, problem.KindBox)
	writeObjects(&b, m.Locations, problem.KindLocation)
	b.WriteString("  )\n")
	b.WriteString("  (:init\n")
	for _, f := range init {
		fmt.Fprintf(&b, "    %s\n", f)
	}
	b.WriteString("  )\n")
	fmt.Fprintf(&b, "  (:goal %s)\n", m.Goal.String())
	b.WriteString(")\n")
	return b.String(), nil
}

func writeObjects(b *strings.Builder, es []problem.Entity, kind problem.Kind) {
	if len(es) == 0 {
		return
	}
	names := make([]string, len(es))
	for i, e := range es {
		names[i] = e.Name
	}
	fmt.Fprintf(b, "    %s - %s\n", strings.Join(names, " "), kind)
}

func objectTable(m *problem.Model) (map[string]problem.Kind, error) {
	declared := make(map[string]problem.Kind, len(m.Boxes)+len(m.Locations))
	folded := make(map[string]problem.Entity, len(m.Boxes)+len(m.Locations))
	for _, group := range [][]problem.Entity{m.Boxes, m.Locations} {
		for _, e := range group {
			key := strings.ToLower(e.Name)
			if prev, ok := folded[key]; ok {
				return nil, &InternalError{Reason: fmt.Sprintf("object %q (%s) clashes with %q (%s)", e.Name, e.Kind, prev.Name, prev.Kind)}
			}
			folded[key] = e
			declared[e.Name] = e.Kind
		}
	}
	return declared, nil
}

func checkAtom(a problem.Atom, declared map[string]problem.Kind, block string) error {
	for _, arg := range a.Args {
		if _, ok := declared[arg]; !ok {
			return &InternalError{Reason: fmt.Sprintf("%s atom %s references undeclared object %q", block, a, arg)}
		}
	}
	return nil
}
