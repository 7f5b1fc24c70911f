package problem

import "fmt"

// compileForbidden resolves forbidden_stack pairs. Repeated pairs collapse
// onto their first occurrence; a box forbidden from itself is kept as-is.
func compileForbidden(reg *Registry, pairs [][2]string) ([]Pair, error) {
	var out []Pair
	seen := make(map[Pair]bool, len(pairs))
	for i, p := range pairs {
		path := fmt.Sprintf("forbidden_stack[%d]", i)
		if err := reg.requireBox(p[0], path+"[0]"); err != nil {
			return nil, err
		}
		if err := reg.requireBox(p[1], path+"[1]"); err != nil {
			return nil, err
		}
		fp := Pair{Top: p[0], Bottom: p[1]}
		if seen[fp] {
			continue
		}
		seen[fp] = true
		out = append(out, fp)
	}
	return out, nil
}
