package problem

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
)

// Document is the shape-normalised form of an input JSON document.
// Every field that accepts more than one JSON shape has been resolved to a
// single canonical representation, so nothing downstream branches on input
// shape again. References between fields are not checked here; Compile does that.
type Document struct {
	ProblemName string
	Locations   []EntitySpec
	Boxes       []EntitySpec
	Initial     InitialState
	Forbidden   [][2]string
	Goal        GoalSpec
}

// EntitySpec is one declared location or box with its raw property values.
type EntitySpec struct {
	Name  string
	Props map[string]json.RawMessage
}

// InitialState is the decoded initial_state object.
// Holding is empty when the robot's hands are empty.
type InitialState struct {
	RobotAt string
	Holding string
	Stacks  []StackSpec // document order; null stacks decode as empty
}

// StackSpec lists the boxes at one location, top to bottom.
type StackSpec struct {
	Location string
	Boxes    []string
}

// GoalSpec is the decoded goal object.
type GoalSpec struct {
	On    [][2]string
	BoxAt [][2]string
	Clear []string
	PDDL  []string
}

var nameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

type rawDocument struct {
	ProblemName    json.RawMessage `json:"problem_name"`
	Locations      json.RawMessage `json:"locations"`
	Boxes          json.RawMessage `json:"boxes"`
	InitialState   json.RawMessage `json:"initial_state"`
	ForbiddenStack json.RawMessage `json:"forbidden_stack"`
	Goal           json.RawMessage `json:"goal"`
}

type rawInitialState struct {
	RobotAt json.RawMessage `json:"robot_at"`
	Holding json.RawMessage `json:"holding"`
	Stacks  json.RawMessage `json:"stacks"`
}

type rawGoal struct {
	On    json.RawMessage `json:"on"`
	BoxAt json.RawMessage `json:"box-at"`
	Clear json.RawMessage `json:"clear"`
	PDDL  json.RawMessage `json:"pddl"`
}

// Decode reads one JSON document from r and normalises its shape.
//
// Expectations:
//   - Fails with *SchemaError naming the field when a required field is missing
//   - "locations"/"boxes" accept an array of names or an object name → properties
//   - The object shape is ordered by sorted name; the array shape keeps input order
//   - A null property object is treated as {}
//   - Repeated keys in an object-shaped entity list are kept so the registry can reject them
//   - A null stack decodes as an empty one (Compile treats both as an empty location)
//   - goal.pddl accepts a single string or an array of strings; blank strings are dropped
func Decode(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, schemaFromJSON("document", err)
	}

	doc := &Document{}
	if doc.ProblemName, err = requiredName(raw.ProblemName, "problem_name"); err != nil {
		return nil, err
	}
	if doc.Locations, err = decodeEntities(raw.Locations, "locations"); err != nil {
		return nil, err
	}
	if doc.Boxes, err = decodeEntities(raw.Boxes, "boxes"); err != nil {
		return nil, err
	}
	if doc.Initial, err = decodeInitialState(raw.InitialState); err != nil {
		return nil, err
	}
	if doc.Forbidden, err = decodePairs(raw.ForbiddenStack, "forbidden_stack"); err != nil {
		return nil, err
	}
	if doc.Goal, err = decodeGoal(raw.Goal); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeEntities(raw json.RawMessage, path string) ([]EntitySpec, error) {
	if isNull(raw) {
		return nil, &SchemaError{Path: path, Reason: "required field is missing"}
	}
	switch firstByte(raw) {
	case '[':
		var names []json.RawMessage
		if err := json.Unmarshal(raw, &names); err != nil {
			return nil, schemaFromJSON(path, err)
		}
		out := make([]EntitySpec, 0, len(names))
		for i, n := range names {
			name, err := requiredName(n, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out = append(out, EntitySpec{Name: name, Props: map[string]json.RawMessage{}})
		}
		return out, nil
	case '{':
		members, err := objectMembers(raw, path)
		if err != nil {
			return nil, err
		}
		out := make([]EntitySpec, 0, len(members))
		for _, m := range members {
			if !nameRe.MatchString(m.key) {
				return nil, &SchemaError{Path: path, Reason: fmt.Sprintf("%q is not a valid PDDL name", m.key)}
			}
			props := map[string]json.RawMessage{}
			if !isNull(m.value) {
				if firstByte(m.value) != '{' {
					return nil, &SchemaError{Path: path + "." + m.key, Reason: "properties must be an object or null"}
				}
				if err := json.Unmarshal(m.value, &props); err != nil {
					return nil, schemaFromJSON(path+"."+m.key, err)
				}
			}
			out = append(out, EntitySpec{Name: m.key, Props: props})
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out, nil
	default:
		return nil, &SchemaError{Path: path, Reason: "must be an array of names or an object mapping name to properties"}
	}
}

func decodeInitialState(raw json.RawMessage) (InitialState, error) {
	var st InitialState
	if isNull(raw) {
		return st, &SchemaError{Path: "initial_state", Reason: "required field is missing"}
	}
	if firstByte(raw) != '{' {
		return st, &SchemaError{Path: "initial_state", Reason: "must be an object"}
	}
	var ri rawInitialState
	if err := json.Unmarshal(raw, &ri); err != nil {
		return st, schemaFromJSON("initial_state", err)
	}

	var err error
	if st.RobotAt, err = requiredName(ri.RobotAt, "initial_state.robot_at"); err != nil {
		return st, err
	}
	if !isNull(ri.Holding) {
		if st.Holding, err = requiredName(ri.Holding, "initial_state.holding"); err != nil {
			return st, err
		}
	}

	if isNull(ri.Stacks) {
		return st, &SchemaError{Path: "initial_state.stacks", Reason: "required field is missing"}
	}
	if firstByte(ri.Stacks) != '{' {
		return st, &SchemaError{Path: "initial_state.stacks", Reason: "must be an object mapping location to a list of boxes (top to bottom)"}
	}
	members, err := objectMembers(ri.Stacks, "initial_state.stacks")
	if err != nil {
		return st, err
	}
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		path := "initial_state.stacks." + m.key
		if seen[m.key] {
			return st, &SchemaError{Path: path, Reason: "location listed more than once"}
		}
		seen[m.key] = true
		boxes, err := decodeNames(m.value, path)
		if err != nil {
			return st, err
		}
		st.Stacks = append(st.Stacks, StackSpec{Location: m.key, Boxes: boxes})
	}
	return st, nil
}

func decodeGoal(raw json.RawMessage) (GoalSpec, error) {
	var g GoalSpec
	if isNull(raw) {
		return g, &SchemaError{Path: "goal", Reason: "required field is missing"}
	}
	if firstByte(raw) != '{' {
		return g, &SchemaError{Path: "goal", Reason: "must be an object"}
	}
	var rg rawGoal
	if err := json.Unmarshal(raw, &rg); err != nil {
		return g, schemaFromJSON("goal", err)
	}

	var err error
	if g.On, err = decodePairs(rg.On, "goal.on"); err != nil {
		return g, err
	}
	if g.BoxAt, err = decodePairs(rg.BoxAt, "goal.box-at"); err != nil {
		return g, err
	}
	if g.Clear, err = decodeNames(rg.Clear, "goal.clear"); err != nil {
		return g, err
	}
	if g.PDDL, err = decodeFormulas(rg.PDDL, "goal.pddl"); err != nil {
		return g, err
	}
	return g, nil
}

// decodeNames decodes an optional array of names; null yields nil.
func decodeNames(raw json.RawMessage, path string) ([]string, error) {
	if isNull(raw) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &SchemaError{Path: path, Reason: "must be an array of names"}
	}
	out := make([]string, 0, len(items))
	for i, it := range items {
		name, err := requiredName(it, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, nil
}

// decodePairs decodes an optional array of two-element name arrays.
func decodePairs(raw json.RawMessage, path string) ([][2]string, error) {
	if isNull(raw) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &SchemaError{Path: path, Reason: "must be an array of [a, b] pairs"}
	}
	out := make([][2]string, 0, len(items))
	for i, it := range items {
		p := fmt.Sprintf("%s[%d]", path, i)
		names, err := decodeNames(it, p)
		if err != nil {
			return nil, err
		}
		if len(names) != 2 {
			return nil, &SchemaError{Path: p, Reason: fmt.Sprintf("must be a pair of names, got %d element(s)", len(names))}
		}
		out = append(out, [2]string{names[0], names[1]})
	}
	return out, nil
}

// decodeFormulas accepts a string or an array of strings. Blank entries are
// dropped; the rest are kept byte for byte.
func decodeFormulas(raw json.RawMessage, path string) ([]string, error) {
	if isNull(raw) {
		return nil, nil
	}
	var list []string
	switch firstByte(raw) {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, schemaFromJSON(path, err)
		}
		list = []string{s}
	case '[':
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, &SchemaError{Path: path, Reason: "must be a string or an array of strings"}
		}
	default:
		return nil, &SchemaError{Path: path, Reason: "must be a string or an array of strings"}
	}
	out := list[:0]
	for _, f := range list {
		if strings.TrimSpace(f) != "" {
			out = append(out, f)
		}
	}
	return out, nil
}

func requiredName(raw json.RawMessage, path string) (string, error) {
	if isNull(raw) {
		return "", &SchemaError{Path: path, Reason: "required field is missing"}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &SchemaError{Path: path, Reason: "must be a string"}
	}
	if !nameRe.MatchString(s) {
		return "", &SchemaError{Path: path, Reason: fmt.Sprintf("%q is not a valid PDDL name", s)}
	}
	return s, nil
}

type member struct {
	key   string
	value json.RawMessage
}

// objectMembers walks a JSON object token by token so key order and
// repeated keys survive, which encoding/json's map decoding would lose.
func objectMembers(raw json.RawMessage, path string) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, schemaFromJSON(path, err)
	}
	var out []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, schemaFromJSON(path, err)
		}
		key, _ := tok.(string)
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, schemaFromJSON(path+"."+key, err)
		}
		out = append(out, member{key: key, value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, schemaFromJSON(path, err)
	}
	return out, nil
}

func schemaFromJSON(path string, err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return &SchemaError{Path: typeErr.Field, Reason: fmt.Sprintf("must be %s, got %s", typeErr.Type, typeErr.Value)}
	}
	return &SchemaError{Path: path, Reason: err.Error()}
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func firstByte(raw json.RawMessage) byte {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 {
		return 0
	}
	return t[0]
}
