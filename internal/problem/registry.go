package problem

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the type of a declared object.
type Kind string

const (
	KindLocation Kind = "location"
	KindBox      Kind = "box"
)

// Color is the optional color tag carried by a location or box.
type Color string

const (
	ColorNone  Color = ""
	ColorBlack Color = "black"
	ColorWhite Color = "white"
)

// Entity is one declared location or box.
type Entity struct {
	Name  string
	Kind  Kind
	Color Color
}

// Registry holds the validated locations and boxes of one problem and
// resolves names against them.
type Registry struct {
	locations []Entity
	boxes     []Entity
	locIndex  map[string]int
	boxIndex  map[string]int
}

// NewRegistry validates the declared entities and builds the lookup tables.
//
// Expectations:
//   - Returns *DuplicateNameError when a name repeats, compared case-insensitively
//   - Returns *DuplicateNameError when a box reuses a location's name
//   - Returns *InvalidColorError when "color" is not "black" or "white"
//   - A null "color" is the same as no color
//   - Property keys other than "color" are ignored
//   - Declaration order is preserved by Locations() and Boxes()
func NewRegistry(locations, boxes []EntitySpec) (*Registry, error) {
	r := &Registry{}
	seen := make(map[string]Entity, len(locations)+len(boxes))
	var err error
	if r.locations, r.locIndex, err = resolveEntities(locations, KindLocation, "locations", seen); err != nil {
		return nil, err
	}
	if r.boxes, r.boxIndex, err = resolveEntities(boxes, KindBox, "boxes", seen); err != nil {
		return nil, err
	}
	return r, nil
}

// resolveEntities builds one kind's entities. seen holds every name declared
// so far, keyed by its case-folded spelling.
func resolveEntities(specs []EntitySpec, kind Kind, path string, seen map[string]Entity) ([]Entity, map[string]int, error) {
	out := make([]Entity, 0, len(specs))
	index := make(map[string]int, len(specs))
	for _, s := range specs {
		folded := strings.ToLower(s.Name)
		if prev, dup := seen[folded]; dup {
			return nil, nil, &DuplicateNameError{Kind: kind, Name: s.Name, Existing: prev.Name, Other: prev.Kind}
		}
		color, err := parseColor(s.Props["color"], fmt.Sprintf("%s.%s.color", path, s.Name))
		if err != nil {
			return nil, nil, err
		}
		e := Entity{Name: s.Name, Kind: kind, Color: color}
		seen[folded] = e
		index[s.Name] = len(out)
		out = append(out, e)
	}
	return out, index, nil
}

func parseColor(raw json.RawMessage, path string) (Color, error) {
	if isNull(raw) {
		return ColorNone, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch Color(s) {
		case ColorBlack, ColorWhite:
			return Color(s), nil
		}
	}
	return ColorNone, &InvalidColorError{Path: path, Value: string(raw)}
}

// Locations returns the declared locations in declaration order.
func (r *Registry) Locations() []Entity { return r.locations }

// Boxes returns the declared boxes in declaration order.
func (r *Registry) Boxes() []Entity { return r.boxes }

// IsLocation reports whether name is a declared location.
func (r *Registry) IsLocation(name string) bool {
	_, ok := r.locIndex[name]
	return ok
}

// IsBox reports whether name is a declared box.
func (r *Registry) IsBox(name string) bool {
	_, ok := r.boxIndex[name]
	return ok
}

// requireLocation, requireBox and requireObject turn a failed lookup into an
// *UnknownReferenceError carrying the JSON path.
func (r *Registry) requireLocation(name, path string) error {
	if !r.IsLocation(name) {
		return &UnknownReferenceError{Path: path, Name: name, Want: string(KindLocation)}
	}
	return nil
}

func (r *Registry) requireBox(name, path string) error {
	if !r.IsBox(name) {
		return &UnknownReferenceError{Path: path, Name: name, Want: string(KindBox)}
	}
	return nil
}

func (r *Registry) requireObject(name, path string) error {
	if !r.IsBox(name) && !r.IsLocation(name) {
		return &UnknownReferenceError{Path: path, Name: name, Want: "box or location"}
	}
	return nil
}
