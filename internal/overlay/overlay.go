// Package overlay manages the lifecycle of thematic map overlays.
//
// Each overlay (geological, volcanic, mangrove) moves through a small state
// machine driven by [Manager.Toggle]:
//
//	unloaded -> loading -> visible <-> hidden
//
// The first toggle fetches the overlay's records from a [Source], styles
// them with [ResolveStyle], renders and binds them on a [Surface], caches the
// resulting [Layer] and attaches it. Later toggles only attach or detach the
// cached layer.
package overlay

import "fmt"

// Name identifies one of the fixed thematic overlays.
type Name string

const (
	Geological Name = "geological"
	Volcanic   Name = "volcanic"
	Mangrove   Name = "mangrove"
)

// Category selects the styling policy applied to an overlay's records.
type Category int

const (
	CategoryGeological Category = iota + 1
	CategoryVolcanic
	CategoryMangrove
)

func (c Category) String() string {
	switch c {
	case CategoryGeological:
		return "geological"
	case CategoryVolcanic:
		return "volcanic"
	case CategoryMangrove:
		return "mangrove"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

type descriptor struct {
	category Category
	resource string
}

var catalog = map[Name]descriptor{
	Geological: {category: CategoryGeological, resource: "data/geological_features.json"},
	Volcanic:   {category: CategoryVolcanic, resource: "maps/volcanic/data/volcanic_areas.geojson"},
	Mangrove:   {category: CategoryMangrove, resource: "maps/mangrove/data/mangrove_areas.geojson"},
}

// Names returns every overlay in display order.
func Names() []Name {
	return []Name{Geological, Volcanic, Mangrove}
}

// ParseName converts user input into a Name.
func ParseName(s string) (Name, error) {
	n := Name(s)
	if !n.Valid() {
		return "", fmt.Errorf("unknown overlay %q: must be one of geological, volcanic, mangrove", s)
	}
	return n, nil
}

// Valid reports whether n belongs to the closed overlay set.
func (n Name) Valid() bool {
	_, ok := catalog[n]
	return ok
}

// Category returns the styling category of the overlay.
func (n Name) Category() Category {
	return n.describe().category
}

// Resource returns the default resource path of the overlay's feature file.
func (n Name) Resource() string {
	return n.describe().resource
}

func (n Name) describe() descriptor {
	d, ok := catalog[n]
	if !ok {
		violate("unknown overlay %q", n)
	}
	return d
}

// State is the lifecycle state of one overlay.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateVisible
	StateHidden
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateVisible:
		return "visible"
	case StateHidden:
		return "hidden"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// InvariantViolation reports a programming error such as an unknown overlay
// name or a second cache insert for the same overlay. It is raised with panic
// and never returned as an error.
type InvariantViolation struct {
	Reason string
}

func (e InvariantViolation) Error() string {
	return "overlay invariant violated: " + e.Reason
}

func violate(format string, args ...any) {
	panic(InvariantViolation{Reason: fmt.Sprintf(format, args...)})
}
