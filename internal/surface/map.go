// Package surface is the server-side map the overlay manager renders onto.
//
// A Map turns records into Feature handles, keeps the set of attached
// layers, and turns pointer positions into enter/leave events using an
// R-tree over every rendered feature.
package surface

import (
	"slices"
	"strings"
	"sync"

	"github.com/dhconnelly/rtreego"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-overlay/internal/overlay"
)

// DefaultTolerance is the default hit radius in degrees for markers and lines.
const DefaultTolerance = 0.05

// PopupView is an open popup as shown to the user.
type PopupView struct {
	FeatureID string `json:"featureId" doc:"Rendered feature handle id"`
	Overlay   string `json:"overlay" doc:"Overlay the feature belongs to" example:"volcanic"`
	Content   string `json:"content" doc:"Popup text, one field per line"`
}

// Map is an in-memory rendering surface.
type Map struct {
	tolerance float64

	mu       sync.RWMutex
	features map[string]*Feature
	attached map[overlay.Name]*overlay.Layer
	hovered  map[string]*Feature
	index    *rtreego.Rtree
}

// New creates an empty map. tolerance is the hit radius in degrees used for
// markers and lines; values <= 0 use DefaultTolerance.
func New(tolerance float64) *Map {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Map{
		tolerance: tolerance,
		features:  make(map[string]*Feature),
		attached:  make(map[overlay.Name]*overlay.Layer),
		hovered:   make(map[string]*Feature),
		index:     rtreego.NewTree(2, 25, 50),
	}
}

// Render creates a feature handle for rec and indexes it.
func (m *Map) Render(name overlay.Name, rec overlay.Record, style overlay.Style) overlay.Feature {
	f := &Feature{
		id:       uuid.NewString(),
		overlay:  name,
		record:   rec,
		style:    style,
		bound:    rec.Geometry.Bound(),
		pad:      m.tolerance,
		popup:    &Popup{},
		handlers: make(map[overlay.PointerEvent][]func()),
	}

	m.mu.Lock()
	m.features[f.id] = f
	m.index.Insert(f)
	m.mu.Unlock()
	return f
}

// Attach shows the layer.
func (m *Map) Attach(l *overlay.Layer) {
	m.mu.Lock()
	m.attached[l.Name()] = l
	m.mu.Unlock()
}

// Detach hides the layer. Features of the layer under the pointer receive
// a leave event so their popups close.
func (m *Map) Detach(l *overlay.Layer) {
	m.mu.Lock()
	if m.attached[l.Name()] != l {
		m.mu.Unlock()
		return
	}
	delete(m.attached, l.Name())

	var left []*Feature
	for id, f := range m.hovered {
		if f.overlay == l.Name() {
			left = append(left, f)
			delete(m.hovered, id)
		}
	}
	m.mu.Unlock()

	for _, f := range left {
		f.fire(overlay.PointerLeave)
	}
}

// HasAttached reports whether l is currently shown.
func (m *Map) HasAttached(l *overlay.Layer) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return l != nil && m.attached[l.Name()] == l
}

// Feature returns a rendered feature by handle id.
func (m *Map) Feature(id string) (*Feature, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.features[id]
	return f, ok
}

// PointerMove moves the pointer to pt. Attached features under the pointer
// that were not hovered before receive an enter event; previously hovered
// features no longer under it receive a leave event. It returns the popups
// open afterwards.
func (m *Map) PointerMove(pt orb.Point) []PopupView {
	query, _ := rtreego.NewRect(
		rtreego.Point{pt[0] - m.tolerance, pt[1] - m.tolerance},
		[]float64{2 * m.tolerance, 2 * m.tolerance},
	)

	hits := make(map[string]*Feature)
	for _, f := range m.candidates(query) {
		if f.hit(pt) {
			hits[f.id] = f
		}
	}
	left, entered := m.hover(hits)

	for _, f := range left {
		f.fire(overlay.PointerLeave)
	}
	for _, f := range entered {
		f.fire(overlay.PointerEnter)
	}
	return m.OpenPopups()
}

// candidates returns the attached features whose bounds intersect query.
func (m *Map) candidates(query rtreego.Rect) []*Feature {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Feature
	for _, s := range m.index.SearchIntersect(query) {
		f := s.(*Feature)
		if _, ok := m.attached[f.overlay]; ok {
			out = append(out, f)
		}
	}
	return out
}

// hover replaces the hovered set with hits and returns the features that
// left and entered it.
func (m *Map) hover(hits map[string]*Feature) (left, entered []*Feature) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, f := range m.hovered {
		if _, ok := hits[id]; !ok {
			left = append(left, f)
		}
	}
	for id, f := range hits {
		if _, ok := m.hovered[id]; !ok {
			entered = append(entered, f)
		}
	}
	m.hovered = hits
	return left, entered
}

// Enter delivers a pointer-enter to an attached feature by id.
func (m *Map) Enter(id string) bool {
	m.mu.Lock()
	f, ok := m.features[id]
	if ok {
		_, ok = m.attached[f.overlay]
	}
	if ok {
		m.hovered[id] = f
	}
	m.mu.Unlock()

	if ok {
		f.fire(overlay.PointerEnter)
	}
	return ok
}

// Leave delivers a pointer-leave to a feature by id.
func (m *Map) Leave(id string) bool {
	m.mu.Lock()
	f, ok := m.features[id]
	delete(m.hovered, id)
	m.mu.Unlock()

	if ok {
		f.fire(overlay.PointerLeave)
	}
	return ok
}

// OpenPopups returns every open popup on attached layers, ordered by
// overlay then feature id.
func (m *Map) OpenPopups() []PopupView {
	m.mu.RLock()
	defer m.mu.RUnlock()

	views := []PopupView{}
	for _, name := range overlay.Names() {
		l, ok := m.attached[name]
		if !ok {
			continue
		}
		var open []PopupView
		for _, lf := range l.Features() {
			f, ok := lf.(*Feature)
			if !ok || !f.popup.IsOpen() {
				continue
			}
			open = append(open, PopupView{FeatureID: f.id, Overlay: string(name), Content: f.popup.Content()})
		}
		slices.SortFunc(open, func(a, b PopupView) int { return strings.Compare(a.FeatureID, b.FeatureID) })
		views = append(views, open...)
	}
	return views
}

// FeatureCollection returns every attached feature as GeoJSON, with the
// resolved style and handle id added to its properties.
func (m *Map) FeatureCollection() *geojson.FeatureCollection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fc := geojson.NewFeatureCollection()
	for _, name := range overlay.Names() {
		l, ok := m.attached[name]
		if !ok {
			continue
		}
		for _, lf := range l.Features() {
			f, ok := lf.(*Feature)
			if !ok {
				continue
			}
			gf := geojson.NewFeature(f.record.Geometry)
			gf.ID = f.id
			for k, v := range f.record.Properties {
				gf.Properties[k] = v
			}
			gf.Properties["overlay"] = string(f.overlay)
			gf.Properties["style"] = f.style
			gf.Properties["popupOpen"] = f.popup.IsOpen()
			fc.Append(gf)
		}
	}
	return fc
}

var _ overlay.Surface = (*Map)(nil)
