package surface

import (
	"sync"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/joeblew999/plat-overlay/internal/overlay"
)

// minExtent is the smallest box side the R-tree accepts for point features
// (~11 meters at the equator).
const minExtent = 0.0001

// Popup is a feature's text popup.
type Popup struct {
	mu      sync.Mutex
	content string
	open    bool
}

func (p *Popup) SetContent(text string) {
	p.mu.Lock()
	p.content = text
	p.mu.Unlock()
}

func (p *Popup) Content() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.content
}

func (p *Popup) Open() {
	p.mu.Lock()
	p.open = true
	p.mu.Unlock()
}

func (p *Popup) Close() {
	p.mu.Lock()
	p.open = false
	p.mu.Unlock()
}

func (p *Popup) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// Feature is one rendered record on the map.
type Feature struct {
	id      string
	overlay overlay.Name
	record  overlay.Record
	style   overlay.Style
	bound   orb.Bound
	pad     float64
	popup   *Popup

	mu       sync.Mutex
	handlers map[overlay.PointerEvent][]func()
}

// ID returns the feature's handle id.
func (f *Feature) ID() string { return f.id }

// Overlay returns the overlay the feature was rendered for.
func (f *Feature) Overlay() overlay.Name { return f.overlay }

// Record returns the record behind the feature.
func (f *Feature) Record() overlay.Record { return f.record }

// Style returns the resolved style.
func (f *Feature) Style() overlay.Style { return f.style }

// On registers fn for ev.
func (f *Feature) On(ev overlay.PointerEvent, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[ev] = append(f.handlers[ev], fn)
}

// Popup returns the feature's popup.
func (f *Feature) Popup() overlay.Popup { return f.popup }

func (f *Feature) fire(ev overlay.PointerEvent) {
	f.mu.Lock()
	fns := append([]func(){}, f.handlers[ev]...)
	f.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Bounds implements rtreego.Spatial.
func (f *Feature) Bounds() rtreego.Rect {
	b := f.bound.Pad(f.pad)
	w := max(b.Max[0]-b.Min[0], minExtent)
	h := max(b.Max[1]-b.Min[1], minExtent)
	rect, _ := rtreego.NewRect(rtreego.Point{b.Min[0], b.Min[1]}, []float64{w, h})
	return rect
}

// hit reports whether pt falls on the feature. Areas use containment,
// markers and lines a distance tolerance of pad degrees.
func (f *Feature) hit(pt orb.Point) bool {
	switch g := f.record.Geometry.(type) {
	case orb.Polygon:
		return len(g) > 0 && len(g[0]) > 0 && planar.PolygonContains(g, pt)
	case orb.MultiPolygon:
		for _, p := range g {
			if len(p) > 0 && len(p[0]) > 0 && planar.PolygonContains(p, pt) {
				return true
			}
		}
		return false
	case orb.Point:
		return planar.Distance(g, pt) <= f.pad
	case orb.MultiPoint:
		for _, p := range g {
			if planar.Distance(p, pt) <= f.pad {
				return true
			}
		}
		return false
	default:
		return planar.DistanceFrom(g, pt) <= f.pad
	}
}
