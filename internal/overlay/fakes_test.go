package overlay

import (
	"context"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type fakePopup struct {
	content string
	open    bool
	opens   int
}

func (p *fakePopup) SetContent(text string) { p.content = text }
func (p *fakePopup) Content() string        { return p.content }
func (p *fakePopup) Open()                  { p.open = true; p.opens++ }
func (p *fakePopup) Close()                 { p.open = false }
func (p *fakePopup) IsOpen() bool           { return p.open }

type fakeFeature struct {
	overlay  Name
	record   Record
	style    Style
	popup    *fakePopup
	handlers map[PointerEvent][]func()
}

func newFakeFeature() *fakeFeature {
	return &fakeFeature{popup: &fakePopup{}, handlers: make(map[PointerEvent][]func())}
}

func (f *fakeFeature) On(ev PointerEvent, fn func()) { f.handlers[ev] = append(f.handlers[ev], fn) }
func (f *fakeFeature) Popup() Popup                  { return f.popup }

func (f *fakeFeature) fire(ev PointerEvent) {
	for _, fn := range f.handlers[ev] {
		fn()
	}
}

type fakeSurface struct {
	mu       sync.Mutex
	rendered []*fakeFeature
	attached map[*Layer]bool
	attaches int
	detaches int
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{attached: make(map[*Layer]bool)}
}

func (s *fakeSurface) Render(name Name, rec Record, style Style) Feature {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := newFakeFeature()
	f.overlay, f.record, f.style = name, rec, style
	s.rendered = append(s.rendered, f)
	return f
}

func (s *fakeSurface) Attach(l *Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached[l] = true
	s.attaches++
}

func (s *fakeSurface) Detach(l *Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attached, l)
	s.detaches++
}

func (s *fakeSurface) HasAttached(l *Layer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached[l]
}

type fakeSource struct {
	mu      sync.Mutex
	calls   map[Name]int
	fetchFn func(ctx context.Context, name Name) ([]Record, error)
}

func newFakeSource(fn func(ctx context.Context, name Name) ([]Record, error)) *fakeSource {
	return &fakeSource{calls: make(map[Name]int), fetchFn: fn}
}

func (s *fakeSource) Fetch(ctx context.Context, name Name) ([]Record, error) {
	s.mu.Lock()
	s.calls[name]++
	s.mu.Unlock()
	return s.fetchFn(ctx, name)
}

func (s *fakeSource) count(name Name) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func testRecord(name, typ string) Record {
	return Record{
		Geometry: orb.Point{-16.9, 32.7},
		Properties: geojson.Properties{
			"name":        name,
			"type":        typ,
			"description": "desc",
			"source":      "src",
		},
	}
}

func fixedRecords(n int) func(context.Context, Name) ([]Record, error) {
	return func(context.Context, Name) ([]Record, error) {
		recs := make([]Record, n)
		for i := range recs {
			recs[i] = testRecord("Feature", "basalt")
		}
		return recs, nil
	}
}
