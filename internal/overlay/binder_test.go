package overlay

import (
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func TestPopupContent_fixedOrder(t *testing.T) {
	rec := Record{
		Geometry: orb.Point{0, 0},
		Properties: geojson.Properties{
			"name": "Ridge A", "type": "basalt", "description": "desc", "source": "src",
		},
	}

	got := PopupContent(rec)
	want := "Ridge A\nType: basalt\nDescription: desc\nSource: src"
	if got != want {
		t.Fatalf("content=%q, want %q", got, want)
	}

	last := -1
	for _, v := range []string{"Ridge A", "basalt", "desc", "src"} {
		i := strings.Index(got, v)
		if i <= last {
			t.Fatalf("%q out of order in %q", v, got)
		}
		last = i
	}
}

func TestPopupContent_missingFieldsRenderEmpty(t *testing.T) {
	rec := Record{Geometry: orb.Point{0, 0}, Properties: geojson.Properties{"name": "Lonely", "type": 7}}

	got := PopupContent(rec)
	want := "Lonely\nType: \nDescription: \nSource: "
	if got != want {
		t.Fatalf("content=%q, want %q", got, want)
	}
}

func TestBind_hoverOpensAndClosesPopup(t *testing.T) {
	f := newFakeFeature()
	Bind(f, testRecord("Ridge A", "basalt"))

	if f.popup.IsOpen() {
		t.Fatal("popup open before hover")
	}
	f.fire(PointerEnter)
	if !f.popup.IsOpen() {
		t.Fatal("pointer-enter did not open popup")
	}
	first := f.popup.Content()

	f.fire(PointerLeave)
	if f.popup.IsOpen() {
		t.Fatal("pointer-leave did not close popup")
	}

	f.fire(PointerEnter)
	if !f.popup.IsOpen() || f.popup.Content() != first {
		t.Fatalf("reopened popup differs: open=%v content=%q", f.popup.IsOpen(), f.popup.Content())
	}
}

func TestBind_repeatedEnterLeaveIsIdempotent(t *testing.T) {
	f := newFakeFeature()
	Bind(f, testRecord("Ridge A", "basalt"))

	for range 5 {
		f.fire(PointerEnter)
		f.fire(PointerEnter)
		f.fire(PointerLeave)
	}
	if f.popup.IsOpen() {
		t.Fatal("popup left open after final leave")
	}
	if len(f.handlers[PointerEnter]) != 1 || len(f.handlers[PointerLeave]) != 1 {
		t.Fatalf("handlers registered more than once: %d enter, %d leave",
			len(f.handlers[PointerEnter]), len(f.handlers[PointerLeave]))
	}
}
