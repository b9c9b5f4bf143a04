package overlay

import "strings"

// PointerEvent is a pointer interaction delivered to a rendered feature.
type PointerEvent int

const (
	PointerEnter PointerEvent = iota
	PointerLeave
)

func (e PointerEvent) String() string {
	if e == PointerEnter {
		return "enter"
	}
	return "leave"
}

// Popup is the open/close-able text popup attached to a rendered feature.
type Popup interface {
	SetContent(text string)
	Content() string
	Open()
	Close()
	IsOpen() bool
}

// Feature is a rendered feature handle produced by a Surface.
type Feature interface {
	On(ev PointerEvent, fn func())
	Popup() Popup
}

// PopupContent composes the popup body for a record: the name, then type,
// description and source, one per line.
func PopupContent(rec Record) string {
	return strings.Join([]string{
		rec.Name(),
		"Type: " + rec.Type(),
		"Description: " + rec.Description(),
		"Source: " + rec.Source(),
	}, "\n")
}

// Bind sets the feature's popup content and opens it while the pointer is
// over the feature. The handlers only touch the feature's own popup.
func Bind(f Feature, rec Record) {
	popup := f.Popup()
	popup.SetContent(PopupContent(rec))
	f.On(PointerEnter, popup.Open)
	f.On(PointerLeave, popup.Close)
}
