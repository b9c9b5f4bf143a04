// Package humastar serves Datastar SSE responses from Huma operations.
//
// Viewer handlers embed [Handler], stream fragment patches through [SSE],
// and read pointer coordinates posted as Datastar signals via [SignalsInput].
package humastar

import (
	"bytes"
	"encoding/json"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/paulmach/orb"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/joeblew999/plat-overlay/internal/templates"
)

// Handler is embedded by handlers that answer with rendered fragments.
type Handler struct {
	Renderer *templates.Renderer
}

// Stream wraps fn in a Huma streaming response.
func (h *Handler) Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(ctx huma.Context) {
			fn(NewSSE(ctx))
		},
	}
}

// Empty is the placeholder rendered in place of an empty list.
type Empty struct {
	Title   string
	Message string
}

// RenderEach renders tmpl once per item, or the empty-state fragment when
// there are no items. Items that fail to render are skipped.
func (h *Handler) RenderEach(tmpl string, items []any, empty Empty) string {
	var buf bytes.Buffer
	if len(items) == 0 {
		_ = h.Renderer.RenderToBuffer(&buf, "empty-state", empty)
		return buf.String()
	}
	for _, item := range items {
		_ = h.Renderer.RenderToBuffer(&buf, tmpl, item)
	}
	return buf.String()
}

// SSE writes Datastar events to a Huma stream.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE unwraps the Huma context into a Datastar event generator.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Patch replaces the children of selector with html.
func (s SSE) Patch(html, selector string) {
	s.PatchElements(html,
		datastar.WithSelector(selector),
		datastar.WithModeInner(),
		datastar.WithViewTransitions(),
	)
}

// Outcome sets the page's error and success signals. A nil err reports
// success and clears any previous error.
func (s SSE) Outcome(err error, success string) {
	if err != nil {
		s.MarshalAndPatchSignals(map[string]any{"error": err.Error(), "success": ""})
		return
	}
	s.MarshalAndPatchSignals(map[string]any{"error": "", "success": success})
}

// SignalsInput receives the Datastar signals a page posts as its body.
type SignalsInput struct {
	RawBody []byte
}

// Point reads the numeric lon and lat signals. A malformed body or a
// missing coordinate is a 400.
func (i *SignalsInput) Point() (orb.Point, error) {
	var signals map[string]any
	if err := json.Unmarshal(i.RawBody, &signals); err != nil {
		return orb.Point{}, huma.Error400BadRequest("invalid signals: " + err.Error())
	}
	lon, okLon := signals["lon"].(float64)
	lat, okLat := signals["lat"].(float64)
	if !okLon || !okLat {
		return orb.Point{}, huma.Error400BadRequest("lon and lat signals are required")
	}
	return orb.Point{lon, lat}, nil
}

// EmptyInput is the input of operations without parameters.
type EmptyInput struct{}
