// Package viewer contains Datastar SSE handlers for the map viewer UI.
package viewer

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-overlay/internal/humastar"
	"github.com/joeblew999/plat-overlay/internal/overlay"
	"github.com/joeblew999/plat-overlay/internal/service"
	"github.com/joeblew999/plat-overlay/internal/surface"
	"github.com/joeblew999/plat-overlay/internal/templates"
)

// Element ids the viewer page patches.
const (
	panelSelector  = "#overlay-panel"
	popupsSelector = "#popups"
)

// Handler serves the viewer's overlay panel and hover popups.
type Handler struct {
	humastar.Handler
	overlays *service.OverlayService
}

// NewHandler creates a new viewer handler.
func NewHandler(overlays *service.OverlayService, renderer *templates.Renderer) *Handler {
	return &Handler{
		Handler:  humastar.Handler{Renderer: renderer},
		overlays: overlays,
	}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/viewer/overlays", h.Panel, huma.OperationTags("viewer"))
	huma.Post(api, "/api/v1/viewer/overlays/{name}/toggle", h.Toggle, huma.OperationTags("viewer"))
	huma.Post(api, "/api/v1/viewer/pointer", h.Pointer, huma.OperationTags("viewer"))
	huma.Get(api, "/api/v1/viewer/events", h.Events, huma.OperationTags("viewer"))
}

// NameInput selects one overlay.
type NameInput struct {
	Name string `path:"name" enum:"geological,volcanic,mangrove" doc:"Overlay name"`
}

func (h *Handler) Panel(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		sse.Patch(h.renderPanel(), panelSelector)
	}), nil
}

// Toggle runs the overlay's next transition, then refreshes the panel and
// popups. A failed fetch is reported through the error signal.
func (h *Handler) Toggle(ctx context.Context, input *NameInput) (*huma.StreamResponse, error) {
	name, err := overlay.ParseName(input.Name)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}

	return h.Stream(func(sse humastar.SSE) {
		st, err := h.overlays.Toggle(ctx, name)

		sse.Patch(h.renderPanel(), panelSelector)
		sse.Patch(h.renderPopups(h.overlays.Popups()), popupsSelector)

		sse.Outcome(err, fmt.Sprintf("%s overlay %s", name, st.State))
		sse.DispatchCustomEvent("overlay-changed", map[string]any{
			"overlay": st.Name, "state": st.State, "features": st.Features,
		})
	}), nil
}

// Pointer moves the map pointer to the lon/lat signals and patches the
// open popups.
func (h *Handler) Pointer(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	pt, err := input.Point()
	if err != nil {
		return nil, err
	}

	return h.Stream(func(sse humastar.SSE) {
		popups := h.overlays.Pointer(pt.Lon(), pt.Lat())
		sse.Patch(h.renderPopups(popups), popupsSelector)
		sse.MarshalAndPatchSignals(map[string]any{"popupCount": len(popups)})
	}), nil
}

// Events streams overlay state changes until the client disconnects.
func (h *Handler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		bus := h.overlays.Bus()
		ch := bus.Subscribe()
		defer bus.Unsubscribe(ch)

		sse.Patch(h.renderPanel(), panelSelector)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				sse.Patch(h.renderPanel(), panelSelector)
				sse.DispatchCustomEvent("overlay-changed", map[string]any{
					"overlay":  ev.Overlay,
					"from":     ev.From,
					"state":    ev.State,
					"features": ev.Features,
					"error":    ev.Error,
				})
			}
		}
	}), nil
}

func (h *Handler) renderPanel() string {
	items := make([]any, 0, 3)
	for _, st := range h.overlays.List() {
		items = append(items, st)
	}
	return h.RenderEach("overlay-button", items, humastar.Empty{Title: "No overlays"})
}

func (h *Handler) renderPopups(popups []surface.PopupView) string {
	items := make([]any, len(popups))
	for i, p := range popups {
		items[i] = p
	}
	return h.RenderEach("popup", items, humastar.Empty{
		Title:   "No feature here",
		Message: "Move the pointer over a highlighted area.",
	})
}
