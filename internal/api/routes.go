// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-overlay/internal/overlay"
	"github.com/joeblew999/plat-overlay/internal/service"
	"github.com/joeblew999/plat-overlay/internal/surface"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Overlay *service.OverlayService
	Source  *service.SourceService
}

// RegisterRoutes registers every REST handler on api.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewAPIHandler(svc))
}

// Types

type NameInput struct {
	Name string `path:"name" enum:"geological,volcanic,mangrove" doc:"Overlay name" example:"volcanic"`
}

type FeatureIDInput struct {
	ID string `path:"id" doc:"Rendered feature handle id"`
}

type OverlayOutput struct {
	Body service.OverlayStatus
}

type OverlaysOutput struct {
	Body []service.OverlayStatus
}

type FeaturesOutput struct {
	ContentType string `header:"Content-Type"`
	Body        *geojson.FeatureCollection
}

type PointerBody struct {
	Lon float64 `json:"lon" minimum:"-180" maximum:"180" doc:"Pointer longitude" example:"-17.8"`
	Lat float64 `json:"lat" minimum:"-90" maximum:"90" doc:"Pointer latitude" example:"28.6"`
}

type PopupsOutput struct {
	Body []surface.PopupView
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterOverlays registers overlay status and toggle routes.
func (h *APIHandler) RegisterOverlays(api huma.API) {
	huma.Get(api, "/api/v1/overlays", h.GetOverlays, huma.OperationTags("overlays"))
	huma.Get(api, "/api/v1/overlays/{name}", h.GetOverlay, huma.OperationTags("overlays"))
	huma.Post(api, "/api/v1/overlays/{name}/toggle", h.ToggleOverlay, huma.OperationTags("overlays"))
}

// RegisterMap registers map feature and pointer routes.
func (h *APIHandler) RegisterMap(api huma.API) {
	huma.Get(api, "/api/v1/map/features", h.GetFeatures, huma.OperationTags("map"))
	huma.Get(api, "/api/v1/map/popups", h.GetPopups, huma.OperationTags("map"))
	huma.Post(api, "/api/v1/map/pointer", h.MovePointer, huma.OperationTags("map"))
	huma.Post(api, "/api/v1/map/features/{id}/enter", h.EnterFeature, huma.OperationTags("map"))
	huma.Post(api, "/api/v1/map/features/{id}/leave", h.LeaveFeature, huma.OperationTags("map"))
}

// RegisterSources registers source listing routes.
func (h *APIHandler) RegisterSources(api huma.API) {
	huma.Get(api, "/api/v1/sources", h.GetSources, huma.OperationTags("sources"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) overlays() (*service.OverlayService, error) {
	if h.svc == nil || h.svc.Overlay == nil {
		return nil, huma.Error503ServiceUnavailable("service not available")
	}
	return h.svc.Overlay, nil
}

func (h *APIHandler) GetOverlays(ctx context.Context, input *struct{}) (*OverlaysOutput, error) {
	svc, err := h.overlays()
	if err != nil {
		return nil, err
	}
	return &OverlaysOutput{Body: svc.List()}, nil
}

func (h *APIHandler) GetOverlay(ctx context.Context, input *NameInput) (*OverlayOutput, error) {
	svc, err := h.overlays()
	if err != nil {
		return nil, err
	}
	name, err := overlay.ParseName(input.Name)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	return &OverlayOutput{Body: svc.Status(name)}, nil
}

// ToggleOverlay is the user-facing toggle. It blocks while this request
// loads the overlay; a request arriving during someone else's load returns
// the loading status immediately.
func (h *APIHandler) ToggleOverlay(ctx context.Context, input *NameInput) (*OverlayOutput, error) {
	svc, err := h.overlays()
	if err != nil {
		return nil, err
	}
	name, err := overlay.ParseName(input.Name)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}

	st, err := svc.Toggle(ctx, name)
	if err != nil {
		var fe *overlay.FetchError
		if errors.As(err, &fe) {
			return nil, huma.Error502BadGateway(fe.Error())
		}
		return nil, huma.Error500InternalServerError("toggle failed", err)
	}
	return &OverlayOutput{Body: st}, nil
}

func (h *APIHandler) GetFeatures(ctx context.Context, input *struct{}) (*FeaturesOutput, error) {
	svc, err := h.overlays()
	if err != nil {
		return nil, err
	}
	return &FeaturesOutput{ContentType: "application/geo+json", Body: svc.Features()}, nil
}

func (h *APIHandler) GetPopups(ctx context.Context, input *struct{}) (*PopupsOutput, error) {
	svc, err := h.overlays()
	if err != nil {
		return nil, err
	}
	return &PopupsOutput{Body: svc.Popups()}, nil
}

func (h *APIHandler) MovePointer(ctx context.Context, input *struct{ Body PointerBody }) (*PopupsOutput, error) {
	svc, err := h.overlays()
	if err != nil {
		return nil, err
	}
	return &PopupsOutput{Body: svc.Pointer(input.Body.Lon, input.Body.Lat)}, nil
}

func (h *APIHandler) EnterFeature(ctx context.Context, input *FeatureIDInput) (*PopupsOutput, error) {
	svc, err := h.overlays()
	if err != nil {
		return nil, err
	}
	if !svc.Enter(input.ID) {
		return nil, huma.Error404NotFound("feature not found or not visible")
	}
	return &PopupsOutput{Body: svc.Popups()}, nil
}

func (h *APIHandler) LeaveFeature(ctx context.Context, input *FeatureIDInput) (*PopupsOutput, error) {
	svc, err := h.overlays()
	if err != nil {
		return nil, err
	}
	if !svc.Leave(input.ID) {
		return nil, huma.Error404NotFound("feature not found")
	}
	return &PopupsOutput{Body: svc.Popups()}, nil
}

func (h *APIHandler) GetSources(ctx context.Context, input *struct{}) (*struct{ Body []service.SourceFile }, error) {
	if h.svc == nil || h.svc.Source == nil {
		return &struct{ Body []service.SourceFile }{Body: []service.SourceFile{}}, nil
	}
	sources, err := h.svc.Source.List()
	if err != nil {
		return nil, huma.Error500InternalServerError("listing sources failed", err)
	}
	return &struct{ Body []service.SourceFile }{Body: sources}, nil
}
