package service

import (
	"context"
	"errors"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-overlay/internal/overlay"
	"github.com/joeblew999/plat-overlay/internal/surface"
)

// OverlayConfig holds the collaborators of an OverlayService.
type OverlayConfig struct {
	Source    overlay.Source
	Surface   *surface.Map
	Resources overlay.Resources
	Bus       *EventBus
	Recorder  overlay.Recorder
	Logger    zerolog.Logger
}

// OverlayService exposes overlay toggling and map interaction.
type OverlayService struct {
	manager   *overlay.Manager
	surface   *surface.Map
	resources overlay.Resources
	bus       *EventBus
	log       zerolog.Logger
}

// NewOverlayService wires a manager onto the surface. Every transition is
// published on the bus.
func NewOverlayService(cfg OverlayConfig) *OverlayService {
	s := &OverlayService{
		surface:   cfg.Surface,
		resources: cfg.Resources,
		bus:       cfg.Bus,
		log:       cfg.Logger,
	}
	if s.bus == nil {
		s.bus = NewEventBus()
	}

	opts := []overlay.Option{
		overlay.WithLogger(cfg.Logger),
		overlay.WithListener(s.publish),
	}
	if cfg.Recorder != nil {
		opts = append(opts, overlay.WithRecorder(cfg.Recorder))
	}
	s.manager = overlay.NewManager(cfg.Source, cfg.Surface, opts...)
	return s
}

// Bus returns the service's event bus.
func (s *OverlayService) Bus() *EventBus { return s.bus }

// Manager returns the underlying lifecycle manager.
func (s *OverlayService) Manager() *overlay.Manager { return s.manager }

// Toggle advances the overlay's state machine and returns its new status.
// A failed fetch returns the status together with the *overlay.FetchError.
func (s *OverlayService) Toggle(ctx context.Context, name overlay.Name) (OverlayStatus, error) {
	_, err := s.manager.Toggle(ctx, name)
	return s.Status(name), err
}

// Status returns the status of one overlay.
func (s *OverlayService) Status(name overlay.Name) OverlayStatus {
	st := s.manager.Status(name)
	out := OverlayStatus{
		Name:     string(name),
		Category: name.Category().String(),
		State:    st.State.String(),
		Visible:  st.State == overlay.StateVisible,
		Features: st.Features,
		Resource: s.resources.Path(name),
	}
	if st.Err != nil {
		out.Error = st.Err.Error()
	}
	return out
}

// List returns the status of every overlay in display order.
func (s *OverlayService) List() []OverlayStatus {
	names := overlay.Names()
	out := make([]OverlayStatus, len(names))
	for i, name := range names {
		out[i] = s.Status(name)
	}
	return out
}

// Bootstrap toggles every overlay once, concurrently, so all of them start
// visible. Fetch failures are logged and joined into the returned error;
// they never stop the other overlays from loading.
func (s *OverlayService) Bootstrap(ctx context.Context) error {
	names := overlay.Names()
	errs := make([]error, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.manager.Toggle(ctx, name); err != nil {
				errs[i] = err
			}
		}()
	}
	wg.Wait()

	err := errors.Join(errs...)
	if err != nil {
		s.log.Warn().Err(err).Msg("initial overlay load incomplete")
	} else {
		s.log.Info().Int("overlays", len(names)).Msg("initial overlay load complete")
	}
	return err
}

// Features returns the attached features as GeoJSON.
func (s *OverlayService) Features() *geojson.FeatureCollection {
	return s.surface.FeatureCollection()
}

// Pointer moves the map pointer and returns the open popups.
func (s *OverlayService) Pointer(lon, lat float64) []surface.PopupView {
	return s.surface.PointerMove(orb.Point{lon, lat})
}

// Enter hovers a feature by id. It reports false for unknown or hidden features.
func (s *OverlayService) Enter(id string) bool {
	return s.surface.Enter(id)
}

// Leave un-hovers a feature by id.
func (s *OverlayService) Leave(id string) bool {
	return s.surface.Leave(id)
}

// Popups returns the currently open popups.
func (s *OverlayService) Popups() []surface.PopupView {
	return s.surface.OpenPopups()
}

func (s *OverlayService) publish(t overlay.Transition) {
	ev := Event{
		Overlay:  string(t.Overlay),
		From:     t.From.String(),
		State:    t.To.String(),
		Features: t.Features,
	}
	if t.Err != nil {
		ev.Error = t.Err.Error()
	}
	s.bus.Publish(ev)
}
