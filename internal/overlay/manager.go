package overlay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Surface is the map the manager renders onto. It produces feature handles
// and holds the set of attached layers.
type Surface interface {
	Render(name Name, rec Record, style Style) Feature
	Attach(l *Layer)
	Detach(l *Layer)
	HasAttached(l *Layer) bool
}

// Recorder receives fetch and transition measurements.
type Recorder interface {
	ObserveFetch(overlay string, ok bool, d time.Duration)
	IncTransition(overlay, state string)
}

// Transition describes one state change of an overlay.
type Transition struct {
	Overlay  Name
	From, To State
	Features int
	Err      error
}

// Status is a point-in-time view of one overlay.
type Status struct {
	Overlay  Name
	State    State
	Features int
	Err      error
}

// entry is the per-overlay state record.
type entry struct {
	state State
	err   error
}

// Manager owns per-overlay state and drives the toggle state machine.
type Manager struct {
	source   Source
	surface  Surface
	cache    *Cache
	log      zerolog.Logger
	recorder Recorder
	listener func(Transition)

	mu       sync.Mutex
	overlays map[Name]*entry
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// WithListener registers fn to be called after every state transition.
// fn runs outside the manager's lock.
func WithListener(fn func(Transition)) Option {
	return func(m *Manager) { m.listener = fn }
}

// WithCache replaces the manager's cache.
func WithCache(c *Cache) Option {
	return func(m *Manager) { m.cache = c }
}

// NewManager creates a manager that fetches from src and renders on surf.
func NewManager(src Source, surf Surface, opts ...Option) *Manager {
	m := &Manager{
		source:   src,
		surface:  surf,
		cache:    NewCache(),
		log:      zerolog.Nop(),
		overlays: make(map[Name]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Cache returns the manager's overlay cache.
func (m *Manager) Cache() *Cache { return m.cache }

// Toggle advances the overlay's state machine:
//
//   - unloaded: fetch, build, cache and attach the layer; blocks until the
//     fetch finishes and returns visible, or unloaded with a *FetchError
//   - loading:  no-op
//   - visible:  detach the cached layer
//   - hidden:   attach the cached layer
//
// The fetch is not cancelled when ctx is. An unknown name panics.
func (m *Manager) Toggle(ctx context.Context, name Name) (State, error) {
	name.describe()

	m.mu.Lock()
	e := m.entryLocked(name)
	from := e.state

	switch from {
	case StateLoading:
		m.mu.Unlock()
		m.log.Debug().Str("overlay", string(name)).Msg("toggle ignored while loading")
		return StateLoading, nil

	case StateVisible, StateHidden:
		layer, ok := m.cache.Get(name)
		if !ok {
			m.mu.Unlock()
			violate("%s overlay is %s without a cached layer", name, from)
		}
		if from == StateVisible {
			m.surface.Detach(layer)
			e.state = StateHidden
		} else {
			m.surface.Attach(layer)
			e.state = StateVisible
		}
		to := e.state
		m.mu.Unlock()

		m.emit(Transition{Overlay: name, From: from, To: to, Features: layer.Len()})
		return to, nil

	case StateUnloaded:
		e.state = StateLoading
		e.err = nil
		m.mu.Unlock()

		m.emit(Transition{Overlay: name, From: StateUnloaded, To: StateLoading})
		return m.load(ctx, name)

	default:
		m.mu.Unlock()
		violate("%s overlay in unknown state %d", name, int(from))
		return from, nil
	}
}

// load fetches and installs the overlay's layer. The entry is in
// StateLoading for the whole call, so no other goroutine touches it.
func (m *Manager) load(ctx context.Context, name Name) (State, error) {
	start := time.Now()
	records, err := m.source.Fetch(context.WithoutCancel(ctx), name)
	if m.recorder != nil {
		m.recorder.ObserveFetch(string(name), err == nil, time.Since(start))
	}

	if err != nil {
		var fe *FetchError
		if !errors.As(err, &fe) {
			err = &FetchError{Overlay: name, Err: err}
		}

		m.mu.Lock()
		e := m.overlays[name]
		e.state = StateUnloaded
		e.err = err
		m.mu.Unlock()

		m.log.Warn().Err(err).Str("overlay", string(name)).Msg("overlay fetch failed")
		m.emit(Transition{Overlay: name, From: StateLoading, To: StateUnloaded, Err: err})
		return StateUnloaded, err
	}

	layer := m.build(name, records)

	m.mu.Lock()
	m.cache.Put(name, layer)
	m.surface.Attach(layer)
	m.overlays[name].state = StateVisible
	m.mu.Unlock()

	m.log.Info().
		Str("overlay", string(name)).
		Int("features", layer.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("overlay loaded")
	m.emit(Transition{Overlay: name, From: StateLoading, To: StateVisible, Features: layer.Len()})
	return StateVisible, nil
}

// build styles, renders and binds every record into a new layer.
func (m *Manager) build(name Name, records []Record) *Layer {
	category := name.Category()
	features := make([]Feature, len(records))
	for i, rec := range records {
		f := m.surface.Render(name, rec, ResolveStyle(category, rec))
		Bind(f, rec)
		features[i] = f
	}
	return &Layer{name: name, features: features, records: records}
}

// State returns the overlay's current state. Overlays never toggled are unloaded.
func (m *Manager) State(name Name) State {
	return m.Status(name).State
}

// Status returns the overlay's state, feature count and last fetch error.
func (m *Manager) Status(name Name) Status {
	name.describe()

	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{Overlay: name}
	if e, ok := m.overlays[name]; ok {
		st.State = e.state
		st.Err = e.err
	}
	if l, ok := m.cache.Get(name); ok {
		st.Features = l.Len()
	}
	return st
}

func (m *Manager) entryLocked(name Name) *entry {
	e, ok := m.overlays[name]
	if !ok {
		e = &entry{state: StateUnloaded}
		m.overlays[name] = e
	}
	return e
}

func (m *Manager) emit(t Transition) {
	m.log.Debug().
		Str("overlay", string(t.Overlay)).
		Str("from", t.From.String()).
		Str("to", t.To.String()).
		Msg("overlay transition")
	if m.recorder != nil {
		m.recorder.IncTransition(string(t.Overlay), t.To.String())
	}
	if m.listener != nil {
		m.listener(t)
	}
}
