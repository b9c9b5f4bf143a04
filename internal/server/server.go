package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-overlay/internal/api"
	"github.com/joeblew999/plat-overlay/internal/api/viewer"
	"github.com/joeblew999/plat-overlay/internal/config"
	"github.com/joeblew999/plat-overlay/internal/db"
	"github.com/joeblew999/plat-overlay/internal/metrics"
	"github.com/joeblew999/plat-overlay/internal/overlay"
	"github.com/joeblew999/plat-overlay/internal/service"
	"github.com/joeblew999/plat-overlay/internal/surface"
	"github.com/joeblew999/plat-overlay/internal/templates"
)

// Config holds the server configuration.
type Config struct {
	Host      string
	Port      string
	DataDir   string
	WebDir    string // Optional web/ directory overriding the built-in viewer and fragments
	SourceURL string // Fetch overlays over HTTP from here instead of DataDir
	Catalog   *config.Config
	Logger    zerolog.Logger
}

// Server is the overlay HTTP server.
type Server struct {
	config   Config
	log      zerolog.Logger
	mux      *http.ServeMux
	handler  http.Handler
	humaAPI  huma.API
	db       *sql.DB
	archive  *db.Archive
	metrics  *metrics.Metrics
	services *api.Services
	renderer *templates.Renderer
}

// New creates a new overlay server. A database that fails to open disables
// the feature archive but not the server.
func New(cfg Config) *Server {
	if cfg.Catalog == nil {
		cfg.Catalog = config.DefaultConfig()
	}
	log := cfg.Logger
	mux := http.NewServeMux()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("plat-overlay API", "1.0.0")
	humaConfig.Info.Description = "Thematic map overlays: toggle geological, volcanic and mangrove layers and inspect their features."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	s := &Server{
		config:  cfg,
		log:     log,
		mux:     mux,
		humaAPI: humaAPI,
		metrics: metrics.New(),
	}

	resources := cfg.Catalog.Resources()
	files := overlay.NewFileSource(cfg.DataDir, resources)

	var src overlay.Source = files
	if cfg.SourceURL != "" {
		src = overlay.NewHTTPSource(cfg.SourceURL, resources, cfg.Catalog.FetchTimeout)
	}

	if cfg.Catalog.Archive {
		if err := s.openArchive(); err != nil {
			log.Warn().Err(err).Msg("feature archive disabled")
		} else {
			src = service.NewArchivingSource(src, s.archive, log)
		}
	}

	s.services = &api.Services{
		Overlay: service.NewOverlayService(service.OverlayConfig{
			Source:    src,
			Surface:   surface.New(cfg.Catalog.HitTolerance),
			Resources: resources,
			Recorder:  s.metrics,
			Logger:    log,
		}),
		Source: service.NewSourceService(files),
	}

	s.renderer = templates.New()
	if cfg.WebDir != "" {
		fragmentsDir := filepath.Join(cfg.WebDir, "templates", "fragments")
		if r, err := templates.NewFromDir(fragmentsDir); err == nil {
			s.renderer = r
			log.Info().Str("dir", fragmentsDir).Msg("loaded fragment templates")
		}
	}

	s.routes()
	s.handler = s.middleware(mux)
	return s
}

func (s *Server) openArchive() error {
	conn, err := db.Open(db.Config{DataDir: s.config.DataDir, DBName: "overlay"})
	if err != nil {
		return err
	}
	archive := db.NewArchive(conn)
	if err := archive.Init(context.Background()); err != nil {
		conn.Close()
		return err
	}
	s.db = conn
	s.archive = archive
	return nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// OpenAPI returns the API description.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Overlays returns the overlay service.
func (s *Server) Overlays() *service.OverlayService {
	return s.services.Overlay
}

// Bootstrap loads every overlay so the map starts with all of them visible.
func (s *Server) Bootstrap(ctx context.Context) error {
	return s.services.Overlay.Bootstrap(ctx)
}

// Close closes server resources.
func (s *Server) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	api.RegisterRoutes(s.humaAPI, s.services)
	api.NewInfoHandler(s.config.DataDir, s.sourceLabel(), s.archive != nil).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.archive).RegisterRoutes(s.humaAPI)

	// Viewer SSE routes using Huma + Datastar SDK
	viewer.NewHandler(s.services.Overlay, s.renderer).RegisterRoutes(s.humaAPI)

	s.mux.Handle("/metrics", s.metrics.Handler())

	if s.config.WebDir != "" {
		staticDir := filepath.Join(s.config.WebDir, "static")
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}

	// Page routes
	s.mux.HandleFunc("/viewer", s.handleViewer)
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) sourceLabel() string {
	if s.config.SourceURL != "" {
		return s.config.SourceURL
	}
	return s.config.DataDir
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return middleware.RequestID(middleware.Recoverer(s.accessLog(next)))
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		s.metrics.ObserveHTTPRequest(r.Method, routeLabel(r.URL.Path), status, elapsed)

		s.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", elapsed.Milliseconds()).
			Msg("http_request")
	})
}

// routeLabel collapses per-feature paths so metric label cardinality stays
// bounded.
func routeLabel(path string) string {
	const features = "/api/v1/map/features/"
	switch {
	case strings.HasPrefix(path, features):
		rest := strings.TrimPrefix(path, features)
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			return features + "{id}" + rest[i:]
		}
		return features + "{id}"
	case strings.HasPrefix(path, "/static/"):
		return "/static/"
	}
	return path
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "plat-overlay",
		"status":  "running",
	})
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	if s.config.WebDir != "" {
		templatePath := filepath.Join(s.config.WebDir, "templates", "viewer.html")
		if _, err := os.Stat(templatePath); err == nil {
			http.ServeFile(w, r, templatePath)
			return
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(templates.ViewerPage())
}
