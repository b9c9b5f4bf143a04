package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joeblew999/plat-overlay/internal/config"
	"github.com/joeblew999/plat-overlay/internal/logging"
	"github.com/joeblew999/plat-overlay/internal/overlay"
)

const volcanoes = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-17.83, 28.57]},
     "properties": {"name": "Cumbre Vieja", "type": "stratovolcano", "description": "2021 eruption", "source": "IGN"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-16.64, 28.27]},
     "properties": {"name": "Teide", "type": "stratovolcano", "description": "Highest peak in Spain", "source": "IGN"}}
  ]
}`

func newTestServer(t *testing.T, logs io.Writer) *Server {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, filepath.FromSlash(overlay.Volcanic.Resource()))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(volcanoes), 0644); err != nil {
		t.Fatal(err)
	}

	catalog := config.DefaultConfig()
	catalog.Archive = false
	srv := New(Config{
		Host:    "localhost",
		Port:    "0",
		DataDir: dir,
		Catalog: catalog,
		Logger:  logging.NewWriter(logs, "info"),
	})
	t.Cleanup(func() { srv.Close() })
	return srv
}

func get(t *testing.T, ts *httptest.Server, path string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func TestBootstrap_partialLoad(t *testing.T) {
	srv := newTestServer(t, io.Discard)

	err := srv.Bootstrap(context.Background())
	if err == nil {
		t.Fatal("expected errors for missing geological and mangrove files")
	}

	statuses := map[string]string{}
	for _, st := range srv.Overlays().List() {
		statuses[st.Name] = st.State
	}
	want := map[string]string{"geological": "unloaded", "volcanic": "visible", "mangrove": "unloaded"}
	for name, state := range want {
		if statuses[name] != state {
			t.Fatalf("%s=%s, want %s", name, statuses[name], state)
		}
	}
}

func TestServer_endToEnd(t *testing.T) {
	var logs bytes.Buffer
	srv := newTestServer(t, &logs)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/v1/overlays/volcanic/toggle", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("toggle status=%d", resp.StatusCode)
	}
	if links := resp.Header.Values("Link"); len(links) == 0 {
		t.Fatal("expected Link headers")
	}

	resp, body := get(t, ts, "/api/v1/map/features")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("features status=%d", resp.StatusCode)
	}
	var fc struct {
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal([]byte(body), &fc); err != nil {
		t.Fatal(err)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("features=%d, want 2", len(fc.Features))
	}
	style, _ := fc.Features[0].Properties["style"].(map[string]any)
	if style["fillColor"] != "#FF4500" {
		t.Fatalf("style=%v", style)
	}

	_, metricsBody := get(t, ts, "/metrics")
	for _, want := range []string{
		`overlay_fetches_total{overlay="volcanic",result="ok"} 1`,
		`overlay_transitions_total{overlay="volcanic",state="visible"} 1`,
		`overlay_http_requests_total{method="POST",path="/api/v1/overlays/volcanic/toggle",status="200"} 1`,
	} {
		if !strings.Contains(metricsBody, want) {
			t.Fatalf("metrics missing %s:\n%s", want, metricsBody)
		}
	}

	if !strings.Contains(logs.String(), `"message":"http_request"`) {
		t.Fatalf("no access log: %s", logs.String())
	}
}

func TestServer_viewerPage(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t, io.Discard))
	defer ts.Close()

	resp, body := get(t, ts, "/viewer")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `id="overlay-panel"`) {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
	if resp, _ := get(t, ts, "/nope"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", resp.StatusCode)
	}
}

func TestServer_archive(t *testing.T) {
	srv := newTestServer(t, io.Discard)
	srv.Close()

	catalog := config.DefaultConfig()
	srv = New(Config{DataDir: srv.config.DataDir, Catalog: catalog, Logger: logging.NewWriter(io.Discard, "info")})
	defer srv.Close()
	if srv.archive == nil {
		t.Fatal("archive not opened")
	}

	if _, err := srv.Overlays().Toggle(context.Background(), overlay.Volcanic); err != nil {
		t.Fatal(err)
	}
	n, err := srv.archive.Count(context.Background(), overlay.Volcanic)
	if err != nil || n != 2 {
		t.Fatalf("archived=%d err=%v, want 2", n, err)
	}
}

func TestOpenAPI(t *testing.T) {
	spec := newTestServer(t, io.Discard).OpenAPI()
	for _, path := range []string{
		"/api/v1/overlays/{name}/toggle",
		"/api/v1/map/pointer",
		"/api/v1/viewer/events",
		"/api/v1/query",
	} {
		if _, ok := spec.Paths[path]; !ok {
			t.Fatalf("missing path %s", path)
		}
	}
}

func TestRouteLabel(t *testing.T) {
	cases := map[string]string{
		"/api/v1/map/features":           "/api/v1/map/features",
		"/api/v1/map/features/abc/enter": "/api/v1/map/features/{id}/enter",
		"/api/v1/map/features/abc":       "/api/v1/map/features/{id}",
		"/static/css/app.css":            "/static/",
		"/api/v1/overlays/volcanic":      "/api/v1/overlays/volcanic",
	}
	for in, want := range cases {
		if got := routeLabel(in); got != want {
			t.Fatalf("routeLabel(%q)=%q, want %q", in, got, want)
		}
	}
}
