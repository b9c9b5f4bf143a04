package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPopupMarkup(t *testing.T) {
	r := New()

	got, err := r.Render("popup", map[string]string{
		"FeatureID": "f1",
		"Overlay":   "geological",
		"Content":   "Ridge A\nType: basalt\nDescription: d\nSource: s",
	})
	if err != nil {
		t.Fatal(err)
	}
	want := `<b>Ridge A</b><br>Type: basalt<br>Description: d<br>Source: s</div>`
	if !strings.Contains(got, want) {
		t.Fatalf("popup=%q, want it to contain %q", got, want)
	}
}

func render(t *testing.T, r *Renderer, name string, data any) string {
	t.Helper()
	got, err := r.Render(name, data)
	if err != nil {
		t.Fatal(err)
	}
	return got
}

func TestPopupEscapesContent(t *testing.T) {
	got := render(t, New(), "popup", map[string]string{
		"FeatureID": "f1", "Overlay": "volcanic", "Content": "<script>x</script>",
	})
	if strings.Contains(got, "<script>") {
		t.Fatalf("content not escaped: %q", got)
	}
}

func TestOverlayButton(t *testing.T) {
	got := render(t, New(), "overlay-button", map[string]any{
		"Name": "mangrove", "State": "loading", "Features": 0, "Error": "",
	})
	for _, want := range []string{`id="overlay-mangrove"`, "state-loading", "disabled", "/api/v1/viewer/overlays/mangrove/toggle"} {
		if !strings.Contains(got, want) {
			t.Fatalf("button=%q, missing %q", got, want)
		}
	}
}

func TestNewFromDir(t *testing.T) {
	dir := t.TempDir()
	body := `{{define "popup"}}{{range lines .}}[{{.}}]{{end}}{{end}}`
	if err := os.WriteFile(filepath.Join(dir, "popup.html"), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	r, err := NewFromDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got := render(t, r, "popup", "Ridge A\nType: basalt"); got != "[Ridge A][Type: basalt]" {
		t.Fatalf("got %q", got)
	}
	if _, err := r.Render("overlay-button", nil); err == nil {
		t.Fatal("embedded fragment leaked into directory renderer")
	}
}

func TestNewFromDir_missing(t *testing.T) {
	if _, err := NewFromDir(filepath.Join(t.TempDir(), "none")); err == nil {
		t.Fatal("expected error for empty fragment dir")
	}
}
