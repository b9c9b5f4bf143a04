// Package templates handles HTML template rendering for Datastar SSE responses.
package templates

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"path/filepath"
	"strings"
)

//go:embed fragments/*.html
var embedded embed.FS

// funcMap holds the helpers fragments may call.
var funcMap = template.FuncMap{
	// lines splits popup content into its label lines
	"lines": func(s string) []string {
		if s == "" {
			return nil
		}
		return strings.Split(s, "\n")
	},
}

// Renderer manages HTML fragment templates.
// A Renderer is safe for concurrent use.
type Renderer struct {
	templates *template.Template
}

// New creates a renderer from the fragments compiled into the binary.
func New() *Renderer {
	return &Renderer{templates: parseFS(embedded, "fragments/*.html")}
}

// NewFromDir creates a renderer from fragmentsDir, typically
// web/templates/fragments/, so fragments can be edited without a rebuild.
func NewFromDir(fragmentsDir string) (*Renderer, error) {
	tmpl, err := parseDir(fragmentsDir)
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

func parseFS(fsys fs.FS, pattern string) *template.Template {
	return template.Must(template.New("").Funcs(funcMap).ParseFS(fsys, pattern))
}

func parseDir(dir string) (*template.Template, error) {
	return template.New("").Funcs(funcMap).ParseGlob(filepath.Join(dir, "*.html"))
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer renders a named template to a buffer.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	return r.templates.ExecuteTemplate(buf, name, data)
}

//go:embed viewer.html
var viewerPage []byte

// ViewerPage returns the built-in viewer page.
func ViewerPage() []byte { return viewerPage }
