package overlay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxPayload bounds how much of a feature file a source will read.
const maxPayload = 64 << 20

// Source fetches the records of one overlay.
type Source interface {
	Fetch(ctx context.Context, name Name) ([]Record, error)
}

// FetchError reports a failed fetch: either the resource could not be read
// (Malformed is false) or its payload was not a valid feature collection.
type FetchError struct {
	Overlay   Name
	Resource  string
	Malformed bool
	Err       error
}

func (e *FetchError) Error() string {
	kind := "transport"
	if e.Malformed {
		kind = "malformed payload"
	}
	if e.Resource == "" {
		return fmt.Sprintf("fetching %s overlay: %s: %v", e.Overlay, kind, e.Err)
	}
	return fmt.Sprintf("fetching %s overlay from %s: %s: %v", e.Overlay, e.Resource, kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Resources maps overlays to resource paths. Missing entries fall back to
// the overlay's default resource.
type Resources map[Name]string

// DefaultResources returns the built-in resource path of every overlay.
func DefaultResources() Resources {
	res := make(Resources, len(catalog))
	for n, d := range catalog {
		res[n] = d.resource
	}
	return res
}

// Path returns the resource path for name.
func (r Resources) Path(name Name) string {
	if p, ok := r[name]; ok && p != "" {
		return p
	}
	return name.Resource()
}

// FileSource reads feature files from a local directory.
type FileSource struct {
	root      string
	resources Resources
}

// NewFileSource creates a source rooted at dir.
func NewFileSource(dir string, resources Resources) *FileSource {
	return &FileSource{root: dir, resources: resources}
}

// Fetch reads and decodes the overlay's feature file.
func (s *FileSource) Fetch(ctx context.Context, name Name) ([]Record, error) {
	path := filepath.Join(s.root, filepath.FromSlash(s.resources.Path(name)))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FetchError{Overlay: name, Resource: path, Err: err}
	}
	records, err := DecodeRecords(data)
	if err != nil {
		return nil, &FetchError{Overlay: name, Resource: path, Malformed: true, Err: err}
	}
	return records, nil
}

// Path returns the absolute-or-relative file path the source reads for name.
func (s *FileSource) Path(name Name) string {
	return filepath.Join(s.root, filepath.FromSlash(s.resources.Path(name)))
}

// HTTPSource fetches feature files relative to a base URL.
type HTTPSource struct {
	baseURL   string
	resources Resources
	client    *http.Client
	limit     int64
}

// NewHTTPSource creates a source that GETs resources under baseURL.
func NewHTTPSource(baseURL string, resources Resources, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL:   strings.TrimRight(baseURL, "/"),
		resources: resources,
		client:    &http.Client{Timeout: timeout},
		limit:     maxPayload,
	}
}

// URL returns the resource URL fetched for name.
func (s *HTTPSource) URL(name Name) string {
	return s.baseURL + "/" + strings.TrimLeft(s.resources.Path(name), "/")
}

// Fetch downloads and decodes the overlay's feature file.
func (s *HTTPSource) Fetch(ctx context.Context, name Name) ([]Record, error) {
	url := s.URL(name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Overlay: name, Resource: url, Err: err}
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{Overlay: name, Resource: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, &FetchError{Overlay: name, Resource: url, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.limit+1))
	if err != nil {
		return nil, &FetchError{Overlay: name, Resource: url, Err: fmt.Errorf("reading body: %w", err)}
	}
	if int64(len(data)) > s.limit {
		return nil, &FetchError{Overlay: name, Resource: url, Malformed: true, Err: fmt.Errorf("payload exceeds %d bytes", s.limit)}
	}
	records, err := DecodeRecords(data)
	if err != nil {
		return nil, &FetchError{Overlay: name, Resource: url, Malformed: true, Err: err}
	}
	return records, nil
}
