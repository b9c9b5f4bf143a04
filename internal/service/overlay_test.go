package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-overlay/internal/overlay"
	"github.com/joeblew999/plat-overlay/internal/surface"
)

type fakeSource struct {
	fetchFn func(ctx context.Context, name overlay.Name) ([]overlay.Record, error)
}

func (f *fakeSource) Fetch(ctx context.Context, name overlay.Name) ([]overlay.Record, error) {
	return f.fetchFn(ctx, name)
}

func points(n int) []overlay.Record {
	recs := make([]overlay.Record, n)
	for i := range recs {
		recs[i] = overlay.Record{
			Geometry: orb.Point{float64(i), float64(i)},
			Properties: geojson.Properties{
				"name": "P", "type": "t", "description": "d", "source": "s",
			},
		}
	}
	return recs
}

func newService(src overlay.Source) *OverlayService {
	return NewOverlayService(OverlayConfig{
		Source:    src,
		Surface:   surface.New(0.1),
		Resources: overlay.DefaultResources(),
		Logger:    zerolog.Nop(),
	})
}

func TestBootstrap_loadsEveryOverlay(t *testing.T) {
	svc := newService(&fakeSource{fetchFn: func(context.Context, overlay.Name) ([]overlay.Record, error) {
		return points(2), nil
	}})

	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, st := range svc.List() {
		if st.State != "visible" || !st.Visible || st.Features != 2 {
			t.Fatalf("status=%+v", st)
		}
	}
	if got := len(svc.Features().Features); got != 6 {
		t.Fatalf("attached features=%d, want 6", got)
	}
}

func TestBootstrap_partialFailure(t *testing.T) {
	svc := newService(&fakeSource{fetchFn: func(_ context.Context, n overlay.Name) ([]overlay.Record, error) {
		if n == overlay.Mangrove {
			return nil, &overlay.FetchError{Overlay: n, Err: errors.New("refused")}
		}
		return points(1), nil
	}})

	err := svc.Bootstrap(context.Background())
	var fe *overlay.FetchError
	if !errors.As(err, &fe) || fe.Overlay != overlay.Mangrove {
		t.Fatalf("expected mangrove fetch error, got %v", err)
	}

	mangrove := svc.Status(overlay.Mangrove)
	if mangrove.State != "unloaded" || !strings.Contains(mangrove.Error, "refused") {
		t.Fatalf("mangrove=%+v", mangrove)
	}
	if svc.Status(overlay.Volcanic).State != "visible" {
		t.Fatal("volcanic should still load")
	}
}

func TestToggle_publishesEvents(t *testing.T) {
	svc := newService(&fakeSource{fetchFn: func(context.Context, overlay.Name) ([]overlay.Record, error) {
		return points(3), nil
	}})
	ch := svc.Bus().Subscribe()
	defer svc.Bus().Unsubscribe(ch)

	st, err := svc.Toggle(context.Background(), overlay.Volcanic)
	if err != nil {
		t.Fatal(err)
	}
	if st.State != "visible" || st.Features != 3 {
		t.Fatalf("status=%+v", st)
	}

	var states []string
	timeout := time.After(time.Second)
	for len(states) < 2 {
		select {
		case ev := <-ch:
			states = append(states, ev.State)
		case <-timeout:
			t.Fatalf("events=%v", states)
		}
	}
	if states[0] != "loading" || states[1] != "visible" {
		t.Fatalf("events=%v, want [loading visible]", states)
	}
}

func TestPointer_opensPopup(t *testing.T) {
	svc := newService(&fakeSource{fetchFn: func(context.Context, overlay.Name) ([]overlay.Record, error) {
		return points(1), nil
	}})
	if _, err := svc.Toggle(context.Background(), overlay.Volcanic); err != nil {
		t.Fatal(err)
	}

	popups := svc.Pointer(0, 0)
	if len(popups) != 1 {
		t.Fatalf("popups=%d, want 1", len(popups))
	}
	if want := "P\nType: t\nDescription: d\nSource: s"; popups[0].Content != want {
		t.Fatalf("content=%q, want %q", popups[0].Content, want)
	}
	if !svc.Leave(popups[0].FeatureID) || len(svc.Popups()) != 0 {
		t.Fatal("leave did not close popup")
	}
}

type fakeArchiver struct {
	mu     sync.Mutex
	stored map[overlay.Name]int
	err    error
}

func (a *fakeArchiver) Store(_ context.Context, name overlay.Name, recs []overlay.Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stored[name] = len(recs)
	return a.err
}

func TestArchivingSource(t *testing.T) {
	arch := &fakeArchiver{stored: map[overlay.Name]int{}, err: errors.New("disk full")}
	src := NewArchivingSource(&fakeSource{fetchFn: func(_ context.Context, n overlay.Name) ([]overlay.Record, error) {
		if n == overlay.Geological {
			return nil, errors.New("boom")
		}
		return points(4), nil
	}}, arch, zerolog.Nop())

	recs, err := src.Fetch(context.Background(), overlay.Volcanic)
	if err != nil {
		t.Fatalf("archive error leaked into fetch: %v", err)
	}
	if len(recs) != 4 || arch.stored[overlay.Volcanic] != 4 {
		t.Fatalf("records=%d archived=%d", len(recs), arch.stored[overlay.Volcanic])
	}

	if _, err := src.Fetch(context.Background(), overlay.Geological); err == nil {
		t.Fatal("expected fetch error")
	}
	if _, ok := arch.stored[overlay.Geological]; ok {
		t.Fatal("failed fetch was archived")
	}
}

func TestSourceService_list(t *testing.T) {
	dir := t.TempDir()
	files := overlay.NewFileSource(dir, overlay.DefaultResources())
	path := files.Path(overlay.Geological)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, 2048), 0644); err != nil {
		t.Fatal(err)
	}

	list, err := NewSourceService(files).List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("entries=%d, want 3", len(list))
	}
	if !list[0].Exists || list[0].Size != "2.0 KB" {
		t.Fatalf("geological=%+v", list[0])
	}
	if list[1].Exists || list[2].Exists {
		t.Fatalf("unexpected files: %+v", list[1:])
	}
}
