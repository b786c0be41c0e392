package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chronictectonic/underworld2/pkg/buildinfo"
	"github.com/chronictectonic/underworld2/pkg/drawing"
	"github.com/chronictectonic/underworld2/pkg/engine"
	"github.com/chronictectonic/underworld2/pkg/errors"
	"github.com/chronictectonic/underworld2/pkg/glucifer"
)

type fakeEngine struct {
	mu     sync.Mutex
	images []engine.ImageRequest
	fail   bool
}

func (e *fakeEngine) Image(_ context.Context, req engine.ImageRequest) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.images = append(e.images, req)
	if e.fail {
		return nil, errors.New(errors.ErrCodeEngineFailed, "crashed")
	}
	return []byte("png:" + req.Figure), nil
}

func (e *fakeEngine) WebGL(_ context.Context, req engine.ExportRequest) ([]byte, error) {
	if e.fail {
		return nil, errors.New(errors.ErrCodeEngineFailed, "crashed")
	}
	return []byte(`{"figure":"` + req.Figure + `"}`), nil
}

func (e *fakeEngine) Close() error { return nil }

// saveDatabase writes a database with two figures: Figure_1 shows "A",
// "velocity" shows "B" and hides "A".
func saveDatabase(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vis.gldb")
	s, err := glucifer.NewStore(ctx, path, glucifer.WithRank(0))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close(ctx)

	for _, fig := range []struct{ name, object string }{{"", "A"}, {"velocity", "B"}} {
		var opts []glucifer.FigureOption
		if fig.name != "" {
			opts = append(opts, glucifer.WithName(fig.name), glucifer.WithTitle("Velocity"))
		}
		f, err := glucifer.NewFigure(ctx, s, opts...)
		if err != nil {
			t.Fatal(err)
		}
		o, err := drawing.NewDrawing(drawing.WithName(fig.object))
		if err != nil {
			t.Fatal(err)
		}
		if err := f.Append(o); err != nil {
			t.Fatal(err)
		}
		if _, err := f.Generate(ctx); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func newTestServer(t *testing.T, eng *fakeEngine, opts ...Option) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	v, err := glucifer.NewViewer(ctx, saveDatabase(t), glucifer.WithRank(0), glucifer.WithEngine(eng))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = v.Close(ctx) })
	srv := httptest.NewServer(New(v, opts...))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path string) (int, http.Header, string) {
	t.Helper()
	resp, err := srv.Client().Get(srv.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, resp.Header, string(body)
}

func TestListFigures(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{})
	status, _, body := get(t, srv, "/figures")
	if status != http.StatusOK {
		t.Fatalf("status = %d: %s", status, body)
	}
	var got struct{ Figures []FigureSummary }
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Figures) != 2 {
		t.Fatalf("figures = %+v", got.Figures)
	}
	vel := got.Figures[1]
	if vel.Name != "velocity" || vel.Title != "Velocity" || vel.Hidden != 1 || len(vel.Objects) != 1 || vel.Objects[0] != "B" {
		t.Errorf("velocity = %+v", vel)
	}
}

func TestGetFigure(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{})
	tests := []struct {
		path   string
		status int
		want   string
	}{
		{"/figures/Figure_1", http.StatusOK, `"figure":"Figure_1"`},
		{"/figures/missing", http.StatusNotFound, `"error"`},
		{"/figures/missing/image", http.StatusNotFound, `no saved figure`},
		{"/figures/Figure_1/image?width=wide", http.StatusBadRequest, `width`},
		{"/figures/Figure_1/image?step=-1", http.StatusBadRequest, `step`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			status, _, body := get(t, srv, tt.path)
			if status != tt.status || !strings.Contains(body, tt.want) {
				t.Errorf("GET %s = %d %s, want %d containing %s", tt.path, status, body, tt.status, tt.want)
			}
		})
	}
}

func TestExports(t *testing.T) {
	eng := &fakeEngine{}
	srv := newTestServer(t, eng)

	status, hdr, body := get(t, srv, "/figures/velocity/image?width=100&height=50&step=0")
	if status != http.StatusOK || body != "png:velocity" || hdr.Get("Content-Type") != "image/png" {
		t.Errorf("image = %d %q %s", status, body, hdr.Get("Content-Type"))
	}
	if req := eng.images[0]; req.Width != 100 || req.Height != 50 {
		t.Errorf("size = %dx%d", req.Width, req.Height)
	}

	status, hdr, body = get(t, srv, "/figures/velocity/webgl")
	if status != http.StatusOK || body != `{"figure":"velocity"}` || hdr.Get("Content-Type") != "application/json" {
		t.Errorf("webgl = %d %q %s", status, body, hdr.Get("Content-Type"))
	}
}

func TestExportFailureIsUnavailable(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{fail: true})
	if status, _, body := get(t, srv, "/figures/Figure_1/image"); status != http.StatusServiceUnavailable {
		t.Errorf("status = %d: %s", status, body)
	}
}

func TestTimesteps(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{})
	status, _, body := get(t, srv, "/timesteps")
	if status != http.StatusOK || strings.TrimSpace(body) != `{"timesteps":[0]}` {
		t.Errorf("timesteps = %d %s", status, body)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "glucifer_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	srv := newTestServer(t, &fakeEngine{}, WithGatherer(reg))
	status, _, body := get(t, srv, "/metrics")
	if status != http.StatusOK || !strings.Contains(body, "glucifer_test_total 1") {
		t.Errorf("metrics = %d %s", status, body)
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	v, err := glucifer.NewViewer(ctx, saveDatabase(t), glucifer.WithRank(0))
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close(context.Background())

	done := make(chan error, 1)
	go func() { done <- New(v).ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()
	if err := <-done; err != nil {
		t.Errorf("ListenAndServe = %v", err)
	}
}

func TestVersion(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{})
	status, _, body := get(t, srv, "/version")
	if status != http.StatusOK || !strings.Contains(body, `"version":"`+buildinfo.Version+`"`) {
		t.Errorf("version = %d %s", status, body)
	}
}
