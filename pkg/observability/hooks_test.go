package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	r := NoopRenderHooks{}
	r.OnGenerate(ctx, "Figure_1", "live", 3, time.Second, nil)
	r.OnExport(ctx, "Figure_1", "png", 1024, time.Second, nil)

	v := NoopViewerHooks{}
	v.OnLaunch(ctx, "run.gldb", nil)
	v.OnCommand(ctx, "rotate x 10", 2, time.Second, nil)
	v.OnClose(ctx, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "image")
	c.OnCacheMiss(ctx, "webgl")
	c.OnCacheSet(ctx, "image", 1024)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Render().(NoopRenderHooks); !ok {
		t.Error("Render() should return NoopRenderHooks by default")
	}
	if _, ok := Viewer().(NoopViewerHooks); !ok {
		t.Error("Viewer() should return NoopViewerHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}

	customRender := &testRenderHooks{}
	SetRenderHooks(customRender)
	if Render() != customRender {
		t.Error("SetRenderHooks should set custom hooks")
	}

	customViewer := &testViewerHooks{}
	SetViewerHooks(customViewer)
	if Viewer() != customViewer {
		t.Error("SetViewerHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	Reset()
	if _, ok := Render().(NoopRenderHooks); !ok {
		t.Error("Reset() should restore NoopRenderHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &testRenderHooks{}
	SetRenderHooks(custom)
	SetRenderHooks(nil)
	if Render() != custom {
		t.Error("SetRenderHooks(nil) should be ignored")
	}
}

func TestInstallPrometheusHooks(t *testing.T) {
	Reset()
	defer Reset()

	reg := prometheus.NewRegistry()
	p := NewPrometheusHooks(reg)
	Install(p)
	if Render() != RenderHooks(p) || Viewer() != ViewerHooks(p) || Cache() != CacheHooks(p) {
		t.Fatal("Install should register every category")
	}

	ctx := context.Background()
	Render().OnGenerate(ctx, "Figure_1", "live", 2, time.Millisecond, nil)
	Render().OnGenerate(ctx, "Figure_1", "view-only", 2, time.Millisecond, errors.New("boom"))
	Render().OnExport(ctx, "Figure_1", "png", 100, time.Millisecond, nil)
	Viewer().OnLaunch(ctx, "run.gldb", nil)
	Viewer().OnCommand(ctx, "reload", 2, time.Second, nil)
	Viewer().OnCommand(ctx, "quit", 1, 0, errors.New("refused"))
	Cache().OnCacheHit(ctx, "image")
	Cache().OnCacheMiss(ctx, "image")
	Cache().OnCacheSet(ctx, "image", 100)

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"live renders", p.Renders.WithLabelValues("live", "ok"), 1},
		{"failed reconciles", p.Renders.WithLabelValues("view-only", "error"), 1},
		{"png exports", p.Exports.WithLabelValues("png", "ok"), 1},
		{"png bytes", p.ExportBytes.WithLabelValues("png"), 100},
		{"launches", p.ViewerLaunches.WithLabelValues("ok"), 1},
		{"running", p.ViewersRunning, 1},
		{"commands ok", p.ViewerCommands.WithLabelValues("ok"), 1},
		{"commands failed", p.ViewerCommands.WithLabelValues("error"), 1},
		{"retries", p.ViewerRetries, 1},
		{"cache hits", p.CacheRequests.WithLabelValues("image", "hit"), 1},
		{"cache misses", p.CacheRequests.WithLabelValues("image", "miss"), 1},
		{"cache bytes", p.CacheWriteBytes.WithLabelValues("image"), 100},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(tt.c); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}

	Viewer().OnClose(ctx, nil)
	if got := testutil.ToFloat64(p.ViewersRunning); got != 0 {
		t.Errorf("running after close = %v, want 0", got)
	}
	if n, err := testutil.GatherAndCount(reg); err != nil || n == 0 {
		t.Errorf("GatherAndCount = %d, %v", n, err)
	}
}

// Test implementations
type testRenderHooks struct{ NoopRenderHooks }
type testViewerHooks struct{ NoopViewerHooks }
type testCacheHooks struct{ NoopCacheHooks }
