// Package observability provides hooks for metrics and tracing.
//
// This package enables optional instrumentation without tying the library to
// a specific backend. Consumers register hooks at startup to receive events
// about figure rendering, viewer communication and export cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// [PrometheusHooks] implements every interface on top of
// prometheus/client_golang.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.Install(observability.NewPrometheusHooks(prometheus.DefaultRegisterer))
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	start := time.Now()
//	fs, err := store.Render(ctx, name, objects, props)
//	observability.Render().OnGenerate(ctx, name, mode, len(fs.Objects), time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// RenderHooks receives events from figure state generation and export.
type RenderHooks interface {
	// OnGenerate records a live generation or view-only reconciliation.
	OnGenerate(ctx context.Context, figure, mode string, objects int, duration time.Duration, err error)

	// OnExport records an image or WebGL export. size is the output length.
	OnExport(ctx context.Context, figure, format string, size int, duration time.Duration, err error)
}

// ViewerHooks receives events from the external viewer process.
type ViewerHooks interface {
	OnLaunch(ctx context.Context, database string, err error)

	// OnCommand records a command sent to the viewer. attempts counts the
	// retry as well as the first try.
	OnCommand(ctx context.Context, command string, attempts int, duration time.Duration, err error)

	OnClose(ctx context.Context, err error)
}

// CacheHooks receives events from export cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// NoopRenderHooks is a no-op implementation of RenderHooks.
type NoopRenderHooks struct{}

func (NoopRenderHooks) OnGenerate(context.Context, string, string, int, time.Duration, error) {}
func (NoopRenderHooks) OnExport(context.Context, string, string, int, time.Duration, error)   {}

// NoopViewerHooks is a no-op implementation of ViewerHooks.
type NoopViewerHooks struct{}

func (NoopViewerHooks) OnLaunch(context.Context, string, error)                     {}
func (NoopViewerHooks) OnCommand(context.Context, string, int, time.Duration, error) {}
func (NoopViewerHooks) OnClose(context.Context, error)                              {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

var (
	renderHooks RenderHooks = NoopRenderHooks{}
	viewerHooks ViewerHooks = NoopViewerHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	hooksMu     sync.RWMutex
)

// SetRenderHooks registers custom render hooks.
// This should be called once at application startup.
func SetRenderHooks(h RenderHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		renderHooks = h
	}
}

// SetViewerHooks registers custom viewer hooks.
func SetViewerHooks(h ViewerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		viewerHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Hooks implements every hook interface.
type Hooks interface {
	RenderHooks
	ViewerHooks
	CacheHooks
}

// Install registers h for every event category.
func Install(h Hooks) {
	SetRenderHooks(h)
	SetViewerHooks(h)
	SetCacheHooks(h)
}

// Render returns the registered render hooks.
func Render() RenderHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return renderHooks
}

// Viewer returns the registered viewer hooks.
func Viewer() ViewerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return viewerHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	renderHooks = NoopRenderHooks{}
	viewerHooks = NoopViewerHooks{}
	cacheHooks = NoopCacheHooks{}
}
