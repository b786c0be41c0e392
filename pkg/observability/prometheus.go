package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusHooks records every hook event as Prometheus metrics.
type PrometheusHooks struct {
	Renders         *prometheus.CounterVec
	RenderDuration  *prometheus.HistogramVec
	Exports         *prometheus.CounterVec
	ExportBytes     *prometheus.CounterVec
	ExportDuration  *prometheus.HistogramVec
	ViewerLaunches  *prometheus.CounterVec
	ViewersRunning  prometheus.Gauge
	ViewerCommands  *prometheus.CounterVec
	ViewerRetries   prometheus.Counter
	CacheRequests   *prometheus.CounterVec
	CacheWriteBytes *prometheus.CounterVec
}

var _ Hooks = (*PrometheusHooks)(nil)

// NewPrometheusHooks creates the metrics and registers them with reg.
// A nil reg leaves the metrics unregistered.
func NewPrometheusHooks(reg prometheus.Registerer) *PrometheusHooks {
	f := promauto.With(reg)
	return &PrometheusHooks{
		Renders: f.NewCounterVec(prometheus.CounterOpts{
			Name: "glucifer_figure_renders_total",
			Help: "Figure state generations and reconciliations",
		}, []string{"mode", "result"}),
		RenderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "glucifer_figure_render_duration_seconds",
			Help:    "Time spent producing and persisting figure state",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode"}),
		Exports: f.NewCounterVec(prometheus.CounterOpts{
			Name: "glucifer_exports_total",
			Help: "Image and WebGL exports",
		}, []string{"format", "result"}),
		ExportBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "glucifer_export_bytes_total",
			Help: "Bytes produced by exports",
		}, []string{"format"}),
		ExportDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "glucifer_export_duration_seconds",
			Help:    "Time spent in the rendering engine per export",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"format"}),
		ViewerLaunches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "glucifer_viewer_launches_total",
			Help: "Viewer process launches",
		}, []string{"result"}),
		ViewersRunning: f.NewGauge(prometheus.GaugeOpts{
			Name: "glucifer_viewers_running",
			Help: "Viewer processes currently owned by this process",
		}),
		ViewerCommands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "glucifer_viewer_commands_total",
			Help: "Commands sent to the viewer",
		}, []string{"result"}),
		ViewerRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "glucifer_viewer_command_retries_total",
			Help: "Viewer commands that needed a retry",
		}),
		CacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "glucifer_cache_requests_total",
			Help: "Export cache lookups",
		}, []string{"key_type", "result"}),
		CacheWriteBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "glucifer_cache_write_bytes_total",
			Help: "Bytes written to the export cache",
		}, []string{"key_type"}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (p *PrometheusHooks) OnGenerate(_ context.Context, _, mode string, _ int, d time.Duration, err error) {
	p.Renders.WithLabelValues(mode, result(err)).Inc()
	p.RenderDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (p *PrometheusHooks) OnExport(_ context.Context, _, format string, size int, d time.Duration, err error) {
	p.Exports.WithLabelValues(format, result(err)).Inc()
	p.ExportDuration.WithLabelValues(format).Observe(d.Seconds())
	if err == nil {
		p.ExportBytes.WithLabelValues(format).Add(float64(size))
	}
}

func (p *PrometheusHooks) OnLaunch(_ context.Context, _ string, err error) {
	p.ViewerLaunches.WithLabelValues(result(err)).Inc()
	if err == nil {
		p.ViewersRunning.Inc()
	}
}

func (p *PrometheusHooks) OnCommand(_ context.Context, _ string, attempts int, _ time.Duration, err error) {
	p.ViewerCommands.WithLabelValues(result(err)).Inc()
	if attempts > 1 {
		p.ViewerRetries.Inc()
	}
}

func (p *PrometheusHooks) OnClose(context.Context, error) { p.ViewersRunning.Dec() }

func (p *PrometheusHooks) OnCacheHit(_ context.Context, keyType string) {
	p.CacheRequests.WithLabelValues(keyType, "hit").Inc()
}

func (p *PrometheusHooks) OnCacheMiss(_ context.Context, keyType string) {
	p.CacheRequests.WithLabelValues(keyType, "miss").Inc()
}

func (p *PrometheusHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	p.CacheWriteBytes.WithLabelValues(keyType).Add(float64(size))
}
