// Package server exposes a saved visualization database over HTTP.
//
// Routes:
//
//	GET /figures                  saved figures and their visible objects
//	GET /figures/{name}           persisted state of one figure
//	GET /figures/{name}/image     PNG export (?step=, ?width=, ?height=)
//	GET /figures/{name}/webgl     WebGL scene export (?step=)
//	GET /timesteps                recorded timesteps
//	GET /metrics                  Prometheus metrics
//	GET /version                  build version
//
// Requests are serialised: the underlying store reconciles and commits state
// on every export.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chronictectonic/underworld2/pkg/buildinfo"
	"github.com/chronictectonic/underworld2/pkg/errors"
	"github.com/chronictectonic/underworld2/pkg/glucifer"
	"github.com/chronictectonic/underworld2/pkg/state"
)

// ShutdownTimeout bounds the graceful shutdown in [Server.ListenAndServe].
const ShutdownTimeout = 5 * time.Second

// Server serves the figures of one [glucifer.Viewer].
type Server struct {
	mu       sync.Mutex
	viewer   *glucifer.Viewer
	logger   *log.Logger
	gatherer prometheus.Gatherer
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option { return func(s *Server) { s.logger = l } }

// WithGatherer sets the metrics source for /metrics. The default is
// prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option { return func(s *Server) { s.gatherer = g } }

// New returns a server over v.
func New(v *glucifer.Viewer, opts ...Option) *Server {
	s := &Server{
		viewer:   v,
		logger:   log.New(io.Discard),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/figures", s.handleFigures)
	r.Route("/figures/{name}", func(r chi.Router) {
		r.Get("/", s.handleFigure)
		r.Get("/image", s.handleImage)
		r.Get("/webgl", s.handleWebGL)
	})
	r.Get("/timesteps", s.handleTimesteps)
	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, buildinfo.Current())
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("serving figures", "addr", addr, "database", s.viewer.Store().Filename())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"id", middleware.GetReqID(r.Context()),
		)
	})
}

// FigureSummary describes one saved figure in the /figures listing.
type FigureSummary struct {
	Name    string   `json:"name"`
	Title   string   `json:"title,omitempty"`
	Objects []string `json:"objects"`
	Hidden  int      `json:"hidden"`
}

func summarize(fs state.FigureState) FigureSummary {
	sum := FigureSummary{
		Name:    fs.Figure,
		Title:   fs.Properties.GetString("title", ""),
		Objects: []string{},
	}
	for _, d := range fs.Objects {
		if d.Visible {
			sum.Objects = append(sum.Objects, d.Name)
		} else {
			sum.Hidden++
		}
	}
	return sum
}

func (s *Server) handleFigures(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	doc, err := s.viewer.Store().Figures(r.Context())
	s.mu.Unlock()
	if err != nil {
		s.writeErr(w, err)
		return
	}
	out := make([]FigureSummary, len(doc))
	for i, fs := range doc {
		out[i] = summarize(fs)
	}
	writeJSON(w, http.StatusOK, map[string]any{"figures": out})
}

func (s *Server) handleFigure(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.mu.Lock()
	doc, err := s.viewer.Store().Figures(r.Context())
	s.mu.Unlock()
	if err != nil {
		s.writeErr(w, err)
		return
	}
	i := doc.Index(name)
	if i < 0 {
		s.writeErr(w, errors.New(errors.ErrCodeFigureNotFound, "no saved figure %q", name))
		return
	}
	writeJSON(w, http.StatusOK, doc[i])
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	width, err := intQuery(r, "width")
	if err != nil {
		s.writeErr(w, err)
		return
	}
	height, err := intQuery(r, "height")
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.export(w, r, "image/png", func(ctx context.Context, f *glucifer.Figure) ([]byte, error) {
		return f.Image(ctx, glucifer.WithSize(width, height))
	})
}

func (s *Server) handleWebGL(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "application/json", func(ctx context.Context, f *glucifer.Figure) ([]byte, error) {
		return f.WebGL(ctx)
	})
}

func (s *Server) export(w http.ResponseWriter, r *http.Request, contentType string, run func(context.Context, *glucifer.Figure) ([]byte, error)) {
	step, err := intQuery(r, "step")
	if err != nil {
		s.writeErr(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	fig, err := s.viewer.Figure(chi.URLParam(r, "name"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if r.URL.Query().Has("step") {
		s.viewer.SetStep(step)
	}
	data, err := run(r.Context(), fig)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if data == nil {
		// The failure has already been logged by the store.
		writeError(w, http.StatusServiceUnavailable, "export unavailable")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (s *Server) handleTimesteps(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	steps, err := s.viewer.Steps(r.Context())
	s.mu.Unlock()
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if steps == nil {
		steps = []int{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"timesteps": steps})
}

func intQuery(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New(errors.ErrCodeInvalidArgument, "%s must be a non-negative integer, got %q", key, v)
	}
	return n, nil
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, errors.ErrCodeFigureNotFound), errors.Is(err, errors.ErrCodeFileNotFound):
		return http.StatusNotFound
	case errors.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrCodeEngineUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeError(w, status, errors.UserMessage(err))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
