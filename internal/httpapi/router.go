// Package httpapi serves the frame codec and maintenance stats over HTTP
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/go-deadlinejob/internal/deadline"
	"github.com/jmylchreest/go-deadlinejob/internal/jobs"
	"github.com/jmylchreest/go-deadlinejob/pkg/framelist"
)

// StatsSource provides the last maintenance cycle, usually a *jobs.Manager
type StatsSource interface {
	GetLastStats() *jobs.CycleStats
}

// JobsSource lists the jobs of every Deadline instance, usually a *jobs.Manager
type JobsSource interface {
	GetAllJobs(ctx context.Context) (map[string][]deadline.JobRecord, error)
}

type Deps struct {
	Codec  framelist.Codec
	Stats  StatsSource // optional
	Jobs   JobsSource  // optional
	Logger *slog.Logger

	// SetLogLevel changes the process log level at runtime; optional
	SetLogLevel func(slog.Level)
}

func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	r := chi.NewRouter()
	h := &handlers{
		codec:       d.Codec,
		stats:       d.Stats,
		jobs:        d.Jobs,
		setLogLevel: d.SetLogLevel,
		logger:      d.Logger.With("component", "httpapi"),
	}

	r.Use(h.logRequests)

	r.Get("/health", h.health)

	r.Route("/frames", func(r chi.Router) {
		r.Post("/parse", h.parseFrames)
		r.Post("/format", h.formatFrames)
		r.Post("/tasks", h.frameTasks)
	})

	r.Get("/stats", h.lastStats)
	r.Get("/jobs", h.listJobs)
	r.Put("/log/level", h.logLevel)

	return r
}

// NewServer wraps the router in an http.Server
func NewServer(addr string, readTimeout time.Duration, d Deps) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(d),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *handlers) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).Round(time.Microsecond))
	})
}
