// Package server exposes the scouting dataset over HTTP: team overviews, trends, event-wide
// metrics and the upload endpoint the scouting app posts to.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/pable/go-scout-metrics/internal/config"
	"github.com/pable/go-scout-metrics/internal/ingest"
	"github.com/pable/go-scout-metrics/internal/logger"
	"github.com/pable/go-scout-metrics/internal/metrics"
	"github.com/pable/go-scout-metrics/internal/model"
)

// Snapshots serves the current canonical dataset.
type Snapshots interface {
	Get(force bool) (*model.Dataset, error)
}

// RawStore is the backing CSV as served by GET /api/csv.
type RawStore interface {
	EnsureHeader() (string, error)
}

// Deps are the collaborators of a Server. Metrics may be nil.
type Deps struct {
	Config   config.HTTPConfig
	Cache    Snapshots
	Store    RawStore
	Ingester *ingest.Ingester
	Metrics  *metrics.Metrics
	Log      *logger.Logger
}

type Server struct {
	cfg      config.HTTPConfig
	cache    Snapshots
	store    RawStore
	ingester *ingest.Ingester
	metrics  *metrics.Metrics
	log      *logger.Logger
	limiter  *IPRateLimiter
}

func New(d Deps) *Server {
	s := &Server{
		cfg:      d.Config,
		cache:    d.Cache,
		store:    d.Store,
		ingester: d.Ingester,
		metrics:  d.Metrics,
		log:      d.Log,
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	s.limiter = NewIPRateLimiter(rate.Limit(s.cfg.UploadRate), s.cfg.UploadBurst)
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observe(s.log, s.metrics))
	r.Use(CORSMiddleware(s.cfg.AllowedOrigins))

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/teams", s.handleTeams)
	r.Route("/api/team/{teamNum}", func(r chi.Router) {
		r.Get("/overview", s.handleOverview)
		r.Get("/trend", s.handleTrend)
		r.Get("/trend.png", s.handleTrendPNG)
	})
	r.Get("/api/event/metrics", s.handleMetricList)
	r.Get("/api/event/metrics/{metricKey}", s.handleMetric)
	r.With(RateLimitMiddleware(s.limiter)).Post("/api/scout/upload", s.handleUpload)
	r.Get("/api/csv", s.handleCSV)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	return r
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
