package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pable/go-scout-metrics/internal/aggregator"
	"github.com/pable/go-scout-metrics/internal/chart"
	"github.com/pable/go-scout-metrics/internal/model"
)

// errorBody is the body of a "not found"-style answer. These are returned with 200.
type errorBody struct {
	Error  string `json:"error"`
	Metric string `json:"metric,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// dataset returns the snapshot, rebuilding it first when the request carries refresh=true.
// On failure it has already written the response.
func (s *Server) dataset(w http.ResponseWriter, r *http.Request) (*model.Dataset, bool) {
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	ds, err := s.cache.Get(refresh)
	if err != nil {
		s.log.Error("load snapshot failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Scouting data unavailable"})
		return nil, false
	}
	return ds, true
}

func teamParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "teamNum"))
	if err != nil || n <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid team number"})
		return 0, false
	}
	return n, true
}

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.dataset(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, aggregator.ListTeams(ds))
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	team, ok := teamParam(w, r)
	if !ok {
		return
	}
	ds, ok := s.dataset(w, r)
	if !ok {
		return
	}
	ov, err := aggregator.BuildOverview(ds, team)
	if errors.Is(err, aggregator.ErrTeamNotFound) {
		writeJSON(w, http.StatusOK, errorBody{Error: "Team not found"})
		return
	}
	if err != nil {
		s.log.Error("build overview failed", "team", team, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Overview failed"})
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	team, ok := teamParam(w, r)
	if !ok {
		return
	}
	ds, ok := s.dataset(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, aggregator.ComputeTrend(ds, team))
}

func (s *Server) handleTrendPNG(w http.ResponseWriter, r *http.Request) {
	team, ok := teamParam(w, r)
	if !ok {
		return
	}
	ds, ok := s.dataset(w, r)
	if !ok {
		return
	}
	img, err := chart.TrendPNG(team, aggregator.ComputeTrend(ds, team), chart.DefaultPalette)
	if err != nil {
		s.log.Error("render trend chart failed", "team", team, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Chart rendering failed"})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(img)
}

func (s *Server) handleMetricList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, aggregator.Metrics())
}

func (s *Server) handleMetric(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "metricKey")
	if _, known := aggregator.LookupMetric(key); !known {
		writeJSON(w, http.StatusOK, errorBody{Error: "Unknown metric", Metric: key})
		return
	}
	ds, ok := s.dataset(w, r)
	if !ok {
		return
	}
	res, err := aggregator.ComputeMetric(ds, key)
	if err != nil {
		s.log.Error("compute metric failed", "metric", key, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Metric failed", Metric: key})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleCSV streams the backing store, creating a header-only file first when none exists.
func (s *Server) handleCSV(w http.ResponseWriter, r *http.Request) {
	file, err := s.store.EnsureHeader()
	if err != nil {
		s.log.Error("prepare scouting csv failed", "error", err)
		http.Error(w, "scouting store unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	http.ServeFile(w, r, file)
}
