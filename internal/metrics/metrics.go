// Package metrics exposes Prometheus collectors for the scouting service on a private registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pable/go-scout-metrics/internal/model"
	"github.com/pable/go-scout-metrics/internal/normalize"
)

const namespace = "scout"

// Metrics holds every collector. It implements snapshot.Observer.
type Metrics struct {
	Registry *prometheus.Registry

	rebuilds         prometheus.Counter
	rebuildErrors    prometheus.Counter
	rebuildSeconds   prometheus.Histogram
	cacheHits        prometheus.Counter
	rowsDropped      prometheus.Counter
	malformedCells   prometheus.Counter
	snapshotRecords  prometheus.Gauge
	uploads          *prometheus.CounterVec
	rowsAppended     prometheus.Counter
	duplicateUploads prometheus.Counter
	httpDuration     *prometheus.HistogramVec
}

// New registers all collectors, plus the Go and process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		rebuilds: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "snapshot_rebuilds_total",
			Help: "Snapshot rebuilds that produced a new dataset.",
		}),
		rebuildErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "snapshot_rebuild_errors_total",
			Help: "Snapshot rebuilds that failed to load the store.",
		}),
		rebuildSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "snapshot_rebuild_duration_seconds",
			Help:    "Time to load, normalize and deduplicate the store.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "snapshot_cache_hits_total",
			Help: "Reads served from the current snapshot without a rebuild.",
		}),
		rowsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "normalize_rows_dropped_total",
			Help: "Rows dropped during normalization for a missing or invalid key.",
		}),
		malformedCells: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "normalize_malformed_cells_total",
			Help: "Cells coerced to null because they could not be parsed.",
		}),
		snapshotRecords: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "snapshot_records",
			Help: "Canonical records in the current snapshot.",
		}),
		uploads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "uploads_total",
			Help: "Upload requests by outcome.",
		}, []string{"outcome"}),
		rowsAppended: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "upload_rows_appended_total",
			Help: "Rows appended to the store by uploads.",
		}),
		duplicateUploads: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "uploads_duplicate_total",
			Help: "Uploads skipped because the same payload was already stored.",
		}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) CacheHit() { m.cacheHits.Inc() }

func (m *Metrics) Rebuilt(ds *model.Dataset, st normalize.Stats, took time.Duration) {
	m.rebuilds.Inc()
	m.rebuildSeconds.Observe(took.Seconds())
	m.rowsDropped.Add(float64(st.Dropped))
	m.malformedCells.Add(float64(st.MalformedCells))
	m.snapshotRecords.Set(float64(ds.Len()))
}

func (m *Metrics) RebuildFailed(error) { m.rebuildErrors.Inc() }

// UploadAccepted counts a stored upload and its rows.
func (m *Metrics) UploadAccepted(rows int) {
	m.uploads.WithLabelValues("accepted").Inc()
	m.rowsAppended.Add(float64(rows))
}

// UploadDuplicate counts an upload whose payload was already stored.
func (m *Metrics) UploadDuplicate() {
	m.uploads.WithLabelValues("duplicate").Inc()
	m.duplicateUploads.Inc()
}

// UploadRejected counts an upload refused with a client or server error.
func (m *Metrics) UploadRejected() { m.uploads.WithLabelValues("rejected").Inc() }

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route, method string, status int, took time.Duration) {
	m.httpDuration.WithLabelValues(route, method, statusClass(status)).Observe(took.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
