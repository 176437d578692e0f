package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-scout-metrics/internal/model"
	"github.com/pable/go-scout-metrics/internal/normalize"
)

func TestObserverCounters(t *testing.T) {
	m := New()
	ds := model.NewDataset([]model.Record{{TeamNum: 1, MatchNum: 1}, {TeamNum: 2, MatchNum: 1}}, time.Now(), time.Now())

	m.CacheHit()
	m.CacheHit()
	m.Rebuilt(ds, normalize.Stats{Rows: 5, Kept: 2, Dropped: 3, MalformedCells: 4}, 20*time.Millisecond)
	m.RebuildFailed(errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rebuilds))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rebuildErrors))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.rowsDropped))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.malformedCells))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.snapshotRecords))
}

func TestUploadOutcomes(t *testing.T) {
	m := New()
	m.UploadAccepted(6)
	m.UploadAccepted(4)
	m.UploadDuplicate()
	m.UploadRejected()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.uploads.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("rejected")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.rowsAppended))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.ObserveHTTP("/api/team/{teamNum}/overview", "GET", 200, 3*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(body)
	assert.True(t, strings.Contains(out, `scout_http_request_duration_seconds_count{method="GET",route="/api/team/{teamNum}/overview",status="2xx"} 1`), out)
	assert.Contains(t, out, "go_goroutines")
}

func TestStatusClass(t *testing.T) {
	for status, want := range map[int]string{200: "2xx", 204: "2xx", 304: "3xx", 400: "4xx", 429: "4xx", 500: "5xx"} {
		assert.Equal(t, want, statusClass(status), "status %d", status)
	}
}
