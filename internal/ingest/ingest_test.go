package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-scout-metrics/internal/model"
	"github.com/pable/go-scout-metrics/internal/parser"
	"github.com/pable/go-scout-metrics/internal/storage"
)

const sampleCSV = "team_num,match_num,tele_pts\n11,1,40\n11,2,55\n"

type invalidations struct{ n atomic.Int32 }

func (i *invalidations) Invalidate() { i.n.Add(1) }

type failingStore struct{}

func (failingStore) Append(*model.Batch) (int, error) { return 0, errors.New("disk full") }
func (failingStore) Replace(*model.Batch) error       { return errors.New("disk full") }

func newTestIngester(t *testing.T) (*Ingester, *storage.CSVStore, *storage.DB, *invalidations) {
	t.Helper()
	store := storage.NewCSVStore(filepath.Join(t.TempDir(), "scouting.csv"))
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	inv := &invalidations{}
	var seq atomic.Int32
	in := New(store, Options{
		Ledger: db,
		Cache:  inv,
		Now:    func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) },
		NewID:  func() string { return fmt.Sprintf("upload-%d", seq.Add(1)) },
	})
	return in, store, db, inv
}

func TestIngest_AppendsAndRecords(t *testing.T) {
	in, store, db, inv := newTestIngester(t)

	res, err := in.Ingest(Request{Data: []byte(sampleCSV), Source: "http", RemoteAddr: "10.0.0.7"})
	require.NoError(t, err)
	assert.Equal(t, "upload-1", res.UploadID)
	assert.Equal(t, parser.FormatCSV, res.Format)
	assert.Equal(t, 2, res.Rows)
	assert.False(t, res.Duplicate)
	assert.EqualValues(t, 1, inv.n.Load())

	raws, err := store.Load()
	require.NoError(t, err)
	require.Len(t, raws, 2)
	assert.Equal(t, "55", raws[1]["tele_pts"])

	u, err := db.UploadBySHA256(res.SHA256)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "upload-1", u.ID)
	assert.Equal(t, "10.0.0.7", u.RemoteAddr)
	assert.Equal(t, 2, u.Rows)
}

func TestIngest_DuplicatePayloadSkipped(t *testing.T) {
	in, store, _, inv := newTestIngester(t)

	first, err := in.Ingest(Request{Data: []byte(sampleCSV), Source: "http"})
	require.NoError(t, err)
	second, err := in.Ingest(Request{Data: []byte(sampleCSV), Source: "http"})
	require.NoError(t, err)

	assert.True(t, second.Duplicate)
	assert.Equal(t, first.UploadID, second.UploadID)
	assert.EqualValues(t, 1, inv.n.Load(), "a duplicate must not invalidate")

	raws, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, raws, 2)
}

func TestIngest_ReplaceIgnoresLedger(t *testing.T) {
	in, store, _, _ := newTestIngester(t)

	_, err := in.Ingest(Request{Data: []byte(sampleCSV), Source: "fetch"})
	require.NoError(t, err)
	res, err := in.Ingest(Request{Data: []byte(sampleCSV), Source: "fetch", Replace: true})
	require.NoError(t, err)
	assert.False(t, res.Duplicate)

	raws, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, raws, 2, "replace must not double the rows")
}

func TestIngest_JSONPayload(t *testing.T) {
	in, store, _, _ := newTestIngester(t)

	res, err := in.Ingest(Request{
		Data: []byte(`[{"team_num": 254, "match_num": 3, "adv_broke": true}]`),
		Hint: parser.Hint{ContentType: "application/json"},
	})
	require.NoError(t, err)
	assert.Equal(t, parser.FormatJSON, res.Format)

	raws, err := store.Load()
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.Equal(t, "1", raws[0]["adv_broke"])
}

func TestIngest_ClientErrorsWriteNothing(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"empty body", Request{}, parser.ErrEmptyUpload},
		{"header only", Request{Data: []byte("team_num,match_num\n")}, parser.ErrEmptyUpload},
		{"row mismatch", Request{Data: []byte("team_num,match_num\n1,2,3\n")}, parser.ErrMalformed},
		{"unknown format", Request{Data: []byte(sampleCSV), Hint: parser.Hint{Format: "parquet"}}, parser.ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, store, _, inv := newTestIngester(t)
			_, err := in.Ingest(tt.req)
			require.ErrorIs(t, err, tt.want)
			assert.True(t, IsClientError(err))
			assert.Zero(t, inv.n.Load())

			_, exists, err := store.File()
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestIngest_StoreFailureIsServerError(t *testing.T) {
	in := New(failingStore{}, Options{})
	_, err := in.Ingest(Request{Data: []byte(sampleCSV)})
	require.Error(t, err)
	assert.False(t, IsClientError(err))
}

func TestReadAll(t *testing.T) {
	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write([]byte(sampleCSV))
	require.NoError(t, gw.Close())

	var zs bytes.Buffer
	zw, err := zstd.NewWriter(&zs)
	require.NoError(t, err)
	_, _ = zw.Write([]byte(sampleCSV))
	require.NoError(t, zw.Close())

	tests := []struct {
		name     string
		body     []byte
		encoding string
		limit    int64
		wantErr  error
	}{
		{name: "identity", body: []byte(sampleCSV)},
		{name: "gzip", body: gz.Bytes(), encoding: "gzip"},
		{name: "zstd", body: zs.Bytes(), encoding: "zstd"},
		{name: "exact limit", body: []byte(sampleCSV), limit: int64(len(sampleCSV))},
		{name: "over limit after inflate", body: gz.Bytes(), encoding: "gzip", limit: 10, wantErr: ErrTooLarge},
		{name: "unknown codec", body: []byte(sampleCSV), encoding: "br", wantErr: ErrUnsupportedEncoding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadAll(bytes.NewReader(tt.body), tt.encoding, tt.limit)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, sampleCSV, string(got))
		})
	}
}

func TestEncodingFor(t *testing.T) {
	assert.Equal(t, "gzip", EncodingFor("GZIP", "x.zst"))
	assert.Equal(t, "zstd", EncodingFor("", "dump.csv.zst"))
	assert.Equal(t, "gzip", EncodingFor("", "dump.csv.gz"))
	assert.Equal(t, "bzip2", EncodingFor("", "dump.csv.bz2"))
	assert.Equal(t, "", EncodingFor("", "dump.csv"))
}

func TestIngest_ConcurrentDuplicatesWrittenOnce(t *testing.T) {
	in, store, db, _ := newTestIngester(t)

	const workers = 8
	results := make([]*Result, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results[i], errs[i] = in.Ingest(Request{Data: []byte(sampleCSV), Source: "http"})
		}()
	}
	close(start)
	wg.Wait()

	stored := 0
	for i := range workers {
		require.NoError(t, errs[i])
		if !results[i].Duplicate {
			stored++
		}
		assert.Equal(t, 2, results[i].Rows)
	}
	assert.Equal(t, 1, stored, "exactly one upload is written")

	raws, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, raws, 2)

	ups, err := db.ListUploads(0)
	require.NoError(t, err)
	assert.Len(t, ups, 1)
}
