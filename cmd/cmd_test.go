package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-scout-metrics/internal/config"
	"github.com/pable/go-scout-metrics/internal/model"
)

func TestParseTeamNum(t *testing.T) {
	n, err := parseTeamNum("254")
	require.NoError(t, err)
	assert.Equal(t, 254, n)

	for _, bad := range []string{"", "abc", "0", "-3", "25.4"} {
		_, err := parseTeamNum(bad)
		assert.Error(t, err, bad)
	}
}

func TestTrimCompressionSuffix(t *testing.T) {
	cases := map[string]string{
		"day1.csv.gz":   "day1.csv",
		"day2.xlsx.zst": "day2.xlsx",
		"qr.json.bz2":   "qr.json",
		"plain.csv":     "plain.csv",
		"archive.gzip":  "archive.gzip",
	}
	for in, want := range cases {
		assert.Equal(t, want, trimCompressionSuffix(in), in)
	}
}

func TestResolveExportFormat(t *testing.T) {
	tests := []struct {
		format, out string
		want        string
		wantErr     bool
	}{
		{"", "", "table", false},
		{"", "out.CSV", "csv", false},
		{"", "picks.xlsx", "xlsx", false},
		{"json", "out.csv", "json", false},
		{"", "notes.txt", "", true},
		{"yaml", "", "", true},
	}
	for _, tt := range tests {
		got, err := resolveExportFormat(tt.format, tt.out)
		if tt.wantErr {
			assert.Error(t, err, "%q/%q", tt.format, tt.out)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestBuildTeamContext(t *testing.T) {
	ds := model.NewDataset([]model.Record{
		{TeamNum: 11, MatchNum: 1, MatchType: model.MatchQualification, MatchTotalPts: 40, TeleTotalPts: 40},
		{TeamNum: 11, MatchNum: 2, MatchType: model.MatchQualification, MatchTotalPts: 60, TeleTotalPts: 60},
	}, time.Time{}, time.Time{})

	out, err := buildTeamContext(ds, 11)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "team", doc["subject"])
	assert.EqualValues(t, 11, doc["team"])
	assert.Len(t, doc["trend"], 2)
	assert.Contains(t, doc, "overview")

	_, err = buildTeamContext(ds, 99)
	assert.ErrorContains(t, err, "no scouting data for team 99")
}

func TestDownload(t *testing.T) {
	settings = config.Default()
	const body = "team_num,match_num\n254,1\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/csv":
			w.Header().Set("Content-Type", "text/csv")
			w.Header().Set("Content-Encoding", "gzip")
			gz := gzip.NewWriter(w)
			gz.Write([]byte(body))
			gz.Close()
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	data, hint, err := download(t.Context(), srv.URL+"/api/csv")
	require.NoError(t, err)
	assert.Equal(t, body, string(data))
	assert.Equal(t, "text/csv", hint.ContentType)
	assert.Empty(t, hint.Filename)

	_, _, err = download(t.Context(), srv.URL+"/missing.csv")
	assert.ErrorContains(t, err, "HTTP 404")

	_, _, err = download(t.Context(), "ftp://example.org/x.csv")
	assert.ErrorContains(t, err, "invalid url")
}

func TestWriteRecordsJSON(t *testing.T) {
	var buf bytes.Buffer
	recs := []model.Record{{TeamNum: 254, MatchNum: 1, AutoPts: model.Some(6)}}
	require.NoError(t, writeRecords(&buf, "json", recs))
	assert.True(t, strings.HasPrefix(buf.String(), "[\n"))
	assert.Contains(t, buf.String(), `"auto_pts": 6`)
	assert.Contains(t, buf.String(), `"tele_pts": null`)
}
