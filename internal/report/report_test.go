package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/pable/go-scout-metrics/internal/aggregator"
	"github.com/pable/go-scout-metrics/internal/model"
	"github.com/pable/go-scout-metrics/internal/storage"
)

func TestSampleFlag(t *testing.T) {
	cases := []struct {
		n    int
		want string
	}{
		{0, "VERY_LOW"},
		{3, "VERY_LOW"},
		{4, "LOW"},
		{7, "LOW"},
		{8, "OK"},
		{12, "OK"},
	}
	for _, c := range cases {
		if got := sampleFlag(c.n); got != c.want {
			t.Errorf("sampleFlag(%d) = %q, want %q", c.n, got, c.want)
		}
	}
}

func TestPrintMetricTable_Range(t *testing.T) {
	def, ok := aggregator.LookupMetric("match_avg_total_pts")
	if !ok {
		t.Fatal("metric not registered")
	}
	res := &aggregator.MetricResult{Def: def, Ranges: []aggregator.TeamRange{
		{TeamNum: 254, Min: 40, Avg: 72.5, Median: 70, Max: 110, Samples: 9},
		{TeamNum: 1678, Min: 10, Avg: 33.33, Median: 30, Max: 60, Samples: 3},
	}}

	var buf bytes.Buffer
	PrintMetricTable(&buf, res)
	out := buf.String()

	for _, want := range []string{"Total Points", "MEDIAN", "254", "72.5", "1678", "33.33", "OK", "VERY_LOW"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "254") > strings.Index(out, "1678") {
		t.Error("rows should keep result order")
	}
}

func TestPrintMetricTable_Mode(t *testing.T) {
	def, _ := aggregator.LookupMetric("tele_mode_hang")
	res := &aggregator.MetricResult{Def: def, Modes: []aggregator.TeamMode{{TeamNum: 11, Mode: 2, Samples: 5}}}

	var buf bytes.Buffer
	PrintMetricTable(&buf, res)
	out := buf.String()

	if !strings.Contains(out, "MODE") || !strings.Contains(out, "LOW") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "MEDIAN") {
		t.Errorf("mode table should not have range columns:\n%s", out)
	}
}

func TestPrintTrendTable(t *testing.T) {
	var buf bytes.Buffer
	PrintTrendTable(&buf, 11, []aggregator.TrendPoint{
		{MatchNum: 1, MatchType: "Quals", MatchTotalPts: 50, ZScore: -0.58},
		{MatchNum: 2, MatchType: "Quals", MatchTotalPts: 120, ZScore: 1.73, Anomaly: true},
	})
	out := buf.String()

	if !strings.Contains(out, "+1.73") || !strings.Contains(out, "-0.58") {
		t.Errorf("z-scores not rendered:\n%s", out)
	}
	if strings.Count(out, "*") != 2 { // one marker plus the legend
		t.Errorf("expected exactly one anomaly marker:\n%s", out)
	}
}

func TestPrintTrendTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	PrintTrendTable(&buf, 9999, nil)
	if got := buf.String(); got != "No matches scouted for team 9999.\n" {
		t.Errorf("got %q", got)
	}
}

func TestPrintOverview(t *testing.T) {
	last := 3
	ov := &aggregator.Overview{
		TeamNum:       11,
		MatchesPlayed: 3,
		BreakRate:     0.33,
		PrimaryRole:   "SCORER",
		Comments:      []aggregator.Comment{{MatchNum: 3, Scouter: "Anon", Text: "[Tele] slow intake"}},
		Overall:       aggregator.OverallStats{AvgTotalPts: 41.5, MaxTotalPts: 60},
	}
	ov.Advanced.Typical.Trench = "BUMP"
	ov.Advanced.Latest.Shooter.Raw = "TURRET"
	ov.Advanced.Reliability = aggregator.Reliability{
		CurrentlyBroken: true,
		Broke:           aggregator.BrokeEvents{Occurred: true, Matches: []int{3}, LastMatch: &last},
		Fixed:           aggregator.FixedEvents{Matches: []int{}},
	}

	var buf bytes.Buffer
	PrintOverview(&buf, ov)
	out := buf.String()

	for _, want := range []string{"Team 11", "SCORER", "BUMP", "41.5", "BROKEN", "33%", "Broke in: 3", "Fixed in: —", "slow intake"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintRecordsTable_NullRendersDash(t *testing.T) {
	recs := []model.Record{{TeamNum: 11, MatchNum: 4, TeleHang: model.Num{}, Role: model.RoleUnknown, Submissions: 2}}
	var buf bytes.Buffer
	PrintRecordsTable(&buf, recs)
	out := buf.String()
	if !strings.Contains(out, "—") || !strings.Contains(out, model.NotAvailable) {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestPrintUploadsTable(t *testing.T) {
	var buf bytes.Buffer
	PrintUploadsTable(&buf, []storage.Upload{{
		ID:         "0f8fad5b-d9cb-469f-a165-70867728950e",
		ReceivedAt: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		Source:     "http",
		Format:     "csv",
		Rows:       6,
	}})
	out := buf.String()
	if !strings.Contains(out, "0f8fad5b") || strings.Contains(out, "d9cb") {
		t.Errorf("id should be shortened:\n%s", out)
	}
	if !strings.Contains(out, "—") {
		t.Errorf("missing remote address should render as a dash:\n%s", out)
	}
}
