package report

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pable/go-scout-metrics/internal/model"
)

func exportFixture() []model.Record {
	return []model.Record{
		{
			TeamNum: 254, MatchNum: 3, MatchType: model.MatchQualification, Alliance: "red",
			AutoActive: model.Some(1), AutoPts: model.Some(12), TelePts: model.Some(40.5),
			AutoTotalPts: 12, TeleTotalPts: 40.5, MatchTotalPts: 52.5,
			Broke: true, Chassis: model.ChassisSwerve, Role: model.RoleUnknown,
			Shooters:    []model.Shooter{model.ShooterTurret, model.ShooterHood},
			Comments:    "fast, \"clean\" cycles",
			Timestamp:   time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
			Submissions: 2,
		},
		{TeamNum: 1678, MatchNum: 4, MatchType: model.MatchQualification, Submissions: 1},
	}
}

func TestWriteRecordsCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecordsCSV(&buf, exportFixture()); err != nil {
		t.Fatalf("WriteRecordsCSV: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d lines, want header + 2", len(rows))
	}
	col := func(name string) int {
		for i, c := range RecordColumns {
			if c == name {
				return i
			}
		}
		t.Fatalf("no column %q", name)
		return -1
	}

	first := rows[1]
	checks := map[string]string{
		"team_num":        "254",
		"tele_pts":        "40.5",
		"auto_hang":       "",
		"match_total_pts": "52.5",
		"adv_broke":       "1",
		"adv_chasis":      "SWERVE",
		"adv_role":        "N/A",
		"adv_shooter":     "TURRET + HOOD",
		"adv_comments":    `fast, "clean" cycles`,
		"timestamp":       "2026-03-14T10:30:00Z",
		"submissions":     "2",
	}
	for name, want := range checks {
		if got := first[col(name)]; got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if got := rows[2][col("timestamp")]; got != "" {
		t.Errorf("missing timestamp rendered as %q", got)
	}
	if got := rows[2][col("adv_shooter")]; got != "NONE" {
		t.Errorf("no shooters rendered as %q, want NONE", got)
	}
}

func TestWriteRecordsXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecordsXLSX(&buf, exportFixture()); err != nil {
		t.Fatalf("WriteRecordsXLSX: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("records")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0][0] != "team_num" || rows[1][0] != "254" || rows[2][0] != "1678" {
		t.Errorf("unexpected first column: %q %q %q", rows[0][0], rows[1][0], rows[2][0])
	}
	typ, err := f.GetCellType("records", "A2")
	if err != nil {
		t.Fatalf("GetCellType: %v", err)
	}
	if typ == excelize.CellTypeSharedString || typ == excelize.CellTypeInlineString {
		t.Errorf("team_num stored as text, want number")
	}
}
