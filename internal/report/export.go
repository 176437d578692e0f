package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pable/go-scout-metrics/internal/model"
)

// RecordColumns is the column order of a canonical record export.
var RecordColumns = []string{
	"team_num", "match_num", "match_type", "alliance", "scouter", "start_zone",
	"auto_active", "auto_hang", "auto_pts", "tele_pts", "tele_hang",
	"auto_total_pts", "tele_total_pts", "match_total_pts",
	"adv_broke", "adv_fixed", "adv_climber",
	"adv_role", "adv_chasis", "adv_intake", "adv_hoppercapacity", "adv_trench", "adv_shooter",
	"auto_comm", "tele_comm", "adv_comments", "timestamp", "submissions",
}

// RecordRow renders r in RecordColumns order. Missing numbers and timestamps are empty cells.
func RecordRow(r *model.Record) []string {
	_, shooters := model.ShooterLabels(r.Shooters)
	ts := ""
	if r.HasTimestamp() {
		ts = r.Timestamp.UTC().Format(time.RFC3339)
	}
	return []string{
		strconv.Itoa(r.TeamNum), strconv.Itoa(r.MatchNum), r.MatchType.String(),
		r.Alliance, r.Scouter, r.StartZone,
		numCell(r.AutoActive), numCell(r.AutoHang), numCell(r.AutoPts), numCell(r.TelePts), numCell(r.TeleHang),
		formatNum(r.AutoTotalPts), formatNum(r.TeleTotalPts), formatNum(r.MatchTotalPts),
		boolCell(r.Broke), boolCell(r.Fixed), boolCell(r.Climber),
		r.Role.String(), r.Chassis.String(), r.Intake.String(), r.Hopper.String(), r.Trench.String(), shooters,
		r.AutoComm, r.TeleComm, r.Comments, ts, strconv.Itoa(r.Submissions),
	}
}

// WriteRecordsCSV writes a header line plus one line per record.
func WriteRecordsCSV(w io.Writer, recs []model.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RecordColumns); err != nil {
		return err
	}
	for i := range recs {
		if err := cw.Write(RecordRow(&recs[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRecordsXLSX writes the records to a single "records" sheet. Numeric columns are stored
// as numbers so spreadsheet formulas work on them.
func WriteRecordsXLSX(w io.Writer, recs []model.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "records"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	header := make([]any, len(RecordColumns))
	for i, c := range RecordColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i := range recs {
		row := RecordRow(&recs[i])
		cells := make([]any, len(row))
		for j, v := range row {
			if n, err := strconv.ParseFloat(v, 64); err == nil && isNumericColumn(j) {
				cells[j] = n
			} else {
				cells[j] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	return f.Write(w)
}

// isNumericColumn reports whether RecordColumns[i] holds a number.
func isNumericColumn(i int) bool {
	switch RecordColumns[i] {
	case "team_num", "match_num", "auto_active", "auto_hang", "auto_pts", "tele_pts", "tele_hang",
		"auto_total_pts", "tele_total_pts", "match_total_pts", "submissions":
		return true
	}
	return false
}

func numCell(n model.Num) string {
	if !n.Valid {
		return ""
	}
	return formatNum(n.Value)
}

func boolCell(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
