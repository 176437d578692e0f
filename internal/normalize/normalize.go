// Package normalize turns raw scouting rows into canonical records and merges repeated
// submissions for the same (team, match) into one.
package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pable/go-scout-metrics/internal/logger"
	"github.com/pable/go-scout-metrics/internal/model"
)

// Stats summarises one normalization pass.
type Stats struct {
	Rows           int
	Kept           int
	Dropped        int
	MalformedCells int
}

// CellError describes a cell that could not be coerced and was treated as null.
type CellError struct {
	Column string
	Value  string
}

// Normalize converts raw rows to canonical records. Rows that cannot be keyed by
// (team_num, match_num) are dropped; every other problem degrades the cell to null.
func Normalize(raws []model.RawRecord, log *logger.Logger) ([]model.Record, Stats) {
	if log == nil {
		log = logger.Nop()
	}
	st := Stats{Rows: len(raws)}
	out := make([]model.Record, 0, len(raws))
	for i, raw := range raws {
		rec, cellErrs, ok := Record(raw)
		st.MalformedCells += len(cellErrs)
		for _, ce := range cellErrs {
			log.Debug("malformed cell", "row", i, "column", ce.Column, "value", ce.Value)
		}
		if !ok {
			st.Dropped++
			log.Debug("dropping unkeyed row", "row", i, "team_num", raw["team_num"], "match_num", raw["match_num"])
			continue
		}
		out = append(out, rec)
	}
	st.Kept = len(out)
	if st.Dropped > 0 {
		log.Warn("dropped rows without a usable team/match key", "dropped", st.Dropped, "rows", st.Rows)
	}
	return out, st
}

// Record normalizes a single raw row. ok is false when the row has no usable key.
// The same raw row always yields the same record.
func Record(raw model.RawRecord) (rec model.Record, cellErrs []CellError, ok bool) {
	c := cellReader{raw: raw}

	team, teamOK := c.key("team_num")
	match, matchOK := c.key("match_num")
	if !teamOK || !matchOK {
		return model.Record{}, c.errs, false
	}

	rec = model.Record{
		TeamNum:   team,
		MatchNum:  match,
		MatchType: model.ParseMatchType(c.text("match_type")),
		Alliance:  c.text("alliance"),
		Scouter:   c.text("scouter"),
		StartZone: c.text("start_zone"),

		AutoActive: c.num("auto_active"),
		AutoHang:   c.num("auto_hang"),
		AutoPts:    c.num("auto_pts"),
		TelePts:    c.num("tele_pts"),
		TeleHang:   c.num("tele_hang"),

		Broke:   c.flag("adv_broke"),
		Fixed:   c.flag("adv_fixed"),
		Climber: c.flag("adv_climber"),

		Role:     model.ParseRole(c.enum("adv_role")),
		Chassis:  model.ParseChassis(c.enum("adv_chasis")),
		Intake:   model.ParseIntake(c.enum("adv_intake")),
		Hopper:   model.ParseHopper(c.enum("adv_hoppercapacity")),
		Trench:   model.ParseTrench(c.enum("adv_trench")),
		Shooters: model.ParseShooters(c.enum("adv_shooter")),

		AutoComm: c.text("auto_comm"),
		TeleComm: c.text("tele_comm"),
		Comments: c.text("adv_comments"),

		Timestamp:   c.timestamp("timestamp"),
		Submissions: 1,
	}
	rec.Derive()
	return rec, c.errs, true
}

type cellReader struct {
	raw  model.RawRecord
	errs []CellError
}

func (c *cellReader) bad(col, val string) {
	c.errs = append(c.errs, CellError{Column: col, Value: val})
}

// cell returns the trimmed value, or "" for absent columns and placeholder text.
func (c *cellReader) cell(col string) string {
	v := strings.TrimSpace(c.raw[col])
	if isPlaceholder(v) {
		return ""
	}
	return v
}

func isPlaceholder(v string) bool {
	switch strings.ToLower(v) {
	case "nan", "null", "undefined":
		return true
	}
	return false
}

func (c *cellReader) key(col string) (int, bool) {
	v := c.cell(col)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f <= 0 || f > math.MaxInt32 {
		c.bad(col, v)
		return 0, false
	}
	return int(f), true
}

// num parses an optional performance value. Blank and the -1 sentinel are null without complaint;
// unparseable or negative values are null and reported.
func (c *cellReader) num(col string) model.Num {
	v := c.cell(col)
	if v == "" || v == "-1" {
		return model.Num{}
	}
	switch strings.ToLower(v) {
	case "true", "yes":
		return model.Some(1)
	case "false", "no":
		return model.Some(0)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		c.bad(col, v)
		return model.Num{}
	}
	if f == -1 {
		return model.Num{}
	}
	if f < 0 {
		c.bad(col, v)
		return model.Num{}
	}
	return model.Some(f)
}

func (c *cellReader) flag(col string) bool {
	return c.num(col).Is(1)
}

// enum returns the raw code/label text with the -1 sentinel blanked.
func (c *cellReader) enum(col string) string {
	v := c.cell(col)
	if v == "-1" {
		return ""
	}
	return v
}

// text keeps free text as written, minus surrounding space and placeholder values.
func (c *cellReader) text(col string) string {
	return c.cell(col)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
}

func (c *cellReader) timestamp(col string) time.Time {
	v := c.cell(col)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	// Epoch milliseconds, as some scanner apps emit Date.now().
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms > 1e11 {
		return time.UnixMilli(ms).UTC()
	}
	c.bad(col, v)
	return time.Time{}
}
