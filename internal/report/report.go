package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/go-scout-metrics/internal/aggregator"
	"github.com/pable/go-scout-metrics/internal/model"
	"github.com/pable/go-scout-metrics/internal/storage"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
}

// PrintTeamsTable prints the team list.
func PrintTeamsTable(w io.Writer, teams []aggregator.TeamSummary) {
	table := newTable(w)
	table.Header("TEAM", "NAME", "MATCHES", "AVG_PTS")
	for _, t := range teams {
		table.Append(
			strconv.Itoa(t.TeamNum),
			t.Nickname,
			strconv.Itoa(t.MatchesPlayed),
			fmt.Sprintf("%.2f", t.AvgTotalPts),
		)
	}
	table.Render()
}

// PrintMetricList prints the supported metric keys.
func PrintMetricList(w io.Writer, defs []aggregator.MetricDef) {
	table := newTable(w)
	table.Header("KEY", "LABEL", "SHAPE")
	for _, d := range defs {
		table.Append(d.Key, d.Label, string(d.Shape))
	}
	table.Render()
}

// PrintMetricTable prints an event-wide metric, one row per team in result order.
// SAMPLE flags teams with too few scouted matches to trust.
func PrintMetricTable(w io.Writer, res *aggregator.MetricResult) {
	fmt.Fprintf(w, "\n%s (%s)\n\n", res.Def.Label, res.Def.Key)
	table := newTable(w)
	if res.Def.Shape == aggregator.ShapeMode {
		table.Header("TEAM", "MODE", "N", "SAMPLE")
		for _, m := range res.Modes {
			table.Append(strconv.Itoa(m.TeamNum), formatNum(m.Mode), strconv.Itoa(m.Samples), sampleFlag(m.Samples))
		}
		table.Render()
		return
	}
	table.Header("#", "TEAM", "MIN", "AVG", "MEDIAN", "MAX", "N", "SAMPLE")
	for i, r := range res.Ranges {
		table.Append(
			strconv.Itoa(i+1),
			strconv.Itoa(r.TeamNum),
			formatNum(r.Min),
			formatNum(r.Avg),
			formatNum(r.Median),
			formatNum(r.Max),
			strconv.Itoa(r.Samples),
			sampleFlag(r.Samples),
		)
	}
	table.Render()
}

// PrintOverview prints a team profile: headline numbers, equipment, reliability and notes.
func PrintOverview(w io.Writer, ov *aggregator.Overview) {
	adv := ov.Advanced
	fmt.Fprintf(w, "\nTeam %d  |  Matches: %d  |  Role: %s  |  Trench: %s\n\n",
		ov.TeamNum, ov.MatchesPlayed, ov.PrimaryRole, adv.Typical.Trench)

	table := newTable(w)
	table.Header("PHASE", "AVG_PTS", "AVG_FUEL", "SUCCESS%", "MODE_CLIMB", "MAX_PTS")
	table.Append("Auto", formatNum(ov.Auto.AvgTotalPts), formatNum(ov.Auto.AvgFuelPts), pct(ov.Auto.SuccessRate), "—", "—")
	table.Append("Teleop", formatNum(ov.Teleop.AvgTotalPts), formatNum(ov.Teleop.AvgFuelPts), pct(ov.Teleop.HangSuccessRate),
		formatNum(ov.Teleop.ModeClimbLevel), "—")
	table.Append("Match", formatNum(ov.Overall.AvgTotalPts), "—", "—", "—", formatNum(ov.Overall.MaxTotalPts))
	table.Render()

	l := adv.Latest
	fmt.Fprintf(w, "\nChassis: %s  |  Intake: %s  |  Hopper: %s  |  Climber: %s  |  Shooter: %s\n",
		l.Chasis, l.Intake, l.HopperCapacity, yesNo(l.Climber), l.Shooter.Raw)

	rel := adv.Reliability
	status := "OK"
	if rel.CurrentlyBroken {
		status = "BROKEN"
	}
	fmt.Fprintf(w, "Reliability: %s  |  Break rate: %s  |  Broke in: %s  |  Fixed in: %s\n",
		status, pct(ov.BreakRate), joinInts(rel.Broke.Matches), joinInts(rel.Fixed.Matches))

	if len(ov.Comments) == 0 {
		return
	}
	fmt.Fprintln(w, "\nNotes (most recent first):")
	for _, c := range ov.Comments {
		fmt.Fprintf(w, "  M%-4d %-12s %s\n", c.MatchNum, c.Scouter, c.Text)
	}
}

// PrintTrendTable prints a team's per-match totals with z-scores. Anomalies are marked with "*".
func PrintTrendTable(w io.Writer, team int, points []aggregator.TrendPoint) {
	if len(points) == 0 {
		fmt.Fprintf(w, "No matches scouted for team %d.\n", team)
		return
	}
	table := newTable(w)
	table.Header(" ", "MATCH", "TYPE", "TOTAL", "Z")
	for _, p := range points {
		marker := " "
		if p.Anomaly {
			marker = "*"
		}
		table.Append(marker, strconv.Itoa(p.MatchNum), p.MatchType, formatNum(p.MatchTotalPts), fmt.Sprintf("%+.2f", p.ZScore))
	}
	table.Render()
	fmt.Fprintf(w, "\n* |z| > %.1f\n", aggregator.AnomalyThreshold)
}

// PrintRecordsTable prints canonical records, the way `export` shows them on a terminal.
func PrintRecordsTable(w io.Writer, recs []model.Record) {
	table := newTable(w)
	table.Header("TEAM", "MATCH", "TYPE", "AUTO", "TELE", "TOTAL", "HANG", "BROKE", "ROLE", "SUBS")
	for i := range recs {
		r := &recs[i]
		table.Append(
			strconv.Itoa(r.TeamNum),
			strconv.Itoa(r.MatchNum),
			r.MatchType.ShortLabel(),
			formatNum(r.AutoTotalPts),
			formatNum(r.TeleTotalPts),
			formatNum(r.MatchTotalPts),
			formatOptional(r.TeleHang),
			yesNo(r.Broke),
			r.Role.String(),
			strconv.Itoa(r.Submissions),
		)
	}
	table.Render()
}

// PrintUploadsTable prints the upload ledger.
func PrintUploadsTable(w io.Writer, uploads []storage.Upload) {
	table := newTable(w)
	table.Header("ID", "RECEIVED", "SOURCE", "FORMAT", "ROWS", "FROM")
	for _, u := range uploads {
		from := u.RemoteAddr
		if from == "" {
			from = "—"
		}
		table.Append(u.ID[:min(8, len(u.ID))], u.ReceivedAt.Local().Format(time.DateTime), u.Source, u.Format, strconv.Itoa(u.Rows), from)
	}
	table.Render()
}

// sampleFlag grades how many scouted matches back a team's figure.
func sampleFlag(n int) string {
	switch {
	case n >= 8:
		return "OK"
	case n >= 4:
		return "LOW"
	default:
		return "VERY_LOW"
	}
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(n model.Num) string {
	if !n.Valid {
		return "—"
	}
	return formatNum(n.Value)
}

func pct(rate float64) string {
	return fmt.Sprintf("%.0f%%", rate*100)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func joinInts(xs []int) string {
	if len(xs) == 0 {
		return "—"
	}
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ", ")
}
