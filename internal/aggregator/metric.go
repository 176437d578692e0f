package aggregator

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/pable/go-scout-metrics/internal/model"
)

// ErrUnknownMetric is returned for a metric key outside the supported set.
var ErrUnknownMetric = errors.New("unknown metric")

// Shape is the per-team output form of a metric.
type Shape string

const (
	ShapeRange Shape = "range" // min/avg/median/max
	ShapeMode  Shape = "mode"  // most frequent value
)

// MetricDef describes one supported event-wide metric.
type MetricDef struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Shape Shape  `json:"shape"`

	value func(r *model.Record) (float64, bool)
}

var metricDefs = []MetricDef{
	{Key: "match_avg_total_pts", Label: "Total Points", Shape: ShapeRange,
		value: func(r *model.Record) (float64, bool) { return r.MatchTotalPts, true }},
	{Key: "auto_total_pts", Label: "Auto Points", Shape: ShapeRange,
		value: func(r *model.Record) (float64, bool) { return r.AutoTotalPts, true }},
	{Key: "tele_total_pts", Label: "Teleop Points", Shape: ShapeRange,
		value: func(r *model.Record) (float64, bool) { return r.TeleTotalPts, true }},
	{Key: "tele_avg_fuel", Label: "Teleop Fuel", Shape: ShapeRange,
		value: func(r *model.Record) (float64, bool) { return r.TelePts.Value, r.TelePts.Valid }},
	{Key: "auto_success_rate", Label: "Auto Success Rate", Shape: ShapeRange,
		value: func(r *model.Record) (float64, bool) { return indicator(true, r.AutoSuccess()) }},
	{Key: "tele_hang_success_rate", Label: "Teleop Hang Success Rate", Shape: ShapeRange,
		value: func(r *model.Record) (float64, bool) { return indicator(true, r.TeleHangSuccess()) }},
	{Key: "break_rate", Label: "Break Rate", Shape: ShapeRange,
		value: func(r *model.Record) (float64, bool) { return indicator(true, r.Broke) }},
	{Key: "tele_mode_hang", Label: "Teleop Climb Level (mode)", Shape: ShapeMode,
		value: func(r *model.Record) (float64, bool) { return r.TeleHang.Value, r.TeleHang.Valid }},
}

// Metrics lists the supported metric keys in a stable order.
func Metrics() []MetricDef {
	return slices.Clone(metricDefs)
}

// LookupMetric returns the definition for key.
func LookupMetric(key string) (MetricDef, bool) {
	for _, d := range metricDefs {
		if d.Key == key {
			return d, true
		}
	}
	return MetricDef{}, false
}

// TeamRange is one team's distribution of a range-shaped metric.
type TeamRange struct {
	TeamNum int     `json:"team_num"`
	Min     float64 `json:"min"`
	Avg     float64 `json:"avg"`
	Median  float64 `json:"median"`
	Max     float64 `json:"max"`
	Samples int     `json:"samples"`
}

// TeamMode is one team's most frequent value of a mode-shaped metric.
type TeamMode struct {
	TeamNum int     `json:"team_num"`
	Mode    float64 `json:"mode"`
	Samples int     `json:"samples"`
}

// MetricResult is an event-wide metric across all teams. Exactly one of Ranges or Modes is
// populated, according to Def.Shape.
type MetricResult struct {
	Def    MetricDef
	Ranges []TeamRange
	Modes  []TeamMode
}

func (m *MetricResult) MarshalJSON() ([]byte, error) {
	var data any = m.Ranges
	if m.Def.Shape == ShapeMode {
		data = m.Modes
	}
	return json.Marshal(struct {
		Metric string `json:"metric"`
		Label  string `json:"label"`
		Shape  Shape  `json:"shape"`
		Data   any    `json:"data"`
	}{m.Def.Key, m.Def.Label, m.Def.Shape, data})
}

// ComputeMetric groups the dataset by team and summarises one metric per team. Null values
// are left out of a team's statistics; a team with no values gets no entry.
//
// Range output is ordered by average descending, then team ascending. Mode output is
// ordered by team.
func ComputeMetric(ds *model.Dataset, key string) (*MetricResult, error) {
	def, ok := LookupMetric(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, key)
	}

	res := &MetricResult{Def: def, Ranges: []TeamRange{}, Modes: []TeamMode{}}
	for _, team := range ds.Teams() {
		recs := ds.Team(team)
		values := make([]float64, 0, len(recs))
		for i := range recs {
			if v, ok := def.value(&recs[i]); ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}

		if def.Shape == ShapeMode {
			res.Modes = append(res.Modes, TeamMode{TeamNum: team, Mode: round2(mode(values)), Samples: len(values)})
			continue
		}
		slices.Sort(values)
		res.Ranges = append(res.Ranges, TeamRange{
			TeamNum: team,
			Min:     round2(values[0]),
			Avg:     round2(mean(values)),
			Median:  round2(median(values)),
			Max:     round2(values[len(values)-1]),
			Samples: len(values),
		})
	}

	sort.SliceStable(res.Ranges, func(i, j int) bool {
		if res.Ranges[i].Avg != res.Ranges[j].Avg {
			return res.Ranges[i].Avg > res.Ranges[j].Avg
		}
		return res.Ranges[i].TeamNum < res.Ranges[j].TeamNum
	})
	return res, nil
}
