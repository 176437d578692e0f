package aggregator

import (
	"math"
	"sort"

	"github.com/pable/go-scout-metrics/internal/model"
)

// AnomalyThreshold is the |z| above which a match is flagged.
const AnomalyThreshold = 1.5

// TrendPoint is one match of a team's scoring history.
type TrendPoint struct {
	MatchNum      int     `json:"match_num"`
	MatchType     string  `json:"match_type"`
	MatchTotalPts float64 `json:"match_total_pts"`
	ZScore        float64 `json:"z_score"`
	Anomaly       bool    `json:"anomaly"`
}

// ComputeTrend scores each of a team's matches against the team's own history:
// z = (total - mean) / stddev, with population stddev and 1 substituted for 0.
// Points are ascending by match number. An unknown team yields an empty, non-nil slice.
func ComputeTrend(ds *model.Dataset, team int) []TrendPoint {
	recs := ds.Team(team)
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].MatchNum != recs[j].MatchNum {
			return recs[i].MatchNum < recs[j].MatchNum
		}
		return recs[i].MatchType.Rank() < recs[j].MatchType.Rank()
	})

	totals := make([]float64, len(recs))
	for i := range recs {
		totals[i] = recs[i].MatchTotalPts
	}
	m, sd := meanStdDev(totals)
	if sd == 0 {
		sd = 1
	}

	out := make([]TrendPoint, 0, len(recs))
	for i := range recs {
		z := (totals[i] - m) / sd
		out = append(out, TrendPoint{
			MatchNum:      recs[i].MatchNum,
			MatchType:     recs[i].MatchType.ShortLabel(),
			MatchTotalPts: round2(totals[i]),
			ZScore:        round2(z),
			Anomaly:       math.Abs(z) > AnomalyThreshold,
		})
	}
	return out
}
