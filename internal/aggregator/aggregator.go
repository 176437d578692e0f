// Package aggregator computes the read-side views over a canonical dataset: event-wide
// metric distributions, the per-team overview, the per-team anomaly trend and the team list.
// Every function is a pure computation over an immutable snapshot.
package aggregator

import (
	"fmt"
	"sort"

	"github.com/pable/go-scout-metrics/internal/model"
)

// teamMatches returns a team's records in match order: type rank, then match number.
func teamMatches(ds *model.Dataset, team int) []model.Record {
	recs := ds.Team(team)
	sort.SliceStable(recs, func(i, j int) bool { return model.Less(&recs[i], &recs[j]) })
	return recs
}

// TeamSummary is one entry of the team list.
type TeamSummary struct {
	TeamNum       int     `json:"team_num"`
	Nickname      string  `json:"nickname"`
	MatchesPlayed int     `json:"matches_played"`
	AvgTotalPts   float64 `json:"avg_total_pts"`
}

// ListTeams returns every team in the dataset, ascending by team number.
func ListTeams(ds *model.Dataset) []TeamSummary {
	teams := ds.Teams()
	out := make([]TeamSummary, 0, len(teams))
	for _, team := range teams {
		recs := ds.Team(team)
		totals := make([]float64, len(recs))
		for i := range recs {
			totals[i] = recs[i].MatchTotalPts
		}
		out = append(out, TeamSummary{
			TeamNum:       team,
			Nickname:      fmt.Sprintf("Team %d", team),
			MatchesPlayed: len(recs),
			AvgTotalPts:   round2(mean(totals)),
		})
	}
	return out
}
