package normalize

import (
	"slices"
	"sort"

	"github.com/pable/go-scout-metrics/internal/model"
)

// Deduplicate merges records sharing a (team_num, match_num) key into one record per key.
//
// Merge policy per field group:
//   - performance numbers: mean over the submissions that reported a value (null if none did)
//   - adv_broke / adv_fixed: logical OR
//   - enum-coded classification and match type: mode over known values, ties to the first
//     value seen in input order; Unknown when no submission had a known value
//   - free text, shooter list, alliance, scouter, start zone, climber, timestamp: the
//     chronologically last submission; undated submissions sort before dated ones and
//     otherwise keep input order, so without timestamps the last occurrence wins
//
// The result is ordered by team, then match type rank, then match number.
func Deduplicate(records []model.Record) []model.Record {
	groups := make(map[model.Key][]int, len(records))
	order := make([]model.Key, 0, len(records))
	for i := range records {
		k := records[i].Key()
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	out := make([]model.Record, 0, len(order))
	for _, k := range order {
		idx := groups[k]
		group := make([]model.Record, len(idx))
		for j, i := range idx {
			group[j] = records[i]
		}
		out = append(out, merge(group))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TeamNum != out[j].TeamNum {
			return out[i].TeamNum < out[j].TeamNum
		}
		return model.Less(&out[i], &out[j])
	})
	return out
}

// merge collapses one key's submissions, given in input order.
func merge(group []model.Record) model.Record {
	if len(group) == 1 {
		return group[0].Clone()
	}

	chrono := slices.Clone(group)
	sort.SliceStable(chrono, func(i, j int) bool {
		a, b := chrono[i].Timestamp, chrono[j].Timestamp
		if a.IsZero() || b.IsZero() {
			return a.IsZero() && !b.IsZero()
		}
		return a.Before(b)
	})

	out := chrono[len(chrono)-1].Clone()
	out.Submissions = 0
	for i := range group {
		out.Submissions += group[i].Submissions
		out.Broke = out.Broke || group[i].Broke
		out.Fixed = out.Fixed || group[i].Fixed
	}

	out.AutoActive = meanOf(group, func(r *model.Record) model.Num { return r.AutoActive })
	out.AutoHang = meanOf(group, func(r *model.Record) model.Num { return r.AutoHang })
	out.AutoPts = meanOf(group, func(r *model.Record) model.Num { return r.AutoPts })
	out.TelePts = meanOf(group, func(r *model.Record) model.Num { return r.TelePts })
	out.TeleHang = meanOf(group, func(r *model.Record) model.Num { return r.TeleHang })

	out.MatchType = modeOf(group, func(r *model.Record) model.MatchType { return r.MatchType }, -1)
	out.Role = modeOf(group, func(r *model.Record) model.Role { return r.Role }, model.RoleUnknown)
	out.Chassis = modeOf(group, func(r *model.Record) model.Chassis { return r.Chassis }, model.ChassisUnknown)
	out.Intake = modeOf(group, func(r *model.Record) model.Intake { return r.Intake }, model.IntakeUnknown)
	out.Hopper = modeOf(group, func(r *model.Record) model.Hopper { return r.Hopper }, model.HopperUnknown)
	out.Trench = modeOf(group, func(r *model.Record) model.Trench { return r.Trench }, model.TrenchUnknown)

	out.Derive()
	return out
}

func meanOf(group []model.Record, get func(*model.Record) model.Num) model.Num {
	var sum float64
	var n int
	for i := range group {
		if v := get(&group[i]); v.Valid {
			sum += v.Value
			n++
		}
	}
	if n == 0 {
		return model.Num{}
	}
	return model.Some(sum / float64(n))
}

// modeOf returns the most frequent value other than unknown. Ties go to the value seen first.
func modeOf[T comparable](group []model.Record, get func(*model.Record) T, unknown T) T {
	counts := make(map[T]int)
	var seen []T
	for i := range group {
		v := get(&group[i])
		if v == unknown {
			continue
		}
		if counts[v] == 0 {
			seen = append(seen, v)
		}
		counts[v]++
	}
	best, bestN := unknown, 0
	for _, v := range seen {
		if counts[v] > bestN {
			best, bestN = v, counts[v]
		}
	}
	return best
}
