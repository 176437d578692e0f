package normalize

import (
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-scout-metrics/internal/model"
)

func mustNormalize(t *testing.T, raws ...model.RawRecord) []model.Record {
	t.Helper()
	recs, st := Normalize(raws, nil)
	require.Zero(t, st.Dropped)
	return recs
}

func TestDeduplicate_TwoScoutsSameMatch(t *testing.T) {
	recs := mustNormalize(t,
		model.RawRecord{"team_num": "100", "match_num": "1", "auto_pts": "10", "auto_hang": "0", "tele_pts": "20", "tele_hang": "1"},
		model.RawRecord{"team_num": "100", "match_num": "1", "auto_pts": "12", "auto_hang": "0", "tele_pts": "18", "tele_hang": "1"},
	)
	out := Deduplicate(recs)
	require.Len(t, out, 1)

	r := out[0]
	assert.Equal(t, model.Some(11), r.AutoPts)
	assert.Equal(t, model.Some(19), r.TelePts)
	assert.Equal(t, model.Some(1), r.TeleHang)
	assert.Equal(t, 40.0, r.MatchTotalPts)
	assert.Equal(t, 2, r.Submissions)
}

func TestDeduplicate_MeanIgnoresNulls(t *testing.T) {
	recs := mustNormalize(t,
		model.RawRecord{"team_num": "7", "match_num": "2", "auto_pts": "-1"},
		model.RawRecord{"team_num": "7", "match_num": "2", "auto_pts": "6"},
		model.RawRecord{"team_num": "7", "match_num": "2"},
	)
	out := Deduplicate(recs)
	require.Len(t, out, 1)
	assert.Equal(t, model.Some(6), out[0].AutoPts)
	assert.False(t, out[0].TelePts.Valid)
}

func TestDeduplicate_FlagsAreOred(t *testing.T) {
	recs := mustNormalize(t,
		model.RawRecord{"team_num": "7", "match_num": "2", "adv_broke": "1", "adv_fixed": "0"},
		model.RawRecord{"team_num": "7", "match_num": "2", "adv_broke": "0", "adv_fixed": "1"},
	)
	out := Deduplicate(recs)
	require.Len(t, out, 1)
	assert.True(t, out[0].Broke)
	assert.True(t, out[0].Fixed)
}

func TestDeduplicate_RoleModeAndTies(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  model.Role
	}{
		{name: "majority", roles: []string{"0", "2", "2"}, want: model.RoleDefense},
		{name: "tie goes to first seen", roles: []string{"1", "0", "0", "1"}, want: model.RoleFeeder},
		{name: "unknowns ignored", roles: []string{"", "-1", "3"}, want: model.RoleNone},
		{name: "all unknown", roles: []string{"", "banana"}, want: model.RoleUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raws []model.RawRecord
			for _, role := range tt.roles {
				raws = append(raws, model.RawRecord{"team_num": "5", "match_num": "9", "adv_role": role})
			}
			out := Deduplicate(mustNormalize(t, raws...))
			require.Len(t, out, 1)
			assert.Equal(t, tt.want, out[0].Role)
		})
	}
}

func TestDeduplicate_LatestTimestampWinsFreeText(t *testing.T) {
	recs := mustNormalize(t,
		model.RawRecord{"team_num": "3", "match_num": "4", "timestamp": "2026-03-01T10:05:00Z", "scouter": "late", "adv_comments": "second look", "adv_shooter": "0"},
		model.RawRecord{"team_num": "3", "match_num": "4", "timestamp": "2026-03-01T10:00:00Z", "scouter": "early", "adv_comments": "first look", "adv_shooter": "1-2"},
		model.RawRecord{"team_num": "3", "match_num": "4", "scouter": "undated", "adv_comments": "no clock"},
	)
	out := Deduplicate(recs)
	require.Len(t, out, 1)
	assert.Equal(t, "late", out[0].Scouter)
	assert.Equal(t, "second look", out[0].Comments)
	assert.Equal(t, []model.Shooter{model.ShooterTurret}, out[0].Shooters)
	assert.Equal(t, 3, out[0].Submissions)
}

func TestDeduplicate_NoTimestampLastOccurrenceWins(t *testing.T) {
	recs := mustNormalize(t,
		model.RawRecord{"team_num": "3", "match_num": "4", "tele_comm": "first"},
		model.RawRecord{"team_num": "3", "match_num": "4", "tele_comm": "second"},
	)
	out := Deduplicate(recs)
	require.Len(t, out, 1)
	assert.Equal(t, "second", out[0].TeleComm)
}

func TestDeduplicate_OrderedByTeamThenMatch(t *testing.T) {
	recs := mustNormalize(t,
		model.RawRecord{"team_num": "20", "match_num": "1"},
		model.RawRecord{"team_num": "10", "match_num": "5", "match_type": "Playoff"},
		model.RawRecord{"team_num": "10", "match_num": "8"},
		model.RawRecord{"team_num": "10", "match_num": "2", "match_type": "Practice"},
	)
	out := Deduplicate(recs)
	got := make([]string, 0, len(out))
	for _, r := range out {
		got = append(got, fmt.Sprintf("%d/%d", r.TeamNum, r.MatchNum))
	}
	assert.Equal(t, []string{"10/2", "10/8", "10/5", "20/1"}, got)
}

// Randomised scouting batches: keys stay unique and totals stay consistent after merging.
func TestDeduplicate_Properties(t *testing.T) {
	faker := gofakeit.New(42)
	for round := 0; round < 25; round++ {
		var raws []model.RawRecord
		n := faker.Number(1, 120)
		for i := 0; i < n; i++ {
			raws = append(raws, model.RawRecord{
				"team_num":  strconv.Itoa(faker.Number(1, 6)),
				"match_num": strconv.Itoa(faker.Number(1, 8)),
				"timestamp": faker.DateRange(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)).Format(time.RFC3339),
				"auto_pts":  faker.RandomString([]string{"", "-1", "x", strconv.Itoa(faker.Number(0, 30))}),
				"auto_hang": faker.RandomString([]string{"", "0", "1"}),
				"tele_pts":  strconv.Itoa(faker.Number(0, 80)),
				"tele_hang": faker.RandomString([]string{"-1", "0", "1", "2", "3"}),
				"adv_broke": faker.RandomString([]string{"0", "1", ""}),
				"adv_role":  faker.RandomString([]string{"0", "1", "2", "3", "", "?"}),
				"scouter":   faker.Name(),
			})
		}
		recs, _ := Normalize(raws, nil)
		out := Deduplicate(recs)

		keys := make(map[model.Key]struct{}, len(out))
		subs := 0
		for _, r := range out {
			keys[r.Key()] = struct{}{}
			subs += r.Submissions

			want := r.AutoPts.Or(0) + r.AutoHang.Or(0)*15 + r.TelePts.Or(0) + r.TeleHang.Or(0)*10
			assert.InDelta(t, want, r.MatchTotalPts, 1e-9)
			assert.GreaterOrEqual(t, r.MatchTotalPts, 0.0)
		}
		require.Len(t, keys, len(out), "duplicate key after dedup")
		assert.Equal(t, len(recs), subs, "every submission is accounted for")
	}
}
