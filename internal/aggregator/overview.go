package aggregator

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/pable/go-scout-metrics/internal/model"
)

// ErrTeamNotFound is returned when the dataset has no records for a team.
var ErrTeamNotFound = errors.New("team not found")

// anonymousScouter labels comments from submissions without a scouter name.
const anonymousScouter = "Anon"

// Overview is a team's rolled-up profile.
type Overview struct {
	TeamNum       int          `json:"team_num"`
	MatchesPlayed int          `json:"matches_played"`
	BreakRate     float64      `json:"break_rate"`
	PrimaryRole   string       `json:"primary_role"`
	Comments      []Comment    `json:"comments"`
	Trend         []MatchEntry `json:"trend"`
	Overall       OverallStats `json:"overall"`
	Auto          AutoStats    `json:"auto"`
	Teleop        TeleopStats  `json:"teleop"`
	Advanced      Advanced     `json:"advanced"`
}

// Comment is the free text of one match, most recent first in Overview.Comments.
type Comment struct {
	MatchNum int    `json:"match_num"`
	Scouter  string `json:"scouter"`
	Text     string `json:"text"`
}

// MatchEntry is one match of the overview history, in match order.
type MatchEntry struct {
	MatchNum  int          `json:"match_num"`
	MatchType string       `json:"match_type"`
	AutoPts   model.Num    `json:"auto_pts"`
	TelePts   model.Num    `json:"tele_pts"`
	TotalPts  float64      `json:"total_pts"`
	Details   MatchDetails `json:"details"`
}

type MatchDetails struct {
	Scouter    string    `json:"scouter"`
	Broke      bool      `json:"broke"`
	Fixed      bool      `json:"fixed"`
	ClimbLevel model.Num `json:"climb_level"`
}

type OverallStats struct {
	AvgTotalPts float64 `json:"avg_total_pts"`
	MaxTotalPts float64 `json:"max_total_pts"`
}

type AutoStats struct {
	AvgTotalPts float64 `json:"avg_total_pts"`
	AvgFuelPts  float64 `json:"avg_fuel_pts"`
	SuccessRate float64 `json:"success_rate"`
}

type TeleopStats struct {
	AvgTotalPts     float64 `json:"avg_total_pts"`
	AvgFuelPts      float64 `json:"avg_fuel_pts"`
	HangSuccessRate float64 `json:"hang_success_rate"`
	ModeClimbLevel  float64 `json:"mode_climb_level"`
}

type Advanced struct {
	Latest      Latest      `json:"latest"`
	Reliability Reliability `json:"reliability"`
	Typical     Typical     `json:"typical"`
}

// Latest is the equipment reported in the team's last match.
type Latest struct {
	Chasis         string  `json:"chasis"`
	Intake         string  `json:"intake"`
	HopperCapacity string  `json:"hopper_capacity"`
	Climber        bool    `json:"climber"`
	Shooter        Shooter `json:"shooter"`
}

type Shooter struct {
	Labels []string `json:"labels"`
	Raw    string   `json:"raw"`
}

type Reliability struct {
	CurrentlyBroken bool        `json:"currently_broken"`
	Broke           BrokeEvents `json:"broke"`
	Fixed           FixedEvents `json:"fixed"`
}

type BrokeEvents struct {
	Occurred  bool  `json:"occurred"`
	Matches   []int `json:"matches"`
	LastMatch *int  `json:"last_match"`
}

type FixedEvents struct {
	Matches   []int `json:"matches"`
	LastMatch *int  `json:"last_match"`
}

// Typical holds the most frequent classification across all matches.
type Typical struct {
	Role   string `json:"role"`
	Trench string `json:"trench"`
}

// BuildOverview rolls up one team's matches. Averages are over the matches that reported the
// field and are 0 when none did.
func BuildOverview(ds *model.Dataset, team int) (*Overview, error) {
	recs := teamMatches(ds, team)
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrTeamNotFound, team)
	}
	latest := &recs[len(recs)-1]

	var (
		totals, autoTotals, teleTotals []float64
		autoFuel, teleFuel, climbs     []float64
		autoOK, hangOK, broke          []float64
		roles, trenches                []float64
	)
	ov := &Overview{
		TeamNum:       team,
		MatchesPlayed: len(recs),
		Trend:         make([]MatchEntry, 0, len(recs)),
	}
	brokeIdx, fixedIdx := -1, -1
	ov.Advanced.Reliability.Broke.Matches = []int{}
	ov.Advanced.Reliability.Fixed.Matches = []int{}

	for i := range recs {
		r := &recs[i]
		totals = append(totals, r.MatchTotalPts)
		autoTotals = append(autoTotals, r.AutoTotalPts)
		teleTotals = append(teleTotals, r.TeleTotalPts)
		if r.AutoPts.Valid {
			autoFuel = append(autoFuel, r.AutoPts.Value)
		}
		if r.TelePts.Valid {
			teleFuel = append(teleFuel, r.TelePts.Value)
		}
		if r.TeleHang.Valid {
			climbs = append(climbs, r.TeleHang.Value)
		}
		// Unreported auto_active/tele_hang count as failures.
		v, _ := indicator(true, r.AutoSuccess())
		autoOK = append(autoOK, v)
		v, _ = indicator(true, r.TeleHangSuccess())
		hangOK = append(hangOK, v)
		v, _ = indicator(true, r.Broke)
		broke = append(broke, v)
		if r.Role != model.RoleUnknown {
			roles = append(roles, float64(r.Role))
		}
		if r.Trench != model.TrenchUnknown {
			trenches = append(trenches, float64(r.Trench))
		}

		rel := &ov.Advanced.Reliability
		if r.Broke {
			brokeIdx = i
			rel.Broke.Matches = append(rel.Broke.Matches, r.MatchNum)
		}
		if r.Fixed {
			fixedIdx = i
			rel.Fixed.Matches = append(rel.Fixed.Matches, r.MatchNum)
		}

		ov.Trend = append(ov.Trend, MatchEntry{
			MatchNum:  r.MatchNum,
			MatchType: r.MatchType.ShortLabel(),
			AutoPts:   r.AutoPts,
			TelePts:   r.TelePts,
			TotalPts:  round2(r.MatchTotalPts),
			Details: MatchDetails{
				Scouter:    scouterName(r.Scouter),
				Broke:      r.Broke,
				Fixed:      r.Fixed,
				ClimbLevel: r.TeleHang,
			},
		})
		if c, ok := matchComment(r); ok {
			ov.Comments = append(ov.Comments, c)
		}
	}
	slices.Reverse(ov.Comments)
	if ov.Comments == nil {
		ov.Comments = []Comment{}
	}

	ov.BreakRate = round2(mean(broke))
	ov.PrimaryRole = categoryLabel(roles, func(code int) string { return model.Role(code).String() })

	ov.Overall = OverallStats{AvgTotalPts: round2(mean(totals)), MaxTotalPts: round2(slices.Max(totals))}
	ov.Auto = AutoStats{
		AvgTotalPts: round2(mean(autoTotals)),
		AvgFuelPts:  round2(mean(autoFuel)),
		SuccessRate: round2(mean(autoOK)),
	}
	ov.Teleop = TeleopStats{
		AvgTotalPts:     round2(mean(teleTotals)),
		AvgFuelPts:      round2(mean(teleFuel)),
		HangSuccessRate: round2(mean(hangOK)),
		ModeClimbLevel:  round2(mode(climbs)),
	}

	labels, raw := model.ShooterLabels(latest.Shooters)
	ov.Advanced.Latest = Latest{
		Chasis:         latest.Chassis.String(),
		Intake:         latest.Intake.String(),
		HopperCapacity: latest.Hopper.String(),
		Climber:        latest.Climber,
		Shooter:        Shooter{Labels: labels, Raw: raw},
	}

	rel := &ov.Advanced.Reliability
	rel.CurrentlyBroken = brokeIdx >= 0 && fixedIdx < brokeIdx
	rel.Broke.Occurred = len(rel.Broke.Matches) > 0
	rel.Broke.LastMatch = lastOf(rel.Broke.Matches)
	rel.Fixed.LastMatch = lastOf(rel.Fixed.Matches)

	ov.Advanced.Typical = Typical{
		Role:   ov.PrimaryRole,
		Trench: categoryLabel(trenches, func(code int) string { return model.Trench(code).String() }),
	}
	return ov, nil
}

// categoryLabel renders the most frequent known code, or N/A when there is none.
func categoryLabel(codes []float64, label func(int) string) string {
	if len(codes) == 0 {
		return model.NotAvailable
	}
	return label(int(mode(codes)))
}

func matchComment(r *model.Record) (Comment, bool) {
	var parts []string
	if r.AutoComm != "" {
		parts = append(parts, "[Auto] "+r.AutoComm)
	}
	if r.TeleComm != "" {
		parts = append(parts, "[Tele] "+r.TeleComm)
	}
	if r.Comments != "" {
		parts = append(parts, r.Comments)
	}
	if len(parts) == 0 {
		return Comment{}, false
	}
	return Comment{MatchNum: r.MatchNum, Scouter: scouterName(r.Scouter), Text: strings.Join(parts, " | ")}, true
}

func scouterName(s string) string {
	if s == "" {
		return anonymousScouter
	}
	return s
}

func lastOf(xs []int) *int {
	if len(xs) == 0 {
		return nil
	}
	v := xs[len(xs)-1]
	return &v
}
