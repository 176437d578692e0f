package model

import (
	"math"
	"slices"
	"strconv"
	"time"
)

// MatchType is the competition phase a match belongs to.
type MatchType int

const (
	MatchPractice MatchType = iota
	MatchQualification
	MatchPlayoff
)

func (t MatchType) String() string {
	switch t {
	case MatchPractice:
		return "Practice"
	case MatchPlayoff:
		return "Playoff"
	default:
		return "Qualification"
	}
}

// Rank orders match types for "latest state" decisions: Practice < Qualification < Playoff.
func (t MatchType) Rank() int { return int(t) }

// ShortLabel is the label used by the dashboard trend view ("Quals" for qualification).
func (t MatchType) ShortLabel() string {
	if t == MatchQualification {
		return "Quals"
	}
	return t.String()
}

func (t MatchType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// ParseMatchType maps a cell to a MatchType. Anything unrecognised is a qualification match.
func ParseMatchType(s string) MatchType {
	switch normLabel(s) {
	case "PRACTICE", "P":
		return MatchPractice
	case "PLAYOFF", "PLAYOFFS", "ELIM", "ELIMINATION":
		return MatchPlayoff
	default:
		return MatchQualification
	}
}

// Num is an optional numeric cell. The zero value is null, which is distinct from an explicit 0.
type Num struct {
	Value float64
	Valid bool
}

// Some returns a valid Num holding v.
func Some(v float64) Num { return Num{Value: v, Valid: true} }

// Or returns the value, or def when null.
func (n Num) Or(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.Value
}

// Is reports whether the value is present and equal to v.
func (n Num) Is(v float64) bool { return n.Valid && n.Value == v }

func (n Num) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, n.Value, 'f', -1, 64), nil
}

func (n *Num) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = Num{}
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*n = Some(v)
	return nil
}

// Point values for climbs; the remaining components are scored directly.
const (
	AutoHangPoints = 15
	TeleHangPoints = 10
)

// Record is one canonical scouting entry for a (team, match) pair. Records are built by the
// normalizer and never modified afterwards.
type Record struct {
	TeamNum   int       `json:"team_num"`
	MatchNum  int       `json:"match_num"`
	MatchType MatchType `json:"match_type"`
	Alliance  string    `json:"alliance"`
	Scouter   string    `json:"scouter"`
	StartZone string    `json:"start_zone"`

	AutoActive Num `json:"auto_active"`
	AutoHang   Num `json:"auto_hang"`
	AutoPts    Num `json:"auto_pts"`
	TelePts    Num `json:"tele_pts"`
	TeleHang   Num `json:"tele_hang"`

	AutoTotalPts  float64 `json:"auto_total_pts"`
	TeleTotalPts  float64 `json:"tele_total_pts"`
	MatchTotalPts float64 `json:"match_total_pts"`

	Broke   bool `json:"adv_broke"`
	Fixed   bool `json:"adv_fixed"`
	Climber bool `json:"adv_climber"`

	Role     Role      `json:"adv_role"`
	Chassis  Chassis   `json:"adv_chasis"`
	Intake   Intake    `json:"adv_intake"`
	Hopper   Hopper    `json:"adv_hoppercapacity"`
	Trench   Trench    `json:"adv_trench"`
	Shooters []Shooter `json:"adv_shooter"`

	AutoComm string `json:"auto_comm"`
	TeleComm string `json:"tele_comm"`
	Comments string `json:"adv_comments"`

	// Timestamp is the zero time when the submission carried none.
	Timestamp   time.Time `json:"timestamp"`
	Submissions int       `json:"submissions"`
}

// Key is the dataset primary key.
type Key struct {
	TeamNum  int
	MatchNum int
}

func (r *Record) Key() Key { return Key{TeamNum: r.TeamNum, MatchNum: r.MatchNum} }

// HasTimestamp reports whether the submission time is known.
func (r *Record) HasTimestamp() bool { return !r.Timestamp.IsZero() }

// AutoSuccess is auto_active == 1; null counts as false.
func (r *Record) AutoSuccess() bool { return r.AutoActive.Is(1) }

// AutoHangSuccess is auto_hang == 1; null counts as false.
func (r *Record) AutoHangSuccess() bool { return r.AutoHang.Is(1) }

// TeleHangSuccess reports any teleop climb (level 1 or above); null counts as false.
func (r *Record) TeleHangSuccess() bool { return r.TeleHang.Valid && r.TeleHang.Value >= 1 }

// Derive fills the computed point totals from zero-filled components.
func (r *Record) Derive() {
	r.AutoTotalPts = nonNeg(r.AutoPts.Or(0) + r.AutoHang.Or(0)*AutoHangPoints)
	r.TeleTotalPts = nonNeg(r.TelePts.Or(0) + r.TeleHang.Or(0)*TeleHangPoints)
	r.MatchTotalPts = r.AutoTotalPts + r.TeleTotalPts
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	r.Shooters = slices.Clone(r.Shooters)
	return r
}

func nonNeg(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

// Less orders records by match type rank, then match number.
func Less(a, b *Record) bool {
	if a.MatchType.Rank() != b.MatchType.Rank() {
		return a.MatchType.Rank() < b.MatchType.Rank()
	}
	return a.MatchNum < b.MatchNum
}
