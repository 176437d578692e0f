package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDeriveZeroFillsMissingComponents(t *testing.T) {
	r := Record{TelePts: Some(20), TeleHang: Some(1)}
	r.Derive()
	if r.AutoTotalPts != 0 {
		t.Errorf("auto total: want 0, got %v", r.AutoTotalPts)
	}
	if r.TeleTotalPts != 30 {
		t.Errorf("tele total: want 30, got %v", r.TeleTotalPts)
	}
	if r.MatchTotalPts != 30 {
		t.Errorf("match total: want 30, got %v", r.MatchTotalPts)
	}
}

func TestDeriveFormula(t *testing.T) {
	r := Record{AutoPts: Some(11), AutoHang: Some(1), TelePts: Some(19), TeleHang: Some(2)}
	r.Derive()
	want := 11.0 + 15 + 19 + 20
	if r.MatchTotalPts != want {
		t.Errorf("match total: want %v, got %v", want, r.MatchTotalPts)
	}
}

func TestParseMatchType(t *testing.T) {
	cases := map[string]MatchType{
		"Practice":      MatchPractice,
		" playoff ":     MatchPlayoff,
		"Qualification": MatchQualification,
		"":              MatchQualification,
		"garbage":       MatchQualification,
	}
	for in, want := range cases {
		if got := ParseMatchType(in); got != want {
			t.Errorf("ParseMatchType(%q): want %v, got %v", in, want, got)
		}
	}
	if !(MatchPractice.Rank() < MatchQualification.Rank() && MatchQualification.Rank() < MatchPlayoff.Rank()) {
		t.Error("match type ranks out of order")
	}
}

func TestEnumResolution(t *testing.T) {
	if got := ParseChassis("1"); got != ChassisSwerve {
		t.Errorf("chassis code 1: got %v", got)
	}
	if got := ParseHopper("41-60"); got != Hopper41to60 {
		t.Errorf("hopper label: got %v", got)
	}
	if got := ParseRole("none"); got != RoleNone {
		t.Errorf("role label: got %v", got)
	}
	if got := ParseIntake("under_bumper"); got != IntakeUnderBumper {
		t.Errorf("intake label: got %v", got)
	}
	for _, in := range []string{"", "-1", "9", "1.5", "banana"} {
		if got := ParseTrench(in); got != TrenchUnknown {
			t.Errorf("ParseTrench(%q): want unknown, got %v", in, got)
		}
	}
	if ChassisUnknown.String() != NotAvailable {
		t.Errorf("unknown chassis renders %q", ChassisUnknown.String())
	}
	if Role(42).String() != NotAvailable {
		t.Errorf("out-of-table role renders %q", Role(42).String())
	}
}

func TestParseShooters(t *testing.T) {
	got := ParseShooters("1-2-4")
	want := []Shooter{1, 2, 4}
	if len(got) != len(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: want %v, got %v", i, want[i], got[i])
		}
	}
	labels, raw := ShooterLabels(got)
	if raw != "HOOD + DUAL + UNKNOWN" {
		t.Errorf("raw label: %q (%v)", raw, labels)
	}

	if got := ParseShooters(""); got == nil || len(got) != 0 {
		t.Errorf("empty input: want empty non-nil slice, got %#v", got)
	}
	if got := ParseShooters("x-y"); len(got) != 0 {
		t.Errorf("unparseable input: want empty, got %v", got)
	}
	if got := ParseShooters("dual"); len(got) != 1 || got[0] != ShooterDual {
		t.Errorf("label input: got %v", got)
	}
	if _, raw := ShooterLabels(nil); raw != "NONE" {
		t.Errorf("no shooters: %q", raw)
	}
}

func TestNumJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Num `json:"a"`
		B Num `json:"b"`
	}{A: Some(0), B: Num{}})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"a":0,"b":null}` {
		t.Errorf("got %s", b)
	}
}

func TestDatasetCopiesAreIndependent(t *testing.T) {
	ds := NewDataset([]Record{
		{TeamNum: 2, MatchNum: 1, Shooters: []Shooter{ShooterHood}},
		{TeamNum: 1, MatchNum: 3},
		{TeamNum: 2, MatchNum: 2},
	}, time.Unix(100, 0), time.Unix(200, 0))

	recs := ds.Team(2)
	if len(recs) != 2 {
		t.Fatalf("team 2: want 2 records, got %d", len(recs))
	}
	recs[0].MatchNum = 99
	recs[0].Shooters[0] = ShooterTurret

	again := ds.Team(2)
	if again[0].MatchNum != 1 || again[0].Shooters[0] != ShooterHood {
		t.Error("mutating a returned record leaked into the dataset")
	}
	if teams := ds.Teams(); len(teams) != 2 || teams[0] != 1 || teams[1] != 2 {
		t.Errorf("teams: got %v", teams)
	}
	if Empty().Len() != 0 {
		t.Error("empty dataset has records")
	}
}
