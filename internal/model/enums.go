package model

import (
	"strconv"
	"strings"
)

// Unknown is the code every equipment enum uses for missing or unrecognised values.
const Unknown = -1

// NotAvailable is how an Unknown code renders.
const NotAvailable = "N/A"

// codeTable is a fixed code->label mapping. Lookups are total: anything outside the table is Unknown.
type codeTable []string

func (t codeTable) label(code int) string {
	if code < 0 || code >= len(t) {
		return NotAvailable
	}
	return t[code]
}

// resolve accepts a numeric code or a label (case/space-insensitive).
func (t codeTable) resolve(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unknown
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		code := int(f)
		if float64(code) == f && code >= 0 && code < len(t) {
			return code
		}
		return Unknown
	}
	want := normLabel(s)
	for code, l := range t {
		if normLabel(l) == want {
			return code
		}
	}
	return Unknown
}

func normLabel(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

var (
	chassisLabels = codeTable{"TANK", "SWERVE", "MECANUM", "CUSTOM"}
	intakeLabels  = codeTable{"OVER BUMPER", "UNDER BUMPER", "NONE"}
	hopperLabels  = codeTable{"0-20", "21-40", "41-60", "61+"}
	roleLabels    = codeTable{"SCORER", "FEEDER", "DEFENSE", "NONE"}
	trenchLabels  = codeTable{"TRENCH", "BUMP", "BOTH", "NONE"}
	shooterLabels = codeTable{"TURRET", "HOOD", "DUAL", "FIXED"}
)

// Chassis is the drivetrain type.
type Chassis int

const (
	ChassisUnknown Chassis = Unknown
	ChassisTank    Chassis = 0
	ChassisSwerve  Chassis = 1
	ChassisMecanum Chassis = 2
	ChassisCustom  Chassis = 3
)

func ParseChassis(s string) Chassis { return Chassis(chassisLabels.resolve(s)) }
func (c Chassis) String() string { return chassisLabels.label(int(c)) }
func (c Chassis) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Intake is the game-piece intake style.
type Intake int

const (
	IntakeUnknown     Intake = Unknown
	IntakeOverBumper  Intake = 0
	IntakeUnderBumper Intake = 1
	IntakeNone        Intake = 2
)

func ParseIntake(s string) Intake { return Intake(intakeLabels.resolve(s)) }
func (i Intake) String() string { return intakeLabels.label(int(i)) }
func (i Intake) MarshalText() ([]byte, error) { return []byte(i.String()), nil }

// Hopper is the hopper capacity bucket.
type Hopper int

const (
	HopperUnknown Hopper = Unknown
	Hopper0to20   Hopper = 0
	Hopper21to40  Hopper = 1
	Hopper41to60  Hopper = 2
	Hopper61Plus  Hopper = 3
)

func ParseHopper(s string) Hopper { return Hopper(hopperLabels.resolve(s)) }
func (h Hopper) String() string { return hopperLabels.label(int(h)) }
func (h Hopper) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

// Role is the robot's on-field role.
type Role int

const (
	RoleUnknown Role = Unknown
	RoleScorer  Role = 0
	RoleFeeder  Role = 1
	RoleDefense Role = 2
	RoleNone    Role = 3
)

func ParseRole(s string) Role { return Role(roleLabels.resolve(s)) }
func (r Role) String() string { return roleLabels.label(int(r)) }
func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// Trench is how the robot crosses the field obstacles.
type Trench int

const (
	TrenchUnknown Trench = Unknown
	TrenchTrench  Trench = 0
	TrenchBump    Trench = 1
	TrenchBoth    Trench = 2
	TrenchNone    Trench = 3
)

func ParseTrench(s string) Trench { return Trench(trenchLabels.resolve(s)) }
func (t Trench) String() string { return trenchLabels.label(int(t)) }
func (t Trench) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Shooter is one shooter mechanism; a robot may list several.
type Shooter int

const (
	ShooterUnknown Shooter = Unknown
	ShooterTurret  Shooter = 0
	ShooterHood    Shooter = 1
	ShooterDual    Shooter = 2
	ShooterFixed   Shooter = 3
)

func ParseShooter(s string) Shooter { return Shooter(shooterLabels.resolve(s)) }

func (s Shooter) String() string {
	if int(s) < 0 || int(s) >= len(shooterLabels) {
		return "UNKNOWN"
	}
	return shooterLabels[s]
}

func (s Shooter) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ParseShooters parses a hyphen-delimited list of shooter codes ("1-2-4") or a single code/label.
// Codes outside the table are kept and render as "UNKNOWN". Entries that are neither non-negative
// integers nor known labels are skipped; empty input yields an empty list.
func ParseShooters(s string) []Shooter {
	s = strings.TrimSpace(s)
	if s == "" {
		return []Shooter{}
	}
	out := []Shooter{}
	for _, part := range strings.Split(s, "-") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if n, err := strconv.Atoi(part); err == nil {
			if n < 0 {
				continue
			}
			out = append(out, Shooter(n))
			continue
		}
		if code := shooterLabels.resolve(part); code != Unknown {
			out = append(out, Shooter(code))
		}
	}
	return out
}

// ShooterLabels renders a shooter list, and the combined "A + B" form ("NONE" when empty).
func ShooterLabels(ss []Shooter) (labels []string, raw string) {
	labels = make([]string, 0, len(ss))
	for _, s := range ss {
		labels = append(labels, s.String())
	}
	if len(labels) == 0 {
		return labels, "NONE"
	}
	return labels, strings.Join(labels, " + ")
}
