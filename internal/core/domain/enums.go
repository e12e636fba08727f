package domain

import "fmt"

// SegmentStatus is the surface condition of a segment.
type SegmentStatus uint8

const (
	StatusOptimal SegmentStatus = iota + 1
	StatusMedium
	StatusSufficient
	StatusRequiresMaintenance
)

// SegmentStatuses lists every status in declaration order.
var SegmentStatuses = []SegmentStatus{StatusOptimal, StatusMedium, StatusSufficient, StatusRequiresMaintenance}

func (s SegmentStatus) String() string {
	switch s {
	case StatusOptimal:
		return "OPTIMAL"
	case StatusMedium:
		return "MEDIUM"
	case StatusSufficient:
		return "SUFFICIENT"
	case StatusRequiresMaintenance:
		return "REQUIRES_MAINTENANCE"
	}
	return fmt.Sprintf("SegmentStatus(%d)", uint8(s))
}

// Valid reports whether s is one of the declared statuses.
func (s SegmentStatus) Valid() bool {
	return s >= StatusOptimal && s <= StatusRequiresMaintenance
}

// Multiplier is the length weight applied by the path scorer.
func (s SegmentStatus) Multiplier() float64 {
	switch s {
	case StatusOptimal:
		return 1.0
	case StatusMedium:
		return 1.2
	case StatusSufficient:
		return 1.5
	case StatusRequiresMaintenance:
		return 2.0
	}
	panic(fmt.Sprintf("domain: multiplier for unknown %s", s))
}

// ParseSegmentStatus converts the wire name into a SegmentStatus.
func ParseSegmentStatus(v string) (SegmentStatus, error) {
	for _, s := range SegmentStatuses {
		if s.String() == v {
			return s, nil
		}
	}
	return 0, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown segment status %q", v)}
}

func (s SegmentStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("marshal %s: invalid value", s)
	}
	return []byte(s.String()), nil
}

func (s *SegmentStatus) UnmarshalText(b []byte) error {
	v, err := ParseSegmentStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ObstacleType classifies a reported obstacle.
type ObstacleType uint8

const (
	ObstaclePothole ObstacleType = iota + 1
	ObstacleRoughSurface
	ObstacleDebris
	ObstacleConstruction
	ObstacleOther
)

// ObstacleTypes lists every type in declaration order.
var ObstacleTypes = []ObstacleType{ObstaclePothole, ObstacleRoughSurface, ObstacleDebris, ObstacleConstruction, ObstacleOther}

func (t ObstacleType) String() string {
	switch t {
	case ObstaclePothole:
		return "POTHOLE"
	case ObstacleRoughSurface:
		return "ROUGH_SURFACE"
	case ObstacleDebris:
		return "DEBRIS"
	case ObstacleConstruction:
		return "CONSTRUCTION"
	case ObstacleOther:
		return "OTHER"
	}
	return fmt.Sprintf("ObstacleType(%d)", uint8(t))
}

// Valid reports whether t is one of the declared types.
func (t ObstacleType) Valid() bool {
	return t >= ObstaclePothole && t <= ObstacleOther
}

// ParseObstacleType converts the wire name into an ObstacleType.
func ParseObstacleType(v string) (ObstacleType, error) {
	for _, t := range ObstacleTypes {
		if t.String() == v {
			return t, nil
		}
	}
	return 0, &ValidationError{Field: "type", Message: fmt.Sprintf("unknown obstacle type %q", v)}
}

func (t ObstacleType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("marshal %s: invalid value", t)
	}
	return []byte(t.String()), nil
}

func (t *ObstacleType) UnmarshalText(b []byte) error {
	v, err := ParseObstacleType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ObstacleSeverity grades how much an obstacle impedes riders.
type ObstacleSeverity uint8

const (
	SeverityMinor ObstacleSeverity = iota + 1
	SeverityModerate
	SeveritySevere
)

// ObstacleSeverities lists every severity in declaration order.
var ObstacleSeverities = []ObstacleSeverity{SeverityMinor, SeverityModerate, SeveritySevere}

func (s ObstacleSeverity) String() string {
	switch s {
	case SeverityMinor:
		return "MINOR"
	case SeverityModerate:
		return "MODERATE"
	case SeveritySevere:
		return "SEVERE"
	}
	return fmt.Sprintf("ObstacleSeverity(%d)", uint8(s))
}

// Valid reports whether s is one of the declared severities.
func (s ObstacleSeverity) Valid() bool {
	return s >= SeverityMinor && s <= SeveritySevere
}

// Penalty is the additive score cost of one obstacle of this severity.
func (s ObstacleSeverity) Penalty() float64 {
	switch s {
	case SeverityMinor:
		return 50
	case SeverityModerate:
		return 150
	case SeveritySevere:
		return 400
	}
	panic(fmt.Sprintf("domain: penalty for unknown %s", s))
}

// ParseObstacleSeverity converts the wire name into an ObstacleSeverity.
func ParseObstacleSeverity(v string) (ObstacleSeverity, error) {
	for _, s := range ObstacleSeverities {
		if s.String() == v {
			return s, nil
		}
	}
	return 0, &ValidationError{Field: "severity", Message: fmt.Sprintf("unknown obstacle severity %q", v)}
}

func (s ObstacleSeverity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("marshal %s: invalid value", s)
	}
	return []byte(s.String()), nil
}

func (s *ObstacleSeverity) UnmarshalText(b []byte) error {
	v, err := ParseObstacleSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// DataSource records how a path entered the system.
type DataSource uint8

const (
	SourceManual DataSource = iota + 1
	SourceAutomated
)

func (d DataSource) String() string {
	switch d {
	case SourceManual:
		return "MANUAL"
	case SourceAutomated:
		return "AUTOMATED"
	}
	return fmt.Sprintf("DataSource(%d)", uint8(d))
}

// ParseDataSource converts the wire name into a DataSource.
func ParseDataSource(v string) (DataSource, error) {
	switch v {
	case "MANUAL":
		return SourceManual, nil
	case "AUTOMATED":
		return SourceAutomated, nil
	}
	return 0, &ValidationError{Field: "data_source", Message: fmt.Sprintf("unknown data source %q", v)}
}

func (d DataSource) MarshalText() ([]byte, error) {
	if d != SourceManual && d != SourceAutomated {
		return nil, fmt.Errorf("marshal %s: invalid value", d)
	}
	return []byte(d.String()), nil
}

func (d *DataSource) UnmarshalText(b []byte) error {
	v, err := ParseDataSource(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
