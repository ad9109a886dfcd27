package geofence

import (
	"time"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/geo"
)

type Source string

const (
	SourceGPS     Source = "gps"
	SourceNetwork Source = "network"
	SourcePassive Source = "passive"
)

func (s Source) Valid() bool {
	switch s {
	case SourceGPS, SourceNetwork, SourcePassive:
		return true
	}
	return false
}

type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityFair      Quality = "fair"
	QualityPoor      Quality = "poor"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (r RiskLevel) rank() int {
	switch r {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	}
	return 0
}

// Escalate returns the higher of the two levels.
func (r RiskLevel) Escalate(to RiskLevel) RiskLevel {
	if to.rank() > r.rank() {
		return to
	}
	return r
}

// LocationSample is a single position fix reported by a device. Samples are
// never mutated after capture.
type LocationSample struct {
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	AccuracyMeters float64   `json:"accuracy_meters"`
	Timestamp      time.Time `json:"timestamp"`
	Source         Source    `json:"source"`
}

func (s LocationSample) Point() geo.Point {
	return geo.Point{Latitude: s.Latitude, Longitude: s.Longitude}
}

// OfficeLocation is a registered geofence. Inactive offices are kept for
// historical references and skipped by matching.
type OfficeLocation struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	RadiusMeters float64   `json:"radius_meters"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

func (o OfficeLocation) Point() geo.Point {
	return geo.Point{Latitude: o.Latitude, Longitude: o.Longitude}
}

// ActiveOffices filters out soft-deleted offices.
func ActiveOffices(offices []OfficeLocation) []OfficeLocation {
	active := make([]OfficeLocation, 0, len(offices))
	for _, o := range offices {
		if o.IsActive {
			active = append(active, o)
		}
	}
	return active
}

type Assessment struct {
	Quality    Quality `json:"quality"`
	Confidence float64 `json:"confidence"`
}

// ValidationResult is derived per request and never stored as is.
type ValidationResult struct {
	IsValid               bool     `json:"is_valid"`
	Confidence            float64  `json:"confidence"`
	Quality               Quality  `json:"quality"`
	AccuracyMeters        float64  `json:"accuracy_meters"`
	Source                Source   `json:"source"`
	OfficeID              *string  `json:"office_id,omitempty"`
	OfficeName            *string  `json:"office_name,omitempty"`
	DistanceMeters        *float64 `json:"distance_meters,omitempty"`
	EffectiveRadiusMeters *float64 `json:"effective_radius_meters,omitempty"`
	WithinEffectiveRadius *bool    `json:"within_effective_radius,omitempty"`
	IndoorLeniencyApplied bool     `json:"indoor_leniency_applied"`
	Recommendations       []string `json:"recommendations"`
}

type Candidate struct {
	Office          OfficeLocation `json:"office"`
	DistanceMeters  float64        `json:"distance_meters"`
	EffectiveRadius float64        `json:"effective_radius_meters"`
	Probability     float64        `json:"probability"`
}

type DetectionResult struct {
	Detected     *Candidate  `json:"detected,omitempty"`
	Alternatives []Candidate `json:"alternatives"`
	Candidates   []Candidate `json:"candidates"`
}

type AnomalyReport struct {
	IsAnomalous bool      `json:"is_anomalous"`
	RiskLevel   RiskLevel `json:"risk_level"`
	Reasons     []string  `json:"reasons"`
	SpeedKmh    *float64  `json:"speed_kmh,omitempty"`
}
