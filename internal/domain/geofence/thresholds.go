package geofence

import (
	"fmt"
	"time"
)

// Accuracy tier boundaries in meters, inclusive.
const (
	ExcellentAccuracyMeters = 5.0
	GoodAccuracyMeters      = 20.0
	FairAccuracyMeters      = 100.0
)

// Base confidence per quality tier.
const (
	ExcellentConfidence = 0.9
	GoodConfidence      = 0.8
	FairConfidence      = 0.7
	PoorConfidence      = 0.5
)

const (
	NetworkSourcePenalty = 0.1
	PassiveSourcePenalty = 0.2

	// AgePenaltyWindow is the sample age that costs one full unit of
	// confidence; the penalty is capped at MaxAgePenalty.
	AgePenaltyWindow = 30 * time.Second
	MaxAgePenalty    = 0.3

	// MaxClockSkew is how far ahead of the receive time a device may date
	// a fix before the receive time is used instead.
	MaxClockSkew = 30 * time.Second

	MinConfidence = 0.1
	// ValidConfidenceFloor is reported for any accepted location.
	ValidConfidenceFloor = 0.6
)

// Thresholds is the tunable surface of the validation engine. Every
// meter, speed and factor that trades false rejects against false accepts
// lives here.
type Thresholds struct {
	// Effective radius compensation: R' = R + factor*A for A above the bound.
	MediumCompensationAbove  float64
	MediumCompensation       float64
	HighCompensationAbove    float64
	HighCompensation         float64
	ExtremeCompensationAbove float64
	ExtremeCompensation      float64

	// Indoor leniency accepts a sample within factor*R of the office as long
	// as its accuracy is not worse than the cap.
	IndoorLeniencyEnabled     bool
	IndoorLeniencyFactor      float64
	IndoorLeniencyMaxAccuracy float64

	// Ranker: past R' the probability drops from FalloffStart to 0 across
	// FalloffMeters.
	RankerEdgeProbability float64
	RankerFalloffStart    float64
	RankerFalloffMeters   float64
	RankerMaxAlternatives int

	MediumSpeedKmh       float64
	HighSpeedKmh         float64
	JumpPreviousAccuracy float64
	JumpCurrentAccuracy  float64
	PatternMinHistory    int
	PatternWindow        int
	PatternFactor        float64
	PatternMinMeters     float64

	// CheckoutRelocationMeters is how far a checkout may be from the
	// check-in position before it counts as off-site.
	CheckoutRelocationMeters float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MediumCompensationAbove:  20,
		MediumCompensation:       0.2,
		HighCompensationAbove:    100,
		HighCompensation:         0.3,
		ExtremeCompensationAbove: 1000,
		ExtremeCompensation:      0.5,

		IndoorLeniencyEnabled:     true,
		IndoorLeniencyFactor:      1.5,
		IndoorLeniencyMaxAccuracy: 10000,

		RankerEdgeProbability: 0.6,
		RankerFalloffStart:    0.3,
		RankerFalloffMeters:   100,
		RankerMaxAlternatives: 2,

		MediumSpeedKmh:       150,
		HighSpeedKmh:         300,
		JumpPreviousAccuracy: 500,
		JumpCurrentAccuracy:  10,
		PatternMinHistory:    3,
		PatternWindow:        3,
		PatternFactor:        10,
		PatternMinMeters:     1000,

		CheckoutRelocationMeters: 500,
	}
}

func (t Thresholds) Validate() error {
	if !(t.MediumCompensationAbove < t.HighCompensationAbove && t.HighCompensationAbove < t.ExtremeCompensationAbove) {
		return fmt.Errorf("%w: compensation bounds must be increasing", ErrInvalidThresholds)
	}
	if t.MediumCompensation < 0 || t.HighCompensation < 0 || t.ExtremeCompensation < 0 {
		return fmt.Errorf("%w: compensation factors must not be negative", ErrInvalidThresholds)
	}
	if t.IndoorLeniencyFactor < 1 {
		return fmt.Errorf("%w: indoor leniency factor must be at least 1", ErrInvalidThresholds)
	}
	if t.RankerFalloffMeters <= 0 || t.RankerMaxAlternatives < 0 {
		return fmt.Errorf("%w: invalid ranker settings", ErrInvalidThresholds)
	}
	if t.MediumSpeedKmh <= 0 || t.HighSpeedKmh <= t.MediumSpeedKmh {
		return fmt.Errorf("%w: speed limits must be positive and increasing", ErrInvalidThresholds)
	}
	if t.PatternWindow < 1 || t.PatternMinHistory < 1 {
		return fmt.Errorf("%w: pattern window must be positive", ErrInvalidThresholds)
	}
	return nil
}
