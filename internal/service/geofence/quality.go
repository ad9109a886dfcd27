package geofence

import (
	"math"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/geofence"
)

// Assess scores a sample by its reported accuracy, its source and how old
// the fix is. A timestamp in the future is treated as age zero.
func (e *Engine) Assess(sample geofence.LocationSample) geofence.Assessment {
	quality, confidence := qualityTier(sample.AccuracyMeters)

	switch sample.Source {
	case geofence.SourceNetwork:
		confidence -= geofence.NetworkSourcePenalty
	case geofence.SourcePassive:
		confidence -= geofence.PassiveSourcePenalty
	}

	age := e.clock.Now().Sub(sample.Timestamp)
	if age > 0 {
		confidence -= math.Min(age.Seconds()/geofence.AgePenaltyWindow.Seconds(), geofence.MaxAgePenalty)
	}

	return geofence.Assessment{
		Quality:    quality,
		Confidence: clampConfidence(confidence),
	}
}

func qualityTier(accuracy float64) (geofence.Quality, float64) {
	switch {
	case accuracy <= geofence.ExcellentAccuracyMeters:
		return geofence.QualityExcellent, geofence.ExcellentConfidence
	case accuracy <= geofence.GoodAccuracyMeters:
		return geofence.QualityGood, geofence.GoodConfidence
	case accuracy <= geofence.FairAccuracyMeters:
		return geofence.QualityFair, geofence.FairConfidence
	default:
		return geofence.QualityPoor, geofence.PoorConfidence
	}
}

func clampConfidence(c float64) float64 {
	if math.IsNaN(c) || c < geofence.MinConfidence {
		return geofence.MinConfidence
	}
	if c > 1 {
		return 1
	}
	return c
}
