package geofence

import (
	"sort"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/geofence"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/geo"
)

// Rank scores every active office by how likely the sample was taken there.
// Offices with probability zero are left out.
func (e *Engine) Rank(sample geofence.LocationSample, offices []geofence.OfficeLocation) geofence.DetectionResult {
	p := sample.Point()

	candidates := make([]geofence.Candidate, 0, len(offices))
	for _, office := range geofence.ActiveOffices(offices) {
		distance := geo.DistanceMeters(p, office.Point())
		effective := e.EffectiveRadius(office.RadiusMeters, sample.AccuracyMeters)
		prob := e.probability(distance, office.RadiusMeters, effective)
		if prob <= 0 {
			continue
		}
		candidates = append(candidates, geofence.Candidate{
			Office:          office,
			DistanceMeters:  distance,
			EffectiveRadius: effective,
			Probability:     prob,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Probability != candidates[j].Probability {
			return candidates[i].Probability > candidates[j].Probability
		}
		return candidates[i].DistanceMeters < candidates[j].DistanceMeters
	})

	result := geofence.DetectionResult{
		Candidates:   candidates,
		Alternatives: []geofence.Candidate{},
	}
	if len(candidates) == 0 {
		return result
	}

	detected := candidates[0]
	result.Detected = &detected
	rest := candidates[1:]
	if len(rest) > e.thresholds.RankerMaxAlternatives {
		rest = rest[:e.thresholds.RankerMaxAlternatives]
	}
	result.Alternatives = append(result.Alternatives, rest...)
	return result
}

// probability is 1 inside the nominal radius, decays linearly to the edge
// probability at the effective radius, then from the falloff start to 0 over
// the falloff distance.
func (e *Engine) probability(distance, radius, effective float64) float64 {
	t := e.thresholds
	switch {
	case distance <= radius:
		return 1
	case distance <= effective:
		frac := (distance - radius) / (effective - radius)
		return 1 - (1-t.RankerEdgeProbability)*frac
	case distance <= effective+t.RankerFalloffMeters:
		frac := (distance - effective) / t.RankerFalloffMeters
		return t.RankerFalloffStart * (1 - frac)
	default:
		return 0
	}
}
