package geofence

import (
	"fmt"
	"math"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/geofence"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/geo"
)

// Validate decides whether the sample places the user at one of the active
// offices. Only the nearest office is considered.
func (e *Engine) Validate(sample geofence.LocationSample, offices []geofence.OfficeLocation) geofence.ValidationResult {
	assessment := e.Assess(sample)
	result := geofence.ValidationResult{
		Quality:        assessment.Quality,
		AccuracyMeters: sample.AccuracyMeters,
		Source:         sample.Source,
	}

	active := geofence.ActiveOffices(offices)
	if len(active) == 0 {
		result.Confidence = 0
		result.Recommendations = []string{
			"no offices configured: ask an administrator to register an office location",
		}
		return result
	}

	closest, minDistance := nearestOffice(sample.Point(), active)
	effectiveRadius := e.EffectiveRadius(closest.RadiusMeters, sample.AccuracyMeters)
	within := minDistance <= effectiveRadius

	leniency := false
	if !within && e.thresholds.IndoorLeniencyEnabled &&
		minDistance <= e.thresholds.IndoorLeniencyFactor*closest.RadiusMeters &&
		sample.AccuracyMeters <= e.thresholds.IndoorLeniencyMaxAccuracy {
		leniency = true
	}

	result.IsValid = within || leniency
	result.IndoorLeniencyApplied = leniency
	result.OfficeID = &closest.ID
	result.OfficeName = &closest.Name
	result.DistanceMeters = &minDistance
	result.EffectiveRadiusMeters = &effectiveRadius
	result.WithinEffectiveRadius = &within

	result.Confidence = assessment.Confidence
	if result.IsValid {
		result.Confidence = math.Max(assessment.Confidence, geofence.ValidConfidenceFloor)
	}

	result.Recommendations = e.recommendations(sample, assessment, closest, minDistance, effectiveRadius, within, leniency)
	return result
}

func nearestOffice(p geo.Point, offices []geofence.OfficeLocation) (geofence.OfficeLocation, float64) {
	closest := offices[0]
	minDistance := geo.DistanceMeters(p, closest.Point())
	for _, office := range offices[1:] {
		d := geo.DistanceMeters(p, office.Point())
		if d < minDistance {
			closest = office
			minDistance = d
		}
	}
	return closest, minDistance
}

func (e *Engine) recommendations(
	sample geofence.LocationSample,
	assessment geofence.Assessment,
	office geofence.OfficeLocation,
	distance, effectiveRadius float64,
	within, leniency bool,
) []string {
	var recs []string

	switch assessment.Quality {
	case geofence.QualityExcellent:
		recs = append(recs, fmt.Sprintf("GPS signal is excellent (±%.0fm)", sample.AccuracyMeters))
	case geofence.QualityGood:
		recs = append(recs, fmt.Sprintf("GPS signal is good (±%.0fm)", sample.AccuracyMeters))
	case geofence.QualityFair:
		recs = append(recs, fmt.Sprintf("GPS accuracy is fair (±%.0fm): move near a window for a better fix", sample.AccuracyMeters))
	case geofence.QualityPoor:
		recs = append(recs, fmt.Sprintf("GPS accuracy is poor (±%.0fm): move outdoors or enable high-accuracy location and retry", sample.AccuracyMeters))
	}

	if sample.Source != geofence.SourceGPS {
		recs = append(recs, fmt.Sprintf("location came from %s positioning: enable GPS for a precise fix", sample.Source))
	}

	if age := e.clock.Now().Sub(sample.Timestamp); age > geofence.AgePenaltyWindow {
		recs = append(recs, fmt.Sprintf("location fix is %.0fs old: refresh your location", age.Seconds()))
	}

	switch {
	case within && effectiveRadius > office.RadiusMeters:
		recs = append(recs, fmt.Sprintf(
			"accepted with accuracy compensation: %.0fm from %s, radius expanded from %.0fm to %.0fm",
			distance, office.Name, office.RadiusMeters, effectiveRadius))
	case within:
		recs = append(recs, fmt.Sprintf("within %.0fm radius of %s (%.0fm away)", office.RadiusMeters, office.Name, distance))
	case leniency:
		recs = append(recs, fmt.Sprintf(
			"accepted by indoor leniency: %.0fm from %s is within %.1fx the %.0fm radius",
			distance, office.Name, e.thresholds.IndoorLeniencyFactor, office.RadiusMeters))
	default:
		recs = append(recs, fmt.Sprintf(
			"you are %.0fm from %s, outside the allowed %.0fm radius: move closer to the office and retry",
			distance, office.Name, effectiveRadius))
		if assessment.Quality == geofence.QualityPoor {
			recs = append(recs, "contact support if you are on site and the problem persists")
		}
	}

	return recs
}
