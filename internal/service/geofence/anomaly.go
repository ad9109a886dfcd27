package geofence

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/geofence"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/geo"
)

// DetectAnomalies compares sample with the user's prior samples, oldest
// first. The report is advisory; nothing is rejected because of it.
func (e *Engine) DetectAnomalies(sample geofence.LocationSample, history []geofence.LocationSample) geofence.AnomalyReport {
	report := geofence.AnomalyReport{
		RiskLevel: geofence.RiskLow,
		Reasons:   []string{},
	}
	if len(history) == 0 {
		return report
	}

	prev := history[len(history)-1]
	elapsed := sample.Timestamp.Sub(prev.Timestamp)
	if elapsed <= 0 {
		return report
	}

	t := e.thresholds
	distance := geo.DistanceMeters(prev.Point(), sample.Point())

	speed := (distance / 1000) / elapsed.Hours()
	report.SpeedKmh = &speed
	switch {
	case speed > t.HighSpeedKmh:
		report.RiskLevel = report.RiskLevel.Escalate(geofence.RiskHigh)
		report.Reasons = append(report.Reasons, fmt.Sprintf(
			"impossible travel: %.0f km/h over %.1f km in %s", speed, distance/1000, elapsed.Round(time.Second)))
	case speed >= t.MediumSpeedKmh:
		report.RiskLevel = report.RiskLevel.Escalate(geofence.RiskMedium)
		report.Reasons = append(report.Reasons, fmt.Sprintf(
			"unusually fast travel: %.0f km/h over %.1f km", speed, distance/1000))
	}

	if prev.AccuracyMeters > t.JumpPreviousAccuracy && sample.AccuracyMeters < t.JumpCurrentAccuracy {
		report.RiskLevel = report.RiskLevel.Escalate(geofence.RiskMedium)
		report.Reasons = append(report.Reasons, fmt.Sprintf(
			"suspicious accuracy jump from ±%.0fm to ±%.0fm", prev.AccuracyMeters, sample.AccuracyMeters))
	}

	if len(history) >= t.PatternMinHistory {
		mean := meanStepDistance(history, t.PatternWindow)
		if distance > t.PatternFactor*mean && distance > t.PatternMinMeters {
			report.RiskLevel = report.RiskLevel.Escalate(geofence.RiskMedium)
			report.Reasons = append(report.Reasons, fmt.Sprintf(
				"erratic movement: %.0fm step against a recent average of %.0fm", distance, mean))
		}
	}

	report.IsAnomalous = report.RiskLevel != geofence.RiskLow
	return report
}

// meanStepDistance averages the last window distances between consecutive
// samples. Fewer steps are used when the history is short.
func meanStepDistance(history []geofence.LocationSample, window int) float64 {
	steps := len(history) - 1
	if steps <= 0 {
		return 0
	}
	if steps > window {
		steps = window
	}

	var total float64
	for i := len(history) - steps; i < len(history); i++ {
		total += geo.DistanceMeters(history[i-1].Point(), history[i].Point())
	}
	return total / float64(steps)
}
