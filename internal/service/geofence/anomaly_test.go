package geofence

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/geofence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAtTime(metersNorth, accuracy float64, at time.Time) geofence.LocationSample {
	s := sampleAt(northOf(metersNorth), 0, accuracy)
	s.Timestamp = at
	return s
}

func TestDetectAnomalies_FirstSampleIsNeverAnomalous(t *testing.T) {
	e, _ := newTestEngine()

	report := e.DetectAnomalies(sampleAt(0, 0, 5), nil)

	assert.False(t, report.IsAnomalous)
	assert.Equal(t, geofence.RiskLow, report.RiskLevel)
	assert.Empty(t, report.Reasons)
}

func TestDetectAnomalies_ImpossibleTravel(t *testing.T) {
	e, _ := newTestEngine()

	prev := sampleAtTime(0, 5, testNow.Add(-10*time.Minute))
	cur := sampleAtTime(200000, 5, testNow)

	report := e.DetectAnomalies(cur, []geofence.LocationSample{prev})

	assert.True(t, report.IsAnomalous)
	assert.Equal(t, geofence.RiskHigh, report.RiskLevel)
	require.NotNil(t, report.SpeedKmh)
	assert.InDelta(t, 1200, *report.SpeedKmh, 1)
	assert.Contains(t, report.Reasons[0], "impossible travel")
}

func TestDetectAnomalies_FastTravelIsMedium(t *testing.T) {
	e, _ := newTestEngine()

	// 40 km in 10 minutes is 240 km/h
	prev := sampleAtTime(0, 5, testNow.Add(-10*time.Minute))
	cur := sampleAtTime(40000, 5, testNow)

	report := e.DetectAnomalies(cur, []geofence.LocationSample{prev})

	assert.True(t, report.IsAnomalous)
	assert.Equal(t, geofence.RiskMedium, report.RiskLevel)
}

func TestDetectAnomalies_NonPositiveElapsedSkipsChecks(t *testing.T) {
	e, _ := newTestEngine()

	prev := sampleAtTime(0, 800, testNow)
	cur := sampleAtTime(200000, 5, testNow)

	report := e.DetectAnomalies(cur, []geofence.LocationSample{prev})
	assert.Equal(t, geofence.RiskLow, report.RiskLevel)
	assert.False(t, report.IsAnomalous)

	cur.Timestamp = testNow.Add(-time.Minute)
	report = e.DetectAnomalies(cur, []geofence.LocationSample{prev})
	assert.Equal(t, geofence.RiskLow, report.RiskLevel)
}

func TestDetectAnomalies_AccuracyJump(t *testing.T) {
	e, _ := newTestEngine()

	prev := sampleAtTime(0, 800, testNow.Add(-time.Minute))
	cur := sampleAtTime(5, 5, testNow)

	report := e.DetectAnomalies(cur, []geofence.LocationSample{prev})

	assert.Equal(t, geofence.RiskMedium, report.RiskLevel)
	require.Len(t, report.Reasons, 1)
	assert.Contains(t, report.Reasons[0], "accuracy jump")
}

func TestDetectAnomalies_ErraticPattern(t *testing.T) {
	e, _ := newTestEngine()

	start := testNow.Add(-4 * time.Hour)
	history := []geofence.LocationSample{
		sampleAtTime(0, 5, start),
		sampleAtTime(10, 5, start.Add(time.Hour)),
		sampleAtTime(20, 5, start.Add(2*time.Hour)),
		sampleAtTime(30, 5, start.Add(3*time.Hour)),
	}
	// 2 km in an hour is slow but 200x the recent average step
	cur := sampleAtTime(2030, 5, testNow)

	report := e.DetectAnomalies(cur, history)

	assert.Equal(t, geofence.RiskMedium, report.RiskLevel)
	require.Len(t, report.Reasons, 1)
	assert.Contains(t, report.Reasons[0], "erratic movement")

	// two prior samples are not enough for the pattern check
	report = e.DetectAnomalies(cur, history[2:])
	assert.Equal(t, geofence.RiskLow, report.RiskLevel)
}

func TestDetectAnomalies_RiskNeverDecreases(t *testing.T) {
	e, _ := newTestEngine()

	prev := sampleAtTime(0, 800, testNow.Add(-10*time.Minute))
	cur := sampleAtTime(200000, 5, testNow)

	report := e.DetectAnomalies(cur, []geofence.LocationSample{prev})

	assert.Equal(t, geofence.RiskHigh, report.RiskLevel)
	assert.Len(t, report.Reasons, 2)
}

func TestRiskLevelEscalate(t *testing.T) {
	assert.Equal(t, geofence.RiskHigh, geofence.RiskHigh.Escalate(geofence.RiskMedium))
	assert.Equal(t, geofence.RiskMedium, geofence.RiskLow.Escalate(geofence.RiskMedium))
	assert.Equal(t, geofence.RiskMedium, geofence.RiskMedium.Escalate(geofence.RiskLow))
}
