package geofence

import (
	"math"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/geofence"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func newTestEngine() (*Engine, *clock.Mock) {
	clk := clock.NewMock(testNow)
	return NewEngine(geofence.DefaultThresholds(), clk), clk
}

// northOf returns the latitude that lies meters north of the equator at
// longitude 0.
func northOf(meters float64) float64 {
	return meters / geo.EarthRadiusMeters * 180 / math.Pi
}

func sampleAt(lat, lon, accuracy float64) geofence.LocationSample {
	return geofence.LocationSample{
		Latitude:       lat,
		Longitude:      lon,
		AccuracyMeters: accuracy,
		Timestamp:      testNow,
		Source:         geofence.SourceGPS,
	}
}

func hq() geofence.OfficeLocation {
	return geofence.OfficeLocation{
		ID:           "hq",
		Name:         "Head Office",
		RadiusMeters: 100,
		IsActive:     true,
	}
}

func TestAssess(t *testing.T) {
	e, _ := newTestEngine()

	tests := []struct {
		name       string
		accuracy   float64
		source     geofence.Source
		age        time.Duration
		quality    geofence.Quality
		confidence float64
	}{
		{"excellent fix", 3, geofence.SourceGPS, 0, geofence.QualityExcellent, 0.9},
		{"excellent boundary", 5, geofence.SourceGPS, 0, geofence.QualityExcellent, 0.9},
		{"good", 15, geofence.SourceGPS, 0, geofence.QualityGood, 0.8},
		{"good boundary", 20, geofence.SourceGPS, 0, geofence.QualityGood, 0.8},
		{"fair", 50, geofence.SourceGPS, 0, geofence.QualityFair, 0.7},
		{"poor", 500, geofence.SourceGPS, 0, geofence.QualityPoor, 0.5},
		{"network penalty", 3, geofence.SourceNetwork, 0, geofence.QualityExcellent, 0.8},
		{"passive penalty", 3, geofence.SourcePassive, 0, geofence.QualityExcellent, 0.7},
		{"age penalty", 3, geofence.SourceGPS, 6 * time.Second, geofence.QualityExcellent, 0.7},
		{"age penalty capped", 3, geofence.SourceGPS, 10 * time.Minute, geofence.QualityExcellent, 0.6},
		{"future fix has no age penalty", 3, geofence.SourceGPS, -time.Minute, geofence.QualityExcellent, 0.9},
		{"floor", 500, geofence.SourcePassive, time.Hour, geofence.QualityPoor, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sampleAt(0, 0, tt.accuracy)
			s.Source = tt.source
			s.Timestamp = testNow.Add(-tt.age)

			got := e.Assess(s)
			assert.Equal(t, tt.quality, got.Quality)
			assert.InDelta(t, tt.confidence, got.Confidence, 1e-9)
			assert.GreaterOrEqual(t, got.Confidence, geofence.MinConfidence)
			assert.LessOrEqual(t, got.Confidence, 1.0)
		})
	}
}

func TestEffectiveRadius(t *testing.T) {
	e, _ := newTestEngine()

	tests := []struct {
		accuracy float64
		want     float64
	}{
		{1, 100},
		{20, 100},
		{50, 110},
		{100, 120},
		{500, 250},
		{1000, 400},
		{2000, 1100},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, e.EffectiveRadius(100, tt.accuracy), 1e-9, "accuracy %v", tt.accuracy)
	}
}

func TestEffectiveRadius_NeverShrinks(t *testing.T) {
	e, _ := newTestEngine()
	for _, r := range []float64{1, 25, 100, 750, 5000} {
		for a := 0.5; a < 50000; a *= 1.7 {
			got := e.EffectiveRadius(r, a)
			assert.GreaterOrEqual(t, got, r)
			if a <= 20 {
				assert.Equal(t, r, got)
			}
		}
	}
}

func TestValidate_AtOffice(t *testing.T) {
	e, _ := newTestEngine()

	res := e.Validate(sampleAt(0, 0, 5), []geofence.OfficeLocation{hq()})

	assert.True(t, res.IsValid)
	require.NotNil(t, res.WithinEffectiveRadius)
	assert.True(t, *res.WithinEffectiveRadius)
	require.NotNil(t, res.DistanceMeters)
	assert.InDelta(t, 0, *res.DistanceMeters, 1e-6)
	assert.Equal(t, "hq", *res.OfficeID)
	assert.False(t, res.IndoorLeniencyApplied)
	assert.InDelta(t, 0.9, res.Confidence, 1e-9)
	assert.NotEmpty(t, res.Recommendations)
}

func TestValidate_FarAway(t *testing.T) {
	e, _ := newTestEngine()

	res := e.Validate(sampleAt(northOf(5000), 0, 5), []geofence.OfficeLocation{hq()})

	assert.False(t, res.IsValid)
	require.NotNil(t, res.WithinEffectiveRadius)
	assert.False(t, *res.WithinEffectiveRadius)
	assert.InDelta(t, 5000, *res.DistanceMeters, 0.5)
	assert.InDelta(t, 0.9, res.Confidence, 1e-9)
	assert.Contains(t, res.Recommendations[len(res.Recommendations)-1], "outside the allowed")
}

func TestValidate_PoorIndoorGPSNearOffice(t *testing.T) {
	e, _ := newTestEngine()

	res := e.Validate(sampleAt(northOf(140), 0, 2000), []geofence.OfficeLocation{hq()})

	assert.True(t, res.IsValid)
	assert.Equal(t, geofence.QualityPoor, res.Quality)
	// poor quality confidence is lifted to the floor reported for accepted locations
	assert.InDelta(t, geofence.ValidConfidenceFloor, res.Confidence, 1e-9)
}

func TestValidate_IndoorLeniency(t *testing.T) {
	e, _ := newTestEngine()
	offices := []geofence.OfficeLocation{hq()}

	// 140m with a 10m fix is outside the uncompensated 100m radius but
	// within 1.5x of it
	res := e.Validate(sampleAt(northOf(140), 0, 10), offices)
	assert.True(t, res.IsValid)
	assert.True(t, res.IndoorLeniencyApplied)
	assert.False(t, *res.WithinEffectiveRadius)

	res = e.Validate(sampleAt(northOf(160), 0, 10), offices)
	assert.False(t, res.IsValid)
	assert.False(t, res.IndoorLeniencyApplied)

	strict := geofence.DefaultThresholds()
	strict.IndoorLeniencyEnabled = false
	e = NewEngine(strict, clock.NewMock(testNow))
	res = e.Validate(sampleAt(northOf(140), 0, 10), offices)
	assert.False(t, res.IsValid)
}

func TestValidate_NoActiveOffices(t *testing.T) {
	e, _ := newTestEngine()

	closed := hq()
	closed.IsActive = false

	for _, offices := range [][]geofence.OfficeLocation{nil, {closed}} {
		res := e.Validate(sampleAt(0, 0, 5), offices)
		assert.False(t, res.IsValid)
		assert.Zero(t, res.Confidence)
		assert.Nil(t, res.DistanceMeters)
		require.Len(t, res.Recommendations, 1)
		assert.Contains(t, res.Recommendations[0], "no offices configured")
	}
}

func TestValidate_PicksNearestActiveOffice(t *testing.T) {
	e, _ := newTestEngine()

	near := geofence.OfficeLocation{ID: "near", Name: "Near", Latitude: northOf(300), RadiusMeters: 50, IsActive: true}
	far := geofence.OfficeLocation{ID: "far", Name: "Far", Latitude: northOf(900), RadiusMeters: 2000, IsActive: true}
	closed := geofence.OfficeLocation{ID: "closed", Name: "Closed", RadiusMeters: 100, IsActive: false}

	res := e.Validate(sampleAt(0, 0, 5), []geofence.OfficeLocation{far, closed, near})

	assert.Equal(t, "near", *res.OfficeID)
	assert.InDelta(t, 300, *res.DistanceMeters, 0.5)
	// only the nearest office is considered even if a farther one would accept
	assert.False(t, res.IsValid)
}
