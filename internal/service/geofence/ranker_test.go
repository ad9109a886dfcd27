package geofence

import (
	"testing"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/geofence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func office(id string, metersNorth, radius float64) geofence.OfficeLocation {
	return geofence.OfficeLocation{
		ID:           id,
		Name:         id,
		Latitude:     northOf(metersNorth),
		RadiusMeters: radius,
		IsActive:     true,
	}
}

func TestRank_DetectsContainingOffice(t *testing.T) {
	e, _ := newTestEngine()

	res := e.Rank(sampleAt(0, 0, 5), []geofence.OfficeLocation{office("b", 150, 100), office("a", 0, 100)})

	require.NotNil(t, res.Detected)
	assert.Equal(t, "a", res.Detected.Office.ID)
	assert.Equal(t, 1.0, res.Detected.Probability)
	require.Len(t, res.Alternatives, 1)
	assert.Equal(t, "b", res.Alternatives[0].Office.ID)
	assert.InDelta(t, 0.15, res.Alternatives[0].Probability, 1e-3)
}

func TestRank_CompensationBand(t *testing.T) {
	e, _ := newTestEngine()

	res := e.Rank(sampleAt(northOf(150), 0, 500), []geofence.OfficeLocation{office("a", 0, 100)})

	require.NotNil(t, res.Detected)
	assert.InDelta(t, 250, res.Detected.EffectiveRadius, 1e-9)
	assert.InDelta(t, 1-0.4*(50.0/150.0), res.Detected.Probability, 1e-3)
}

func TestRank_TiesBrokenByDistance(t *testing.T) {
	e, _ := newTestEngine()

	res := e.Rank(sampleAt(0, 0, 5), []geofence.OfficeLocation{office("c", 30, 100), office("d", -20, 100)})

	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "d", res.Candidates[0].Office.ID)
	assert.Equal(t, "c", res.Candidates[1].Office.ID)
}

func TestRank_LimitsAlternatives(t *testing.T) {
	e, _ := newTestEngine()

	offices := []geofence.OfficeLocation{
		office("o1", 10, 500),
		office("o2", 20, 500),
		office("o3", 30, 500),
		office("o4", 40, 500),
	}
	res := e.Rank(sampleAt(0, 0, 5), offices)

	assert.Len(t, res.Candidates, 4)
	assert.Equal(t, "o1", res.Detected.Office.ID)
	assert.Len(t, res.Alternatives, 2)
}

func TestRank_ExcludesImplausibleAndInactive(t *testing.T) {
	e, _ := newTestEngine()

	closed := office("closed", 0, 100)
	closed.IsActive = false

	res := e.Rank(sampleAt(0, 0, 5), []geofence.OfficeLocation{office("far", 10000, 100), closed})

	assert.Nil(t, res.Detected)
	assert.Empty(t, res.Candidates)
	assert.NotNil(t, res.Alternatives)
}

func TestRank_ProbabilityDecreasesWithDistance(t *testing.T) {
	e, _ := newTestEngine()

	prev := 1.0
	for d := 0.0; d <= 400; d += 10 {
		p := e.probability(d, 100, 250)
		assert.LessOrEqual(t, p, prev, "distance %v", d)
		assert.GreaterOrEqual(t, p, 0.0)
		prev = p
	}
	assert.Zero(t, e.probability(350, 100, 250))
}
