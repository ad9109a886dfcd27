package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters_Symmetric(t *testing.T) {
	cases := []struct {
		a, b Point
	}{
		{Point{0, 0}, Point{0, 1}},
		{Point{-6.2088, 106.8456}, Point{-6.1751, 106.8650}},
		{Point{51.5074, -0.1278}, Point{40.7128, -74.0060}},
		{Point{89.9, 179.9}, Point{-89.9, -179.9}},
	}
	for _, c := range cases {
		ab := DistanceMeters(c.a, c.b)
		ba := DistanceMeters(c.b, c.a)
		assert.InDelta(t, ab, ba, 1e-6, "distance(%v,%v) should be symmetric", c.a, c.b)
		assert.Greater(t, ab, 0.0)
	}
}

func TestDistanceMeters_SamePointIsZero(t *testing.T) {
	points := []Point{{0, 0}, {-6.2088, 106.8456}, {90, 0}, {-33.8688, 151.2093}}
	for _, p := range points {
		assert.InDelta(t, 0, DistanceMeters(p, p), 1e-9)
	}
}

func TestDistanceMeters_KnownDistances(t *testing.T) {
	// one degree of longitude on the equator
	assert.InDelta(t, 111195, DistanceMeters(Point{0, 0}, Point{0, 1}), 1)

	// London to New York, roughly 5570 km
	d := DistanceMeters(Point{51.5074, -0.1278}, Point{40.7128, -74.0060})
	assert.InDelta(t, 5570000, d, 10000)
}

func TestValidCoordinate(t *testing.T) {
	assert.True(t, ValidCoordinate(0, 0))
	assert.True(t, ValidCoordinate(-90, 180))
	assert.False(t, ValidCoordinate(90.1, 0))
	assert.False(t, ValidCoordinate(0, -180.5))
}
