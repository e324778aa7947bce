package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversine(t *testing.T) {
	london := Location{Latitude: 51.5074, Longitude: -0.1278}
	paris := Location{Latitude: 48.8566, Longitude: 2.3522}

	assert.InDelta(t, 343.5, Haversine(london, paris), 1.0)
	assert.InDelta(t, Haversine(london, paris), Haversine(paris, london), 1e-9)
	assert.Equal(t, 0.0, Haversine(london, london))
}

func TestDistanceProviders(t *testing.T) {
	donor := Donor{ID: "d1", Location: &Location{Latitude: 0, Longitude: 1}}

	assert.Equal(t, 0.0, Fixed{}.DistanceKm(donor))
	assert.Equal(t, 4.2, Fixed{Km: 4.2}.DistanceKm(donor))
	assert.Equal(t, 7.0, Mock{"d1": 7}.DistanceKm(donor))
	assert.Equal(t, 0.0, Mock{}.DistanceKm(donor))
	assert.InDelta(t, 111.19, Geodesic{}.DistanceKm(donor), 0.01)
	assert.Equal(t, 0.0, Geodesic{}.DistanceKm(Donor{ID: "nowhere"}))
	assert.Equal(t, 9.0, DistanceFunc(func(Donor) float64 { return 9 }).DistanceKm(donor))
}
