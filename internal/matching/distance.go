package matching

import "math"

const earthRadiusKm = 6371.0

// DistanceProvider computes the distance in kilometers between a donor and
// the requesting site. Implementations return 0 when the distance is unknown.
type DistanceProvider interface {
	DistanceKm(donor Donor) float64
}

// DistanceFunc adapts a function to DistanceProvider.
type DistanceFunc func(donor Donor) float64

func (f DistanceFunc) DistanceKm(donor Donor) float64 { return f(donor) }

// Fixed reports the same distance for every donor. The zero value reports 0.
type Fixed struct {
	Km float64
}

func (f Fixed) DistanceKm(Donor) float64 { return f.Km }

// Mock returns a per-donor distance from a lookup table, 0 for unknown IDs.
type Mock map[string]float64

func (m Mock) DistanceKm(donor Donor) float64 { return m[string(donor.ID)] }

// Geodesic computes great-circle (haversine) distance from Origin to the
// donor's recorded location.
type Geodesic struct {
	Origin Location
}

func (g Geodesic) DistanceKm(donor Donor) float64 {
	if donor.Location == nil {
		return 0
	}
	return Haversine(g.Origin, *donor.Location)
}

// Haversine returns the great-circle distance between a and b in kilometers.
func Haversine(a, b Location) float64 {
	dLat := radians(b.Latitude - a.Latitude)
	dLon := radians(b.Longitude - a.Longitude)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Latitude))*math.Cos(radians(b.Latitude))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
