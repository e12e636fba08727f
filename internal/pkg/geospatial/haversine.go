package geospatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius used for every distance in the service.
const EarthRadiusMeters = 6371000.0

// Haversine calculates the great-circle distance in meters between two points.
// The arguments are put in a canonical order first so that
// Haversine(a, b) and Haversine(b, a) return bit-identical values.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 > lat2 || (lat1 == lat2 && lon1 > lon2) {
		lat1, lon1, lat2, lon2 = lat2, lon2, lat1, lon1
	}
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// IsWithinRadius reports whether the two points are at most radiusMeters apart.
// The boundary is inclusive.
func IsWithinRadius(lat1, lon1, lat2, lon2, radiusMeters float64) bool {
	return Haversine(lat1, lon1, lat2, lon2) <= radiusMeters
}

// PolylineLength sums the haversine distance of consecutive points.
// points holds [lat, lon] pairs.
func PolylineLength(points [][2]float64) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += Haversine(points[i-1][0], points[i-1][1], points[i][0], points[i][1])
	}
	return total
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
// Latitudes are clamped to [-90, 90]. When the box would cross the antimeridian
// or reach a pole, the longitude range widens to [-180, 180] so the box stays a
// superset of the circle.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / 111320.0
	minLat = math.Max(lat-latDelta, -90)
	maxLat = math.Min(lat+latDelta, 90)

	cos := math.Cos(toRad(lat))
	if cos < 1e-9 || minLat == -90 || maxLat == 90 {
		return minLat, -180, maxLat, 180
	}
	lonDelta := radiusMeters / (111320.0 * cos)
	minLon, maxLon = lon-lonDelta, lon+lonDelta
	if minLon < -180 || maxLon > 180 {
		return minLat, -180, maxLat, 180
	}
	return minLat, minLon, maxLat, maxLon
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
