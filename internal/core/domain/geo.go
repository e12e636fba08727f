package domain

import "fmt"

// GeoPoint represents a geographic coordinate (WGS 84, decimal degrees).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks that the point lies inside the WGS 84 ranges.
// field names the input in the returned ValidationError.
func (p GeoPoint) Validate(field string) error {
	if p.Lat < -90 || p.Lat > 90 {
		return &ValidationError{Field: field, Message: fmt.Sprintf("latitude %v out of range [-90, 90]", p.Lat)}
	}
	if p.Lon < -180 || p.Lon > 180 {
		return &ValidationError{Field: field, Message: fmt.Sprintf("longitude %v out of range [-180, 180]", p.Lon)}
	}
	return nil
}

// Pair returns the point as a [lat, lon] pair for the geospatial helpers.
func (p GeoPoint) Pair() [2]float64 {
	return [2]float64{p.Lat, p.Lon}
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

func pairs(points []GeoPoint) [][2]float64 {
	out := make([][2]float64, len(points))
	for i, p := range points {
		out[i] = p.Pair()
	}
	return out
}
