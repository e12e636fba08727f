package geospatial

import (
	"errors"
	"fmt"

	"github.com/twpayne/go-polyline"
)

// EncodePolyline encodes [lat, lon] pairs with the Google polyline algorithm
// (precision 1e5). An empty input encodes to "".
func EncodePolyline(points [][2]float64) string {
	if len(points) == 0 {
		return ""
	}
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p[0], p[1]}
	}
	return string(polyline.EncodeCoords(coords))
}

// DecodePolyline decodes a Google encoded polyline into [lat, lon] pairs.
func DecodePolyline(encoded string) ([][2]float64, error) {
	if encoded == "" {
		return nil, errors.New("encoded polyline is empty")
	}

	coords, rest, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("decode polyline: %d trailing bytes", len(rest))
	}

	points := make([][2]float64, len(coords))
	for i, c := range coords {
		points[i] = [2]float64{c[0], c[1]}
	}
	return points, nil
}
