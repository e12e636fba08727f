// Package matching holds the pure geospatial decisions of the service:
// attaching obstacles to segments, matching stored paths to a trip, and
// scoring and ranking the results. Nothing here performs I/O.
package matching

import (
	"github.com/samirrijal/bikepaths/internal/core/domain"
	"github.com/samirrijal/bikepaths/internal/pkg/geospatial"
)

// DefaultMaxObstacleDistance is the association radius, in meters, used when
// the caller has no configured value.
const DefaultMaxObstacleDistance = 50.0

// FindNearestSegment returns the ID of the candidate segment closest to p.
//
// Distance to a segment is the minimum point-to-edge distance over its full
// geometry, or over start-end when it has none. The first candidate wins a
// tie. ok is false when the closest candidate is farther than maxDistanceMeters
// or there are no candidates.
func FindNearestSegment(p domain.GeoPoint, candidates []domain.Segment, maxDistanceMeters float64) (id string, ok bool) {
	best := -1.0
	for _, c := range candidates {
		d, has := geospatial.DistanceToPolyline(p.Lat, p.Lon, segmentPairs(c))
		if !has {
			continue
		}
		if best < 0 || d < best {
			best = d
			id = c.ID
		}
	}
	if best < 0 || best > maxDistanceMeters {
		return "", false
	}
	return id, true
}

func segmentPairs(s domain.Segment) [][2]float64 {
	pts := s.Points()
	out := make([][2]float64, len(pts))
	for i, p := range pts {
		out[i] = p.Pair()
	}
	return out
}
