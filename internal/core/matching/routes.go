package matching

import (
	"github.com/samirrijal/bikepaths/internal/core/domain"
	"github.com/samirrijal/bikepaths/internal/pkg/geospatial"
)

// MatchPaths returns the paths that connect origin to destination, in input order.
//
// A path qualifies when the start of its first segment (lowest Order) is
// within toleranceMeters of origin and the end of its last segment (highest
// Order) is within toleranceMeters of destination. Paths without segments
// never qualify.
func MatchPaths(origin, destination domain.GeoPoint, toleranceMeters float64, paths []domain.Path) []domain.Path {
	var matched []domain.Path
	for _, p := range paths {
		if connects(origin, destination, toleranceMeters, p.Segments) {
			matched = append(matched, p)
		}
	}
	return matched
}

func connects(origin, destination domain.GeoPoint, tol float64, segs []domain.Segment) bool {
	if len(segs) == 0 {
		return false
	}

	first, last := segs[0], segs[0]
	for _, s := range segs[1:] {
		if s.Order < first.Order {
			first = s
		}
		if s.Order >= last.Order {
			last = s
		}
	}

	return geospatial.IsWithinRadius(first.Start.Lat, first.Start.Lon, origin.Lat, origin.Lon, tol) &&
		geospatial.IsWithinRadius(last.End.Lat, last.End.Lon, destination.Lat, destination.Lon, tol)
}
