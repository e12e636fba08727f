package geospatial

// ClosestPointDistance returns the distance in meters from point p to the segment a-b.
//
// The projection parameter is computed in plain degree space (latitude and
// longitude treated as Cartesian axes) and clamped to [0, 1]; the distance to
// the resulting closest point is then measured with Haversine. A degenerate
// segment (a == b) yields the distance from p to a.
func ClosestPointDistance(pLat, pLon, aLat, aLon, bLat, bLon float64) float64 {
	lat, lon := ClosestPoint(pLat, pLon, aLat, aLon, bLat, bLon)
	return Haversine(pLat, pLon, lat, lon)
}

// ClosestPoint returns the point on segment a-b nearest to p under the planar
// projection used by ClosestPointDistance.
func ClosestPoint(pLat, pLon, aLat, aLon, bLat, bLon float64) (lat, lon float64) {
	dLat := bLat - aLat
	dLon := bLon - aLon

	lenSq := dLat*dLat + dLon*dLon
	if lenSq == 0 {
		return aLat, aLon
	}

	t := ((pLat-aLat)*dLat + (pLon-aLon)*dLon) / lenSq
	switch {
	case t < 0:
		t = 0
	case t > 1:
		t = 1
	}

	return aLat + t*dLat, aLon + t*dLon
}

// DistanceToPolyline returns the minimum ClosestPointDistance from p to any
// edge of the polyline. A single point polyline degenerates to the distance
// to that point. ok is false for an empty polyline.
func DistanceToPolyline(pLat, pLon float64, points [][2]float64) (dist float64, ok bool) {
	switch len(points) {
	case 0:
		return 0, false
	case 1:
		return Haversine(pLat, pLon, points[0][0], points[0][1]), true
	}

	for i := 1; i < len(points); i++ {
		d := ClosestPointDistance(pLat, pLon,
			points[i-1][0], points[i-1][1],
			points[i][0], points[i][1])
		if i == 1 || d < dist {
			dist = d
		}
	}
	return dist, true
}
