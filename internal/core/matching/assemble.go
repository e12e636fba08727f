package matching

import (
	"sort"

	"github.com/samirrijal/bikepaths/internal/core/domain"
)

// MaxRouteCandidates bounds how many matched paths are scored per search.
const MaxRouteCandidates = 3

// ObstacleFetcher loads the obstacles attached to a path's segments.
type ObstacleFetcher func(p domain.Path) ([]domain.Obstacle, error)

// SelectCandidates matches paths and keeps the first MaxRouteCandidates in
// matcher order. Selection happens before scoring, so a better-scoring match
// past the cutoff is never considered. It returns domain.ErrNoRouteFound when
// nothing matches.
func SelectCandidates(origin, destination domain.GeoPoint, toleranceMeters float64, paths []domain.Path) ([]domain.Path, error) {
	matched := MatchPaths(origin, destination, toleranceMeters, paths)
	if len(matched) == 0 {
		return nil, domain.ErrNoRouteFound
	}
	if len(matched) > MaxRouteCandidates {
		matched = matched[:MaxRouteCandidates]
	}
	return matched, nil
}

// Rank scores each selected path and sorts the candidates by ascending score.
// Equal scores keep selection order.
func Rank(paths []domain.Path, obstacles ObstaclesBySegment) []domain.RouteCandidate {
	out := make([]domain.RouteCandidate, 0, len(paths))
	for _, p := range paths {
		segs := p.OrderedSegments()
		out = append(out, domain.RouteCandidate{
			PathID:          p.ID,
			Name:            p.Name,
			Score:           Score(segs, obstacles),
			TotalDistanceKm: TotalDistanceKm(segs),
			Segments:        AttachObstacles(segs, obstacles),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score < out[j].Score })
	return out
}

// Assemble runs selection, fetches obstacles only for the selected paths,
// and ranks them.
func Assemble(origin, destination domain.GeoPoint, toleranceMeters float64, paths []domain.Path, fetch ObstacleFetcher) ([]domain.RouteCandidate, error) {
	selected, err := SelectCandidates(origin, destination, toleranceMeters, paths)
	if err != nil {
		return nil, err
	}

	idx := make(ObstaclesBySegment)
	for _, p := range selected {
		obs, err := fetch(p)
		if err != nil {
			return nil, err
		}
		for seg, list := range GroupObstacles(obs) {
			idx[seg] = append(idx[seg], list...)
		}
	}

	return Rank(selected, idx), nil
}

// AttachObstacles pairs each segment with its indexed obstacles. Segments
// without obstacles get an empty, non-nil list.
func AttachObstacles(segs []domain.Segment, obstacles ObstaclesBySegment) []domain.RouteSegment {
	out := make([]domain.RouteSegment, len(segs))
	for i, s := range segs {
		obs := obstacles[s.ID]
		if obs == nil {
			obs = []domain.Obstacle{}
		}
		out[i] = domain.RouteSegment{Segment: s, Obstacles: obs}
	}
	return out
}
