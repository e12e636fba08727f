package matching

import (
	"math"

	"github.com/samirrijal/bikepaths/internal/core/domain"
)

// ObstaclesBySegment indexes obstacles by the segment they are attached to,
// keeping input order within each segment.
type ObstaclesBySegment map[string][]domain.Obstacle

// GroupObstacles builds the index. Obstacles without a segment are dropped.
func GroupObstacles(obstacles []domain.Obstacle) ObstaclesBySegment {
	idx := make(ObstaclesBySegment)
	for _, o := range obstacles {
		if o.SegmentID == "" {
			continue
		}
		idx[o.SegmentID] = append(idx[o.SegmentID], o)
	}
	return idx
}

// ScorePath scores segments against a flat obstacle list. Obstacles attached
// to segments outside the list are ignored. Lower is better.
func ScorePath(segments []domain.Segment, obstacles []domain.Obstacle) float64 {
	return Score(segments, GroupObstacles(obstacles))
}

// Score sums, in segment order, each segment's length weighted by its status
// multiplier plus the severity penalty of each of its obstacles, and rounds
// the total to two decimals.
func Score(segments []domain.Segment, obstacles ObstaclesBySegment) float64 {
	var total float64
	for _, s := range segments {
		total += s.LengthMeters * s.Status.Multiplier()
		for _, o := range obstacles[s.ID] {
			total += o.Severity.Penalty()
		}
	}
	return round2(total)
}

// TotalDistanceKm is the summed segment length in kilometers, rounded to two decimals.
func TotalDistanceKm(segments []domain.Segment) float64 {
	var meters float64
	for _, s := range segments {
		meters += s.LengthMeters
	}
	return round2(meters / 1000)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
