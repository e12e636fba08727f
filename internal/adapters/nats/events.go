package natsadapter

import (
	"time"

	"github.com/samirrijal/bikepaths/internal/core/domain"
)

// Subjects published by the service.
const (
	SubjectPathCreated     = "bikepaths.paths.created"
	SubjectPathRefine      = "bikepaths.paths.refine"
	SubjectObstaclesPrefix = "bikepaths.obstacles."
	SubjectObstaclesAll    = SubjectObstaclesPrefix + ">"
)

// ObstacleSubject returns the subject carrying obstacle reports for one path.
func ObstacleSubject(pathID string) string {
	return SubjectObstaclesPrefix + pathID
}

// PathCreatedEvent is the payload of SubjectPathCreated.
type PathCreatedEvent struct {
	PathID       string    `json:"path_id"`
	OwnerID      string    `json:"owner_id"`
	Name         string    `json:"name,omitempty"`
	Publishable  bool      `json:"publishable"`
	Refined      bool      `json:"refined"`
	SegmentCount int       `json:"segment_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// ObstacleReportedEvent is the payload of ObstacleSubject(pathID).
type ObstacleReportedEvent struct {
	PathID   string          `json:"path_id"`
	Obstacle domain.Obstacle `json:"obstacle"`
}

// RefinementRequest is the payload of SubjectPathRefine.
type RefinementRequest struct {
	PathID string `json:"path_id"`
}

func newPathCreatedEvent(p *domain.Path) PathCreatedEvent {
	return PathCreatedEvent{
		PathID:       p.ID,
		OwnerID:      p.OwnerID,
		Name:         p.Name,
		Publishable:  p.Publishable,
		Refined:      p.Refined,
		SegmentCount: len(p.Segments),
		CreatedAt:    p.CreatedAt,
	}
}
