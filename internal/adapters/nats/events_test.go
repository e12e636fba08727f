package natsadapter

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/samirrijal/bikepaths/internal/core/domain"
)

func TestObstacleSubject(t *testing.T) {
	if got := ObstacleSubject("p-1"); got != "bikepaths.obstacles.p-1" {
		t.Errorf("unexpected subject %q", got)
	}
}

func TestStreamsCoverPublishedSubjects(t *testing.T) {
	subjects := map[string]bool{}
	for _, s := range Streams {
		for _, subj := range s.Subjects {
			subjects[subj] = true
		}
	}
	for _, want := range []string{SubjectPathCreated, SubjectPathRefine, SubjectObstaclesAll} {
		if !subjects[want] {
			t.Errorf("no stream captures %s", want)
		}
	}
}

func TestPathCreatedEvent(t *testing.T) {
	created := time.Date(2026, 5, 4, 8, 30, 0, 0, time.UTC)
	ev := newPathCreatedEvent(&domain.Path{
		ID:          "p-1",
		OwnerID:     "rider-1",
		Publishable: true,
		CreatedAt:   created,
		Segments:    make([]domain.Segment, 3),
	})

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded["path_id"] != "p-1" || decoded["segment_count"] != float64(3) || decoded["publishable"] != true {
		t.Errorf("unexpected payload: %s", data)
	}
}
