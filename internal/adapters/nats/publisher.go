package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/bikepaths/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// Streams backing the published subjects.
var Streams = []nats.StreamConfig{
	{
		Name:      "BIKEPATHS_PATHS",
		Subjects:  []string{SubjectPathCreated},
		Retention: nats.InterestPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	},
	{
		Name:      "BIKEPATHS_OBSTACLES",
		Subjects:  []string{SubjectObstaclesAll},
		Retention: nats.InterestPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	},
	{
		Name:      "BIKEPATHS_REFINE",
		Subjects:  []string{SubjectPathRefine},
		Retention: nats.WorkQueuePolicy,
		MaxAge:    72 * time.Hour,
		Storage:   nats.FileStorage,
	},
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if err := EnsureStreams(js); err != nil {
		return nil, err
	}

	return &Publisher{conn: conn, js: js}, nil
}

// EnsureStreams creates or updates every stream in Streams.
func EnsureStreams(js nats.JetStreamContext) error {
	for i := range Streams {
		cfg := Streams[i]
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}
	return nil
}

func (p *Publisher) PublishPathCreated(ctx context.Context, path *domain.Path) error {
	return p.publish(ctx, SubjectPathCreated, newPathCreatedEvent(path))
}

func (p *Publisher) PublishObstacleReported(ctx context.Context, pathID string, o *domain.Obstacle) error {
	return p.publish(ctx, ObstacleSubject(pathID), ObstacleReportedEvent{PathID: pathID, Obstacle: *o})
}

func (p *Publisher) PublishRefinementRequested(ctx context.Context, pathID string) error {
	return p.publish(ctx, SubjectPathRefine, RefinementRequest{PathID: pathID})
}

func (p *Publisher) publish(ctx context.Context, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(subject, data, nats.Context(ctx))
	return err
}

// Conn exposes the underlying connection for health checks.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
