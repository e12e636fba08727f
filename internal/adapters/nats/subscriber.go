package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
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
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeRefinementRequests delivers refinement requests to handler.
// Malformed messages are terminated; handler errors are redelivered up to
// three times in total.
func (s *Subscriber) SubscribeRefinementRequests(ctx context.Context, handler func(ctx context.Context, pathID string) error) error {
	sub, err := s.js.Subscribe(SubjectPathRefine, func(msg *nats.Msg) {
		var req RefinementRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil || req.PathID == "" {
			slog.Warn("dropping malformed refinement request", "data", string(msg.Data))
			_ = msg.Term()
			return
		}
		if err := handler(ctx, req.PathID); err != nil {
			slog.Error("refinement request failed", "path_id", req.PathID, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("path-refiner"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
