package publisher

import (
	"context"
	"fmt"

	"github.com/blockedby/repost-tracer/internal/collector"
	"github.com/blockedby/repost-tracer/internal/nats"
)

// NATSClient interface to allow mocking
type NATSClient interface {
	Publish(ctx context.Context, subject string, data any) error
}

// NATSPublisher implements collector.EventPublisher
type NATSPublisher struct {
	js NATSClient
}

// NewNATSPublisher creates a new publisher
func NewNATSPublisher(client NATSClient) *NATSPublisher {
	return &NATSPublisher{js: client}
}

// PublishRunCompleted publishes the summary of a finished scan run.
func (p *NATSPublisher) PublishRunCompleted(ctx context.Context, event collector.RunCompletedEvent) error {
	if err := p.js.Publish(ctx, nats.SubjectRunCompleted, event); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
