package notify

import (
	"context"
	"fmt"

	goredis "github.com/go-redis/redis/v8"

	"rosterwatch/internal/models"
	"rosterwatch/internal/redis"
)

// StreamPublisher appends custody events to a Redis Stream for downstream
// consumers.
type StreamPublisher struct {
	client *goredis.Client
	stream string
}

// NewStreamPublisher creates the publisher.
func NewStreamPublisher(client *goredis.Client, stream string) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream}
}

// PublishEvent appends one event.
func (p *StreamPublisher) PublishEvent(ctx context.Context, event *models.CustodyEvent) error {
	if _, err := redis.PublishJSONToStream(ctx, p.client, p.stream, event); err != nil {
		return fmt.Errorf("failed to publish custody event: %w", err)
	}
	return nil
}
