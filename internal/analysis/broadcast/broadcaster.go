// Package broadcast notifies realtime subscribers that a candidate changed.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cuongbtq/resume-analyzer/internal/analysis/domain"
	"github.com/redis/go-redis/v9"
)

// JobTopic is the channel subscribers of a job's candidate list listen on
func JobTopic(jobID string) string {
	return "job:" + jobID + ":candidates"
}

// RedisBroadcaster publishes change events over Redis pub/sub.
// Delivery is at-most-once: nothing is retried or persisted.
type RedisBroadcaster struct {
	rdb redis.UniversalClient
}

// NewRedisBroadcaster creates a new RedisBroadcaster
func NewRedisBroadcaster(rdb redis.UniversalClient) *RedisBroadcaster {
	return &RedisBroadcaster{rdb: rdb}
}

// Publish sends event to topic
func (b *RedisBroadcaster) Publish(ctx context.Context, topic string, event domain.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if err := b.rdb.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}
