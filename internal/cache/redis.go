package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/uimetrics/uima-go-api/internal/models"
)

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedis creates a Redis-backed outcome cache with the given entry TTL.
func NewRedis(client *redis.Client, ttl time.Duration, logger zerolog.Logger) OutcomeCache {
	return &redisCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "outcome_cache").Logger(),
	}
}

func outcomeKey(artifactSHA, metricID string) string {
	return fmt.Sprintf("uima:outcome:%s:%s", artifactSHA, metricID)
}

func (c *redisCache) Get(ctx context.Context, artifactSHA, metricID string) (models.TaskOutcome, bool, error) {
	payload, err := c.client.Get(ctx, outcomeKey(artifactSHA, metricID)).Result()
	if err == redis.Nil {
		return models.TaskOutcome{}, false, nil
	}
	if err != nil {
		return models.TaskOutcome{}, false, err
	}

	var outcome models.TaskOutcome
	if err := json.Unmarshal([]byte(payload), &outcome); err != nil {
		c.logger.Warn().Err(err).Str("metric_id", metricID).Msg("invalid cached outcome, dropping entry")
		_ = c.client.Del(ctx, outcomeKey(artifactSHA, metricID)).Err()
		return models.TaskOutcome{}, false, nil
	}

	outcome.Cached = true
	return outcome, true, nil
}

func (c *redisCache) Set(ctx context.Context, artifactSHA string, outcome models.TaskOutcome) error {
	// Failed outcomes are not cached: failures may be transient.
	if outcome.Failed() {
		return nil
	}

	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	return c.client.Set(ctx, outcomeKey(artifactSHA, outcome.MetricID), payload, c.ttl).Err()
}
