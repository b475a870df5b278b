// Package cache stores completed task outcomes keyed by artifact digest and
// metric id. Evaluators are deterministic for identical bytes, so replaying
// a stored outcome is equivalent to re-running the metric.
package cache

import (
	"context"

	"github.com/uimetrics/uima-go-api/internal/models"
)

// OutcomeCache is the optional read-through cache consulted by workers
// before invoking an evaluator. Implementations are best-effort: errors are
// reported but must never fail a task.
type OutcomeCache interface {
	Get(ctx context.Context, artifactSHA, metricID string) (models.TaskOutcome, bool, error)
	Set(ctx context.Context, artifactSHA string, outcome models.TaskOutcome) error
}
