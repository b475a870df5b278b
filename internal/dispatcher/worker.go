package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/uimetrics/uima-go-api/internal/classifier"
	"github.com/uimetrics/uima-go-api/internal/evaluator"
	"github.com/uimetrics/uima-go-api/internal/models"
	"github.com/uimetrics/uima-go-api/internal/observability"
)

// execute runs one task to completion and reports its outcome to the
// session. Evaluator errors and panics are converted to failure outcomes at
// this boundary; they never escape to sibling tasks or the worker loop.
func (d *Dispatcher) execute(ctx context.Context, t *task) {
	// Cancelled sessions drop their queued tasks unstarted.
	select {
	case <-t.session.Context().Done():
		d.logger.Debug().
			Str("session_id", t.session.ID()).
			Str("metric_id", t.desc.ID).
			Msg("dropping task for cancelled session")
		return
	default:
	}

	if outcome, ok := d.cachedOutcome(t); ok {
		d.report(t, outcome)
		return
	}

	spanCtx, span := d.tracer.Start(ctx, "task.evaluate",
		trace.WithAttributes(
			attribute.String("metric.id", t.desc.ID),
			attribute.String("session.id", t.session.ID()),
		))
	defer span.End()

	start := time.Now()
	outcome := d.runEvaluator(spanCtx, t)
	outcome.Duration = time.Since(start)

	if outcome.Failed() {
		span.SetStatus(codes.Error, outcome.Failure.Message)
	} else if d.outcomes != nil {
		if err := d.outcomes.Set(spanCtx, t.artifact.SHA256, outcome); err != nil {
			d.logger.Warn().Err(err).Str("metric_id", t.desc.ID).Msg("failed to cache outcome")
		}
	}

	d.report(t, outcome)
}

func (d *Dispatcher) cachedOutcome(t *task) (models.TaskOutcome, bool) {
	if d.outcomes == nil {
		return models.TaskOutcome{}, false
	}

	outcome, hit, err := d.outcomes.Get(t.session.Context(), t.artifact.SHA256, t.desc.ID)
	if err != nil {
		d.logger.Warn().Err(err).Str("metric_id", t.desc.ID).Msg("outcome cache lookup failed")
		return models.TaskOutcome{}, false
	}
	if !hit {
		return models.TaskOutcome{}, false
	}

	values, ok := restoreValues(outcome.Values, t.desc)
	if !ok {
		return models.TaskOutcome{}, false
	}
	outcome.Values = values
	return outcome, true
}

// restoreValues realigns cached values with the declared result types. The
// JSON encoding loses the float kind for integral numbers, so a stored float
// may decode as an int; widening it here keeps the entry replayable. Any
// other mismatch makes the entry unusable and is treated as a miss.
func restoreValues(values []models.ResultValue, desc models.MetricDescriptor) ([]models.ResultValue, bool) {
	if len(values) != len(desc.Results) {
		return nil, false
	}

	out := make([]models.ResultValue, len(values))
	for i, value := range values {
		restored, ok := value.CoerceTo(desc.Results[i].Type)
		if !ok {
			return nil, false
		}
		out[i] = restored
	}
	return out, true
}

type evalResult struct {
	values []models.ResultValue
	err    error
}

// runEvaluator invokes the metric implementation under the task timeout.
// Evaluators are not assumed cooperatively interruptible: on expiry the
// computation keeps running in the background and its result is discarded
// through the buffered channel.
func (d *Dispatcher) runEvaluator(ctx context.Context, t *task) models.TaskOutcome {
	ev, ok := d.evaluators[t.desc.ID]
	if !ok {
		return failureOutcome(t.desc.ID, models.FailureComputation, "no evaluator registered for metric")
	}

	resultCh := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- evalResult{err: evaluator.Failf(models.FailureComputation, "evaluator panic: %v", r)}
			}
		}()
		values, err := ev.Evaluate(ctx, t.artifact)
		resultCh <- evalResult{values: values, err: err}
	}()

	timer := time.NewTimer(d.cfg.TaskTimeout)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		return d.completeTask(t, res)
	case <-timer.C:
		d.logger.Warn().
			Str("session_id", t.session.ID()).
			Str("metric_id", t.desc.ID).
			Dur("timeout", d.cfg.TaskTimeout).
			Msg("task timed out")
		return failureOutcome(t.desc.ID, models.FailureTimeout,
			fmt.Sprintf("evaluation exceeded %s", d.cfg.TaskTimeout))
	}
}

// completeTask converts an evaluator return into a task outcome, enforcing
// the declared result shape and classifying numeric values.
func (d *Dispatcher) completeTask(t *task, res evalResult) models.TaskOutcome {
	if res.err != nil {
		if evalErr, ok := res.err.(*evaluator.Error); ok {
			return failureOutcome(t.desc.ID, evalErr.Kind, evalErr.Message)
		}
		return failureOutcome(t.desc.ID, models.FailureComputation, res.err.Error())
	}

	if !shapeMatches(res.values, t.desc) {
		return failureOutcome(t.desc.ID, models.FailureComputation,
			fmt.Sprintf("produced %d values, catalog declares %d", len(res.values), len(t.desc.Results)))
	}

	return models.TaskOutcome{
		MetricID:  t.desc.ID,
		Values:    res.values,
		Judgments: classifier.ClassifyOutcome(res.values, t.desc.Results),
	}
}

// shapeMatches verifies the produced values against the declared result
// list: same count, matching type at every index. A mismatch is a
// computation failure, never silently truncated or padded.
func shapeMatches(values []models.ResultValue, desc models.MetricDescriptor) bool {
	if len(values) != len(desc.Results) {
		return false
	}
	for i, value := range values {
		if !value.Matches(desc.Results[i].Type) {
			return false
		}
	}
	return true
}

func failureOutcome(metricID string, kind models.FailureKind, message string) models.TaskOutcome {
	return models.TaskOutcome{
		MetricID: metricID,
		Failure:  &models.TaskFailure{Kind: kind, Message: message},
	}
}

func (d *Dispatcher) report(t *task, outcome models.TaskOutcome) {
	label := "success"
	switch {
	case outcome.Failed():
		label = string(outcome.Failure.Kind)
	case outcome.Cached:
		label = "cached"
	}
	observability.TaskOutcomes().WithLabelValues(t.desc.ID, label).Inc()
	observability.TaskDuration().WithLabelValues(t.desc.ID).Observe(outcome.Duration.Seconds())

	if !t.session.Deliver(outcome) {
		d.logger.Debug().
			Str("session_id", t.session.ID()).
			Str("metric_id", t.desc.ID).
			Msg("discarding late result for cancelled session")
	}
}
