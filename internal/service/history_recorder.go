package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/uimetrics/uima-go-api/internal/artifact"
	"github.com/uimetrics/uima-go-api/internal/models"
	"github.com/uimetrics/uima-go-api/internal/repository"
	"github.com/uimetrics/uima-go-api/internal/session"
)

const historyWriteTimeout = 5 * time.Second

// historyRecorder appends session rows and task outcomes to the evaluation
// log. All methods are best-effort: storage failures are logged and never
// affect result delivery. A nil repository disables recording entirely.
type historyRecorder struct {
	repo          repository.EvaluationRepository
	logger        zerolog.Logger
	sessionID     string
	correlationID string
	art           *artifact.Artifact

	mu           sync.Mutex
	evaluationID uint
	completed    int
	terminalSeen bool
	pending      []models.TaskOutcome
}

func (s *evaluationService) newHistoryRecorder(sessionID, correlationID string, art *artifact.Artifact) *historyRecorder {
	return &historyRecorder{
		repo:          s.history,
		logger:        s.logger,
		sessionID:     sessionID,
		correlationID: correlationID,
		art:           art,
	}
}

// create inserts the session row. Outcomes observed before the row exists
// are buffered and flushed here; the aggregator may complete fast tasks
// before dispatch returns.
func (r *historyRecorder) create(sess *session.Session) {
	if r.repo == nil {
		return
	}

	_, submitted := sess.Counts()
	evaluation := models.Evaluation{
		SessionID:      r.sessionID,
		CorrelationID:  r.correlationID,
		ArtifactSHA256: r.art.SHA256,
		ArtifactWidth:  r.art.Width,
		ArtifactHeight: r.art.Height,
		SubmittedCount: submitted,
	}

	ctx, cancel := r.writeCtx()
	defer cancel()

	if err := r.repo.Create(ctx, &evaluation); err != nil {
		r.logger.Warn().Err(err).Str("session_id", r.sessionID).Msg("failed to record evaluation")
		return
	}

	r.mu.Lock()
	r.evaluationID = evaluation.ID
	pending := r.pending
	r.pending = nil
	terminalSeen := r.terminalSeen
	r.mu.Unlock()

	for _, outcome := range pending {
		r.appendResult(outcome)
	}

	// A session of fast metrics can reach its terminal state before the row
	// exists; replay the completed-count update it could not apply.
	if terminalSeen {
		r.terminal()
	}
}

// observe runs on the session aggregator goroutine for every task outcome.
func (r *historyRecorder) observe(outcome models.TaskOutcome) {
	if r.repo == nil {
		return
	}

	r.mu.Lock()
	r.completed++
	if r.evaluationID == 0 {
		r.pending = append(r.pending, outcome)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.appendResult(outcome)
}

func (r *historyRecorder) appendResult(outcome models.TaskOutcome) {
	values, err := json.Marshal(storedValues(outcome.Values))
	if err != nil {
		r.logger.Warn().Err(err).Str("metric_id", outcome.MetricID).Msg("failed to encode outcome values")
		return
	}
	judgments, err := json.Marshal(outcome.Judgments)
	if err != nil {
		r.logger.Warn().Err(err).Str("metric_id", outcome.MetricID).Msg("failed to encode outcome judgments")
		return
	}

	record := models.EvaluationResult{
		MetricID:   outcome.MetricID,
		Values:     datatypes.JSON(values),
		Judgments:  datatypes.JSON(judgments),
		DurationMs: outcome.Duration.Milliseconds(),
		Cached:     outcome.Cached,
	}
	if outcome.Failed() {
		record.FailureKind = string(outcome.Failure.Kind)
	}

	r.mu.Lock()
	record.EvaluationID = r.evaluationID
	r.mu.Unlock()

	ctx, cancel := r.writeCtx()
	defer cancel()

	if err := r.repo.AppendResult(ctx, &record); err != nil {
		r.logger.Warn().Err(err).Str("metric_id", outcome.MetricID).Msg("failed to record outcome")
	}
}

// terminal persists the final completed count.
func (r *historyRecorder) terminal() {
	if r.repo == nil {
		return
	}

	r.mu.Lock()
	r.terminalSeen = true
	id := r.evaluationID
	completed := r.completed
	r.mu.Unlock()
	if id == 0 {
		return
	}

	ctx, cancel := r.writeCtx()
	defer cancel()

	if err := r.repo.SetCompletedCount(ctx, id, completed); err != nil {
		r.logger.Warn().Err(err).Str("session_id", r.sessionID).Msg("failed to record completion")
	}
}

// writeCtx detaches history writes from the connection lifetime; a client
// disconnect must not abort the append-only log.
func (r *historyRecorder) writeCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), historyWriteTimeout)
}

// storedValues replaces image payloads with their byte length so the log
// stays compact; numeric values are stored as-is.
func storedValues(values []models.ResultValue) []interface{} {
	out := make([]interface{}, 0, len(values))
	for _, value := range values {
		if value.Kind == models.KindImage {
			out = append(out, map[string]interface{}{"imageBytes": len(value.ImageB64)})
			continue
		}
		out = append(out, value)
	}
	return out
}
