package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/uimetrics/uima-go-api/internal/artifact"
	"github.com/uimetrics/uima-go-api/internal/dispatcher"
	"github.com/uimetrics/uima-go-api/internal/dto"
	"github.com/uimetrics/uima-go-api/internal/observability"
	"github.com/uimetrics/uima-go-api/internal/registry"
	"github.com/uimetrics/uima-go-api/internal/repository"
	"github.com/uimetrics/uima-go-api/internal/session"
)

const evalSendBufferSize = 64

// ConnectionOptions wraps metadata extracted during the HTTP upgrade.
type ConnectionOptions struct {
	CorrelationID string
	Context       context.Context
}

// EvaluationService manages evaluation websocket connections, the metric
// catalog listing and the evaluation history.
type EvaluationService interface {
	ServeConnection(conn *websocket.Conn, opts ConnectionOptions)
	Catalog() dto.CatalogResponse
	History(ctx context.Context, limit int) ([]dto.EvaluationSummary, error)
}

// Config groups the service collaborators. History and NATS are optional.
type Config struct {
	Registry         *registry.Registry
	Dispatcher       *dispatcher.Dispatcher
	History          repository.EvaluationRepository
	NATS             *nats.Conn
	Validator        *validator.Validate
	MaxArtifactBytes int
	Logger           zerolog.Logger
}

type evaluationService struct {
	registry         *registry.Registry
	dispatcher       *dispatcher.Dispatcher
	history          repository.EvaluationRepository
	nats             *nats.Conn
	validator        *validator.Validate
	maxArtifactBytes int
	logger           zerolog.Logger
	tracer           trace.Tracer
}

// NewEvaluationService creates the evaluation service instance.
func NewEvaluationService(cfg Config) EvaluationService {
	return &evaluationService{
		registry:         cfg.Registry,
		dispatcher:       cfg.Dispatcher,
		history:          cfg.History,
		nats:             cfg.NATS,
		validator:        cfg.Validator,
		maxArtifactBytes: cfg.MaxArtifactBytes,
		logger:           cfg.Logger.With().Str("component", "evaluation_service").Logger(),
		tracer:           otel.Tracer("github.com/uimetrics/uima-go-api/internal/service"),
	}
}

// closeSentinel tells the writer pump to flush and close the connection.
type closeSentinel struct{}

type evalClient struct {
	conn        *websocket.Conn
	send        chan interface{}
	closed      chan struct{}
	once        sync.Once
	service     *evaluationService
	baseCtx     context.Context
	correlation string

	mu        sync.Mutex
	session   *session.Session
	cancelled bool
}

func (s *evaluationService) ServeConnection(conn *websocket.Conn, opts ConnectionOptions) {
	baseCtx := opts.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	client := &evalClient{
		conn:        conn,
		send:        make(chan interface{}, evalSendBufferSize),
		closed:      make(chan struct{}),
		service:     s,
		baseCtx:     baseCtx,
		correlation: opts.CorrelationID,
	}

	observability.WSConnections().Inc()

	go client.writer()
	client.reader()
}

func (s *evaluationService) Catalog() dto.CatalogResponse {
	response := dto.CatalogResponse{Categories: []dto.CatalogCategory{}}

	declared := make(map[string]struct{})
	for _, category := range s.registry.Categories() {
		declared[category.ID] = struct{}{}
		entry := dto.CatalogCategory{ID: category.ID, Name: category.Name}
		for _, desc := range s.registry.ListByCategory(category.ID) {
			entry.Metrics = append(entry.Metrics, dto.NewCatalogMetric(desc))
		}
		response.Categories = append(response.Categories, entry)
	}

	// Metrics referencing an undeclared category still get listed.
	extra := make(map[string]*dto.CatalogCategory)
	var extraOrder []string
	for _, desc := range s.registry.All() {
		if _, ok := declared[desc.CategoryID]; ok {
			continue
		}
		entry, ok := extra[desc.CategoryID]
		if !ok {
			entry = &dto.CatalogCategory{ID: desc.CategoryID, Name: desc.CategoryID}
			extra[desc.CategoryID] = entry
			extraOrder = append(extraOrder, desc.CategoryID)
		}
		entry.Metrics = append(entry.Metrics, dto.NewCatalogMetric(desc))
	}
	for _, id := range extraOrder {
		response.Categories = append(response.Categories, *extra[id])
	}

	return response
}

func (s *evaluationService) History(ctx context.Context, limit int) ([]dto.EvaluationSummary, error) {
	if s.history == nil {
		return []dto.EvaluationSummary{}, nil
	}

	evaluations, err := s.history.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}

	return dto.NewEvaluationSummarySlice(evaluations), nil
}

// processExecute validates the execute message and dispatches the session.
// Request-level failures push a single terminal error event; no tasks are
// scheduled and no partial results are ever delivered for them.
func (s *evaluationService) processExecute(client *evalClient, payload dto.ExecuteRequest) {
	if err := s.validator.Struct(payload); err != nil {
		client.Push(dto.NewValidationErrorEvent(fmt.Sprintf("invalid execute message: %v", err)))
		client.finishAfterFlush()
		return
	}

	raw, err := decodeArtifactData(payload.Data)
	if err != nil {
		client.Push(dto.NewValidationErrorEvent(err.Error()))
		client.finishAfterFlush()
		return
	}

	art, err := artifact.Decode(raw, s.maxArtifactBytes)
	if err != nil {
		if errors.Is(err, artifact.ErrEmpty) || errors.Is(err, artifact.ErrTooLarge) || errors.Is(err, artifact.ErrUnsupportedFormat) {
			client.Push(dto.NewValidationErrorEvent(err.Error()))
		} else {
			client.Push(dto.NewGeneralErrorEvent("artifact could not be processed"))
			s.logger.Error().Err(err).Msg("artifact normalisation failed")
		}
		client.finishAfterFlush()
		return
	}

	sessionID := uuid.NewString()
	metricIDs := payload.SelectedMetrics()

	_, span := s.tracer.Start(client.baseCtx, "session.execute",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.Int("session.metric_count", len(metricIDs)),
		))
	defer span.End()

	recorder := s.newHistoryRecorder(sessionID, client.correlation, art)

	sess, err := s.dispatcher.Submit(client.baseCtx, dispatcher.Request{
		SessionID:     sessionID,
		CorrelationID: client.correlation,
		Artifact:      art,
		MetricIDs:     metricIDs,
		Sink:          s.newSessionSink(client, sessionID),
		Observer:      recorder.observe,
		OnTerminal: func() {
			recorder.terminal()
			observability.Sessions().WithLabelValues("completed").Inc()
			client.finishAfterFlush()
		},
	})
	if err != nil {
		var validation *dispatcher.ValidationError
		if errors.As(err, &validation) {
			client.Push(dto.NewValidationErrorEvent(validation.Message))
		} else {
			client.Push(dto.NewGeneralErrorEvent("evaluation could not be started"))
			s.logger.Error().Err(err).Str("session_id", sessionID).Msg("dispatch failed")
		}
		span.RecordError(err)
		client.finishAfterFlush()
		return
	}

	client.attach(sess)
	recorder.create(sess)

	s.logger.Info().
		Str("session_id", sessionID).
		Str("correlation_id", client.correlation).
		Int("metrics", len(metricIDs)).
		Msg("evaluation session started")
}

// decodeArtifactData accepts plain Base64 or a data URL as sent by browsers.
func decodeArtifactData(data string) ([]byte, error) {
	if idx := strings.Index(data, ","); idx >= 0 && strings.HasPrefix(data, "data:") {
		data = data[idx+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("artifact data is not valid base64: %w", err)
	}
	return raw, nil
}

// newSessionSink fans events out to the websocket client and, when
// configured, to the NATS subject for this session.
func (s *evaluationService) newSessionSink(client *evalClient, sessionID string) session.Sink {
	if s.nats == nil {
		return client
	}
	return &fanoutSink{
		client:  client,
		nats:    s.nats,
		subject: "uima.events." + sessionID,
		logger:  s.logger,
	}
}

type fanoutSink struct {
	client  *evalClient
	nats    *nats.Conn
	subject string
	logger  zerolog.Logger
}

func (f *fanoutSink) Push(event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		f.logger.Warn().Err(err).Msg("failed to marshal event for fan-out")
	} else if err := f.nats.Publish(f.subject, payload); err != nil {
		f.logger.Warn().Err(err).Str("subject", f.subject).Msg("failed to publish event")
	}

	return f.client.Push(event)
}

// attach registers the running session. The client can disconnect in the
// window between Submit returning and the session being attached; cancel
// right away in that case instead of running every task for a vanished
// client.
func (c *evalClient) attach(sess *session.Session) {
	c.mu.Lock()
	c.session = sess
	c.mu.Unlock()

	select {
	case <-c.closed:
		c.cancelSession()
	default:
	}
}

// cancelSession cancels the attached session at most once.
func (c *evalClient) cancelSession() {
	c.mu.Lock()
	sess := c.session
	if sess == nil || c.cancelled {
		c.mu.Unlock()
		return
	}
	c.cancelled = true
	c.mu.Unlock()

	if !sess.Terminal() {
		sess.Cancel()
		observability.Sessions().WithLabelValues("cancelled").Inc()
	}
}

// Push queues an event for delivery in emission order. It blocks only when
// the client is too slow to drain the buffer, and unblocks on disconnect.
func (c *evalClient) Push(event interface{}) error {
	select {
	case <-c.closed:
		return fmt.Errorf("connection closed")
	default:
	}

	select {
	case c.send <- event:
		return nil
	case <-c.closed:
		return fmt.Errorf("connection closed")
	}
}

// finishAfterFlush closes the connection once every queued event was written.
func (c *evalClient) finishAfterFlush() {
	_ = c.Push(closeSentinel{})
}

func (c *evalClient) reader() {
	defer c.close()

	executed := false
	for {
		var payload dto.ExecuteRequest
		if err := c.conn.ReadJSON(&payload); err != nil {
			c.service.logger.Debug().Err(err).Msg("evaluation read loop ended")
			return
		}

		if executed {
			_ = c.Push(dto.NewValidationErrorEvent("an evaluation is already running on this connection"))
			continue
		}
		executed = true

		c.service.processExecute(c, payload)
	}
}

func (c *evalClient) writer() {
	defer c.close()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return
			}
			if _, isClose := event.(closeSentinel); isClose {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session complete"))
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.service.logger.Debug().Err(err).Msg("evaluation write loop terminated")
				return
			}
		case <-time.After(30 * time.Second):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("evaluation ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

// close tears the connection down and cancels any in-flight session so its
// queued tasks are dropped and late results discarded.
func (c *evalClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.cancelSession()
		_ = c.conn.Close()
	})
}
