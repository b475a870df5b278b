// Package session owns one evaluation request's mutable progress state. All
// state mutation happens on a single aggregator goroutine fed by a channel
// of task outcomes, so worker completions never race on counters or the
// result map.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/uimetrics/uima-go-api/internal/dto"
	"github.com/uimetrics/uima-go-api/internal/models"
	"github.com/uimetrics/uima-go-api/internal/registry"
)

// Sink receives outbound session events in emission order. Implementations
// must not block for the duration of a slow consumer.
type Sink interface {
	Push(event interface{}) error
}

// Config wires a session's collaborators.
type Config struct {
	ID            string
	CorrelationID string
	Submitted     int
	Registry      *registry.Registry
	Sink          Sink
	// Observer, when set, receives every outcome on the aggregator
	// goroutine, after the corresponding event was pushed.
	Observer func(models.TaskOutcome)
	// OnTerminal, when set, runs once after the terminal event.
	OnTerminal func()
	Logger     zerolog.Logger
}

// Session aggregates task outcomes for one evaluation request.
type Session struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc

	outcomes chan models.TaskOutcome
	done     chan struct{}

	mu        sync.Mutex
	completed int
	results   map[string]models.TaskOutcome
	terminal  bool
}

// New creates the session and starts its aggregator goroutine. The parent
// context bounds the session's lifetime; cancelling it discards undelivered
// outcomes.
func New(parent context.Context, cfg Config) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		outcomes: make(chan models.TaskOutcome, cfg.Submitted),
		done:     make(chan struct{}),
		results:  make(map[string]models.TaskOutcome, cfg.Submitted),
	}

	go s.run()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.cfg.ID }

// Context is cancelled when the session ends or is cancelled; workers use it
// to drop queued tasks and discard late results.
func (s *Session) Context() context.Context { return s.ctx }

// Done is closed after the terminal event has been emitted or the session
// was cancelled.
func (s *Session) Done() <-chan struct{} { return s.done }

// Cancel stops the session. Queued tasks are dropped by their workers and
// results arriving after cancellation are discarded undelivered.
func (s *Session) Cancel() { s.cancel() }

// Deliver hands a task outcome to the aggregator. It reports false when the
// session is already cancelled or terminal and the outcome was discarded.
func (s *Session) Deliver(outcome models.TaskOutcome) bool {
	select {
	case <-s.ctx.Done():
		return false
	default:
	}

	select {
	case s.outcomes <- outcome:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// Counts returns the completed and submitted task counts.
func (s *Session) Counts() (completed, submitted int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed, s.cfg.Submitted
}

// Terminal reports whether the session has emitted its terminal event.
func (s *Session) Terminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminal
}

// Outcome returns the recorded outcome for a metric, if completed.
func (s *Session) Outcome(metricID string) (models.TaskOutcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	outcome, ok := s.results[metricID]
	return outcome, ok
}

func (s *Session) run() {
	defer close(s.done)
	defer s.cancel()

	logger := s.cfg.Logger.With().Str("session_id", s.cfg.ID).Logger()

	if s.cfg.Submitted == 0 {
		s.finish(logger)
		return
	}

	for {
		select {
		case outcome := <-s.outcomes:
			s.record(outcome)

			desc, err := s.cfg.Registry.Lookup(outcome.MetricID)
			if err != nil {
				// Dispatch validated ids, so this indicates a bug.
				logger.Error().Str("metric_id", outcome.MetricID).Msg("outcome for unregistered metric")
			}

			if err := s.cfg.Sink.Push(dto.NewMetricResultEvent(outcome, desc)); err != nil {
				logger.Warn().Err(err).Str("metric_id", outcome.MetricID).Msg("failed to push metric result")
			}

			if s.cfg.Observer != nil {
				s.cfg.Observer(outcome)
			}

			completed, submitted := s.Counts()
			if completed == submitted {
				s.finish(logger)
				return
			}

		case <-s.ctx.Done():
			logger.Debug().Msg("session cancelled before completion")
			return
		}
	}
}

func (s *Session) record(outcome models.TaskOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[outcome.MetricID] = outcome
	s.completed++
}

func (s *Session) finish(logger zerolog.Logger) {
	s.mu.Lock()
	s.terminal = true
	s.mu.Unlock()

	if err := s.cfg.Sink.Push(dto.NewSessionCompleteEvent()); err != nil {
		logger.Warn().Err(err).Msg("failed to push session complete")
	}
	if s.cfg.OnTerminal != nil {
		s.cfg.OnTerminal()
	}
	logger.Info().Msg("session complete")
}
