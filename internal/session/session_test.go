package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/uimetrics/uima-go-api/internal/dto"
	"github.com/uimetrics/uima-go-api/internal/models"
	"github.com/uimetrics/uima-go-api/internal/registry"
)

const sessionTestCatalog = `{
  "metrics": {
    "t1": {
      "category": "c", "name": "One", "evidence": 1, "relevance": 1, "speed": 2,
      "input": "png", "visualization": "table",
      "results": [{"id": "t1_0", "index": 0, "type": "int", "name": "v"}]
    },
    "t2": {
      "category": "c", "name": "Two", "evidence": 1, "relevance": 1, "speed": 0,
      "input": "png", "visualization": "table",
      "results": [{"id": "t2_0", "index": 0, "type": "float", "name": "v"}]
    }
  }
}`

type captureSink struct {
	mu     sync.Mutex
	events []interface{}
}

func (c *captureSink) Push(event interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureSink) snapshot() []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]interface{}(nil), c.events...)
}

func sessionTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.Load([]byte(sessionTestCatalog))
	require.NoError(t, err)
	return reg
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not reach a terminal state")
	}
}

func TestSessionZeroSubmittedCompletesImmediately(t *testing.T) {
	sink := &captureSink{}
	sess := New(context.Background(), Config{
		ID:        "empty",
		Submitted: 0,
		Registry:  sessionTestRegistry(t),
		Sink:      sink,
		Logger:    zerolog.Nop(),
	})

	waitDone(t, sess)

	events := sink.snapshot()
	require.Len(t, events, 1)
	require.IsType(t, dto.SessionCompleteEvent{}, events[0])
	require.True(t, sess.Terminal())
}

func TestSessionEmitsResultsThenSingleComplete(t *testing.T) {
	sink := &captureSink{}
	var terminalCalls int
	sess := New(context.Background(), Config{
		ID:         "s1",
		Submitted:  2,
		Registry:   sessionTestRegistry(t),
		Sink:       sink,
		OnTerminal: func() { terminalCalls++ },
		Logger:     zerolog.Nop(),
	})

	require.True(t, sess.Deliver(models.TaskOutcome{
		MetricID:  "t1",
		Values:    []models.ResultValue{models.IntValue(7)},
		Judgments: []string{"Good"},
	}))
	require.True(t, sess.Deliver(models.TaskOutcome{
		MetricID: "t2",
		Failure:  &models.TaskFailure{Kind: models.FailureTimeout, Message: "too slow"},
	}))

	waitDone(t, sess)

	events := sink.snapshot()
	require.Len(t, events, 3)

	first, ok := events[0].(dto.MetricResultEvent)
	require.True(t, ok)
	require.Equal(t, "t1", first.MetricID)
	require.Equal(t, "t1_0", first.Results[0].ResultID)
	require.Equal(t, "Good", first.Results[0].Judgment)

	second, ok := events[1].(dto.MetricResultEvent)
	require.True(t, ok)
	require.Equal(t, "t2", second.MetricID)
	require.Empty(t, second.Results)
	require.NotNil(t, second.Failure)
	require.Equal(t, models.FailureTimeout, second.Failure.Kind)

	require.IsType(t, dto.SessionCompleteEvent{}, events[2])
	require.Equal(t, 1, terminalCalls)

	completed, submitted := sess.Counts()
	require.Equal(t, 2, completed)
	require.Equal(t, 2, submitted)
}

func TestSessionRecordsOutcomes(t *testing.T) {
	sink := &captureSink{}
	sess := New(context.Background(), Config{
		ID:        "s2",
		Submitted: 1,
		Registry:  sessionTestRegistry(t),
		Sink:      sink,
		Logger:    zerolog.Nop(),
	})

	require.True(t, sess.Deliver(models.TaskOutcome{
		MetricID: "t1",
		Values:   []models.ResultValue{models.IntValue(42)},
	}))
	waitDone(t, sess)

	outcome, ok := sess.Outcome("t1")
	require.True(t, ok)
	require.Equal(t, int64(42), outcome.Values[0].IntVal)

	_, ok = sess.Outcome("t2")
	require.False(t, ok)
}

func TestSessionObserverSeesEveryOutcome(t *testing.T) {
	sink := &captureSink{}
	var observed []string
	sess := New(context.Background(), Config{
		ID:        "s3",
		Submitted: 2,
		Registry:  sessionTestRegistry(t),
		Sink:      sink,
		Observer:  func(outcome models.TaskOutcome) { observed = append(observed, outcome.MetricID) },
		Logger:    zerolog.Nop(),
	})

	require.True(t, sess.Deliver(models.TaskOutcome{MetricID: "t1", Values: []models.ResultValue{models.IntValue(1)}}))
	require.True(t, sess.Deliver(models.TaskOutcome{MetricID: "t2", Values: []models.ResultValue{models.FloatValue(2)}}))
	waitDone(t, sess)

	require.Equal(t, []string{"t1", "t2"}, observed)
}

func TestSessionCancelDiscardsLateResults(t *testing.T) {
	sink := &captureSink{}
	sess := New(context.Background(), Config{
		ID:        "s4",
		Submitted: 2,
		Registry:  sessionTestRegistry(t),
		Sink:      sink,
		Logger:    zerolog.Nop(),
	})

	sess.Cancel()
	waitDone(t, sess)

	require.False(t, sess.Deliver(models.TaskOutcome{MetricID: "t1", Values: []models.ResultValue{models.IntValue(1)}}))
	require.False(t, sess.Terminal())

	for _, event := range sink.snapshot() {
		require.NotEqual(t, dto.SessionCompleteEvent{}, event)
	}
}
