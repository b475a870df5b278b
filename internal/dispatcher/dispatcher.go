// Package dispatcher validates evaluation requests and fans their metric
// tasks out to a bounded worker pool. One task's failure or timeout never
// propagates to sibling tasks; the session still reaches completion.
package dispatcher

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/uimetrics/uima-go-api/internal/artifact"
	"github.com/uimetrics/uima-go-api/internal/cache"
	"github.com/uimetrics/uima-go-api/internal/evaluator"
	"github.com/uimetrics/uima-go-api/internal/models"
	"github.com/uimetrics/uima-go-api/internal/observability"
	"github.com/uimetrics/uima-go-api/internal/registry"
	"github.com/uimetrics/uima-go-api/internal/session"
)

// ValidationError rejects a whole request before any task is scheduled.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Config groups dispatcher configuration values.
type Config struct {
	// PoolSize bounds the number of concurrently running tasks.
	// Zero means the available CPU parallelism.
	PoolSize int
	// TaskTimeout bounds one metric evaluation. The underlying computation
	// is not interrupted on expiry; its late result is discarded.
	TaskTimeout time.Duration
	Logger      zerolog.Logger
}

// Request is one caller-submitted evaluation.
type Request struct {
	SessionID     string
	CorrelationID string
	Artifact      *artifact.Artifact
	MetricIDs     []string
	Sink          session.Sink
	Observer      func(models.TaskOutcome)
	OnTerminal    func()
}

type task struct {
	session  *session.Session
	desc     models.MetricDescriptor
	artifact *artifact.Artifact
	regIndex int
	seq      uint64
}

// Dispatcher owns the worker pool and the pending task queue. Tasks are
// dequeued by declared speed (faster first), then registration order, then
// submission order.
type Dispatcher struct {
	registry   *registry.Registry
	evaluators map[string]evaluator.Evaluator
	outcomes   cache.OutcomeCache
	cfg        Config
	logger     zerolog.Logger
	tracer     trace.Tracer

	mu      sync.Mutex
	queue   []*task
	seq     uint64
	started bool

	wake chan struct{}
	wg   sync.WaitGroup
}

// New constructs a dispatcher. outcomes may be nil to disable caching.
func New(reg *registry.Registry, evaluators map[string]evaluator.Evaluator, outcomes cache.OutcomeCache, cfg Config) *Dispatcher {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = runtime.NumCPU()
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 60 * time.Second
	}

	return &Dispatcher{
		registry:   reg,
		evaluators: evaluators,
		outcomes:   outcomes,
		cfg:        cfg,
		logger:     cfg.Logger.With().Str("component", "dispatcher").Logger(),
		tracer:     otel.Tracer("github.com/uimetrics/uima-go-api/internal/dispatcher"),
		wake:       make(chan struct{}, 1),
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.mu.Unlock()

	for i := 0; i < d.cfg.PoolSize; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
	d.logger.Info().Int("pool_size", d.cfg.PoolSize).Msg("worker pool started")
}

// Wait blocks until all workers have exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Submit validates the request and schedules one task per unique metric id.
// On any validation failure no tasks are scheduled and no session exists.
func (d *Dispatcher) Submit(ctx context.Context, req Request) (*session.Session, error) {
	if req.Artifact == nil {
		return nil, &ValidationError{Message: "artifact is required"}
	}

	unique, unknown := d.resolveMetrics(req.MetricIDs)
	if len(unknown) > 0 {
		return nil, &ValidationError{Message: fmt.Sprintf("unknown metric ids: %s", strings.Join(unknown, ", "))}
	}

	sess := session.New(ctx, session.Config{
		ID:            req.SessionID,
		CorrelationID: req.CorrelationID,
		Submitted:     len(unique),
		Registry:      d.registry,
		Sink:          req.Sink,
		Observer:      req.Observer,
		OnTerminal:    req.OnTerminal,
		Logger:        d.logger,
	})

	observability.Sessions().WithLabelValues("started").Inc()

	d.mu.Lock()
	for _, desc := range unique {
		d.seq++
		d.enqueueLocked(&task{
			session:  sess,
			desc:     desc.descriptor,
			artifact: req.Artifact,
			regIndex: desc.regIndex,
			seq:      d.seq,
		})
	}
	d.mu.Unlock()
	d.signal()

	d.logger.Debug().
		Str("session_id", req.SessionID).
		Int("submitted", len(unique)).
		Msg("session dispatched")

	return sess, nil
}

type resolvedMetric struct {
	descriptor models.MetricDescriptor
	regIndex   int
}

// resolveMetrics deduplicates the requested ids and resolves them against
// the registry. All unknown ids are reported together.
func (d *Dispatcher) resolveMetrics(ids []string) ([]resolvedMetric, []string) {
	regIndex := make(map[string]int, d.registry.Len())
	for i, desc := range d.registry.All() {
		regIndex[desc.ID] = i
	}

	seen := make(map[string]struct{}, len(ids))
	var unique []resolvedMetric
	var unknown []string

	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		desc, err := d.registry.Lookup(id)
		if err != nil {
			unknown = append(unknown, id)
			continue
		}
		unique = append(unique, resolvedMetric{descriptor: desc, regIndex: regIndex[id]})
	}

	sort.Strings(unknown)
	return unique, unknown
}

// enqueueLocked inserts the task keeping the queue ordered by speed desc,
// registration order asc, submission order asc.
func (d *Dispatcher) enqueueLocked(t *task) {
	pos := sort.Search(len(d.queue), func(i int) bool {
		return taskLess(t, d.queue[i])
	})
	d.queue = append(d.queue, nil)
	copy(d.queue[pos+1:], d.queue[pos:])
	d.queue[pos] = t
}

func taskLess(a, b *task) bool {
	if a.desc.Speed != b.desc.Speed {
		return a.desc.Speed > b.desc.Speed
	}
	if a.regIndex != b.regIndex {
		return a.regIndex < b.regIndex
	}
	return a.seq < b.seq
}

func (d *Dispatcher) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()

	for {
		t := d.next(ctx)
		if t == nil {
			return
		}
		d.execute(ctx, t)
	}
}

// next blocks until a task is available or ctx is cancelled.
func (d *Dispatcher) next(ctx context.Context) *task {
	for {
		d.mu.Lock()
		if len(d.queue) > 0 {
			t := d.queue[0]
			d.queue = d.queue[1:]
			if len(d.queue) > 0 {
				d.signal()
			}
			d.mu.Unlock()
			return t
		}
		d.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil
		case <-d.wake:
		}
	}
}

// QueueLen reports the number of tasks waiting for a worker.
func (d *Dispatcher) QueueLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}
