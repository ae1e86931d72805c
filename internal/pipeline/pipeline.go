package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/incident-engine/internal/domain"
	"github.com/couchcryptid/incident-engine/internal/observability"
	"github.com/jonboulle/clockwork"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 30 * time.Second

	defaultPublishTimeout = 5 * time.Second

	// SinkQueueSize is the number of snapshots buffered per sink before new
	// ones are dropped.
	SinkQueueSize = 64
)

// Reasons a snapshot is not delivered to a sink.
const (
	DropQueueFull = "queue_full"
	DropBackoff   = "backoff"
)

// Advancer moves the incident state machine forward by one tick.
type Advancer interface {
	Advance(ctx context.Context) domain.Snapshot
}

// Sink receives every emitted snapshot.
type Sink interface {
	Name() string
	Publish(ctx context.Context, snap domain.Snapshot) error
}

// sinkWorker delivers queued snapshots to one sink. backoff and retryAt are
// owned by the worker goroutine.
type sinkWorker struct {
	sink    Sink
	name    string
	queue   chan domain.Snapshot
	backoff time.Duration
	retryAt time.Time
}

// Pipeline drives the engine on a fixed cadence and hands snapshots to one
// delivery goroutine per sink. A slow or failing sink fills its own queue and
// backs off; the tick cadence never waits on it.
type Pipeline struct {
	engine   Advancer
	workers  []*sinkWorker
	clock    clockwork.Clock
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// New creates a Pipeline that advances engine every interval and starts a
// delivery goroutine per sink. Call Shutdown to stop them.
func New(engine Advancer, sinks []Sink, clock clockwork.Clock, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	base, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		engine:   engine,
		clock:    clock,
		interval: interval,
		timeout:  defaultPublishTimeout,
		logger:   logger,
		metrics:  metrics,
		base:     base,
		cancel:   cancel,
	}

	for _, s := range sinks {
		w := &sinkWorker{
			sink:    s,
			name:    s.Name(),
			queue:   make(chan domain.Snapshot, SinkQueueSize),
			backoff: initialBackoff,
		}
		p.workers = append(p.workers, w)
		p.wg.Add(1)
		go p.deliver(w)
	}
	return p
}

// CheckReadiness returns nil once the first snapshot has been emitted.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not emitted any snapshots yet")
	}
	return nil
}

// Ready reports whether at least one tick has completed.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// Run ticks until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "interval", p.interval, "sinks", len(p.workers))
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			p.Step(ctx)
		}
	}
}

// Step runs a single tick: advance, then enqueue the snapshot for every sink.
// It never blocks on sink delivery.
func (p *Pipeline) Step(ctx context.Context) domain.Snapshot {
	start := p.clock.Now()

	snap := p.engine.Advance(ctx)
	p.enqueue(snap)

	p.metrics.TickDuration.Observe(p.clock.Now().Sub(start).Seconds())
	p.ready.Store(true)
	return snap
}

// Shutdown stops accepting snapshots and waits for the queued ones to be
// delivered. When ctx expires first, in-flight publishes are cancelled and
// the remaining snapshots are discarded.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		for _, w := range p.workers {
			close(w.queue)
		}
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}

func (p *Pipeline) enqueue(snap domain.Snapshot) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}

	for _, w := range p.workers {
		select {
		case w.queue <- snap:
		default:
			p.metrics.SnapshotsDropped.WithLabelValues(w.name, DropQueueFull).Inc()
			p.logger.Warn("sink queue full, snapshot dropped", "sink", w.name, "sequence", snap.Sequence)
		}
	}
}

func (p *Pipeline) deliver(w *sinkWorker) {
	defer p.wg.Done()
	for snap := range w.queue {
		if p.base.Err() != nil {
			continue
		}
		p.publish(w, snap)
	}
}

func (p *Pipeline) publish(w *sinkWorker, snap domain.Snapshot) {
	now := p.clock.Now()
	if now.Before(w.retryAt) {
		p.metrics.SnapshotsDropped.WithLabelValues(w.name, DropBackoff).Inc()
		p.logger.Debug("sink backing off, snapshot skipped", "sink", w.name, "sequence", snap.Sequence)
		return
	}

	pubCtx, cancel := context.WithTimeout(p.base, p.timeout)
	defer cancel()

	if err := w.sink.Publish(pubCtx, snap); err != nil {
		p.metrics.SinkErrors.WithLabelValues(w.name).Inc()
		p.logger.Warn("publish snapshot failed",
			"sink", w.name,
			"sequence", snap.Sequence,
			"retry_in", w.backoff,
			"error", err,
		)
		w.retryAt = now.Add(w.backoff)
		w.backoff = nextBackoff(w.backoff, maxBackoff)
		return
	}

	w.backoff = initialBackoff
	w.retryAt = time.Time{}
	p.metrics.SnapshotsPublished.WithLabelValues(w.name).Inc()
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
