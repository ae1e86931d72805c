package enrichment

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/incident-engine/internal/domain"
	"github.com/couchcryptid/incident-engine/internal/observability"
)

var errEmptyResponse = errors.New("oracle returned no content")

// Coordinator issues oracle requests in background goroutines. Requests
// return immediately; results are delivered to the supplied Applier, which is
// responsible for dropping results whose generation has ended.
type Coordinator struct {
	reasoning ReasoningOracle
	planner   PlannerOracle
	fallback  Fallback
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
	wg        sync.WaitGroup
}

// NewCoordinator creates a Coordinator. Nil oracles are replaced by the
// fallback oracle. A zero timeout leaves oracle calls unbounded.
func NewCoordinator(reasoning ReasoningOracle, planner PlannerOracle, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Coordinator {
	if reasoning == nil {
		reasoning = Fallback{}
	}
	if planner == nil {
		planner = Fallback{}
	}
	return &Coordinator{
		reasoning: reasoning,
		planner:   planner,
		timeout:   timeout,
		logger:    logger,
		metrics:   metrics,
	}
}

// RequestAssessment asks the reasoning oracle for a trace of the threat.
// The call outlives ctx cancellation; only ctx values are kept.
func (c *Coordinator) RequestAssessment(ctx context.Context, generation uint64, threat domain.Threat, intel []domain.IntelItem, dst Applier) {
	threat = threat.Clone()
	intel = append([]domain.IntelItem(nil), intel...)

	c.run(ctx, KindAssessment, generation, dst, func(ctx context.Context) (Result, error) {
		steps, err := c.reasoning.Assess(ctx, threat, intel)
		if err == nil && len(steps) == 0 {
			err = errEmptyResponse
		}
		if err != nil {
			steps, _ = c.fallback.Assess(ctx, threat, intel)
		}
		return Result{Steps: truncate(steps, MaxReasoningSteps)}, err
	})
}

// RequestPlan asks the planner oracle for a response plan.
func (c *Coordinator) RequestPlan(ctx context.Context, generation uint64, threat domain.Threat, dst Applier) {
	threat = threat.Clone()

	c.run(ctx, KindPlan, generation, dst, func(ctx context.Context) (Result, error) {
		plan, err := c.planner.Plan(ctx, threat)
		if err == nil && len(plan.Objectives) == 0 && len(plan.Timeline) == 0 {
			err = errEmptyResponse
		}
		if err != nil {
			plan, _ = c.fallback.Plan(ctx, threat)
		}
		return Result{Plan: &plan}, err
	})
}

// Wait blocks until every in-flight request has delivered its result.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) run(ctx context.Context, kind Kind, generation uint64, dst Applier, call func(context.Context) (Result, error)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		callCtx := context.WithoutCancel(ctx)
		if c.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(callCtx, c.timeout)
			defer cancel()
		}

		start := time.Now()
		res, err := call(callCtx)
		c.metrics.EnrichmentDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

		res.Kind = kind
		res.Generation = generation
		if err != nil {
			res.Fallback = true
			c.metrics.EnrichmentRequests.WithLabelValues(string(kind), "fallback").Inc()
			c.logger.Warn("oracle call failed, using fallback", "kind", kind, "generation", generation, "error", err)
		} else {
			c.metrics.EnrichmentRequests.WithLabelValues(string(kind), "success").Inc()
		}

		if dst.ApplyEnrichment(res) {
			c.logger.Debug("enrichment merged", "kind", kind, "generation", generation, "fallback", res.Fallback)
		}
	}()
}

func truncate(steps []string, n int) []string {
	if len(steps) > n {
		steps = steps[:n]
	}
	return append([]string(nil), steps...)
}
