// Package engine runs the incident lifecycle: a tick-driven phase state
// machine that resolves threats, requests enrichment, applies the alert
// policy and emits snapshots into bounded history.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/couchcryptid/incident-engine/internal/alert"
	"github.com/couchcryptid/incident-engine/internal/domain"
	"github.com/couchcryptid/incident-engine/internal/enrichment"
	"github.com/couchcryptid/incident-engine/internal/forecast"
	"github.com/couchcryptid/incident-engine/internal/history"
	"github.com/couchcryptid/incident-engine/internal/observability"
	"github.com/couchcryptid/incident-engine/internal/scenario"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ErrUnknownThreatType is returned when a threat kind outside the known set is
// injected.
var ErrUnknownThreatType = errors.New("unknown threat type")

const (
	// DefaultTimelineCapacity is the number of phase transitions retained.
	DefaultTimelineCapacity = 10
	// DefaultFeedCapacity is the number of snapshots retained.
	DefaultFeedCapacity = 20

	intelTick = 4
)

// LiveSource supplies threats found by live detectors.
type LiveSource interface {
	Threat(kind domain.ThreatType) (domain.Threat, bool)
	Candidates() []domain.Threat
}

// Enricher issues asynchronous oracle requests. Implementations must return
// without waiting for the oracle.
type Enricher interface {
	RequestAssessment(ctx context.Context, generation uint64, threat domain.Threat, intel []domain.IntelItem, dst enrichment.Applier)
	RequestPlan(ctx context.Context, generation uint64, threat domain.Threat, dst enrichment.Applier)
}

// Forecaster ingests threat samples and summarizes their trend.
type Forecaster interface {
	AddSample(domain.Threat)
	Summary(domain.Threat) domain.Prediction
}

// ShelterFinder looks up shelters near a point.
type ShelterFinder interface {
	Nearest(p domain.Point, count int) []domain.Shelter
}

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Clock      clockwork.Clock
	Logger     *slog.Logger
	Metrics    *observability.Metrics
	Forecaster Forecaster
	Enricher   Enricher
	Notifier   alert.Notifier
	Policy     *alert.Policy
	Shelters   ShelterFinder
	Live       LiveSource

	ShelterCount     int
	ZeroRetention    bool
	DefaultThreat    domain.ThreatType
	TimelineCapacity int
	FeedCapacity     int
}

// Engine owns the incident state and its history. All methods are safe for
// concurrent use; mutation is serialized by a single mutex.
type Engine struct {
	clock        clockwork.Clock
	logger       *slog.Logger
	metrics      *observability.Metrics
	forecaster   Forecaster
	enricher     Enricher
	notifier     alert.Notifier
	policy       *alert.Policy
	shelters     ShelterFinder
	live         LiveSource
	shelterCount int
	zeroRetain   bool

	mu         sync.Mutex
	state      domain.IncidentState
	forced     domain.ThreatType
	sequence   uint64
	emitted    bool
	lastPhase  domain.Phase
	latest     *domain.Snapshot
	prediction *domain.Prediction
	timeline   *history.Ring[domain.HistoryEntry]
	feed       *history.Ring[domain.HistoryEntry]
}

// New creates an Engine at tick 0 of generation 1.
func New(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetricsForTesting()
	}
	if opts.Forecaster == nil {
		opts.Forecaster = forecast.New(opts.Clock, forecast.DefaultCapacity)
	}
	if opts.Enricher == nil {
		opts.Enricher = enrichment.NewCoordinator(nil, nil, 0, opts.Logger, opts.Metrics)
	}
	if opts.Notifier == nil {
		opts.Notifier = noopNotifier{}
	}
	if opts.Policy == nil {
		opts.Policy = alert.NewPolicy()
	}
	if opts.ShelterCount < 1 {
		opts.ShelterCount = 5
	}
	if !opts.DefaultThreat.Valid() {
		opts.DefaultThreat = domain.ThreatEarthquake
	}
	if opts.TimelineCapacity < 1 {
		opts.TimelineCapacity = DefaultTimelineCapacity
	}
	if opts.FeedCapacity < 1 {
		opts.FeedCapacity = DefaultFeedCapacity
	}

	return &Engine{
		clock:        opts.Clock,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		forecaster:   opts.Forecaster,
		enricher:     opts.Enricher,
		notifier:     opts.Notifier,
		policy:       opts.Policy,
		shelters:     opts.Shelters,
		live:         opts.Live,
		shelterCount: opts.ShelterCount,
		zeroRetain:   opts.ZeroRetention,
		state:        domain.IncidentState{Phase: domain.PhaseMonitoring, Generation: 1},
		forced:       opts.DefaultThreat,
		timeline:     history.New[domain.HistoryEntry](opts.TimelineCapacity),
		feed:         history.New[domain.HistoryEntry](opts.FeedCapacity),
	}
}

// Advance moves the state machine forward one tick and returns the snapshot
// for the new tick.
func (e *Engine) Advance(ctx context.Context) domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.Tick++
	if e.state.Tick > domain.CycleLength {
		e.logger.Info("cycle complete", "generation", e.state.Generation)
		e.state.Reset()
		e.prediction = nil
	}

	phase := domain.PhaseAt(e.state.Tick)
	transition := !e.emitted || phase != e.lastPhase
	if transition {
		e.logger.Info("phase transition",
			"from", e.lastPhase,
			"to", phase,
			"tick", e.state.Tick,
			"generation", e.state.Generation,
		)
	}
	e.state.Phase = phase

	e.enter(ctx, phase)
	if e.state.Threat != nil {
		e.observeThreat()
	}

	snap := e.snapshot(phase)

	if e.zeroRetain && phase == domain.PhaseReview && e.state.Tick == domain.CycleLength {
		e.wipe()
	}

	entry := domain.HistoryEntry{
		SequenceID: snap.Sequence,
		Phase:      snap.Phase,
		Timestamp:  snap.Timestamp,
		Content:    snap.Content,
	}
	e.feed.Push(entry)
	if transition {
		e.timeline.Push(entry)
	}

	e.emitted = true
	e.lastPhase = phase
	e.latest = &snap

	e.metrics.Ticks.Inc()
	e.metrics.CurrentPhase.Set(float64(phase))
	e.metrics.Generation.Set(float64(e.state.Generation))

	return snap
}

// enter runs the per-phase entry actions for the current tick.
func (e *Engine) enter(ctx context.Context, phase domain.Phase) {
	switch phase {
	case domain.PhaseMonitoring:
		if e.state.Tick == intelTick {
			e.state.Intel = scenario.Intel(e.forced)
		}

	case domain.PhaseAssessment:
		threat := e.resolveThreat()
		if !e.state.AssessmentRequested {
			e.state.AssessmentRequested = true
			e.state.Reasoning = enrichment.PlaceholderReasoning()
			e.enricher.RequestAssessment(ctx, e.state.Generation, threat, e.state.Intel, e)
		}
		if !e.state.AlertSent {
			if a, ok := e.policy.Evaluate(e.state.Generation, phase, &threat); ok {
				e.state.AlertSent = true
				e.notifier.Notify(ctx, a)
			}
		}

	case domain.PhasePlanning:
		if !e.state.PlanRequested {
			threat := e.resolveThreat()
			e.state.PlanRequested = true
			plan := enrichment.PlaceholderPlan()
			e.state.Plan = &plan
			e.enricher.RequestPlan(ctx, e.state.Generation, threat, e)
		}

	case domain.PhaseExecution, domain.PhaseReview:
	}
}

// resolveThreat returns the generation's threat, picking it on first use from
// the live source or the scenario catalogue.
func (e *Engine) resolveThreat() domain.Threat {
	if e.state.Threat != nil {
		return e.state.Threat.Clone()
	}

	source := "scenario"
	threat, ok := domain.Threat{}, false
	if e.live != nil {
		threat, ok = e.live.Threat(e.forced)
	}
	if ok {
		source = "detector"
	} else {
		threat = scenario.Threat(e.forced)
	}
	if threat.DetectedAt.IsZero() {
		threat.DetectedAt = e.clock.Now().UTC()
	}

	e.state.Threat = &threat

	e.logger.Info("threat assessed",
		"type", threat.Type,
		"name", threat.Name,
		"severity", threat.Severity,
		"source", source,
		"generation", e.state.Generation,
	)
	return threat.Clone()
}

// observeThreat feeds one forecast sample for the current threat and
// refreshes the prediction. A live candidate of the same kind supplies the
// reading when available so the series follows the feed; the assessed threat
// itself is not changed.
func (e *Engine) observeThreat() {
	threat := *e.state.Threat
	reading := threat
	if e.live != nil {
		if c, ok := e.live.Threat(threat.Type); ok {
			reading = c
		}
	}

	e.forecaster.AddSample(reading)
	prediction := e.forecaster.Summary(threat)
	e.prediction = &prediction
}

func (e *Engine) threatKind() domain.ThreatType {
	if e.state.Threat != nil {
		return e.state.Threat.Type
	}
	return e.forced
}

func (e *Engine) snapshot(phase domain.Phase) domain.Snapshot {
	e.sequence++
	snap := domain.Snapshot{
		ID:            uuid.NewString(),
		Sequence:      e.sequence,
		Generation:    e.state.Generation,
		Tick:          e.state.Tick,
		Phase:         phase,
		PhaseTitle:    phase.Title(),
		Timestamp:     e.clock.Now().UTC(),
		Content:       e.content(phase),
		SeverityLevel: severityNone,
		SeverityColor: domain.Severity("").Color(),
	}

	if t := e.state.Threat; t != nil {
		snap.SeverityLevel = string(t.Severity)
		snap.SeverityColor = t.Severity.Color()
		if e.shelters != nil {
			snap.Shelters = e.shelters.Nearest(t.Location.Point(), e.shelterCount)
			snap.EvacuationRoutes = domain.RadialRoutes(*t, snap.Shelters)
		}
	}
	if e.prediction != nil {
		p := *e.prediction
		snap.Prediction = &p
	}
	return snap
}

// wipe drops the sensitive parts of the current generation. History is kept.
func (e *Engine) wipe() {
	e.logger.Info("zero retention: wiping mission data", "generation", e.state.Generation)
	e.state.Intel = nil
	e.state.Reasoning = nil
	e.state.Threat = nil
	e.state.Wiped = true
	e.prediction = nil
}

// InjectThreat forces the threat kind for this and later cycles and restarts
// the cycle under a new generation. In-flight enrichment becomes stale.
func (e *Engine) InjectThreat(kind domain.ThreatType) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownThreatType, kind)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.forced = kind
	e.state.Reset()
	e.prediction = nil
	e.metrics.Generation.Set(float64(e.state.Generation))
	e.logger.Info("threat injected", "type", kind, "generation", e.state.Generation, "zero_retention", e.zeroRetain)
	return nil
}

// ApplyEnrichment merges an oracle result if it belongs to the current
// generation. Stale results are dropped and reported with false.
func (e *Engine) ApplyEnrichment(r enrichment.Result) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if r.Generation != e.state.Generation || e.state.Wiped {
		e.metrics.StaleMerges.WithLabelValues(string(r.Kind)).Inc()
		e.logger.Debug("dropping stale enrichment",
			"kind", r.Kind,
			"result_generation", r.Generation,
			"current_generation", e.state.Generation,
			"wiped", e.state.Wiped,
		)
		return false
	}

	switch r.Kind {
	case enrichment.KindAssessment:
		e.state.Reasoning = append([]string(nil), r.Steps...)
	case enrichment.KindPlan:
		if r.Plan == nil {
			return false
		}
		plan := r.Plan.Clone()
		e.state.Plan = &plan
	default:
		return false
	}
	return true
}

// Latest returns the most recent snapshot.
func (e *Engine) Latest() (domain.Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.latest == nil {
		return domain.Snapshot{}, false
	}
	return *e.latest, true
}

// Timeline returns the retained phase-transition entries, oldest first.
func (e *Engine) Timeline() []domain.HistoryEntry {
	return e.timeline.Items()
}

// Feed returns the retained snapshot entries, oldest first.
func (e *Engine) Feed() []domain.HistoryEntry {
	return e.feed.Items()
}

// State returns a copy of the incident state.
func (e *Engine) State() domain.IncidentState {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.state
	if s.Threat != nil {
		t := s.Threat.Clone()
		s.Threat = &t
	}
	if s.Plan != nil {
		p := s.Plan.Clone()
		s.Plan = &p
	}
	s.Intel = append([]domain.IntelItem(nil), s.Intel...)
	s.Reasoning = append([]string(nil), s.Reasoning...)
	return s
}

// ForcedThreat returns the threat kind the engine is currently cycling.
func (e *Engine) ForcedThreat() domain.ThreatType {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.forced
}

// CurrentThreat returns the current generation's threat, if assessed.
func (e *Engine) CurrentThreat() (domain.Threat, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Threat == nil {
		return domain.Threat{}, false
	}
	return e.state.Threat.Clone(), true
}

// Prediction returns the forecast summary of the current threat.
func (e *Engine) Prediction() (domain.Prediction, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.prediction == nil {
		return domain.Prediction{}, false
	}
	return *e.prediction, true
}

// EvaluateRisk reports the observer's exposure to the current threat.
func (e *Engine) EvaluateRisk(observer *domain.Point) domain.RiskAssessment {
	threat, ok := e.CurrentThreat()
	if !ok {
		return domain.EvaluateRisk(observer, nil)
	}
	return domain.EvaluateRisk(observer, &threat)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, alert.Alert) {}
