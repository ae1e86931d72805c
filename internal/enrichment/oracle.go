// Package enrichment runs slow oracle calls off the tick path and hands
// generation-tagged results back to the engine.
package enrichment

import (
	"context"

	"github.com/couchcryptid/incident-engine/internal/domain"
)

// MaxReasoningSteps caps the length of an assessment trace.
const MaxReasoningSteps = 5

// Kind distinguishes the two enrichment requests.
type Kind string

const (
	KindAssessment Kind = "assessment"
	KindPlan       Kind = "plan"
)

// ReasoningOracle produces an ordered reasoning trace for a threat.
type ReasoningOracle interface {
	Assess(ctx context.Context, threat domain.Threat, intel []domain.IntelItem) ([]string, error)
}

// PlannerOracle produces a response plan for a threat.
type PlannerOracle interface {
	Plan(ctx context.Context, threat domain.Threat) (domain.Plan, error)
}

// Result is the outcome of one enrichment request. Generation is the incident
// generation the request was issued for; receivers drop stale results.
type Result struct {
	Kind       Kind
	Generation uint64
	Steps      []string
	Plan       *domain.Plan
	Fallback   bool
}

// Applier receives enrichment results. It reports whether the result was
// merged or dropped as stale.
type Applier interface {
	ApplyEnrichment(Result) bool
}

// PlaceholderReasoning is shown while an assessment is in flight.
func PlaceholderReasoning() []string {
	return []string{"Thinking..."}
}

// PlaceholderPlan is shown while a plan is in flight.
func PlaceholderPlan() domain.Plan {
	return domain.Plan{
		Objectives: []string{"Generating Strategy..."},
		Timeline:   []domain.TimelineStep{},
		Resources:  []domain.ResourceAllocation{},
	}
}
