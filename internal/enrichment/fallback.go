package enrichment

import (
	"context"
	"fmt"

	"github.com/couchcryptid/incident-engine/internal/domain"
)

// Fallback is the fixed oracle used when no live oracle is configured or a
// live call fails. It never returns an error.
type Fallback struct{}

func (Fallback) Assess(_ context.Context, threat domain.Threat, _ []domain.IntelItem) ([]string, error) {
	return []string{
		fmt.Sprintf("[MOCK] Analyzing %s data pattern...", threat.Type),
		"[MOCK] Correlating with historical records...",
		"[MOCK] Assessing impact on critical infrastructure...",
		"[MOCK] Calculation complete: Severity High.",
	}, nil
}

func (Fallback) Plan(_ context.Context, _ domain.Threat) (domain.Plan, error) {
	return domain.Plan{
		Objectives: []string{"[MOCK] Secure Perimeter", "[MOCK] Assess Damage"},
		Timeline: []domain.TimelineStep{
			{Time: "T+0", Action: "Deploy Initial Team", Status: "COMPLETED"},
		},
		Resources: []domain.ResourceAllocation{
			{Item: "Generic Responders", Quantity: 10, Location: "Local HQ"},
		},
	}, nil
}
