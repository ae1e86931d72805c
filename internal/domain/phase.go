package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Phase is one of the five operational phases of an incident cycle.
type Phase int

const (
	PhaseMonitoring Phase = iota
	PhaseAssessment
	PhasePlanning
	PhaseExecution
	PhaseReview
)

// Tick thresholds of a cycle. A phase starts at the tick after the previous
// phase's last tick; the advance after CycleLength wraps to tick 0.
const (
	monitoringLastTick = 5
	assessmentLastTick = 12
	planningLastTick   = 18
	executionLastTick  = 28

	// CycleLength is the last tick of a cycle (the final REVIEW tick).
	CycleLength = 35
)

// PhaseAt returns the phase for a tick within a cycle. Ticks beyond
// CycleLength are folded back into the cycle.
func PhaseAt(tick int) Phase {
	if tick < 0 {
		tick = 0
	}
	tick %= CycleLength + 1
	switch {
	case tick <= monitoringLastTick:
		return PhaseMonitoring
	case tick <= assessmentLastTick:
		return PhaseAssessment
	case tick <= planningLastTick:
		return PhasePlanning
	case tick <= executionLastTick:
		return PhaseExecution
	default:
		return PhaseReview
	}
}

func (p Phase) String() string {
	switch p {
	case PhaseMonitoring:
		return "MONITORING"
	case PhaseAssessment:
		return "ASSESSMENT"
	case PhasePlanning:
		return "PLANNING"
	case PhaseExecution:
		return "EXECUTION"
	case PhaseReview:
		return "REVIEW"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Title is the operator-facing phase heading.
func (p Phase) Title() string {
	switch p {
	case PhaseMonitoring:
		return "PHASE 1: DETECTION & MONITORING"
	case PhaseAssessment:
		return "PHASE 2: THREAT ASSESSMENT"
	case PhasePlanning:
		return "PHASE 3: RESPONSE PLANNING"
	case PhaseExecution:
		return "PHASE 4: EXECUTION & COORDINATION"
	case PhaseReview:
		return "PHASE 5: LEARNING & IMPROVEMENT"
	default:
		return p.String()
	}
}

func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Phase) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for candidate := PhaseMonitoring; candidate <= PhaseReview; candidate++ {
		if candidate.String() == s {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", s)
}

// IncidentState is the canonical state of the current incident generation.
type IncidentState struct {
	Phase      Phase       `json:"phase"`
	Tick       int         `json:"tick"`
	Generation uint64      `json:"generation"`
	Threat     *Threat     `json:"threat,omitempty"`
	Intel      []IntelItem `json:"intel"`
	Reasoning  []string    `json:"reasoning"`
	Plan       *Plan       `json:"plan,omitempty"`
	AlertSent  bool        `json:"alertSent"`

	AssessmentRequested bool `json:"-"`
	PlanRequested       bool `json:"-"`
	Wiped               bool `json:"-"`
}

// Reset clears everything scoped to a generation and starts the next one.
func (s *IncidentState) Reset() {
	*s = IncidentState{
		Phase:      PhaseMonitoring,
		Generation: s.Generation + 1,
	}
}

// Shelter is a point of interest that can receive evacuees.
type Shelter struct {
	ID           int            `json:"id" yaml:"id"`
	Name         string         `json:"name" yaml:"name"`
	Lat          float64        `json:"lat" yaml:"lat"`
	Lon          float64        `json:"lon" yaml:"lon"`
	Capacity     int            `json:"capacity" yaml:"capacity"`
	Current      int            `json:"current" yaml:"current"`
	PetFriendly  bool           `json:"petFriendly" yaml:"petFriendly"`
	Accessible   bool           `json:"accessible" yaml:"accessible"`
	Resources    map[string]int `json:"resources,omitempty" yaml:"resources"`
	DistanceKm   float64        `json:"distance,omitempty" yaml:"-"`
	Availability int            `json:"available" yaml:"-"`
}

// EvacuationRoute is a straight-line placeholder route away from a threat.
type EvacuationRoute struct {
	ShelterID  int     `json:"shelterId"`
	Shelter    string  `json:"shelter"`
	Waypoints  []Point `json:"waypoints"`
	DistanceKm float64 `json:"distanceKm"`
	BearingDeg float64 `json:"bearing"`
}

// Snapshot is the immutable, externally emitted view of one tick.
type Snapshot struct {
	ID               string            `json:"id"`
	Sequence         uint64            `json:"sequence"`
	Generation       uint64            `json:"generation"`
	Tick             int               `json:"tick"`
	Phase            Phase             `json:"phase"`
	PhaseTitle       string            `json:"phaseTitle"`
	Timestamp        time.Time         `json:"timestamp"`
	Content          any               `json:"content"`
	SeverityLevel    string            `json:"severityLevel"`
	SeverityColor    string            `json:"severityColor"`
	Shelters         []Shelter         `json:"shelters,omitempty"`
	EvacuationRoutes []EvacuationRoute `json:"evacuationRoutes,omitempty"`
	Prediction       *Prediction       `json:"prediction,omitempty"`
}

// HistoryEntry is one retained element of the timeline or feed buffers.
type HistoryEntry struct {
	SequenceID uint64    `json:"sequenceId"`
	Phase      Phase     `json:"phase"`
	Timestamp  time.Time `json:"timestamp"`
	Content    any       `json:"content"`
}
