package engine

import (
	"github.com/couchcryptid/incident-engine/internal/domain"
	"github.com/couchcryptid/incident-engine/internal/scenario"
)

// MonitoringContent is the snapshot body during MONITORING.
type MonitoringContent struct {
	Status        string                  `json:"status"`
	ActiveThreats []domain.Threat         `json:"activeThreats"`
	Weather       scenario.WeatherSummary `json:"weather"`
	Metrics       MonitoringMetrics       `json:"metrics"`
	Intel         []domain.IntelItem      `json:"intel"`
}

// MonitoringMetrics are the coarse sensor indicators shown while monitoring.
type MonitoringMetrics struct {
	Seismic string `json:"seismic"`
	NOAA    string `json:"noaa"`
}

// AssessmentContent is the snapshot body during ASSESSMENT.
type AssessmentContent struct {
	Threat         domain.Threat      `json:"threat"`
	Severity       string             `json:"severity"`
	Confidence     string             `json:"confidence"`
	Reasoning      []string           `json:"reasoning"`
	Timeline       AssessmentTimeline `json:"timeline"`
	ImpactForecast ImpactForecast     `json:"impactForecast"`
}

type AssessmentTimeline struct {
	Status         string `json:"status"`
	ExpectedImpact string `json:"expectedImpact"`
	PeakIntensity  string `json:"peakIntensity"`
}

type ImpactForecast struct {
	Zone             string   `json:"zone"`
	PopulationAtRisk string   `json:"populationAtRisk"`
	Infrastructure   []string `json:"infrastructure"`
}

const (
	statusWatching  = "WATCHING"
	statusAnalyzing = "ANALYZING INTEL"
	severityNone    = "NONE"
)

func (e *Engine) monitoringContent() MonitoringContent {
	c := MonitoringContent{
		Status:        statusWatching,
		ActiveThreats: []domain.Threat{},
		Weather:       scenario.Weather(e.forced),
		Metrics:       MonitoringMetrics{Seismic: "Normal", NOAA: "Green"},
		Intel:         append([]domain.IntelItem{}, e.state.Intel...),
	}
	if len(e.state.Intel) > 0 {
		c.Status = statusAnalyzing
		c.Metrics.Seismic = "High Activity"
	}
	if e.live != nil {
		c.ActiveThreats = append(c.ActiveThreats, e.live.Candidates()...)
	}
	return c
}

func (e *Engine) assessmentContent() AssessmentContent {
	var threat domain.Threat
	if e.state.Threat != nil {
		threat = e.state.Threat.Clone()
	}
	return AssessmentContent{
		Threat:     threat,
		Severity:   severityLabel(threat.Severity),
		Confidence: "92%",
		Reasoning:  append([]string{}, e.state.Reasoning...),
		Timeline: AssessmentTimeline{
			Status:         "Active & Expanding",
			ExpectedImpact: "Immediate",
			PeakIntensity:  "Now",
		},
		ImpactForecast: ImpactForecast{
			Zone:             "Visualized on Map",
			PopulationAtRisk: "Calculating...",
			Infrastructure:   []string{"Roads", "Power Lines"},
		},
	}
}

func (e *Engine) planningContent() domain.Plan {
	if e.state.Plan == nil {
		return domain.Plan{Objectives: []string{}, Timeline: []domain.TimelineStep{}, Resources: []domain.ResourceAllocation{}}
	}
	return e.state.Plan.Clone()
}

// content builds the phase-specific snapshot body.
func (e *Engine) content(phase domain.Phase) any {
	switch phase {
	case domain.PhaseMonitoring:
		return e.monitoringContent()
	case domain.PhaseAssessment:
		return e.assessmentContent()
	case domain.PhasePlanning:
		return e.planningContent()
	case domain.PhaseExecution:
		return scenario.Execution(e.threatKind())
	case domain.PhaseReview:
		return scenario.ReviewFor(e.threatKind())
	default:
		e.logger.Error("no content for phase", "phase", phase)
		return nil
	}
}

func severityLabel(s domain.Severity) string {
	switch s {
	case domain.SeverityExtreme:
		return "🚨 EXTREME"
	case domain.SeverityCritical:
		return "🔴 CRITICAL"
	case domain.SeverityHigh:
		return "🟠 HIGH"
	case "":
		return severityNone
	default:
		return "🟡 " + string(s)
	}
}
