package domain

// Trend is the direction of a forecast intensity series.
type Trend string

const (
	TrendIncreasing Trend = "INCREASING"
	TrendDecreasing Trend = "DECREASING"
	TrendStable     Trend = "STABLE"
)

// Intensity is the coarse classification of a forecast metric value.
type Intensity string

const (
	IntensityExtreme  Intensity = "EXTREME"
	IntensityHigh     Intensity = "HIGH"
	IntensityModerate Intensity = "MODERATE"
	IntensityLow      Intensity = "LOW"
	IntensityStable   Intensity = "STABLE"
	IntensityUnknown  Intensity = "UNKNOWN"
)

// HorizonForecast is the projected state of a threat some hours ahead.
type HorizonForecast struct {
	Hours          int       `json:"hours"`
	PredictedValue float64   `json:"predictedValue"`
	Intensity      Intensity `json:"intensity"`
	Trend          Trend     `json:"trend"`
	Confidence     float64   `json:"confidence"`
	Reason         string    `json:"reason,omitempty"`
}

// Escalation reports whether recent severity ranks are climbing.
type Escalation struct {
	Escalating bool    `json:"isEscalating"`
	Rate       float64 `json:"rate"`
	Trend      Trend   `json:"trend"`
}

// AftershockEstimate is the expected aftershock activity after an earthquake.
type AftershockEstimate struct {
	ExpectedMaxMagnitude float64  `json:"expectedMaxMagnitude"`
	Probability24h       float64  `json:"probability24h"`
	Probability7d        float64  `json:"probability7d"`
	Risk                 Severity `json:"risk"`
}

// Prediction summarizes the forecast state of the current threat.
// OverallConfidence is zero for threat types that are not forecast.
type Prediction struct {
	ThreatType        ThreatType          `json:"threatType"`
	CurrentSeverity   Severity            `json:"currentSeverity"`
	Forecast          []HorizonForecast   `json:"forecast,omitempty"`
	OverallConfidence float64             `json:"overallConfidence"`
	Escalation        Escalation          `json:"escalation"`
	Aftershocks       *AftershockEstimate `json:"aftershocks,omitempty"`
	DataPoints        int                 `json:"dataPoints"`
}
