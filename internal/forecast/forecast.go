// Package forecast projects threat intensity from a bounded history of
// observations and detects escalating severity.
package forecast

import (
	"math"
	"sync"
	"time"

	"github.com/couchcryptid/incident-engine/internal/domain"
	"github.com/jonboulle/clockwork"
)

const (
	// DefaultCapacity is the number of samples retained per threat type.
	DefaultCapacity = 50

	trendWindow      = 10
	escalationWindow = 5
	minSamples       = 3

	insufficientConfidence = 0.3
	insufficientReason     = "insufficient data"
)

// DefaultHorizons are the forecast horizons in hours used when none are given.
var DefaultHorizons = []int{6, 12, 24}

// Sample is one observation of a threat retained for trend analysis.
type Sample struct {
	Timestamp    time.Time
	ThreatType   domain.ThreatType
	SeverityRank int
	MetricValue  float64
}

// Engine keeps a bounded sample series per threat type. It is safe for
// concurrent use.
type Engine struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	capacity int
	series   map[domain.ThreatType][]Sample
}

// New creates an Engine retaining up to capacity samples per threat type.
// A nil clock uses the real clock; capacity below 1 uses DefaultCapacity.
func New(clock clockwork.Clock, capacity int) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Engine{
		clock:    clock,
		capacity: capacity,
		series:   make(map[domain.ThreatType][]Sample),
	}
}

// AddSample records the threat's current severity and type-specific metric.
// When the series is full the oldest sample is evicted.
func (e *Engine) AddSample(t domain.Threat) {
	s := Sample{
		Timestamp:    e.clock.Now().UTC(),
		ThreatType:   t.Type,
		SeverityRank: t.Severity.Rank(),
		MetricValue:  metricValue(t),
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	series := append(e.series[t.Type], s)
	if len(series) > e.capacity {
		series = series[len(series)-e.capacity:]
	}
	e.series[t.Type] = series
}

// Samples returns a copy of the series for a threat type, oldest first.
func (e *Engine) Samples(tt domain.ThreatType) []Sample {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Sample(nil), e.series[tt]...)
}

// DataPoints returns the number of retained samples for a threat type.
func (e *Engine) DataPoints(tt domain.ThreatType) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.series[tt])
}

// Reset drops every series.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	clear(e.series)
}

// Forecast projects the type's metric over the given horizons (hours).
// Earthquakes are not forecast and report ok=false.
func (e *Engine) Forecast(tt domain.ThreatType, horizons ...int) ([]domain.HorizonForecast, bool) {
	if tt == domain.ThreatEarthquake {
		return nil, false
	}
	if len(horizons) == 0 {
		horizons = DefaultHorizons
	}

	recent := e.recent(tt, trendWindow)
	out := make([]domain.HorizonForecast, 0, len(horizons))

	if len(recent) < minSamples {
		for _, h := range horizons {
			out = append(out, domain.HorizonForecast{
				Hours:      h,
				Intensity:  domain.IntensityStable,
				Trend:      domain.TrendStable,
				Confidence: insufficientConfidence,
				Reason:     insufficientReason,
			})
		}
		return out, true
	}

	values := make([]float64, len(recent))
	for i, s := range recent {
		values[i] = s.MetricValue
	}
	slope := Slope(values)
	current := values[len(values)-1]
	confidence := Confidence(len(recent), slope)

	for _, h := range horizons {
		predicted := current + slope*float64(h)
		out = append(out, domain.HorizonForecast{
			Hours:          h,
			PredictedValue: predicted,
			Intensity:      ClassifyIntensity(tt, predicted),
			Trend:          trendOf(slope),
			Confidence:     confidence,
		})
	}
	return out, true
}

// DetectEscalation inspects the last few severity ranks of a threat type.
// The series escalates when ranks never decrease and the newest exceeds the
// oldest. Fewer than three samples report ok=false.
func (e *Engine) DetectEscalation(tt domain.ThreatType) (domain.Escalation, bool) {
	recent := e.recent(tt, escalationWindow)
	if len(recent) < minSamples {
		return domain.Escalation{Trend: domain.TrendStable}, false
	}

	first := recent[0].SeverityRank
	last := recent[len(recent)-1].SeverityRank

	nonDecreasing := true
	for i := 1; i < len(recent); i++ {
		if recent[i].SeverityRank < recent[i-1].SeverityRank {
			nonDecreasing = false
			break
		}
	}

	if nonDecreasing && last > first {
		return domain.Escalation{
			Escalating: true,
			Rate:       float64(last-first) / float64(len(recent)),
			Trend:      domain.TrendIncreasing,
		}, true
	}

	trend := domain.TrendStable
	if last < first {
		trend = domain.TrendDecreasing
	}
	return domain.Escalation{Trend: trend}, true
}

// Summary builds the prediction summary for the current threat.
func (e *Engine) Summary(t domain.Threat) domain.Prediction {
	p := domain.Prediction{
		ThreatType:      t.Type,
		CurrentSeverity: t.Severity,
		DataPoints:      e.DataPoints(t.Type),
	}
	if fc, ok := e.Forecast(t.Type); ok {
		p.Forecast = fc
		if len(fc) > 0 {
			p.OverallConfidence = fc[0].Confidence
		}
	}
	p.Escalation, _ = e.DetectEscalation(t.Type)
	if t.Type == domain.ThreatEarthquake {
		if m, ok := t.Detail(domain.DetailMagnitude); ok {
			est := PredictAftershocks(m)
			p.Aftershocks = &est
		}
	}
	return p
}

func (e *Engine) recent(tt domain.ThreatType, n int) []Sample {
	e.mu.Lock()
	defer e.mu.Unlock()

	series := e.series[tt]
	if len(series) > n {
		series = series[len(series)-n:]
	}
	return append([]Sample(nil), series...)
}

// Slope is the ordinary least squares slope of values against their index.
func Slope(values []float64) float64 {
	n := float64(len(values))
	if len(values) < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumX2 float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumX2 += x * x
	}
	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// Confidence scores a forecast from the sample count and slope magnitude.
func Confidence(n int, slope float64) float64 {
	if n < minSamples {
		return insufficientConfidence
	}
	data := math.Min(float64(n)/20, 0.7)
	stability := 0.1
	if math.Abs(slope) < 0.5 {
		stability = 0.3
	}
	return math.Min(data+stability, 0.95)
}

// ClassifyIntensity maps a projected metric value to an intensity band.
// Types without a forecast metric are UNKNOWN.
func ClassifyIntensity(tt domain.ThreatType, value float64) domain.Intensity {
	var extreme, high, moderate float64
	switch tt {
	case domain.ThreatFlood:
		extreme, high, moderate = 100, 50, 20
	case domain.ThreatCyclone:
		extreme, high, moderate = 25, 15, 10
	case domain.ThreatHeatwave:
		extreme, high, moderate = 45, 40, 35
	default:
		return domain.IntensityUnknown
	}

	switch {
	case value >= extreme:
		return domain.IntensityExtreme
	case value >= high:
		return domain.IntensityHigh
	case value >= moderate:
		return domain.IntensityModerate
	default:
		return domain.IntensityLow
	}
}

// PredictAftershocks estimates aftershock activity for a mainshock using
// Båth's law for the largest aftershock and an exponential decay for the
// probabilities.
func PredictAftershocks(magnitude float64) domain.AftershockEstimate {
	risk := domain.SeverityModerate
	if magnitude >= 6.0 {
		risk = domain.SeverityHigh
	}
	return domain.AftershockEstimate{
		ExpectedMaxMagnitude: magnitude - 1.2,
		Probability24h:       math.Min(0.95, math.Exp(-0.1*(magnitude-5))),
		Probability7d:        math.Min(0.7, math.Exp(-0.05*(magnitude-5))),
		Risk:                 risk,
	}
}

func metricValue(t domain.Threat) float64 {
	var key string
	switch t.Type {
	case domain.ThreatFlood:
		key = domain.DetailRainfall
	case domain.ThreatCyclone:
		key = domain.DetailWindSpeed
	case domain.ThreatHeatwave:
		key = domain.DetailTemperature
	case domain.ThreatEarthquake:
		key = domain.DetailMagnitude
	default:
		return 0
	}
	v, _ := t.Detail(key)
	return v
}

func trendOf(slope float64) domain.Trend {
	switch {
	case slope > 0:
		return domain.TrendIncreasing
	case slope < 0:
		return domain.TrendDecreasing
	default:
		return domain.TrendStable
	}
}
