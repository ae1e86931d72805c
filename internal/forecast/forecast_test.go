package forecast

import (
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/incident-engine/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ranked = map[int]domain.Severity{
	1: domain.SeverityLow,
	2: domain.SeverityModerate,
	3: domain.SeverityHigh,
	4: domain.SeverityCritical,
	5: domain.SeverityExtreme,
}

func floodAt(rain float64, rank int) domain.Threat {
	return domain.Threat{
		Type:     domain.ThreatFlood,
		Severity: ranked[rank],
		Details:  map[string]float64{domain.DetailRainfall: rain},
	}
}

func newTestEngine() (*Engine, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.July, 1, 6, 0, 0, 0, time.UTC))
	return New(clock, DefaultCapacity), clock
}

func TestForecast_InsufficientData(t *testing.T) {
	e, _ := newTestEngine()
	e.AddSample(floodAt(60, 3))
	e.AddSample(floodAt(70, 3))

	fc, ok := e.Forecast(domain.ThreatFlood)
	require.True(t, ok)
	require.Len(t, fc, 3)
	for i, h := range []int{6, 12, 24} {
		assert.Equal(t, h, fc[i].Hours)
		assert.Equal(t, domain.IntensityStable, fc[i].Intensity)
		assert.Equal(t, 0.3, fc[i].Confidence)
		assert.Equal(t, "insufficient data", fc[i].Reason)
	}
}

func TestForecast_LinearTrend(t *testing.T) {
	e, _ := newTestEngine()
	for _, rain := range []float64{20, 30, 40, 50} {
		e.AddSample(floodAt(rain, 3))
	}

	fc, ok := e.Forecast(domain.ThreatFlood, 1, 6)
	require.True(t, ok)
	require.Len(t, fc, 2)

	assert.InDelta(t, 60, fc[0].PredictedValue, 1e-9)
	assert.Equal(t, domain.IntensityHigh, fc[0].Intensity)
	assert.Equal(t, domain.TrendIncreasing, fc[0].Trend)

	assert.InDelta(t, 110, fc[1].PredictedValue, 1e-9)
	assert.Equal(t, domain.IntensityExtreme, fc[1].Intensity)

	// 4 samples contribute 0.2, a steep slope adds 0.1.
	assert.InDelta(t, 0.3, fc[0].Confidence, 1e-9)
}

func TestForecast_UsesLastTenSamples(t *testing.T) {
	e, _ := newTestEngine()
	for i := 0; i < 5; i++ {
		e.AddSample(floodAt(500, 5))
	}
	for i := 0; i < 10; i++ {
		e.AddSample(floodAt(30, 2))
	}

	fc, ok := e.Forecast(domain.ThreatFlood, 24)
	require.True(t, ok)
	assert.InDelta(t, 30, fc[0].PredictedValue, 1e-9)
	assert.Equal(t, domain.TrendStable, fc[0].Trend)
	assert.Equal(t, domain.IntensityModerate, fc[0].Intensity)
	// 10 samples contribute 0.5, a flat slope adds 0.3.
	assert.InDelta(t, 0.8, fc[0].Confidence, 1e-9)
}

func TestForecast_EarthquakeNotForecast(t *testing.T) {
	e, _ := newTestEngine()
	for i := 0; i < 5; i++ {
		e.AddSample(domain.Threat{Type: domain.ThreatEarthquake, Severity: domain.SeverityHigh})
	}

	_, ok := e.Forecast(domain.ThreatEarthquake)
	assert.False(t, ok)
	assert.Equal(t, 5, e.DataPoints(domain.ThreatEarthquake))
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 0.3, Confidence(2, 0))
	assert.InDelta(t, 0.45, Confidence(3, 0.1), 1e-9)
	assert.InDelta(t, 0.25, Confidence(3, 2), 1e-9)
	assert.InDelta(t, 0.95, Confidence(50, 0), 1e-9)
	assert.InDelta(t, 0.8, Confidence(50, -3), 1e-9)
}

func TestSlope(t *testing.T) {
	assert.Equal(t, 0.0, Slope(nil))
	assert.Equal(t, 0.0, Slope([]float64{4}))
	assert.InDelta(t, 2.0, Slope([]float64{1, 3, 5, 7}), 1e-9)
	assert.InDelta(t, -1.0, Slope([]float64{3, 2, 1}), 1e-9)
}

func TestClassifyIntensity(t *testing.T) {
	tests := []struct {
		tt       domain.ThreatType
		value    float64
		expected domain.Intensity
	}{
		{domain.ThreatFlood, 100, domain.IntensityExtreme},
		{domain.ThreatFlood, 50, domain.IntensityHigh},
		{domain.ThreatFlood, 20, domain.IntensityModerate},
		{domain.ThreatFlood, 19.9, domain.IntensityLow},
		{domain.ThreatCyclone, 25, domain.IntensityExtreme},
		{domain.ThreatCyclone, 15, domain.IntensityHigh},
		{domain.ThreatCyclone, 10, domain.IntensityModerate},
		{domain.ThreatCyclone, 3, domain.IntensityLow},
		{domain.ThreatHeatwave, 45, domain.IntensityExtreme},
		{domain.ThreatHeatwave, 40, domain.IntensityHigh},
		{domain.ThreatHeatwave, 35, domain.IntensityModerate},
		{domain.ThreatHeatwave, 30, domain.IntensityLow},
		{domain.ThreatWildfire, 999, domain.IntensityUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ClassifyIntensity(tt.tt, tt.value), "%s %v", tt.tt, tt.value)
	}
}

func TestDetectEscalation(t *testing.T) {
	tests := []struct {
		name       string
		ranks      []int
		wantOK     bool
		escalating bool
		rate       float64
	}{
		{"rising", []int{1, 2, 2, 3}, true, true, 0.5},
		{"falling", []int{3, 2, 1}, true, false, 0},
		{"flat", []int{3, 3, 3}, true, false, 0},
		{"dip in the middle", []int{1, 3, 2, 4}, true, false, 0},
		{"too few", []int{1, 5}, false, false, 0},
		{"only last five count", []int{5, 1, 1, 2, 3, 4}, true, true, 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine()
			for _, r := range tt.ranks {
				e.AddSample(floodAt(10, r))
			}

			esc, ok := e.DetectEscalation(domain.ThreatFlood)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.escalating, esc.Escalating)
			assert.InDelta(t, tt.rate, esc.Rate, 1e-9)
		})
	}
}

func TestAddSample_Capacity(t *testing.T) {
	e := New(clockwork.NewFakeClock(), 5)
	for i := 1; i <= 8; i++ {
		e.AddSample(floodAt(float64(i), 1))
	}

	samples := e.Samples(domain.ThreatFlood)
	require.Len(t, samples, 5)
	assert.Equal(t, 4.0, samples[0].MetricValue)
	assert.Equal(t, 8.0, samples[4].MetricValue)
	assert.Zero(t, e.DataPoints(domain.ThreatCyclone))
}

func TestAddSample_Timestamps(t *testing.T) {
	e, clock := newTestEngine()
	e.AddSample(floodAt(1, 1))
	clock.Advance(time.Hour)
	e.AddSample(floodAt(2, 1))

	samples := e.Samples(domain.ThreatFlood)
	require.Len(t, samples, 2)
	assert.Equal(t, time.Hour, samples[1].Timestamp.Sub(samples[0].Timestamp))
}

func TestPredictAftershocks(t *testing.T) {
	est := PredictAftershocks(6.5)
	assert.InDelta(t, 5.3, est.ExpectedMaxMagnitude, 1e-9)
	assert.InDelta(t, 0.8607, est.Probability24h, 1e-4)
	assert.InDelta(t, 0.7, est.Probability7d, 1e-9)
	assert.Equal(t, domain.SeverityHigh, est.Risk)

	small := PredictAftershocks(4.0)
	assert.InDelta(t, 0.95, small.Probability24h, 1e-9)
	assert.Equal(t, domain.SeverityModerate, small.Risk)
}

func TestSummary(t *testing.T) {
	e, _ := newTestEngine()
	quake := domain.Threat{
		Type:     domain.ThreatEarthquake,
		Severity: domain.SeverityCritical,
		Details:  map[string]float64{domain.DetailMagnitude: 6.2},
	}
	e.AddSample(quake)

	p := e.Summary(quake)
	assert.Equal(t, domain.SeverityCritical, p.CurrentSeverity)
	assert.Nil(t, p.Forecast)
	assert.Zero(t, p.OverallConfidence)
	require.NotNil(t, p.Aftershocks)
	assert.InDelta(t, 5.0, p.Aftershocks.ExpectedMaxMagnitude, 1e-9)
	assert.Equal(t, 1, p.DataPoints)
	assert.False(t, p.Escalation.Escalating)

	flood := floodAt(80, 3)
	p = e.Summary(flood)
	assert.Len(t, p.Forecast, 3)
	assert.Nil(t, p.Aftershocks)
	assert.Zero(t, p.DataPoints)
	assert.Equal(t, 0.3, p.OverallConfidence, "insufficient data")

	for _, rain := range []float64{40, 50, 60, 70, 80} {
		e.AddSample(floodAt(rain, 3))
	}
	p = e.Summary(flood)
	require.Len(t, p.Forecast, 3)
	assert.Equal(t, 5, p.DataPoints)
	assert.InDelta(t, Confidence(5, 10), p.OverallConfidence, 1e-9)
	assert.Equal(t, p.Forecast[0].Confidence, p.OverallConfidence)
}

func TestEngine_ConcurrentUse(t *testing.T) {
	e, _ := newTestEngine()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				e.AddSample(floodAt(float64(j), 2))
				_, _ = e.Forecast(domain.ThreatFlood)
				_, _ = e.DetectEscalation(domain.ThreatFlood)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, DefaultCapacity, e.DataPoints(domain.ThreatFlood))
}
