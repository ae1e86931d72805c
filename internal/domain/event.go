package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ThreatType is the closed set of disaster kinds the engine understands.
type ThreatType string

const (
	ThreatEarthquake ThreatType = "EARTHQUAKE"
	ThreatWildfire   ThreatType = "WILDFIRE"
	ThreatFlood      ThreatType = "FLOOD"
	ThreatCyclone    ThreatType = "CYCLONE"
	ThreatHeatwave   ThreatType = "HEATWAVE"
)

// ThreatTypes lists every known threat type in a stable order.
var ThreatTypes = []ThreatType{ThreatEarthquake, ThreatWildfire, ThreatFlood, ThreatCyclone, ThreatHeatwave}

// ParseThreatType normalizes a user-supplied threat kind. Matching is
// case-insensitive; unknown kinds return an error.
func ParseThreatType(s string) (ThreatType, error) {
	t := ThreatType(strings.ToUpper(strings.TrimSpace(s)))
	if t.Valid() {
		return t, nil
	}
	return "", fmt.Errorf("unknown threat type %q", s)
}

// Valid reports whether t is one of the known threat types.
func (t ThreatType) Valid() bool {
	switch t {
	case ThreatEarthquake, ThreatWildfire, ThreatFlood, ThreatCyclone, ThreatHeatwave:
		return true
	default:
		return false
	}
}

// Severity is the five-level threat severity scale.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityModerate Severity = "MODERATE"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
	SeverityExtreme  Severity = "EXTREME"
)

// Rank maps a severity to 1..5. Unknown severities rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityModerate:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	case SeverityExtreme:
		return 5
	default:
		return 0
	}
}

// AtLeast reports whether s is as severe as other or more.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank() && s.Rank() > 0
}

// Color is the display color downstream consumers attach to a severity.
func (s Severity) Color() string {
	switch s {
	case SeverityLow:
		return "#eab308"
	case SeverityModerate:
		return "#f97316"
	case SeverityHigh:
		return "#ef4444"
	case SeverityCritical:
		return "#b91c1c"
	case SeverityExtreme:
		return "#000000"
	default:
		return "#22c55e"
	}
}

// Point is a WGS-84 latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Location is a named point.
type Location struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Point returns the coordinates of the location.
func (l Location) Point() Point {
	return Point{Lat: l.Lat, Lon: l.Lon}
}

// Known reports whether the location carries usable coordinates.
func (l Location) Known() bool {
	return ValidPoint(l.Point())
}

// Detail keys used in Threat.Details.
const (
	DetailMagnitude   = "magnitude"
	DetailDepth       = "depth"
	DetailRainfall    = "rainfall"
	DetailWindSpeed   = "windSpeed"
	DetailWindGust    = "windGust"
	DetailPressure    = "pressure"
	DetailTemperature = "temperature"
	DetailFeelsLike   = "feelsLike"
	DetailHumidity    = "humidity"
)

// Threat is the canonical, detector-independent description of a hazard.
type Threat struct {
	Type               ThreatType         `json:"type"`
	Name               string             `json:"name"`
	Location           Location           `json:"location"`
	Severity           Severity           `json:"severity"`
	ImpactRadiusMeters float64            `json:"impactRadius"`
	Details            map[string]float64 `json:"details,omitempty"`
	Description        string             `json:"description,omitempty"`
	DetectedAt         time.Time          `json:"detectedAt"`
}

// ImpactRadiusKm returns the impact radius in kilometres.
func (t Threat) ImpactRadiusKm() float64 {
	return t.ImpactRadiusMeters / 1000
}

// Detail returns a numeric detail and whether it was present.
func (t Threat) Detail(key string) (float64, bool) {
	v, ok := t.Details[key]
	return v, ok
}

// Clone returns a deep copy so callers never share the Details map.
func (t Threat) Clone() Threat {
	if t.Details != nil {
		details := make(map[string]float64, len(t.Details))
		for k, v := range t.Details {
			details[k] = v
		}
		t.Details = details
	}
	return t
}

// SeismicFeature is one event as reported by a seismic feed.
type SeismicFeature struct {
	ID          string  `json:"id,omitempty"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Depth       float64 `json:"depth"`
	Magnitude   float64 `json:"magnitude"`
	Place       string  `json:"place"`
	TimeEpochMs int64   `json:"time"`
}

// WeatherObservation is the current weather at one monitored location.
// Optional fields are nil when the feed omitted them.
type WeatherObservation struct {
	Temp        float64  `json:"temp"`
	FeelsLike   float64  `json:"feelsLike"`
	Humidity    float64  `json:"humidity"`
	WindSpeed   float64  `json:"windSpeed"`
	WindGust    *float64 `json:"windGust,omitempty"`
	Rain3h      *float64 `json:"rain3h,omitempty"`
	Pressure    float64  `json:"pressure"`
	Description string   `json:"description,omitempty"`
}

// IntelItem is one entry of the intelligence feed gathered while monitoring.
type IntelItem struct {
	Source string `json:"source"`
	Title  string `json:"title"`
	Time   string `json:"time"`
}

// TimelineStep is one step of a response plan timeline.
type TimelineStep struct {
	Time   string `json:"time"`
	Action string `json:"action"`
	Status string `json:"status"`
}

// ResourceAllocation assigns a quantity of a resource to a location.
type ResourceAllocation struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
	Location string `json:"location"`
}

// Plan is a response plan produced by the planner oracle.
type Plan struct {
	Objectives []string             `json:"objectives"`
	Timeline   []TimelineStep       `json:"timeline"`
	Resources  []ResourceAllocation `json:"resources"`
}

// Clone returns a deep copy of the plan.
func (p Plan) Clone() Plan {
	return Plan{
		Objectives: slices.Clone(p.Objectives),
		Timeline:   slices.Clone(p.Timeline),
		Resources:  slices.Clone(p.Resources),
	}
}
