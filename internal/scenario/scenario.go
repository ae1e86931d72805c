// Package scenario holds the canned incident content used when no live
// detector has produced a candidate for the requested threat kind.
package scenario

import (
	"github.com/couchcryptid/incident-engine/internal/domain"
)

// WeatherSummary is the coarse weather block shown while monitoring.
type WeatherSummary struct {
	Temp      float64 `json:"temp"`
	Condition string  `json:"condition"`
	Wind      float64 `json:"wind"`
}

// ResourceStatus is the split between deployed and en-route resources.
type ResourceStatus struct {
	Deployed string `json:"deployed"`
	EnRoute  string `json:"enRoute"`
}

// ExecutionLog is the situation report shown during EXECUTION.
type ExecutionLog struct {
	Status          string         `json:"status"`
	ActionsTaken    []string       `json:"actionsTaken"`
	Priorities      []string       `json:"priorities"`
	Casualties      int            `json:"casualties"`
	Resources       ResourceStatus `json:"resources"`
	GeneratedSitRep bool           `json:"generatedSitRep"`
}

// Review is the after-action content shown during REVIEW.
type Review struct {
	PredictionAccuracy string   `json:"predictionAccuracy"`
	Successes          []string `json:"successes"`
	Failures           []string `json:"failures"`
	Lessons            []string `json:"lessons"`
}

// Scenario is the full canned content for one threat kind.
type Scenario struct {
	Threat    domain.Threat
	Intel     []domain.IntelItem
	Weather   WeatherSummary
	Execution ExecutionLog
	Review    Review
}

// Named locations used by the scenarios.
var (
	Dharamshala       = domain.Location{Name: "Dharamshala", Lat: 32.2190, Lon: 76.3234}
	UttarakhandForest = domain.Location{Name: "Uttarakhand Forest", Lat: 30.0668, Lon: 79.0193}
	KeralaBackwaters  = domain.Location{Name: "Kerala Backwaters", Lat: 9.9312, Lon: 76.2673}
	Puri              = domain.Location{Name: "Puri", Lat: 19.8135, Lon: 85.8312}
	Nagpur            = domain.Location{Name: "Nagpur", Lat: 21.1458, Lon: 79.0882}
)

// For returns a fresh copy of the scenario for kind. Unknown kinds fall back
// to the earthquake scenario and report ok=false.
func For(kind domain.ThreatType) (Scenario, bool) {
	s := Scenario{
		Threat:    Threat(kind),
		Intel:     Intel(kind),
		Weather:   Weather(kind),
		Execution: Execution(kind),
		Review:    ReviewFor(kind),
	}
	return s, kind.Valid()
}

// Threat returns the canonical threat for kind.
func Threat(kind domain.ThreatType) domain.Threat {
	switch kind {
	case domain.ThreatWildfire:
		return domain.Threat{
			Type:               domain.ThreatWildfire,
			Name:               "Uttarakhand Forest Fire",
			Location:           UttarakhandForest,
			Severity:           domain.SeverityHigh,
			ImpactRadiusMeters: 15000,
		}
	case domain.ThreatFlood:
		return domain.Threat{
			Type:               domain.ThreatFlood,
			Name:               "Kerala Flash Floods",
			Location:           KeralaBackwaters,
			Severity:           domain.SeverityExtreme,
			ImpactRadiusMeters: 25000,
			Details:            map[string]float64{domain.DetailRainfall: 120},
		}
	case domain.ThreatCyclone:
		return domain.Threat{
			Type:               domain.ThreatCyclone,
			Name:               "Odisha Coastal Cyclone",
			Location:           Puri,
			Severity:           domain.SeverityExtreme,
			ImpactRadiusMeters: 30000,
			Details:            map[string]float64{domain.DetailWindSpeed: 28, domain.DetailPressure: 962},
		}
	case domain.ThreatHeatwave:
		return domain.Threat{
			Type:               domain.ThreatHeatwave,
			Name:               "Vidarbha Heatwave",
			Location:           Nagpur,
			Severity:           domain.SeverityHigh,
			ImpactRadiusMeters: 10000,
			Details:            map[string]float64{domain.DetailTemperature: 46, domain.DetailHumidity: 18},
		}
	default:
		return domain.Threat{
			Type:               domain.ThreatEarthquake,
			Name:               "Himachal Seismic Event",
			Location:           Dharamshala,
			Severity:           domain.SeverityCritical,
			ImpactRadiusMeters: 50000,
			Details:            map[string]float64{domain.DetailMagnitude: 6.8, domain.DetailDepth: 10},
		}
	}
}

// Intel returns the intelligence items "found" while monitoring for kind.
func Intel(kind domain.ThreatType) []domain.IntelItem {
	switch kind {
	case domain.ThreatWildfire:
		return []domain.IntelItem{
			{Source: "Forest Dept", Title: "Large fire spotted in Garhwal range", Time: "2 mins ago"},
			{Source: "Satellite (MODIS)", Title: "Thermal anomaly detected", Time: "10 mins ago"},
		}
	case domain.ThreatFlood:
		return []domain.IntelItem{
			{Source: "Central Water Comm", Title: "River Periyar above danger mark", Time: "15 mins ago"},
			{Source: "Local News", Title: "Low lying areas inundated", Time: "Now"},
		}
	case domain.ThreatCyclone:
		return []domain.IntelItem{
			{Source: "IMD Cyclone Warning", Title: "Deep depression intensifying over Bay of Bengal", Time: "30 mins ago"},
			{Source: "Port Authority", Title: "Distant warning signal raised at Paradip", Time: "5 mins ago"},
		}
	case domain.ThreatHeatwave:
		return []domain.IntelItem{
			{Source: "IMD Bulletin", Title: "Severe heatwave conditions over Vidarbha", Time: "1 hour ago"},
			{Source: "District Hospital", Title: "Rise in heatstroke admissions", Time: "20 mins ago"},
		}
	default:
		return []domain.IntelItem{
			{Source: "Global Disaster Alert", Title: "Seismic activity detected in Northern India", Time: "10 mins ago"},
			{Source: "Local News", Title: "Tremors felt in Himachal Pradesh", Time: "5 mins ago"},
			{Source: "Social Media", Title: "#Earthquake trending in Dharamshala", Time: "Just now"},
		}
	}
}

// Weather returns the monitoring weather summary for kind.
func Weather(kind domain.ThreatType) WeatherSummary {
	if kind == domain.ThreatWildfire {
		return WeatherSummary{Temp: 34, Condition: "Smoke", Wind: 25}
	}
	return WeatherSummary{Temp: 12, Condition: "Mist", Wind: 5}
}

// Execution returns the EXECUTION situation report for kind.
func Execution(kind domain.ThreatType) ExecutionLog {
	switch kind {
	case domain.ThreatWildfire:
		return ExecutionLog{
			Status:          "FIREFIGHTING OPS",
			ActionsTaken:    []string{"Perimeter established", "Residents evacuated", "Water bombing started"},
			Priorities:      []string{"Prevent spread to village", "Monitor wind shift"},
			Casualties:      0,
			Resources:       ResourceStatus{Deployed: "90%", EnRoute: "10%"},
			GeneratedSitRep: true,
		}
	case domain.ThreatEarthquake:
		return ExecutionLog{
			Status:          "SEARCH & RESCUE OPS",
			ActionsTaken:    []string{"Deployed 2 Battalions", "Drone Grid Active", "Power Grid Shutdown (Safety)"},
			Priorities:      []string{"Reach cut-off villages", "Clear landslides", "Medical evac"},
			Casualties:      142,
			Resources:       ResourceStatus{Deployed: "65%", EnRoute: "35%"},
			GeneratedSitRep: true,
		}
	default:
		return ExecutionLog{
			Status:          "ACTIVE RESPONSE",
			ActionsTaken:    []string{"Deployed 4 NDRF Teams", "Evacuated 5000 people"},
			Priorities:      []string{"restore power to hospital", "clear highway debris"},
			Casualties:      0,
			Resources:       ResourceStatus{Deployed: "80%", EnRoute: "20%"},
			GeneratedSitRep: true,
		}
	}
}

// ReviewFor returns the after-action review. The content does not vary by
// kind yet.
func ReviewFor(_ domain.ThreatType) Review {
	return Review{
		PredictionAccuracy: "95%",
		Successes:          []string{"Rapid mobilization", "AI detected early tremors"},
		Failures:           []string{"Mountain access blocked"},
		Lessons:            []string{"Deploy drones for initial survey"},
	}
}
