package domain

import (
	"math"
	"strings"
	"time"
)

// Seismic magnitude thresholds (moment magnitude).
const (
	magnitudeMajor    = 7.0
	magnitudeStrong   = 6.0
	magnitudeModerate = 4.5
)

// Weather thresholds. Rainfall is mm over 3 hours, wind is m/s, temperature °C.
const (
	rainHeavy    = 50.0
	rainExtreme  = 100.0
	windHigh     = 15.0
	windExtreme  = 25.0
	tempHeatHigh = 45.0
)

// Impact radii in metres for weather-derived threats.
const (
	floodRadiusExtreme   = 25000
	floodRadiusHigh      = 15000
	cycloneRadiusExtreme = 30000
	cycloneRadiusHigh    = 20000
	heatwaveRadius       = 10000
)

// SeismicFilter restricts which seismic features become threat candidates.
type SeismicFilter struct {
	Region       BoundingBox
	MinMagnitude float64
}

// NormalizeSeismic converts a seismic feed feature into a canonical Threat.
// Features outside the region or below the minimum magnitude are discarded
// and reported with ok=false; that is not an error.
func NormalizeSeismic(f SeismicFeature, filter SeismicFilter) (Threat, bool) {
	p := Point{Lat: f.Lat, Lon: f.Lon}
	if !ValidPoint(p) || math.IsNaN(f.Magnitude) {
		return Threat{}, false
	}
	if f.Magnitude < filter.MinMagnitude || !filter.Region.Contains(p) {
		return Threat{}, false
	}

	place := strings.TrimSpace(f.Place)
	if place == "" {
		place = FormatCoordinates(p)
	}

	detected := clock.Now().UTC()
	if f.TimeEpochMs > 0 {
		detected = time.UnixMilli(f.TimeEpochMs).UTC()
	}

	return Threat{
		Type:               ThreatEarthquake,
		Name:               "Earthquake - " + place,
		Location:           Location{Name: place, Lat: f.Lat, Lon: f.Lon},
		Severity:           SeismicSeverity(f.Magnitude),
		ImpactRadiusMeters: SeismicImpactRadius(f.Magnitude),
		Details: map[string]float64{
			DetailMagnitude: f.Magnitude,
			DetailDepth:     f.Depth,
		},
		DetectedAt: detected,
	}, true
}

// SeismicSeverity maps magnitude to severity:
//   - >= 7.0 EXTREME (major)
//   - >= 6.0 CRITICAL (strong)
//   - >= 4.5 HIGH
//   - otherwise MODERATE
func SeismicSeverity(magnitude float64) Severity {
	switch {
	case magnitude >= magnitudeMajor:
		return SeverityExtreme
	case magnitude >= magnitudeStrong:
		return SeverityCritical
	case magnitude >= magnitudeModerate:
		return SeverityHigh
	default:
		return SeverityModerate
	}
}

// SeismicImpactRadius estimates the felt radius in metres as 10^(m-3) km:
// M4 is 10 km, M5 100 km, M6 1000 km.
func SeismicImpactRadius(magnitude float64) float64 {
	return math.Pow(10, magnitude-3) * 1000
}

// NormalizeWeather inspects one observation and returns at most one threat.
// Precedence when several thresholds fire is FLOOD, then CYCLONE, then HEATWAVE.
func NormalizeWeather(obs WeatherObservation, loc Location) (Threat, bool) {
	now := clock.Now().UTC()

	if obs.Rain3h != nil && *obs.Rain3h >= rainHeavy {
		rain := *obs.Rain3h
		severity, radius := SeverityHigh, float64(floodRadiusHigh)
		if rain >= rainExtreme {
			severity, radius = SeverityExtreme, floodRadiusExtreme
		}
		return Threat{
			Type:               ThreatFlood,
			Name:               "Heavy Rainfall - " + loc.Name,
			Location:           loc,
			Severity:           severity,
			ImpactRadiusMeters: radius,
			Details: map[string]float64{
				DetailRainfall:  rain,
				DetailWindSpeed: obs.WindSpeed,
				DetailPressure:  obs.Pressure,
			},
			Description: describe(obs.Description, "Heavy rain"),
			DetectedAt:  now,
		}, true
	}

	if obs.WindSpeed >= windHigh {
		severity, radius := SeverityHigh, float64(cycloneRadiusHigh)
		if obs.WindSpeed >= windExtreme {
			severity, radius = SeverityExtreme, cycloneRadiusExtreme
		}
		gust := obs.WindSpeed
		if obs.WindGust != nil {
			gust = *obs.WindGust
		}
		return Threat{
			Type:               ThreatCyclone,
			Name:               "High Wind Event - " + loc.Name,
			Location:           loc,
			Severity:           severity,
			ImpactRadiusMeters: radius,
			Details: map[string]float64{
				DetailWindSpeed: obs.WindSpeed,
				DetailWindGust:  gust,
				DetailPressure:  obs.Pressure,
			},
			Description: describe(obs.Description, "Strong winds"),
			DetectedAt:  now,
		}, true
	}

	if obs.Temp >= tempHeatHigh {
		return Threat{
			Type:               ThreatHeatwave,
			Name:               "Extreme Heat - " + loc.Name,
			Location:           loc,
			Severity:           SeverityHigh,
			ImpactRadiusMeters: heatwaveRadius,
			Details: map[string]float64{
				DetailTemperature: obs.Temp,
				DetailFeelsLike:   obs.FeelsLike,
				DetailHumidity:    obs.Humidity,
			},
			Description: describe(obs.Description, "Extreme heat"),
			DetectedAt:  now,
		}, true
	}

	return Threat{}, false
}

func describe(desc, fallback string) string {
	if d := strings.TrimSpace(desc); d != "" {
		return d
	}
	return fallback
}
