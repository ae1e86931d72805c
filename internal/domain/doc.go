// Package domain models disaster threats and the incident lifecycle that
// tracks them.
//
// # Threat Sources
//
// Threats arrive from two detector families and are normalized into a single
// canonical [Threat]:
//
//	Seismic: USGS GeoJSON summary features (lat, lon, depth, magnitude, place, time).
//	Weather: OpenWeatherMap current conditions per monitored location
//	         (temp, humidity, wind speed/gust, 3h rainfall, pressure).
//
// Scenario threats injected by operators use the same type.
//
// # Severity Classification
//
// Seismic severity follows moment magnitude:
//
//	>= 7.0 EXTREME (major) | >= 6.0 CRITICAL (strong) | >= 4.5 HIGH | else MODERATE
//
// The impact radius is 10^(m-3) km, so M4 is 10 km and M6 is 1000 km. The
// region filter discards features outside a configured bounding box.
//
// Weather produces at most one threat per observation, first match wins:
//
//	FLOOD     rain3h >= 100 mm EXTREME (25 km) | >= 50 mm HIGH (15 km)
//	CYCLONE   wind   >= 25 m/s EXTREME (30 km) | >= 15 m/s HIGH (20 km)
//	HEATWAVE  temp   >= 45 °C  HIGH (10 km)
//
// # Risk Zones
//
// Exposure of an observer is classified by great-circle (haversine) distance
// d to the epicentre against impact radius r, both boundaries inclusive:
//
//	d <= r        DANGER
//	r < d <= 2r   CAUTION
//	d > 2r        SAFE
//
// Unknown or out-of-range coordinates are UNKNOWN and carry no distance.
//
// # Phases
//
// An incident cycle runs ticks 0..35:
//
//	MONITORING 0-5 | ASSESSMENT 6-12 | PLANNING 13-18 | EXECUTION 19-28 | REVIEW 29-35
//
// The advance after tick 35 starts a new generation at tick 0. See [PhaseAt].
package domain
