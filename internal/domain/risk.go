package domain

// RiskStatus classifies an observer's exposure to a threat.
type RiskStatus string

const (
	RiskSafe    RiskStatus = "SAFE"
	RiskCaution RiskStatus = "CAUTION"
	RiskDanger  RiskStatus = "DANGER"
	RiskUnknown RiskStatus = "UNKNOWN"
)

// RiskAssessment is the outcome of EvaluateRisk. DistanceKm is nil whenever
// the status is UNKNOWN.
type RiskAssessment struct {
	Status         RiskStatus `json:"status"`
	DistanceKm     *float64   `json:"distanceKm,omitempty"`
	ImpactRadiusKm float64    `json:"impactRadiusKm,omitempty"`
}

// ClassifyDistance applies the impact-zone policy. Both boundaries are
// inclusive: d <= r is DANGER, r < d <= 2r is CAUTION, anything further SAFE.
func ClassifyDistance(distanceKm, radiusKm float64) RiskStatus {
	switch {
	case distanceKm <= radiusKm:
		return RiskDanger
	case distanceKm <= 2*radiusKm:
		return RiskCaution
	default:
		return RiskSafe
	}
}

// EvaluateRisk computes the observer's exposure to threat. A nil observer or
// threat, or coordinates outside WGS-84 bounds, yield UNKNOWN.
func EvaluateRisk(observer *Point, threat *Threat) RiskAssessment {
	if observer == nil || threat == nil || !ValidPoint(*observer) || !threat.Location.Known() {
		return RiskAssessment{Status: RiskUnknown}
	}

	radiusKm := threat.ImpactRadiusKm()
	if radiusKm < 0 {
		radiusKm = 0
	}
	distance := Haversine(*observer, threat.Location.Point())
	return RiskAssessment{
		Status:         ClassifyDistance(distance, radiusKm),
		DistanceKm:     &distance,
		ImpactRadiusKm: radiusKm,
	}
}
