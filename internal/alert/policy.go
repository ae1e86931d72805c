// Package alert decides when an incident warrants outbound notifications and
// delivers them through pluggable gateways.
package alert

import (
	"fmt"
	"sync"

	"github.com/couchcryptid/incident-engine/internal/domain"
)

// Channel is the delivery medium of a notification.
type Channel string

const (
	ChannelSMS   Channel = "SMS"
	ChannelEmail Channel = "EMAIL"
	ChannelRadio Channel = "RADIO"
)

// Recipients and frequencies used by the notification templates.
const (
	RecipientForestRangers = "FOREST_RANGER_HQ"
	RecipientNDRF          = "NDRF_COMMAND"
	RecipientHealthOffice  = "DISTRICT_HEALTH_OFFICE"
	RecipientMagistrate    = "district_magistrate@gov.in"
	EmergencyFrequency     = "108.5 MHz"

	defaultMagnitudeEstimate = 6.8
)

// Notification is one outbound message. For RADIO, Recipient is the frequency.
type Notification struct {
	ID         string            `json:"id"`
	Channel    Channel           `json:"type"`
	Recipient  string            `json:"recipient"`
	Subject    string            `json:"subject,omitempty"`
	Message    string            `json:"message"`
	ThreatType domain.ThreatType `json:"threatType"`
	Generation uint64            `json:"generation"`
	Timestamp  string            `json:"timestamp,omitempty"`
}

// Alert is a fired policy decision and the notifications it produces.
type Alert struct {
	Generation    uint64
	Threat        domain.Threat
	Notifications []Notification
}

// Policy fires at most one alert per incident generation, only during
// ASSESSMENT and only for HIGH severity or above. It is safe for concurrent use.
type Policy struct {
	mu        sync.Mutex
	fired     bool
	firedGen  uint64
	threshold domain.Severity
}

// NewPolicy returns a policy with the HIGH severity threshold.
func NewPolicy() *Policy {
	return &Policy{threshold: domain.SeverityHigh}
}

// Evaluate reports whether the threat triggers an alert for this generation.
func (p *Policy) Evaluate(generation uint64, phase domain.Phase, threat *domain.Threat) (Alert, bool) {
	if phase != domain.PhaseAssessment || threat == nil || !threat.Severity.AtLeast(p.threshold) {
		return Alert{}, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fired && p.firedGen == generation {
		return Alert{}, false
	}
	p.fired = true
	p.firedGen = generation

	notifications := Templates(*threat)
	for i := range notifications {
		notifications[i].ThreatType = threat.Type
		notifications[i].Generation = generation
	}
	return Alert{
		Generation:    generation,
		Threat:        threat.Clone(),
		Notifications: notifications,
	}, true
}

// Templates returns the notifications for a threat type.
func Templates(threat domain.Threat) []Notification {
	place := threat.Location.Name
	switch threat.Type {
	case domain.ThreatWildfire:
		return []Notification{
			{Channel: ChannelSMS, Recipient: RecipientForestRangers, Message: fmt.Sprintf("URGENT: Wildfire detected at %s. Immediate mobilization required.", place)},
			{Channel: ChannelEmail, Recipient: RecipientMagistrate, Subject: "Evacuation Order Request", Message: "Based on wind trajectory, Sector 4 needs evacuation."},
		}
	case domain.ThreatFlood:
		return []Notification{
			{Channel: ChannelRadio, Recipient: EmergencyFrequency, Message: "FLASH FLOOD WARNING. SEEK HIGHER GROUND IMMEDIATELY."},
			{Channel: ChannelSMS, Recipient: RecipientNDRF, Message: fmt.Sprintf("Deploy Water Rescue Teams to %s - Sector 7.", place)},
		}
	case domain.ThreatCyclone:
		return []Notification{
			{Channel: ChannelRadio, Recipient: EmergencyFrequency, Message: "CYCLONE WARNING. MOVE TO DESIGNATED SHELTERS NOW."},
			{Channel: ChannelSMS, Recipient: RecipientNDRF, Message: fmt.Sprintf("Pre-position rescue teams along the %s coast.", place)},
		}
	case domain.ThreatHeatwave:
		return []Notification{
			{Channel: ChannelSMS, Recipient: RecipientHealthOffice, Message: fmt.Sprintf("Heat emergency at %s. Open cooling centres and extend hospital readiness.", place)},
			{Channel: ChannelEmail, Recipient: RecipientMagistrate, Subject: "Heat Action Plan Activation", Message: "Suspend outdoor work between 12:00 and 16:00 and open public cooling centres."},
		}
	default:
		magnitude, ok := threat.Detail(domain.DetailMagnitude)
		if !ok {
			magnitude = defaultMagnitudeEstimate
		}
		return []Notification{
			{Channel: ChannelSMS, Recipient: RecipientNDRF, Message: fmt.Sprintf("Seismic Event confirmed at %s. Magnitude Estimate %.1f.", place, magnitude)},
		}
	}
}
