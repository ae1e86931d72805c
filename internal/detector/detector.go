// Package detector polls live hazard feeds and keeps the most severe recent
// candidate per threat kind for the engine to pick up.
package detector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/incident-engine/internal/domain"
	"github.com/couchcryptid/incident-engine/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

const weatherConcurrency = 4

// SeismicFeed lists recent seismic events.
type SeismicFeed interface {
	Features(ctx context.Context) ([]domain.SeismicFeature, error)
}

// WeatherFeed reports current weather at a location.
type WeatherFeed interface {
	Observe(ctx context.Context, loc domain.Location) (domain.WeatherObservation, error)
}

// MonitoredLocations are the places scanned for severe weather.
var MonitoredLocations = []domain.Location{
	{Name: "Mumbai", Lat: 19.0760, Lon: 72.8777},
	{Name: "Delhi", Lat: 28.6139, Lon: 77.2090},
	{Name: "Bangalore", Lat: 12.9716, Lon: 77.5946},
	{Name: "Chennai", Lat: 13.0827, Lon: 80.2707},
	{Name: "Kolkata", Lat: 22.5726, Lon: 88.3639},
	{Name: "Kerala Backwaters", Lat: 9.9312, Lon: 76.2673},
	{Name: "Uttarakhand", Lat: 30.0668, Lon: 79.0193},
	{Name: "Nagpur", Lat: 21.1458, Lon: 79.0882},
}

// Scanner polls the configured feeds and retains candidates from the most
// recent scan. Feed failures never propagate; they produce no candidates.
type Scanner struct {
	seismic   SeismicFeed
	weather   WeatherFeed
	locations []domain.Location
	filter    domain.SeismicFilter
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu         sync.RWMutex
	seismicSet []domain.Threat
	weatherSet []domain.Threat
	lastScan   time.Time
}

// NewScanner creates a Scanner. Either feed may be nil to disable it. Nil
// locations scan MonitoredLocations.
func NewScanner(seismic SeismicFeed, weather WeatherFeed, locations []domain.Location, filter domain.SeismicFilter, logger *slog.Logger, metrics *observability.Metrics) *Scanner {
	if locations == nil {
		locations = MonitoredLocations
	}
	return &Scanner{
		seismic:   seismic,
		weather:   weather,
		locations: locations,
		filter:    filter,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run scans immediately and then on every interval until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context, clock clockwork.Clock, interval time.Duration) error {
	s.logger.Info("detector started", "interval", interval, "locations", len(s.locations),
		"seismic", s.seismic != nil, "weather", s.weather != nil)

	s.Scan(ctx)

	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("detector stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			s.Scan(ctx)
		}
	}
}

// Scan polls every enabled feed once and replaces the retained candidates.
// It returns all candidates found.
func (s *Scanner) Scan(ctx context.Context) []domain.Threat {
	var seismic, weather []domain.Threat
	if s.seismic != nil {
		seismic = s.scanSeismic(ctx)
	}
	if s.weather != nil {
		weather = s.scanWeather(ctx)
	}

	s.mu.Lock()
	if s.seismic != nil {
		s.seismicSet = seismic
	}
	if s.weather != nil {
		s.weatherSet = weather
	}
	s.lastScan = time.Now()
	s.mu.Unlock()

	found := make([]domain.Threat, 0, len(seismic)+len(weather))
	found = append(found, seismic...)
	found = append(found, weather...)

	counts := make(map[domain.ThreatType]int, len(domain.ThreatTypes))
	for _, t := range found {
		counts[t.Type]++
	}
	for _, tt := range domain.ThreatTypes {
		s.metrics.DetectorCandidates.WithLabelValues(string(tt)).Set(float64(counts[tt]))
	}
	return found
}

// Threat returns the most severe retained candidate of a kind. Ties go to the
// most recently detected.
func (s *Scanner) Threat(kind domain.ThreatType) (domain.Threat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *domain.Threat
	for _, set := range [][]domain.Threat{s.seismicSet, s.weatherSet} {
		for i := range set {
			t := &set[i]
			if t.Type != kind {
				continue
			}
			if best == nil || moreSevere(*t, *best) {
				best = t
			}
		}
	}
	if best == nil {
		return domain.Threat{}, false
	}
	return best.Clone(), true
}

// Candidates returns every retained candidate.
func (s *Scanner) Candidates() []domain.Threat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Threat, 0, len(s.seismicSet)+len(s.weatherSet))
	for _, t := range s.seismicSet {
		out = append(out, t.Clone())
	}
	for _, t := range s.weatherSet {
		out = append(out, t.Clone())
	}
	return out
}

// LastScan returns when the last scan completed.
func (s *Scanner) LastScan() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastScan
}

func (s *Scanner) scanSeismic(ctx context.Context) []domain.Threat {
	features, err := s.seismic.Features(ctx)
	if err != nil {
		s.metrics.DetectorScans.WithLabelValues("seismic", "error").Inc()
		s.logger.Warn("seismic feed unavailable", "error", err)
		return nil
	}
	s.metrics.DetectorScans.WithLabelValues("seismic", "success").Inc()

	var threats []domain.Threat
	for _, f := range features {
		if t, ok := domain.NormalizeSeismic(f, s.filter); ok {
			s.logger.Info("earthquake detected", "magnitude", f.Magnitude, "place", t.Location.Name, "severity", t.Severity)
			threats = append(threats, t)
		}
	}
	return threats
}

func (s *Scanner) scanWeather(ctx context.Context) []domain.Threat {
	results := make([]*domain.Threat, len(s.locations))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(weatherConcurrency)
	for i, loc := range s.locations {
		g.Go(func() error {
			obs, err := s.weather.Observe(gctx, loc)
			if err != nil {
				s.metrics.DetectorScans.WithLabelValues("weather", "error").Inc()
				s.logger.Warn("weather feed unavailable", "location", loc.Name, "error", err)
				return nil
			}
			s.metrics.DetectorScans.WithLabelValues("weather", "success").Inc()
			if t, ok := domain.NormalizeWeather(obs, loc); ok {
				s.logger.Info("weather threat detected", "name", t.Name, "severity", t.Severity)
				results[i] = &t
			}
			return nil
		})
	}
	_ = g.Wait()

	var threats []domain.Threat
	for _, t := range results {
		if t != nil {
			threats = append(threats, *t)
		}
	}
	return threats
}

func moreSevere(a, b domain.Threat) bool {
	if a.Severity.Rank() != b.Severity.Rank() {
		return a.Severity.Rank() > b.Severity.Rank()
	}
	return a.DetectedAt.After(b.DetectedAt)
}
