package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "incident_engine"

// Metrics holds the Prometheus counters, histograms, and gauges for the engine.
type Metrics struct {
	Ticks           prometheus.Counter
	TickDuration    prometheus.Histogram
	CurrentPhase    prometheus.Gauge
	Generation      prometheus.Gauge
	PipelineRunning prometheus.Gauge

	// Snapshot fan-out.
	SnapshotsPublished *prometheus.CounterVec // labels: sink
	SinkErrors         *prometheus.CounterVec // labels: sink
	SnapshotsDropped   *prometheus.CounterVec // labels: sink, reason={queue_full,backoff}

	// Oracle enrichment.
	EnrichmentRequests *prometheus.CounterVec   // labels: kind={assessment,plan}, outcome={success,fallback}
	EnrichmentDuration *prometheus.HistogramVec // labels: kind
	StaleMerges        *prometheus.CounterVec   // labels: kind

	// Alerting.
	AlertsFired   *prometheus.CounterVec // labels: threat_type
	Notifications *prometheus.CounterVec // labels: channel, outcome={sent,error}

	// Detectors.
	DetectorScans       *prometheus.CounterVec   // labels: feed={seismic,weather}, outcome={success,error}
	DetectorCandidates  *prometheus.GaugeVec     // labels: threat_type
	ExternalAPIDuration *prometheus.HistogramVec // labels: api
	WeatherCache        *prometheus.CounterVec   // labels: result={hit,miss}
}

// NewMetrics creates and registers all engine metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Ticks,
		m.TickDuration,
		m.CurrentPhase,
		m.Generation,
		m.PipelineRunning,
		m.SnapshotsPublished,
		m.SinkErrors,
		m.SnapshotsDropped,
		m.EnrichmentRequests,
		m.EnrichmentDuration,
		m.StaleMerges,
		m.AlertsFired,
		m.Notifications,
		m.DetectorScans,
		m.DetectorCandidates,
		m.ExternalAPIDuration,
		m.WeatherCache,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Total state machine advances.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Duration of one advance including snapshot enqueue.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		CurrentPhase: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase",
			Help:      "Current phase index (0 MONITORING .. 4 REVIEW).",
		}),
		Generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generation",
			Help:      "Current incident generation.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the tick driver is active, 0 when shut down.",
		}),
		SnapshotsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_published_total",
			Help:      "Snapshots delivered by sink.",
		}, []string{"sink"}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Snapshot delivery failures by sink.",
		}, []string{"sink"}),
		SnapshotsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_dropped_total",
			Help:      "Snapshots not delivered to a sink, by reason.",
		}, []string{"sink", "reason"}),
		EnrichmentRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_requests_total",
			Help:      "Oracle enrichment requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		EnrichmentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enrichment_duration_seconds",
			Help:      "Oracle enrichment latency in seconds.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"kind"}),
		StaleMerges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_merges_total",
			Help:      "Enrichment results dropped because their generation had ended.",
		}, []string{"kind"}),
		AlertsFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_fired_total",
			Help:      "Alerts fired by threat type.",
		}, []string{"threat_type"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by channel and outcome.",
		}, []string{"channel", "outcome"}),
		DetectorScans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detector_scans_total",
			Help:      "Detector feed polls by feed and outcome.",
		}, []string{"feed", "outcome"}),
		DetectorCandidates: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "detector_candidates",
			Help:      "Threat candidates found by the latest scan.",
		}, []string{"threat_type"}),
		ExternalAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "external_api_duration_seconds",
			Help:      "External API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"api"}),
		WeatherCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_cache_total",
			Help:      "Weather cache lookups by result.",
		}, []string{"result"}),
	}
}
