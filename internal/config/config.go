package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/incident-engine/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// DefaultUSGSFeedURL is the all-earthquakes past-day GeoJSON summary feed.
const DefaultUSGSFeedURL = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson"

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Simulation.
	TickInterval      time.Duration
	HeartbeatInterval time.Duration
	ZeroRetention     bool
	DefaultThreat     domain.ThreatType
	TimelineCapacity  int
	FeedCapacity      int
	ShelterCount      int

	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSnapshotTopic string
	KafkaAlertTopic    string

	// Gemini reasoning and planning oracles.
	GeminiAPIKey  string
	GeminiModel   string
	OracleEnabled bool
	OracleTimeout time.Duration

	// Live detectors.
	OpenWeatherAPIKey   string
	WeatherEnabled      bool
	WeatherCacheSize    int
	WeatherCacheTTL     time.Duration
	USGSEnabled         bool
	USGSFeedURL         string
	DetectorInterval    time.Duration
	SeismicMinMagnitude float64
	Region              domain.BoundingBox
}

// DetectorsEnabled reports whether any live detector feed is configured.
func (c *Config) DetectorsEnabled() bool {
	return c.USGSEnabled || c.WeatherEnabled
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSnapshotTopic: sharedcfg.EnvOrDefault("KAFKA_SNAPSHOT_TOPIC", "incident-snapshots"),
		KafkaAlertTopic:    sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "incident-alerts"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  sharedcfg.EnvOrDefault("GEMINI_MODEL", "gemini-pro"),

		OpenWeatherAPIKey: os.Getenv("OPENWEATHER_API_KEY"),
		USGSFeedURL:       sharedcfg.EnvOrDefault("USGS_FEED_URL", DefaultUSGSFeedURL),
	}

	durations := []struct {
		name string
		def  string
		dst  *time.Duration
	}{
		{"TICK_INTERVAL", "3s", &cfg.TickInterval},
		{"HEARTBEAT_INTERVAL", "5s", &cfg.HeartbeatInterval},
		{"ORACLE_TIMEOUT", "20s", &cfg.OracleTimeout},
		{"DETECTOR_INTERVAL", "5m", &cfg.DetectorInterval},
		{"WEATHER_CACHE_TTL", "10m", &cfg.WeatherCacheTTL},
	}
	for _, d := range durations {
		if *d.dst, err = parseDuration(d.name, d.def); err != nil {
			return nil, err
		}
	}

	ints := []struct {
		name string
		def  int
		dst  *int
	}{
		{"TIMELINE_CAPACITY", 10, &cfg.TimelineCapacity},
		{"FEED_CAPACITY", 20, &cfg.FeedCapacity},
		{"SHELTER_COUNT", 5, &cfg.ShelterCount},
		{"WEATHER_CACHE_SIZE", 100, &cfg.WeatherCacheSize},
	}
	for _, n := range ints {
		if *n.dst, err = parsePositiveInt(n.name, n.def); err != nil {
			return nil, err
		}
	}

	if cfg.ZeroRetention, err = parseBool("ZERO_RETENTION", false); err != nil {
		return nil, err
	}
	if cfg.KafkaEnabled, err = parseBool("KAFKA_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.USGSEnabled, err = parseBool("USGS_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.OracleEnabled, err = parseBool("ORACLE_ENABLED", cfg.GeminiAPIKey != ""); err != nil {
		return nil, err
	}
	if cfg.WeatherEnabled, err = parseBool("WEATHER_ENABLED", cfg.OpenWeatherAPIKey != ""); err != nil {
		return nil, err
	}

	if cfg.DefaultThreat, err = domain.ParseThreatType(sharedcfg.EnvOrDefault("DEFAULT_THREAT", string(domain.ThreatEarthquake))); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_THREAT: %w", err)
	}

	minMag := sharedcfg.EnvOrDefault("SEISMIC_MIN_MAGNITUDE", "4.0")
	cfg.SeismicMinMagnitude, err = strconv.ParseFloat(minMag, 64)
	if err != nil || cfg.SeismicMinMagnitude < 0 {
		return nil, fmt.Errorf("invalid SEISMIC_MIN_MAGNITUDE: %q", minMag)
	}

	if cfg.Region, err = domain.ParseBoundingBox(sharedcfg.EnvOrDefault("REGION_BOUNDS", "6,38,68,98")); err != nil {
		return nil, fmt.Errorf("invalid REGION_BOUNDS: %w", err)
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaSnapshotTopic == "" || cfg.KafkaAlertTopic == "" {
			return nil, errors.New("KAFKA_SNAPSHOT_TOPIC and KAFKA_ALERT_TOPIC are required when KAFKA_ENABLED is true")
		}
	}
	if cfg.OracleEnabled && cfg.GeminiAPIKey == "" {
		return nil, errors.New("ORACLE_ENABLED is true but GEMINI_API_KEY is not set")
	}
	if cfg.WeatherEnabled && cfg.OpenWeatherAPIKey == "" {
		return nil, errors.New("WEATHER_ENABLED is true but OPENWEATHER_API_KEY is not set")
	}
	if cfg.USGSEnabled && cfg.USGSFeedURL == "" {
		return nil, errors.New("USGS_FEED_URL is required when USGS_ENABLED is true")
	}

	return cfg, nil
}

func parseDuration(name, def string) (time.Duration, error) {
	s := sharedcfg.EnvOrDefault(name, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, s)
	}
	return d, nil
}

func parsePositiveInt(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s: %q", name, s)
	}
	return n, nil
}

func parseBool(name string, def bool) (bool, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", name, s)
	}
	return b, nil
}
