package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/incident-engine/internal/adapter/gemini"
	"github.com/couchcryptid/incident-engine/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/incident-engine/internal/adapter/kafka"
	"github.com/couchcryptid/incident-engine/internal/adapter/openweather"
	"github.com/couchcryptid/incident-engine/internal/adapter/usgs"
	"github.com/couchcryptid/incident-engine/internal/alert"
	"github.com/couchcryptid/incident-engine/internal/config"
	"github.com/couchcryptid/incident-engine/internal/detector"
	"github.com/couchcryptid/incident-engine/internal/domain"
	"github.com/couchcryptid/incident-engine/internal/engine"
	"github.com/couchcryptid/incident-engine/internal/enrichment"
	"github.com/couchcryptid/incident-engine/internal/forecast"
	"github.com/couchcryptid/incident-engine/internal/observability"
	"github.com/couchcryptid/incident-engine/internal/pipeline"
	"github.com/couchcryptid/incident-engine/internal/shelter"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

const (
	feedTimeout   = 10 * time.Second
	notifyTimeout = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()
	domain.SetClock(clock)

	shelters, err := shelter.Default()
	if err != nil {
		logger.Error("failed to load shelter catalogue", "error", err)
		os.Exit(1)
	}

	// Reasoning and planning oracles (feature-flagged via ORACLE_ENABLED / GEMINI_API_KEY).
	var (
		reasoning enrichment.ReasoningOracle
		planner   enrichment.PlannerOracle
	)
	if cfg.OracleEnabled {
		client := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, logger, metrics)
		reasoning, planner = client, client
		logger.Info("gemini oracle enabled", "model", cfg.GeminiModel, "timeout", cfg.OracleTimeout)
	} else {
		logger.Info("gemini oracle disabled, using mock enrichment")
	}
	coordinator := enrichment.NewCoordinator(reasoning, planner, cfg.OracleTimeout, logger, metrics)

	// Live detectors (feature-flagged via USGS_ENABLED / WEATHER_ENABLED).
	var (
		seismic detector.SeismicFeed
		weather detector.WeatherFeed
	)
	if cfg.USGSEnabled {
		seismic = usgs.NewClient(cfg.USGSFeedURL, feedTimeout, logger, metrics)
		logger.Info("usgs seismic feed enabled", "url", cfg.USGSFeedURL, "min_magnitude", cfg.SeismicMinMagnitude)
	}
	if cfg.WeatherEnabled {
		client := openweather.NewClient(cfg.OpenWeatherAPIKey, feedTimeout, logger, metrics)
		weather = openweather.NewCachedObserver(client, cfg.WeatherCacheSize, cfg.WeatherCacheTTL, clock, metrics)
		logger.Info("openweather feed enabled", "cache_size", cfg.WeatherCacheSize, "cache_ttl", cfg.WeatherCacheTTL)
	}

	var (
		scanner *detector.Scanner
		live    engine.LiveSource
	)
	if cfg.DetectorsEnabled() {
		filter := domain.SeismicFilter{Region: cfg.Region, MinMagnitude: cfg.SeismicMinMagnitude}
		scanner = detector.NewScanner(seismic, weather, nil, filter, logger, metrics)
		live = scanner
	} else {
		logger.Info("live detectors disabled, running scripted scenarios")
	}

	// The hub is both a snapshot sink and a notification gateway, and it
	// injects threats into the engine, so it binds to eng lazily.
	var eng *engine.Engine
	hub := httpadapter.NewHub(httpadapter.InjectorFunc(func(kind domain.ThreatType) error {
		return eng.InjectThreat(kind)
	}), clock, cfg.HeartbeatInterval, logger)

	sinks := []pipeline.Sink{hub}
	gateways := alert.Fanout{alert.LogGateway{Logger: logger}, hub}

	// Kafka publishing (feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS).
	var (
		snapshotWriter *kafkaadapter.SnapshotWriter
		alertWriter    *kafkaadapter.AlertWriter
	)
	if cfg.KafkaEnabled {
		snapshotWriter = kafkaadapter.NewSnapshotWriter(cfg, logger)
		alertWriter = kafkaadapter.NewAlertWriter(cfg, logger)
		sinks = append(sinks, snapshotWriter)
		gateways = append(gateways, alertWriter)
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers,
			"snapshot_topic", cfg.KafkaSnapshotTopic, "alert_topic", cfg.KafkaAlertTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	dispatcher := alert.NewDispatcher(gateways, notifyTimeout, clock, logger, metrics)

	eng = engine.New(engine.Options{
		Clock:            clock,
		Logger:           logger,
		Metrics:          metrics,
		Forecaster:       forecast.New(clock, 0),
		Enricher:         coordinator,
		Notifier:         dispatcher,
		Shelters:         shelters,
		Live:             live,
		ShelterCount:     cfg.ShelterCount,
		ZeroRetention:    cfg.ZeroRetention,
		DefaultThreat:    cfg.DefaultThreat,
		TimelineCapacity: cfg.TimelineCapacity,
		FeedCapacity:     cfg.FeedCapacity,
	})

	p := pipeline.New(eng, sinks, clock, cfg.TickInterval, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, eng, shelters, hub, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.Run(gctx) })
	g.Go(func() error { return hub.Run(gctx) })
	if scanner != nil {
		g.Go(func() error { return scanner.Run(gctx, clock, cfg.DetectorInterval) })
	}

	<-gctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := g.Wait(); err != nil {
		logger.Error("worker error", "error", err)
	}

	if err := p.Shutdown(shutdownCtx); err != nil {
		logger.Error("pipeline shutdown error", "error", err)
	}
	coordinator.Wait()
	dispatcher.Wait()

	if snapshotWriter != nil {
		if err := snapshotWriter.Close(); err != nil {
			logger.Error("kafka snapshot writer close error", "error", err)
		}
	}
	if alertWriter != nil {
		if err := alertWriter.Close(); err != nil {
			logger.Error("kafka alert writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
