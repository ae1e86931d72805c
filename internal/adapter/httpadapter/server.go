package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/incident-engine/internal/domain"
	"github.com/couchcryptid/incident-engine/internal/engine"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxShelterCount = 40

// Engine is the read and control surface of the incident engine.
type Engine interface {
	Latest() (domain.Snapshot, bool)
	Timeline() []domain.HistoryEntry
	Feed() []domain.HistoryEntry
	InjectThreat(kind domain.ThreatType) error
	EvaluateRisk(observer *domain.Point) domain.RiskAssessment
	Prediction() (domain.Prediction, bool)
}

// ShelterFinder looks up shelters near a point.
type ShelterFinder interface {
	Nearest(p domain.Point, count int) []domain.Shelter
}

// Server exposes health, readiness, metrics, the incident API and the
// WebSocket stream.
type Server struct {
	httpServer *http.Server
	engine     Engine
	shelters   ShelterFinder
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, /api/*
// routes. A nil hub disables /api/ws.
func NewServer(addr string, ready sharedobs.ReadinessChecker, eng Engine, shelters ShelterFinder, hub *Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		engine:   eng,
		shelters: shelters,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/phase-history", s.handlePhaseHistory)
	mux.HandleFunc("GET /api/feed", s.handleFeed)
	mux.HandleFunc("POST /api/inject", s.handleInject)
	mux.HandleFunc("GET /api/risk", s.handleRisk)
	mux.HandleFunc("GET /api/shelters", s.handleShelters)
	mux.HandleFunc("GET /api/forecast", s.handleForecast)
	if hub != nil {
		mux.HandleFunc("GET /api/ws", hub.ServeWS)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.engine.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, "no snapshot emitted yet")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePhaseHistory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.engine.Timeline()))
}

func (s *Server) handleFeed(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.engine.Feed()))
}

type injectRequest struct {
	Type string `json:"type"`
}

func (s *Server) handleInject(w http.ResponseWriter, r *http.Request) {
	var req injectRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind := domain.ThreatType(strings.ToUpper(strings.TrimSpace(req.Type)))
	if err := s.engine.InjectThreat(kind); err != nil {
		if errors.Is(err, engine.ErrUnknownThreatType) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("inject threat failed", "type", kind, "error", err)
		writeError(w, http.StatusInternalServerError, "inject failed")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "injected", "type": string(kind)})
}

// handleRisk never fails: malformed or missing coordinates yield UNKNOWN.
func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	var observer *domain.Point
	if p, err := pointFromQuery(r); err == nil {
		observer = &p
	}
	writeJSON(w, http.StatusOK, s.engine.EvaluateRisk(observer))
}

func (s *Server) handleShelters(w http.ResponseWriter, r *http.Request) {
	p, err := pointFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	count := 5
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxShelterCount {
			writeError(w, http.StatusBadRequest, "count must be between 1 and 40")
			return
		}
		count = n
	}
	writeJSON(w, http.StatusOK, s.shelters.Nearest(p, count))
}

func (s *Server) handleForecast(w http.ResponseWriter, _ *http.Request) {
	p, ok := s.engine.Prediction()
	if !ok {
		writeError(w, http.StatusNotFound, "no threat assessed in this cycle")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// pointFromQuery reads lat/lon, or a formatted coords parameter such as
// "21.1458° N, 79.0882° E".
func pointFromQuery(r *http.Request) (domain.Point, error) {
	q := r.URL.Query()
	if c := q.Get("coords"); c != "" {
		return domain.ParseCoordinates(c)
	}

	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	p := domain.Point{Lat: lat, Lon: lon}
	if errLat != nil || errLon != nil || !domain.ValidPoint(p) {
		return domain.Point{}, domain.ErrMalformedCoordinates
	}
	return p, nil
}

func nonNil(entries []domain.HistoryEntry) []domain.HistoryEntry {
	if entries == nil {
		return []domain.HistoryEntry{}
	}
	return entries
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
