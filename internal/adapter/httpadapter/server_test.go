package httpadapter_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/incident-engine/internal/adapter/httpadapter"
	"github.com/couchcryptid/incident-engine/internal/domain"
	"github.com/couchcryptid/incident-engine/internal/engine"
	"github.com/couchcryptid/incident-engine/internal/shelter"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEngine() (*engine.Engine, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.July, 30, 2, 0, 0, 0, time.UTC))
	eng := engine.New(engine.Options{
		Clock:    clock,
		Logger:   discardLogger(),
		Shelters: shelter.MustDefault(),
	})
	return eng, clock
}

func advance(eng *engine.Engine, clock *clockwork.FakeClock, n int) {
	for i := 0; i < n; i++ {
		clock.Advance(2 * time.Second)
		eng.Advance(context.Background())
	}
}

func newTestServer(readyErr error) (*httpadapter.Server, *engine.Engine, *clockwork.FakeClock) {
	eng, clock := newEngine()
	srv := httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, eng, shelter.MustDefault(), nil, discardLogger())
	return srv, eng, clock
}

func do(srv http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	srv.ServeHTTP(rec, httptest.NewRequest(method, target, r))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	srv, _, _ := newTestServer(nil)
	rec := do(srv, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv, _, _ := newTestServer(nil)
	rec := do(srv, http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv, _, _ := newTestServer(fmt.Errorf("not ready yet"))
	rec := do(srv, http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(nil)
	rec := do(srv, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestSnapshot(t *testing.T) {
	srv, eng, clock := newTestServer(nil)

	rec := do(srv, http.MethodGet, "/api/snapshot", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	advance(eng, clock, 7)
	rec = do(srv, http.MethodGet, "/api/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap struct {
		Tick     int          `json:"tick"`
		Phase    domain.Phase `json:"phase"`
		Sequence uint64       `json:"sequence"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 7, snap.Tick)
	assert.Equal(t, domain.PhaseAssessment, snap.Phase)
	assert.Equal(t, uint64(7), snap.Sequence)
}

func TestPhaseHistoryAndFeed(t *testing.T) {
	srv, eng, clock := newTestServer(nil)

	rec := do(srv, http.MethodGet, "/api/feed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	advance(eng, clock, 14)

	var timeline []domain.HistoryEntry
	rec = do(srv, http.MethodGet, "/api/phase-history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &timeline))
	require.Len(t, timeline, 3)
	assert.Equal(t, domain.PhaseMonitoring, timeline[0].Phase)
	assert.Equal(t, domain.PhaseAssessment, timeline[1].Phase)
	assert.Equal(t, domain.PhasePlanning, timeline[2].Phase)

	var feed []domain.HistoryEntry
	rec = do(srv, http.MethodGet, "/api/feed", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	assert.Len(t, feed, 14)
}

func TestInject(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"flood", `{"type":"FLOOD"}`, http.StatusAccepted},
		{"lowercase", `{"type":"earthquake"}`, http.StatusAccepted},
		{"unknown type", `{"type":"TSUNAMI"}`, http.StatusBadRequest},
		{"empty type", `{}`, http.StatusBadRequest},
		{"bad json", `{"type":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := newTestServer(nil)
			rec := do(srv, http.MethodPost, "/api/inject", tt.body)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestInject_ChangesNextThreat(t *testing.T) {
	srv, eng, clock := newTestServer(nil)

	rec := do(srv, http.MethodPost, "/api/inject", `{"type":"FLOOD"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, domain.ThreatFlood, eng.ForcedThreat())

	advance(eng, clock, 6)
	threat, ok := eng.CurrentThreat()
	require.True(t, ok)
	assert.Equal(t, domain.ThreatFlood, threat.Type)
}

func TestInject_RejectsGet(t *testing.T) {
	srv, _, _ := newTestServer(nil)
	rec := do(srv, http.MethodGet, "/api/inject", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRisk(t *testing.T) {
	srv, eng, clock := newTestServer(nil)

	// Before any threat is assessed every observer is UNKNOWN.
	rec := do(srv, http.MethodGet, "/api/risk?lat=32.2&lon=76.3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var risk domain.RiskAssessment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &risk))
	assert.Equal(t, domain.RiskUnknown, risk.Status)

	advance(eng, clock, 6)
	threat, ok := eng.CurrentThreat()
	require.True(t, ok)
	epicentre := threat.Location.Point()

	tests := []struct {
		name   string
		query  string
		status domain.RiskStatus
	}{
		{"at epicentre", fmt.Sprintf("lat=%f&lon=%f", epicentre.Lat, epicentre.Lon), domain.RiskDanger},
		{"formatted coords", url.Values{"coords": {domain.FormatCoordinates(epicentre)}}.Encode(), domain.RiskDanger},
		{"far away", "lat=-33.86&lon=151.2", domain.RiskSafe},
		{"malformed", "lat=abc&lon=76", domain.RiskUnknown},
		{"missing", "", domain.RiskUnknown},
		{"out of range", "lat=95&lon=76", domain.RiskUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(srv, http.MethodGet, "/api/risk?"+tt.query, "")
			require.Equal(t, http.StatusOK, rec.Code)

			var got domain.RiskAssessment
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.status, got.Status)
			if tt.status == domain.RiskUnknown {
				assert.Nil(t, got.DistanceKm)
			}
		})
	}
}

func TestShelters(t *testing.T) {
	srv, _, _ := newTestServer(nil)

	rec := do(srv, http.MethodGet, "/api/shelters?lat=9.93&lon=76.26&count=3", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var shelters []domain.Shelter
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &shelters))
	require.Len(t, shelters, 3)
	for i := 1; i < len(shelters); i++ {
		assert.LessOrEqual(t, shelters[i-1].DistanceKm, shelters[i].DistanceKm)
	}

	for _, q := range []string{"lat=x&lon=76", "lat=9.9&lon=76&count=0", "lat=9.9&lon=76&count=many", "lon=76"} {
		rec := do(srv, http.MethodGet, "/api/shelters?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestForecast(t *testing.T) {
	srv, eng, clock := newTestServer(nil)

	rec := do(srv, http.MethodGet, "/api/forecast", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	advance(eng, clock, 6)
	rec = do(srv, http.MethodGet, "/api/forecast", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var pred domain.Prediction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pred))
	assert.Equal(t, domain.ThreatEarthquake, pred.ThreatType)
	assert.Equal(t, 1, pred.DataPoints)
}
