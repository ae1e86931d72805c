package openweather

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/incident-engine/internal/domain"
	"github.com/couchcryptid/incident-engine/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAPIKey        = "test-key"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string) *Client {
	return &Client{
		apiKey:     testAPIKey,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_Observe_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "19.0760", r.URL.Query().Get("lat"))
		assert.Equal(t, "72.8777", r.URL.Query().Get("lon"))
		assert.Equal(t, testAPIKey, r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, `{
			"weather": [{"main": "Rain", "description": "very heavy rain"}],
			"main": {"temp": 27.4, "feels_like": 31.2, "pressure": 996, "humidity": 94},
			"wind": {"speed": 12.3, "gust": 18.9},
			"rain": {"1h": 42.1, "3h": 118.5}
		}`)
	}))
	defer srv.Close()

	obs, err := testClient(srv.URL).Observe(context.Background(), mumbai)
	require.NoError(t, err)

	assert.Equal(t, 27.4, obs.Temp)
	assert.Equal(t, 31.2, obs.FeelsLike)
	assert.Equal(t, 94.0, obs.Humidity)
	assert.Equal(t, 996.0, obs.Pressure)
	assert.Equal(t, 12.3, obs.WindSpeed)
	require.NotNil(t, obs.WindGust)
	assert.Equal(t, 18.9, *obs.WindGust)
	require.NotNil(t, obs.Rain3h)
	assert.Equal(t, 118.5, *obs.Rain3h)
	assert.Equal(t, "very heavy rain", obs.Description)

	threat, ok := domain.NormalizeWeather(obs, mumbai)
	require.True(t, ok)
	assert.Equal(t, domain.ThreatFlood, threat.Type)
	assert.Equal(t, domain.SeverityExtreme, threat.Severity)
}

func TestClient_Observe_OptionalFieldsAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, `{"main": {"temp": 46.2}, "wind": {"speed": 3.1}, "weather": []}`)
	}))
	defer srv.Close()

	obs, err := testClient(srv.URL).Observe(context.Background(), mumbai)
	require.NoError(t, err)
	assert.Nil(t, obs.Rain3h)
	assert.Nil(t, obs.WindGust)
	assert.Empty(t, obs.Description)
	assert.Equal(t, 46.2, obs.Temp)
}

func TestClient_Observe_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"cod":401,"message":"Invalid API key"}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Observe(context.Background(), mumbai)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestClient_Observe_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "not json")
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Observe(context.Background(), mumbai)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_Observe_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(srv.URL).Observe(ctx, mumbai)
	require.Error(t, err)
}
