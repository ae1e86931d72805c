package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/incident-engine/internal/domain"
	"github.com/couchcryptid/incident-engine/internal/observability"
)

// DefaultBaseURL is the OpenWeatherMap 2.5 API root.
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

// Client implements detector.WeatherFeed using the OpenWeatherMap current
// weather endpoint.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OpenWeatherMap client.
func NewClient(apiKey string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: DefaultBaseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Observe fetches current conditions at loc in metric units.
func (c *Client) Observe(ctx context.Context, loc domain.Location) (domain.WeatherObservation, error) {
	params := url.Values{
		"lat":   {strconv.FormatFloat(loc.Lat, 'f', 4, 64)},
		"lon":   {strconv.FormatFloat(loc.Lon, 'f', 4, 64)},
		"appid": {c.apiKey},
		"units": {"metric"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/weather?"+params.Encode(), nil)
	if err != nil {
		return domain.WeatherObservation{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ExternalAPIDuration.WithLabelValues("openweather").Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.WeatherObservation{}, fmt.Errorf("weather request for %s: %w", loc.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.WeatherObservation{}, fmt.Errorf("openweather API error: status %d: %s", resp.StatusCode, body)
	}

	var wr response
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return domain.WeatherObservation{}, fmt.Errorf("decode response: %w", err)
	}

	obs := domain.WeatherObservation{
		Temp:      wr.Main.Temp,
		FeelsLike: wr.Main.FeelsLike,
		Humidity:  wr.Main.Humidity,
		Pressure:  wr.Main.Pressure,
		WindSpeed: wr.Wind.Speed,
		WindGust:  wr.Wind.Gust,
	}
	if wr.Rain != nil {
		obs.Rain3h = wr.Rain.ThreeHour
	}
	if len(wr.Weather) > 0 {
		obs.Description = wr.Weather[0].Description
	}
	return obs, nil
}

// OpenWeatherMap API response types.

type response struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
		Pressure  float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64  `json:"speed"`
		Gust  *float64 `json:"gust"`
	} `json:"wind"`
	Rain    *rain     `json:"rain"`
	Weather []weather `json:"weather"`
}

type rain struct {
	ThreeHour *float64 `json:"3h"`
}

type weather struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}
