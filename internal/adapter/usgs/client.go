// Package usgs reads the USGS earthquake GeoJSON summary feeds.
package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/incident-engine/internal/domain"
	"github.com/couchcryptid/incident-engine/internal/observability"
)

// Client implements detector.SeismicFeed.
type Client struct {
	feedURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a client for one summary feed URL.
func NewClient(feedURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		feedURL: feedURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Features fetches the feed. Features without a magnitude or with short
// coordinate arrays are skipped.
func (c *Client) Features(ctx context.Context) ([]domain.SeismicFeature, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ExternalAPIDuration.WithLabelValues("usgs").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("usgs feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("usgs feed error: status %d: %s", resp.StatusCode, body)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	out := make([]domain.SeismicFeature, 0, len(fc.Features))
	skipped := 0
	for _, f := range fc.Features {
		if f.Properties.Mag == nil || len(f.Geometry.Coordinates) < 2 {
			skipped++
			continue
		}
		sf := domain.SeismicFeature{
			ID:          f.ID,
			Lon:         f.Geometry.Coordinates[0],
			Lat:         f.Geometry.Coordinates[1],
			Magnitude:   *f.Properties.Mag,
			Place:       f.Properties.Place,
			TimeEpochMs: f.Properties.Time,
		}
		if len(f.Geometry.Coordinates) > 2 {
			sf.Depth = f.Geometry.Coordinates[2]
		}
		out = append(out, sf)
	}
	if skipped > 0 {
		c.logger.Debug("skipped incomplete seismic features", "count", skipped)
	}
	return out, nil
}

// GeoJSON response types.

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	ID         string `json:"id"`
	Properties struct {
		Mag   *float64 `json:"mag"`
		Place string   `json:"place"`
		Time  int64    `json:"time"`
	} `json:"properties"`
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // [lon, lat, depth]
	} `json:"geometry"`
}
