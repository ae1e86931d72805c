package openweather

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/couchcryptid/incident-engine/internal/domain"
	"github.com/couchcryptid/incident-engine/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingObserver struct {
	calls int
	obs   domain.WeatherObservation
	err   error
}

func (m *countingObserver) Observe(_ context.Context, _ domain.Location) (domain.WeatherObservation, error) {
	m.calls++
	return m.obs, m.err
}

var (
	mumbai = domain.Location{Name: "Mumbai", Lat: 19.0760, Lon: 72.8777}
	delhi  = domain.Location{Name: "Delhi", Lat: 28.6139, Lon: 77.2090}
)

func newFakeClock() *clockwork.FakeClock {
	return clockwork.NewFakeClockAt(time.Date(2024, time.July, 30, 2, 0, 0, 0, time.UTC))
}

// --- CachedObserver tests ---

func TestCachedObserver_CacheHit(t *testing.T) {
	inner := &countingObserver{obs: domain.WeatherObservation{Temp: 31, WindSpeed: 4}}
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedObserver(inner, 10, time.Minute, newFakeClock(), metrics)

	o1, err := cached.Observe(context.Background(), mumbai)
	require.NoError(t, err)
	assert.Equal(t, 31.0, o1.Temp)

	o2, err := cached.Observe(context.Background(), mumbai)
	require.NoError(t, err)
	assert.Equal(t, o1, o2)

	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WeatherCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WeatherCache.WithLabelValues("miss")))
}

func TestCachedObserver_DifferentLocationsMiss(t *testing.T) {
	inner := &countingObserver{}
	cached := NewCachedObserver(inner, 10, time.Minute, newFakeClock(), observability.NewMetricsForTesting())

	_, _ = cached.Observe(context.Background(), mumbai)
	_, _ = cached.Observe(context.Background(), delhi)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedObserver_Expiry(t *testing.T) {
	clock := newFakeClock()
	inner := &countingObserver{}
	cached := NewCachedObserver(inner, 10, 10*time.Minute, clock, observability.NewMetricsForTesting())

	_, _ = cached.Observe(context.Background(), mumbai)
	clock.Advance(9 * time.Minute)
	_, _ = cached.Observe(context.Background(), mumbai)
	assert.Equal(t, 1, inner.calls)

	clock.Advance(time.Minute)
	_, _ = cached.Observe(context.Background(), mumbai)
	assert.Equal(t, 2, inner.calls, "entry expires at the TTL")
}

func TestCachedObserver_ErrorsNotCached(t *testing.T) {
	inner := &countingObserver{err: errors.New("429 too many requests")}
	cached := NewCachedObserver(inner, 10, time.Minute, newFakeClock(), observability.NewMetricsForTesting())

	_, err := cached.Observe(context.Background(), mumbai)
	require.Error(t, err)
	_, err = cached.Observe(context.Background(), mumbai)
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
}

// --- LRU cache unit tests ---

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache(3, time.Minute, newFakeClock())

	c.put("a", domain.WeatherObservation{Temp: 1})
	c.put("b", domain.WeatherObservation{Temp: 2})

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, 1.0, result.Temp)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2, time.Minute, newFakeClock())

	c.put("a", domain.WeatherObservation{Temp: 1})
	c.put("b", domain.WeatherObservation{Temp: 2})
	c.put("c", domain.WeatherObservation{Temp: 3}) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	result, ok := c.get("c")
	assert.True(t, ok)
	assert.Equal(t, 3.0, result.Temp)
	assert.Equal(t, 2, c.len())
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2, time.Minute, newFakeClock())

	c.put("a", domain.WeatherObservation{Temp: 1})
	c.put("b", domain.WeatherObservation{Temp: 2})

	c.get("a")

	// Insert "c": should evict "b" (LRU), not "a".
	c.put("c", domain.WeatherObservation{Temp: 3})

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateRefreshesExpiry(t *testing.T) {
	clock := newFakeClock()
	c := newLRUCache(2, time.Minute, clock)

	c.put("a", domain.WeatherObservation{Temp: 1})
	clock.Advance(50 * time.Second)
	c.put("a", domain.WeatherObservation{Temp: 2})
	clock.Advance(50 * time.Second)

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, 2.0, result.Temp)
}

func TestLRUCache_ExpiredEntryRemoved(t *testing.T) {
	clock := newFakeClock()
	c := newLRUCache(2, time.Minute, clock)

	c.put("a", domain.WeatherObservation{Temp: 1})
	clock.Advance(2 * time.Minute)

	_, ok := c.get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.len())
}
