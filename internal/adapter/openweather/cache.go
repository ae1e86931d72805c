package openweather

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/couchcryptid/incident-engine/internal/domain"
	"github.com/couchcryptid/incident-engine/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Observer reports current weather at a location.
type Observer interface {
	Observe(ctx context.Context, loc domain.Location) (domain.WeatherObservation, error)
}

// CachedObserver wraps an Observer with an in-memory LRU cache whose entries
// expire after a fixed TTL.
type CachedObserver struct {
	inner   Observer
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedObserver creates a cache decorator around a weather observer.
func NewCachedObserver(inner Observer, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedObserver {
	return &CachedObserver{
		inner:   inner,
		cache:   newLRUCache(maxEntries, ttl, clock),
		metrics: metrics,
	}
}

func (c *CachedObserver) Observe(ctx context.Context, loc domain.Location) (domain.WeatherObservation, error) {
	key := fmt.Sprintf("%.4f,%.4f", loc.Lat, loc.Lon)
	if obs, ok := c.cache.get(key); ok {
		c.metrics.WeatherCache.WithLabelValues("hit").Inc()
		return obs, nil
	}
	c.metrics.WeatherCache.WithLabelValues("miss").Inc()

	obs, err := c.inner.Observe(ctx, loc)
	if err != nil {
		return obs, err
	}
	c.cache.put(key, obs)
	return obs, nil
}

// lruCache is a thread-safe LRU cache of observations with expiry.
type lruCache struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key     string
	value   domain.WeatherObservation
	expires time.Time
	prev    *entry
	next    *entry
}

func newLRUCache(maxEntries int, ttl time.Duration, clock clockwork.Clock) *lruCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clock,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.WeatherObservation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.WeatherObservation{}, false
	}
	if !c.clock.Now().Before(e.expires) {
		delete(c.entries, key)
		c.remove(e)
		return domain.WeatherObservation{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.WeatherObservation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.clock.Now().Add(c.ttl)
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expires = expires
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expires: expires}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
