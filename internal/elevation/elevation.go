// Package elevation wraps an injected airport-elevation lookup with rate
// limiting, caching, and a layered fallback, per spec §5's "external
// elevation lookups" collaborator contract.
package elevation

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// minRequestInterval is the minimum spacing spec §5 requires between
// outbound elevation lookups.
const minRequestInterval = 100 * time.Millisecond

// genericDefaultMeters is the final fallback when no per-airport default
// is configured and the lookup itself fails.
const genericDefaultMeters = 150.0

// cacheSize bounds the in-process LRU cache of (lat, lon) -> elevation.
const cacheSize = 4096

// RawLookup performs the actual network round-trip for one coordinate,
// returning ground elevation in meters. The out-of-scope HTTP client
// implementing this is supplied by the caller.
type RawLookup func(ctx context.Context, lat, lon float64) (float64, error)

// key is the cache key: (lat, lon) rounded to 6 decimal places, per
// spec §5.
type key struct {
	lat float64
	lon float64
}

func roundKey(lat, lon float64) key {
	const scale = 1e6
	return key{
		lat: math.Round(lat*scale) / scale,
		lon: math.Round(lon*scale) / scale,
	}
}

// Client rate-limits and caches calls to a RawLookup, falling back to a
// per-airport default and then a generic default on failure. Safe for
// concurrent use.
type Client struct {
	raw      RawLookup
	limiter  *rate.Limiter
	cache    *lru.Cache[key, float64]
	mu       sync.Mutex
	defaults map[string]float64 // airport code -> default elevation, meters
}

// NewClient constructs a Client around raw, rate limited to no more than
// one request per minRequestInterval.
func NewClient(raw RawLookup) *Client {
	cache, err := lru.New[key, float64](cacheSize)
	if err != nil {
		// Only size <= 0 can cause this, and cacheSize is a positive constant.
		panic(err)
	}
	return &Client{
		raw:      raw,
		limiter:  rate.NewLimiter(rate.Every(minRequestInterval), 1),
		cache:    cache,
		defaults: make(map[string]float64),
	}
}

// SetAirportDefault registers a fallback elevation (meters) for an
// airport code, consulted when the raw lookup fails.
func (c *Client) SetAirportDefault(airportCode string, elevationMeters float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaults[airportCode] = elevationMeters
}

// ElevationMeters returns ground elevation at (lat, lon) in meters.
// airportCode, if non-empty, is consulted for a per-airport default when
// the raw lookup fails; failing that, genericDefaultMeters is used.
// Network failure is never fatal.
func (c *Client) ElevationMeters(ctx context.Context, lat, lon float64, airportCode string) float64 {
	k := roundKey(lat, lon)
	if v, ok := c.cache.Get(k); ok {
		return v
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return c.fallback(airportCode)
	}

	v, err := c.raw(ctx, lat, lon)
	if err != nil {
		log.Printf("elevation: lookup failed for (%.6f, %.6f): %v", lat, lon, err)
		return c.fallback(airportCode)
	}

	c.cache.Add(k, v)
	return v
}

func (c *Client) fallback(airportCode string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.defaults[airportCode]; ok {
		return v
	}
	return genericDefaultMeters
}
