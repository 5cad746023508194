package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Bounds for the response cache.  The transit network changes rarely,
// so entries can live a while, but an unbounded TTL would keep stale
// listings around after a head edits routes.  MaxBodyBytes caps what
// gets stored in Redis per entry.
const (
	cacheMinTTL      = 5 * time.Second
	cacheMaxTTL      = 15 * time.Minute
	cacheDefaultTTL  = 60 * time.Second
	cacheMinBody     = 4096
	cacheDefaultBody = 1 << 20
)

// CacheConfig defines settings for the response cache middleware used
// on public transit listings (districts, routes, buses).  When Enabled
// is false or no Redis client is available, caching is a no-op.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* environment variables and normalizes
// them: TTL and body size are clamped into sane bounds and an unknown
// key strategy falls back to route_query so a typo in the env never
// produces colliding or useless cache keys.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      getenv("CACHE_ENABLED", "true") == "true",
		Methods:      parseMethods(getenv("CACHE_METHODS", "GET")),
		TTL:          clampTTL(parseDur(getenv("CACHE_TTL", "60s"))),
		KeyStrategy:  normalizeStrategy(getenv("CACHE_KEY_STRATEGY", "route_query")),
		Prefix:       getenv("CACHE_PREFIX", "cache"),
		MaxBodyBytes: clampBody(atoi(getenv("CACHE_MAX_BODY_BYTES", strconv.Itoa(cacheDefaultBody)))),
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}

func clampTTL(d time.Duration) time.Duration {
	switch {
	case d < cacheMinTTL:
		return cacheMinTTL
	case d > cacheMaxTTL:
		return cacheMaxTTL
	}
	return d
}

func clampBody(n int) int {
	if n < cacheMinBody {
		return cacheMinBody
	}
	return n
}

// The strategies the cache middleware knows how to key by.
func normalizeStrategy(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "route", "method_route", "method_route_query", "route_query":
		return s
	}
	return "route_query"
}

// Helper functions shared across the config package.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return cacheDefaultTTL
	}
	return d
}
