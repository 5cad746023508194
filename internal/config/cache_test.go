package config

import (
	"testing"
	"time"
)

func TestLoadCacheConfigClampsAndNormalizes(t *testing.T) {
	t.Setenv("CACHE_TTL", "1h")
	t.Setenv("CACHE_KEY_STRATEGY", "by_cookie")
	t.Setenv("CACHE_MAX_BODY_BYTES", "10")

	cfg := LoadCacheConfig()
	if cfg.TTL != cacheMaxTTL {
		t.Errorf("TTL = %v, want clamped to %v", cfg.TTL, cacheMaxTTL)
	}
	if cfg.KeyStrategy != "route_query" {
		t.Errorf("KeyStrategy = %q, want fallback route_query", cfg.KeyStrategy)
	}
	if cfg.MaxBodyBytes != cacheMinBody {
		t.Errorf("MaxBodyBytes = %d, want clamped to %d", cfg.MaxBodyBytes, cacheMinBody)
	}
}

func TestLoadCacheConfigDefaults(t *testing.T) {
	t.Setenv("CACHE_TTL", "")
	t.Setenv("CACHE_KEY_STRATEGY", "")
	t.Setenv("CACHE_MAX_BODY_BYTES", "")

	cfg := LoadCacheConfig()
	if !cfg.Enabled {
		t.Error("cache should be enabled by default")
	}
	if cfg.TTL != 60*time.Second {
		t.Errorf("TTL = %v, want 60s default", cfg.TTL)
	}
	if !cfg.Methods["GET"] {
		t.Error("GET should be cached by default")
	}
	if cfg.KeyStrategy != "route_query" {
		t.Errorf("KeyStrategy = %q, want route_query", cfg.KeyStrategy)
	}
}

func TestNormalizeStrategyKeepsKnownValues(t *testing.T) {
	for _, s := range []string{"route", "method_route", "method_route_query", "route_query"} {
		if got := normalizeStrategy("  " + s + "  "); got != s {
			t.Errorf("normalizeStrategy(%q) = %q, want %q", s, got, s)
		}
	}
}
