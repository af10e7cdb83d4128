package config

import (
	"testing"
	"time"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"DATABASE_URL": "",
	})
	if err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":         "postgres://localhost:5432/bundles",
		"REDIS_URL":            "",
		"LOG_LEVEL":            "",
		"LOG_FORMAT":           "",
		"METRICS_NAMESPACE":    "",
		"BUNDLE_CROSS_POOLING": "",
		"CATEGORY_CACHE_TTL":   "",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Fatalf("unexpected logging defaults: %s/%s", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.MetricsNamespace != "bundle_engine" {
		t.Fatalf("unexpected metrics namespace: %s", cfg.MetricsNamespace)
	}
	if cfg.CrossBundlePooling {
		t.Fatal("cross-bundle pooling must default to off")
	}
	if cfg.CategoryCacheTTL != 5*time.Minute {
		t.Fatalf("unexpected cache TTL default: %s", cfg.CategoryCacheTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":         "postgres://localhost:5432/bundles",
		"BUNDLE_CROSS_POOLING": "true",
		"CATEGORY_CACHE_TTL":   "30s",
		"LOG_LEVEL":            "debug",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.CrossBundlePooling {
		t.Fatal("expected cross-bundle pooling to be enabled")
	}
	if cfg.CategoryCacheTTL != 30*time.Second {
		t.Fatalf("unexpected cache TTL: %s", cfg.CategoryCacheTTL)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("unexpected log level: %s", cfg.LogLevel)
	}
}

func TestLoadBadDurationFallsBack(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":       "postgres://localhost:5432/bundles",
		"CATEGORY_CACHE_TTL": "not-a-duration",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CategoryCacheTTL != 5*time.Minute {
		t.Fatalf("expected fallback TTL, got %s", cfg.CategoryCacheTTL)
	}
}
