package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.BaseURL != DefaultBaseURL {
		t.Errorf("base url = %q, want %q", cfg.API.BaseURL, DefaultBaseURL)
	}
	if cfg.Search.Debounce.Duration != DefaultDebounce {
		t.Errorf("debounce = %v, want %v", cfg.Search.Debounce, DefaultDebounce)
	}
	if cfg.Search.MaxSuggestions != 8 {
		t.Errorf("max suggestions = %d, want 8", cfg.Search.MaxSuggestions)
	}
	if !strings.HasSuffix(cfg.StorageDir, "suvidha") {
		t.Errorf("storage dir = %q", cfg.StorageDir)
	}
}

func TestLoadConfigParsesSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
storage_dir = "` + filepath.ToSlash(dir) + `"

[api]
base_url = "http://localhost:9000/"
timeout = "5s"
rate_limit = 2.5

[search]
debounce = "150ms"
recent_limit = 10

[catalog]
refresh_interval = "1h"

[cache]
redis_addr = "localhost:6379"
ttl = "1m"

[tracing]
enabled = true
output = "/tmp/traces.jsonl"
sample_ratio = 0.25
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.API.BaseURL != "http://localhost:9000" {
		t.Errorf("base url = %q, trailing slash should be trimmed", cfg.API.BaseURL)
	}
	if cfg.API.Timeout.Duration != 5*time.Second {
		t.Errorf("timeout = %v", cfg.API.Timeout)
	}
	if cfg.API.RateLimit != 2.5 || cfg.API.Burst != 1 {
		t.Errorf("rate limit = %v burst = %d", cfg.API.RateLimit, cfg.API.Burst)
	}
	if cfg.Search.Debounce.Duration != 150*time.Millisecond {
		t.Errorf("debounce = %v", cfg.Search.Debounce)
	}
	if cfg.Search.RecentLimit != 10 {
		t.Errorf("recent limit = %d", cfg.Search.RecentLimit)
	}
	if cfg.Search.FuzzyThreshold != DefaultFuzzyThreshold {
		t.Errorf("fuzzy threshold = %v", cfg.Search.FuzzyThreshold)
	}
	if cfg.Catalog.RefreshInterval.Duration != time.Hour {
		t.Errorf("refresh interval = %v", cfg.Catalog.RefreshInterval)
	}
	if cfg.Cache.RedisAddr != "localhost:6379" || cfg.Cache.TTL.Duration != time.Minute {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.Output != "/tmp/traces.jsonl" || cfg.Tracing.SampleRatio != 0.25 {
		t.Errorf("tracing = %+v", cfg.Tracing)
	}
	if cfg.HistoryDBPath() != filepath.Join(filepath.FromSlash(filepath.ToSlash(dir)), "history.db") {
		t.Errorf("history db path = %q", cfg.HistoryDBPath())
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad base url", "[api]\nbase_url = \"ftp://example.com\"\n"},
		{"negative rate", "[api]\nrate_limit = -1.0\n"},
		{"threshold above one", "[search]\nfuzzy_threshold = 1.5\n"},
		{"bad duration", "[search]\ndebounce = \"soon\"\n"},
		{"sample ratio above one", "[tracing]\nsample_ratio = 2.0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.toml")
			data := "storage_dir = \"" + filepath.ToSlash(dir) + "\"\n" + tt.data
			if err := os.WriteFile(path, []byte(data), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestSaveTemplateConfigRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.toml")

	cfg := &Config{StorageDir: filepath.ToSlash(dir)}
	if err := cfg.SaveTemplateConfig(path); err != nil {
		t.Fatalf("SaveTemplateConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.StorageDir != filepath.ToSlash(dir) {
		t.Errorf("storage dir = %q, want %q", loaded.StorageDir, dir)
	}
	if loaded.Catalog.RefreshInterval.Duration != 6*time.Hour {
		t.Errorf("refresh interval = %v", loaded.Catalog.RefreshInterval)
	}
	if loaded.Tracing.Enabled || loaded.Tracing.SampleRatio != DefaultSampleRatio {
		t.Errorf("tracing should be off in the template, got %+v", loaded.Tracing)
	}
	if loaded.Cache.RedisAddr != "" {
		t.Errorf("redis should be disabled in the template, got %q", loaded.Cache.RedisAddr)
	}
}
