package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

const (
	DefaultBaseURL         = "https://www.daysahmedabad.com"
	DefaultTimeout         = 30 * time.Second
	DefaultDebounce        = 300 * time.Millisecond
	DefaultMaxSuggestions  = 8
	DefaultFuzzyThreshold  = 0.4
	DefaultRecentLimit     = 5
	DefaultRefreshInterval = 6 * time.Hour
	DefaultCacheTTL        = 10 * time.Minute
	DefaultListen          = "localhost:8787"
	DefaultUserAgent       = "suvidha"
	DefaultSampleRatio     = 1.0
)

type Config struct {
	StorageDir string        `toml:"storage_dir"`
	API        APIConfig     `toml:"api"`
	Search     SearchConfig  `toml:"search"`
	Catalog    CatalogConfig `toml:"catalog"`
	Cache      CacheConfig   `toml:"cache"`
	Server     ServerConfig  `toml:"server"`
	Tracing    TracingConfig `toml:"tracing"`
}

// APIConfig describes the remote directory API.
type APIConfig struct {
	BaseURL   string   `toml:"base_url"`
	Timeout   Duration `toml:"timeout"`
	UserAgent string   `toml:"user_agent"`
	// RateLimit is the maximum number of requests per second sent to the
	// API. Zero disables throttling.
	RateLimit float64 `toml:"rate_limit"`
	Burst     int     `toml:"burst"`
}

type SearchConfig struct {
	Debounce       Duration `toml:"debounce"`
	MaxSuggestions int      `toml:"max_suggestions"`
	FuzzyThreshold float64  `toml:"fuzzy_threshold"`
	RecentLimit    int      `toml:"recent_limit"`
}

type CatalogConfig struct {
	// Path points to a JSON catalog overriding the bundled one.
	Path string `toml:"path,omitempty"`
	// RefreshInterval controls how often the catalog is refetched from the
	// API while serving. Zero disables refreshing.
	RefreshInterval Duration `toml:"refresh_interval"`
}

// CacheConfig enables the Redis response cache when RedisAddr is set.
type CacheConfig struct {
	RedisAddr string   `toml:"redis_addr,omitempty"`
	RedisDB   int      `toml:"redis_db"`
	TTL       Duration `toml:"ttl"`
}

type ServerConfig struct {
	Listen string `toml:"listen"`
}

// TracingConfig enables OpenTelemetry spans for API requests and directory
// calls. Spans are written as JSON to Output, or stderr when it is empty.
type TracingConfig struct {
	Enabled     bool    `toml:"enabled"`
	Output      string  `toml:"output,omitempty"`
	SampleRatio float64 `toml:"sample_ratio"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func GetDefaultConfig() (*Config, error) {
	storageDir, err := GetDefaultStorageDir()
	if err != nil {
		return nil, fmt.Errorf("getting default storage directory: %w", err)
	}
	c := &Config{StorageDir: storageDir}
	c.applyDefaults()
	return c, nil
}

func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefaultConfig()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if config.StorageDir == "" {
		storageDir, err := GetDefaultStorageDir()
		if err != nil {
			return nil, fmt.Errorf("getting default storage directory: %w", err)
		}
		config.StorageDir = storageDir
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.Timeout.Duration == 0 {
		c.API.Timeout = Duration{DefaultTimeout}
	}
	if c.API.UserAgent == "" {
		c.API.UserAgent = DefaultUserAgent
	}
	if c.API.RateLimit > 0 && c.API.Burst <= 0 {
		c.API.Burst = 1
	}
	if c.Search.Debounce.Duration == 0 {
		c.Search.Debounce = Duration{DefaultDebounce}
	}
	if c.Search.MaxSuggestions <= 0 {
		c.Search.MaxSuggestions = DefaultMaxSuggestions
	}
	if c.Search.FuzzyThreshold <= 0 {
		c.Search.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if c.Search.RecentLimit <= 0 {
		c.Search.RecentLimit = DefaultRecentLimit
	}
	if c.Cache.TTL.Duration == 0 {
		c.Cache.TTL = Duration{DefaultCacheTTL}
	}
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
	if c.Tracing.SampleRatio <= 0 {
		c.Tracing.SampleRatio = DefaultSampleRatio
	}
}

// Validate rejects values that cannot be corrected by defaults.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must not be negative")
	}
	if c.Search.FuzzyThreshold > 1 {
		return fmt.Errorf("search.fuzzy_threshold must be between 0 and 1, got %v", c.Search.FuzzyThreshold)
	}
	if c.Catalog.RefreshInterval.Duration < 0 {
		return fmt.Errorf("catalog.refresh_interval must not be negative")
	}
	if c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be between 0 and 1, got %v", c.Tracing.SampleRatio)
	}
	return nil
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	template, err := c.generateConfigTemplate()
	if err != nil {
		return fmt.Errorf("generating config template: %w", err)
	}
	return os.WriteFile(configPath, []byte(template), 0644)
}

func (c *Config) generateConfigTemplate() (string, error) {
	storageDir := c.StorageDir
	if storageDir == "" {
		var err error
		storageDir, err = GetDefaultStorageDir()
		if err != nil {
			return "", fmt.Errorf("getting default storage directory: %w", err)
		}
	}

	// Replace the placeholder storage_dir with the actual path
	template := strings.Replace(configTemplate, "/home/user/.local/share/suvidha", storageDir, 1)
	return template, nil
}

// HistoryDBPath returns the path of the search history database.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.StorageDir, "history.db")
}

// GetDefaultStorageDir returns the default storage directory for databases
func GetDefaultStorageDir() (string, error) {
	// Use XDG_DATA_HOME if set, otherwise use ~/.local/share
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	dir := filepath.Join(dataDir, "suvidha")

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating storage directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetConfigDir returns the configuration directory for suvidha
func GetConfigDir() (string, error) {
	// Use XDG_CONFIG_HOME if set, otherwise use ~/.config
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	dir := filepath.Join(configDir, "suvidha")

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
