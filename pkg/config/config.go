package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all llmemo configuration.
type Config struct {
	Model         string         `yaml:"model"`
	Endpoint      string         `yaml:"endpoint"`
	Listen        string         `yaml:"listen"`
	StatusTimeout time.Duration  `yaml:"status_timeout"`
	Variants      VariantsConfig `yaml:"variants"`
	Cache         CacheConfig    `yaml:"cache"`
	History       HistoryConfig  `yaml:"history"`
	Log           LogConfig      `yaml:"log"`
	Batch         BatchConfig    `yaml:"batch"`
}

// VariantsConfig holds the generation parameters of each request variant.
type VariantsConfig struct {
	Normal VariantConfig `yaml:"normal"`
	Fast   VariantConfig `yaml:"fast"`
}

// VariantConfig defines sampling parameters and the backend timeout for one variant.
type VariantConfig struct {
	Temperature float64       `yaml:"temperature"`
	NumPredict  int           `yaml:"num_predict"`
	Timeout     time.Duration `yaml:"timeout"`
}

// CacheConfig controls the in-memory response cache.
type CacheConfig struct {
	Enabled          bool          `yaml:"enabled"`
	TTL              time.Duration `yaml:"ttl"`
	MaxEntries       int           `yaml:"max_entries"`
	CleanupInterval  time.Duration `yaml:"cleanup_interval"`
	AutoEvict        bool          `yaml:"auto_evict"`
	KeyHash          string        `yaml:"key_hash"` // "sha256" or "xxhash"
	SeparateVariants bool          `yaml:"separate_variants"`
	SingleFlight     bool          `yaml:"single_flight"`
}

// HistoryConfig controls the SQLite ask journal.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
	Keep    int    `yaml:"keep"`
}

// LogConfig selects the logging backend.
type LogConfig struct {
	Backend string `yaml:"backend"` // "zap", "logrus" or "zerolog"
	Level   string `yaml:"level"`
	Format  string `yaml:"format"` // "json" or "console"
}

// BatchConfig bounds concurrent batch asks.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Model:         "codellama:7b-code-q4_K_M",
		Endpoint:      "http://localhost:11434",
		Listen:        ":8088",
		StatusTimeout: 5 * time.Second,
		Variants: VariantsConfig{
			Normal: VariantConfig{Temperature: 0.7, NumPredict: 100, Timeout: 30 * time.Second},
			Fast:   VariantConfig{Temperature: 0.1, NumPredict: 20, Timeout: 10 * time.Second},
		},
		Cache: CacheConfig{
			Enabled:         true,
			TTL:             time.Hour,
			MaxEntries:      1000,
			CleanupInterval: 5 * time.Minute,
			AutoEvict:       true,
			KeyHash:         "sha256",
		},
		History: HistoryConfig{
			Enabled: false,
			DBPath:  "llmemo.db",
			Keep:    1000,
		},
		Log: LogConfig{
			Backend: "zap",
			Level:   "info",
			Format:  "json",
		},
		Batch: BatchConfig{
			Concurrency: 4,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path, or returns Default when path is empty.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Validate rejects settings the rest of the system cannot run with.
func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("config: model is required")
	}
	if c.Endpoint == "" {
		return fmt.Errorf("config: endpoint is required")
	}
	switch c.Cache.KeyHash {
	case "sha256", "xxhash":
	default:
		return fmt.Errorf("config: unknown cache.key_hash %q", c.Cache.KeyHash)
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("config: cache.max_entries must be positive, got %d", c.Cache.MaxEntries)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("config: cache.ttl must be positive, got %v", c.Cache.TTL)
	}
	switch c.Log.Backend {
	case "zap", "logrus", "zerolog":
	default:
		return fmt.Errorf("config: unknown log.backend %q", c.Log.Backend)
	}
	if c.Batch.Concurrency <= 0 {
		return fmt.Errorf("config: batch.concurrency must be positive, got %d", c.Batch.Concurrency)
	}
	return nil
}
