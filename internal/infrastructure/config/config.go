package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server" yaml:"server"`
	Logging   LogConfig       `toml:"logging" yaml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit" yaml:"rate_limit"`
	Feed      FeedConfig      `toml:"feed" yaml:"feed"`
	Generator GeneratorConfig `toml:"generator" yaml:"generator"`
	Storage   StorageConfig   `toml:"storage" yaml:"storage"`
	Seed      SeedConfig      `toml:"seed" yaml:"seed"`
	Sandbox   SandboxConfig   `toml:"sandbox" yaml:"sandbox"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string   `envconfig:"PORT" toml:"port" yaml:"port"`
	Host            string   `envconfig:"HOST" toml:"host" yaml:"host"`
	ShutdownTimeout Duration `envconfig:"SHUTDOWN_TIMEOUT" toml:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" toml:"level" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" toml:"development" yaml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" toml:"requests_per_second" yaml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" toml:"burst" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" toml:"enabled" yaml:"enabled"`
}

// FeedConfig holds feed listing and publishing rules.
type FeedConfig struct {
	DefaultPageSize  int     `envconfig:"FEED_PAGE_SIZE" toml:"default_page_size" yaml:"default_page_size"`
	MaxPageSize      int     `envconfig:"FEED_MAX_PAGE_SIZE" toml:"max_page_size" yaml:"max_page_size"`
	PublishThreshold float64 `envconfig:"FEED_PUBLISH_THRESHOLD" toml:"publish_threshold" yaml:"publish_threshold"`
	CurrentUserID    string  `envconfig:"FEED_CURRENT_USER" toml:"current_user" yaml:"current_user"`
}

// GeneratorConfig selects and configures the app generator.
type GeneratorConfig struct {
	Provider     string   `envconfig:"GENERATOR_PROVIDER" toml:"provider" yaml:"provider"`
	Model        string   `envconfig:"GENERATOR_MODEL" toml:"model" yaml:"model"`
	AnthropicKey string   `envconfig:"ANTHROPIC_API_KEY" toml:"-" yaml:"-"`
	OpenAIKey    string   `envconfig:"OPENAI_API_KEY" toml:"-" yaml:"-"`
	BaseURL      string   `envconfig:"GENERATOR_BASE_URL" toml:"base_url" yaml:"base_url"`
	MaxTokens    int      `envconfig:"GENERATOR_MAX_TOKENS" toml:"max_tokens" yaml:"max_tokens"`
	Temperature  float32  `envconfig:"GENERATOR_TEMPERATURE" toml:"temperature" yaml:"temperature"`
	Timeout      Duration `envconfig:"GENERATOR_TIMEOUT" toml:"timeout" yaml:"timeout"`
}

// StorageConfig selects the data store.
type StorageConfig struct {
	Backend string `envconfig:"STORAGE_BACKEND" toml:"backend" yaml:"backend"`
	Path    string `envconfig:"STORAGE_PATH" toml:"path" yaml:"path"`
}

// SeedConfig controls loading of demo content on startup.
type SeedConfig struct {
	Enabled bool   `envconfig:"SEED_ENABLED" toml:"enabled" yaml:"enabled"`
	Dir     string `envconfig:"SEED_DIR" toml:"dir" yaml:"dir"`
}

// SandboxConfig holds sandbox document and preflight settings.
type SandboxConfig struct {
	ReadyTimeout     Duration `envconfig:"SANDBOX_READY_TIMEOUT" toml:"ready_timeout" yaml:"ready_timeout"`
	PreflightTimeout Duration `envconfig:"SANDBOX_PREFLIGHT_TIMEOUT" toml:"preflight_timeout" yaml:"preflight_timeout"`
	PoolSize         int      `envconfig:"SANDBOX_POOL_SIZE" toml:"pool_size" yaml:"pool_size"`
	SessionTTL       Duration `envconfig:"SANDBOX_SESSION_TTL" toml:"session_ttl" yaml:"session_ttl"`
	// TargetOrigin is the frontend origin sandbox bridges post to; empty means "*"
	TargetOrigin     string   `envconfig:"SANDBOX_TARGET_ORIGIN" toml:"target_origin" yaml:"target_origin"`
}

// Duration is a time.Duration that decodes from strings like "1m30s" in
// environment variables, TOML and YAML alike.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load loads configuration: defaults, then the optional CONFIG_FILE, then
// environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.MergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// MergeFile overlays a TOML or YAML file onto the configuration.
// Keys missing from the file keep their current value.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, c)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		return fmt.Errorf("unsupported config file format: %s", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "badger":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Generator.Provider {
	case "mock", "anthropic", "openai":
	default:
		return fmt.Errorf("unknown generator provider %q", c.Generator.Provider)
	}

	if c.Feed.DefaultPageSize < 1 || c.Feed.MaxPageSize < c.Feed.DefaultPageSize {
		return fmt.Errorf("invalid feed page sizes: default=%d max=%d", c.Feed.DefaultPageSize, c.Feed.MaxPageSize)
	}
	if c.Feed.PublishThreshold < 0 || c.Feed.PublishThreshold > 1 {
		return fmt.Errorf("feed publish threshold must be within [0,1], got %v", c.Feed.PublishThreshold)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Host:            "0.0.0.0",
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Feed: FeedConfig{
			DefaultPageSize:  10,
			MaxPageSize:      50,
			PublishThreshold: 0.5,
			CurrentUserID:    "current-user",
		},
		Generator: GeneratorConfig{
			Provider:    "mock",
			MaxTokens:   4000,
			Temperature: 0.7,
			Timeout:     Duration(60 * time.Second),
		},
		Storage: StorageConfig{
			Backend: "memory",
			Path:    "/tmp/appfeed-data",
		},
		Seed: SeedConfig{
			Enabled: true,
		},
		Sandbox: SandboxConfig{
			ReadyTimeout:     Duration(10 * time.Second),
			PreflightTimeout: Duration(2 * time.Second),
			PoolSize:         4,
			SessionTTL:       Duration(30 * time.Minute),
		},
	}
}
