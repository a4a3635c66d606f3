// Package config loads the normalizer's runtime configuration from the
// environment and an optional .env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Registry document sources.
const (
	SourceDir      = "dir"
	SourceHTTP     = "http"
	SourcePostgres = "postgres"
)

type Config struct {
	Port          string `mapstructure:"PORT"`
	Env           string `mapstructure:"ENV"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`
	ManifestFile  string `mapstructure:"NORMALIZER_MANIFEST_FILE"`
	CacheTTLHours int    `mapstructure:"NORMALIZER_CACHE_TTL_HOURS"`
	Source        string `mapstructure:"NORMALIZER_SOURCE"`
	SourceDir     string `mapstructure:"NORMALIZER_SOURCE_DIR"`
	SourceURL     string `mapstructure:"NORMALIZER_SOURCE_URL"`
	SourceTable   string `mapstructure:"NORMALIZER_SOURCE_TABLE"`
	OverlayDir    string `mapstructure:"NORMALIZER_OVERLAY_DIR"`
	HTTPTimeout   int    `mapstructure:"NORMALIZER_HTTP_TIMEOUT_SECONDS"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32  `mapstructure:"DB_MAX_CONNS"`
	MirrorPath    string `mapstructure:"NORMALIZER_MIRROR_PATH"`
	WorkerCount   int    `mapstructure:"WORKER_COUNT"`
}

var keys = []string{
	"PORT",
	"ENV",
	"LOG_LEVEL",
	"NORMALIZER_MANIFEST_FILE",
	"NORMALIZER_CACHE_TTL_HOURS",
	"NORMALIZER_SOURCE",
	"NORMALIZER_SOURCE_DIR",
	"NORMALIZER_SOURCE_URL",
	"NORMALIZER_SOURCE_TABLE",
	"NORMALIZER_OVERLAY_DIR",
	"NORMALIZER_HTTP_TIMEOUT_SECONDS",
	"DATABASE_URL",
	"DB_MAX_CONNS",
	"NORMALIZER_MIRROR_PATH",
	"WORKER_COUNT",
}

// Load reads the configuration. The .env file is optional.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile reads the configuration with envFile as the optional dotenv file.
// Environment variables take precedence over the file.
func LoadFile(envFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("NORMALIZER_MANIFEST_FILE", "manifest.json")
	v.SetDefault("NORMALIZER_CACHE_TTL_HOURS", 12)
	v.SetDefault("NORMALIZER_SOURCE", SourceDir)
	v.SetDefault("NORMALIZER_SOURCE_DIR", "registry")
	v.SetDefault("NORMALIZER_SOURCE_TABLE", "normalization_documents")
	v.SetDefault("NORMALIZER_HTTP_TIMEOUT_SECONDS", 30)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("WORKER_COUNT", 0)

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// a missing .env is fine
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Source = strings.ToLower(strings.TrimSpace(cfg.Source))

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// CacheTTL returns the registry freshness window.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// HTTPTimeoutDuration returns the registry fetch timeout for the http source.
func (c *Config) HTTPTimeoutDuration() time.Duration {
	return time.Duration(c.HTTPTimeout) * time.Second
}

// Validate checks the fields required by the selected source.
func (c *Config) Validate() error {
	if c.ManifestFile == "" {
		return fmt.Errorf("NORMALIZER_MANIFEST_FILE must not be empty")
	}
	if c.CacheTTLHours <= 0 {
		return fmt.Errorf("NORMALIZER_CACHE_TTL_HOURS must be positive, got %d", c.CacheTTLHours)
	}
	if c.WorkerCount < 0 {
		return fmt.Errorf("WORKER_COUNT must not be negative, got %d", c.WorkerCount)
	}

	switch c.Source {
	case SourceDir:
		if c.SourceDir == "" {
			return fmt.Errorf("NORMALIZER_SOURCE_DIR is required when NORMALIZER_SOURCE is %q", SourceDir)
		}
	case SourceHTTP:
		if c.SourceURL == "" {
			return fmt.Errorf("NORMALIZER_SOURCE_URL is required when NORMALIZER_SOURCE is %q", SourceHTTP)
		}
		if !strings.HasPrefix(c.SourceURL, "http://") && !strings.HasPrefix(c.SourceURL, "https://") {
			return fmt.Errorf("NORMALIZER_SOURCE_URL must be an http(s) URL, got %q", c.SourceURL)
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when NORMALIZER_SOURCE is %q", SourcePostgres)
		}
		if c.SourceTable == "" {
			return fmt.Errorf("NORMALIZER_SOURCE_TABLE must not be empty")
		}
	default:
		return fmt.Errorf("NORMALIZER_SOURCE must be %q, %q or %q, got %q", SourceDir, SourceHTTP, SourcePostgres, c.Source)
	}

	return nil
}
