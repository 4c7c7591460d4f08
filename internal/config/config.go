// Package config loads client settings from defaults, an optional YAML file
// and VV_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/and161185/vidvote/internal/errs"
)

// Store kinds.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config holds the client settings.
type Config struct {
	APIBaseURL         string        `mapstructure:"api_base_url"`
	Store              string        `mapstructure:"store"`
	StorePath          string        `mapstructure:"store_path"`
	RankingMode        string        `mapstructure:"ranking_mode"`
	PageSize           int           `mapstructure:"page_size"`
	RateLimit          float64       `mapstructure:"rate_limit"`
	RateBurst          int           `mapstructure:"rate_burst"`
	Timeout            time.Duration `mapstructure:"timeout"`
	RefreshConcurrency int           `mapstructure:"refresh_concurrency"`
	LogLevel           string        `mapstructure:"log_level"`
	LogFormat          string        `mapstructure:"log_format"`
}

// Dir returns $XDG_CONFIG_HOME/vidvote or ~/.config/vidvote.
func Dir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "vidvote")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "vidvote")
}

func defaults(v *viper.Viper) {
	v.SetDefault("api_base_url", "http://localhost:8080")
	v.SetDefault("store", StoreFile)
	v.SetDefault("store_path", Dir())
	v.SetDefault("ranking_mode", "server")
	v.SetDefault("page_size", 10)
	v.SetDefault("rate_limit", 0.0)
	v.SetDefault("rate_burst", 1)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("refresh_concurrency", 4)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
}

// Load reads the configuration. An explicit file must exist; otherwise
// config.yaml in Dir() is read when present.
func Load(file string) (*Config, error) {
	v := viper.New()
	defaults(v)
	v.SetEnvPrefix("VV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(Dir())
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &c, nil
}

// Validate checks the values that would otherwise fail later and less clearly.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: api_base_url %q is not an http(s) URL", errs.ErrValidation, c.APIBaseURL)
	}
	switch c.Store {
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("%w: unknown store %q", errs.ErrValidation, c.Store)
	}
	switch strings.ToLower(c.RankingMode) {
	case "server", "client":
	default:
		return fmt.Errorf("%w: unknown ranking_mode %q", errs.ErrValidation, c.RankingMode)
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("%w: page_size must be within 1..100, got %d", errs.ErrValidation, c.PageSize)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate_limit must not be negative", errs.ErrValidation)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", errs.ErrValidation)
	}
	return nil
}
