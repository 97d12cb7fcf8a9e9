// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

// Package config loads and validates server configuration using Koanf v2
// with layered sources: built-in defaults, an optional YAML config file,
// and environment variables (highest priority).
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration for the Ludograph server.
type Config struct {
	Storefront StorefrontConfig `koanf:"storefront"`
	Store      StoreConfig      `koanf:"store"`
	Cache      CacheConfig      `koanf:"cache"`
	Fetcher    FetcherConfig    `koanf:"fetcher"`
	Collage    CollageConfig    `koanf:"collage"`
	Server     ServerConfig     `koanf:"server"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// StorefrontConfig configures access to the remote storefront API.
type StorefrontConfig struct {
	// BaseURL is the community API host serving library and review data.
	BaseURL string `koanf:"base_url"`

	// StoreBaseURL is the store API host serving per-item metadata.
	StoreBaseURL string `koanf:"store_base_url"`

	// APIKey authenticates library endpoint calls.
	APIKey string `koanf:"api_key"`

	// OwnerKey is the library owner identifier this instance serves.
	OwnerKey string `koanf:"owner_key"`

	// CountryCode selects the store region for price lookups.
	CountryCode string `koanf:"country_code"`

	// AnalysisURL is the optional analysis-generation endpoint. Empty
	// disables the analysis feature.
	AnalysisURL string `koanf:"analysis_url"`

	// Timeout bounds every HTTP request to the storefront.
	Timeout time.Duration `koanf:"timeout"`
}

// StoreConfig configures the durable BadgerDB store.
type StoreConfig struct {
	// Path is the BadgerDB directory. Empty selects in-memory mode
	// (used by tests).
	Path string `koanf:"path"`

	// GCInterval is how often the value-log garbage collector runs.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// CacheConfig holds per-collection TTLs and L1 sizing.
type CacheConfig struct {
	GamesTTL    time.Duration `koanf:"games_ttl"`
	MetadataTTL time.Duration `koanf:"metadata_ttl"`
	AnalysisTTL time.Duration `koanf:"analysis_ttl"`
	ReviewsTTL  time.Duration `koanf:"reviews_ttl"`

	// L1TTL bounds the in-memory metadata tier; it is deliberately much
	// shorter than MetadataTTL since the durable tier is authoritative.
	L1TTL time.Duration `koanf:"l1_ttl"`
}

// FetcherConfig tunes the rate-limited sequential fetcher.
type FetcherConfig struct {
	// MinInterval is the minimum gap between consecutive storefront
	// requests. The upstream throttles aggressively below ~0.5s.
	MinInterval time.Duration `koanf:"min_interval"`

	// RetryBackoff is the initial backoff after a throttling response;
	// it doubles per retry.
	RetryBackoff time.Duration `koanf:"retry_backoff"`

	// MaxRetries is the number of additional attempts after a throttled
	// request.
	MaxRetries int `koanf:"max_retries"`

	// LoopDelay is the extra delay inserted between enrichment loop
	// iterations, independent of the rate limiter.
	LoopDelay time.Duration `koanf:"loop_delay"`

	// BatchLimit caps how many items a single enrichment call may carry.
	BatchLimit int `koanf:"batch_limit"`
}

// CollageConfig holds the tuned constants of the spiral layout engine.
// The step size and sample count have no derivation beyond looking good;
// correctness is defined by the overlap-free property, not exact placement.
type CollageConfig struct {
	CanvasSize   float64 `koanf:"canvas_size"`
	MinHeight    float64 `koanf:"min_height"`
	MaxHeight    float64 `koanf:"max_height"`
	AspectRatio  float64 `koanf:"aspect_ratio"`
	RadiusStep   float64 `koanf:"radius_step"`
	BaseSamples  int     `koanf:"base_samples"`
	Padding      float64 `koanf:"padding"`
	HeaderHeight float64 `koanf:"header_height"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// SecurityConfig configures API authentication.
type SecurityConfig struct {
	// AuthMode is "jwt" or "none". "none" is for development only.
	AuthMode string `koanf:"auth_mode"`

	// JWTSecret signs session tokens. Required for jwt mode, 32+ chars.
	JWTSecret string `koanf:"jwt_secret"`

	// AdminUsername and AdminPasswordHash (bcrypt) gate login.
	AdminUsername     string `koanf:"admin_username"`
	AdminPasswordHash string `koanf:"admin_password_hash"`

	// SessionTimeout bounds issued token lifetime.
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// RateLimitReqs / RateLimitWindow throttle API clients.
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// CORSOrigins lists allowed origins for the dashboard front end.
	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig configures the zerolog global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all defaults applied. Defaults are
// loaded first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Storefront: StorefrontConfig{
			BaseURL:      "https://api.steampowered.com",
			StoreBaseURL: "https://store.steampowered.com",
			CountryCode:  "US",
			Timeout:      30 * time.Second,
		},
		Store: StoreConfig{
			Path:       "/data/ludograph",
			GCInterval: 10 * time.Minute,
		},
		Cache: CacheConfig{
			GamesTTL:    30 * time.Minute,
			MetadataTTL: 30 * 24 * time.Hour,
			AnalysisTTL: 7 * 24 * time.Hour,
			ReviewsTTL:  24 * time.Hour,
			L1TTL:       5 * time.Minute,
		},
		Fetcher: FetcherConfig{
			MinInterval:  time.Second,
			RetryBackoff: 2 * time.Second,
			MaxRetries:   2,
			LoopDelay:    100 * time.Millisecond,
			BatchLimit:   100,
		},
		Collage: CollageConfig{
			CanvasSize:   4000,
			MinHeight:    50,
			MaxHeight:    250,
			AspectRatio:  0.675, // Portrait capsule art
			RadiusStep:   40,
			BaseSamples:  12,
			Padding:      20,
			HeaderHeight: 0,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8480,
			Timeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AuthMode:        "jwt",
			SessionTimeout:  24 * time.Hour,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	if err := c.validateStorefront(); err != nil {
		return err
	}
	if err := c.validateFetcher(); err != nil {
		return err
	}
	if err := c.validateCollage(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateStorefront() error {
	if c.Storefront.OwnerKey == "" {
		return fmt.Errorf("storefront.owner_key is required (set OWNER_KEY)")
	}
	if c.Storefront.BaseURL == "" || c.Storefront.StoreBaseURL == "" {
		return fmt.Errorf("storefront base URLs must not be empty")
	}
	if c.Storefront.Timeout <= 0 {
		return fmt.Errorf("storefront.timeout must be positive, got %v", c.Storefront.Timeout)
	}
	return nil
}

func (c *Config) validateFetcher() error {
	if c.Fetcher.MinInterval < 100*time.Millisecond {
		return fmt.Errorf("fetcher.min_interval %v is below the 100ms floor", c.Fetcher.MinInterval)
	}
	if c.Fetcher.MaxRetries < 0 {
		return fmt.Errorf("fetcher.max_retries must not be negative")
	}
	if c.Fetcher.BatchLimit <= 0 {
		return fmt.Errorf("fetcher.batch_limit must be positive, got %d", c.Fetcher.BatchLimit)
	}
	return nil
}

func (c *Config) validateCollage() error {
	if c.Collage.MinHeight <= 0 || c.Collage.MaxHeight < c.Collage.MinHeight {
		return fmt.Errorf("collage heights invalid: min %v max %v", c.Collage.MinHeight, c.Collage.MaxHeight)
	}
	if c.Collage.AspectRatio <= 0 {
		return fmt.Errorf("collage.aspect_ratio must be positive")
	}
	if c.Collage.RadiusStep <= 0 || c.Collage.BaseSamples <= 0 {
		return fmt.Errorf("collage spiral parameters must be positive")
	}
	if c.Collage.CanvasSize < 2*c.Collage.MaxHeight {
		return fmt.Errorf("collage.canvas_size %v too small for max_height %v", c.Collage.CanvasSize, c.Collage.MaxHeight)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	switch c.Security.AuthMode {
	case "none":
		return nil
	case "jwt":
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("security.jwt_secret must be at least 32 characters in jwt mode")
		}
		if c.Security.AdminUsername == "" || c.Security.AdminPasswordHash == "" {
			return fmt.Errorf("security.admin_username and admin_password_hash are required in jwt mode")
		}
		return nil
	default:
		return fmt.Errorf("security.auth_mode must be jwt or none, got %q", c.Security.AuthMode)
	}
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled", "":
	default:
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console", "":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
