// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in priority
// order. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/ludograph/config.yaml",
	"/etc/ludograph/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load loads configuration with layered sources (highest priority last):
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envMappings maps flat environment variable names to koanf paths.
// Unmapped variables are ignored so unrelated environment noise cannot
// reach the config tree.
var envMappings = map[string]string{
	"storefront_base_url":       "storefront.base_url",
	"storefront_store_base_url": "storefront.store_base_url",
	"storefront_api_key":        "storefront.api_key",
	"owner_key":                 "storefront.owner_key",
	"storefront_country_code":   "storefront.country_code",
	"storefront_timeout":        "storefront.timeout",

	"store_path":        "store.path",
	"store_gc_interval": "store.gc_interval",

	"cache_games_ttl":    "cache.games_ttl",
	"cache_metadata_ttl": "cache.metadata_ttl",
	"cache_analysis_ttl": "cache.analysis_ttl",
	"cache_reviews_ttl":  "cache.reviews_ttl",
	"cache_l1_ttl":       "cache.l1_ttl",

	"fetcher_min_interval":  "fetcher.min_interval",
	"fetcher_retry_backoff": "fetcher.retry_backoff",
	"fetcher_max_retries":   "fetcher.max_retries",
	"fetcher_loop_delay":    "fetcher.loop_delay",
	"fetcher_batch_limit":   "fetcher.batch_limit",

	"collage_canvas_size":   "collage.canvas_size",
	"collage_min_height":    "collage.min_height",
	"collage_max_height":    "collage.max_height",
	"collage_aspect_ratio":  "collage.aspect_ratio",
	"collage_radius_step":   "collage.radius_step",
	"collage_base_samples":  "collage.base_samples",
	"collage_padding":       "collage.padding",
	"collage_header_height": "collage.header_height",

	"server_host":    "server.host",
	"server_port":    "server.port",
	"server_timeout": "server.timeout",

	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"admin_username":      "security.admin_username",
	"admin_password_hash": "security.admin_password_hash",
	"session_timeout":     "security.session_timeout",
	"rate_limit_reqs":     "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"cors_origins":        "security.cors_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps environment variable names to koanf paths.
// OWNER_KEY -> storefront.owner_key, LOG_LEVEL -> logging.level, etc.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// sliceConfigPaths lists config paths parsed as comma-separated slices
// when supplied via environment variables.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values into slices for
// known slice fields. Env vars arrive as plain strings but the config
// expects []string.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		if !k.Exists(path) {
			continue
		}

		raw := k.Get(path)
		str, ok := raw.(string)
		if !ok {
			continue // Already a slice (from defaults or YAML)
		}

		parts := strings.Split(str, ",")
		values := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				values = append(values, trimmed)
			}
		}

		if err := k.Set(path, values); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}
