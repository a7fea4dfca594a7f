// Package config provides configuration loading for the resolver using Viper.
// Configuration is loaded from an optional YAML file with automatic
// environment variable binding.
//
// Environment variables use the PARQ_ prefix and underscore-separated keys:
//   - PARQ_ENGINE_MAX_SERVERS -> engine.max_servers
//   - PARQ_ENGINE_MAX_TIMEOUT -> engine.max_timeout
//   - PARQ_RESOLVERS_SERVERS -> resolvers.servers (comma-separated)
//   - PARQ_LOGGING_LEVEL -> logging.level
package config

import (
	"strings"
	"time"
)

// EngineConfig holds the resolver engine's tunables (spec §6).
type EngineConfig struct {
	MaxServers      int    `yaml:"max_servers"       mapstructure:"max_servers"`
	MaxRetries      int    `yaml:"max_retries"       mapstructure:"max_retries"`
	MaxTimeoutRaw   string `yaml:"max_timeout"       mapstructure:"max_timeout"`
	RetryTimeoutRaw string `yaml:"retry_timeout"     mapstructure:"retry_timeout"`
	MaxTimeout      time.Duration `yaml:"-" mapstructure:"-"`
	RetryTimeout    time.Duration `yaml:"-" mapstructure:"-"`
}

// ResolversConfig controls where the engine's endpoint list comes from.
type ResolversConfig struct {
	// Servers, if non-empty, overrides resolv.conf entirely.
	Servers []string `yaml:"servers" mapstructure:"servers"`
	// ResolvConfPath is the path parsed when Servers is empty.
	ResolvConfPath string `yaml:"resolv_conf_path" mapstructure:"resolv_conf_path"`
}

// LoggingConfig contains logging settings, unchanged in shape from the
// reference project's own logging config.
type LoggingConfig struct {
	Level            string            `yaml:"level"             mapstructure:"level"`
	Structured       bool              `yaml:"structured"        mapstructure:"structured"`
	StructuredFormat string            `yaml:"structured_format" mapstructure:"structured_format"`
	IncludePID       bool              `yaml:"include_pid"       mapstructure:"include_pid"`
	ExtraFields      map[string]string `yaml:"extra_fields"      mapstructure:"extra_fields"`
}

// HistoryConfig controls the optional SQLite resolution audit trail.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path"    mapstructure:"path"`
}

// APIConfig controls the optional diagnostics HTTP service.
type APIConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Host    string `yaml:"host"    mapstructure:"host"`
	Port    int    `yaml:"port"    mapstructure:"port"`
}

// Config is the root configuration structure.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"    mapstructure:"engine"`
	Resolvers ResolversConfig `yaml:"resolvers" mapstructure:"resolvers"`
	Logging   LoggingConfig   `yaml:"logging"   mapstructure:"logging"`
	History   HistoryConfig   `yaml:"history"   mapstructure:"history"`
	API       APIConfig       `yaml:"api"       mapstructure:"api"`
}

// Load loads configuration from an optional YAML file with environment
// variable and default overrides. This is the main entry point.
//
// Priority (highest to lowest):
//  1. Environment variables (PARQ_*)
//  2. Config file values
//  3. Hardcoded defaults
func Load(path string) (*Config, error) {
	return loadFromSource(path)
}

// parseDuration parses a duration string, falling back to def on empty/invalid input.
func parseDuration(raw string, def time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return def
}

// parseServerList cleans up a list of resolver addresses, stripping any
// ":port" suffix (cmd/parq and cmd/parqd reach every configured server on
// port 53).
func parseServerList(servers []string) []string {
	result := make([]string, 0, len(servers))
	for _, s := range servers {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if h, _, ok := strings.Cut(s, ":"); ok {
			s = h
		}
		result = append(result, s)
	}
	return result
}

// clampPositiveInt returns def when raw is non-positive.
func clampPositiveInt(raw, def int) int {
	if raw <= 0 {
		return def
	}
	return raw
}
