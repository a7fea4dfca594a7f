// Package config provides configuration loading and validation for the
// parallel-query resolver.
//
// Configuration is loaded with the following priority (highest to lowest):
//  1. Command-line flags (not handled here, see cmd/parq/main.go)
//  2. Environment variables (PARQ_* prefix)
//  3. YAML config file (if specified with --config)
//  4. Hardcoded defaults
//
// All configuration is validated during Load() to ensure correctness early.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultMaxServers   = 8
	defaultMaxRetries   = 1
	defaultMaxTimeout   = 500 * time.Millisecond
	defaultRetryTimeout = 300 * time.Millisecond
)

// initConfig sets up the config loader with defaults, env binding, and config file.
func initConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	// PARQ_ENGINE_MAX_SERVERS -> engine.max_servers
	v.SetEnvPrefix("PARQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.max_servers", defaultMaxServers)
	v.SetDefault("engine.max_retries", defaultMaxRetries)
	v.SetDefault("engine.max_timeout", defaultMaxTimeout.String())
	v.SetDefault("engine.retry_timeout", defaultRetryTimeout.String())

	v.SetDefault("resolvers.servers", []string{})
	v.SetDefault("resolvers.resolv_conf_path", "/etc/resolv.conf")

	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.structured", false)
	v.SetDefault("logging.structured_format", "json")
	v.SetDefault("logging.include_pid", false)
	v.SetDefault("logging.extra_fields", map[string]string{})

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.path", "parq-history.db")

	v.SetDefault("api.enabled", false)
	v.SetDefault("api.host", "127.0.0.1")
	v.SetDefault("api.port", 8053)
}

// loadFromSource loads configuration from file and environment.
func loadFromSource(configPath string) (*Config, error) {
	v, err := initConfig(configPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}

	loadEngineConfig(v, cfg)
	loadResolversConfig(v, cfg)
	loadLoggingConfig(v, cfg)
	loadHistoryConfig(v, cfg)
	loadAPIConfig(v, cfg)

	if err := normalizeConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadEngineConfig(v *viper.Viper, cfg *Config) {
	cfg.Engine.MaxServers = clampPositiveInt(v.GetInt("engine.max_servers"), defaultMaxServers)
	cfg.Engine.MaxRetries = v.GetInt("engine.max_retries")
	cfg.Engine.MaxTimeoutRaw = v.GetString("engine.max_timeout")
	cfg.Engine.RetryTimeoutRaw = v.GetString("engine.retry_timeout")
	cfg.Engine.MaxTimeout = parseDuration(cfg.Engine.MaxTimeoutRaw, defaultMaxTimeout)
	cfg.Engine.RetryTimeout = parseDuration(cfg.Engine.RetryTimeoutRaw, defaultRetryTimeout)
}

func loadResolversConfig(v *viper.Viper, cfg *Config) {
	// An environment override arrives as one comma-separated string.
	if s, ok := v.Get("resolvers.servers").(string); ok {
		cfg.Resolvers.Servers = parseServerList(strings.Split(s, ","))
	} else {
		cfg.Resolvers.Servers = parseServerList(v.GetStringSlice("resolvers.servers"))
	}
	cfg.Resolvers.ResolvConfPath = v.GetString("resolvers.resolv_conf_path")
}

func loadLoggingConfig(v *viper.Viper, cfg *Config) {
	cfg.Logging.Level = strings.ToUpper(v.GetString("logging.level"))
	cfg.Logging.Structured = v.GetBool("logging.structured")
	cfg.Logging.StructuredFormat = v.GetString("logging.structured_format")
	cfg.Logging.IncludePID = v.GetBool("logging.include_pid")
	cfg.Logging.ExtraFields = v.GetStringMapString("logging.extra_fields")
}

func loadHistoryConfig(v *viper.Viper, cfg *Config) {
	cfg.History.Enabled = v.GetBool("history.enabled")
	cfg.History.Path = v.GetString("history.path")
}

func loadAPIConfig(v *viper.Viper, cfg *Config) {
	cfg.API.Enabled = v.GetBool("api.enabled")
	cfg.API.Host = v.GetString("api.host")
	cfg.API.Port = v.GetInt("api.port")
}

// normalizeConfig validates and normalizes the configuration.
func normalizeConfig(cfg *Config) error {
	if cfg.Engine.MaxServers <= 0 {
		return errors.New("engine.max_servers must be positive")
	}
	if cfg.Engine.MaxRetries < 0 {
		return errors.New("engine.max_retries must be >= 0")
	}
	if cfg.Engine.MaxTimeout <= 0 {
		return errors.New("engine.max_timeout must be positive")
	}
	if cfg.Engine.RetryTimeout <= 0 {
		return errors.New("engine.retry_timeout must be positive")
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	if cfg.Logging.StructuredFormat == "" {
		cfg.Logging.StructuredFormat = "json"
	}
	if cfg.Logging.ExtraFields == nil {
		cfg.Logging.ExtraFields = map[string]string{}
	}

	if cfg.History.Path == "" {
		cfg.History.Path = "parq-history.db"
	}

	if cfg.API.Host == "" {
		cfg.API.Host = "127.0.0.1"
	}
	if cfg.API.Enabled {
		if cfg.API.Port <= 0 || cfg.API.Port > 65535 {
			return errors.New("api.port must be 1..65535")
		}
	}

	return nil
}
