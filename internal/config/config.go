// Package config provides configuration loading and validation for dohgate.
//
// Configuration is loaded with the following priority (highest to lowest):
//  1. Command-line flags (not handled here, see cmd/dohgate/main.go)
//  2. Environment variables (DOHGATE_* prefix)
//  3. YAML config file (if specified with --config)
//  4. Hardcoded defaults
//
// Environment variables are mapped from DOHGATE_CATEGORY_SETTING format,
// e.g., DOHGATE_SERVER_HOST maps to server.host in YAML.
//
// All configuration is validated during Load() to ensure correctness early.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/dohgate/dohgate/internal/chain"
)

// initConfig sets up the config loader with defaults, env binding, and config file.
func initConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	// Environment variable binding.
	// Uses DOHGATE_ prefix: DOHGATE_SERVER_HOST -> server.host
	v.SetEnvPrefix("DOHGATE")
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

// setDefaults configures all default values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8443)
	v.SetDefault("server.workers", "auto")
	v.SetDefault("server.max_concurrency", 0)
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "5s")

	// Upstream defaults
	v.SetDefault("upstream.doh_endpoints", []string{"https://dns.google/dns-query"})
	v.SetDefault("upstream.timeout", "3s")
	v.SetDefault("upstream.max_retries", 2)

	// Logging defaults
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.structured", false)
	v.SetDefault("logging.structured_format", "json")
	v.SetDefault("logging.include_pid", false)
	v.SetDefault("logging.extra_fields", map[string]string{})

	// KV store defaults. dsn is a bare SQLite file path (see KVConfig doc).
	v.SetDefault("kv.dsn", "dohgate.db")
	v.SetDefault("kv.default_ttl", "30m")

	// Admin API defaults.
	// Default to disabled and bound to localhost for safety.
	v.SetDefault("api.enabled", false)
	v.SetDefault("api.host", "127.0.0.1")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.api_key", "")

	// Chain defaults: empty, the operator supplies one.
	v.SetDefault("chain", []map[string]any{})
}

// loadFromSource loads configuration from file and environment.
func loadFromSource(configPath string) (*Config, error) {
	v, err := initConfig(configPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}

	loadServerConfig(v, cfg)
	loadUpstreamConfig(v, cfg)
	loadLoggingConfig(v, cfg)
	loadKVConfig(v, cfg)
	loadAPIConfig(v, cfg)
	if err := loadChainConfig(v, cfg); err != nil {
		return nil, err
	}

	if err := normalizeConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadServerConfig(v *viper.Viper, cfg *Config) {
	cfg.Server.Host = v.GetString("server.host")
	cfg.Server.Port = v.GetInt("server.port")
	cfg.Server.MaxConcurrency = v.GetInt("server.max_concurrency")
	cfg.Server.ReadTimeout = v.GetString("server.read_timeout")
	cfg.Server.WriteTimeout = v.GetString("server.write_timeout")
	cfg.Server.WorkersRaw = v.GetString("server.workers")
	cfg.Server.Workers = parseWorkers(cfg.Server.WorkersRaw)
}

func loadUpstreamConfig(v *viper.Viper, cfg *Config) {
	cfg.Upstream.DoHEndpoints = getStringSliceOrSplit(v, "upstream.doh_endpoints")
	cfg.Upstream.Timeout = v.GetString("upstream.timeout")
	cfg.Upstream.MaxRetries = v.GetInt("upstream.max_retries")
}

func loadLoggingConfig(v *viper.Viper, cfg *Config) {
	cfg.Logging.Level = strings.ToUpper(v.GetString("logging.level"))
	cfg.Logging.Structured = v.GetBool("logging.structured")
	cfg.Logging.StructuredFormat = v.GetString("logging.structured_format")
	cfg.Logging.IncludePID = v.GetBool("logging.include_pid")
	cfg.Logging.ExtraFields = v.GetStringMapString("logging.extra_fields")
}

func loadKVConfig(v *viper.Viper, cfg *Config) {
	cfg.KV.DSN = v.GetString("kv.dsn")
	cfg.KV.DefaultTTL = v.GetString("kv.default_ttl")
}

func loadAPIConfig(v *viper.Viper, cfg *Config) {
	cfg.API.Enabled = v.GetBool("api.enabled")
	cfg.API.Host = v.GetString("api.host")
	cfg.API.Port = v.GetInt("api.port")
	cfg.API.APIKey = v.GetString("api.api_key")
}

// loadChainConfig unmarshals the `chain` key into []ChainStepConfig. Viper
// decodes YAML/JSON sequences as []interface{}, so mapstructure handles the
// conversion; any malformed step fails the whole load rather than silently
// degrading to an empty chain.
func loadChainConfig(v *viper.Viper, cfg *Config) error {
	if !v.IsSet("chain") {
		cfg.Chain = nil
		return nil
	}
	if err := v.UnmarshalKey("chain", &cfg.Chain); err != nil {
		return fmt.Errorf("failed to decode chain config: %w", err)
	}
	return nil
}

// BuildChainConfig translates the on-disk chain shape into the
// chain.StepConfig list chain.Registry.Build consumes.
func (c *Config) BuildChainConfig() []chain.StepConfig {
	steps := make([]chain.StepConfig, 0, len(c.Chain))
	for _, s := range c.Chain {
		steps = append(steps, chain.StepConfig{
			Kind:         s.Kind,
			Tag:          s.Tag,
			Args:         s.Args,
			IfMatched:    s.IfMatched,
			IfNotMatched: s.IfNotMatched,
		})
	}
	return steps
}

// parseWorkers converts the workers string to WorkerSetting.
func parseWorkers(raw string) WorkerSetting {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" || raw == "auto" {
		return WorkerSetting{Mode: WorkersAuto}
	}
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return WorkerSetting{Mode: WorkersFixed, Value: n}
	}
	return WorkerSetting{Mode: WorkersAuto}
}

// getStringSliceOrSplit handles both slice and comma-separated string values.
func getStringSliceOrSplit(v *viper.Viper, key string) []string {
	if slice := v.GetStringSlice(key); len(slice) > 0 {
		result := make([]string, 0, len(slice))
		for _, s := range slice {
			for _, p := range strings.Split(s, ",") {
				p = strings.TrimSpace(p)
				if p != "" {
					result = append(result, p)
				}
			}
		}
		return result
	}
	if s := v.GetString(key); s != "" {
		parts := strings.Split(s, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return nil
}

// normalizeConfig validates and normalizes the configuration.
func normalizeConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.New("server.port must be 1..65535")
	}

	if len(cfg.Upstream.DoHEndpoints) == 0 {
		cfg.Upstream.DoHEndpoints = []string{"https://dns.google/dns-query"}
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

	if cfg.KV.DefaultTTL == "" {
		cfg.KV.DefaultTTL = "30m"
	}

	if cfg.API.Host == "" {
		cfg.API.Host = "127.0.0.1"
	}
	if cfg.API.Enabled {
		if cfg.API.Port <= 0 || cfg.API.Port > 65535 {
			return errors.New("api.port must be 1..65535")
		}
	}

	for i, step := range cfg.Chain {
		if strings.TrimSpace(step.Kind) == "" {
			return fmt.Errorf("chain[%d]: kind is required", i)
		}
	}

	return nil
}
