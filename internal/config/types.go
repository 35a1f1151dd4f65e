// Package config provides configuration loading for dohgate using Viper.
// Configuration is loaded from YAML files with automatic environment variable binding.
//
// Environment variables use the DOHGATE_ prefix and underscore-separated keys:
//   - DOHGATE_SERVER_HOST -> server.host
//   - DOHGATE_SERVER_PORT -> server.port
//   - DOHGATE_UPSTREAM_DOH_ENDPOINTS -> upstream.doh_endpoints (comma-separated)
//   - DOHGATE_API_ENABLED -> api.enabled
package config

import (
	"os"
	"strconv"
	"strings"
)

// WorkersMode specifies how worker count is determined.
type WorkersMode int

const (
	// WorkersAuto automatically determines worker count based on available CPUs.
	WorkersAuto WorkersMode = iota
	// WorkersFixed uses a specific worker count.
	WorkersFixed
)

// WorkerSetting represents the workers configuration.
type WorkerSetting struct {
	Mode  WorkersMode
	Value int
}

// String returns the string representation of the worker setting.
func (w WorkerSetting) String() string {
	if w.Mode == WorkersAuto {
		return "auto"
	}
	return strconv.Itoa(w.Value)
}

// ServerConfig contains HTTP server settings for the DoH boundary and admin surface.
type ServerConfig struct {
	Host           string        `yaml:"host"            mapstructure:"host"`
	Port           int           `yaml:"port"             mapstructure:"port"`
	Workers        WorkerSetting `yaml:"-"                mapstructure:"-"`
	WorkersRaw     string        `yaml:"workers"          mapstructure:"workers"`
	MaxConcurrency int           `yaml:"max_concurrency"  mapstructure:"max_concurrency"`
	ReadTimeout    string        `yaml:"read_timeout"     mapstructure:"read_timeout"`
	WriteTimeout   string        `yaml:"write_timeout"    mapstructure:"write_timeout"`
}

// UpstreamConfig contains DoH upstream settings used by the Forward plugin.
type UpstreamConfig struct {
	DoHEndpoints []string `yaml:"doh_endpoints" mapstructure:"doh_endpoints" json:"doh_endpoints"`
	Timeout      string   `yaml:"timeout"       mapstructure:"timeout"       json:"timeout"`
	MaxRetries   int      `yaml:"max_retries"   mapstructure:"max_retries"   json:"max_retries"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level            string            `yaml:"level"             mapstructure:"level"             json:"level"`
	Structured       bool              `yaml:"structured"        mapstructure:"structured"        json:"structured"`
	StructuredFormat string            `yaml:"structured_format" mapstructure:"structured_format" json:"structured_format"`
	IncludePID       bool              `yaml:"include_pid"       mapstructure:"include_pid"       json:"include_pid"`
	ExtraFields      map[string]string `yaml:"extra_fields"      mapstructure:"extra_fields"      json:"extra_fields,omitempty"`
}

// KVConfig configures the internal/kvstore collaborator used by the
// Domain-Set and IP-Matcher plugins to resolve named lists.
//
// DSN is a bare SQLite file path, not a full DSN string: kvstore.OpenSQLiteKV
// builds its own `file:...?_journal_mode=WAL...` DSN around it. Migrations
// are embedded into the binary, so there is no migrations-directory setting.
type KVConfig struct {
	DSN        string `yaml:"dsn"         mapstructure:"dsn"         json:"dsn"`
	DefaultTTL string `yaml:"default_ttl" mapstructure:"default_ttl" json:"default_ttl"`
}

// APIConfig contains admin HTTP surface settings.
//
// Note: APIKey is intentionally treated as a secret and should not be returned by API endpoints.
type APIConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Host    string `yaml:"host"    mapstructure:"host"`
	Port    int    `yaml:"port"    mapstructure:"port"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
}

// Config is the root configuration structure.
//
// Chain is the already-normalized plugin chain (spec §4.C): translating an
// external dialect (e.g. MosDNS-style YAML) into this list is out of scope
// here, so each entry's Kind must name a plugin kind Register wires in.
type Config struct {
	Server  ServerConfig       `yaml:"server"   mapstructure:"server"`
	Upstream UpstreamConfig    `yaml:"upstream" mapstructure:"upstream"`
	Logging LoggingConfig      `yaml:"logging"  mapstructure:"logging"`
	KV      KVConfig           `yaml:"kv"       mapstructure:"kv"`
	API     APIConfig          `yaml:"api"      mapstructure:"api"`
	Chain   []ChainStepConfig  `yaml:"chain"    mapstructure:"chain"`
}

// ChainStepConfig is the on-disk/env shape of one chain.StepConfig entry.
// It is translated 1:1 into chain.StepConfig by BuildChainConfig — kept as
// a distinct type so viper's mapstructure decoding never reaches into
// chain internals directly.
type ChainStepConfig struct {
	Kind         string         `yaml:"kind"           mapstructure:"kind"`
	Tag          string         `yaml:"tag"            mapstructure:"tag"`
	Args         map[string]any `yaml:"args"           mapstructure:"args"`
	IfMatched    string         `yaml:"if_matched"     mapstructure:"if_matched"`
	IfNotMatched string         `yaml:"if_not_matched" mapstructure:"if_not_matched"`
}

// ResolveConfigPath determines the config file path from flag or environment.
func ResolveConfigPath(flagValue string) string {
	if strings.TrimSpace(flagValue) != "" {
		return flagValue
	}
	if v := strings.TrimSpace(os.Getenv("DOHGATE_CONFIG")); v != "" {
		return v
	}
	return ""
}

// Load loads configuration from a YAML file with environment variable overrides.
// This is the main entry point for loading configuration.
//
// Configuration priority (highest to lowest):
//  1. Environment variables (DOHGATE_*)
//  2. Config file values
//  3. Default values
func Load(path string) (*Config, error) {
	return loadFromSource(path)
}
