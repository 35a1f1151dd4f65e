package models

import "github.com/dohgate/dohgate/internal/config"

// APIConfigResponse is a redacted version of APIConfig (no api_key exposed).
type APIConfigResponse struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
}

// ServerConfigResponse wraps ServerConfig with workers as string.
type ServerConfigResponse struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	Workers        string `json:"workers"`
	MaxConcurrency int    `json:"max_concurrency"`
	ReadTimeout    string `json:"read_timeout"`
	WriteTimeout   string `json:"write_timeout"`
}

// ConfigResponse is the read-only API response for GET /api/v1/config. It
// renders the active, already-normalized configuration (spec §4.H:
// "must never mutate request-processing state mid-request" — hence no
// corresponding PUT).
type ConfigResponse struct {
	Server   ServerConfigResponse    `json:"server"`
	Upstream config.UpstreamConfig   `json:"upstream"`
	Logging  config.LoggingConfig    `json:"logging"`
	KV       config.KVConfig         `json:"kv"`
	API      APIConfigResponse       `json:"api"`
	Chain    []config.ChainStepConfig `json:"chain"`
}
