// Package models defines request and response types for the dohgate admin REST API.
// All types are JSON-serializable and include validation tags where appropriate.
package models

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse represents a simple status response (spec §4.H).
type StatusResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	ServerTime int64  `json:"server_time"`
}
