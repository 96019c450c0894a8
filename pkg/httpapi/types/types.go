// Package types holds the admin API's request/response DTOs.
package types

import "time"

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned from GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Adapter   string    `json:"adapter"`
	Timestamp time.Time `json:"timestamp"`
}

// StackLayerInfo describes one layer in the composed stack.
type StackLayerInfo struct {
	Type string `json:"type"`
	MTU  int    `json:"mtu"`
}

// StackResponse is returned from GET /stack.
type StackResponse struct {
	Description string           `json:"description"`
	Layers      []StackLayerInfo `json:"layers"`
}

// StatsResponse is returned from GET /stats.
type StatsResponse struct {
	EncodeCount uint64 `json:"encode_count"`
	DecodeCount uint64 `json:"decode_count"`
	EncodeBytes uint64 `json:"encode_bytes"`
	DecodeBytes uint64 `json:"decode_bytes"`
}
