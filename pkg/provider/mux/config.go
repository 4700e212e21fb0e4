// Package mux implements provider.Client against the Mux Video API.
package mux

import "time"

// Config configures a Mux client.
//
// Credentials are an access token pair created in the Mux dashboard and are
// sent as HTTP Basic auth on every request.
type Config struct {
	// TokenID is the Mux access token ID (required).
	TokenID string

	// TokenSecret is the Mux access token secret (required).
	TokenSecret string

	// BaseURL overrides the API endpoint. Leave empty for production.
	BaseURL string

	// Timeout bounds a single HTTP request. Zero uses DefaultTimeout.
	Timeout time.Duration

	// PlaybackPolicy is applied to created assets. Empty uses "public".
	PlaybackPolicy string

	// Test creates watermarked, non-billed test assets.
	Test bool
}

// DefaultBaseURL is the Mux API endpoint.
const DefaultBaseURL = "https://api.mux.com"

// DefaultTimeout bounds a single API request.
const DefaultTimeout = 30 * time.Second

// DefaultPlaybackPolicy makes outputs playable without signed tokens.
const DefaultPlaybackPolicy = "public"

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.TokenID == "" {
		return &ConfigError{Field: "TokenID", Message: "token id is required"}
	}
	if c.TokenSecret == "" {
		return &ConfigError{Field: "TokenSecret", Message: "token secret is required"}
	}
	switch c.PlaybackPolicy {
	case "", "public", "signed":
	default:
		return &ConfigError{Field: "PlaybackPolicy", Message: "must be public or signed"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "mux config: " + e.Field + ": " + e.Message
}
