package hook

import (
	"strings"
	"time"

	"github.com/3leaps/ugcreel/pkg/poll"
)

// Defaults for the Replicate-hosted model.
const (
	DefaultBaseURL     = "https://api.replicate.com"
	DefaultModel       = "deepseek-ai/deepseek-r1"
	DefaultMaxTokens   = 20480
	DefaultTemperature = 0.1
	DefaultTimeout     = 30 * time.Second
)

// DefaultPoll is one check per second for thirty seconds.
var DefaultPoll = poll.Config{Interval: time.Second, MaxAttempts: 30}

// Config configures a Generator. Token is injected at construction.
type Config struct {
	Token       string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// Poll paces prediction status checks.
	Poll poll.Config
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Token) == "" {
		return &ConfigError{Field: "Token", Message: "api token is required"}
	}
	if c.MaxTokens < 0 {
		return &ConfigError{Field: "MaxTokens", Message: "must not be negative"}
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return &ConfigError{Field: "Temperature", Message: "must be between 0 and 2"}
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Poll.Interval == 0 && c.Poll.MaxAttempts == 0 {
		c.Poll = DefaultPoll
	}
	return c
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "hook config: " + e.Field + ": " + e.Message
}
