// Package config loads ugcreel configuration from defaults, an optional
// YAML file, environment variables, and runtime overrides.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the complete application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Health  HealthConfig  `mapstructure:"health"`
	Store   StoreConfig   `mapstructure:"store"`
	Storage StorageConfig `mapstructure:"storage"`
	Mux     MuxConfig     `mapstructure:"mux"`
	Poll    PollConfig    `mapstructure:"poll"`
	Hook    HookConfig    `mapstructure:"hook"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// ComposeTimeout bounds one combine-videos request end to end.
	ComposeTimeout time.Duration `mapstructure:"compose_timeout"`
}

// LoggingConfig selects level and output profile.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Profile string `mapstructure:"profile"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// StoreConfig selects the job store backend.
type StoreConfig struct {
	Backend   string `mapstructure:"backend"`
	Dir       string `mapstructure:"dir"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// StorageConfig configures source URL resolution.
type StorageConfig struct {
	// Mode is "public" (URL template) or "s3" (presigned/public S3 URLs).
	Mode          string   `mapstructure:"mode"`
	PublicBaseURL string   `mapstructure:"public_base_url"`
	AvatarBucket  string   `mapstructure:"avatar_bucket"`
	DemoBucket    string   `mapstructure:"demo_bucket"`
	AllowedPaths  []string `mapstructure:"allowed_paths"`
	S3            S3Config `mapstructure:"s3"`
}

// S3Config mirrors objectstore/s3.Config.
type S3Config struct {
	Region          string        `mapstructure:"region"`
	Endpoint        string        `mapstructure:"endpoint"`
	Profile         string        `mapstructure:"profile"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	ForcePathStyle  bool          `mapstructure:"force_path_style"`
	CheckExists     bool          `mapstructure:"check_exists"`
	Public          bool          `mapstructure:"public"`
	PresignTTL      time.Duration `mapstructure:"presign_ttl"`
}

// MuxConfig holds video provider credentials and options.
type MuxConfig struct {
	TokenID        string        `mapstructure:"token_id"`
	TokenSecret    string        `mapstructure:"token_secret"`
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	PlaybackPolicy string        `mapstructure:"playback_policy"`
	Test           bool          `mapstructure:"test"`
}

// PollConfig paces asset readiness polling.
type PollConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// HookConfig configures hook generation.
type HookConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return &ValidationError{Field: "server.port", Message: "must be between 0 and 65535"}
	}
	switch strings.ToLower(c.Store.Backend) {
	case "sqlite", "file":
	default:
		return &ValidationError{Field: "store.backend", Message: fmt.Sprintf("unsupported backend %q (want sqlite or file)", c.Store.Backend)}
	}
	switch strings.ToLower(c.Storage.Mode) {
	case "public":
		if strings.TrimSpace(c.Storage.PublicBaseURL) == "" {
			return &ValidationError{Field: "storage.public_base_url", Message: "required when storage.mode is public"}
		}
	case "s3":
	default:
		return &ValidationError{Field: "storage.mode", Message: fmt.Sprintf("unsupported mode %q (want public or s3)", c.Storage.Mode)}
	}
	if c.Poll.MaxAttempts < 1 {
		return &ValidationError{Field: "poll.max_attempts", Message: "must be at least 1"}
	}
	if c.Poll.Interval < 0 {
		return &ValidationError{Field: "poll.interval", Message: "must not be negative"}
	}
	return nil
}

// ValidationError reports an invalid configuration value.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "config: " + e.Field + ": " + e.Message
}
