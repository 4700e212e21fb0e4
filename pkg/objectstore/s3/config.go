// Package s3 resolves object paths on AWS S3 and S3-compatible storage.
package s3

import (
	"strings"
	"time"
)

// Config configures an S3 resolver.
//
// Authentication follows the AWS SDK v2 default chain unless explicit
// credentials are set. Bucket names come from each resolve call, so one
// resolver serves the avatar and demo buckets alike.
//
// For S3-compatible stores (MinIO, Supabase storage S3 gateway, Wasabi), set
// Endpoint and typically ForcePathStyle.
type Config struct {
	// Region is the AWS region. Defaults to us-east-1 for AWS S3 when not
	// resolved from environment or profile.
	Region string

	// Endpoint is a custom endpoint URL for S3-compatible stores.
	Endpoint string

	// Profile is the AWS shared config profile.
	Profile string

	// AccessKeyID and SecretAccessKey are explicit static credentials.
	AccessKeyID     string
	SecretAccessKey string

	// ForcePathStyle puts the bucket in the URL path.
	ForcePathStyle bool

	// CheckExists issues a HEAD request before building the URL so missing
	// objects fail fast instead of failing at the video provider.
	CheckExists bool

	// Public returns unsigned object URLs instead of presigned ones. Use for
	// buckets with a public-read policy.
	Public bool

	// PresignTTL is the lifetime of presigned URLs. Zero uses DefaultPresignTTL.
	PresignTTL time.Duration
}

// DefaultAWSRegion is the fallback region for AWS S3 when not specified.
const DefaultAWSRegion = "us-east-1"

// DefaultPresignTTL covers provider ingest, which starts within seconds of
// asset creation.
const DefaultPresignTTL = time.Hour

// MaxPresignTTL is the SigV4 upper bound.
const MaxPresignTTL = 7 * 24 * time.Hour

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if (c.AccessKeyID != "") != (c.SecretAccessKey != "") {
		return &ConfigError{
			Field:   "AccessKeyID/SecretAccessKey",
			Message: "both access key ID and secret access key must be provided together",
		}
	}
	if c.PresignTTL < 0 || c.PresignTTL > MaxPresignTTL {
		return &ConfigError{Field: "PresignTTL", Message: "must be between 0 and 7 days"}
	}
	if c.Endpoint != "" && !strings.HasPrefix(c.Endpoint, "http://") && !strings.HasPrefix(c.Endpoint, "https://") {
		return &ConfigError{Field: "Endpoint", Message: "must be an http or https URL"}
	}
	return nil
}

func (c *Config) presignTTL() time.Duration {
	if c.PresignTTL == 0 {
		return DefaultPresignTTL
	}
	return c.PresignTTL
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "s3 config: " + e.Field + ": " + e.Message
}
