package s3

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/3leaps/ugcreel/pkg/objectstore"
)

// Resolver implements objectstore.URLResolver for S3.
type Resolver struct {
	client    *s3.Client
	presigner *s3.PresignClient
	cfg       Config
	region    string
	policy    objectstore.PathPolicy
}

var _ objectstore.URLResolver = (*Resolver)(nil)

// New creates a resolver with the given configuration.
func New(ctx context.Context, cfg Config, policy objectstore.PathPolicy) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	s3Opts := []func(*s3.Options){
		func(o *s3.Options) {
			if cfg.ForcePathStyle {
				o.UsePathStyle = true
			}
		},
	}
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return &Resolver{
		client:    client,
		presigner: s3.NewPresignClient(client),
		cfg:       cfg,
		region:    awsCfg.Region,
		policy:    policy,
	}, nil
}

// loadAWSConfig builds the AWS configuration with appropriate credentials.
func loadAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		staticCreds := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
		opts = append(opts, config.WithCredentialsProvider(staticCreds))
	}
	if cfg.Public && cfg.AccessKeyID == "" && cfg.Profile == "" {
		// Unsigned URLs need no credentials; skip the chain entirely.
		opts = append(opts, config.WithCredentialsProvider(aws.AnonymousCredentials{}))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}
	awsCfg.Region = resolveRegion(cfg.Endpoint, awsCfg.Region)
	return awsCfg, nil
}

// ResolvePublicURL implements objectstore.URLResolver.
func (r *Resolver) ResolvePublicURL(ctx context.Context, bucket, path string) (string, error) {
	if strings.TrimSpace(bucket) == "" {
		return "", objectstore.Unresolvable(bucket, path, errors.New("bucket is required"))
	}
	if err := r.policy.Check(path); err != nil {
		return "", objectstore.Unresolvable(bucket, path, err)
	}

	if r.cfg.CheckExists {
		if _, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(path),
		}); err != nil {
			return "", objectstore.Unresolvable(bucket, path, wrapError("HeadObject", err))
		}
	}

	if r.cfg.Public {
		return r.publicURL(bucket, path), nil
	}

	req, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(path),
	}, s3.WithPresignExpires(r.cfg.presignTTL()))
	if err != nil {
		return "", objectstore.Unresolvable(bucket, path, wrapError("PresignGetObject", err))
	}
	return req.URL, nil
}

func (r *Resolver) publicURL(bucket, path string) string {
	key := objectstore.EscapePath(path)
	if r.cfg.Endpoint != "" {
		base := strings.TrimRight(r.cfg.Endpoint, "/")
		if r.cfg.ForcePathStyle {
			return base + "/" + bucket + "/" + key
		}
		scheme, host, _ := strings.Cut(base, "://")
		return scheme + "://" + bucket + "." + host + "/" + key
	}
	region := r.region
	if region == "" {
		region = DefaultAWSRegion
	}
	if r.cfg.ForcePathStyle {
		return "https://s3." + region + ".amazonaws.com/" + bucket + "/" + key
	}
	return "https://" + bucket + ".s3." + region + ".amazonaws.com/" + key
}

// wrapError maps S3 failures onto objectstore sentinels.
func wrapError(op string, err error) error {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket

	switch {
	case errors.As(err, &notFound), errors.As(err, &noSuchKey):
		return fmt.Errorf("%s: %w", op, objectstore.ErrObjectNotFound)
	case errors.As(err, &noSuchBucket):
		return fmt.Errorf("%s: bucket: %w", op, objectstore.ErrObjectNotFound)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return fmt.Errorf("%s: %w", op, objectstore.ErrObjectNotFound)
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return fmt.Errorf("%s: %w: %s", op, objectstore.ErrAccessDenied, apiErr.ErrorCode())
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// resolveRegion applies the us-east-1 fallback for AWS S3 only.
func resolveRegion(endpoint, sdkRegion string) string {
	if sdkRegion != "" {
		return sdkRegion
	}
	if endpoint == "" {
		return DefaultAWSRegion
	}
	return ""
}
