package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/3leaps/ugcreel/internal/config"
	"github.com/3leaps/ugcreel/pkg/compose"
	"github.com/3leaps/ugcreel/pkg/hook"
	"github.com/3leaps/ugcreel/pkg/job"
	"github.com/3leaps/ugcreel/pkg/objectstore"
	"github.com/3leaps/ugcreel/pkg/objectstore/s3"
	"github.com/3leaps/ugcreel/pkg/poll"
	"github.com/3leaps/ugcreel/pkg/provider/mux"
)

// errMissingCredentials marks a provider that cannot be built from config.
var errMissingCredentials = errors.New("credentials not configured")

func storeConfig(cfg *config.Config) job.Config {
	return job.Config{
		Backend: job.Backend(cfg.Store.Backend),
		Dir:     cfg.Store.Dir,
		SQL: job.SQLConfig{
			Path:      cfg.Store.Path,
			URL:       cfg.Store.URL,
			AuthToken: cfg.Store.AuthToken,
		},
	}
}

// openStore opens the configured job store. A URL takes precedence over the
// local path for the sqlite backend.
func openStore(ctx context.Context, cfg *config.Config) (job.Store, error) {
	sc := storeConfig(cfg)
	if sc.SQL.URL != "" {
		sc.SQL.Path = ""
	}
	return job.Open(ctx, sc)
}

func newResolver(ctx context.Context, cfg *config.Config) (objectstore.URLResolver, error) {
	policy, err := objectstore.NewPathPolicy(cfg.Storage.AllowedPaths)
	if err != nil {
		return nil, fmt.Errorf("storage.allowed_paths: %w", err)
	}

	switch strings.ToLower(cfg.Storage.Mode) {
	case "s3":
		sc := cfg.Storage.S3
		return s3.New(ctx, s3.Config{
			Region:          sc.Region,
			Endpoint:        sc.Endpoint,
			Profile:         sc.Profile,
			AccessKeyID:     sc.AccessKeyID,
			SecretAccessKey: sc.SecretAccessKey,
			ForcePathStyle:  sc.ForcePathStyle,
			CheckExists:     sc.CheckExists,
			Public:          sc.Public,
			PresignTTL:      sc.PresignTTL,
		}, policy)
	default:
		return objectstore.NewPublicResolver(cfg.Storage.PublicBaseURL, policy)
	}
}

func muxConfig(cfg *config.Config) mux.Config {
	return mux.Config{
		TokenID:        cfg.Mux.TokenID,
		TokenSecret:    cfg.Mux.TokenSecret,
		BaseURL:        cfg.Mux.BaseURL,
		Timeout:        cfg.Mux.Timeout,
		PlaybackPolicy: cfg.Mux.PlaybackPolicy,
		Test:           cfg.Mux.Test,
	}
}

func newMuxClient(cfg *config.Config) (*mux.Client, error) {
	if cfg.Mux.TokenID == "" || cfg.Mux.TokenSecret == "" {
		return nil, fmt.Errorf("mux: %w (set MUX_TOKEN_ID and MUX_TOKEN_SECRET)", errMissingCredentials)
	}
	return mux.New(muxConfig(cfg))
}

func newOrchestrator(ctx context.Context, cfg *config.Config, store job.Store, log *zap.Logger) (*compose.Orchestrator, error) {
	resolver, err := newResolver(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build url resolver: %w", err)
	}
	client, err := newMuxClient(cfg)
	if err != nil {
		return nil, err
	}
	return compose.New(compose.Options{
		Store:    store,
		Resolver: resolver,
		Client:   client,
		Buckets: compose.Buckets{
			Avatar: cfg.Storage.AvatarBucket,
			Demo:   cfg.Storage.DemoBucket,
		},
		Poll:   poll.Config{Interval: cfg.Poll.Interval, MaxAttempts: cfg.Poll.MaxAttempts},
		Logger: log,
	})
}

func newHookGenerator(cfg *config.Config, log *zap.Logger) (*hook.Generator, error) {
	if cfg.Hook.APIKey == "" {
		return nil, fmt.Errorf("hook: %w (set REPLICATE_API_KEY)", errMissingCredentials)
	}
	return hook.New(hook.Config{
		Token:   cfg.Hook.APIKey,
		BaseURL: cfg.Hook.BaseURL,
		Model:   cfg.Hook.Model,
		Timeout: cfg.Hook.Timeout,
	}, log)
}
