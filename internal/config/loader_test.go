package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps user config files and credentials out of a test.
func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("UGCREEL_CONFIG", "")
	t.Setenv("MUX_TOKEN_ID", "")
	t.Setenv("MUX_TOKEN_SECRET", "")
	t.Setenv("REPLICATE_API_KEY", "")
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadDefaults", func(t *testing.T) {
		isolate(t)
		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 5*time.Minute, cfg.Server.WriteTimeout)
		assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
		assert.Equal(t, 4*time.Minute, cfg.Server.ComposeTimeout)

		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "structured", cfg.Logging.Profile)
		assert.True(t, cfg.Health.Enabled)

		assert.Equal(t, "sqlite", cfg.Store.Backend)
		assert.Equal(t, "public", cfg.Storage.Mode)
		assert.Equal(t, "aiugcavatars", cfg.Storage.AvatarBucket)
		assert.Equal(t, "demo_videos", cfg.Storage.DemoBucket)
		assert.Empty(t, cfg.Storage.AllowedPaths)
		assert.True(t, cfg.Storage.S3.CheckExists)
		assert.Equal(t, time.Hour, cfg.Storage.S3.PresignTTL)

		assert.Equal(t, "https://api.mux.com", cfg.Mux.BaseURL)
		assert.Equal(t, "public", cfg.Mux.PlaybackPolicy)

		assert.Equal(t, 2*time.Second, cfg.Poll.Interval)
		assert.Equal(t, 30, cfg.Poll.MaxAttempts)

		assert.Equal(t, "deepseek-ai/deepseek-r1", cfg.Hook.Model)
	})

	t.Run("RuntimeOverrides", func(t *testing.T) {
		isolate(t)
		overrides := map[string]any{
			"server": map[string]any{
				"port": 9000,
				"host": "0.0.0.0",
			},
			"logging": map[string]any{
				"level": "debug",
			},
			"storage": map[string]any{
				"s3": map[string]any{"region": "eu-west-1"},
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "eu-west-1", cfg.Storage.S3.Region)

		assert.Equal(t, "structured", cfg.Logging.Profile)
		assert.Equal(t, 30, cfg.Poll.MaxAttempts)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		isolate(t)
		t.Setenv("UGCREEL_PORT", "3000")
		t.Setenv("UGCREEL_LOG_LEVEL", "warn")
		t.Setenv("UGCREEL_HEALTH_ENABLED", "false")
		t.Setenv("UGCREEL_ALLOWED_PATHS", "avatars/**,demos/*.mp4")

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.False(t, cfg.Health.Enabled)
		assert.Equal(t, []string{"avatars/**", "demos/*.mp4"}, cfg.Storage.AllowedPaths)
	})

	t.Run("CredentialAliases", func(t *testing.T) {
		isolate(t)
		t.Setenv("MUX_TOKEN_ID", "alias-id")
		t.Setenv("MUX_TOKEN_SECRET", "alias-secret")
		t.Setenv("REPLICATE_API_KEY", "r8-key")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "alias-id", cfg.Mux.TokenID)
		assert.Equal(t, "alias-secret", cfg.Mux.TokenSecret)
		assert.Equal(t, "r8-key", cfg.Hook.APIKey)
	})

	t.Run("PrefixedEnvBeatsAlias", func(t *testing.T) {
		isolate(t)
		t.Setenv("MUX_TOKEN_ID", "alias-id")
		t.Setenv("UGCREEL_MUX_TOKEN_ID", "prefixed-id")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "prefixed-id", cfg.Mux.TokenID)
	})

	t.Run("ConfigPrecedence", func(t *testing.T) {
		isolate(t)
		t.Setenv("UGCREEL_PORT", "4000")

		overrides := map[string]any{
			"server": map[string]any{
				"port": 5000,
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)
		assert.Equal(t, 5000, cfg.Server.Port)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		isolate(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Load(cctx)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestLoad_ConfigFile(t *testing.T) {
	ctx := context.Background()

	t.Run("ExplicitFile", func(t *testing.T) {
		isolate(t)
		path := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte(strings.Join([]string{
			"server:",
			"  port: 7070",
			"poll:",
			"  interval: 500ms",
			"  max_attempts: 5",
			"storage:",
			"  allowed_paths:",
			"    - \"**/*.mp4\"",
		}, "\n")), 0o644))
		t.Setenv("UGCREEL_CONFIG", path)

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 7070, cfg.Server.Port)
		assert.Equal(t, 500*time.Millisecond, cfg.Poll.Interval)
		assert.Equal(t, 5, cfg.Poll.MaxAttempts)
		assert.Equal(t, []string{"**/*.mp4"}, cfg.Storage.AllowedPaths)
	})

	t.Run("EnvBeatsFile", func(t *testing.T) {
		isolate(t)
		path := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o644))
		t.Setenv("UGCREEL_CONFIG", path)
		t.Setenv("UGCREEL_PORT", "7171")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 7171, cfg.Server.Port)
	})

	t.Run("UserConfigDir", func(t *testing.T) {
		isolate(t)
		dir := filepath.Join(os.Getenv("HOME"), ".config", "ugcreel")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "ugcreel.yaml"), []byte("logging:\n  level: debug\n"), 0o644))

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("MissingExplicitFile", func(t *testing.T) {
		isolate(t)
		t.Setenv("UGCREEL_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := Load(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read config")
	})
}

func TestLoad_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		overrides map[string]any
		field     string
	}{
		{"bad backend", map[string]any{"store": map[string]any{"backend": "postgres"}}, "store.backend"},
		{"bad mode", map[string]any{"storage": map[string]any{"mode": "ftp"}}, "storage.mode"},
		{"public without base", map[string]any{"storage": map[string]any{"public_base_url": ""}}, "storage.public_base_url"},
		{"zero attempts", map[string]any{"poll": map[string]any{"max_attempts": 0}}, "poll.max_attempts"},
		{"bad port", map[string]any{"server": map[string]any{"port": 70000}}, "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			_, err := Load(ctx, tt.overrides)
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Contains(t, err.Error(), "config: "+tt.field)
		})
	}
}

func TestGetConfig(t *testing.T) {
	isolate(t)
	cfg, err := Load(context.Background())
	require.NoError(t, err)

	retrieved := GetConfig()
	require.NotNil(t, retrieved)
	assert.Equal(t, cfg.Server.Port, retrieved.Server.Port)
	assert.Equal(t, cfg.Logging.Level, retrieved.Logging.Level)
}

func TestConfigReload(t *testing.T) {
	isolate(t)
	ctx := context.Background()

	cfg1, err := Load(ctx)
	require.NoError(t, err)
	initialPort := cfg1.Server.Port

	cfg2, err := Load(ctx, map[string]any{"server": map[string]any{"port": initialPort + 1000}})
	require.NoError(t, err)
	assert.Equal(t, initialPort+1000, cfg2.Server.Port)
	assert.Equal(t, cfg2.Server.Port, GetConfig().Server.Port)
}

func TestDurationParsing(t *testing.T) {
	isolate(t)
	t.Setenv("UGCREEL_READ_TIMEOUT", "45s")
	t.Setenv("UGCREEL_SHUTDOWN_TIMEOUT", "5m")
	t.Setenv("UGCREEL_POLL_INTERVAL", "250ms")

	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Poll.Interval)
}

// resetAppIdentity resets package state for isolated tests.
func resetAppIdentity() {
	configMu.Lock()
	defer configMu.Unlock()
	appIdentity = nil
	appConfig = nil
}

func TestNilIdentity(t *testing.T) {
	resetAppIdentity()
	t.Cleanup(func() {
		_, _ = Load(context.Background())
	})

	assert.Empty(t, getUserConfigPaths())
	assert.Empty(t, getEnvSpecs())
	assert.Nil(t, GetConfig())
	assert.Nil(t, GetIdentity())
}

func TestEnvSpecs(t *testing.T) {
	isolate(t)
	_, err := Load(context.Background())
	require.NoError(t, err)

	specs := getEnvSpecs()
	require.NotEmpty(t, specs)

	names := make(map[string]bool)
	for _, spec := range specs {
		names[spec.Name] = true
		assert.True(t, strings.HasPrefix(spec.Name, "UGCREEL_"), "spec %s should carry the UGCREEL_ prefix", spec.Name)
		assert.NotEmpty(t, spec.Path, "env var %s should have a path", spec.Name)
	}

	for _, want := range []string{"UGCREEL_LOG_LEVEL", "UGCREEL_PORT", "UGCREEL_HOST", "UGCREEL_MUX_TOKEN_ID", "UGCREEL_POLL_MAX_ATTEMPTS"} {
		assert.True(t, names[want], "%s must be mapped", want)
	}
}

func TestFlatten(t *testing.T) {
	got := flatten("", map[string]any{
		"Server": map[string]any{"Port": 1},
		"a":      map[string]any{"b": map[string]any{"c": "d"}},
		"top":    true,
	})
	assert.Equal(t, map[string]any{"server.port": 1, "a.b.c": "d", "top": true}, got)
}
