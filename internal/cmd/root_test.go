package cmd

import (
	"errors"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/ugcreel/internal/config"
)

func TestSetVersionInfo(t *testing.T) {
	orig := versionInfo
	defer func() { versionInfo = orig }()

	tests := []struct {
		name      string
		version   string
		commit    string
		buildDate string
	}{
		{name: "set all values", version: "1.0.0", commit: "abc123", buildDate: "2026-01-15"},
		{name: "set dev version", version: "dev", commit: "HEAD", buildDate: "unknown"},
		{name: "set empty values"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetVersionInfo(tt.version, tt.commit, tt.buildDate)

			assert.Equal(t, tt.version, versionInfo.Version)
			assert.Equal(t, tt.commit, versionInfo.Commit)
			assert.Equal(t, tt.buildDate, versionInfo.BuildDate)
		})
	}
}

func TestGetAppIdentity(t *testing.T) {
	stateMu.Lock()
	orig := appIdentity
	stateMu.Unlock()
	defer func() {
		stateMu.Lock()
		appIdentity = orig
		stateMu.Unlock()
	}()

	t.Run("returns nil before init", func(t *testing.T) {
		stateMu.Lock()
		appIdentity = nil
		stateMu.Unlock()

		assert.Nil(t, GetAppIdentity())
	})

	t.Run("returns identity after set", func(t *testing.T) {
		id := config.DefaultIdentity
		stateMu.Lock()
		appIdentity = &id
		stateMu.Unlock()

		got := GetAppIdentity()
		require.NotNil(t, got)
		assert.Equal(t, "ugcreel", got.BinaryName)
	})
}

func TestLoadedConfig(t *testing.T) {
	stateMu.Lock()
	orig := appConfig
	appConfig = nil
	stateMu.Unlock()
	defer func() {
		stateMu.Lock()
		appConfig = orig
		stateMu.Unlock()
	}()

	_, err := loadedConfig()
	require.Error(t, err)

	stateMu.Lock()
	appConfig = &config.Config{}
	stateMu.Unlock()

	cfg, err := loadedConfig()
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestExitError(t *testing.T) {
	cause := errors.New("disk full")
	err := exitError(foundry.ExitFileWriteError, "Failed to save job", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "Failed to save job: disk full")
	assert.Equal(t, foundry.ExitFileWriteError, exitCodeOf(err))
}

func TestExitCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "plain error", err: errors.New("boom"), want: 1},
		{name: "tagged", err: exitError(foundry.ExitInvalidArgument, "bad", errors.New("x")), want: foundry.ExitInvalidArgument},
		{name: "tag not at end", err: errors.New("(exit code 7) trailing"), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCodeOf(tt.err))
		})
	}
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "compose", "hook", "jobs", "doctor", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}
