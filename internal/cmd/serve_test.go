package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/ugcreel/pkg/job"
)

func TestIdentityHealthChecker(t *testing.T) {
	tests := []struct {
		name       string
		binaryName string
		envPrefix  string
		configName string
		errContain string
	}{
		{name: "all fields valid", binaryName: "ugcreel", envPrefix: "UGCREEL", configName: "ugcreel"},
		{name: "missing binary name", envPrefix: "UGCREEL", configName: "ugcreel", errContain: "missing binary name"},
		{name: "missing env prefix", binaryName: "ugcreel", configName: "ugcreel", errContain: "missing env prefix"},
		{name: "missing config name", binaryName: "ugcreel", envPrefix: "UGCREEL", errContain: "missing config name"},
		{name: "all fields empty", errContain: "missing binary name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := identityHealthChecker{
				binaryName: tt.binaryName,
				envPrefix:  tt.envPrefix,
				configName: tt.configName,
			}

			err := checker.CheckHealth(context.Background())
			if tt.errContain == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContain)
		})
	}
}

func TestStoreHealthChecker(t *testing.T) {
	t.Run("nil store", func(t *testing.T) {
		err := storeHealthChecker{}.CheckHealth(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "job store not initialized")
	})

	t.Run("file store", func(t *testing.T) {
		store, err := job.NewFileStore(t.TempDir())
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		assert.NoError(t, storeHealthChecker{store: store}.CheckHealth(context.Background()))
	})
}
