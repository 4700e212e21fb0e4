package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/ugcreel/pkg/compose"
	"github.com/3leaps/ugcreel/pkg/job"
	"github.com/3leaps/ugcreel/pkg/objectstore"
	"github.com/3leaps/ugcreel/pkg/provider"
)

type stubRunner struct {
	result      *compose.Result
	err         error
	gotJobID    string
	hadDeadline bool
}

func (s *stubRunner) Run(ctx context.Context, jobID string) (*compose.Result, error) {
	s.gotJobID = jobID
	_, s.hadDeadline = ctx.Deadline()
	return s.result, s.err
}

func TestRunComposition_PrintsResult(t *testing.T) {
	runner := &stubRunner{result: &compose.Result{JobID: "job-1", OutputReference: "pb-42"}}
	var out bytes.Buffer

	err := runComposition(context.Background(), runner, "job-1", time.Minute, &out)
	require.NoError(t, err)
	assert.Equal(t, "job-1", runner.gotJobID)
	assert.True(t, runner.hadDeadline)

	var got compose.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "pb-42", got.OutputReference)
}

func TestRunComposition_NoTimeout(t *testing.T) {
	runner := &stubRunner{result: &compose.Result{JobID: "job-1"}}
	require.NoError(t, runComposition(context.Background(), runner, "job-1", 0, &bytes.Buffer{}))
	assert.False(t, runner.hadDeadline)
}

func TestRunComposition_FailureCarriesExitCode(t *testing.T) {
	runner := &stubRunner{err: fmt.Errorf("load job: %w", job.ErrNotFound)}
	var out bytes.Buffer

	err := runComposition(context.Background(), runner, "missing", 0, &out)
	require.Error(t, err)
	assert.Equal(t, foundry.ExitFileNotFound, exitCodeOf(err))
	assert.True(t, job.IsNotFound(err))
	assert.Empty(t, out.String())
}

func TestComposeExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "cancelled", err: context.Canceled, want: foundry.ExitSignalInt},
		{name: "job not found", err: job.ErrNotFound, want: foundry.ExitFileNotFound},
		{name: "unresolvable source", err: objectstore.Unresolvable("demo_videos", "u/demo.mp4", objectstore.ErrObjectNotFound), want: foundry.ExitFileNotFound},
		{name: "persistence", err: &compose.PersistenceError{JobID: "j", Status: job.StatusCompleted, Err: errors.New("locked")}, want: foundry.ExitFileWriteError},
		{name: "provider", err: &provider.RemoteProviderError{Op: "CreateAsset", Provider: "mux", StatusCode: 500}, want: foundry.ExitExternalServiceUnavailable},
		{name: "asset failed", err: &provider.AssetProcessingFailedError{RemoteID: "a1", Reason: "codec"}, want: foundry.ExitExternalServiceUnavailable},
		{name: "asset timeout", err: &provider.AssetTimeoutError{RemoteID: "a1", Attempts: 30}, want: foundry.ExitExternalServiceUnavailable},
		{name: "deadline", err: context.DeadlineExceeded, want: foundry.ExitExternalServiceUnavailable},
		{name: "other", err: errors.New("unexpected"), want: foundry.ExitInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, composeExitCode(tt.err))
		})
	}
}
