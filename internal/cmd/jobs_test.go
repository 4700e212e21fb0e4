package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/ugcreel/pkg/job"
)

func sampleJob(id string, status job.Status) job.Job {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return job.Job{
		ID:              id,
		AvatarPath:      "user-1/avatar.mp4",
		CaptionText:     "Stop scrolling",
		CaptionPosition: job.PositionBottom,
		CaptionFont:     job.FontSans,
		Status:          status,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
}

func TestPrintJob_JSON(t *testing.T) {
	j := sampleJob("job-1", job.StatusCompleted)
	j.OutputReference = "pb-1"
	var out bytes.Buffer

	require.NoError(t, printJob(&out, &j, true))

	var got job.Job
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "job-1", got.ID)
	assert.Equal(t, job.StatusCompleted, got.Status)
	assert.Equal(t, "pb-1", got.OutputReference)
}

func TestPrintJob_Panel(t *testing.T) {
	j := sampleJob("job-2", job.StatusFailed)
	j.ErrorMessage = "Demo video not found"
	var out bytes.Buffer

	require.NoError(t, printJob(&out, &j, false))
	text := out.String()
	assert.Contains(t, text, "Job job-2")
	assert.Contains(t, text, "failed")
	assert.Contains(t, text, "user-1/avatar.mp4")
	assert.Contains(t, text, "Demo video not found")
}

func TestPrintJobList_Empty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printJobList(&out, nil, true))
	assert.Equal(t, "[]", strings.TrimSpace(out.String()))

	out.Reset()
	require.NoError(t, printJobList(&out, nil, false))
	assert.Contains(t, out.String(), "No jobs found")
}

func TestPrintJobList_Table(t *testing.T) {
	jobs := []job.Job{sampleJob("job-a", job.StatusProcessing), sampleJob("job-b", job.StatusCompleted)}
	jobs[1].OutputReference = "pb-b"
	var out bytes.Buffer

	require.NoError(t, printJobList(&out, jobs, false))
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "STATUS")
	assert.Contains(t, lines[1], "job-a")
	assert.Contains(t, lines[1], "processing")
	assert.Contains(t, lines[2], "pb-b")
}

func TestValueOr(t *testing.T) {
	assert.Equal(t, "x", valueOr("x", "-"))
	assert.Equal(t, "-", valueOr("", "-"))
}

func TestDeleteJob(t *testing.T) {
	ctx := context.Background()
	store, err := job.NewFileStore(t.TempDir())
	require.NoError(t, err)
	j := sampleJob("job-1", job.StatusCompleted)
	j.OutputReference = "pb-1"
	require.NoError(t, store.Create(ctx, &j))

	var out bytes.Buffer
	require.NoError(t, deleteJob(ctx, store, "job-1", &out, true))

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "job-1", got["id"])
	assert.Equal(t, true, got["deleted"])

	_, err = store.Get(ctx, "job-1")
	assert.True(t, job.IsNotFound(err))

	err = deleteJob(ctx, store, "job-1", &out, false)
	require.Error(t, err)
	assert.Equal(t, foundry.ExitFileNotFound, exitCodeOf(err))

	err = deleteJob(ctx, store, "../escape", &out, false)
	require.Error(t, err)
	assert.Equal(t, foundry.ExitInvalidArgument, exitCodeOf(err))
}
