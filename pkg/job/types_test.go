package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validJob(id string) *Job {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &Job{
		ID:              id,
		AvatarPath:      "user-1/avatar.mp4",
		CaptionPosition: PositionBottom,
		CaptionFont:     FontSans,
		Status:          StatusProcessing,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, Status("queued").Valid())
}

func TestCaptionFont_Family(t *testing.T) {
	assert.Equal(t, "sans-serif", FontSans.Family())
	assert.Equal(t, "serif", FontSerif.Family())
	assert.Equal(t, "monospace", FontMono.Family())
	assert.Equal(t, "sans-serif", CaptionFont("").Family())
}

func TestJob_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(j *Job)
		wantErr string
	}{
		{name: "valid", mutate: func(j *Job) {}},
		{name: "missing id", mutate: func(j *Job) { j.ID = " " }, wantErr: "id is required"},
		{name: "missing avatar", mutate: func(j *Job) { j.AvatarPath = "" }, wantErr: "avatar path is required"},
		{name: "bad status", mutate: func(j *Job) { j.Status = "queued" }, wantErr: "unknown status"},
		{name: "bad position", mutate: func(j *Job) { j.CaptionPosition = "left" }, wantErr: "unknown caption position"},
		{name: "bad font", mutate: func(j *Job) { j.CaptionFont = "comic" }, wantErr: "unknown font style"},
		{name: "processing with output", mutate: func(j *Job) { j.OutputReference = "pb-1" }, wantErr: "must not carry results"},
		{name: "completed without output", mutate: func(j *Job) { j.Status = StatusCompleted }, wantErr: "requires an output reference"},
		{name: "completed", mutate: func(j *Job) { j.Status = StatusCompleted; j.OutputReference = "pb-1" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := validJob("job-1")
			tt.mutate(j)
			err := j.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidJob)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestJob_HasDemo(t *testing.T) {
	j := validJob("job-1")
	assert.False(t, j.HasDemo())
	j.DemoPath = "   "
	assert.False(t, j.HasDemo())
	j.DemoPath = "user-1/demo.mp4"
	assert.True(t, j.HasDemo())
}

func TestUpdate_Validate(t *testing.T) {
	assert.NoError(t, Completed("pb-1").Validate())
	assert.NoError(t, Failed("boom").Validate())

	assert.ErrorIs(t, Completed("").Validate(), ErrInvalidUpdate)
	assert.ErrorIs(t, Failed("").Validate(), ErrInvalidUpdate)
	assert.ErrorIs(t, Update{Status: StatusProcessing}.Validate(), ErrInvalidUpdate)
	assert.ErrorIs(t, Update{Status: StatusCompleted, OutputReference: "pb", ErrorMessage: "x"}.Validate(), ErrInvalidUpdate)
	assert.ErrorIs(t, Update{Status: StatusFailed, OutputReference: "pb", ErrorMessage: "x"}.Validate(), ErrInvalidUpdate)
	assert.ErrorIs(t, Update{Status: "done"}.Validate(), ErrInvalidUpdate)
}
