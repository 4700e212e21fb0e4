// Package job persists video composition jobs.
//
// A job is created once in StatusProcessing by the editor and moved to a
// terminal status exactly once by the composition orchestrator.
package job

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a job.
//
// NOTE: These values are persisted and are part of the stable storage
// contract shared with the web editor.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// CaptionPosition anchors caption text vertically.
type CaptionPosition string

const (
	PositionTop    CaptionPosition = "top"
	PositionMiddle CaptionPosition = "middle"
	PositionBottom CaptionPosition = "bottom"
)

// Valid reports whether p is a known position.
func (p CaptionPosition) Valid() bool {
	switch p {
	case PositionTop, PositionMiddle, PositionBottom:
		return true
	}
	return false
}

// CaptionFont is the editor's font style choice.
type CaptionFont string

const (
	FontSans  CaptionFont = "sans"
	FontSerif CaptionFont = "serif"
	FontMono  CaptionFont = "mono"
)

// Valid reports whether f is a known font style.
func (f CaptionFont) Valid() bool {
	switch f {
	case FontSans, FontSerif, FontMono:
		return true
	}
	return false
}

// Family maps the font style to a generic CSS/ffmpeg font family.
func (f CaptionFont) Family() string {
	switch f {
	case FontSerif:
		return "serif"
	case FontMono:
		return "monospace"
	default:
		return "sans-serif"
	}
}

// Errors returned by stores.
var (
	// ErrNotFound indicates no job exists with the requested id.
	ErrNotFound = errors.New("job not found")

	// ErrInvalidUpdate indicates an update would violate job invariants.
	ErrInvalidUpdate = errors.New("invalid job update")

	// ErrInvalidJob indicates a job is missing required fields.
	ErrInvalidJob = errors.New("invalid job")
)

// IsNotFound returns true if the error indicates a missing job.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Job is one user request to produce a combined video.
type Job struct {
	ID         string `json:"id"`
	AvatarPath string `json:"avatar_video_path"`
	DemoPath   string `json:"demo_video_path,omitempty"`

	CaptionText     string          `json:"hook_text,omitempty"`
	CaptionPosition CaptionPosition `json:"hook_position"`
	CaptionFont     CaptionFont     `json:"font_style"`

	Status          Status `json:"status"`
	OutputReference string `json:"combined_video_path,omitempty"`
	ErrorMessage    string `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasDemo reports whether the job appends a demo clip.
func (j *Job) HasDemo() bool {
	return strings.TrimSpace(j.DemoPath) != ""
}

// Validate checks required fields and enum values.
func (j *Job) Validate() error {
	if j == nil {
		return fmt.Errorf("%w: job is nil", ErrInvalidJob)
	}
	if strings.TrimSpace(j.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidJob)
	}
	if strings.TrimSpace(j.AvatarPath) == "" {
		return fmt.Errorf("%w: avatar path is required", ErrInvalidJob)
	}
	if !j.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidJob, j.Status)
	}
	if !j.CaptionPosition.Valid() {
		return fmt.Errorf("%w: unknown caption position %q", ErrInvalidJob, j.CaptionPosition)
	}
	if !j.CaptionFont.Valid() {
		return fmt.Errorf("%w: unknown font style %q", ErrInvalidJob, j.CaptionFont)
	}
	return Update{Status: j.Status, OutputReference: j.OutputReference, ErrorMessage: j.ErrorMessage}.check(true)
}

// Update is a terminal state write.
type Update struct {
	Status          Status
	OutputReference string
	ErrorMessage    string
}

// Completed builds the success update.
func Completed(outputReference string) Update {
	return Update{Status: StatusCompleted, OutputReference: outputReference}
}

// Failed builds the failure update.
func Failed(message string) Update {
	return Update{Status: StatusFailed, ErrorMessage: message}
}

// Validate enforces: output reference set iff completed, error message only
// when failed, and the target status is terminal.
func (u Update) Validate() error {
	return u.check(false)
}

func (u Update) check(allowProcessing bool) error {
	switch u.Status {
	case StatusCompleted:
		if strings.TrimSpace(u.OutputReference) == "" {
			return fmt.Errorf("%w: completed requires an output reference", ErrInvalidUpdate)
		}
		if u.ErrorMessage != "" {
			return fmt.Errorf("%w: completed must not carry an error message", ErrInvalidUpdate)
		}
	case StatusFailed:
		if strings.TrimSpace(u.ErrorMessage) == "" {
			return fmt.Errorf("%w: failed requires an error message", ErrInvalidUpdate)
		}
		if u.OutputReference != "" {
			return fmt.Errorf("%w: failed must not carry an output reference", ErrInvalidUpdate)
		}
	case StatusProcessing:
		if !allowProcessing {
			return fmt.Errorf("%w: target status must be terminal", ErrInvalidUpdate)
		}
		if u.OutputReference != "" || u.ErrorMessage != "" {
			return fmt.Errorf("%w: processing job must not carry results", ErrInvalidUpdate)
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidUpdate, u.Status)
	}
	return nil
}

// apply mutates j in place.
func (u Update) apply(j *Job, now time.Time) {
	j.Status = u.Status
	j.OutputReference = u.OutputReference
	j.ErrorMessage = u.ErrorMessage
	j.UpdatedAt = now
}
