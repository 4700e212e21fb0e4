package hook

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPrompt indicates no product description was given.
	ErrEmptyPrompt = errors.New("prompt is required")

	// ErrNoOutput indicates the prediction succeeded with empty output.
	ErrNoOutput = errors.New("no hook generated")

	// ErrTimeout indicates the prediction did not finish in time.
	ErrTimeout = errors.New("hook generation timed out")
)

// APIError is a non-success response from the prediction API.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("replicate %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("replicate %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// PredictionFailedError reports a prediction that ended failed or canceled.
type PredictionFailedError struct {
	ID     string
	Status string
	Reason string
}

// Error implements the error interface.
func (e *PredictionFailedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("prediction %s %s", e.ID, e.Status)
	}
	return fmt.Sprintf("prediction %s %s: %s", e.ID, e.Status, e.Reason)
}

// IsAPIError returns true if err contains an *APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
