// Package errors maps application errors to HTTP responses.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/3leaps/ugcreel/pkg/compose"
	"github.com/3leaps/ugcreel/pkg/hook"
	"github.com/3leaps/ugcreel/pkg/job"
	"github.com/3leaps/ugcreel/pkg/objectstore"
	"github.com/3leaps/ugcreel/pkg/provider"
)

// Error codes used in HTTP envelopes.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeJobNotFound        = "JOB_NOT_FOUND"
	CodeSourceUnresolvable = "SOURCE_UNRESOLVABLE"
	CodeRemoteProvider     = "REMOTE_PROVIDER_ERROR"
	CodeAssetFailed        = "ASSET_PROCESSING_FAILED"
	CodeAssetTimeout       = "ASSET_TIMEOUT"
	CodePersistence        = "PERSISTENCE_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

// AppError is an error with an HTTP status and stable code.
type AppError struct {
	Code    string
	Status  int
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the cause.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New builds an AppError without a cause.
func New(status int, code, message string) *AppError {
	return &AppError{Code: code, Status: status, Message: message}
}

// NewBadRequest reports malformed client input.
func NewBadRequest(message string, err error) *AppError {
	return &AppError{Code: CodeBadRequest, Status: http.StatusBadRequest, Message: message, Err: err}
}

// NewExternalServiceError reports an unavailable dependency.
func NewExternalServiceError(message string) *AppError {
	return &AppError{Code: CodeServiceUnavailable, Status: http.StatusServiceUnavailable, Message: message}
}

// WrapInternal wraps err as a 500 with the request id from ctx in details.
func WrapInternal(ctx context.Context, err error, message string) *AppError {
	e := &AppError{Code: CodeInternal, Status: http.StatusInternalServerError, Message: message, Err: err}
	if ctx != nil {
		if id := middleware.GetReqID(ctx); id != "" {
			e.Details = map[string]any{"request_id": id}
		}
	}
	return e
}

// ErrorBody is the inner error object of HTTPErrorResponse.
type ErrorBody struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// HTTPErrorResponse is the standard JSON error envelope.
type HTTPErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Classify maps any error onto an AppError. Unknown errors become 500.
func Classify(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	status, code := http.StatusInternalServerError, CodeInternal
	switch {
	case job.IsNotFound(err):
		status, code = http.StatusNotFound, CodeJobNotFound
	case stderrors.Is(err, job.ErrRequestValidation), stderrors.Is(err, job.ErrInvalidJob):
		status, code = http.StatusBadRequest, CodeValidation
	case objectstore.IsSourceUnresolvable(err):
		status, code = http.StatusUnprocessableEntity, CodeSourceUnresolvable
	case compose.IsPersistenceError(err):
		status, code = http.StatusInternalServerError, CodePersistence
	case provider.IsAssetTimeout(err), stderrors.Is(err, hook.ErrTimeout), stderrors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, CodeAssetTimeout
	case provider.IsAssetProcessingFailed(err):
		status, code = http.StatusBadGateway, CodeAssetFailed
	case provider.IsRemoteProviderError(err), hook.IsAPIError(err):
		status, code = http.StatusBadGateway, CodeRemoteProvider
	case stderrors.Is(err, hook.ErrEmptyPrompt):
		status, code = http.StatusBadRequest, CodeBadRequest
	}
	// Message stays empty so Error() reports the cause once.
	return &AppError{Code: code, Status: status, Err: err}
}

// RespondWithError writes the standard envelope for err.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := Classify(err)
	body := HTTPErrorResponse{Error: ErrorBody{
		Code:    appErr.Code,
		Message: appErr.Error(),
		Details: appErr.Details,
	}}
	if r != nil {
		body.Error.RequestID = middleware.GetReqID(r.Context())
	}
	WriteJSON(w, appErr.Status, body)
}

// WriteJSON writes v as JSON with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		_, _ = fmt.Fprintf(w, `{"error":{"code":%q,"message":"encode response"}}`, CodeInternal)
	}
}
