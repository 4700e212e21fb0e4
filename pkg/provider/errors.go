package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for remote asset operations.
var (
	// ErrRemoteProvider indicates the provider rejected a request.
	ErrRemoteProvider = errors.New("remote provider error")

	// ErrAssetProcessingFailed indicates the provider declared an asset broken.
	ErrAssetProcessingFailed = errors.New("asset processing failed")

	// ErrAssetTimeout indicates polling gave up before the asset was ready.
	ErrAssetTimeout = errors.New("asset readiness timeout")

	// ErrInvalidInput indicates a request was rejected before any remote call.
	ErrInvalidInput = errors.New("invalid provider input")
)

// RemoteProviderError reports a non-success response from the provider.
//
// Body holds the provider's raw response body for diagnostics. Err is set
// instead of StatusCode when the request never produced a response.
type RemoteProviderError struct {
	// Op is the client operation that failed (e.g., "CreateAsset").
	Op string

	// Provider names the backend (e.g., "mux").
	Provider string

	// StatusCode is the HTTP status, zero for transport failures.
	StatusCode int

	// Body is the raw response body.
	Body string

	// Err is the underlying transport or decode error, if any.
	Err error
}

// Error implements the error interface.
func (e *RemoteProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %s", e.Provider, e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

// Unwrap returns the transport error when present.
func (e *RemoteProviderError) Unwrap() error {
	return e.Err
}

// Is matches ErrRemoteProvider.
func (e *RemoteProviderError) Is(target error) bool {
	return target == ErrRemoteProvider
}

// Retryable reports whether the failure is plausibly transient. Callers must
// still check for an already-created resource before retrying a create.
func (e *RemoteProviderError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// AssetProcessingFailedError reports an asset the provider marked errored.
type AssetProcessingFailedError struct {
	RemoteID string
	Reason   string
}

// Error implements the error interface.
func (e *AssetProcessingFailedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("asset %s: processing failed: %s", e.RemoteID, e.Reason)
	}
	return fmt.Sprintf("asset %s: processing failed", e.RemoteID)
}

// Is matches ErrAssetProcessingFailed.
func (e *AssetProcessingFailedError) Is(target error) bool {
	return target == ErrAssetProcessingFailed
}

// AssetTimeoutError reports that polling was exhausted.
type AssetTimeoutError struct {
	RemoteID string
	Attempts int
}

// Error implements the error interface.
func (e *AssetTimeoutError) Error() string {
	return fmt.Sprintf("asset %s: readiness timeout after %d attempts", e.RemoteID, e.Attempts)
}

// Is matches ErrAssetTimeout.
func (e *AssetTimeoutError) Is(target error) bool {
	return target == ErrAssetTimeout
}

// IsRemoteProviderError returns true if the provider rejected a request.
func IsRemoteProviderError(err error) bool {
	return errors.Is(err, ErrRemoteProvider)
}

// IsAssetProcessingFailed returns true if the provider declared an asset broken.
func IsAssetProcessingFailed(err error) bool {
	return errors.Is(err, ErrAssetProcessingFailed)
}

// IsAssetTimeout returns true if readiness polling was exhausted.
func IsAssetTimeout(err error) bool {
	return errors.Is(err, ErrAssetTimeout)
}
