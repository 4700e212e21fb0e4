package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/3leaps/ugcreel/pkg/poll"
)

// AwaitReady polls GetAsset until the asset is ready.
//
// It returns the first ready asset without further calls, fails with
// *AssetProcessingFailedError on the first errored response, and fails with
// *AssetTimeoutError after cfg.MaxAttempts non-terminal polls. Errors from
// GetAsset abort immediately. Cancellation of ctx interrupts the wait.
func AwaitReady(ctx context.Context, client Client, remoteID string, cfg poll.Config) (*RemoteAsset, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: client is nil", ErrInvalidInput)
	}
	if remoteID == "" {
		return nil, fmt.Errorf("%w: remote id is required", ErrInvalidInput)
	}

	asset, err := poll.Until(ctx, cfg, func(ctx context.Context, attempt int) (*RemoteAsset, bool, error) {
		a, err := client.GetAsset(ctx, remoteID)
		if err != nil {
			return nil, false, err
		}
		switch a.Status {
		case AssetReady:
			return a, true, nil
		case AssetErrored:
			return a, false, &AssetProcessingFailedError{RemoteID: remoteID, Reason: a.ErrorReason}
		default:
			return a, false, nil
		}
	})
	if err != nil {
		var exhausted *poll.ExhaustedError
		if errors.As(err, &exhausted) {
			return asset, &AssetTimeoutError{RemoteID: remoteID, Attempts: exhausted.Attempts}
		}
		return asset, err
	}
	return asset, nil
}
