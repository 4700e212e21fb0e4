// Package provider defines the seam between composition and the external
// video-processing service.
//
// Everything provider-specific (request shapes, auth headers, status strings)
// lives behind Client. Implementations translate one intent into one
// authenticated request and report remote assets in this package's terms, so
// a provider migration touches a single subpackage.
package provider

import (
	"context"
	"strings"
)

// Client creates and inspects remote assets.
//
// Implementations should:
//   - Receive credentials at construction, never from ambient lookups
//   - Return *RemoteProviderError for non-success HTTP responses
//   - Be safe for concurrent use
type Client interface {
	// CreateAsset ingests a single publicly fetchable source video.
	// Each successful call allocates a billable remote resource.
	CreateAsset(ctx context.Context, in AssetInput) (*RemoteAsset, error)

	// CreateCombinedAsset sequences previously created, ready assets into one
	// output. Assets play in slice order. Overlay may be nil.
	CreateCombinedAsset(ctx context.Context, assets []RemoteAsset, overlay *CaptionOverlay) (*RemoteAsset, error)

	// GetAsset fetches the current state of a remote asset.
	GetAsset(ctx context.Context, remoteID string) (*RemoteAsset, error)
}

// AssetStatus is the provider-reported lifecycle of a remote asset.
type AssetStatus string

const (
	AssetPreparing AssetStatus = "preparing"
	AssetReady     AssetStatus = "ready"
	AssetErrored   AssetStatus = "errored"
)

// Terminal reports whether the status will not change again.
func (s AssetStatus) Terminal() bool {
	return s == AssetReady || s == AssetErrored
}

// RemoteAsset is a provider-hosted representation of one ingested video.
// It is never persisted beyond one orchestration run.
type RemoteAsset struct {
	// ID is the provider-assigned identifier.
	ID string `json:"id"`

	// Status is the last observed lifecycle state.
	Status AssetStatus `json:"status"`

	// OutputHandle is the playback reference, present once ready.
	OutputHandle string `json:"output_handle,omitempty"`

	// ErrorReason carries the provider's explanation when errored.
	ErrorReason string `json:"error_reason,omitempty"`
}

// AssetInput describes one asset creation.
type AssetInput struct {
	// SourceURL is any publicly fetchable URL for a single source video.
	SourceURL string

	// Overlay is applied inline when the provider supports it. May be nil.
	Overlay *CaptionOverlay
}

// Anchor is the vertical placement of caption text.
type Anchor string

const (
	AnchorTop    Anchor = "top"
	AnchorMiddle Anchor = "middle"
	AnchorBottom Anchor = "bottom"
)

// CaptionOverlay describes caption text rendered onto video frames.
type CaptionOverlay struct {
	Text        string
	Position    Anchor
	FontFamily  string
	FontSize    int
	Color       string
	StrokeColor string
	StrokeWidth int
}

// Default caption styling (white text, black 2px stroke).
const (
	DefaultFontSize    = 24
	DefaultColor       = "white"
	DefaultStrokeColor = "black"
	DefaultStrokeWidth = 2
)

// NewCaptionOverlay returns an overlay with default styling, or nil when text
// is blank.
func NewCaptionOverlay(text string, position Anchor, fontFamily string) *CaptionOverlay {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if position == "" {
		position = AnchorBottom
	}
	if fontFamily == "" {
		fontFamily = "sans-serif"
	}
	return &CaptionOverlay{
		Text:        text,
		Position:    position,
		FontFamily:  fontFamily,
		FontSize:    DefaultFontSize,
		Color:       DefaultColor,
		StrokeColor: DefaultStrokeColor,
		StrokeWidth: DefaultStrokeWidth,
	}
}
