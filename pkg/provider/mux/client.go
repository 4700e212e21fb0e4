package mux

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/3leaps/ugcreel/pkg/provider"
)

const providerName = "mux"

// maxBodyBytes caps how much of a response is read, including error bodies.
const maxBodyBytes = 1 << 20

// Client implements provider.Client for Mux Video.
type Client struct {
	http    *http.Client
	baseURL string
	auth    string
	policy  string
	test    bool
}

var _ provider.Client = (*Client)(nil)

// New creates a Mux client from explicit configuration.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	policy := cfg.PlaybackPolicy
	if policy == "" {
		policy = DefaultPlaybackPolicy
	}

	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		auth:    "Basic " + base64.StdEncoding.EncodeToString([]byte(cfg.TokenID+":"+cfg.TokenSecret)),
		policy:  policy,
		test:    cfg.Test,
	}, nil
}

// CreateAsset ingests one source URL, attaching the overlay inline.
func (c *Client) CreateAsset(ctx context.Context, in provider.AssetInput) (*provider.RemoteAsset, error) {
	if strings.TrimSpace(in.SourceURL) == "" {
		return nil, fmt.Errorf("%w: source url is required", provider.ErrInvalidInput)
	}
	req := createAssetRequest{
		Input:          []inputSettings{{URL: in.SourceURL, Overlay: overlaySettings(in.Overlay)}},
		PlaybackPolicy: []string{c.policy},
		Test:           c.test,
	}
	return c.createAsset(ctx, "CreateAsset", req)
}

// CreateCombinedAsset concatenates existing assets in slice order by
// referencing them as mux://assets/<id> inputs.
func (c *Client) CreateCombinedAsset(ctx context.Context, assets []provider.RemoteAsset, overlay *provider.CaptionOverlay) (*provider.RemoteAsset, error) {
	if len(assets) == 0 {
		return nil, fmt.Errorf("%w: at least one asset is required", provider.ErrInvalidInput)
	}

	inputs := make([]inputSettings, 0, len(assets))
	for i, a := range assets {
		if a.ID == "" {
			return nil, fmt.Errorf("%w: asset %d has no id", provider.ErrInvalidInput, i)
		}
		if a.Status != provider.AssetReady {
			return nil, fmt.Errorf("%w: asset %s is %s, not ready", provider.ErrInvalidInput, a.ID, a.Status)
		}
		inputs = append(inputs, inputSettings{URL: "mux://assets/" + a.ID})
	}
	inputs[0].Overlay = overlaySettings(overlay)

	req := createAssetRequest{
		Input:          inputs,
		PlaybackPolicy: []string{c.policy},
		Test:           c.test,
	}
	return c.createAsset(ctx, "CreateCombinedAsset", req)
}

// GetAsset fetches the current state of an asset.
func (c *Client) GetAsset(ctx context.Context, remoteID string) (*provider.RemoteAsset, error) {
	if remoteID == "" {
		return nil, fmt.Errorf("%w: remote id is required", provider.ErrInvalidInput)
	}
	body, err := c.do(ctx, "GetAsset", http.MethodGet, "/video/v1/assets/"+url.PathEscape(remoteID), nil)
	if err != nil {
		return nil, err
	}
	return decodeAsset("GetAsset", body)
}

func (c *Client) createAsset(ctx context.Context, op string, req createAssetRequest) (*provider.RemoteAsset, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", op, err)
	}
	body, err := c.do(ctx, op, http.MethodPost, "/video/v1/assets", payload)
	if err != nil {
		return nil, err
	}
	return decodeAsset(op, body)
}

func (c *Client) do(ctx context.Context, op, method, path string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, &provider.RemoteProviderError{Op: op, Provider: providerName, Err: err}
	}
	req.Header.Set("Authorization", c.auth)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &provider.RemoteProviderError{Op: op, Provider: providerName, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &provider.RemoteProviderError{Op: op, Provider: providerName, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &provider.RemoteProviderError{
			Op:         op,
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return body, nil
}

func decodeAsset(op string, body []byte) (*provider.RemoteAsset, error) {
	var env assetEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &provider.RemoteProviderError{Op: op, Provider: providerName, Err: fmt.Errorf("decode response: %w", err)}
	}
	if env.Data.ID == "" {
		return nil, &provider.RemoteProviderError{Op: op, Provider: providerName, Err: fmt.Errorf("response has no asset id: %s", strings.TrimSpace(string(body)))}
	}

	asset := &provider.RemoteAsset{
		ID:     env.Data.ID,
		Status: mapStatus(env.Data.Status),
	}
	if len(env.Data.PlaybackIDs) > 0 {
		asset.OutputHandle = env.Data.PlaybackIDs[0].ID
	}
	if env.Data.Errors != nil {
		asset.ErrorReason = strings.Join(env.Data.Errors.Messages, "; ")
		if asset.ErrorReason == "" {
			asset.ErrorReason = env.Data.Errors.Type
		}
	}
	return asset, nil
}

func mapStatus(s string) provider.AssetStatus {
	switch s {
	case "ready":
		return provider.AssetReady
	case "errored":
		return provider.AssetErrored
	default:
		return provider.AssetPreparing
	}
}

// overlaySettings renders a caption as an ffmpeg-style drawtext description.
func overlaySettings(o *provider.CaptionOverlay) *overlay {
	if o == nil || strings.TrimSpace(o.Text) == "" {
		return nil
	}
	return &overlay{Text: []textOverlay{{
		Text:        o.Text,
		X:           "(w-tw)/2",
		Y:           anchorY(o.Position),
		FontFamily:  o.FontFamily,
		FontSize:    strconv.Itoa(o.FontSize),
		Color:       o.Color,
		StrokeColor: o.StrokeColor,
		StrokeWidth: strconv.Itoa(o.StrokeWidth),
	}}}
}

func anchorY(a provider.Anchor) string {
	switch a {
	case provider.AnchorTop:
		return "10"
	case provider.AnchorMiddle:
		return "(h-th)/2"
	default:
		return "h-th-10"
	}
}
