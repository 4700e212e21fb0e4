// Package hook writes short opening lines for product videos using a hosted
// language model.
package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/3leaps/ugcreel/pkg/poll"
)

const maxResponseBytes = 1 << 20

const systemPrompt = `You are an expert short-form video creator specializing in engaging hooks (the first 3 seconds of content).
Given a product or service description, write a short, attention-grabbing hook that works as the opening line of the video.
The hook should be 1-2 sentences maximum, conversational, and create curiosity or highlight a pain point.
Do not use hashtags or emojis. Make it sound natural and engaging.`

// Generator creates hooks through Replicate predictions.
type Generator struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger
}

// New validates cfg and builds a Generator.
func New(cfg Config, log *zap.Logger) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}, nil
}

type predictionInput struct {
	Prompt           string  `json:"prompt"`
	MaxTokens        int     `json:"max_tokens"`
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"top_p"`
	PresencePenalty  float64 `json:"presence_penalty"`
	FrequencyPenalty float64 `json:"frequency_penalty"`
}

type predictionRequest struct {
	Version string          `json:"version"`
	Input   predictionInput `json:"input"`
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  json.RawMessage `json:"error"`
}

func (p *prediction) terminal() bool {
	switch p.Status {
	case "succeeded", "failed", "canceled":
		return true
	}
	return false
}

// Generate returns a hook for the product description in prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	req := predictionRequest{
		Version: g.cfg.Model,
		Input: predictionInput{
			Prompt:      buildPrompt(prompt),
			MaxTokens:   g.cfg.MaxTokens,
			Temperature: g.cfg.Temperature,
			TopP:        1,
		},
	}
	var created prediction
	if err := g.do(ctx, "CreatePrediction", http.MethodPost, "/v1/predictions", req, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", &APIError{Op: "CreatePrediction", StatusCode: http.StatusOK, Body: "response has no prediction id"}
	}
	g.log.Debug("Prediction created", zap.String("prediction_id", created.ID), zap.String("status", created.Status))

	final := &created
	if !created.terminal() {
		var err error
		final, err = poll.Until(ctx, g.cfg.Poll, func(ctx context.Context, attempt int) (*prediction, bool, error) {
			var p prediction
			if err := g.do(ctx, "GetPrediction", http.MethodGet, "/v1/predictions/"+created.ID, nil, &p); err != nil {
				return nil, false, err
			}
			return &p, p.terminal(), nil
		})
		if err != nil {
			if errors.Is(err, poll.ErrExhausted) {
				return "", fmt.Errorf("%w: prediction %s: %v", ErrTimeout, created.ID, err)
			}
			return "", err
		}
	}

	if final.Status != "succeeded" {
		return "", &PredictionFailedError{ID: created.ID, Status: final.Status, Reason: rawString(final.Error)}
	}

	hook := CleanOutput(joinOutput(final.Output))
	if hook == "" {
		return "", ErrNoOutput
	}
	g.log.Info("Hook generated", zap.String("prediction_id", created.ID), zap.Int("length", len(hook)))
	return hook, nil
}

func buildPrompt(description string) string {
	return systemPrompt + "\n\nProduct/Service Description: " + description +
		"\n\nWrite a hook that's conversational and engaging."
}

func (g *Generator) do(ctx context.Context, op, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Token "+g.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return fmt.Errorf("replicate %s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

// joinOutput accepts a string or the streamed token array form.
func joinOutput(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var parts []string
	if err := json.Unmarshal(raw, &parts); err == nil {
		return strings.Join(parts, "")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// CleanOutput strips reasoning blocks and surrounding quotes from model
// output.
func CleanOutput(s string) string {
	s = thinkBlock.ReplaceAllString(s, "")
	if i := strings.Index(s, "<think>"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'“”")
	return strings.TrimSpace(s)
}
