package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/3leaps/ugcreel/internal/errors"
	"github.com/3leaps/ugcreel/pkg/compose"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// HookGenerator produces caption hook text from a description.
type HookGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type combineRequest struct {
	VideoID string `json:"videoId"`
}

type combineResponse struct {
	Success         bool   `json:"success"`
	OutputReference string `json:"outputReference"`
	JobID           string `json:"jobId"`
}

// FunctionError is the error body of the /functions endpoints.
type FunctionError struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Code      string `json:"code"`
	Stage     string `json:"stage,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// CombineVideosHandler triggers one composition run per request.
type CombineVideosHandler struct {
	runner  compose.Runner
	timeout time.Duration
	log     *zap.Logger
}

// NewCombineVideosHandler builds the trigger. timeout <= 0 leaves the
// request context unbounded.
func NewCombineVideosHandler(runner compose.Runner, timeout time.Duration, log *zap.Logger) *CombineVideosHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CombineVideosHandler{runner: runner, timeout: timeout, log: log}
}

// ServeHTTP implements http.Handler.
func (h *CombineVideosHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req combineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFunctionError(w, r, apperrors.NewBadRequest("invalid request body", err))
		return
	}
	req.VideoID = strings.TrimSpace(req.VideoID)
	if req.VideoID == "" {
		writeFunctionError(w, r, apperrors.NewBadRequest("videoId is required", nil))
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	h.log.Info("Processing video", zap.String("job_id", req.VideoID), zap.String("request_id", chimw.GetReqID(ctx)))
	res, err := h.runner.Run(ctx, req.VideoID)
	if err != nil {
		writeFunctionError(w, r, err)
		return
	}

	apperrors.WriteJSON(w, http.StatusOK, combineResponse{
		Success:         true,
		OutputReference: res.OutputReference,
		JobID:           res.JobID,
	})
}

type hookRequest struct {
	Prompt string `json:"prompt"`
}

type hookResponse struct {
	Hook string `json:"hook"`
}

// GenerateHookHandler serves hook text generation.
type GenerateHookHandler struct {
	gen HookGenerator
	log *zap.Logger
}

// NewGenerateHookHandler builds the hook endpoint.
func NewGenerateHookHandler(gen HookGenerator, log *zap.Logger) *GenerateHookHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &GenerateHookHandler{gen: gen, log: log}
}

// ServeHTTP implements http.Handler.
func (h *GenerateHookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !isJSON(r) {
		writeFunctionError(w, r, apperrors.NewBadRequest("invalid content type, expected application/json", nil))
		return
	}
	var req hookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFunctionError(w, r, apperrors.NewBadRequest("invalid request body", err))
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeFunctionError(w, r, apperrors.NewBadRequest("prompt is required", nil))
		return
	}

	text, err := h.gen.Generate(r.Context(), req.Prompt)
	if err != nil {
		h.log.Warn("Hook generation failed", zap.Error(err))
		writeFunctionError(w, r, err)
		return
	}
	apperrors.WriteJSON(w, http.StatusOK, hookResponse{Hook: text})
}

func writeFunctionError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.Classify(err)
	body := FunctionError{
		Error:     appErr.Error(),
		Code:      appErr.Code,
		RequestID: chimw.GetReqID(r.Context()),
	}
	if stage := compose.FailedStage(err); stage != "" {
		body.Stage = string(stage)
	}
	apperrors.WriteJSON(w, appErr.Status, body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}
