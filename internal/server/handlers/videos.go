package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/3leaps/ugcreel/internal/errors"
	"github.com/3leaps/ugcreel/pkg/job"
)

// MaxListLimit caps GET /v1/videos page size.
const MaxListLimit = 200

// DefaultListLimit applies when ?limit is absent.
const DefaultListLimit = 50

type listResponse struct {
	Videos []job.Job `json:"videos"`
	Count  int       `json:"count"`
}

// VideosHandler exposes the job store to the editor and library views.
type VideosHandler struct {
	store job.Store
	now   func() time.Time
	newID func() string
	log   *zap.Logger
}

// NewVideosHandler builds the /v1/videos handlers.
func NewVideosHandler(store job.Store, log *zap.Logger) *VideosHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &VideosHandler{store: store, now: time.Now, newID: uuid.NewString, log: log}
}

// Routes mounts the handlers on r.
func (h *VideosHandler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)
}

// Create accepts a video request (JSON or YAML) and stores a processing job.
func (h *VideosHandler) Create(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondWithError(w, r, apperrors.NewBadRequest("read request body", err))
		return
	}

	req, err := job.ParseRequest(data, requestFormatHint(r))
	if err != nil {
		if !errors.Is(err, job.ErrRequestValidation) {
			err = apperrors.NewBadRequest("invalid video request", err)
		}
		respondWithError(w, r, err)
		return
	}

	j := req.NewJob(h.newID(), h.now())
	if err := h.store.Create(r.Context(), j); err != nil {
		respondWithError(w, r, apperrors.WrapInternal(r.Context(), err, "create job"))
		return
	}

	h.log.Info("Job created", zap.String("job_id", j.ID), zap.Bool("has_demo", j.HasDemo()))
	w.Header().Set("Location", "/v1/videos/"+j.ID)
	apperrors.WriteJSON(w, http.StatusCreated, j)
}

// List returns jobs newest first, filtered by ?status and capped by ?limit.
func (h *VideosHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := job.ListOptions{Limit: DefaultListLimit}

	if s := r.URL.Query().Get("status"); s != "" {
		status := job.Status(s)
		if !status.Valid() {
			respondWithError(w, r, apperrors.NewBadRequest("unknown status "+strconv.Quote(s), nil))
			return
		}
		opts.Status = status
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			respondWithError(w, r, apperrors.NewBadRequest("limit must be a positive integer", err))
			return
		}
		opts.Limit = min(n, MaxListLimit)
	}

	jobs, err := h.store.List(r.Context(), opts)
	if err != nil {
		respondWithError(w, r, apperrors.WrapInternal(r.Context(), err, "list jobs"))
		return
	}
	if jobs == nil {
		jobs = []job.Job{}
	}
	apperrors.WriteJSON(w, http.StatusOK, listResponse{Videos: jobs, Count: len(jobs)})
}

// Get returns one job.
func (h *VideosHandler) Get(w http.ResponseWriter, r *http.Request) {
	j, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	apperrors.WriteJSON(w, http.StatusOK, j)
}

// Delete removes one job. Mux assets and stored clips are left in place.
func (h *VideosHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		respondWithError(w, r, err)
		return
	}
	h.log.Info("Job deleted", zap.String("job_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// requestFormatHint maps Content-Type to a file name ParseRequest understands.
func requestFormatHint(r *http.Request) string {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mt {
	case "application/json":
		return "request.json"
	case "application/yaml", "application/x-yaml", "text/yaml":
		return "request.yaml"
	}
	return ""
}
