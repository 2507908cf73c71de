package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clipscout-backend/internal/models"
	"clipscout-backend/internal/services"
)

const defaultRatingBatch = 50

type runRepository interface {
	Create(ctx context.Context, run *models.Run) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Run, error)
	List(ctx context.Context, kind string, limit int) ([]*models.Run, error)
}

type runQueue interface {
	Enqueue(ctx context.Context, run *models.Run) error
	EnqueueRating(ctx context.Context, maxItems int) (string, error)
	RequestStop(ctx context.Context, runID uuid.UUID) error
}

type RunHandler struct {
	runs  runRepository
	queue runQueue
}

func NewRunHandler(runs runRepository, queue runQueue) *RunHandler {
	return &RunHandler{runs: runs, queue: queue}
}

// StartCollection queues a collection run and returns it in the idle state.
func (h *RunHandler) StartCollection(w http.ResponseWriter, r *http.Request) {
	var req models.StartCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fields := map[string]string{}
	mode, err := models.ParseMode(req.Category)
	if err != nil {
		fields["category"] = "must be heartwarming, funny, traumatic or mixed"
	}
	if req.Target <= 0 {
		fields["target_count"] = "must be greater than zero"
	}
	if req.MaxAttempts < 0 {
		fields["max_attempts"] = "must not be negative"
	}
	if len(fields) > 0 {
		handleServiceError(w, r, &services.ValidationError{Fields: fields})
		return
	}
	req.Category = string(mode)

	cfg, _ := json.Marshal(req)
	run := &models.Run{Kind: models.RunKindCollection, ConfigJSON: cfg}
	if err := h.runs.Create(r.Context(), run); err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := h.queue.Enqueue(r.Context(), run); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, run)
}

// StartRating queues a rating batch. Only one rating run may be active.
func (h *RunHandler) StartRating(w http.ResponseWriter, r *http.Request) {
	req := models.StartRatingRequest{MaxItems: defaultRatingBatch}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.MaxItems <= 0 {
		handleServiceError(w, r, &services.ValidationError{Fields: map[string]string{"max_items": "must be greater than zero"}})
		return
	}

	runID, err := h.queue.EnqueueRating(r.Context(), req.MaxItems)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid run ID", r))
		return
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, run)
}

func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind != "" && kind != string(models.RunKindCollection) && kind != string(models.RunKindRating) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "kind must be collection or rating", r))
		return
	}
	limit, _ := pagination(r)

	runs, err := h.runs.List(r.Context(), kind, limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if runs == nil {
		runs = []*models.Run{}
	}

	writeJSON(w, http.StatusOK, runs)
}

// Stop asks the worker running the given run to stop at its next check.
func (h *RunHandler) Stop(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid run ID", r))
		return
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if run.Status.Terminal() {
		handleServiceError(w, r, &services.ConflictError{Message: "Run has already finished"})
		return
	}

	if err := h.queue.RequestStop(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Stop requested"})
}
