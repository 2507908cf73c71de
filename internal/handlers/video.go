package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"clipscout-backend/internal/models"
)

type videoRepository interface {
	ListPending(ctx context.Context, limit, offset int) ([]*models.PendingRecord, int, error)
	ListPromoted(ctx context.Context, category string, limit, offset int) ([]*models.PromotedVideo, int, error)
}

type momentRepository interface {
	ListByVideo(ctx context.Context, videoID string) ([]models.Moment, error)
}

type discardRepository interface {
	ListURLs(ctx context.Context) ([]string, error)
}

type queryRepository interface {
	DistinctQueries(ctx context.Context) ([]string, error)
}

type VideoHandler struct {
	videos   videoRepository
	moments  momentRepository
	discards discardRepository
	queries  queryRepository
}

func NewVideoHandler(videos videoRepository, moments momentRepository, discards discardRepository, queries queryRepository) *VideoHandler {
	return &VideoHandler{videos: videos, moments: moments, discards: discards, queries: queries}
}

func (h *VideoHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	items, total, err := h.videos.ListPending(r.Context(), limit, offset)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []*models.PendingRecord{}
	}
	writeJSON(w, http.StatusOK, pageResponse{Items: items, Total: total, Limit: limit, Offset: offset})
}

func (h *VideoHandler) ListPromoted(w http.ResponseWriter, r *http.Request) {
	category := strings.ToLower(r.URL.Query().Get("category"))
	if category != "" && !models.Category(category).Valid() {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Unknown category", r))
		return
	}

	limit, offset := pagination(r)
	items, total, err := h.videos.ListPromoted(r.Context(), category, limit, offset)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []*models.PromotedVideo{}
	}
	writeJSON(w, http.StatusOK, pageResponse{Items: items, Total: total, Limit: limit, Offset: offset})
}

func (h *VideoHandler) Moments(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	if videoID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Video ID is required", r))
		return
	}

	moments, err := h.moments.ListByVideo(r.Context(), videoID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if moments == nil {
		moments = []models.Moment{}
	}
	writeJSON(w, http.StatusOK, moments)
}

func (h *VideoHandler) ListDiscarded(w http.ResponseWriter, r *http.Request) {
	urls, err := h.discards.ListURLs(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if urls == nil {
		urls = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"urls": urls, "total": len(urls)})
}

func (h *VideoHandler) ListQueries(w http.ResponseWriter, r *http.Request) {
	queries, err := h.queries.DistinctQueries(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if queries == nil {
		queries = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"queries": queries, "total": len(queries)})
}
