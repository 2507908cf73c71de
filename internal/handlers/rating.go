package handlers

import (
	"context"
	"errors"
	"net/http"

	"clipscout-backend/internal/models"
	"clipscout-backend/internal/services"
)

type pendingRater interface {
	RateNextPending(ctx context.Context) (*models.RatingOutcome, error)
}

type runLocker interface {
	Acquire(ctx context.Context, kind models.RunKind) (func(), error)
}

type RatingHandler struct {
	rater pendingRater
	locks runLocker
}

func NewRatingHandler(rater pendingRater, locks runLocker) *RatingHandler {
	return &RatingHandler{rater: rater, locks: locks}
}

// RateNext rates the oldest pending record synchronously while holding the
// rating lock, so it never overlaps a queued rating run or another request.
func (h *RatingHandler) RateNext(w http.ResponseWriter, r *http.Request) {
	if h.rater == nil {
		handleServiceError(w, r, services.ErrMissingCredential)
		return
	}
	if h.locks != nil {
		release, err := h.locks.Acquire(r.Context(), models.RunKindRating)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		defer release()
	}

	outcome, err := h.rater.RateNextPending(r.Context())
	if errors.Is(err, services.ErrNoPending) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}
