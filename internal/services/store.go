package services

import (
	"context"

	"clipscout-backend/internal/models"
)

// CollectionStore is the persistence surface used by the collection loop.
type CollectionStore interface {
	LoadKnownIDs(ctx context.Context) ([]string, error)
	LoadDiscardedURLs(ctx context.Context) ([]string, error)
	LoadUsedQueries(ctx context.Context) ([]string, error)
	AppendAcceptedRecord(ctx context.Context, rec *models.VideoRecord) error
	AppendUsedQuery(ctx context.Context, q *models.UsedQuery) error
}

// RatingStore is the persistence surface used by the rating stage.
// NextPendingRecord returns (nil, nil) when the queue is empty.
type RatingStore interface {
	NextPendingRecord(ctx context.Context) (*models.PendingRecord, error)
	DeletePendingRecord(ctx context.Context, rowID int64) error
	AppendDiscardedURL(ctx context.Context, url string) error
	AppendPromotedRecord(ctx context.Context, rec *models.VideoRecord, score *models.ScoreResult) error
	AppendMoments(ctx context.Context, rec *models.VideoRecord, moments []models.Moment) error
}
