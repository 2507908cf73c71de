package repository

import (
	"context"
	"fmt"
	"log/slog"

	"clipscout-backend/internal/models"
	"clipscout-backend/internal/ratelimit"
)

type pendingStore interface {
	InsertPending(ctx context.Context, rec *models.VideoRecord) (bool, error)
	NextPending(ctx context.Context) (*models.PendingRecord, error)
	DeletePending(ctx context.Context, rowID int64) error
	InsertPromoted(ctx context.Context, rec *models.VideoRecord, score *models.ScoreResult) error
	KnownIDs(ctx context.Context) ([]string, error)
}

type discardStore interface {
	Insert(ctx context.Context, url string) error
	ListURLs(ctx context.Context) ([]string, error)
}

type queryStore interface {
	Insert(ctx context.Context, q *models.UsedQuery) error
	DistinctQueries(ctx context.Context) ([]string, error)
}

type momentStore interface {
	InsertBatch(ctx context.Context, rec *models.VideoRecord, moments []models.Moment) error
}

type waiter interface {
	Wait(ctx context.Context) error
}

// Gateway is the rate-limited persistence surface used by the collector and
// the rater. Every call waits on the limiter before touching the database.
type Gateway struct {
	videos   pendingStore
	discards discardStore
	queries  queryStore
	moments  momentStore
	limiter  waiter
}

func NewGateway(videos *VideoRepo, discards *DiscardRepo, queries *QueryRepo, moments *MomentRepo, limiter *ratelimit.Limiter) *Gateway {
	return &Gateway{videos: videos, discards: discards, queries: queries, moments: moments, limiter: limiter}
}

func (g *Gateway) wait(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("store rate limit: %w", err)
	}
	return nil
}

func (g *Gateway) LoadKnownIDs(ctx context.Context) ([]string, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	return g.videos.KnownIDs(ctx)
}

func (g *Gateway) LoadDiscardedURLs(ctx context.Context) ([]string, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	return g.discards.ListURLs(ctx)
}

func (g *Gateway) LoadUsedQueries(ctx context.Context) ([]string, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	return g.queries.DistinctQueries(ctx)
}

func (g *Gateway) AppendAcceptedRecord(ctx context.Context, rec *models.VideoRecord) error {
	if err := g.wait(ctx); err != nil {
		return err
	}
	inserted, err := g.videos.InsertPending(ctx, rec)
	if err != nil {
		return fmt.Errorf("failed to insert pending video %s: %w", rec.VideoID, err)
	}
	if !inserted {
		slog.Debug("video already pending", slog.String("video_id", rec.VideoID))
	}
	return nil
}

func (g *Gateway) AppendUsedQuery(ctx context.Context, q *models.UsedQuery) error {
	if err := g.wait(ctx); err != nil {
		return err
	}
	return g.queries.Insert(ctx, q)
}

func (g *Gateway) NextPendingRecord(ctx context.Context) (*models.PendingRecord, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	return g.videos.NextPending(ctx)
}

func (g *Gateway) DeletePendingRecord(ctx context.Context, rowID int64) error {
	if err := g.wait(ctx); err != nil {
		return err
	}
	return g.videos.DeletePending(ctx, rowID)
}

func (g *Gateway) AppendDiscardedURL(ctx context.Context, url string) error {
	if err := g.wait(ctx); err != nil {
		return err
	}
	return g.discards.Insert(ctx, url)
}

func (g *Gateway) AppendPromotedRecord(ctx context.Context, rec *models.VideoRecord, score *models.ScoreResult) error {
	if err := g.wait(ctx); err != nil {
		return err
	}
	return g.videos.InsertPromoted(ctx, rec, score)
}

func (g *Gateway) AppendMoments(ctx context.Context, rec *models.VideoRecord, moments []models.Moment) error {
	if len(moments) == 0 {
		return nil
	}
	if err := g.wait(ctx); err != nil {
		return err
	}
	return g.moments.InsertBatch(ctx, rec, moments)
}
