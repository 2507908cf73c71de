package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"clipscout-backend/internal/models"
)

var videoIDRe = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/|youtube\.com/shorts/)([^&\n?#/]+)`)

// ExtractVideoID pulls the id out of a watch, short or embed URL.
func ExtractVideoID(url string) string {
	m := videoIDRe.FindStringSubmatch(url)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// CommentAnalyzer is satisfied by *CommentMiner.
type CommentAnalyzer interface {
	FetchAndAnalyze(ctx context.Context, videoID string, category models.Category, maxComments int) (*models.CommentAnalysis, error)
}

type RaterConfig struct {
	PromotionThreshold float64
	MaxComments        int
}

func DefaultRaterConfig() RaterConfig {
	return RaterConfig{PromotionThreshold: 6.5, MaxComments: defaultCommentLimit}
}

// Rater moves pending records to promoted or discarded. Every record it
// reads is rated at most once: its URL is discarded before the pending row
// is deleted, whatever the score.
type Rater struct {
	store  RatingStore
	meta   MetadataFetcher // optional; refreshes stats and description
	miner  CommentAnalyzer
	scorer *CategoryScorer
	cfg    RaterConfig
}

func NewRater(store RatingStore, meta MetadataFetcher, miner CommentAnalyzer, scorer *CategoryScorer, cfg RaterConfig) *Rater {
	return &Rater{store: store, meta: meta, miner: miner, scorer: scorer, cfg: cfg}
}

// RateNextPending rates the oldest pending record. It returns ErrNoPending
// when the queue is empty. Fatal upstream errors leave the row in place.
func (r *Rater) RateNextPending(ctx context.Context) (*models.RatingOutcome, error) {
	pending, err := r.store.NextPendingRecord(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read pending record: %w", err)
	}
	if pending == nil {
		return nil, ErrNoPending
	}

	rec := pending.Record
	if rec.VideoID == "" {
		rec.VideoID = ExtractVideoID(rec.URL)
	}
	if rec.URL == "" && rec.VideoID != "" {
		rec.URL = models.WatchURL(rec.VideoID)
	}
	log := slog.With(slog.Int64("row_id", pending.RowID), slog.String("video_id", rec.VideoID))

	if rec.VideoID == "" {
		log.Warn("pending record has no resolvable video id")
		return r.discard(ctx, pending.RowID, &rec, "unresolvable video id")
	}
	if !rec.Category.Valid() {
		log.Warn("pending record has unknown category", slog.String("category", string(rec.Category)))
		return r.discard(ctx, pending.RowID, &rec, "unknown category "+string(rec.Category))
	}

	input := ScoreInput{
		Title:        rec.Title,
		ViewCount:    rec.ViewCount,
		LikeCount:    rec.LikeCount,
		CommentCount: rec.CommentCount,
	}
	if r.meta != nil {
		meta, err := r.meta.GetVideoMetadata(ctx, rec.VideoID)
		switch {
		case err == nil:
			input.Title = meta.Title
			input.Description = meta.Description
			input.ViewCount = meta.ViewCount
			input.LikeCount = meta.LikeCount
			input.CommentCount = meta.CommentCount
		case IsFatal(err):
			return nil, err
		default:
			log.Warn("metadata refresh failed", slog.Any("error", err))
			return r.discard(ctx, pending.RowID, &rec, err.Error())
		}
	}

	analysis, err := r.miner.FetchAndAnalyze(ctx, rec.VideoID, rec.Category, r.cfg.MaxComments)
	if err != nil {
		if IsFatal(err) || ctx.Err() != nil {
			return nil, err
		}
		log.Warn("comment analysis failed", slog.Any("error", err))
		return r.discard(ctx, pending.RowID, &rec, err.Error())
	}

	input.Comments = analysis.Texts()
	input.Moments = analysis.Moments
	score := r.scorer.Score(input, rec.Category)

	outcome := &models.RatingOutcome{
		Record:   rec,
		Score:    score,
		Promoted: score.FinalScore >= r.cfg.PromotionThreshold,
		Comments: len(analysis.Comments),
	}

	if err := r.retire(ctx, pending.RowID, &rec); err != nil {
		return nil, err
	}

	if outcome.Promoted {
		if err := r.store.AppendPromotedRecord(ctx, &rec, score); err != nil {
			return nil, fmt.Errorf("failed to promote %s: %w", rec.VideoID, err)
		}
		if len(score.Moments) > 0 {
			if err := r.store.AppendMoments(ctx, &rec, score.Moments); err != nil {
				return nil, fmt.Errorf("failed to save moments for %s: %w", rec.VideoID, err)
			}
		}
		metrics.VideosPromoted.Add(1)
	} else {
		metrics.VideosDiscarded.Add(1)
	}

	log.Info("video rated",
		slog.Float64("score", score.FinalScore),
		slog.Float64("confidence", score.Confidence),
		slog.Bool("promoted", outcome.Promoted),
		slog.Int("comments", outcome.Comments),
		slog.Int("moments", len(score.Moments)),
	)
	return outcome, nil
}

// retire marks the URL discarded, then removes the pending row.
func (r *Rater) retire(ctx context.Context, rowID int64, rec *models.VideoRecord) error {
	if rec.URL != "" {
		if err := r.store.AppendDiscardedURL(ctx, rec.URL); err != nil {
			return fmt.Errorf("failed to record discarded url: %w", err)
		}
	}
	if err := r.store.DeletePendingRecord(ctx, rowID); err != nil {
		return fmt.Errorf("failed to delete pending row %d: %w", rowID, err)
	}
	return nil
}

func (r *Rater) discard(ctx context.Context, rowID int64, rec *models.VideoRecord, reason string) (*models.RatingOutcome, error) {
	if err := r.retire(ctx, rowID, rec); err != nil {
		return nil, err
	}
	metrics.VideosDiscarded.Add(1)
	return &models.RatingOutcome{Record: *rec, Error: reason}, nil
}

type RatingSummary struct {
	Rated      int               `json:"rated"`
	Promoted   int               `json:"promoted"`
	Discarded  int               `json:"discarded"`
	Errors     int               `json:"errors"`
	State      models.RunState   `json:"state"`
	StopReason models.StopReason `json:"stop_reason"`
	Duration   time.Duration     `json:"duration"`
}

// RateBatch rates up to max records (max <= 0 means until the queue is empty).
// Events follow the same draining contract as Collector.Run.
func (r *Rater) RateBatch(ctx context.Context, max int, events chan<- models.ProgressEvent) (*RatingSummary, error) {
	start := time.Now()
	sum := &RatingSummary{State: models.RunRunning}
	finish := func(state models.RunState, reason models.StopReason) {
		sum.State = state
		sum.StopReason = reason
		sum.Duration = time.Since(start)
	}

	for {
		if ctx.Err() != nil {
			finish(models.RunStopped, models.StopCancelled)
			break
		}
		if max > 0 && sum.Rated >= max {
			finish(models.RunCompleted, models.StopBatchDone)
			break
		}

		outcome, err := r.RateNextPending(context.WithoutCancel(ctx))
		if errors.Is(err, ErrNoPending) {
			finish(models.RunCompleted, models.StopNoPending)
			break
		}
		if err != nil {
			var reason models.StopReason
			switch {
			case errors.Is(err, ErrQuotaExhausted):
				reason = models.StopQuotaExhausted
			case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrMissingCredential):
				reason = models.StopUnauthorized
			}
			finish(models.RunAborted, reason)
			sendEvent(events, models.ProgressEvent{Type: models.EventError, Current: sum.Rated, Target: max, Reason: err.Error(), State: models.RunAborted})
			return sum, err
		}

		sum.Rated++
		switch {
		case outcome.Error != "":
			sum.Errors++
			sum.Discarded++
		case outcome.Promoted:
			sum.Promoted++
		default:
			sum.Discarded++
		}

		ev := models.ProgressEvent{
			Type:     models.EventRated,
			Current:  sum.Rated,
			Target:   max,
			Category: outcome.Record.Category,
			VideoID:  outcome.Record.VideoID,
			Reason:   outcome.Error,
		}
		if outcome.Promoted {
			ev.Reason = "promoted"
		}
		sendEvent(events, ev)
	}

	sendEvent(events, models.ProgressEvent{
		Type:    models.EventCompleted,
		Current: sum.Rated,
		Target:  max,
		Reason:  string(sum.StopReason),
		State:   sum.State,
	})
	return sum, nil
}

func sendEvent(events chan<- models.ProgressEvent, ev models.ProgressEvent) {
	if events != nil {
		events <- ev
	}
}
