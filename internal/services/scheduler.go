package services

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// PendingCounter reports how many records wait for rating.
type PendingCounter interface {
	CountPending(ctx context.Context) (int, error)
}

// RatingEnqueuer queues a rating run of at most maxItems records.
type RatingEnqueuer interface {
	EnqueueRating(ctx context.Context, maxItems int) (string, error)
}

// RatingScheduler periodically queues a rating run while pending records exist.
type RatingScheduler struct {
	pending   PendingCounter
	enqueuer  RatingEnqueuer
	interval  time.Duration
	batchSize int
	stopChan  chan struct{}
}

func NewRatingScheduler(pending PendingCounter, enqueuer RatingEnqueuer, interval time.Duration, batchSize int) *RatingScheduler {
	return &RatingScheduler{
		pending:   pending,
		enqueuer:  enqueuer,
		interval:  interval,
		batchSize: batchSize,
		stopChan:  make(chan struct{}),
	}
}

// Start is a no-op when the interval is not positive.
func (s *RatingScheduler) Start() {
	if s.pending == nil || s.enqueuer == nil || s.interval <= 0 {
		return
	}
	go s.loop()
	slog.Info("rating scheduler started", slog.Duration("interval", s.interval), slog.Int("batch_size", s.batchSize))
}

func (s *RatingScheduler) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *RatingScheduler) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.tick(context.Background())
		}
	}
}

// tick reports whether a run was queued.
func (s *RatingScheduler) tick(ctx context.Context) bool {
	n, err := s.pending.CountPending(ctx)
	if err != nil {
		slog.Error("rating scheduler: failed to count pending records", slog.Any("error", err))
		return false
	}
	if n == 0 {
		return false
	}

	runID, err := s.enqueuer.EnqueueRating(ctx, s.batchSize)
	if errors.Is(err, ErrRunInProgress) {
		slog.Debug("rating scheduler: rating already in progress")
		return false
	}
	if err != nil {
		slog.Error("rating scheduler: failed to queue rating run", slog.Any("error", err))
		return false
	}
	slog.Info("rating scheduler: queued rating run", slog.String("run_id", runID), slog.Int("pending", n))
	return true
}
