package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"clipscout-backend/internal/models"
	"clipscout-backend/internal/repository"
	"clipscout-backend/internal/services"
)

const (
	collectionQueue = "queue:collection"
	ratingQueue     = "queue:rating"

	lockTTL      = 2 * time.Hour
	cancelTTL    = 24 * time.Hour
	requeueDelay = 5 * time.Second
)

// RunStore persists run lifecycle transitions.
type RunStore interface {
	Create(ctx context.Context, run *models.Run) error
	MarkRunning(ctx context.Context, id uuid.UUID) error
	Finish(ctx context.Context, id uuid.UUID, res repository.RunResult) error
}

type Collector interface {
	Run(ctx context.Context, opts services.RunOptions, events chan<- models.ProgressEvent) (*services.CollectionResult, error)
}

type Rater interface {
	RateBatch(ctx context.Context, max int, events chan<- models.ProgressEvent) (*services.RatingSummary, error)
}

// Pool pulls queued runs from Redis and executes them one kind at a time.
type Pool struct {
	redis       *redis.Client
	locks       *RunLocks
	runs        RunStore
	collector   Collector
	rater       Rater
	events      *services.EventPublisher
	workerCount int

	popTimeout time.Duration
	cancelPoll time.Duration

	baseCtx  context.Context
	stop     context.CancelFunc
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewPool(
	redisClient *redis.Client,
	runs RunStore,
	collector Collector,
	rater Rater,
	events *services.EventPublisher,
	workerCount int,
) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		redis:       redisClient,
		locks:       NewRunLocks(redisClient),
		runs:        runs,
		collector:   collector,
		rater:       rater,
		events:      events,
		workerCount: workerCount,
		popTimeout:  30 * time.Second,
		cancelPoll:  time.Second,
		baseCtx:     ctx,
		stop:        cancel,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	queues := []string{collectionQueue, ratingQueue}
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i, queues)
	}
	slog.Info("worker pool started", slog.Int("workers", p.workerCount))
}

// Stop cancels in-flight runs cooperatively and waits for workers to exit.
func (p *Pool) Stop() {
	select {
	case <-p.stopChan:
		return
	default:
		close(p.stopChan)
	}
	p.stop()
	p.wg.Wait()
}

// Enqueue pushes a created run onto its kind's queue.
func (p *Pool) Enqueue(ctx context.Context, run *models.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}
	return p.redis.RPush(ctx, queueName(run.Kind), string(data)).Err()
}

// EnqueueRating creates and queues a rating run unless one is already running.
func (p *Pool) EnqueueRating(ctx context.Context, maxItems int) (string, error) {
	active, err := p.RatingActive(ctx)
	if err != nil {
		return "", err
	}
	if active {
		return "", services.ErrRunInProgress
	}

	cfg, _ := json.Marshal(models.StartRatingRequest{MaxItems: maxItems})
	run := &models.Run{Kind: models.RunKindRating, ConfigJSON: cfg}
	if err := p.runs.Create(ctx, run); err != nil {
		return "", fmt.Errorf("failed to create rating run: %w", err)
	}
	if err := p.Enqueue(ctx, run); err != nil {
		return "", fmt.Errorf("failed to queue rating run: %w", err)
	}
	return run.ID.String(), nil
}

// RatingActive reports whether a rating pass currently holds the rating lock.
func (p *Pool) RatingActive(ctx context.Context) (bool, error) {
	return p.locks.Held(ctx, models.RunKindRating)
}

// Acquire takes the per-kind run lock for work done outside the pool.
func (p *Pool) Acquire(ctx context.Context, kind models.RunKind) (func(), error) {
	return p.locks.Acquire(ctx, kind)
}

// RequestStop flags a run for cooperative cancellation. The flag is honoured
// whether the run is queued or already executing.
func (p *Pool) RequestStop(ctx context.Context, runID uuid.UUID) error {
	return p.redis.Set(ctx, cancelKey(runID), "1", cancelTTL).Err()
}

func (p *Pool) worker(id int, queues []string) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopChan:
			slog.Info("worker shutting down", slog.Int("worker", id))
			return
		default:
		}

		result, err := p.redis.BLPop(p.baseCtx, p.popTimeout, queues...).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && p.baseCtx.Err() == nil {
				slog.Warn("queue pop failed", slog.Int("worker", id), slog.Any("error", err))
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}

		var run models.Run
		if err := json.Unmarshal([]byte(result[1]), &run); err != nil {
			slog.Error("failed to parse queued run", slog.Int("worker", id), slog.Any("error", err))
			continue
		}

		release, err := p.locks.acquire(context.Background(), run.Kind, run.ID.String())
		if err != nil {
			if !errors.Is(err, services.ErrRunInProgress) {
				slog.Warn("run lock unavailable", slog.String("run_id", run.ID.String()), slog.Any("error", err))
			}
			p.requeue(result[0], result[1])
			continue
		}

		slog.Info("processing run", slog.Int("worker", id), slog.String("run_id", run.ID.String()), slog.String("kind", string(run.Kind)))
		p.process(p.baseCtx, &run)
		release()
	}
}

// requeue puts a run back after a delay while another run of its kind holds the lock.
func (p *Pool) requeue(queue, payload string) {
	time.AfterFunc(requeueDelay, func() {
		if err := p.redis.RPush(context.Background(), queue, payload).Err(); err != nil {
			slog.Error("failed to requeue run", slog.String("queue", queue), slog.Any("error", err))
		}
	})
}

func (p *Pool) process(ctx context.Context, run *models.Run) {
	bg := context.WithoutCancel(ctx)
	if err := p.runs.MarkRunning(bg, run.ID); err != nil {
		slog.Error("failed to mark run running", slog.String("run_id", run.ID.String()), slog.Any("error", err))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go p.watchCancel(runCtx, run.ID, cancel)

	events := make(chan models.ProgressEvent, 64)
	forwarded := make(chan struct{})
	go func() {
		p.events.Forward(bg, run.ID, events)
		close(forwarded)
	}()

	var res repository.RunResult
	var err error
	switch run.Kind {
	case models.RunKindCollection:
		res, err = p.runCollection(runCtx, run, events)
	case models.RunKindRating:
		res, err = p.runRating(runCtx, run, events)
	default:
		err = fmt.Errorf("unknown run kind: %s", run.Kind)
	}
	close(events)
	<-forwarded

	if err != nil {
		res.ErrorMessage = err.Error()
		if res.State == "" {
			res.State = models.RunAborted
		}
		slog.Error("run failed", slog.String("run_id", run.ID.String()), slog.Any("error", err))
	}

	if err := p.runs.Finish(bg, run.ID, res); err != nil {
		slog.Error("failed to record run result", slog.String("run_id", run.ID.String()), slog.Any("error", err))
	}
	p.redis.Del(bg, cancelKey(run.ID))
}

func (p *Pool) runCollection(ctx context.Context, run *models.Run, events chan<- models.ProgressEvent) (repository.RunResult, error) {
	var req models.StartCollectionRequest
	if err := json.Unmarshal(run.ConfigJSON, &req); err != nil {
		return repository.RunResult{State: models.RunIdle}, fmt.Errorf("invalid collection config: %w", err)
	}
	mode, err := models.ParseMode(req.Category)
	if err != nil {
		return repository.RunResult{State: models.RunIdle}, err
	}

	result, err := p.collector.Run(ctx, services.RunOptions{
		RunID:           run.ID.String(),
		Target:          req.Target,
		Mode:            mode,
		RequireCaptions: req.RequireCaptions,
		Region:          req.Region,
		CategoryFilter:  req.CategoryFilter,
		MaxAttempts:     req.MaxAttempts,
	}, events)
	if result == nil {
		return repository.RunResult{}, err
	}
	return repository.RunResult{
		State:      result.State,
		StopReason: result.StopReason,
		Collected:  len(result.Records),
		Checked:    result.Stats.Checked,
		Rejected:   result.Stats.Rejected,
		Attempts:   result.Stats.Attempts,
	}, err
}

func (p *Pool) runRating(ctx context.Context, run *models.Run, events chan<- models.ProgressEvent) (repository.RunResult, error) {
	var req models.StartRatingRequest
	if len(run.ConfigJSON) > 0 {
		if err := json.Unmarshal(run.ConfigJSON, &req); err != nil {
			return repository.RunResult{State: models.RunIdle}, fmt.Errorf("invalid rating config: %w", err)
		}
	}

	sum, err := p.rater.RateBatch(ctx, req.MaxItems, events)
	if sum == nil {
		return repository.RunResult{}, err
	}
	return repository.RunResult{
		State:      sum.State,
		StopReason: sum.StopReason,
		Collected:  sum.Promoted,
		Checked:    sum.Rated,
		Rejected:   sum.Discarded,
	}, err
}

// watchCancel polls the run's stop flag until ctx ends.
func (p *Pool) watchCancel(ctx context.Context, runID uuid.UUID, cancel context.CancelFunc) {
	ticker := time.NewTicker(p.cancelPoll)
	defer ticker.Stop()

	for {
		n, err := p.redis.Exists(ctx, cancelKey(runID)).Result()
		if err == nil && n > 0 {
			slog.Info("stop requested", slog.String("run_id", runID.String()))
			cancel()
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func queueName(kind models.RunKind) string {
	switch kind {
	case models.RunKindCollection:
		return collectionQueue
	case models.RunKindRating:
		return ratingQueue
	default:
		return "queue:" + string(kind)
	}
}

func cancelKey(runID uuid.UUID) string {
	return fmt.Sprintf("run_cancel:%s", runID.String())
}
