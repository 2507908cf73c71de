package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"clipscout-backend/internal/models"
)

type CollectorConfig struct {
	MaxAttempts            int
	MaxConsecutiveFailures int
	MaxPages               int
	IterationDelay         time.Duration
	CandidateDelay         time.Duration
	BackoffMultiplier      float64
	MaxBackoff             time.Duration
}

func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		MaxAttempts:            30,
		MaxConsecutiveFailures: 10,
		MaxPages:               3,
		IterationDelay:         1500 * time.Millisecond,
		CandidateDelay:         300 * time.Millisecond,
		BackoffMultiplier:      2.0,
		MaxBackoff:             30 * time.Second,
	}
}

type RunOptions struct {
	RunID           string
	Target          int
	Mode            models.Category
	RequireCaptions bool
	Region          string
	CategoryFilter  string
	MaxAttempts     int // overrides the configured budget when > 0
}

type CollectionResult struct {
	State      models.RunState      `json:"state"`
	StopReason models.StopReason    `json:"stop_reason"`
	Records    []models.VideoRecord `json:"records"`
	Stats      CollectionStats      `json:"stats"`
}

// Searcher is satisfied by *SearchProvider.
type Searcher interface {
	Search(ctx context.Context, req models.SearchRequest) (*models.SearchPage, error)
}

// Validator is satisfied by *Pipeline.
type Validator interface {
	Validate(ctx context.Context, cc *CollectionContext, cand models.Candidate, category models.Category, requireCaptions bool) Verdict
}

type CollectorDeps struct {
	APIKey    string
	Search    Searcher
	Validator Validator
	Store     CollectionStore
	Quota     QuotaChecker // optional preflight
}

// Collector drives query rotation, validation and persistence of accepted
// videos until the target, the attempt budget or the failure limit is hit.
type Collector struct {
	apiKey    string
	search    Searcher
	validator Validator
	store     CollectionStore
	quota     QuotaChecker
	cfg       CollectorConfig
	queries   map[models.Category][]string

	rng   *rand.Rand
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewCollector(deps CollectorDeps, cfg CollectorConfig) *Collector {
	return &Collector{
		apiKey:    deps.APIKey,
		search:    deps.Search,
		validator: deps.Validator,
		store:     deps.Store,
		quota:     deps.Quota,
		cfg:       cfg,
		queries:   searchQueries,
		rng:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// Run executes one collection pass. Progress events are sent on events in
// order; the caller must keep draining it until Run returns. A run that misses
// its target is not an error.
func (c *Collector) Run(ctx context.Context, opts RunOptions, events chan<- models.ProgressEvent) (*CollectionResult, error) {
	result := &CollectionResult{State: models.RunIdle}

	if strings.TrimSpace(c.apiKey) == "" || c.search == nil {
		return result, ErrMissingCredential
	}
	if opts.Target <= 0 {
		return result, fmt.Errorf("target must be positive, got %d", opts.Target)
	}
	if opts.Mode != models.CategoryMixed && !opts.Mode.Valid() {
		return result, fmt.Errorf("unknown category %q", opts.Mode)
	}

	maxAttempts := c.cfg.MaxAttempts
	if opts.MaxAttempts > 0 {
		maxAttempts = opts.MaxAttempts
	}

	result.State = models.RunRunning
	log := slog.With(slog.String("run_id", opts.RunID), slog.String("mode", string(opts.Mode)))

	if c.quota != nil {
		if err := c.quota.CheckQuota(ctx); err != nil {
			if IsFatal(err) {
				return c.abort(result, nil, opts, events, err), err
			}
			log.Warn("quota preflight inconclusive", slog.Any("error", err))
		}
	}

	cc, err := LoadCollectionContext(ctx, c.store, opts.RunID)
	if err != nil {
		return c.abort(result, nil, opts, events, err), err
	}

	rotation := models.Rotation(opts.Mode)
	catIdx := 0
	consecutive := 0

	c.emit(events, models.ProgressEvent{Type: models.EventProgress, Target: opts.Target, MaxAttempts: maxAttempts, State: models.RunRunning})

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			c.finish(result, cc, models.RunStopped, models.StopCancelled)
			break
		}
		if attempt > maxAttempts {
			c.finish(result, cc, models.RunCompleted, models.StopAttemptsExhausted)
			break
		}

		cc.Stats.Attempts = attempt
		category := rotation[catIdx%len(rotation)]
		query := c.selectQuery(cc, category)

		log.Info("collection attempt",
			slog.Int("attempt", attempt),
			slog.String("category", string(category)),
			slog.String("query", query),
			slog.Int("collected", len(cc.Accepted)),
		)
		c.emit(events, models.ProgressEvent{
			Type:        models.EventProgress,
			Attempt:     attempt,
			MaxAttempts: maxAttempts,
			Current:     len(cc.Accepted),
			Target:      opts.Target,
			Category:    category,
			Query:       query,
		})

		found, err := c.runQuery(ctx, cc, opts, category, query, attempt, maxAttempts, events)
		c.recordQuery(ctx, cc, query, category, found)

		if err != nil {
			log.Error("collection aborted", slog.Any("error", err))
			return c.abort(result, cc, opts, events, err), err
		}

		// Only a single-hit query keeps the same category for the next attempt.
		if found != 1 {
			catIdx++
		}
		if found == 0 {
			consecutive++
		} else {
			consecutive = 0
		}

		if len(cc.Accepted) >= opts.Target {
			c.finish(result, cc, models.RunCompleted, models.StopTargetReached)
			break
		}
		if consecutive >= c.cfg.MaxConsecutiveFailures {
			log.Warn("too many consecutive empty attempts", slog.Int("consecutive", consecutive))
			c.finish(result, cc, models.RunCompleted, models.StopConsecutiveFailures)
			break
		}
		if attempt < maxAttempts {
			if err := c.sleep(ctx, c.backoff(consecutive)); err != nil {
				c.finish(result, cc, models.RunStopped, models.StopCancelled)
				break
			}
		}
	}

	log.Info("collection finished",
		slog.String("state", string(result.State)),
		slog.String("stop_reason", string(result.StopReason)),
		slog.Int("collected", len(result.Records)),
		slog.Int("rejected", result.Stats.Rejected),
	)
	c.emit(events, models.ProgressEvent{
		Type:        models.EventCompleted,
		Attempt:     result.Stats.Attempts,
		MaxAttempts: maxAttempts,
		Current:     len(result.Records),
		Target:      opts.Target,
		Reason:      string(result.StopReason),
		State:       result.State,
	})
	return result, nil
}

// runQuery searches up to MaxPages pages while the query keeps yielding.
// Only fatal upstream errors are returned.
func (c *Collector) runQuery(ctx context.Context, cc *CollectionContext, opts RunOptions, category models.Category, query string, attempt, maxAttempts int, events chan<- models.ProgressEvent) (int, error) {
	// In-flight calls finish even if a stop arrives meanwhile.
	callCtx := context.WithoutCancel(ctx)
	found := 0
	pageToken := ""

	for page := 0; page < c.cfg.MaxPages; page++ {
		sp, err := c.search.Search(callCtx, models.SearchRequest{
			Query:           query,
			PageToken:       pageToken,
			Region:          opts.Region,
			CategoryFilter:  opts.CategoryFilter,
			RequireCaptions: opts.RequireCaptions,
		})
		if err != nil {
			if IsFatal(err) {
				return found, err
			}
			slog.Warn("search failed", slog.String("query", query), slog.Any("error", err))
			return found, nil
		}
		cc.Stats.Filtered += sp.Filtered

		pageFound := 0
		for _, cand := range sp.Candidates {
			if ctx.Err() != nil || len(cc.Accepted) >= opts.Target {
				return found, nil
			}
			if !cc.markChecked(cand.ID) {
				cc.Stats.Skipped++
				continue
			}
			cc.Stats.Checked++
			metrics.CandidatesChecked.Add(1)

			v := c.validator.Validate(callCtx, cc, cand, category, opts.RequireCaptions)
			if v.Fatal() {
				return found, v.Err
			}

			if !v.Accepted {
				cc.recordReject(v.Reason)
				metrics.VideosRejected.Add(1)
				slog.Info("candidate rejected",
					slog.String("video_id", cand.ID),
					slog.String("reason", v.Reason),
					slog.String("detail", v.Detail),
				)
				c.emit(events, models.ProgressEvent{
					Type:        models.EventRejected,
					Attempt:     attempt,
					MaxAttempts: maxAttempts,
					Current:     len(cc.Accepted),
					Target:      opts.Target,
					Category:    category,
					Query:       query,
					VideoID:     cand.ID,
					Reason:      v.Reason,
				})
			} else {
				rec := models.NewVideoRecord(v.Metadata, category, query, c.now())
				cc.addAccepted(*rec)
				metrics.VideosAccepted.Add(1)
				if err := c.store.AppendAcceptedRecord(callCtx, rec); err != nil {
					cc.Stats.PersistFailures++
					slog.Error("failed to persist accepted video", slog.String("video_id", rec.VideoID), slog.Any("error", err))
				}
				found++
				pageFound++
				slog.Info("candidate accepted", slog.String("video_id", rec.VideoID), slog.String("title", rec.Title))
				c.emit(events, models.ProgressEvent{
					Type:        models.EventAccepted,
					Attempt:     attempt,
					MaxAttempts: maxAttempts,
					Current:     len(cc.Accepted),
					Target:      opts.Target,
					Category:    category,
					Query:       query,
					VideoID:     rec.VideoID,
				})
			}

			if err := c.sleep(ctx, c.cfg.CandidateDelay); err != nil {
				return found, nil
			}
		}

		if pageFound == 0 || sp.NextPageToken == "" {
			break
		}
		pageToken = sp.NextPageToken
	}
	return found, nil
}

// selectQuery prefers a random unused query; reuse is allowed once the
// category pool is exhausted.
func (c *Collector) selectQuery(cc *CollectionContext, category models.Category) string {
	pool := c.queries[category]
	if len(pool) == 0 {
		return string(category)
	}

	unused := make([]string, 0, len(pool))
	for _, q := range pool {
		if !cc.QueryUsed(q) {
			unused = append(unused, q)
		}
	}
	if len(unused) > 0 {
		return unused[c.rng.IntN(len(unused))]
	}

	cc.Stats.QueriesReused++
	q := pool[c.rng.IntN(len(pool))]
	slog.Info("all queries used for category, reusing", slog.String("category", string(category)), slog.String("query", q))
	return q
}

func (c *Collector) recordQuery(ctx context.Context, cc *CollectionContext, query string, category models.Category, found int) {
	cc.UsedQueries[query] = struct{}{}
	uq := &models.UsedQuery{
		Query:       query,
		Category:    category,
		UsedAt:      c.now().UTC(),
		VideosFound: found,
		SessionID:   cc.RunID,
	}
	if err := c.store.AppendUsedQuery(context.WithoutCancel(ctx), uq); err != nil {
		slog.Warn("failed to save used query", slog.String("query", query), slog.Any("error", err))
	}
}

// backoff grows the iteration delay after consecutive empty attempts.
func (c *Collector) backoff(consecutive int) time.Duration {
	d := float64(c.cfg.IterationDelay)
	if consecutive > 0 && c.cfg.BackoffMultiplier > 1 {
		d *= math.Pow(c.cfg.BackoffMultiplier, float64(consecutive))
	}
	if c.cfg.MaxBackoff > 0 && d > float64(c.cfg.MaxBackoff) {
		d = float64(c.cfg.MaxBackoff)
	}
	return time.Duration(d)
}

func (c *Collector) finish(result *CollectionResult, cc *CollectionContext, state models.RunState, reason models.StopReason) {
	result.State = state
	result.StopReason = reason
	if cc != nil {
		result.Records = cc.Accepted
		result.Stats = cc.Stats
	}
}

// abort records the Aborted state. Only quota and credential failures carry
// a stop reason; a store failure at startup leaves it empty.
func (c *Collector) abort(result *CollectionResult, cc *CollectionContext, opts RunOptions, events chan<- models.ProgressEvent, err error) *CollectionResult {
	var reason models.StopReason
	switch {
	case errors.Is(err, ErrQuotaExhausted):
		reason = models.StopQuotaExhausted
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrMissingCredential):
		reason = models.StopUnauthorized
	}
	c.finish(result, cc, models.RunAborted, reason)
	c.emit(events, models.ProgressEvent{
		Type:    models.EventError,
		Current: len(result.Records),
		Target:  opts.Target,
		Reason:  err.Error(),
		State:   models.RunAborted,
	})
	return result
}

func (c *Collector) emit(events chan<- models.ProgressEvent, ev models.ProgressEvent) {
	sendEvent(events, ev)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
