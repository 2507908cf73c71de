// Package app assembles the collection and rating pipeline from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"clipscout-backend/internal/config"
	"clipscout-backend/internal/ratelimit"
	"clipscout-backend/internal/repository"
	"clipscout-backend/internal/services"
)

// YouTubeClient is the part of the Data API the pipeline uses.
type YouTubeClient interface {
	services.SearchAPI
	services.MetadataFetcher
	services.CommentSource
	services.QuotaChecker
}

// Components holds the wired pipeline shared by the server and the CLI.
type Components struct {
	Videos   *repository.VideoRepo
	Discards *repository.DiscardRepo
	Queries  *repository.QueryRepo
	Moments  *repository.MomentRepo
	Runs     *repository.RunRepo
	Gateway  *repository.Gateway

	YouTube   YouTubeClient
	Collector *services.Collector
	Rater     *services.Rater
}

// New wires repositories and services. A missing API key is not an error:
// the pipeline is built around a client that fails every call, so runs
// stay idle or abort instead of the process refusing to start.
func New(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, rdb *redis.Client) (*Components, error) {
	c := &Components{
		Videos:   repository.NewVideoRepo(pool),
		Discards: repository.NewDiscardRepo(pool),
		Queries:  repository.NewQueryRepo(pool),
		Moments:  repository.NewMomentRepo(pool),
		Runs:     repository.NewRunRepo(pool),
	}

	limiter := ratelimit.New(ratelimit.Config{
		MaxCalls:   cfg.StoreRateLimit,
		Window:     cfg.StoreRateWindow,
		MinSpacing: cfg.StoreMinSpacing,
	})
	c.Gateway = repository.NewGateway(c.Videos, c.Discards, c.Queries, c.Moments, limiter)

	yt, err := newYouTubeClient(ctx, cfg.YouTubeAPIKey)
	if err != nil {
		return nil, err
	}
	c.YouTube = yt

	c.Collector, c.Rater = buildPipeline(cfg, yt, rdb, c.Gateway)
	return c, nil
}

func newYouTubeClient(ctx context.Context, apiKey string) (YouTubeClient, error) {
	svc, err := services.NewYouTubeService(ctx, apiKey)
	switch {
	case errors.Is(err, services.ErrMissingCredential):
		slog.Warn("YOUTUBE_API_KEY is not set; collection and rating runs will not start")
		return services.UnconfiguredYouTube{}, nil
	case err != nil:
		return nil, fmt.Errorf("youtube client: %w", err)
	}
	return svc, nil
}

// pipelineStore is satisfied by *repository.Gateway.
type pipelineStore interface {
	services.CollectionStore
	services.RatingStore
}

func buildPipeline(cfg *config.Config, yt YouTubeClient, rdb *redis.Client, gw pipelineStore) (*services.Collector, *services.Rater) {
	meta := services.NewCachedMetadataFetcher(yt, rdb, cfg.MetadataCacheTTL)

	searchCfg := services.DefaultSearchConfig()
	searchCfg.Language = cfg.SearchLanguage
	searchCfg.Region = cfg.SearchRegion
	if cfg.SearchMaxResults > 0 {
		searchCfg.MaxResults = cfg.SearchMaxResults
	}
	search := services.NewSearchProvider(yt, searchCfg)

	var layout services.LayoutProbe
	if cfg.LayoutProbeEnabled {
		layout = services.NewOEmbedProbe(nil, "")
	}
	var captions services.CaptionProbe
	if cfg.CaptionProbeEnabled {
		captions = services.NewTrackCaptionProbe()
	}
	pipeline := services.NewPipeline(meta, layout, captions, services.DefaultValidationConfig())

	collectorCfg := services.DefaultCollectorConfig()
	collectorCfg.MaxAttempts = cfg.CollectMaxAttempts
	collectorCfg.MaxConsecutiveFailures = cfg.CollectMaxConsecutiveFailures
	collectorCfg.IterationDelay = cfg.CollectIterationDelay
	collectorCfg.CandidateDelay = cfg.CollectCandidateDelay
	if cfg.SearchMaxPages > 0 {
		collectorCfg.MaxPages = cfg.SearchMaxPages
	}

	apiKey := cfg.YouTubeAPIKey
	if _, ok := yt.(services.UnconfiguredYouTube); ok {
		apiKey = ""
	}
	collector := services.NewCollector(services.CollectorDeps{
		APIKey:    apiKey,
		Search:    search,
		Validator: pipeline,
		Store:     gw,
		Quota:     yt,
	}, collectorCfg)

	raterCfg := services.DefaultRaterConfig()
	raterCfg.PromotionThreshold = cfg.PromotionThreshold
	if cfg.CommentMax > 0 {
		raterCfg.MaxComments = cfg.CommentMax
	}
	// The rater refreshes live stats, so it bypasses the metadata cache.
	rater := services.NewRater(gw, yt, services.NewCommentMiner(yt), services.NewCategoryScorer(services.DefaultScorerConfig()), raterCfg)

	return collector, rater
}
