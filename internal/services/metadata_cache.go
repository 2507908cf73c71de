package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"clipscout-backend/internal/models"
)

// CachedMetadataFetcher keeps videos.list responses in Redis so a video
// seen by several queries is only charged once per TTL.
type CachedMetadataFetcher struct {
	next MetadataFetcher
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCachedMetadataFetcher(next MetadataFetcher, rdb *redis.Client, ttl time.Duration) *CachedMetadataFetcher {
	return &CachedMetadataFetcher{next: next, rdb: rdb, ttl: ttl}
}

func metadataCacheKey(videoID string) string {
	return "meta:" + videoID
}

func (c *CachedMetadataFetcher) GetVideoMetadata(ctx context.Context, videoID string) (*models.VideoMetadata, error) {
	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, metadataCacheKey(videoID)).Bytes()
		if err == nil {
			var meta models.VideoMetadata
			if json.Unmarshal(data, &meta) == nil {
				metrics.CacheHits.Add(1)
				return &meta, nil
			}
		} else if err != redis.Nil {
			slog.Debug("metadata cache: get failed", slog.String("video_id", videoID), slog.Any("error", err))
		}
	}
	metrics.CacheMisses.Add(1)

	meta, err := c.next.GetVideoMetadata(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if c.rdb != nil && c.ttl > 0 {
		if data, err := json.Marshal(meta); err == nil {
			if err := c.rdb.Set(ctx, metadataCacheKey(videoID), data, c.ttl).Err(); err != nil {
				slog.Debug("metadata cache: set failed", slog.String("video_id", videoID), slog.Any("error", err))
			}
		}
	}
	return meta, nil
}
