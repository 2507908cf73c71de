package models

import (
	"strings"
	"time"
)

const watchURLPrefix = "https://youtube.com/watch?v="

// Candidate is a raw search hit, before any validation.
type Candidate struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

type VideoMetadata struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	PublishedAt     time.Time `json:"published_at"`
	DurationSeconds int       `json:"duration_seconds"`
	ViewCount       int64     `json:"view_count"`
	LikeCount       int64     `json:"like_count"`
	CommentCount    int64     `json:"comment_count"`
	ChannelTitle    string    `json:"channel_title"`
	Tags            []string  `json:"tags"`
	HasCaptions     bool      `json:"has_captions"`
}

// VideoRecord is an accepted video. It is never mutated after creation.
type VideoRecord struct {
	VideoID         string    `json:"video_id"`
	Title           string    `json:"title"`
	URL             string    `json:"url"`
	Category        Category  `json:"category"`
	SearchQuery     string    `json:"search_query"`
	DurationSeconds int       `json:"duration_seconds"`
	ViewCount       int64     `json:"view_count"`
	LikeCount       int64     `json:"like_count"`
	CommentCount    int64     `json:"comment_count"`
	PublishedAt     time.Time `json:"published_at"`
	ChannelTitle    string    `json:"channel_title"`
	Tags            string    `json:"tags"` // comma-joined
	CollectedAt     time.Time `json:"collected_at"`
}

// PendingRecord is a VideoRecord read back from the pending queue.
type PendingRecord struct {
	RowID  int64       `json:"row_id"`
	Record VideoRecord `json:"record"`
}

func WatchURL(videoID string) string {
	return watchURLPrefix + videoID
}

func NewVideoRecord(meta *VideoMetadata, category Category, query string, collectedAt time.Time) *VideoRecord {
	return &VideoRecord{
		VideoID:         meta.ID,
		Title:           meta.Title,
		URL:             WatchURL(meta.ID),
		Category:        category,
		SearchQuery:     query,
		DurationSeconds: meta.DurationSeconds,
		ViewCount:       meta.ViewCount,
		LikeCount:       meta.LikeCount,
		CommentCount:    meta.CommentCount,
		PublishedAt:     meta.PublishedAt.UTC(),
		ChannelTitle:    meta.ChannelTitle,
		Tags:            strings.Join(meta.Tags, ","),
		CollectedAt:     collectedAt.UTC(),
	}
}

// PromotedVideo is a VideoRecord that passed rating.
type PromotedVideo struct {
	VideoRecord
	FinalScore float64      `json:"final_score"`
	Confidence float64      `json:"confidence"`
	Score      *ScoreResult `json:"score,omitempty"`
	PromotedAt time.Time    `json:"promoted_at"`
}
