package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"clipscout-backend/internal/models"
)

// quotaProbeVideoID is a long-lived public video used for the 1-unit preflight.
const quotaProbeVideoID = "YbJOTdZBX1g"

// MetadataFetcher retrieves full metadata for one video.
type MetadataFetcher interface {
	GetVideoMetadata(ctx context.Context, videoID string) (*models.VideoMetadata, error)
}

// SearchAPI runs a single page of keyword search.
type SearchAPI interface {
	SearchVideos(ctx context.Context, q models.SearchQuery) (*models.SearchPage, error)
}

type CommentPage struct {
	Texts         []string
	NextPageToken string
}

// CommentSource returns one page of top-level comments.
type CommentSource interface {
	GetComments(ctx context.Context, videoID, order string, pageSize int, pageToken string) (*CommentPage, error)
}

// QuotaChecker spends one quota unit to confirm the key is usable.
type QuotaChecker interface {
	CheckQuota(ctx context.Context) error
}

// YouTubeService talks to the YouTube Data API v3.
type YouTubeService struct {
	svc   *youtube.Service
	retry RetryConfig
}

func NewYouTubeService(ctx context.Context, apiKey string, opts ...option.ClientOption) (*YouTubeService, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingCredential
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube client: %w", err)
	}
	return &YouTubeService{svc: svc, retry: DefaultRetryConfig}, nil
}

// SearchVideos issues one search.list call (100 quota units).
func (s *YouTubeService) SearchVideos(ctx context.Context, q models.SearchQuery) (*models.SearchPage, error) {
	call := s.svc.Search.List([]string{"id", "snippet"}).
		Q(q.Text).
		Type("video").
		Order("relevance").
		Context(ctx)
	if q.MaxResults > 0 {
		call = call.MaxResults(int64(q.MaxResults))
	}
	if !q.PublishedAfter.IsZero() {
		call = call.PublishedAfter(q.PublishedAfter.UTC().Format(time.RFC3339))
	}
	if q.DurationBucket != "" && q.DurationBucket != "any" {
		call = call.VideoDuration(q.DurationBucket)
	}
	if q.Language != "" {
		call = call.RelevanceLanguage(q.Language)
	}
	if q.Region != "" {
		call = call.RegionCode(q.Region)
	}
	if q.CategoryID != "" {
		call = call.VideoCategoryId(q.CategoryID)
	}
	if q.ClosedCaptioned {
		call = call.VideoCaption("closedCaption")
	}
	if q.PageToken != "" {
		call = call.PageToken(q.PageToken)
	}

	resp, err := RetryDo(ctx, s.retry, func() (*youtube.SearchListResponse, error) {
		metrics.SearchRequests.Add(1)
		chargeQuota(quotaUnitsSearch)
		resp, err := call.Do()
		return resp, classifyAPIError(err)
	})
	if err != nil {
		metrics.APIErrors.Add(1)
		return nil, fmt.Errorf("search %q: %w", q.Text, err)
	}

	page := &models.SearchPage{NextPageToken: resp.NextPageToken}
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		cand := models.Candidate{ID: item.Id.VideoId}
		if item.Snippet != nil {
			cand.Title = html.UnescapeString(item.Snippet.Title)
			cand.Snippet = html.UnescapeString(item.Snippet.Description)
		}
		page.Candidates = append(page.Candidates, cand)
	}
	return page, nil
}

// GetVideoMetadata issues one videos.list call (1 quota unit).
func (s *YouTubeService) GetVideoMetadata(ctx context.Context, videoID string) (*models.VideoMetadata, error) {
	resp, err := RetryDo(ctx, s.retry, func() (*youtube.VideoListResponse, error) {
		metrics.MetadataRequests.Add(1)
		chargeQuota(quotaUnitsVideosList)
		resp, err := s.svc.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
			Id(videoID).
			Context(ctx).
			Do()
		return resp, classifyAPIError(err)
	})
	if err != nil {
		metrics.APIErrors.Add(1)
		return nil, fmt.Errorf("videos.list %s: %w", videoID, err)
	}
	if len(resp.Items) == 0 || resp.Items[0] == nil {
		return nil, ErrVideoNotFound
	}
	return metadataFromVideo(resp.Items[0]), nil
}

// metadataFromVideo tolerates missing parts; absent numbers stay 0.
func metadataFromVideo(v *youtube.Video) *models.VideoMetadata {
	meta := &models.VideoMetadata{ID: v.Id}
	if sn := v.Snippet; sn != nil {
		meta.Title = sn.Title
		meta.Description = sn.Description
		meta.PublishedAt = parsePublishedAt(sn.PublishedAt)
		meta.ChannelTitle = sn.ChannelTitle
		meta.Tags = sn.Tags
	}
	if cd := v.ContentDetails; cd != nil {
		meta.DurationSeconds = ParseISODuration(cd.Duration)
		meta.HasCaptions = strings.EqualFold(cd.Caption, "true")
	}
	if st := v.Statistics; st != nil {
		meta.ViewCount = clampInt64(st.ViewCount)
		meta.LikeCount = clampInt64(st.LikeCount)
		meta.CommentCount = clampInt64(st.CommentCount)
	}
	return meta
}

// GetComments issues one commentThreads.list call (1 quota unit).
func (s *YouTubeService) GetComments(ctx context.Context, videoID, order string, pageSize int, pageToken string) (*CommentPage, error) {
	call := s.svc.CommentThreads.List([]string{"snippet"}).
		VideoId(videoID).
		MaxResults(int64(pageSize)).
		Order(order).
		TextFormat("plainText").
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := RetryDo(ctx, s.retry, func() (*youtube.CommentThreadListResponse, error) {
		metrics.CommentRequests.Add(1)
		chargeQuota(quotaUnitsCommentThread)
		resp, err := call.Do()
		return resp, classifyAPIError(err)
	})
	if err != nil {
		metrics.APIErrors.Add(1)
		return nil, fmt.Errorf("commentThreads.list %s: %w", videoID, err)
	}

	page := &CommentPage{NextPageToken: resp.NextPageToken}
	for _, item := range resp.Items {
		if item.Snippet == nil || item.Snippet.TopLevelComment == nil || item.Snippet.TopLevelComment.Snippet == nil {
			continue
		}
		cs := item.Snippet.TopLevelComment.Snippet
		text := cs.TextOriginal
		if text == "" {
			text = cs.TextDisplay
		}
		page.Texts = append(page.Texts, text)
	}
	return page, nil
}

// CheckQuota returns ErrQuotaExhausted or ErrUnauthorized when the key cannot be used.
func (s *YouTubeService) CheckQuota(ctx context.Context) error {
	chargeQuota(quotaUnitsVideosList)
	_, err := s.svc.Videos.List([]string{"id"}).Id(quotaProbeVideoID).Context(ctx).Do()
	if err == nil {
		return nil
	}
	err = classifyAPIError(err)
	if errors.Is(err, ErrForbidden) {
		// The probe video is public, so a refusal here is about the key.
		err = &apiError{sentinel: ErrUnauthorized, cause: err}
	}
	if IsFatal(err) {
		slog.Error("youtube quota check failed", slog.Any("error", err))
		return err
	}
	return fmt.Errorf("quota check: %w", err)
}

func clampInt64(v uint64) int64 {
	const maxInt64 = 1<<63 - 1
	if v > maxInt64 {
		return maxInt64
	}
	return int64(v)
}

// UnconfiguredYouTube stands in for YouTubeService when no API key is set.
// Every call fails with ErrMissingCredential.
type UnconfiguredYouTube struct{}

func (UnconfiguredYouTube) SearchVideos(ctx context.Context, q models.SearchQuery) (*models.SearchPage, error) {
	return nil, ErrMissingCredential
}

func (UnconfiguredYouTube) GetVideoMetadata(ctx context.Context, videoID string) (*models.VideoMetadata, error) {
	return nil, ErrMissingCredential
}

func (UnconfiguredYouTube) GetComments(ctx context.Context, videoID, order string, pageSize int, pageToken string) (*CommentPage, error) {
	return nil, ErrMissingCredential
}

func (UnconfiguredYouTube) CheckQuota(ctx context.Context) error {
	return ErrMissingCredential
}
