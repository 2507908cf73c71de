package services

import (
	"context"
	"log/slog"

	ytapi "github.com/hightemp/youtube-transcript-api-go/api"
	yt "github.com/kkdai/youtube/v2"
)

// CaptionProbe detects auto-generated caption tracks, which the Data API
// does not report in contentDetails.caption.
type CaptionProbe interface {
	HasCaptions(ctx context.Context, videoID string) bool
}

type TrackCaptionProbe struct {
	ytClient      *yt.Client
	transcriptAPI *ytapi.YouTubeTranscriptApi
	languages     []string
}

func NewTrackCaptionProbe() *TrackCaptionProbe {
	return &TrackCaptionProbe{
		ytClient:      &yt.Client{},
		transcriptAPI: ytapi.NewYouTubeTranscriptApi(),
		languages:     []string{"en", "en-US", "en-GB"},
	}
}

// HasCaptions checks the player's caption tracks first, then falls back to
// the transcript endpoint. Probe failures count as "no captions".
func (p *TrackCaptionProbe) HasCaptions(ctx context.Context, videoID string) bool {
	metrics.CaptionProbes.Add(1)

	video, err := p.ytClient.GetVideoContext(ctx, videoID)
	if err == nil && len(video.CaptionTracks) > 0 {
		return true
	}
	if err != nil {
		slog.Debug("caption probe: player lookup failed", slog.String("video_id", videoID), slog.Any("error", err))
	}

	if ctx.Err() != nil {
		return false
	}
	transcript, err := p.transcriptAPI.GetTranscript(videoID, p.languages)
	if err != nil {
		slog.Debug("caption probe: transcript lookup failed", slog.String("video_id", videoID), slog.Any("error", err))
		return false
	}
	return len(transcript.Entries) > 0
}
