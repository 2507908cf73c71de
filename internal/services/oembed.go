package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clipscout-backend/internal/models"
)

const defaultOEmbedEndpoint = "https://www.youtube.com/oembed"

// LayoutProbe fetches embed-level signals for short-form detection.
type LayoutProbe interface {
	Signals(ctx context.Context, videoID string) (*models.LayoutSignals, error)
}

// OEmbedProbe queries the public oEmbed endpoint. It costs no API quota.
type OEmbedProbe struct {
	httpClient *http.Client
	endpoint   string
	retry      RetryConfig
}

func NewOEmbedProbe(httpClient *http.Client, endpoint string) *OEmbedProbe {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if endpoint == "" {
		endpoint = defaultOEmbedEndpoint
	}
	return &OEmbedProbe{httpClient: httpClient, endpoint: endpoint, retry: DefaultRetryConfig}
}

func (p *OEmbedProbe) Signals(ctx context.Context, videoID string) (*models.LayoutSignals, error) {
	q := url.Values{}
	q.Set("url", "https://www.youtube.com/watch?v="+videoID)
	q.Set("format", "json")
	reqURL := p.endpoint + "?" + q.Encode()

	return RetryDo(ctx, p.retry, func() (*models.LayoutSignals, error) {
		metrics.OEmbedRequests.Add(1)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := p.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			if isRetryableStatus(resp.StatusCode) {
				return nil, &httpStatusError{StatusCode: resp.StatusCode}
			}
			return nil, fmt.Errorf("oembed %s: status %d", videoID, resp.StatusCode)
		}

		var signals models.LayoutSignals
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&signals); err != nil {
			return nil, fmt.Errorf("oembed %s: decode: %w", videoID, err)
		}
		return &signals, nil
	})
}

var oembedTitleIndicators = []string{"#shorts", "#short", "shorts", "short video"}

// IsShortFormLayout reports whether embed signals indicate a short-form video.
func IsShortFormLayout(s *models.LayoutSignals) bool {
	if s == nil {
		return false
	}
	if strings.Contains(s.HTML, "/shorts/") {
		return true
	}
	if s.ThumbnailWidth > 0 && s.ThumbnailHeight > 0 {
		if float64(s.ThumbnailWidth)/float64(s.ThumbnailHeight) < 1.2 {
			return true
		}
	}
	if containsAny(strings.ToLower(s.Title), oembedTitleIndicators) {
		return true
	}
	return strings.Contains(s.HTML, `width="200"`) && strings.Contains(s.HTML, `height="113"`)
}
