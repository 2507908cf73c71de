package services

import (
	"context"
	"strings"
	"time"

	"clipscout-backend/internal/models"
)

type SearchConfig struct {
	Language       string
	Region         string
	MaxResults     int
	RecencyWindow  time.Duration
	DurationBucket string
}

func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Language:       "en",
		MaxResults:     25,
		RecencyWindow:  180 * 24 * time.Hour,
		DurationBucket: "medium",
	}
}

// SearchProvider turns a plain keyword query into a filtered platform search.
type SearchProvider struct {
	api SearchAPI
	cfg SearchConfig
	now func() time.Time
}

func NewSearchProvider(api SearchAPI, cfg SearchConfig) *SearchProvider {
	return &SearchProvider{api: api, cfg: cfg, now: time.Now}
}

func (p *SearchProvider) Search(ctx context.Context, req models.SearchRequest) (*models.SearchPage, error) {
	q := p.buildQuery(req)
	page, err := p.api.SearchVideos(ctx, q)
	if err != nil {
		return nil, err
	}

	kept := page.Candidates[:0]
	for _, c := range page.Candidates {
		if containsAny(strings.ToLower(c.Title), negativeTitleKeywords) {
			page.Filtered++
			continue
		}
		kept = append(kept, c)
	}
	page.Candidates = kept
	return page, nil
}

func (p *SearchProvider) buildQuery(req models.SearchRequest) models.SearchQuery {
	region := req.Region
	if region == "" {
		region = p.cfg.Region
	}
	q := models.SearchQuery{
		Text:            withNegativeTerms(req.Query),
		PageToken:       req.PageToken,
		DurationBucket:  p.cfg.DurationBucket,
		Language:        p.cfg.Language,
		Region:          region,
		CategoryID:      req.CategoryFilter,
		ClosedCaptioned: req.RequireCaptions,
		MaxResults:      p.cfg.MaxResults,
	}
	if p.cfg.RecencyWindow > 0 {
		q.PublishedAfter = p.now().Add(-p.cfg.RecencyWindow)
	}
	return q
}

func withNegativeTerms(query string) string {
	return strings.TrimSpace(query) + " " + strings.Join(negativeSearchTerms, " ")
}
