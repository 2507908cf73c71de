package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipscout-backend/internal/models"
)

type fakeSearchAPI struct {
	page    *models.SearchPage
	err     error
	queries []models.SearchQuery
}

func (f *fakeSearchAPI) SearchVideos(ctx context.Context, q models.SearchQuery) (*models.SearchPage, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.page
	cp.Candidates = append([]models.Candidate(nil), f.page.Candidates...)
	return &cp, nil
}

func TestSearchProvider_BuildsFilteredQuery(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	api := &fakeSearchAPI{page: &models.SearchPage{}}
	cfg := DefaultSearchConfig()
	cfg.Region = "US"
	p := NewSearchProvider(api, cfg)
	p.now = func() time.Time { return now }

	_, err := p.Search(context.Background(), models.SearchRequest{
		Query:           "  dog rescue  ",
		PageToken:       "tok",
		CategoryFilter:  "15",
		RequireCaptions: true,
	})
	require.NoError(t, err)
	require.Len(t, api.queries, 1)

	q := api.queries[0]
	assert.True(t, strings.HasPrefix(q.Text, "dog rescue -"), q.Text)
	for _, term := range negativeSearchTerms {
		assert.Contains(t, q.Text, term)
	}
	assert.Equal(t, "tok", q.PageToken)
	assert.Equal(t, "medium", q.DurationBucket)
	assert.Equal(t, "en", q.Language)
	assert.Equal(t, "US", q.Region)
	assert.Equal(t, "15", q.CategoryID)
	assert.True(t, q.ClosedCaptioned)
	assert.Equal(t, 25, q.MaxResults)
	assert.Equal(t, now.Add(-180*24*time.Hour), q.PublishedAfter)
}

func TestSearchProvider_RequestRegionOverrides(t *testing.T) {
	api := &fakeSearchAPI{page: &models.SearchPage{}}
	cfg := DefaultSearchConfig()
	cfg.Region = "US"
	cfg.RecencyWindow = 0

	_, err := NewSearchProvider(api, cfg).Search(context.Background(), models.SearchRequest{Query: "x", Region: "GB"})

	require.NoError(t, err)
	assert.Equal(t, "GB", api.queries[0].Region)
	assert.True(t, api.queries[0].PublishedAfter.IsZero())
}

func TestSearchProvider_RefiltersTitles(t *testing.T) {
	api := &fakeSearchAPI{page: &models.SearchPage{
		Candidates: []models.Candidate{
			{ID: "1", Title: "Dog reunites with owner"},
			{ID: "2", Title: "Funny cats #Shorts"},
			{ID: "3", Title: "Best fails COMPILATION 2026"},
			{ID: "4", Title: "Grandma's surprise party"},
		},
		NextPageToken: "next",
	}}

	page, err := NewSearchProvider(api, DefaultSearchConfig()).Search(context.Background(), models.SearchRequest{Query: "x"})

	require.NoError(t, err)
	var ids []string
	for _, c := range page.Candidates {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"1", "4"}, ids)
	assert.Equal(t, 2, page.Filtered)
	assert.Equal(t, "next", page.NextPageToken)
}

func TestSearchProvider_PropagatesErrors(t *testing.T) {
	api := &fakeSearchAPI{err: ErrQuotaExhausted}
	_, err := NewSearchProvider(api, DefaultSearchConfig()).Search(context.Background(), models.SearchRequest{Query: "x"})
	assert.ErrorIs(t, err, ErrQuotaExhausted)
}
