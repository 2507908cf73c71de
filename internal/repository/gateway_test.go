package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipscout-backend/internal/models"
	"clipscout-backend/internal/ratelimit"
	"clipscout-backend/internal/services"
)

var (
	_ services.CollectionStore = (*Gateway)(nil)
	_ services.RatingStore     = (*Gateway)(nil)
)

type countingLimiter struct {
	calls int
	err   error
}

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.calls++
	return l.err
}

type memVideos struct {
	pending  []models.PendingRecord
	promoted []models.VideoRecord
	nextID   int64
}

func (m *memVideos) InsertPending(ctx context.Context, rec *models.VideoRecord) (bool, error) {
	for _, p := range m.pending {
		if p.Record.VideoID == rec.VideoID {
			return false, nil
		}
	}
	m.nextID++
	m.pending = append(m.pending, models.PendingRecord{RowID: m.nextID, Record: *rec})
	return true, nil
}

func (m *memVideos) NextPending(ctx context.Context) (*models.PendingRecord, error) {
	if len(m.pending) == 0 {
		return nil, nil
	}
	p := m.pending[0]
	return &p, nil
}

func (m *memVideos) DeletePending(ctx context.Context, rowID int64) error {
	for i, p := range m.pending {
		if p.RowID == rowID {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memVideos) InsertPromoted(ctx context.Context, rec *models.VideoRecord, score *models.ScoreResult) error {
	m.promoted = append(m.promoted, *rec)
	return nil
}

func (m *memVideos) KnownIDs(ctx context.Context) ([]string, error) {
	var ids []string
	for _, p := range m.pending {
		ids = append(ids, p.Record.VideoID)
	}
	for _, r := range m.promoted {
		ids = append(ids, r.VideoID)
	}
	return ids, nil
}

type memDiscards struct{ urls []string }

func (m *memDiscards) Insert(ctx context.Context, url string) error {
	m.urls = append(m.urls, url)
	return nil
}

func (m *memDiscards) ListURLs(ctx context.Context) ([]string, error) { return m.urls, nil }

type memQueries struct{ rows []models.UsedQuery }

func (m *memQueries) Insert(ctx context.Context, q *models.UsedQuery) error {
	m.rows = append(m.rows, *q)
	return nil
}

func (m *memQueries) DistinctQueries(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, r := range m.rows {
		if !seen[r.Query] {
			seen[r.Query] = true
			out = append(out, r.Query)
		}
	}
	return out, nil
}

type memMoments struct{ byVideo map[string][]models.Moment }

func (m *memMoments) InsertBatch(ctx context.Context, rec *models.VideoRecord, moments []models.Moment) error {
	m.byVideo[rec.VideoID] = append(m.byVideo[rec.VideoID], moments...)
	return nil
}

func newTestGateway(l waiter) (*Gateway, *memVideos, *memDiscards, *memQueries, *memMoments) {
	v, d, q, m := &memVideos{}, &memDiscards{}, &memQueries{}, &memMoments{byVideo: map[string][]models.Moment{}}
	return &Gateway{videos: v, discards: d, queries: q, moments: m, limiter: l}, v, d, q, m
}

func TestGateway_EveryCallWaitsOnLimiter(t *testing.T) {
	l := &countingLimiter{}
	g, videos, discards, queries, moments := newTestGateway(l)
	ctx := context.Background()
	rec := &models.VideoRecord{VideoID: "abc", URL: models.WatchURL("abc"), Category: models.CategoryFunny}

	require.NoError(t, g.AppendAcceptedRecord(ctx, rec))
	require.NoError(t, g.AppendAcceptedRecord(ctx, rec))
	require.Len(t, videos.pending, 1, "duplicate pending insert is a no-op")
	require.NoError(t, g.AppendUsedQuery(ctx, &models.UsedQuery{Query: "q", Category: models.CategoryFunny}))
	ids, err := g.LoadKnownIDs(ctx)
	require.NoError(t, err)
	_, err = g.LoadDiscardedURLs(ctx)
	require.NoError(t, err)
	used, err := g.LoadUsedQueries(ctx)
	require.NoError(t, err)

	p, err := g.NextPendingRecord(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.NoError(t, g.AppendDiscardedURL(ctx, p.Record.URL))
	require.NoError(t, g.DeletePendingRecord(ctx, p.RowID))
	require.NoError(t, g.AppendPromotedRecord(ctx, &p.Record, &models.ScoreResult{FinalScore: 8}))
	require.NoError(t, g.AppendMoments(ctx, &p.Record, []models.Moment{{TimestampText: "0:10", Seconds: 10}}))

	assert.Equal(t, 11, l.calls)
	assert.Equal(t, []string{"abc"}, ids)
	assert.Equal(t, []string{"q"}, used)
	assert.Empty(t, videos.pending)
	assert.Equal(t, []string{models.WatchURL("abc")}, discards.urls)
	assert.Len(t, queries.rows, 1)
	assert.Len(t, moments.byVideo["abc"], 1)
}

func TestGateway_EmptyMomentsSkipDatabase(t *testing.T) {
	l := &countingLimiter{}
	g, _, _, _, moments := newTestGateway(l)

	require.NoError(t, g.AppendMoments(context.Background(), &models.VideoRecord{VideoID: "x"}, nil))
	assert.Zero(t, l.calls)
	assert.Empty(t, moments.byVideo)
}

func TestGateway_LimiterErrorStopsCall(t *testing.T) {
	l := &countingLimiter{err: context.Canceled}
	g, videos, _, _, _ := newTestGateway(l)

	err := g.AppendAcceptedRecord(context.Background(), &models.VideoRecord{VideoID: "abc"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, videos.pending)
}

func TestGateway_RealLimiterSpacing(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{MaxCalls: 100, Window: time.Minute, MinSpacing: 20 * time.Millisecond})
	g, _, _, _, _ := newTestGateway(limiter)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := g.LoadKnownIDs(context.Background())
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}
