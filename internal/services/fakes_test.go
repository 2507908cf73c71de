package services

import (
	"context"
	"sync"
	"time"

	"clipscout-backend/internal/models"
)

func goodMeta(id string) *models.VideoMetadata {
	return &models.VideoMetadata{
		ID:              id,
		Title:           "Soldier surprise homecoming reunion",
		Description:     "An emotional family moment",
		PublishedAt:     time.Now().Add(-10 * 24 * time.Hour),
		DurationSeconds: 240,
		ViewCount:       50000,
		LikeCount:       2000,
		CommentCount:    300,
		ChannelTitle:    "Good News Daily",
		Tags:            []string{"military", "family"},
		HasCaptions:     true,
	}
}

type fakeMeta struct {
	mu    sync.Mutex
	data  map[string]*models.VideoMetadata
	errs  map[string]error
	calls map[string]int
}

func newFakeMeta() *fakeMeta {
	return &fakeMeta{
		data:  make(map[string]*models.VideoMetadata),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *fakeMeta) GetVideoMetadata(ctx context.Context, id string) (*models.VideoMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[id]++
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	m, ok := f.data[id]
	if !ok {
		return nil, ErrVideoNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMeta) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type fakeLayout struct {
	signals *models.LayoutSignals
	err     error
	calls   int
}

func (f *fakeLayout) Signals(ctx context.Context, id string) (*models.LayoutSignals, error) {
	f.calls++
	return f.signals, f.err
}

type fakeCaptions struct {
	has   bool
	calls int
}

func (f *fakeCaptions) HasCaptions(ctx context.Context, id string) bool {
	f.calls++
	return f.has
}

// fakeSearcher serves pages keyed by query text and page token.
type fakeSearcher struct {
	mu       sync.Mutex
	pages    map[string]*models.SearchPage
	err      error
	requests []models.SearchRequest
}

func (f *fakeSearcher) Search(ctx context.Context, req models.SearchRequest) (*models.SearchPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.pages[req.Query+"|"+req.PageToken]; ok {
		cp := *p
		cp.Candidates = append([]models.Candidate(nil), p.Candidates...)
		return &cp, nil
	}
	return &models.SearchPage{}, nil
}

type fakeQuota struct {
	err   error
	calls int
}

func (f *fakeQuota) CheckQuota(ctx context.Context) error {
	f.calls++
	return f.err
}

// memStore is an in-memory CollectionStore and RatingStore.
type memStore struct {
	mu        sync.Mutex
	known     []string
	discarded []string
	used      []string
	accepted  []models.VideoRecord
	queries   []models.UsedQuery
	pending   []models.PendingRecord
	promoted  []models.VideoRecord
	scores    []*models.ScoreResult
	moments   map[string][]models.Moment
	ops       []string
	appendErr error
	loadErr   error
}

func newMemStore() *memStore {
	return &memStore{moments: make(map[string][]models.Moment)}
}

func (s *memStore) LoadKnownIDs(ctx context.Context) ([]string, error) {
	return s.known, s.loadErr
}

func (s *memStore) LoadDiscardedURLs(ctx context.Context) ([]string, error) {
	return s.discarded, nil
}

func (s *memStore) LoadUsedQueries(ctx context.Context) ([]string, error) {
	return s.used, nil
}

func (s *memStore) AppendAcceptedRecord(ctx context.Context, rec *models.VideoRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.accepted = append(s.accepted, *rec)
	return nil
}

func (s *memStore) AppendUsedQuery(ctx context.Context, q *models.UsedQuery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, *q)
	return nil
}

func (s *memStore) NextPendingRecord(ctx context.Context) (*models.PendingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil, nil
	}
	p := s.pending[0]
	return &p, nil
}

func (s *memStore) DeletePendingRecord(ctx context.Context, rowID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "delete")
	for i, p := range s.pending {
		if p.RowID == rowID {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			break
		}
	}
	return nil
}

func (s *memStore) AppendDiscardedURL(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "discard")
	s.discarded = append(s.discarded, url)
	return nil
}

func (s *memStore) AppendPromotedRecord(ctx context.Context, rec *models.VideoRecord, score *models.ScoreResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "promote")
	s.promoted = append(s.promoted, *rec)
	s.scores = append(s.scores, score)
	return nil
}

func (s *memStore) AppendMoments(ctx context.Context, rec *models.VideoRecord, moments []models.Moment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "moments")
	s.moments[rec.VideoID] = append(s.moments[rec.VideoID], moments...)
	return nil
}

type fakeCommentSource struct {
	pages map[string][]*CommentPage // order -> pages in sequence
	errs  map[string]error
	calls []string
}

func (f *fakeCommentSource) GetComments(ctx context.Context, videoID, order string, pageSize int, pageToken string) (*CommentPage, error) {
	f.calls = append(f.calls, order+"|"+pageToken)
	if err := f.errs[order]; err != nil {
		return nil, err
	}
	pages := f.pages[order]
	idx := 0
	if pageToken != "" {
		for i := range pages {
			if pages[i].NextPageToken == pageToken {
				idx = i + 1
			}
		}
	}
	if idx >= len(pages) {
		return &CommentPage{}, nil
	}
	return pages[idx], nil
}

type fakeAnalyzer struct {
	analysis *models.CommentAnalysis
	err      error
	calls    int
}

func (f *fakeAnalyzer) FetchAndAnalyze(ctx context.Context, id string, c models.Category, max int) (*models.CommentAnalysis, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.analysis, nil
}

func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}
