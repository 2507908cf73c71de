package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"clipscout-backend/internal/models"
)

type CollectionStats struct {
	Attempts        int            `json:"attempts"`
	Checked         int            `json:"checked"`
	Accepted        int            `json:"accepted"`
	Rejected        int            `json:"rejected"`
	Skipped         int            `json:"skipped"`
	Filtered        int            `json:"filtered"`
	HasCaptions     int            `json:"has_captions"`
	NoCaptions      int            `json:"no_captions"`
	PersistFailures int            `json:"persist_failures"`
	QueriesReused   int            `json:"queries_reused"`
	RejectReasons   map[string]int `json:"reject_reasons"`
}

// CollectionContext holds all per-run state. Only the collection loop
// mutates it; the validation pipeline reads the sets and records caption stats.
type CollectionContext struct {
	RunID         string
	SessionIDs    map[string]struct{}
	PersistedIDs  map[string]struct{}
	DiscardedURLs map[string]struct{}
	UsedQueries   map[string]struct{}
	CheckedIDs    map[string]struct{}
	Accepted      []models.VideoRecord
	Stats         CollectionStats
}

func NewCollectionContext(runID string) *CollectionContext {
	return &CollectionContext{
		RunID:         runID,
		SessionIDs:    make(map[string]struct{}),
		PersistedIDs:  make(map[string]struct{}),
		DiscardedURLs: make(map[string]struct{}),
		UsedQueries:   make(map[string]struct{}),
		CheckedIDs:    make(map[string]struct{}),
		Stats:         CollectionStats{RejectReasons: make(map[string]int)},
	}
}

// LoadCollectionContext reconciles with the store once at run start.
func LoadCollectionContext(ctx context.Context, store CollectionStore, runID string) (*CollectionContext, error) {
	var ids, urls, queries []string

	// The three sets are independent; the gateway throttles the calls itself.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		if ids, err = store.LoadKnownIDs(gctx); err != nil {
			return fmt.Errorf("failed to load known ids: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if urls, err = store.LoadDiscardedURLs(gctx); err != nil {
			return fmt.Errorf("failed to load discarded urls: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if queries, err = store.LoadUsedQueries(gctx); err != nil {
			return fmt.Errorf("failed to load used queries: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cc := NewCollectionContext(runID)
	for _, id := range ids {
		cc.PersistedIDs[id] = struct{}{}
	}
	for _, u := range urls {
		cc.DiscardedURLs[u] = struct{}{}
	}
	for _, q := range queries {
		cc.UsedQueries[q] = struct{}{}
	}
	return cc, nil
}

func (c *CollectionContext) InSession(id string) bool {
	_, ok := c.SessionIDs[id]
	return ok
}

func (c *CollectionContext) Persisted(id string) bool {
	_, ok := c.PersistedIDs[id]
	return ok
}

func (c *CollectionContext) Discarded(url string) bool {
	_, ok := c.DiscardedURLs[url]
	return ok
}

func (c *CollectionContext) QueryUsed(q string) bool {
	_, ok := c.UsedQueries[q]
	return ok
}

// markChecked returns false when id was already checked this run.
func (c *CollectionContext) markChecked(id string) bool {
	if _, ok := c.CheckedIDs[id]; ok {
		return false
	}
	c.CheckedIDs[id] = struct{}{}
	return true
}

func (c *CollectionContext) addAccepted(rec models.VideoRecord) {
	c.SessionIDs[rec.VideoID] = struct{}{}
	c.Accepted = append(c.Accepted, rec)
	c.Stats.Accepted++
}

func (c *CollectionContext) recordReject(reason string) {
	c.Stats.Rejected++
	c.Stats.RejectReasons[reason]++
}

func (c *CollectionContext) recordCaption(has bool) {
	if has {
		c.Stats.HasCaptions++
	} else {
		c.Stats.NoCaptions++
	}
}
