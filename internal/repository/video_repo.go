package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clipscout-backend/internal/models"
)

const videoColumns = `video_id, title, url, category, search_query, duration_seconds,
	view_count, like_count, comment_count, published_at, channel_title, tags, collected_at`

type VideoRepo struct {
	pool *pgxpool.Pool
}

func NewVideoRepo(pool *pgxpool.Pool) *VideoRepo {
	return &VideoRepo{pool: pool}
}

// InsertPending reports false when the video is already pending.
func (r *VideoRepo) InsertPending(ctx context.Context, rec *models.VideoRecord) (bool, error) {
	query := `INSERT INTO pending_videos (` + videoColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (video_id) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query, recordArgs(rec)...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// NextPending returns the oldest pending row, or nil when the queue is empty.
func (r *VideoRepo) NextPending(ctx context.Context) (*models.PendingRecord, error) {
	p := &models.PendingRecord{}
	query := `SELECT id, ` + videoColumns + ` FROM pending_videos ORDER BY id ASC LIMIT 1`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query), &p.RowID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Record = rec
	return p, nil
}

func (r *VideoRepo) DeletePending(ctx context.Context, rowID int64) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM pending_videos WHERE id = $1", rowID)
	return err
}

func (r *VideoRepo) CountPending(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM pending_videos").Scan(&n)
	return n, err
}

func (r *VideoRepo) ListPending(ctx context.Context, limit, offset int) ([]*models.PendingRecord, int, error) {
	total, err := r.CountPending(ctx)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT id, ` + videoColumns + ` FROM pending_videos ORDER BY id ASC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*models.PendingRecord
	for rows.Next() {
		p := &models.PendingRecord{}
		rec, err := scanRecord(rows, &p.RowID)
		if err != nil {
			return nil, 0, err
		}
		p.Record = rec
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// InsertPromoted is a no-op for a video that is already promoted.
func (r *VideoRepo) InsertPromoted(ctx context.Context, rec *models.VideoRecord, score *models.ScoreResult) error {
	scoreJSON, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("failed to encode score: %w", err)
	}

	query := `INSERT INTO promoted_videos (` + videoColumns + `, final_score, confidence, score_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (video_id) DO NOTHING`

	args := append(recordArgs(rec), score.FinalScore, score.Confidence, scoreJSON)
	_, err = r.pool.Exec(ctx, query, args...)
	return err
}

// ListPromoted orders by score; an empty category lists all of them.
func (r *VideoRepo) ListPromoted(ctx context.Context, category string, limit, offset int) ([]*models.PromotedVideo, int, error) {
	where := ""
	var args []interface{}
	if category != "" {
		where = "WHERE category = $1"
		args = append(args, category)
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM promoted_videos "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+videoColumns+`, final_score, confidence, score_json, promoted_at
		FROM promoted_videos %s ORDER BY final_score DESC, promoted_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*models.PromotedVideo
	for rows.Next() {
		v := &models.PromotedVideo{}
		var scoreJSON []byte
		rec, err := scanRecord(rows, nil, &v.FinalScore, &v.Confidence, &scoreJSON, &v.PromotedAt)
		if err != nil {
			return nil, 0, err
		}
		v.VideoRecord = rec
		if len(scoreJSON) > 0 {
			v.Score = &models.ScoreResult{}
			if err := json.Unmarshal(scoreJSON, v.Score); err != nil {
				v.Score = nil
			}
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}

// KnownIDs returns every video id that is pending or promoted.
func (r *VideoRepo) KnownIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT video_id FROM pending_videos
		UNION SELECT video_id FROM promoted_videos`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func recordArgs(rec *models.VideoRecord) []interface{} {
	return []interface{}{
		rec.VideoID, rec.Title, rec.URL, string(rec.Category), rec.SearchQuery, rec.DurationSeconds,
		rec.ViewCount, rec.LikeCount, rec.CommentCount, nullableTime(rec.PublishedAt), rec.ChannelTitle,
		rec.Tags, rec.CollectedAt,
	}
}

// scanRecord scans the optional rowID before and extra after videoColumns.
func scanRecord(row pgx.Row, rowID *int64, extra ...interface{}) (models.VideoRecord, error) {
	var rec models.VideoRecord
	var category string
	var published *time.Time

	dest := make([]interface{}, 0, 14+len(extra))
	if rowID != nil {
		dest = append(dest, rowID)
	}
	dest = append(dest,
		&rec.VideoID, &rec.Title, &rec.URL, &category, &rec.SearchQuery, &rec.DurationSeconds,
		&rec.ViewCount, &rec.LikeCount, &rec.CommentCount, &published, &rec.ChannelTitle,
		&rec.Tags, &rec.CollectedAt,
	)
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return rec, err
	}
	rec.Category = models.Category(category)
	if published != nil {
		rec.PublishedAt = published.UTC()
	}
	return rec, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
