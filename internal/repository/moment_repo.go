package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clipscout-backend/internal/models"
)

type MomentRepo struct {
	pool *pgxpool.Pool
}

func NewMomentRepo(pool *pgxpool.Pool) *MomentRepo {
	return &MomentRepo{pool: pool}
}

// InsertBatch writes all moments of one video in a single round trip.
func (r *MomentRepo) InsertBatch(ctx context.Context, rec *models.VideoRecord, moments []models.Moment) error {
	if len(moments) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, m := range moments {
		batch.Queue(`INSERT INTO moments (video_id, category, timestamp_text, seconds, source_comment,
			relevance_score, category_match_count, clip_potential, sentiment)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (video_id, seconds, source_comment) DO NOTHING`,
			rec.VideoID, string(rec.Category), m.TimestampText, m.Seconds, m.SourceComment,
			m.RelevanceScore, m.CategoryMatchCount, m.ClipPotential, string(m.Sentiment),
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range moments {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("moment %d: %w", i, err)
		}
	}
	return nil
}

// ListByVideo returns moments in relevance order.
func (r *MomentRepo) ListByVideo(ctx context.Context, videoID string) ([]models.Moment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT timestamp_text, seconds, source_comment, relevance_score, category_match_count, clip_potential, sentiment
		FROM moments WHERE video_id = $1 ORDER BY relevance_score DESC, seconds ASC`, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Moment
	for rows.Next() {
		var m models.Moment
		var sentiment string
		if err := rows.Scan(&m.TimestampText, &m.Seconds, &m.SourceComment, &m.RelevanceScore,
			&m.CategoryMatchCount, &m.ClipPotential, &sentiment); err != nil {
			return nil, err
		}
		m.Sentiment = models.Sentiment(sentiment)
		out = append(out, m)
	}
	return out, rows.Err()
}
