package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"clipscout-backend/internal/models"
)

type QueryRepo struct {
	pool *pgxpool.Pool
}

func NewQueryRepo(pool *pgxpool.Pool) *QueryRepo {
	return &QueryRepo{pool: pool}
}

// Insert appends one usage row; a query may be used many times.
func (r *QueryRepo) Insert(ctx context.Context, q *models.UsedQuery) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO used_queries (query, category, videos_found, session_id, used_at)
		VALUES ($1, $2, $3, $4, $5)`,
		q.Query, string(q.Category), q.VideosFound, q.SessionID, q.UsedAt,
	)
	return err
}

// DistinctQueries returns each query text that has ever been issued.
func (r *QueryRepo) DistinctQueries(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, "SELECT DISTINCT query FROM used_queries")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
