package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DiscardRepo holds URLs that must never be collected or rated again.
type DiscardRepo struct {
	pool *pgxpool.Pool
}

func NewDiscardRepo(pool *pgxpool.Pool) *DiscardRepo {
	return &DiscardRepo{pool: pool}
}

func (r *DiscardRepo) Insert(ctx context.Context, url string) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO discarded_urls (url) VALUES ($1) ON CONFLICT (url) DO NOTHING", url)
	return err
}

func (r *DiscardRepo) ListURLs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, "SELECT url FROM discarded_urls")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}
