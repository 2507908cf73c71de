package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"clipscout-backend/internal/models"
)

const runColumns = `id, kind, status, config_json, collected, checked, rejected, attempts,
	stop_reason, error_message, created_at, completed_at`

type RunRepo struct {
	pool *pgxpool.Pool
}

func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

// RunResult is the final tally written when a run ends.
type RunResult struct {
	State        models.RunState
	StopReason   models.StopReason
	Collected    int
	Checked      int
	Rejected     int
	Attempts     int
	ErrorMessage string
}

func (r *RunRepo) Create(ctx context.Context, run *models.Run) error {
	run.ID = uuid.New()
	run.Status = models.RunIdle
	config := []byte(run.ConfigJSON)
	if len(config) == 0 {
		config = []byte("{}")
	}

	query := `INSERT INTO runs (id, kind, status, config_json) VALUES ($1, $2, $3, $4) RETURNING created_at`
	return r.pool.QueryRow(ctx, query, run.ID, string(run.Kind), string(run.Status), config).Scan(&run.CreatedAt)
}

func (r *RunRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	return scanRun(r.pool.QueryRow(ctx, "SELECT "+runColumns+" FROM runs WHERE id = $1", id))
}

// List returns the newest runs first; an empty kind lists all kinds.
func (r *RunRepo) List(ctx context.Context, kind string, limit int) ([]*models.Run, error) {
	query := "SELECT " + runColumns + " FROM runs WHERE ($1 = '' OR kind = $1) ORDER BY created_at DESC LIMIT $2"
	rows, err := r.pool.Query(ctx, query, kind, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *RunRepo) MarkRunning(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE runs SET status = $1 WHERE id = $2", string(models.RunRunning), id)
	return err
}

func (r *RunRepo) Finish(ctx context.Context, id uuid.UUID, res RunResult) error {
	var stopReason, errMsg *string
	if res.StopReason != "" {
		s := string(res.StopReason)
		stopReason = &s
	}
	if res.ErrorMessage != "" {
		errMsg = &res.ErrorMessage
	}

	var completedAt *time.Time
	if res.State.Terminal() {
		now := time.Now()
		completedAt = &now
	}

	_, err := r.pool.Exec(ctx,
		`UPDATE runs SET status = $1, stop_reason = $2, error_message = $3, collected = $4,
		checked = $5, rejected = $6, attempts = $7, completed_at = $8 WHERE id = $9`,
		string(res.State), stopReason, errMsg, res.Collected, res.Checked, res.Rejected, res.Attempts, completedAt, id,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	run := &models.Run{}
	var kind, status string
	var config []byte
	err := row.Scan(
		&run.ID, &kind, &status, &config, &run.Collected, &run.Checked, &run.Rejected, &run.Attempts,
		&run.StopReason, &run.ErrorMessage, &run.CreatedAt, &run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Kind = models.RunKind(kind)
	run.Status = models.RunState(status)
	run.ConfigJSON = config
	return run, nil
}
