package trackertasks

import (
	"context"
	"fmt"

	"github.com/kyan-si/kyan/internal/dbx"
	"github.com/kyan-si/kyan/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Enqueue(ctx context.Context, infoHash []byte, action string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tracker_tasks (info_hash, action) VALUES ($1, $2)`, infoHash, action)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// PickPending returns up to limit undelivered tasks, oldest first, locking
// them against a concurrent worker picking the same batch.
func (r *PostgresRepository) PickPending(ctx context.Context, limit int) ([]*models.TrackerTask, error) {
	query := `SELECT id, info_hash, action, attempts, created_at FROM tracker_tasks
		 WHERE NOT done
		 ORDER BY id
		 LIMIT $1
		 FOR UPDATE SKIP LOCKED`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.TrackerTask
	for rows.Next() {
		t := &models.TrackerTask{}
		if err := rows.Scan(&t.ID, &t.InfoHash, &t.Action, &t.Attempts, &t.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) MarkDone(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tracker_tasks SET done = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RecordAttempt(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tracker_tasks SET attempts = attempts + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
