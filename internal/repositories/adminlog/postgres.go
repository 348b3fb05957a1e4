package adminlog

import (
	"context"
	"fmt"

	"github.com/kyan-si/kyan/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, userID *int64, entry string) error {
	query := `INSERT INTO admin_log (user_id, log) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, userID, entry); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
