package categories

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

func (r *PostgresRepository) Exists(ctx context.Context, mainID, subID int64) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM sub_categories WHERE main_category_id = $1 AND id = $2
	)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, mainID, subID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}
