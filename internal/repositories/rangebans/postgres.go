package rangebans

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

func (r *PostgresRepository) IsBanned(ctx context.Context, ip string) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM range_bans WHERE enabled AND $1::inet <<= cidr
	)`

	var banned bool
	if err := r.db.QueryRowContext(ctx, query, ip).Scan(&banned); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return banned, nil
}
