package trackers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kyan-si/kyan/internal/common"
	"github.com/kyan-si/kyan/internal/dbx"
	"github.com/kyan-si/kyan/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByURI(ctx context.Context, uri string) (*models.Tracker, error) {
	query := `SELECT id, uri, is_webseed FROM trackers WHERE uri = $1`

	t := &models.Tracker{}
	err := r.db.QueryRowContext(ctx, query, uri).Scan(&t.ID, &t.URI, &t.IsWebseed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, uri string, isWebseed bool) (*models.Tracker, error) {
	query := `INSERT INTO trackers (uri, is_webseed) VALUES ($1, $2) RETURNING id`

	t := &models.Tracker{URI: uri, IsWebseed: isWebseed}
	if err := r.db.QueryRowContext(ctx, query, uri, isWebseed).Scan(&t.ID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

// ClearWebseedFlag reclassifies a webseed row as a tracker.
func (r *PostgresRepository) ClearWebseedFlag(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE trackers SET is_webseed = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Attach(ctx context.Context, torrentID, trackerID int64, order int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO torrent_trackers (torrent_id, tracker_id, ord) VALUES ($1, $2, $3)`,
		torrentID, trackerID, order)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListForTorrent returns the torrent's trackers in association order.
func (r *PostgresRepository) ListForTorrent(ctx context.Context, torrentID int64) ([]*models.Tracker, error) {
	query := `SELECT t.id, t.uri, t.is_webseed FROM trackers t
		 JOIN torrent_trackers tt ON tt.tracker_id = t.id
		 WHERE tt.torrent_id = $1
		 ORDER BY tt.ord`

	rows, err := r.db.QueryContext(ctx, query, torrentID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Tracker
	for rows.Next() {
		t := &models.Tracker{}
		if err := rows.Scan(&t.ID, &t.URI, &t.IsWebseed); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
