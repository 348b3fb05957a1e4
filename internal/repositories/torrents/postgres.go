package torrents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kyan-si/kyan/internal/common"
	"github.com/kyan-si/kyan/internal/dbx"
	"github.com/kyan-si/kyan/internal/models"
)

// PostgresRepository implements torrent storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const uniqueViolation = "23505"

const torrentColumns = `id, info_hash, display_name, torrent_name, information, description,
		encoding, filesize, main_category_id, sub_category_id,
		anonymous, hidden, remake, complete, trusted, comment_locked, deleted,
		user_id, uploader_ip, created_at, filelist`

// Insert stores a new record. A zero ID lets the database assign one; a
// non-zero ID is written as-is (the replace-on-edit flow keeps the old id).
// A duplicate info_hash surfaces as common.ErrorAlreadyExists.
func (r *PostgresRepository) Insert(ctx context.Context, t *models.Torrent) error {
	var err error
	if t.ID != 0 {
		query := `
		INSERT INTO torrents (id, info_hash, display_name, torrent_name, information, description,
			encoding, filesize, main_category_id, sub_category_id,
			anonymous, hidden, remake, complete, trusted, comment_locked,
			user_id, uploader_ip, filelist)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING created_at`
		err = r.db.QueryRowContext(ctx, query,
			t.ID, t.InfoHash, t.DisplayName, t.TorrentName, t.Information, t.Description,
			t.Encoding, t.Filesize, t.MainCategoryID, t.SubCategoryID,
			t.Anonymous, t.Hidden, t.Remake, t.Complete, t.Trusted, t.CommentLocked,
			t.UserID, t.UploaderIP, t.Filelist).Scan(&t.CreatedAt)
	} else {
		query := `
		INSERT INTO torrents (info_hash, display_name, torrent_name, information, description,
			encoding, filesize, main_category_id, sub_category_id,
			anonymous, hidden, remake, complete, trusted, comment_locked,
			user_id, uploader_ip, filelist)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at`
		err = r.db.QueryRowContext(ctx, query,
			t.InfoHash, t.DisplayName, t.TorrentName, t.Information, t.Description,
			t.Encoding, t.Filesize, t.MainCategoryID, t.SubCategoryID,
			t.Anonymous, t.Hidden, t.Remake, t.Complete, t.Trusted, t.CommentLocked,
			t.UserID, t.UploaderIP, t.Filelist).Scan(&t.ID, &t.CreatedAt)
	}

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.Torrent, error) {
	t := &models.Torrent{}
	err := row.Scan(
		&t.ID, &t.InfoHash, &t.DisplayName, &t.TorrentName, &t.Information, &t.Description,
		&t.Encoding, &t.Filesize, &t.MainCategoryID, &t.SubCategoryID,
		&t.Anonymous, &t.Hidden, &t.Remake, &t.Complete, &t.Trusted, &t.CommentLocked, &t.Deleted,
		&t.UserID, &t.UploaderIP, &t.CreatedAt, &t.Filelist)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Torrent, error) {
	query := `SELECT ` + torrentColumns + ` FROM torrents WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByInfoHash(ctx context.Context, infoHash []byte) (*models.Torrent, error) {
	query := `SELECT ` + torrentColumns + ` FROM torrents WHERE info_hash = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, infoHash))
}

// Delete removes the row entirely; tracker associations cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM torrents WHERE id = $1`, id)
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

// SetDeleted toggles the soft-delete flag.
func (r *PostgresRepository) SetDeleted(ctx context.Context, id int64, deleted bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE torrents SET deleted = $2 WHERE id = $1`, id, deleted)
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

// uploaderFilter matches rows uploaded by the user (when known) or from
// the same IP.
const uploaderFilter = `(($1::bigint IS NOT NULL AND user_id = $1) OR uploader_ip = $2)`

func (r *PostgresRepository) CountRecentByUploader(ctx context.Context, userID *int64, ip []byte, since time.Time) (int, error) {
	query := `SELECT count(id) FROM torrents WHERE ` + uploaderFilter + ` AND created_at >= $3`

	var count int
	err := r.db.QueryRowContext(ctx, query, userID, ip, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) LastUploadTime(ctx context.Context, userID *int64, ip []byte) (time.Time, error) {
	query := `SELECT created_at FROM torrents WHERE ` + uploaderFilter + `
		 ORDER BY created_at DESC LIMIT 1`

	var created time.Time
	err := r.db.QueryRowContext(ctx, query, userID, ip).Scan(&created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, common.ErrorNotFound
		}
		return time.Time{}, fmt.Errorf("db error: %w", err)
	}
	return created, nil
}
