// Package torrents persists torrent records.
package torrents

import (
	"context"
	"time"

	"github.com/kyan-si/kyan/internal/models"
)

// Repository is the torrent-record store. Insert enforces the unique
// info_hash constraint, which is the source of truth for duplicate
// rejection across concurrent uploads.
type Repository interface {
	Insert(ctx context.Context, t *models.Torrent) error
	GetByID(ctx context.Context, id int64) (*models.Torrent, error)
	GetByInfoHash(ctx context.Context, infoHash []byte) (*models.Torrent, error)
	Delete(ctx context.Context, id int64) error
	SetDeleted(ctx context.Context, id int64, deleted bool) error

	// CountRecentByUploader and LastUploadTime back the upload rate
	// limiter: both match the user id or the uploader IP.
	CountRecentByUploader(ctx context.Context, userID *int64, ip []byte, since time.Time) (int, error)
	LastUploadTime(ctx context.Context, userID *int64, ip []byte) (time.Time, error)
}
