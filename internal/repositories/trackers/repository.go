// Package trackers persists tracker/webseed rows and their ordered
// associations to torrents.
package trackers

import (
	"context"

	"github.com/kyan-si/kyan/internal/models"
)

// Repository stores tracker rows keyed by unique URI. ClearWebseedFlag is
// the only reclassification: webseed to tracker, never the reverse.
type Repository interface {
	GetByURI(ctx context.Context, uri string) (*models.Tracker, error)
	Insert(ctx context.Context, uri string, isWebseed bool) (*models.Tracker, error)
	ClearWebseedFlag(ctx context.Context, id int64) error
	Attach(ctx context.Context, torrentID, trackerID int64, order int) error
	ListForTorrent(ctx context.Context, torrentID int64) ([]*models.Tracker, error)
}
