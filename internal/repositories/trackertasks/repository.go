// Package trackertasks is the durable queue of notifications for the
// external tracker service.
package trackertasks

import (
	"context"

	"github.com/kyan-si/kyan/internal/models"
)

// Repository queues (info_hash, action) rows. Enqueue runs inside the
// upload transaction so a committed record always has its notification;
// the worker drains pending rows and marks them done after delivery.
type Repository interface {
	Enqueue(ctx context.Context, infoHash []byte, action string) error
	PickPending(ctx context.Context, limit int) ([]*models.TrackerTask, error)
	MarkDone(ctx context.Context, id int64) error
	RecordAttempt(ctx context.Context, id int64) error
}
