// Package adminlog records moderation actions.
package adminlog

import "context"

type Repository interface {
	Append(ctx context.Context, userID *int64, entry string) error
}
