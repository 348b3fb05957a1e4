// Package categories reads the seeded category tables.
package categories

import "context"

// Repository validates category selections.
type Repository interface {
	Exists(ctx context.Context, mainID, subID int64) (bool, error)
}
