// Package rangebans stores CIDR ranges that are blocked from anonymous
// uploads.
package rangebans

import "context"

type Repository interface {
	// IsBanned reports whether ip falls inside any enabled banned range.
	IsBanned(ctx context.Context, ip string) (bool, error)
}
