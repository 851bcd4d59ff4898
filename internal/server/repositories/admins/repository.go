package admins

import "context"

type Repository interface {
	// Add is a no-op for an id already present.
	Add(ctx context.Context, userID int64) error
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	List(ctx context.Context) ([]int64, error)
}
