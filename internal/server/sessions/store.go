// Package sessions remembers what an admin's next free-text message means,
// e.g. "the credit amount for user 42". Entries are consumed once and
// expire after a TTL.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/voxbot/internal/server/models"
)

type Store interface {
	Put(ctx context.Context, adminID int64, action models.PendingAction) error
	// Take returns and removes the pending action. ok is false when there
	// is none or it expired.
	Take(ctx context.Context, adminID int64) (action models.PendingAction, ok bool, err error)
	Has(ctx context.Context, adminID int64) (bool, error)
	Clear(ctx context.Context, adminID int64) error
}
