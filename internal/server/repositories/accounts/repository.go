// Package accounts persists ledger rows. Every mutation is a single
// statement so a crash never leaves a half-applied change.
package accounts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/voxbot/internal/server/models"
)

type Repository interface {
	// Get returns common.ErrorNotFound when the account does not exist.
	Get(ctx context.Context, userID int64) (*models.Account, error)
	// Upsert creates the account with zero credits, or refreshes its
	// username when username is non-empty.
	Upsert(ctx context.Context, userID int64, username string) (*models.Account, error)
	// List returns up to limit accounts with user_id > afterID in id order.
	List(ctx context.Context, afterID int64, limit int) ([]*models.Account, error)
	ListPremium(ctx context.Context, afterID int64, limit int) ([]*models.Account, error)
	// ListWithValidity pages only accounts that have an expiry set.
	ListWithValidity(ctx context.Context, afterID int64, limit int) ([]*models.Account, error)
	Count(ctx context.Context) (int64, error)

	// AddCredits applies delta, which may be negative, and returns the new
	// balance.
	AddCredits(ctx context.Context, userID int64, delta int64) (int64, error)
	// ConsumeCredits debits cost only if the balance covers it, otherwise
	// it returns common.ErrInsufficientCredits and changes nothing.
	ConsumeCredits(ctx context.Context, userID int64, cost int64) (int64, error)

	SetValidity(ctx context.Context, userID int64, expireAt time.Time) error
	ClearValidity(ctx context.Context, userID int64) error
	// ResetExpired zeroes credits and clears premium and validity.
	ResetExpired(ctx context.Context, userID int64) error

	UpdatePreferences(ctx context.Context, userID int64, prefs models.Preferences) error
}
