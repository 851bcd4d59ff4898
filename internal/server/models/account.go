// Package models defines the records the bot persists.
package models

import "time"

// Account is one Telegram user's ledger row.
type Account struct {
	UserID   int64
	Username string
	Credits  int64

	IsPremium bool
	// ValidityExpireAt is nil when the account has no validity window.
	ValidityExpireAt *time.Time

	SelectedVoice   string
	SpeedPreference Speed
}

// IsValid reports whether the validity window is set and still open at now.
func (a *Account) IsValid(now time.Time) bool {
	return a.ValidityExpireAt != nil && a.ValidityExpireAt.After(now)
}

// IsExpired reports whether the validity window is set and already closed.
func (a *Account) IsExpired(now time.Time) bool {
	return a.ValidityExpireAt != nil && !a.ValidityExpireAt.After(now)
}

// Preferences is the user-editable subset of Account. Nil fields are left
// unchanged.
type Preferences struct {
	SelectedVoice *string
	Speed         *Speed
}
