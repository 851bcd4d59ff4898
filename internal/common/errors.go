// Package common defines shared constants and sentinel errors used across
// voxbot components. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrStorage    = errors.New("db error")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Ledger errors.
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidSpeed        = errors.New("invalid speed")

	// Synthesis flow errors.
	ErrTextTooLong      = errors.New("text too long")
	ErrNoVoiceSelected  = errors.New("no voice selected")
	ErrValidityRequired = errors.New("validity required")
	ErrEmptyAudio       = errors.New("empty audio")

	// Side-effect errors; reaper and broadcast swallow these.
	ErrNotification   = errors.New("notification failed")
	ErrArtifactDelete = errors.New("artifact delete failed")
)

// StorageError wraps a driver error so that it reads "db error: <cause>"
// and matches ErrStorage.
func StorageError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
