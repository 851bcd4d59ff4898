// Package services contains the bot's business logic. This file implements
// LedgerService, which owns every change to an account's credits, validity
// window and preferences.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/voxbot/internal/clock"
	"github.com/dmitrijs2005/voxbot/internal/common"
	"github.com/dmitrijs2005/voxbot/internal/keymutex"
	"github.com/dmitrijs2005/voxbot/internal/logging"
	"github.com/dmitrijs2005/voxbot/internal/server/metrics"
	"github.com/dmitrijs2005/voxbot/internal/server/models"
	"github.com/dmitrijs2005/voxbot/internal/server/repositories/repomanager"
)

// DefaultPageSize is used when paging through every account.
const DefaultPageSize = 200

// MaxValidityDays caps a single validity window at roughly a century.
const MaxValidityDays = 36500

// Ledger operation names, used as metric labels.
const (
	OpEnsure         = "ensure"
	OpAddCredits     = "add_credits"
	OpRemoveCredits  = "remove_credits"
	OpConsume        = "consume"
	OpSetValidity    = "set_validity"
	OpRemoveValidity = "remove_validity"
	OpPreferences    = "preferences"
)

// Deps bundles what every service needs. Locks must be shared between all
// services of one process so that per-user mutations serialise.
type Deps struct {
	DB      *sql.DB
	Repos   repomanager.RepositoryManager
	Locks   *keymutex.KeyMutex[int64]
	Clock   clock.Clock
	Metrics *metrics.Metrics
	Logger  logging.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Locks == nil {
		d.Locks = keymutex.New[int64]()
	}
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	if d.Logger == nil {
		d.Logger = logging.Nop()
	}
	return d
}

// LedgerService provides:
//   - EnsureAccount: create-or-refresh on first contact
//   - AddCredits / RemoveCredits: administrative balance changes
//   - ConsumeCredits: the conditional debit behind each synthesis
//   - SetValidity / RemoveValidity / IsValid: the premium window
//   - UpdatePreferences: voice and speed only
type LedgerService struct {
	Deps
	log logging.Logger
}

func NewLedgerService(d Deps) *LedgerService {
	d = d.withDefaults()
	return &LedgerService{Deps: d, log: d.Logger.With("module", "ledger")}
}

// ParseAmount reads a strictly positive integer typed by an admin.
func ParseAmount(text string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", common.ErrInvalidAmount, text)
	}
	return n, nil
}

func (s *LedgerService) observe(ctx context.Context, op string, userID int64, err error) {
	s.Metrics.ObserveLedger(op, err)
	if err != nil && !errors.Is(err, common.ErrInvalidAmount) && !errors.Is(err, common.ErrInsufficientCredits) {
		s.log.Error(ctx, "ledger operation failed", "op", op, "user_id", userID, "error", err)
	}
}

// EnsureAccount creates the account with zero credits if missing and
// refreshes the username when one is given.
func (s *LedgerService) EnsureAccount(ctx context.Context, userID int64, username string) (*models.Account, error) {
	unlock := s.Locks.Lock(userID)
	defer unlock()

	a, err := s.Repos.Accounts(s.DB).Upsert(ctx, userID, username)
	s.observe(ctx, OpEnsure, userID, err)
	return a, err
}

func (s *LedgerService) GetAccount(ctx context.Context, userID int64) (*models.Account, error) {
	return s.Repos.Accounts(s.DB).Get(ctx, userID)
}

// AddCredits grants amount credits and returns the new balance.
func (s *LedgerService) AddCredits(ctx context.Context, userID int64, amount int64) (int64, error) {
	return s.adjust(ctx, OpAddCredits, userID, amount, amount)
}

// RemoveCredits takes amount credits away. There is no floor: an admin may
// push the balance below zero.
func (s *LedgerService) RemoveCredits(ctx context.Context, userID int64, amount int64) (int64, error) {
	return s.adjust(ctx, OpRemoveCredits, userID, amount, -amount)
}

func (s *LedgerService) adjust(ctx context.Context, op string, userID, amount, delta int64) (int64, error) {
	if amount <= 0 {
		err := fmt.Errorf("%w: %d", common.ErrInvalidAmount, amount)
		s.observe(ctx, op, userID, err)
		return 0, err
	}

	unlock := s.Locks.Lock(userID)
	defer unlock()

	balance, err := s.Repos.Accounts(s.DB).AddCredits(ctx, userID, delta)
	s.observe(ctx, op, userID, err)
	if err != nil {
		return 0, err
	}
	s.log.Info(ctx, "credits adjusted", "op", op, "user_id", userID, "amount", amount, "balance", balance)
	return balance, nil
}

// ConsumeCredits debits cost unless that would take the balance below zero,
// in which case it returns common.ErrInsufficientCredits.
func (s *LedgerService) ConsumeCredits(ctx context.Context, userID int64, cost int64) (int64, error) {
	if cost <= 0 {
		return 0, fmt.Errorf("%w: %d", common.ErrInvalidAmount, cost)
	}

	unlock := s.Locks.Lock(userID)
	defer unlock()

	balance, err := s.Repos.Accounts(s.DB).ConsumeCredits(ctx, userID, cost)
	s.observe(ctx, OpConsume, userID, err)
	return balance, err
}

// SetValidity opens a window of days from now and marks the account
// premium. Any previous window is replaced, not extended.
func (s *LedgerService) SetValidity(ctx context.Context, userID int64, days int64) (time.Time, error) {
	if days <= 0 || days > MaxValidityDays {
		err := fmt.Errorf("%w: %d days", common.ErrInvalidAmount, days)
		s.observe(ctx, OpSetValidity, userID, err)
		return time.Time{}, err
	}

	unlock := s.Locks.Lock(userID)
	defer unlock()

	expireAt := s.Clock.Now().UTC().AddDate(0, 0, int(days))
	err := s.Repos.Accounts(s.DB).SetValidity(ctx, userID, expireAt)
	s.observe(ctx, OpSetValidity, userID, err)
	if err != nil {
		return time.Time{}, err
	}
	s.log.Info(ctx, "validity set", "user_id", userID, "days", days, "expire_at", expireAt)
	return expireAt, nil
}

// RemoveValidity clears the window and premium flag at once. Credits and
// artifacts are left alone.
func (s *LedgerService) RemoveValidity(ctx context.Context, userID int64) error {
	unlock := s.Locks.Lock(userID)
	defer unlock()

	err := s.Repos.Accounts(s.DB).ClearValidity(ctx, userID)
	s.observe(ctx, OpRemoveValidity, userID, err)
	return err
}

// IsValid reports whether the account has a window that ends after now.
// A missing account is not valid.
func (s *LedgerService) IsValid(ctx context.Context, userID int64) (bool, error) {
	a, err := s.Repos.Accounts(s.DB).Get(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return a.IsValid(s.Clock.Now()), nil
}

// UpdatePreferences changes the selected voice and/or speed. An unknown
// speed yields common.ErrInvalidSpeed.
func (s *LedgerService) UpdatePreferences(ctx context.Context, userID int64, prefs models.Preferences) error {
	if prefs.Speed != nil {
		if _, err := models.ParseSpeed(string(*prefs.Speed)); err != nil {
			return err
		}
	}
	if prefs.SelectedVoice == nil && prefs.Speed == nil {
		return nil
	}

	unlock := s.Locks.Lock(userID)
	defer unlock()

	err := s.Repos.Accounts(s.DB).UpdatePreferences(ctx, userID, prefs)
	s.observe(ctx, OpPreferences, userID, err)
	return err
}

func (s *LedgerService) ListAccounts(ctx context.Context, afterID int64, limit int) ([]*models.Account, error) {
	return s.Repos.Accounts(s.DB).List(ctx, afterID, limit)
}

func (s *LedgerService) ListPremium(ctx context.Context, afterID int64, limit int) ([]*models.Account, error) {
	return s.Repos.Accounts(s.DB).ListPremium(ctx, afterID, limit)
}

func (s *LedgerService) CountAccounts(ctx context.Context) (int64, error) {
	return s.Repos.Accounts(s.DB).Count(ctx)
}

// CountVoices returns how many stored voices the user has.
func (s *LedgerService) CountVoices(ctx context.Context, userID int64) (int64, error) {
	return s.Repos.Artifacts(s.DB).CountByUser(ctx, userID)
}

// EachAccount calls fn for every account in id order, a page at a time.
// An error from fn stops the walk and is returned.
func (s *LedgerService) EachAccount(ctx context.Context, fn func(*models.Account) error) error {
	repo := s.Repos.Accounts(s.DB)
	var after int64
	for {
		page, err := repo.List(ctx, after, DefaultPageSize)
		if err != nil {
			return err
		}
		for _, a := range page {
			if err := fn(a); err != nil {
				return err
			}
		}
		if len(page) < DefaultPageSize {
			return nil
		}
		after = page[len(page)-1].UserID
	}
}
