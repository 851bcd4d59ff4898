package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/voxbot/internal/common"
	"github.com/dmitrijs2005/voxbot/internal/dbx"
	"github.com/dmitrijs2005/voxbot/internal/logging"
	"github.com/dmitrijs2005/voxbot/internal/server/blobstore"
	"github.com/dmitrijs2005/voxbot/internal/server/models"
)

// DefaultReaperInterval is how often expired accounts are revoked.
const DefaultReaperInterval = time.Hour

// Notifier delivers a plain text message to a user.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// SweepResult summarises one reaper pass.
type SweepResult struct {
	Scanned int
	Expired int
	Failed  int
}

// Reaper revokes accounts whose validity window has closed: their stored
// voices are removed, credits and premium are reset and the user is told.
type Reaper struct {
	Deps
	blobs    blobstore.Store
	notifier Notifier
	interval time.Duration
	pageSize int
	log      logging.Logger
}

func NewReaper(d Deps, blobs blobstore.Store, notifier Notifier, interval time.Duration) *Reaper {
	d = d.withDefaults()
	if interval <= 0 {
		interval = DefaultReaperInterval
	}
	return &Reaper{
		Deps:     d,
		blobs:    blobs,
		notifier: notifier,
		interval: interval,
		pageSize: DefaultPageSize,
		log:      d.Logger.With("module", "reaper"),
	}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info(ctx, "reaper started", "interval", r.interval)
	for {
		r.tick(ctx)

		select {
		case <-ctx.Done():
			r.log.Info(ctx, "reaper stopped")
			return
		case <-ticker.C:
		}
	}
}

func (r *Reaper) tick(ctx context.Context) {
	start := time.Now()
	ok := false
	defer func() {
		if p := recover(); p != nil {
			r.log.Error(ctx, "reaper tick panicked", "panic", fmt.Sprint(p))
		}
		r.Metrics.ObserveSweep(ok, time.Since(start).Seconds())
	}()

	res, err := r.Sweep(ctx)
	if err != nil {
		r.log.Error(ctx, "reaper sweep aborted", "error", err)
		return
	}
	ok = true
	if res.Expired > 0 || res.Failed > 0 {
		r.log.Info(ctx, "reaper sweep done", "scanned", res.Scanned, "expired", res.Expired, "failed", res.Failed)
	}
}

// Sweep makes one pass over every account with a validity window. A
// failure on one account is logged and counted; only a failure to list
// accounts aborts the pass.
func (r *Reaper) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	repo := r.Repos.Accounts(r.DB)

	var after int64
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		page, err := repo.ListWithValidity(ctx, after, r.pageSize)
		if err != nil {
			return res, fmt.Errorf("list accounts: %w", err)
		}

		now := r.Clock.Now()
		for _, a := range page {
			res.Scanned++
			if !a.IsExpired(now) {
				continue
			}
			reaped, err := r.reapSafely(ctx, a.UserID)
			if err != nil {
				res.Failed++
				r.Metrics.IncAccountFailure()
				r.log.Error(ctx, "revoke expired account failed", "user_id", a.UserID, "error", err)
				continue
			}
			if reaped {
				res.Expired++
			}
		}

		if len(page) < r.pageSize {
			return res, nil
		}
		after = page[len(page)-1].UserID
	}
}

func (r *Reaper) reapSafely(ctx context.Context, userID int64) (reaped bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: panic: %v", common.ErrorInternal, p)
		}
	}()
	return r.Reap(ctx, userID)
}

// Reap revokes one account if it is still expired when its lock is held.
// It reports false when there was nothing to do.
func (r *Reaper) Reap(ctx context.Context, userID int64) (bool, error) {
	unlock := r.Locks.Lock(userID)
	defer unlock()

	a, err := r.Repos.Accounts(r.DB).Get(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	// validity may have been extended since the page was read
	if !a.IsExpired(r.Clock.Now()) {
		return false, nil
	}

	list, err := r.Repos.Artifacts(r.DB).ListByUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("list artifacts: %w", err)
	}
	r.deleteBlobs(ctx, userID, list)

	var removed int64
	err = dbx.WithTx(ctx, r.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := r.Repos.Artifacts(tx).DeleteByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("delete artifacts: %w", err)
		}
		removed = n
		if err := r.Repos.Accounts(tx).ResetExpired(ctx, userID); err != nil {
			return fmt.Errorf("reset account: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	r.Metrics.IncExpired()
	r.log.Info(ctx, "expired account revoked", "user_id", userID, "artifacts", removed)
	r.notify(ctx, userID)
	return true, nil
}

func (r *Reaper) deleteBlobs(ctx context.Context, userID int64, list []*models.VoiceArtifact) {
	if r.blobs == nil {
		return
	}
	for _, a := range list {
		if err := r.blobs.Delete(ctx, a.FilePath); err != nil {
			r.Metrics.IncBlobDeleteFailure()
			r.log.Warn(ctx, "delete voice file",
				"user_id", userID,
				"path", a.FilePath,
				"error", fmt.Errorf("%w: %w", common.ErrArtifactDelete, err))
		}
	}
}

func (r *Reaper) notify(ctx context.Context, userID int64) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, userID, common.ExpiryNotice); err != nil {
		r.Metrics.IncNotification(false)
		r.log.Warn(ctx, "expiry notice not delivered",
			"user_id", userID,
			"error", fmt.Errorf("%w: %w", common.ErrNotification, err))
		return
	}
	r.Metrics.IncNotification(true)
}
