package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/voxbot/internal/logging"
	"github.com/dmitrijs2005/voxbot/internal/server/metrics"
	"github.com/dmitrijs2005/voxbot/internal/server/models"
)

const (
	DefaultBroadcastDelay   = 50 * time.Millisecond
	DefaultBroadcastBackoff = 200 * time.Millisecond
)

type BroadcastOptions struct {
	Concurrency int
	// Delay is the minimum spacing between two sends.
	Delay time.Duration
	// Backoff is how long a worker pauses after a failed send.
	Backoff time.Duration
}

type BroadcastReport struct {
	Sent   int64
	Failed int64
}

// Broadcaster sends one message to every account.
type Broadcaster struct {
	ledger   *LedgerService
	notifier Notifier
	opts     BroadcastOptions
	metrics  *metrics.Metrics
	log      logging.Logger
}

func NewBroadcaster(ledger *LedgerService, notifier Notifier, o BroadcastOptions) *Broadcaster {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.Delay <= 0 {
		o.Delay = DefaultBroadcastDelay
	}
	if o.Backoff < 0 {
		o.Backoff = 0
	}
	return &Broadcaster{
		ledger:   ledger,
		notifier: notifier,
		opts:     o,
		metrics:  ledger.Metrics,
		log:      ledger.Logger.With("module", "broadcast"),
	}
}

// Broadcast delivers text to every account. Individual failures are
// counted, never returned; the error is only set when accounts could not
// be listed or ctx ended early.
func (b *Broadcaster) Broadcast(ctx context.Context, text string) (BroadcastReport, error) {
	runID := uuid.NewString()
	log := b.log.With("run_id", runID)

	var sent, failed atomic.Int64
	limiter := rate.NewLimiter(rate.Every(b.opts.Delay), 1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)

	log.Info(ctx, "broadcast started")
	walkErr := b.ledger.EachAccount(gctx, func(a *models.Account) error {
		userID := a.UserID
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			if err := b.notifier.Notify(gctx, userID, text); err != nil {
				failed.Add(1)
				b.metrics.IncBroadcast(false)
				log.Debug(gctx, "broadcast send failed", "user_id", userID, "error", err)
				return pause(gctx, b.opts.Backoff)
			}
			sent.Add(1)
			b.metrics.IncBroadcast(true)
			return nil
		})
		return nil
	})
	waitErr := g.Wait()

	report := BroadcastReport{Sent: sent.Load(), Failed: failed.Load()}
	log.Info(ctx, "broadcast finished", "sent", report.Sent, "failed", report.Failed)

	if walkErr != nil {
		return report, walkErr
	}
	return report, waitErr
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
