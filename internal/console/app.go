package console

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dmitrijs2005/voxbot/internal/clock"
	"github.com/dmitrijs2005/voxbot/internal/keymutex"
	"github.com/dmitrijs2005/voxbot/internal/logging"
	"github.com/dmitrijs2005/voxbot/internal/server/blobstore"
	"github.com/dmitrijs2005/voxbot/internal/server/config"
	"github.com/dmitrijs2005/voxbot/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/voxbot/internal/server/services"
	"github.com/dmitrijs2005/voxbot/internal/server/telegram"
)

// Open connects to the bot's database and blob store. Expiry notices from
// sweep go out through Telegram when a bot token is configured and are
// skipped otherwise. The returned func releases the database.
func Open(ctx context.Context, c *config.Config) (*Console, func(), error) {
	// keep stdout for command output
	logger, err := logging.New(logging.Options{Backend: c.LogBackend, Level: c.LogLevel, Format: c.LogFormat, Output: os.Stderr})
	if err != nil {
		return nil, nil, err
	}

	db, repos, err := repomanager.Open(ctx, c.DBDriver, c.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}
	closeDB := func() { _ = db.Close() }

	blobs, err := blobstore.New(ctx, c)
	if err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("blob store init error: %w", err)
	}

	var notifier services.Notifier
	if c.BotToken != "" {
		api, err := tgbotapi.NewBotAPI(c.BotToken)
		if err != nil {
			logger.Warn(ctx, "telegram unavailable, expiry notices disabled", "error", err)
		} else {
			notifier = telegram.NewNotifier(api)
		}
	}

	return newConsole(db, repos, blobs, notifier, logger, os.Stdout), closeDB, nil
}

func newConsole(db *sql.DB, repos repomanager.RepositoryManager, blobs blobstore.Store, notifier services.Notifier, logger logging.Logger, out io.Writer) *Console {
	deps := services.Deps{
		DB:     db,
		Repos:  repos,
		Locks:  keymutex.New[int64](),
		Clock:  clock.Real(),
		Logger: logger,
	}
	return New(
		services.NewLedgerService(deps),
		services.NewAdminService(deps),
		services.NewReaper(deps, blobs, notifier, 0),
		out,
	)
}
