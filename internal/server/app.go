// Package server assembles the bot process: storage, services, the Telegram
// transport (long polling or webhook), the HTTP and gRPC surfaces and the
// expiry reaper, and runs them until a shutdown signal.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/voxbot/internal/clock"
	"github.com/dmitrijs2005/voxbot/internal/keymutex"
	"github.com/dmitrijs2005/voxbot/internal/logging"
	"github.com/dmitrijs2005/voxbot/internal/server/blobstore"
	"github.com/dmitrijs2005/voxbot/internal/server/catalog"
	"github.com/dmitrijs2005/voxbot/internal/server/config"
	"github.com/dmitrijs2005/voxbot/internal/server/httpapi"
	"github.com/dmitrijs2005/voxbot/internal/server/metrics"
	"github.com/dmitrijs2005/voxbot/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/voxbot/internal/server/services"
	"github.com/dmitrijs2005/voxbot/internal/server/sessions"
	"github.com/dmitrijs2005/voxbot/internal/server/telegram"
	"github.com/dmitrijs2005/voxbot/internal/server/tts"

	gs "github.com/dmitrijs2005/voxbot/internal/server/grpc"
)

const (
	modePolling = "polling"
	modeWebhook = "webhook"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	redis   *redis.Client
	metrics *metrics.Metrics
	api     *tgbotapi.BotAPI
	bot     *telegram.Bot
	reaper  *services.Reaper
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(logging.Options{Backend: c.LogBackend, Level: c.LogLevel, Format: c.LogFormat})
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	if c.BotToken == "" {
		return nil, errors.New("BOT_TOKEN is not set")
	}
	if c.VoiceAPIKey == "" {
		return nil, errors.New("VOICE_API_KEY is not set")
	}

	db, repos, err := repomanager.Open(ctx, c.DBDriver, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app := &App{config: c, logger: logger, db: db, metrics: metrics.New()}

	if err := app.init(ctx, repos); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context, repos repomanager.RepositoryManager) error {
	c := app.config

	cat, err := catalog.Load(c.CatalogFile)
	if err != nil {
		return err
	}

	blobs, err := blobstore.New(ctx, c)
	if err != nil {
		return fmt.Errorf("blob store init error: %w", err)
	}

	store, rdb, err := newSessionStore(ctx, c)
	if err != nil {
		return err
	}
	app.redis = rdb

	api, err := tgbotapi.NewBotAPI(c.BotToken)
	if err != nil {
		return fmt.Errorf("telegram init error: %w", err)
	}
	app.api = api

	deps := services.Deps{
		DB:      app.db,
		Repos:   repos,
		Locks:   keymutex.New[int64](),
		Clock:   clock.Real(),
		Metrics: app.metrics,
		Logger:  app.logger,
	}

	ledger := services.NewLedgerService(deps)
	admins := services.NewAdminService(deps)
	if err := admins.Seed(ctx, c.AdminIDs); err != nil {
		return fmt.Errorf("seed admins: %w", err)
	}

	synth := tts.New(tts.Options{
		BaseURL:    c.FishAudioBaseURL,
		APIKey:     c.VoiceAPIKey,
		Model:      c.FishAudioBackend,
		MP3Bitrate: c.MP3Bitrate,
		Timeout:    c.SynthesisTimeout,
	})
	voice := services.NewVoiceService(deps, synth, blobs, cat, services.VoiceOptions{
		MaxChars:        c.MaxTTSChars,
		CostPerVoice:    int64(c.CostPerVoice),
		RequireValidity: c.RequireValidityForTTS,
	})

	notifier := telegram.NewNotifier(api)
	broadcaster := services.NewBroadcaster(ledger, notifier, services.BroadcastOptions{
		Concurrency: c.BroadcastConcurrency,
		Delay:       c.BroadcastDelay,
		Backoff:     c.BroadcastBackoff,
	})

	app.reaper = services.NewReaper(deps, blobs, notifier, c.ReaperInterval)
	app.bot = telegram.NewBot(api, telegram.Services{
		Ledger:      ledger,
		Admins:      admins,
		Voice:       voice,
		Broadcaster: broadcaster,
	}, store, telegram.Options{
		AdminContact: c.AdminContact,
		WebsiteURL:   c.WebsiteURL,
		Catalog:      cat,
	}, app.logger)

	return nil
}

// newSessionStore keeps admin dialogs in Redis when an address is
// configured and in process memory otherwise.
func newSessionStore(ctx context.Context, c *config.Config) (sessions.Store, *redis.Client, error) {
	if c.RedisAddr == "" {
		return sessions.NewMemoryStore(c.SessionTTL, 0, clock.Real()), nil, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis init error: %w", err)
	}
	return sessions.NewRedisStore(rdb, c.SessionTTL), rdb, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) mode() string {
	if app.config.UseWebhook {
		return modeWebhook
	}
	return modePolling
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "bot", app.api.Self.UserName, "mode", app.mode())
	app.initSignalHandler(cancelFunc)

	if err := telegram.SetCommands(app.api); err != nil {
		app.logger.Warn(ctx, "set bot commands", "error", err)
	}

	var webhookPath string
	if app.config.UseWebhook {
		p, err := telegram.WebhookPath()
		if err != nil {
			return err
		}
		webhookPath = p
	}

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() { firstErr = err })
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}

	handler := httpapi.NewHandler(app.db, app.bot, app.logger)
	httpSrv := httpapi.NewServer(app.config.HTTPAddr, httpapi.NewRouter(handler, app.metrics.Handler(), webhookPath), app.logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := httpSrv.Run(ctx); err != nil {
			fail(fmt.Errorf("http server: %w", err))
		}
	}()

	if app.config.GRPCAddr != "" {
		grpcSrv := gs.NewHealthServer(app.config.GRPCAddr, app.db, 0, app.logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := grpcSrv.Run(ctx); err != nil {
				fail(fmt.Errorf("grpc server: %w", err))
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.reaper.Run(ctx)
	}()

	if app.config.UseWebhook {
		if err := telegram.RegisterWebhook(ctx, app.api, app.config.WebhookBaseURL, webhookPath); err != nil {
			fail(fmt.Errorf("register webhook: %w", err))
		}
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.bot.Poll(ctx, app.api)
		}()
	}

	if ctx.Err() == nil {
		if err := telegram.AnnounceOnline(app.api, app.config.AdminIDs, app.api.Self.UserName, app.mode()); err != nil {
			app.logger.Warn(ctx, "startup notice", "error", err)
		}
	}

	wg.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return firstErr
}

// Close releases the database and Redis connections.
func (app *App) Close() {
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
}
