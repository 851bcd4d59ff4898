package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dmitrijs2005/voxbot/internal/common"
)

const (
	pollTimeout       = 60
	webhookRetries    = 3
	webhookSecretSize = 24
)

var allowedUpdates = []string{"message", "callback_query"}

// webhookBackoff is the pause before retry attempt i (0-based).
var webhookBackoff = func(i int) time.Duration { return time.Duration(1+i) * time.Second }

// SetCommands publishes the command list shown in Telegram clients.
func SetCommands(sender Sender) error {
	_, err := sender.Request(tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: cmdStart, Description: "Start"},
		tgbotapi.BotCommand{Command: cmdAdmin, Description: "Admin panel"},
	))
	return err
}

// AnnounceOnline tells the first configured admin the bot is up. Failure
// is returned for logging only.
func AnnounceOnline(sender Sender, adminIDs []int64, username, mode string) error {
	if len(adminIDs) == 0 {
		return nil
	}
	text := fmt.Sprintf("Bot @%s is online and polling.", username)
	if mode == "webhook" {
		text = fmt.Sprintf("Bot @%s is online (webhook).", username)
	}
	_, err := sender.Send(tgbotapi.NewMessage(adminIDs[0], text))
	return err
}

// Updates is the source the polling loop reads from; *tgbotapi.BotAPI
// satisfies it.
type Updates interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Poll removes any webhook and dispatches long-polled updates one at a time
// until ctx is done.
func (b *Bot) Poll(ctx context.Context, src Updates) {
	if _, err := b.sender.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		b.log.Warn(ctx, "remove webhook", "error", err)
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeout
	cfg.AllowedUpdates = allowedUpdates
	updates := src.GetUpdatesChan(cfg)

	b.log.Info(ctx, "polling started")
	for {
		select {
		case <-ctx.Done():
			src.StopReceivingUpdates()
			b.log.Info(ctx, "polling stopped")
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, u)
		}
	}
}

// WebhookPath returns a random, unguessable path for the webhook route.
func WebhookPath() (string, error) {
	secret, err := common.MakeRandHexString(webhookSecretSize)
	if err != nil {
		return "", err
	}
	return "/telegram/" + secret, nil
}

// RegisterWebhook points Telegram at baseURL+path. Each failed attempt
// removes the current webhook and waits a little longer before retrying.
func RegisterWebhook(ctx context.Context, sender Sender, baseURL, path string) error {
	wh, err := tgbotapi.NewWebhook(strings.TrimRight(baseURL, "/") + path)
	if err != nil {
		return fmt.Errorf("webhook url: %w", err)
	}
	wh.AllowedUpdates = allowedUpdates

	for i := 0; ; i++ {
		_, err = sender.Request(wh)
		if err == nil || i == webhookRetries {
			break
		}
		_, _ = sender.Request(tgbotapi.DeleteWebhookConfig{})

		t := time.NewTimer(webhookBackoff(i))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	if err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}
