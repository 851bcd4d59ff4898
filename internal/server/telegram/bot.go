// Package telegram is the chat front door: it turns Telegram updates into
// ledger, voice and admin operations and renders the replies.
package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dmitrijs2005/voxbot/internal/logging"
	"github.com/dmitrijs2005/voxbot/internal/server/catalog"
	"github.com/dmitrijs2005/voxbot/internal/server/services"
	"github.com/dmitrijs2005/voxbot/internal/server/sessions"
)

const (
	cbModel = "model:"
	cbSpeed = "speed:"
	cbAdmin = "admin:"

	cmdStart = "start"
	cmdAdmin = "admin"
)

// Sender is the part of *tgbotapi.BotAPI the handlers use.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Services struct {
	Ledger      *services.LedgerService
	Admins      *services.AdminService
	Voice       *services.VoiceService
	Broadcaster *services.Broadcaster
}

type Options struct {
	AdminContact string
	WebsiteURL   string
	Catalog      *catalog.Catalog
}

type Bot struct {
	sender   Sender
	svc      Services
	sessions sessions.Store
	opts     Options
	log      logging.Logger
}

func NewBot(sender Sender, svc Services, store sessions.Store, o Options, log logging.Logger) *Bot {
	if o.Catalog == nil {
		o.Catalog = catalog.Default()
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Bot{
		sender:   sender,
		svc:      svc,
		sessions: store,
		opts:     o,
		log:      log.With("module", "telegram"),
	}
}

// HandleUpdate processes one update. Panics are recovered so a bad update
// never takes down the polling loop or the webhook handler.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	defer func() {
		if p := recover(); p != nil {
			b.log.Error(ctx, "update handler panicked", "update_id", u.UpdateID, "panic", fmt.Sprint(p))
		}
	}()

	switch {
	case u.CallbackQuery != nil:
		b.onCallback(ctx, u.CallbackQuery)
	case u.Message != nil:
		b.onMessage(ctx, u.Message)
	}
}

func (b *Bot) onMessage(ctx context.Context, m *tgbotapi.Message) {
	if m.From == nil || m.From.IsBot || m.Chat == nil {
		return
	}
	uid := m.From.ID

	if m.IsCommand() {
		switch m.Command() {
		case cmdStart:
			b.onStart(ctx, m)
		case cmdAdmin:
			b.onAdminCommand(ctx, m)
		}
		return
	}

	if b.hasPending(ctx, uid) {
		b.onAdminStep(ctx, m)
		return
	}

	if _, err := b.svc.Ledger.EnsureAccount(ctx, uid, m.From.UserName); err != nil {
		b.reply(ctx, m.Chat.ID, "❌ Error: try again later.")
		return
	}

	text := strings.TrimSpace(m.Text)
	switch text {
	case "":
		return
	case BtnSelectModel:
		b.onSelectModel(ctx, m)
	case BtnPlans:
		b.onPlans(ctx, m)
	case BtnUsage:
		b.onUsage(ctx, m)
	case BtnVoiceSpeed:
		b.send(ctx, withMarkup(tgbotapi.NewMessage(m.Chat.ID, "Choose voice speed:"), speedKeyboard()))
	case BtnContactAdmin:
		b.reply(ctx, m.Chat.ID, "Contact admin: "+escape(b.opts.AdminContact))
	case BtnWebsite:
		b.reply(ctx, m.Chat.ID, "Website: "+escape(b.opts.WebsiteURL))
	default:
		b.onText(ctx, m, text)
	}
}

func (b *Bot) onCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := b.sender.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Debug(ctx, "answer callback", "error", err)
	}
	if cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return
	}

	switch {
	case strings.HasPrefix(cb.Data, cbAdmin):
		b.onAdminCallback(ctx, cb)
	case strings.HasPrefix(cb.Data, cbModel):
		b.onModelChosen(ctx, cb, strings.TrimPrefix(cb.Data, cbModel))
	case strings.HasPrefix(cb.Data, cbSpeed):
		b.onSpeedChosen(ctx, cb, strings.TrimPrefix(cb.Data, cbSpeed))
	}
}

func (b *Bot) hasPending(ctx context.Context, uid int64) bool {
	ok, err := b.sessions.Has(ctx, uid)
	if err != nil {
		b.log.Warn(ctx, "session lookup failed", "user_id", uid, "error", err)
		return false
	}
	return ok
}

// send delivers c and logs, but does not return, a failure.
func (b *Bot) send(ctx context.Context, c tgbotapi.Chattable) {
	if _, err := b.sender.Send(c); err != nil {
		b.log.Warn(ctx, "telegram send failed", "error", err)
	}
}

// reply sends HTML text to chatID.
func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	b.send(ctx, newHTMLMessage(chatID, text))
}

func newHTMLMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	return msg
}

func withMarkup(msg tgbotapi.MessageConfig, markup any) tgbotapi.MessageConfig {
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	return msg
}
