package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"path"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dmitrijs2005/voxbot/internal/common"
	"github.com/dmitrijs2005/voxbot/internal/server/models"
)

const validityLayout = "2006-01-02 15:04 UTC"

func escape(s string) string { return html.EscapeString(s) }

func (b *Bot) onStart(ctx context.Context, m *tgbotapi.Message) {
	if _, err := b.svc.Ledger.EnsureAccount(ctx, m.From.ID, m.From.UserName); err != nil {
		b.reply(ctx, m.Chat.ID, "❌ Error: try again later.")
		return
	}
	b.send(ctx, withMarkup(tgbotapi.NewMessage(m.Chat.ID, "Welcome! Use the buttons below."), userKeyboard()))
}

func (b *Bot) onSelectModel(ctx context.Context, m *tgbotapi.Message) {
	b.send(ctx, withMarkup(tgbotapi.NewMessage(m.Chat.ID, "Choose a model:"), voicesKeyboard(b.opts.Catalog.Voices)))
}

func (b *Bot) onModelChosen(ctx context.Context, cb *tgbotapi.CallbackQuery, voiceID string) {
	chatID := cb.Message.Chat.ID
	if !b.opts.Catalog.HasVoice(voiceID) {
		b.reply(ctx, chatID, "Unknown model.")
		return
	}
	if _, err := b.svc.Ledger.EnsureAccount(ctx, cb.From.ID, cb.From.UserName); err != nil {
		b.reply(ctx, chatID, "❌ Error: try again later.")
		return
	}
	if err := b.svc.Ledger.UpdatePreferences(ctx, cb.From.ID, models.Preferences{SelectedVoice: &voiceID}); err != nil {
		b.reply(ctx, chatID, "❌ Error: try again later.")
		return
	}
	name := b.opts.Catalog.VoiceName(voiceID)
	b.reply(ctx, chatID, fmt.Sprintf("✅ Model selected: <b>%s</b>\nNow send text to generate voice.", escape(name)))
}

func (b *Bot) onSpeedChosen(ctx context.Context, cb *tgbotapi.CallbackQuery, mode string) {
	chatID := cb.Message.Chat.ID
	speed, err := models.ParseSpeed(mode)
	if err != nil {
		b.reply(ctx, chatID, "Unknown speed.")
		return
	}
	if _, err := b.svc.Ledger.EnsureAccount(ctx, cb.From.ID, cb.From.UserName); err != nil {
		b.reply(ctx, chatID, "❌ Error: try again later.")
		return
	}
	if err := b.svc.Ledger.UpdatePreferences(ctx, cb.From.ID, models.Preferences{Speed: &speed}); err != nil {
		b.reply(ctx, chatID, "❌ Error: try again later.")
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("✅ Speed set to: <b>%s</b>", speed.Label()))
}

func (b *Bot) onPlans(ctx context.Context, m *tgbotapi.Message) {
	lines := []string{"Available plans:"}
	for _, p := range b.opts.Catalog.Plans {
		lines = append(lines, fmt.Sprintf("• %s: %d credits, %s, validity %d days",
			escape(p.Name), p.Credits, escape(p.Price), p.ValidityDays))
	}
	b.reply(ctx, m.Chat.ID, strings.Join(lines, "\n"))
}

func (b *Bot) onUsage(ctx context.Context, m *tgbotapi.Message) {
	a, err := b.svc.Ledger.GetAccount(ctx, m.From.ID)
	if err != nil {
		b.reply(ctx, m.Chat.ID, "❌ Error: try again later.")
		return
	}
	voices, err := b.svc.Ledger.CountVoices(ctx, m.From.ID)
	if err != nil {
		b.reply(ctx, m.Chat.ID, "❌ Error: try again later.")
		return
	}
	b.reply(ctx, m.Chat.ID, usageText(a, voices, b.opts.Catalog.VoiceName))
}

func usageText(a *models.Account, voices int64, voiceName func(string) string) string {
	status := "Normal"
	if a.IsPremium {
		status = "Premium"
	}
	validity := "No validity"
	if a.ValidityExpireAt != nil {
		validity = a.ValidityExpireAt.UTC().Format(validityLayout)
	}
	selected := "Not selected"
	if a.SelectedVoice != "" {
		selected = voiceName(a.SelectedVoice)
	}
	return fmt.Sprintf("Status: %s\nCredits: %d\nValidity: %s\nSelected model: %s\nSpeed: %s\nVoices saved: %d",
		status, a.Credits, validity, escape(selected), a.SpeedPreference.OrDefault().Label(), voices)
}

// onText runs a synthesis for any text that is not a menu choice.
func (b *Bot) onText(ctx context.Context, m *tgbotapi.Message, text string) {
	if _, ok := menuButtons[text]; ok {
		return
	}
	chatID := m.Chat.ID

	voice, err := b.svc.Voice.Generate(ctx, m.From.ID, text)
	if err != nil {
		b.reply(ctx, chatID, b.voiceErrorText(err))
		return
	}

	b.send(ctx, tgbotapi.NewVoice(chatID, tgbotapi.FileBytes{Name: path.Base(voice.FilePath), Bytes: voice.Audio}))

	deducted := "1 credit deducted"
	if voice.Cost != 1 {
		deducted = fmt.Sprintf("%d credits deducted", voice.Cost)
	}
	b.reply(ctx, chatID, fmt.Sprintf("🎙️ Voice generated! (Model: <b>%s</b>, Speed: <b>%s</b>)\n%s. Remaining: %d",
		escape(voice.VoiceName), voice.SpeedLabel, deducted, voice.Remaining))
}

func (b *Bot) voiceErrorText(err error) string {
	switch {
	case errors.Is(err, common.ErrTextTooLong):
		return fmt.Sprintf("Text too long. Limit: %d characters.", b.svc.Voice.MaxChars())
	case errors.Is(err, common.ErrInsufficientCredits):
		return "❌ You have no credits."
	case errors.Is(err, common.ErrValidityRequired):
		return "❌ Your validity expired."
	case errors.Is(err, common.ErrNoVoiceSelected):
		return "Please select a model first."
	case errors.Is(err, common.ErrStorage), errors.Is(err, common.ErrorNotFound):
		return "❌ Error: try again later."
	default:
		return "TTS error: " + escape(err.Error())
	}
}

// formatExpiry renders an expiry for admin listings.
func formatExpiry(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(validityLayout)
}
