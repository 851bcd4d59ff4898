package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dmitrijs2005/voxbot/internal/common"
	"github.com/dmitrijs2005/voxbot/internal/server/models"
	"github.com/dmitrijs2005/voxbot/internal/server/services"
)

// maxMessageLen keeps listings under Telegram's 4096 character limit.
const maxMessageLen = 4000

func (b *Bot) isAdmin(ctx context.Context, uid int64) bool {
	err := b.svc.Admins.Authorize(ctx, uid)
	if err != nil && !errors.Is(err, common.ErrorUnauthorized) {
		b.log.Warn(ctx, "admin lookup failed", "user_id", uid, "error", err)
	}
	return err == nil
}

// onAdminCommand opens the panel and drops any prompt the admin left
// unanswered. Non-admins get no answer at all.
func (b *Bot) onAdminCommand(ctx context.Context, m *tgbotapi.Message) {
	if !b.isAdmin(ctx, m.From.ID) {
		return
	}
	if err := b.sessions.Clear(ctx, m.From.ID); err != nil {
		b.log.Warn(ctx, "clear pending action", "user_id", m.From.ID, "error", err)
	}
	b.send(ctx, withMarkup(tgbotapi.NewMessage(m.Chat.ID, "⚙️ Admin Panel"), adminMenu()))
}

func (b *Bot) onAdminCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	uid := cb.From.ID
	if !b.isAdmin(ctx, uid) {
		return
	}
	chatID := cb.Message.Chat.ID
	parts := strings.Split(cb.Data, ":")
	if len(parts) < 2 {
		return
	}

	switch section := parts[1]; section {
	case "menu":
		b.send(ctx, tgbotapi.NewEditMessageReplyMarkup(chatID, cb.Message.MessageID, adminMenu()))
	case "credits", "validity":
		b.onManage(ctx, uid, chatID, section, parts[2:])
	case "list_users":
		b.listAccounts(ctx, chatID, false)
	case "list_premium":
		b.listAccounts(ctx, chatID, true)
	case "broadcast":
		b.prompt(ctx, uid, chatID, models.PendingAction{Kind: models.ActionBroadcast}, "Send broadcast message:")
	case "download":
		b.sendExport(ctx, chatID)
	case "admins":
		if len(parts) > 2 && parts[2] == "add" {
			b.prompt(ctx, uid, chatID, models.PendingAction{Kind: models.ActionAddAdmin}, "Send user id:")
			return
		}
		b.showAdmins(ctx, chatID)
	}
}

// onManage handles admin:credits:... and admin:validity:... callbacks.
func (b *Bot) onManage(ctx context.Context, uid, chatID int64, section string, rest []string) {
	if len(rest) == 0 {
		b.showPicker(ctx, chatID, section, 0)
		return
	}
	if rest[0] == "find" {
		kind := models.ActionPickCredits
		if section == "validity" {
			kind = models.ActionPickValidity
		}
		b.prompt(ctx, uid, chatID, models.PendingAction{Kind: kind}, "Send user id:")
		return
	}
	if len(rest) < 2 {
		return
	}
	id, err := strconv.ParseInt(rest[1], 10, 64)
	if err != nil {
		return
	}

	switch section + ":" + rest[0] {
	case "credits:page", "validity:page":
		b.showPicker(ctx, chatID, section, id)
	case "credits:user":
		b.send(ctx, withMarkup(tgbotapi.NewMessage(chatID, fmt.Sprintf("User %d\nChoose action:", id)), creditsActions(id)))
	case "validity:user":
		b.send(ctx, withMarkup(tgbotapi.NewMessage(chatID, fmt.Sprintf("User %d\nChoose action:", id)), validityActions(id)))
	case "credits:add":
		b.prompt(ctx, uid, chatID, models.PendingAction{Kind: models.ActionAddCredits, Target: id}, "Send credit amount:")
	case "credits:remove":
		b.prompt(ctx, uid, chatID, models.PendingAction{Kind: models.ActionRemoveCredits, Target: id}, "Send credit amount:")
	case "validity:set":
		b.prompt(ctx, uid, chatID, models.PendingAction{Kind: models.ActionSetValidity, Target: id}, "Send number of days:")
	case "validity:remove":
		if err := b.svc.Ledger.RemoveValidity(ctx, id); err != nil {
			b.reply(ctx, chatID, adminErrorText(err, id))
			return
		}
		b.reply(ctx, chatID, fmt.Sprintf("✔ Removed validity for %d", id))
	}
}

func (b *Bot) prompt(ctx context.Context, uid, chatID int64, action models.PendingAction, text string) {
	if err := b.sessions.Put(ctx, uid, action); err != nil {
		b.log.Error(ctx, "store pending action", "user_id", uid, "error", err)
		b.reply(ctx, chatID, "❌ Error: try again later.")
		return
	}
	b.reply(ctx, chatID, text)
}

func (b *Bot) showPicker(ctx context.Context, chatID int64, section string, after int64) {
	page, err := b.svc.Ledger.ListAccounts(ctx, after, userListPageSize+1)
	if err != nil {
		b.reply(ctx, chatID, adminErrorText(err, 0))
		return
	}
	var next int64
	if len(page) > userListPageSize {
		page = page[:userListPageSize]
		next = page[len(page)-1].UserID
	}
	b.send(ctx, withMarkup(tgbotapi.NewMessage(chatID, "Select a user:"), userPicker(section, page, next)))
}

func (b *Bot) listAccounts(ctx context.Context, chatID int64, premiumOnly bool) {
	var lines []string
	list := b.svc.Ledger.ListAccounts
	if premiumOnly {
		list = b.svc.Ledger.ListPremium
	}

	var after int64
	for {
		page, err := list(ctx, after, services.DefaultPageSize)
		if err != nil {
			b.reply(ctx, chatID, adminErrorText(err, 0))
			return
		}
		for _, a := range page {
			if premiumOnly {
				lines = append(lines, fmt.Sprintf("%d credits=%d exp=%s", a.UserID, a.Credits, formatExpiry(a.ValidityExpireAt)))
			} else {
				lines = append(lines, fmt.Sprintf("%d @%s | credits=%d", a.UserID, escape(orUnknown(a.Username)), a.Credits))
			}
		}
		if len(page) < services.DefaultPageSize {
			break
		}
		after = page[len(page)-1].UserID
	}

	if len(lines) == 0 {
		if premiumOnly {
			b.reply(ctx, chatID, "No premium users")
		} else {
			b.reply(ctx, chatID, "No users")
		}
		return
	}
	for _, chunk := range chunkLines(lines, maxMessageLen) {
		b.reply(ctx, chatID, chunk)
	}
}

// chunkLines joins lines into messages no longer than max bytes each.
func chunkLines(lines []string, max int) []string {
	var (
		out []string
		cur strings.Builder
	)
	for _, l := range lines {
		if cur.Len() > 0 && cur.Len()+1+len(l) > max {
			out = append(out, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
		}
		cur.WriteString(l)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func (b *Bot) sendExport(ctx context.Context, chatID int64) {
	var buf bytes.Buffer
	n, err := b.svc.Ledger.ExportCSV(ctx, &buf)
	if err != nil {
		b.log.Error(ctx, "export accounts", "error", err)
		b.reply(ctx, chatID, "❌ Export failed.")
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: "accounts.csv", Bytes: buf.Bytes()})
	doc.Caption = fmt.Sprintf("%d accounts", n)
	b.send(ctx, doc)
}

func (b *Bot) showAdmins(ctx context.Context, chatID int64) {
	ids, err := b.svc.Admins.List(ctx)
	if err != nil {
		b.reply(ctx, chatID, adminErrorText(err, 0))
		return
	}
	lines := []string{"Admins:"}
	for _, id := range ids {
		lines = append(lines, fmt.Sprintf("• %d", id))
	}
	b.send(ctx, withMarkup(tgbotapi.NewMessage(chatID, strings.Join(lines, "\n")), adminsKeyboard()))
}

// onAdminStep consumes the admin's pending action with this message as its
// input. A malformed number changes nothing.
func (b *Bot) onAdminStep(ctx context.Context, m *tgbotapi.Message) {
	uid, chatID := m.From.ID, m.Chat.ID
	action, ok, err := b.sessions.Take(ctx, uid)
	if err != nil {
		b.log.Error(ctx, "take pending action", "user_id", uid, "error", err)
		return
	}
	if !ok || !b.isAdmin(ctx, uid) {
		return
	}

	if action.Kind == models.ActionBroadcast {
		b.startBroadcast(ctx, chatID, m.Text)
		return
	}

	n, err := services.ParseAmount(m.Text)
	if err != nil {
		b.reply(ctx, chatID, "❌ Invalid amount")
		return
	}
	target := action.Target

	switch action.Kind {
	case models.ActionAddCredits:
		if _, err := b.svc.Ledger.AddCredits(ctx, target, n); err != nil {
			b.reply(ctx, chatID, adminErrorText(err, target))
			return
		}
		b.reply(ctx, chatID, fmt.Sprintf("✔ Added %d credits to %d", n, target))
	case models.ActionRemoveCredits:
		if _, err := b.svc.Ledger.RemoveCredits(ctx, target, n); err != nil {
			b.reply(ctx, chatID, adminErrorText(err, target))
			return
		}
		b.reply(ctx, chatID, fmt.Sprintf("✔ Removed %d credits from %d", n, target))
	case models.ActionSetValidity:
		exp, err := b.svc.Ledger.SetValidity(ctx, target, n)
		if err != nil {
			b.reply(ctx, chatID, adminErrorText(err, target))
			return
		}
		b.reply(ctx, chatID, fmt.Sprintf("✔ Validity set for %d until %s", target, formatExpiry(&exp)))
	case models.ActionAddAdmin:
		if err := b.svc.Admins.Add(ctx, n); err != nil {
			b.reply(ctx, chatID, adminErrorText(err, n))
			return
		}
		b.reply(ctx, chatID, fmt.Sprintf("✔ Added admin %d", n))
	case models.ActionPickCredits, models.ActionPickValidity:
		if _, err := b.svc.Ledger.GetAccount(ctx, n); err != nil {
			b.reply(ctx, chatID, adminErrorText(err, n))
			return
		}
		markup := creditsActions(n)
		if action.Kind == models.ActionPickValidity {
			markup = validityActions(n)
		}
		b.send(ctx, withMarkup(tgbotapi.NewMessage(chatID, fmt.Sprintf("User %d\nChoose action:", n)), markup))
	default:
		b.log.Warn(ctx, "unknown pending action", "kind", action.Kind)
	}
}

// startBroadcast runs the fan-out in the background and reports to the
// admin once it is done.
func (b *Bot) startBroadcast(ctx context.Context, chatID int64, text string) {
	if strings.TrimSpace(text) == "" {
		b.reply(ctx, chatID, "❌ Empty message")
		return
	}
	b.reply(ctx, chatID, "📣 Broadcast started.")

	bctx := context.WithoutCancel(ctx)
	go func() {
		report, err := b.svc.Broadcaster.Broadcast(bctx, text)
		if err != nil {
			b.log.Error(bctx, "broadcast", "error", err)
		}
		b.reply(bctx, chatID, fmt.Sprintf("📣 Broadcast finished.\n✅ Sent: %d\n❌ Failed: %d", report.Sent, report.Failed))
	}()
}

func adminErrorText(err error, target int64) string {
	switch {
	case errors.Is(err, common.ErrInvalidAmount):
		return "❌ Invalid amount"
	case errors.Is(err, common.ErrorNotFound):
		return fmt.Sprintf("❌ User %d not found", target)
	default:
		return "❌ Error: " + escape(err.Error())
	}
}
