package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dmitrijs2005/voxbot/internal/server/catalog"
	"github.com/dmitrijs2005/voxbot/internal/server/models"
)

// Reply keyboard labels. Incoming text equal to one of these is a menu
// choice, not something to synthesize.
const (
	BtnSelectModel  = "Select Model"
	BtnPlans        = "Plans"
	BtnUsage        = "Usage"
	BtnVoiceSpeed   = "Voice Speed"
	BtnContactAdmin = "Contact Admin"
	BtnWebsite      = "Our Website"
)

var menuButtons = map[string]struct{}{
	BtnSelectModel: {}, BtnPlans: {}, BtnUsage: {},
	BtnVoiceSpeed: {}, BtnContactAdmin: {}, BtnWebsite: {},
}

// userListPageSize bounds how many users one picker message shows.
const userListPageSize = 50

func userKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnSelectModel), tgbotapi.NewKeyboardButton(BtnPlans)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnUsage), tgbotapi.NewKeyboardButton(BtnVoiceSpeed)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnContactAdmin), tgbotapi.NewKeyboardButton(BtnWebsite)),
	)
	kb.ResizeKeyboard = true
	return kb
}

// voicesKeyboard lays voices out two per row.
func voicesKeyboard(voices []catalog.Voice) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, v := range voices {
		label := v.Name
		if label == "" {
			label = v.ID
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cbModel+v.ID))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

var speedButtons = map[models.Speed]string{
	models.SpeedFast:    "⚡ Fast",
	models.SpeedNatural: "🙂 Natural",
	models.SpeedNormal:  "😐 Normal",
	models.SpeedSlow:    "🐢 Slow",
}

func speedButton(s models.Speed) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(speedButtons[s], cbSpeed+string(s))
}

func speedKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(speedButton(models.SpeedFast), speedButton(models.SpeedNatural)),
		tgbotapi.NewInlineKeyboardRow(speedButton(models.SpeedNormal), speedButton(models.SpeedSlow)),
	)
}

func adminMenu() tgbotapi.InlineKeyboardMarkup {
	b := func(text, data string) []tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(text, data))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		b("Manage Credits", "admin:credits"),
		b("Manage Validity", "admin:validity"),
		b("List Users", "admin:list_users"),
		b("List Premium Users", "admin:list_premium"),
		b("Broadcast", "admin:broadcast"),
		b("Download Data", "admin:download"),
		b("Manage Admins", "admin:admins"),
	)
}

// userPicker lists accounts as buttons that open section's per-user menu.
// next is the id to continue after, or 0 on the last page.
func userPicker(section string, page []*models.Account, next int64) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, a := range page {
		label := fmt.Sprintf("%d @%s", a.UserID, orUnknown(a.Username))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("admin:%s:user:%d", section, a.UserID))))
	}
	if next > 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("More ➡", fmt.Sprintf("admin:%s:page:%d", section, next))))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔎 Enter user id", "admin:"+section+":find")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅ Back", "admin:menu")),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func creditsActions(userID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Add Credits", fmt.Sprintf("admin:credits:add:%d", userID))),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Remove Credits", fmt.Sprintf("admin:credits:remove:%d", userID))),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅ Back", "admin:credits")),
	)
}

func validityActions(userID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Set Validity", fmt.Sprintf("admin:validity:set:%d", userID))),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Remove Validity", fmt.Sprintf("admin:validity:remove:%d", userID))),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅ Back", "admin:validity")),
	)
}

func adminsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Add Admin", "admin:admins:add")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅ Back", "admin:menu")),
	)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
