package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	callbackMenu     = "menu"
	callbackRerun    = "menu_rerun"
	callbackSummary  = "result_summary"
	callbackTable    = "result_table"
	callbackExport   = "result_export"
	callbackNextPage = "result_next_page"
	callbackHistory  = "menu_history"
)

func (b *Bot) sendMessageWithKeyboard(
	chatID int64,
	text string,
	keyboard [][]tgbotapi.InlineKeyboardButton,
) error {
	normalizedText := strings.ToValidUTF8(text, "?")
	if normalizedText != text {
		b.log.Warn("Message text had invalid UTF-8 and was normalized",
			"chatID", chatID,
			"originalLen", len(text),
			"normalizedLen", len(normalizedText))
	}

	message := tgbotapi.NewMessage(chatID, normalizedText)

	// See https://core.telegram.org/bots/api#markdownv2-style.
	message.ParseMode = tgbotapi.ModeMarkdownV2

	message.DisableWebPagePreview = true
	if len(keyboard) > 0 {
		message.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	}

	_, err := b.rateLimiter.Send(message)
	return err
}

func (b *Bot) sendDocument(chatID int64, name string, data []byte, caption string) error {
	document := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	document.Caption = caption
	document.ParseMode = tgbotapi.ModeMarkdownV2

	_, err := b.rateLimiter.Send(document)
	return err
}

func getReturnKeyboard() [][]tgbotapi.InlineKeyboardButton {
	return [][]tgbotapi.InlineKeyboardButton{
		{tgbotapi.NewInlineKeyboardButtonData("⬅️ Return to menu", callbackMenu)},
	}
}

func getMenuKeyboard() [][]tgbotapi.InlineKeyboardButton {
	return [][]tgbotapi.InlineKeyboardButton{
		{
			tgbotapi.NewInlineKeyboardButtonData("🔁 Rerun last query", callbackRerun),
			tgbotapi.NewInlineKeyboardButtonData("💬 History", callbackHistory),
		},
		{
			tgbotapi.NewInlineKeyboardButtonData("📊 Summary", callbackSummary),
			tgbotapi.NewInlineKeyboardButtonData("📋 Table", callbackTable),
		},
	}
}

func getResultKeyboard() [][]tgbotapi.InlineKeyboardButton {
	return [][]tgbotapi.InlineKeyboardButton{
		{
			tgbotapi.NewInlineKeyboardButtonData("📋 Table", callbackTable),
			tgbotapi.NewInlineKeyboardButtonData("📥 Excel", callbackExport),
		},
		{
			tgbotapi.NewInlineKeyboardButtonData("➡️ Next page", callbackNextPage),
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Menu", callbackMenu),
		},
	}
}
