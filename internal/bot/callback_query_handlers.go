package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	chatID := callback.Message.Chat.ID
	userID := callback.From.ID
	data := strings.TrimSpace(callback.Data)

	action := tgbotapi.ChatTyping
	if data == callbackExport {
		action = tgbotapi.ChatUploadDocument
	}

	return b.withSpinner(ctx, chatID, action, func() error {
		switch data {
		case callbackMenu:
			return b.withEmptyCallbackAnswer(callback, func() error {
				return b.handleMenuCommand(chatID)
			})
		case callbackRerun:
			return b.withEmptyCallbackAnswer(callback, func() error {
				return b.handleRerunCommand(ctx, chatID, userID)
			})
		case callbackSummary:
			return b.withEmptyCallbackAnswer(callback, func() error {
				return b.handleSummaryCommand(chatID)
			})
		case callbackTable:
			return b.withEmptyCallbackAnswer(callback, func() error {
				return b.handleTableCommand(chatID)
			})
		case callbackExport:
			return b.withEmptyCallbackAnswer(callback, func() error {
				return b.handleExportCommand(chatID)
			})
		case callbackNextPage:
			return b.withEmptyCallbackAnswer(callback, func() error {
				return b.handleNextPageCommand(ctx, chatID, userID)
			})
		case callbackHistory:
			return b.withEmptyCallbackAnswer(callback, func() error {
				return b.handleHistoryCommand(ctx, chatID)
			})
		}

		return b.errorCallbackAnswer(callback, fmt.Errorf("unknown callback data %q", data))
	})
}

func (b *Bot) withEmptyCallbackAnswer(
	callback *tgbotapi.CallbackQuery,
	fn func() error,
) error {
	var errs []error

	if _, err := b.rateLimiter.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		errs = append(errs, b.errorCallbackAnswer(callback, fmt.Errorf("send request: %w", err)))
	}

	err := fn()
	if err != nil {
		errs = append(errs, fmt.Errorf("call fn: %w", err))
	}

	return errors.Join(errs...)
}

func (b *Bot) errorCallbackAnswer(
	callback *tgbotapi.CallbackQuery,
	err error,
) error {
	if _, sendErr := b.rateLimiter.Request(tgbotapi.NewCallback(callback.ID, "❌ Failed.")); sendErr != nil {
		return errors.Join(err, fmt.Errorf("send request: %w", sendErr))
	}
	return err
}
