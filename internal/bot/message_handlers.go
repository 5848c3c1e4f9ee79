package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nhmexplorer/internal/domain"
	"nhmexplorer/internal/markdown"
	"nhmexplorer/internal/occurrence"
)

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	text := strings.TrimSpace(message.Text)
	if text == "" {
		return nil
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	action := tgbotapi.ChatTyping
	if message.Command() == "export" {
		action = tgbotapi.ChatUploadDocument
	}

	return b.withSpinner(ctx, chatID, action, func() error {
		if !message.IsCommand() {
			return b.handleQuestion(ctx, text, chatID)
		}

		switch message.Command() {
		case "start":
			return b.handleStartCommand(chatID)
		case "menu":
			return b.handleMenuCommand(chatID)
		case "query":
			return b.handleQueryCommand(ctx, message.CommandArguments(), chatID, userID)
		case "summary":
			return b.handleSummaryCommand(chatID)
		case "table":
			return b.handleTableCommand(chatID)
		case "export":
			return b.handleExportCommand(chatID)
		case "history":
			return b.handleHistoryCommand(ctx, chatID)
		case "reset":
			return b.handleResetCommand(ctx, chatID)
		default:
			return b.sendMessageWithKeyboard(chatID, "✖️ Unknown command\\.", b.menuKeyboard)
		}
	})
}

func (b *Bot) handleQuestion(ctx context.Context, question string, chatID int64) error {
	if b.analyst == nil {
		return b.sendMessageWithKeyboard(chatID,
			"✖️ Questions are disabled: no language model is configured\\.",
			b.returnKeyboard)
	}

	res, err := b.currentResult(ctx, chatID)
	if err != nil {
		var errs []error
		text := "✖️ No results yet\\. Run /query first\\."

		if !errors.Is(err, errNoResult) {
			errs = append(errs, fmt.Errorf("get current result: %w", err))
			text = "❌ Failed\\."

			var remoteErr *occurrence.RemoteRequestError
			if errors.As(err, &remoteErr) {
				text = formatRemoteError(remoteErr.StatusCode)
			}
		}

		if sendErr := b.sendMessageWithKeyboard(chatID, text, b.returnKeyboard); sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	var errs []error

	if err = b.store.AddMessage(ctx, &domain.Message{
		ChatID: chatID,
		Role:   domain.RoleUser,
		Text:   question,
	}); err != nil {
		errs = append(errs, fmt.Errorf("add user message: %w", err))
	}

	answer, err := b.analyst.Ask(ctx, res.Records, question)
	if err != nil {
		errs = append(errs, fmt.Errorf("ask analyst: %w", err))

		if sendErr := b.sendMessageWithKeyboard(chatID, "❌ Failed to answer\\.", b.returnKeyboard); sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	if err = b.store.AddMessage(ctx, &domain.Message{
		ChatID: chatID,
		Role:   domain.RoleAssistant,
		Text:   answer,
	}); err != nil {
		errs = append(errs, fmt.Errorf("add assistant message: %w", err))
	}

	chunks := splitText(answer, answerChunkMaxLength)
	if len(chunks) == 0 {
		chunks = []string{"(empty answer)"}
	}

	for i, chunk := range chunks {
		var keyboard [][]tgbotapi.InlineKeyboardButton
		if i == len(chunks)-1 {
			keyboard = b.resultKeyboard
		}

		if err = b.sendMessageWithKeyboard(chatID, markdown.EscapeV2(chunk), keyboard); err != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", err))
			break
		}
	}

	return errors.Join(errs...)
}
