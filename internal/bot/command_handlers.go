package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nhmexplorer/internal/domain"
	"nhmexplorer/internal/explorer"
	"nhmexplorer/internal/markdown"
	"nhmexplorer/internal/occurrence"
	"nhmexplorer/internal/table"
)

const welcomeText = `🦉 *Welcome to NHM Explorer\!*

I search Natural History Museum \(NHMUK\) occurrence records on GBIF\. I can help you:

– Run a query with /query, e\.g\.
` + "`/query name=Quercus robur; country=GB; year=1800,1950; limit=10`" + `
– Get the summary with /summary and a table preview with /table
– Download the raw records as Excel with /export
– Ask questions about the current table by sending plain text
– Review the Q&A history with /history and clear it with /reset`

const queryUsageText = `Use ` + "`key=value`" + ` pairs separated by ` + "`;`" + `\.
Keys: ` + "`name`, `country`, `year`, `limit`, `offset`" + `\.`

var errNoResult = errors.New("no result for chat")

func (b *Bot) handleStartCommand(chatID int64) error {
	return b.sendMessageWithKeyboard(chatID, welcomeText, b.menuKeyboard)
}

func (b *Bot) handleMenuCommand(chatID int64) error {
	return b.sendMessageWithKeyboard(chatID, "❔ *Choose an option:*", b.menuKeyboard)
}

func (b *Bot) handleQueryCommand(
	ctx context.Context,
	args string,
	chatID int64,
	userID int64,
) error {
	args = strings.TrimSpace(args)

	if args == "" {
		q, err := b.lastQuery(ctx, chatID)
		if err != nil {
			b.log.WarnContext(ctx, "Failed to load last query, using default",
				"error", err,
				"chatID", chatID)
		}
		if q == nil {
			q = &defaultQuery
		}

		return b.runQuery(ctx, *q, chatID, userID)
	}

	q, err := parseQueryArgs(args)
	if err != nil {
		errs := []error{fmt.Errorf("parse query args: %w", err)}

		sendErr := b.sendMessageWithKeyboard(chatID, fmt.Sprintf(
			"❌ %s\\.\n\n%s",
			markdown.EscapeV2(err.Error()),
			queryUsageText,
		), b.returnKeyboard)
		if sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	return b.runQuery(ctx, q, chatID, userID)
}

func (b *Bot) handleRerunCommand(ctx context.Context, chatID int64, userID int64) error {
	q, err := b.lastQuery(ctx, chatID)
	if err != nil || q == nil {
		var errs []error
		if err != nil {
			errs = append(errs, fmt.Errorf("load last query: %w", err))
		}

		sendErr := b.sendMessageWithKeyboard(chatID, "✖️ Nothing to rerun yet\\. Run /query first\\.", b.returnKeyboard)
		if sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	return b.runQuery(ctx, *q, chatID, userID)
}

func (b *Bot) handleNextPageCommand(ctx context.Context, chatID int64, userID int64) error {
	res := b.result(chatID)
	if res == nil {
		return b.sendNoResult(chatID)
	}

	q, err := nextPage(res.AppliedFilters)
	if err != nil {
		errs := []error{err}

		sendErr := b.sendMessageWithKeyboard(chatID, "✖️ There is no next page\\.", b.resultKeyboard)
		if sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	return b.runQuery(ctx, q, chatID, userID)
}

// runQuery replaces the chat's result on success only. Failures leave the
// previous result and stored filters untouched.
func (b *Bot) runQuery(
	ctx context.Context,
	q domain.Query,
	chatID int64,
	userID int64,
) error {
	res, err := b.explorer.Run(ctx, q)
	if err != nil {
		errs := []error{fmt.Errorf("run query: %w", err)}

		text := "❌ Failed\\."

		var remoteErr *occurrence.RemoteRequestError
		switch {
		case errors.As(err, &remoteErr):
			text = formatRemoteError(remoteErr.StatusCode)
		case errors.Is(err, domain.ErrInvalidQuery):
			text = fmt.Sprintf("❌ %s\\.\n\n%s", markdown.EscapeV2(err.Error()), queryUsageText)
		}

		if sendErr := b.sendMessageWithKeyboard(chatID, text, b.returnKeyboard); sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	b.setResult(chatID, res)

	var errs []error

	if err = b.store.UpsertSession(ctx, &domain.Session{
		ChatID:    chatID,
		UserID:    userID,
		Query:     res.AppliedFilters,
		RunID:     res.RunID,
		UpdatedAt: time.Now(),
	}); err != nil {
		errs = append(errs, fmt.Errorf("upsert session: %w", err))
	}

	if err = b.sendMessageWithKeyboard(chatID, formatResult(res), b.resultKeyboard); err != nil {
		errs = append(errs, fmt.Errorf("send message with keyboard: %w", err))
	}

	return errors.Join(errs...)
}

func (b *Bot) handleSummaryCommand(chatID int64) error {
	res := b.result(chatID)
	if res == nil {
		return b.sendNoResult(chatID)
	}

	return b.sendMessageWithKeyboard(chatID, formatSummary(res), b.resultKeyboard)
}

func (b *Bot) handleTableCommand(chatID int64) error {
	res := b.result(chatID)
	if res == nil {
		return b.sendNoResult(chatID)
	}

	return b.sendMessageWithKeyboard(chatID, formatTablePreview(res.Records), b.resultKeyboard)
}

func (b *Bot) handleExportCommand(chatID int64) error {
	res := b.result(chatID)
	if res == nil {
		return b.sendNoResult(chatID)
	}

	data, err := table.XLSX(res.Records)
	if err != nil {
		errs := []error{fmt.Errorf("build xlsx: %w", err)}

		sendErr := b.sendMessageWithKeyboard(chatID, "❌ Failed\\.", b.returnKeyboard)
		if sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	caption := fmt.Sprintf("📥 %d records", res.Records.Len())
	if err = b.sendDocument(chatID, table.ExportFilename, data, markdown.EscapeV2(caption)); err != nil {
		return fmt.Errorf("send document: %w", err)
	}

	return nil
}

func (b *Bot) handleHistoryCommand(ctx context.Context, chatID int64) error {
	messages, err := b.store.GetRecentMessages(ctx, chatID, historyMessages)
	if err != nil {
		errs := []error{fmt.Errorf("get recent messages: %w", err)}

		sendErr := b.sendMessageWithKeyboard(chatID, "❌ Failed\\.", b.returnKeyboard)
		if sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	return b.sendMessageWithKeyboard(chatID, formatHistory(messages), b.returnKeyboard)
}

func (b *Bot) handleResetCommand(ctx context.Context, chatID int64) error {
	b.setResult(chatID, nil)

	removed, err := b.store.DeleteChatMessages(ctx, chatID)
	if err != nil {
		errs := []error{fmt.Errorf("delete chat messages: %w", err)}

		sendErr := b.sendMessageWithKeyboard(chatID, "❌ Failed\\.", b.returnKeyboard)
		if sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	return b.sendMessageWithKeyboard(chatID, fmt.Sprintf(
		"✅ Session is reset \\(%d messages removed\\)\\.", removed,
	), b.menuKeyboard)
}

func (b *Bot) sendNoResult(chatID int64) error {
	return b.sendMessageWithKeyboard(chatID, "✖️ No results yet\\. Run /query first\\.", b.returnKeyboard)
}

// lastQuery returns the filters of the in-memory result, then the stored
// session, or nil when the chat has neither.
func (b *Bot) lastQuery(ctx context.Context, chatID int64) (*domain.Query, error) {
	if res := b.result(chatID); res != nil {
		q := res.AppliedFilters
		return &q, nil
	}

	session, err := b.store.GetSession(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, nil //nolint:nilnil // Absent session is not an error.
	}

	return &session.Query, nil
}

// currentResult returns the chat's result, rerunning the stored filters
// when the process has no result in memory.
func (b *Bot) currentResult(ctx context.Context, chatID int64) (*explorer.Result, error) {
	if res := b.result(chatID); res != nil {
		return res, nil
	}

	session, err := b.store.GetSession(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, errNoResult
	}

	res, err := b.explorer.Run(ctx, session.Query)
	if err != nil {
		return nil, fmt.Errorf("rerun stored query: %w", err)
	}

	b.setResult(chatID, res)

	return res, nil
}
