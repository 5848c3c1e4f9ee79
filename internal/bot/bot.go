package bot

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nhmexplorer/internal/domain"
	"nhmexplorer/internal/explorer"
	"nhmexplorer/internal/ratelimiter"
	"nhmexplorer/internal/table"
)

const (
	maxBackoffSeconds         = 60
	initialBackoffSeconds     = 3
	backoffGrowthFactor       = 2
	resetOffsetBackoffSeconds = 30
	updateProcessingTimeout   = 2 * time.Minute

	BotUpdateTimeout = 60
)

// Explorer runs occurrence queries.
type Explorer interface {
	Run(ctx context.Context, q domain.Query) (*explorer.Result, error)
}

// Analyst answers a question given a table.
type Analyst interface {
	Ask(ctx context.Context, t *table.Table, question string) (string, error)
}

// Store keeps the last filters and the Q&A history of each chat.
type Store interface {
	UpsertSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, chatID int64) (*domain.Session, error)
	AddMessage(ctx context.Context, message *domain.Message) error
	GetRecentMessages(ctx context.Context, chatID int64, limit int) ([]domain.Message, error)
	DeleteChatMessages(ctx context.Context, chatID int64) (int64, error)
}

type Bot struct {
	api            *tgbotapi.BotAPI
	rateLimiter    *ratelimiter.RateLimiter
	explorer       Explorer
	analyst        Analyst
	store          Store
	allowedUsers   []int64
	returnKeyboard [][]tgbotapi.InlineKeyboardButton
	menuKeyboard   [][]tgbotapi.InlineKeyboardButton
	resultKeyboard [][]tgbotapi.InlineKeyboardButton

	mu      sync.Mutex
	results map[int64]*explorer.Result

	log *slog.Logger
}

// New connects to Telegram. A nil analyst disables questions about the
// table.
func New(
	token string,
	exp Explorer,
	analyst Analyst,
	store Store,
	allowedUsers []int64,
	log *slog.Logger,
) (*Bot, error) {
	token = strings.TrimSpace(token)

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	b := newBot(api, exp, analyst, store, allowedUsers, log)
	b.api = api

	return b, nil
}

func newBot(
	sender ratelimiter.Sender,
	exp Explorer,
	analyst Analyst,
	store Store,
	allowedUsers []int64,
	log *slog.Logger,
) *Bot {
	return &Bot{
		rateLimiter:    ratelimiter.New(sender, ratelimiter.Rates{}, log),
		explorer:       exp,
		analyst:        analyst,
		store:          store,
		allowedUsers:   allowedUsers,
		returnKeyboard: getReturnKeyboard(),
		menuKeyboard:   getMenuKeyboard(),
		resultKeyboard: getResultKeyboard(),
		results:        make(map[int64]*explorer.Result),
		log:            log,
	}
}

func (b *Bot) Start(ctx context.Context) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = BotUpdateTimeout

	backoffSeconds := initialBackoffSeconds

	for {
		select {
		case <-ctx.Done():
			b.log.InfoContext(ctx, "Bot context is done",
				"error", ctx.Err())
			return
		default:
		}

		updates := b.api.GetUpdatesChan(updateConfig)
		updatesClosed := false

		for !updatesClosed {
			select {
			case <-ctx.Done():
				b.api.StopReceivingUpdates()
				b.log.InfoContext(ctx, "Bot context is done",
					"error", ctx.Err())
				return

			case update, ok := <-updates:
				if !ok {
					updatesClosed = true
					continue
				}
				updateConfig.Offset = update.UpdateID + 1

				b.handleUpdate(ctx, &update)
			}
		}

		if ctx.Err() != nil {
			return
		}

		b.log.WarnContext(ctx, "Update channel is closed, reconnecting...",
			"offset", updateConfig.Offset,
			"backoffSeconds", backoffSeconds)

		time.Sleep(time.Duration(backoffSeconds) * time.Second)

		backoffSeconds = updateBackoffSeconds(backoffSeconds)

		if backoffSeconds >= resetOffsetBackoffSeconds {
			updateConfig.Offset = 0
		}
	}
}

func (b *Bot) Stop() {
	if b.rateLimiter != nil {
		b.rateLimiter.Stop()
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	updateCtx, cancel := context.WithTimeout(ctx, updateProcessingTimeout)
	defer cancel()

	switch {
	case update.Message != nil && update.Message.From != nil:
		chatID, chatType := chatContext(update.Message.Chat)

		userID := update.Message.From.ID
		if !b.userAllowed(userID) {
			b.log.DebugContext(updateCtx, "User is not allowed",
				"userID", userID,
				"chatID", chatID,
				"username", update.Message.From.UserName,
				"chatType", chatType)

			return
		}

		if err := b.handleMessage(updateCtx, update.Message); err != nil {
			b.log.ErrorContext(updateCtx, "Failed to handle message",
				"error", err,
				"chatID", chatID,
				"userID", userID,
				"chatType", chatType,
				"messageID", update.Message.MessageID)
		}

	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		chatID := callbackChatID(update.CallbackQuery)

		if !b.userAllowed(update.CallbackQuery.From.ID) {
			b.log.DebugContext(updateCtx, "User is not allowed",
				"userID", update.CallbackQuery.From.ID,
				"chatID", chatID,
				"username", update.CallbackQuery.From.UserName,
				"data", update.CallbackQuery.Data)

			return
		}

		if err := b.handleCallbackQuery(updateCtx, update.CallbackQuery); err != nil {
			b.log.ErrorContext(updateCtx, "Failed to handle callback query",
				"error", err,
				"chatID", chatID,
				"userID", update.CallbackQuery.From.ID,
				"data", update.CallbackQuery.Data,
				"messageID", update.CallbackQuery.Message.MessageID)
		}
	}
}

func (b *Bot) userAllowed(userID int64) bool {
	return len(b.allowedUsers) == 0 || slices.Contains(b.allowedUsers, userID)
}

func (b *Bot) result(chatID int64) *explorer.Result {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.results[chatID]
}

func (b *Bot) setResult(chatID int64, res *explorer.Result) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if res == nil {
		delete(b.results, chatID)
		return
	}

	b.results[chatID] = res
}

func chatContext(chat *tgbotapi.Chat) (int64, string) {
	if chat == nil {
		return 0, ""
	}

	return chat.ID, chat.Type
}

func callbackChatID(cb *tgbotapi.CallbackQuery) int64 {
	if cb != nil && cb.Message != nil && cb.Message.Chat != nil {
		return cb.Message.Chat.ID
	}

	return 0
}

func updateBackoffSeconds(backoffSeconds int) int {
	if backoffSeconds < maxBackoffSeconds {
		backoffSeconds *= backoffGrowthFactor
		if backoffSeconds > maxBackoffSeconds {
			backoffSeconds = maxBackoffSeconds
		}
	}
	return backoffSeconds
}
