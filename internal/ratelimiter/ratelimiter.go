package ratelimiter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	DefaultPrivateChatRate = time.Second
	DefaultGroupChatRate   = 3 * time.Second

	queueSize = 1000
)

// Sender is the part of the Telegram API the limiter paces.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Rates struct {
	PrivateChat time.Duration
	GroupChat   time.Duration
}

type request struct {
	message  tgbotapi.Chattable
	response chan response
}

type response struct {
	message tgbotapi.Message
	err     error
}

// RateLimiter serializes outgoing messages and keeps a minimal interval
// between two messages to the same chat.
type RateLimiter struct {
	api      Sender
	rates    Rates
	queue    chan request
	lastSent map[int64]time.Time
	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	log      *slog.Logger
}

func New(api Sender, rates Rates, log *slog.Logger) *RateLimiter {
	if rates.PrivateChat <= 0 {
		rates.PrivateChat = DefaultPrivateChatRate
	}
	if rates.GroupChat <= 0 {
		rates.GroupChat = DefaultGroupChatRate
	}

	ctx, cancel := context.WithCancel(context.Background())

	rl := &RateLimiter{
		api:      api,
		rates:    rates,
		queue:    make(chan request, queueSize),
		lastSent: make(map[int64]time.Time),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		log:      log,
	}

	go rl.processQueue()

	return rl
}

func (rl *RateLimiter) Send(message tgbotapi.Chattable) (tgbotapi.Message, error) {
	req := request{
		message:  message,
		response: make(chan response, 1),
	}

	select {
	case rl.queue <- req:
	case <-rl.ctx.Done():
		return tgbotapi.Message{}, rl.ctx.Err()
	}

	select {
	case resp := <-req.response:
		return resp.message, resp.err
	case <-rl.done:
		return tgbotapi.Message{}, rl.ctx.Err()
	}
}

// Request bypasses the queue; it is used for callback answers and chat
// actions, which Telegram does not count against message limits.
func (rl *RateLimiter) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return rl.api.Request(c)
}

func (rl *RateLimiter) Stop() {
	rl.cancel()
	<-rl.done
}

func (rl *RateLimiter) processQueue() {
	defer close(rl.done)

	for {
		select {
		case req := <-rl.queue:
			rl.handleRequest(req)
		case <-rl.ctx.Done():
			for {
				select {
				case req := <-rl.queue:
					req.response <- response{err: rl.ctx.Err()}
				default:
					return
				}
			}
		}
	}
}

func (rl *RateLimiter) handleRequest(req request) {
	chatID := chatIDOf(req.message)

	rl.mu.Lock()
	lastSent, exists := rl.lastSent[chatID]
	rl.mu.Unlock()

	if exists {
		if delay := rl.delay(chatID, lastSent, time.Now()); delay > 0 {
			rl.log.DebugContext(rl.ctx, "Rate limiting message",
				"chatID", chatID,
				"delay", delay,
				"chattableType", fmt.Sprintf("%T", req.message),
				"queueLen", len(rl.queue))

			select {
			case <-time.After(delay):
			case <-rl.ctx.Done():
				req.response <- response{err: rl.ctx.Err()}
				return
			}
		}
	}

	message, err := rl.api.Send(req.message)

	rl.mu.Lock()
	rl.lastSent[chatID] = time.Now()
	rl.mu.Unlock()

	req.response <- response{
		message: message,
		err:     err,
	}
}

func (rl *RateLimiter) delay(chatID int64, lastSent, now time.Time) time.Duration {
	rate := rl.rates.PrivateChat
	if chatID < 0 {
		rate = rl.rates.GroupChat
	}

	return max(rate-now.Sub(lastSent), 0)
}

func chatIDOf(message tgbotapi.Chattable) int64 {
	switch m := message.(type) {
	case tgbotapi.MessageConfig:
		return m.ChatID
	case tgbotapi.DocumentConfig:
		return m.ChatID
	case tgbotapi.EditMessageTextConfig:
		return m.ChatID
	case tgbotapi.DeleteMessageConfig:
		return m.ChatID
	case tgbotapi.ChatActionConfig:
		return m.ChatID
	default:
		return 0
	}
}
