package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sourcegraph/conc/pool"

	"github.com/camuig/quant-relay/internal/bot"
	"github.com/camuig/quant-relay/internal/logger"
)

const pollTimeout = 60

// UpdateSource is satisfied by *tgbotapi.BotAPI.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Sender is satisfied by *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Handler interface {
	Handle(ctx context.Context, m bot.Message) (bot.Reply, bool)
}

// Listener long-polls Telegram and answers each text message on a bounded
// pool of goroutines.
type Listener struct {
	source        UpdateSource
	sender        Sender
	handler       Handler
	maxConcurrent int
	logger        *logger.Logger
}

func NewListener(source UpdateSource, sender Sender, handler Handler, maxConcurrent int, log *logger.Logger) *Listener {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Listener{
		source:        source,
		sender:        sender,
		handler:       handler,
		maxConcurrent: maxConcurrent,
		logger:        log,
	}
}

// Run blocks until ctx is cancelled or the update channel is closed. Messages
// already being handled are allowed to finish before it returns.
func (l *Listener) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := l.source.GetUpdatesChan(u)

	p := pool.New().WithMaxGoroutines(l.maxConcurrent)
	defer p.Wait()

	l.logger.Info("listening for messages", "workers", l.maxConcurrent)

	for {
		select {
		case <-ctx.Done():
			l.source.StopReceivingUpdates()
			l.logger.Info("listener stopped")
			return
		case update, ok := <-updates:
			if !ok {
				l.logger.Info("update channel closed")
				return
			}
			m, ok := toMessage(update)
			if !ok {
				continue
			}
			p.Go(func() {
				l.process(ctx, m)
			})
		}
	}
}

func (l *Listener) process(ctx context.Context, m bot.Message) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("message handler panicked", "chat_id", m.ChatID, "panic", fmt.Sprint(r))
		}
	}()

	l.logger.Info("message received", "username", m.Username, "chat_id", m.ChatID, "text", m.Text)

	reply, ok := l.handler.Handle(ctx, m)
	if !ok {
		l.logger.Debug("message ignored", "username", m.Username)
		return
	}
	l.send(m.Username, reply)
}

func (l *Listener) send(username string, reply bot.Reply) {
	msg := tgbotapi.NewMessage(reply.ChatID, reply.Text)
	if reply.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}

	if _, err := l.sender.Send(msg); err != nil {
		l.logger.Error("send telegram message", "chat_id", reply.ChatID, "error", err)
		return
	}
	l.logger.Info("reply sent", "username", username, "chat_id", reply.ChatID)
}

func toMessage(update tgbotapi.Update) (bot.Message, bool) {
	if update.Message == nil || update.Message.Chat == nil {
		return bot.Message{}, false
	}

	m := bot.Message{
		ChatID: update.Message.Chat.ID,
		Text:   update.Message.Text,
	}
	if update.Message.From != nil {
		m.Username = update.Message.From.UserName
	}
	return m, true
}
