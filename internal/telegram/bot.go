// Package telegram hosts the transcription hook on a Telegram bot.
package telegram

import (
	"context"
	"errors"
	"time"
	"voxrelay/internal/config"
	"voxrelay/internal/recog"
	"voxrelay/internal/relay"
	"voxrelay/pkg/cache"
	"voxrelay/pkg/logger"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v4"
)

// autoTTL bounds how long a /start or /stop override is remembered.
const autoTTL = 30 * 24 * time.Hour

const (
	noCacheReply    = "Per-chat settings need Redis, which is not configured."
	saveFailedReply = "Failed to save the setting, try again later."
)

// Hook processes inbound messages. A nil result means the message must not
// be delivered.
type Hook interface {
	Process(ctx context.Context, event *relay.Message) (*relay.Message, error)
}

// chatContext is the part of tele.Context the handlers use.
type chatContext interface {
	Sender() *tele.User
	Chat() *tele.Chat
	Message() *tele.Message
	Reply(what interface{}, opts ...interface{}) error
	Delete() error
}

type Bot struct {
	cfg   *config.Config
	tb    *tele.Bot
	hook  Hook
	cache cache.Cache
	conv  converter
}

// NewTeleBot creates the long-polling Telegram client.
func NewTeleBot(token string) (*tele.Bot, error) {
	if token == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN environment variable is required")
	}

	tb, err := tele.NewBot(tele.Settings{
		Token: token,
		Poller: &tele.LongPoller{
			Timeout: 10 * time.Second,
		},
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Bot created successfully", zap.String("username", tb.Me.Username))
	return tb, nil
}

// NewBot wires hook into tb. redisCache may be nil, in which case /start and
// /stop are unavailable.
func NewBot(cfg *config.Config, tb *tele.Bot, hook Hook, redisCache cache.Cache) *Bot {
	b := &Bot{
		cfg:   cfg,
		tb:    tb,
		hook:  hook,
		cache: redisCache,
		conv: converter{
			prefix:     commandPrefix(cfg),
			isOperator: cfg.IsOperator,
			download:   tb.File,
		},
	}

	b.registerHandlers()
	return b
}

func commandPrefix(cfg *config.Config) string {
	if cfg.CommandPrefix == "" {
		return recog.DefaultCommandPrefix
	}
	return cfg.CommandPrefix
}

func (b *Bot) registerHandlers() {
	b.tb.Handle("/start", func(c tele.Context) error { return b.handleStart(c) })
	b.tb.Handle("/stop", func(c tele.Context) error { return b.handleStop(c) })
	b.tb.Handle("/reset", func(c tele.Context) error { return b.handleReset(c) })
	b.tb.Handle(tele.OnVoice, func(c tele.Context) error { return b.handleMessage(c) })
	b.tb.Handle(tele.OnText, func(c tele.Context) error { return b.handleMessage(c) })
}

// handleStart enables automatic transcription for the chat.
func (b *Bot) handleStart(c chatContext) error {
	return b.toggle(c, true, "Automatic transcription enabled.")
}

// handleStop disables automatic transcription for the chat.
func (b *Bot) handleStop(c chatContext) error {
	return b.toggle(c, false, "Automatic transcription disabled.\nSend /start to resume.")
}

// handleReset drops the chat override so the configured default applies.
func (b *Bot) handleReset(c chatContext) error {
	if !b.canConfigure(c) {
		return nil
	}
	if b.cache == nil {
		return c.Reply(noCacheReply)
	}

	chatID := c.Chat().ID
	if err := b.cache.Delete(context.Background(), cache.ChatAutoCacheKey(chatID)); err != nil {
		logger.Error("Failed to delete chat auto state from cache",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		return c.Reply(saveFailedReply)
	}

	logger.Info("Chat auto transcription reset", zap.Int64("chat_id", chatID))

	if b.cfg.AutoEnabled() {
		return c.Reply("Automatic transcription follows the default: enabled.")
	}
	return c.Reply("Automatic transcription follows the default: disabled.")
}

// canConfigure reports whether the sender may change chat settings.
func (b *Bot) canConfigure(c chatContext) bool {
	return c.Sender() != nil && c.Chat() != nil && b.cfg.IsOperator(c.Sender().ID)
}

func (b *Bot) toggle(c chatContext, enabled bool, reply string) error {
	if !b.canConfigure(c) {
		return nil
	}
	if b.cache == nil {
		return c.Reply(noCacheReply)
	}

	chatID := c.Chat().ID
	key := cache.ChatAutoCacheKey(chatID)
	if err := b.cache.SetWithTTL(context.Background(), key, enabled, autoTTL); err != nil {
		logger.Error("Failed to save chat auto state to cache",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		return c.Reply(saveFailedReply)
	}

	logger.Info("Chat auto transcription toggled",
		zap.Int64("chat_id", chatID),
		zap.Bool("enabled", enabled))

	return c.Reply(reply)
}

func (b *Bot) handleMessage(c chatContext) error {
	msg := c.Message()
	if msg == nil || msg.Chat == nil {
		return nil
	}

	event, err := b.conv.message(msg)
	if err != nil {
		logger.Error("Failed to convert message",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Int("message_id", msg.ID),
			zap.Error(err))
		return nil
	}

	out, err := b.hook.Process(context.Background(), event)
	if err != nil {
		logger.Warn("Hook rejected message",
			zap.String("message_uid", event.UID),
			zap.Error(err))
		return nil
	}

	if out == nil {
		if err := c.Delete(); err != nil {
			logger.Warn("Failed to delete command message",
				zap.String("message_uid", event.UID),
				zap.Error(err))
		}
	}
	return nil
}

func (b *Bot) Start() {
	logger.Info("Bot started")
	b.tb.Start()
}

func (b *Bot) Stop() {
	b.tb.Stop()
	logger.Info("Bot stopped")
}
