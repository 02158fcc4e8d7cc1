package telegram

import (
	"context"
	"errors"
	"voxrelay/internal/relay"
	"voxrelay/pkg/cache"
	"voxrelay/pkg/logger"

	"go.uber.org/zap"
)

// ChatPolicy reads per-chat /start and /stop overrides from the cache and
// falls back to a default.
type ChatPolicy struct {
	cache    cache.Cache
	fallback bool
}

func NewChatPolicy(c cache.Cache, fallback bool) *ChatPolicy {
	return &ChatPolicy{cache: c, fallback: fallback}
}

func (p *ChatPolicy) AutoEnabled(ctx context.Context, chat *relay.Chat) bool {
	if chat == nil {
		return p.fallback
	}

	var enabled bool
	err := p.cache.Get(ctx, cache.ChatAutoCacheKey(chat.ID), &enabled)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			logger.Warn("Failed to read chat auto state",
				zap.Int64("chat_id", chat.ID),
				zap.Error(err))
		}
		return p.fallback
	}

	return enabled
}
