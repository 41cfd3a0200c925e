package dedup

import (
	"context"
	"fmt"
	"time"
	"voicebrief/pkg/cache"
	"voicebrief/pkg/logger"

	"go.uber.org/zap"
)

// RedisLedger persists processed keys in Redis so the ledger survives
// restarts. Entries expire after TTL, which bounds ledger growth.
type RedisLedger struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewRedisLedger(c cache.Cache, ttl time.Duration) *RedisLedger {
	return &RedisLedger{
		cache: c,
		ttl:   ttl,
	}
}

func processedKey(key string) string {
	return fmt.Sprintf("processed:%s", key)
}

// Seen treats a cache error as "not seen": the message stays eligible and
// at-most-once-on-success degrades to at-least-once, never to silent drop.
func (l *RedisLedger) Seen(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := l.cache.Exists(ctx, processedKey(key))
	if err != nil {
		logger.Error("Failed to check ledger membership",
			zap.String("message_key", key),
			zap.Error(err))
		return false
	}
	return exists
}

func (l *RedisLedger) MarkProcessed(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.cache.SetWithTTL(ctx, processedKey(key), true, l.ttl); err != nil {
		logger.Error("Failed to mark message processed",
			zap.String("message_key", key),
			zap.Error(err))
	}
}
