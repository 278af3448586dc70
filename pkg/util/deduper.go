package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// AcquireOnce returns true the first time handler sees id within ttl.
// When Redis is unavailable it allows processing; handlers stay idempotent.
func (d *Deduper) AcquireOnce(ctx context.Context, handler, id string) bool {
	key := fmt.Sprintf("dedup:%s:%s", handler, id)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		d.logger.Warn("Redis dedup check failed, allowing processing",
			zap.String("handler", handler),
			zap.String("id", id),
			zap.Error(err),
		)
		return true
	}

	if !ok {
		d.logger.Info("Skipped duplicated event",
			zap.String("handler", handler),
			zap.String("id", id),
			zap.String("dedup_key", key),
		)
	}

	return ok
}

// Release forgets id so a failed attempt can be retried.
func (d *Deduper) Release(ctx context.Context, handler, id string) {
	key := fmt.Sprintf("dedup:%s:%s", handler, id)
	if err := d.rdb.Del(ctx, key).Err(); err != nil {
		d.logger.Warn("Failed to release dedup key", zap.String("dedup_key", key), zap.Error(err))
	}
}
