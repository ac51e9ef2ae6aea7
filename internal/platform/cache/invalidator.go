package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Invalidator bumps per-entity cache versions. Readers compose their keys with
// the current version, so bumping a version orphans every key built against
// the previous one. The mechanism is deliberately coarse: invalidating an
// entity group flushes all reads for that group.
type Invalidator struct {
	client *redis.Client
	logger *slog.Logger
}

// NewInvalidator builds an Invalidator. A nil client yields a no-op instance.
func NewInvalidator(client *redis.Client, logger *slog.Logger) *Invalidator {
	return &Invalidator{client: client, logger: logger}
}

func versionKey(entity string) string {
	return fmt.Sprintf("cache:%s:version", entity)
}

// Invalidate bumps the version for each entity group. Failures are logged and
// swallowed: a stale read cache must never fail a ledger write.
func (i *Invalidator) Invalidate(ctx context.Context, entities ...string) {
	if i == nil || i.client == nil || len(entities) == 0 {
		return
	}
	for _, entity := range entities {
		if err := i.client.Incr(ctx, versionKey(entity)).Err(); err != nil {
			if i.logger != nil {
				i.logger.Warn("cache invalidation failed",
					slog.String("entity", entity),
					slog.Any("error", err))
			}
		}
	}
}

// BuildKey composes a versioned cache key for an entity group.
func (i *Invalidator) BuildKey(ctx context.Context, entity string, parts ...string) (string, error) {
	joined := entity + ":" + strings.Join(parts, ":")
	if i == nil || i.client == nil {
		return joined, nil
	}
	ver, err := i.client.Get(ctx, versionKey(entity)).Int64()
	if err == redis.Nil {
		ver = 0
	} else if err != nil {
		return "", fmt.Errorf("platform/cache: read version: %w", err)
	}
	return fmt.Sprintf("%s:%d", joined, ver), nil
}
