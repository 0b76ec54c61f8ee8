package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	rediscache "github.com/dermalab/dermacare-backend/internal/clients/redis"
	"github.com/dermalab/dermacare-backend/internal/pkg/logger"
)

func resolutionKey(userID uuid.UUID, profileVersion int) string {
	return fmt.Sprintf("rec:%s:v%d", userID, profileVersion)
}

func planKey(userID uuid.UUID, profileVersion int) string {
	return fmt.Sprintf("plan:%s:v%d", userID, profileVersion)
}

// lookupTiered is the one implementation of the cache -> durable store
// -> compute cascade used by both the resolution and plan read paths.
//
//	1. fast cache; a hit returns without touching the store
//	2. durable store; a hit back-fills the cache
//	3. compute (when allowed); the result is persisted, cached, returned
//
// Cache failures and store read failures degrade to the next tier.
// Once compute has succeeded, persistence and cache population are
// best-effort: their failure is logged, never surfaced.
// A nil return with nil error is a miss (compute not permitted).
func lookupTiered[T any](
	ctx context.Context,
	log *logger.Logger,
	cache rediscache.Cache,
	key string,
	ttl time.Duration,
	load func(context.Context) (*T, error),
	compute func(context.Context) (*T, error),
	persist func(context.Context, *T) error,
) (*T, error) {
	if cache != nil {
		var cached T
		hit, err := cache.GetJSON(ctx, key, &cached)
		if err != nil {
			log.Warn("cache read failed, degrading to store", "key", key, "error", err)
		} else if hit {
			return &cached, nil
		}
	}

	if load != nil {
		row, err := load(ctx)
		if err != nil {
			if compute == nil {
				return nil, err
			}
			log.Warn("store read failed, degrading to compute", "key", key, "error", err)
		} else if row != nil {
			cacheSet(ctx, log, cache, key, ttl, row)
			return row, nil
		}
	}

	if compute == nil {
		return nil, nil
	}

	row, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	if persist != nil {
		if err := persist(ctx, row); err != nil {
			log.Error("failed to persist computed value", "key", key, "error", err)
		}
	}
	cacheSet(ctx, log, cache, key, ttl, row)
	return row, nil
}

func cacheSet[T any](ctx context.Context, log *logger.Logger, cache rediscache.Cache, key string, ttl time.Duration, row *T) {
	if cache == nil {
		return
	}
	if err := cache.SetJSON(ctx, key, row, ttl); err != nil {
		log.Warn("cache write failed", "key", key, "error", err)
	}
}
