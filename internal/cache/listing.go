// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// listing.go provides a Valkey-backed cache for encoded listing pages.
// Keys embed a generation number; invalidation bumps the generation so
// entries written by readers that raced a mutation are never served.
// Old generations expire with their TTL.
package cache

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// listingKeyPrefix is the Valkey key prefix for cached listing pages.
	listingKeyPrefix = "listing:"

	// generationKey holds the current listing generation.
	generationKey = listingKeyPrefix + "gen"

	// DefaultListingTTL is how long a listing page stays cached.
	DefaultListingTTL = 2 * time.Minute
)

// ListingCache manages listing page caching in Valkey.
type ListingCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewListingCache creates a listing cache backed by the given Valkey client.
func NewListingCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *ListingCache {
	if ttl <= 0 {
		ttl = DefaultListingTTL
	}
	return &ListingCache{client: client, ttl: ttl, logger: logger}
}

func (lc *ListingCache) generation(ctx context.Context) (int64, error) {
	gen, err := lc.client.Get(ctx, generationKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

func (lc *ListingCache) key(gen int64, key string) string {
	return listingKeyPrefix + strconv.FormatInt(gen, 10) + ":" + key
}

// Get returns the cached value for key in the current generation, and that
// generation. A miss caused by a Valkey error reports generation -1.
func (lc *ListingCache) Get(ctx context.Context, key string) ([]byte, int64, bool) {
	gen, err := lc.generation(ctx)
	if err != nil {
		lc.logger.Warn("listing cache generation error", "error", err)
		return nil, -1, false
	}
	val, err := lc.client.Get(ctx, lc.key(gen, key)).Bytes()
	if err == redis.Nil {
		return nil, gen, false
	}
	if err != nil {
		lc.logger.Warn("listing cache get error", "key", key, "error", err)
		return nil, gen, false
	}
	lc.logger.Debug("listing cache hit", "key", key)
	return val, gen, true
}

// Set stores value under key in generation gen, which must be the one Get
// reported before value was computed. An invalidation in between leaves the
// entry under a retired generation where no reader looks.
func (lc *ListingCache) Set(ctx context.Context, gen int64, key string, value []byte) {
	if gen < 0 {
		return
	}
	if err := lc.client.Set(ctx, lc.key(gen, key), value, lc.ttl).Err(); err != nil {
		lc.logger.Warn("listing cache set error", "key", key, "error", err)
	}
}

// Invalidate starts a new generation, hiding every cached page.
func (lc *ListingCache) Invalidate(ctx context.Context) {
	gen, err := lc.client.Incr(ctx, generationKey).Result()
	if err != nil {
		lc.logger.Warn("listing cache invalidate error", "error", err)
		return
	}
	lc.logger.Debug("listing cache invalidated", "generation", gen)
}

// Purge deletes every cached page of every generation.
func (lc *ListingCache) Purge(ctx context.Context) {
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := lc.client.Scan(ctx, cursor, listingKeyPrefix+"*", 100).Result()
		if err != nil {
			lc.logger.Warn("listing cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := lc.client.Del(ctx, keys...).Err(); err != nil {
				lc.logger.Warn("listing cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		lc.logger.Info("listing cache purged", "deleted", deleted)
	}
}
