// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// item.go caches serialized content item documents in Valkey so repeated
// reads of the same post skip PostgreSQL.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// itemKeyPrefix is the Valkey key prefix for cached content items.
	itemKeyPrefix = "item:"

	// DefaultItemTTL is how long a cached document stays valid.
	DefaultItemTTL = 10 * time.Minute

	// tombstoneVersion outranks every real version and marks a deleted
	// item. It stays exact as a Lua number.
	tombstoneVersion = int64(1) << 53
)

// setIfNewer stores the document only when no entry with the same or a
// higher version exists. Each item is a hash with fields v and doc.
var setIfNewer = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'v')
if cur and tonumber(cur) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'v', ARGV[1], 'doc', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// ItemCache stores content item documents keyed by item ID. Entries carry
// the item version so a slow reader can never replace a newer document
// with the one it loaded earlier. Errors are logged and reported as
// misses; the database stays the source of truth.
type ItemCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewItemCache creates a new item cache backed by the given Valkey client.
func NewItemCache(client *redis.Client, ttl time.Duration) *ItemCache {
	if ttl == 0 {
		ttl = DefaultItemTTL
	}
	return &ItemCache{client: client, ttl: ttl}
}

// Get returns the cached document for id. Deleted items read as a miss.
func (c *ItemCache) Get(ctx context.Context, id string) ([]byte, bool) {
	val, err := c.client.HGet(ctx, itemKeyPrefix+id, "doc").Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Warn("item cache get error", "id", id, "error", err)
		return nil, false
	}
	if len(val) == 0 {
		return nil, false
	}
	slog.Debug("item cache hit", "id", id)
	return val, true
}

// Set stores doc as the given version of the item unless the cache
// already holds that version or a newer one. It reports whether the
// document was stored.
func (c *ItemCache) Set(ctx context.Context, id string, version int64, doc []byte) bool {
	stored, err := setIfNewer.Run(ctx, c.client,
		[]string{itemKeyPrefix + id}, version, doc, c.ttl.Milliseconds()).Int()
	if err != nil {
		slog.Warn("item cache set error", "id", id, "error", err)
		return false
	}
	if stored == 0 {
		slog.Debug("item cache kept newer entry", "id", id, "version", version)
	}
	return stored == 1
}

// Forget marks the item as deleted for the TTL, so documents loaded before
// the delete are not cached again.
func (c *ItemCache) Forget(ctx context.Context, id string) {
	c.Set(ctx, id, tombstoneVersion, []byte{})
}

// Invalidate removes one item from the cache.
func (c *ItemCache) Invalidate(ctx context.Context, id string) {
	if err := c.client.Del(ctx, itemKeyPrefix+id).Err(); err != nil {
		slog.Warn("item cache invalidate error", "id", id, "error", err)
		return
	}
	slog.Debug("item cache invalidated", "id", id)
}

// InvalidateAll removes every cached item by scanning for the prefix. It
// runs at startup because migrations and the dev seed write rows without
// going through the cache.
func (c *ItemCache) InvalidateAll(ctx context.Context) {
	var cursor uint64
	var deleted int
	for {
		keys, next, err := c.client.Scan(ctx, cursor, itemKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("item cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("item cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("item cache cleared", "deleted", deleted)
	}
}
