// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateKeyPrefix = "ratelimit:"

// WindowCounter is a fixed-window request counter kept in Valkey, so every
// API instance shares one limit per client.
type WindowCounter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// NewWindowCounter allows limit requests per window for each key.
func NewWindowCounter(client *redis.Client, limit int, window time.Duration) *WindowCounter {
	return &WindowCounter{client: client, limit: int64(limit), window: window}
}

// Allow counts one request for key. The window starts with the first
// request and the counter expires with it.
func (c *WindowCounter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := rateKeyPrefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, c.window)
		ttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("rate counter %s: %w", key, err)
	}

	if incr.Val() <= c.limit {
		return true, 0, nil
	}
	retry := ttl.Val()
	if retry <= 0 {
		retry = c.window
	}
	return false, retry, nil
}
