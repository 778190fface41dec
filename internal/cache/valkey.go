// Package cache provides the Valkey (Redis-compatible) client shared by
// sessions, OAuth state and the content item document cache.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// ConnectValkey creates a client for the given logical database and checks
// it with a ping bounded by ctx and pingTimeout.
func ConnectValkey(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       addr,
		Password:   password,
		DB:         db,
		ClientName: "presently",
	})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey ping %s/%d: %w", addr, db, err)
	}

	slog.Info("valkey connected", "addr", addr, "db", db)
	return client, nil
}
