// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// testValkeyClient returns a Redis client for tests.
// Skips if Valkey is unavailable.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15, // Use DB 15 for tests.
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, itemKeyPrefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})

	return client
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestConnectValkey(t *testing.T) {
	addr := envOr("VALKEY_HOST", "localhost") + ":" + envOr("VALKEY_PORT", "6379")

	client, err := ConnectValkey(context.Background(), addr, os.Getenv("VALKEY_PASSWORD"), 15)
	if err != nil {
		t.Skipf("skipping: Valkey not available: %v", err)
	}
	defer client.Close()

	if got := client.Options().DB; got != 15 {
		t.Errorf("DB: got %d, want 15", got)
	}
	name, err := client.ClientGetName(context.Background()).Result()
	if err != nil {
		t.Fatalf("CLIENT GETNAME: %v", err)
	}
	if name != "presently" {
		t.Errorf("client name: got %q", name)
	}
}

func TestConnectValkeyUnreachable(t *testing.T) {
	_, err := ConnectValkey(context.Background(), "127.0.0.1:1", "", 0)
	if err == nil {
		t.Fatal("expected error for unreachable Valkey")
	}
	if !strings.Contains(err.Error(), "127.0.0.1:1/0") {
		t.Errorf("error should name the address: %v", err)
	}
}

func TestItemCacheSetAndGet(t *testing.T) {
	client := testValkeyClient(t)
	c := NewItemCache(client, time.Minute)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Error("expected miss for unknown id")
	}

	doc := []byte(`{"id":"abc","title":"Gifts for coffee lovers"}`)
	if !c.Set(ctx, "abc", 1, doc) {
		t.Fatal("Set should store into an empty cache")
	}

	got, ok := c.Get(ctx, "abc")
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if string(got) != string(doc) {
		t.Errorf("Get() = %s, want %s", got, doc)
	}
}

func TestItemCacheTTL(t *testing.T) {
	client := testValkeyClient(t)
	c := NewItemCache(client, 30*time.Second)
	ctx := context.Background()

	c.Set(ctx, "ttl-check", 1, []byte("x"))
	ttl, err := client.TTL(ctx, itemKeyPrefix+"ttl-check").Result()
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= 0 || ttl > 30*time.Second {
		t.Errorf("TTL = %v, want within (0, 30s]", ttl)
	}
}

func TestItemCacheDefaultTTL(t *testing.T) {
	c := NewItemCache(nil, 0)
	if c.ttl != DefaultItemTTL {
		t.Errorf("ttl = %v, want %v", c.ttl, DefaultItemTTL)
	}
}

func TestItemCacheInvalidate(t *testing.T) {
	client := testValkeyClient(t)
	c := NewItemCache(client, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "one", 1, []byte("1"))
	c.Set(ctx, "two", 1, []byte("2"))

	c.Invalidate(ctx, "one")
	if _, ok := c.Get(ctx, "one"); ok {
		t.Error("expected miss after Invalidate")
	}
	if _, ok := c.Get(ctx, "two"); !ok {
		t.Error("Invalidate removed an unrelated item")
	}

	c.InvalidateAll(ctx)
	if _, ok := c.Get(ctx, "two"); ok {
		t.Error("expected miss after InvalidateAll")
	}
}

func TestItemCacheKeepsNewerVersion(t *testing.T) {
	client := testValkeyClient(t)
	c := NewItemCache(client, time.Minute)
	ctx := context.Background()

	if !c.Set(ctx, "post", 2, []byte("v2")) {
		t.Fatal("first Set should store")
	}
	if c.Set(ctx, "post", 1, []byte("v1")) {
		t.Error("older version replaced a newer one")
	}
	if c.Set(ctx, "post", 2, []byte("v2-again")) {
		t.Error("same version should not be rewritten")
	}
	if got, _ := c.Get(ctx, "post"); string(got) != "v2" {
		t.Errorf("Get() = %q, want v2", got)
	}

	if !c.Set(ctx, "post", 3, []byte("v3")) {
		t.Error("newer version should replace the entry")
	}
	if got, _ := c.Get(ctx, "post"); string(got) != "v3" {
		t.Errorf("Get() = %q, want v3", got)
	}
}

func TestItemCacheForget(t *testing.T) {
	client := testValkeyClient(t)
	c := NewItemCache(client, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "gone", 4, []byte("v4"))
	c.Forget(ctx, "gone")

	if _, ok := c.Get(ctx, "gone"); ok {
		t.Error("forgotten item should read as a miss")
	}
	if c.Set(ctx, "gone", 4, []byte("v4")) {
		t.Error("a forgotten item must not be cached again")
	}
	if ttl := client.TTL(ctx, itemKeyPrefix+"gone").Val(); ttl <= 0 {
		t.Errorf("tombstone should expire, TTL %v", ttl)
	}
}

func TestWindowCounter(t *testing.T) {
	client := testValkeyClient(t)
	ctx := context.Background()
	key := "test-" + time.Now().Format("150405.000000000")
	t.Cleanup(func() { client.Del(ctx, rateKeyPrefix+key) })

	c := NewWindowCounter(client, 2, time.Minute)
	for i := 0; i < 2; i++ {
		ok, _, err := c.Allow(ctx, key)
		if err != nil || !ok {
			t.Fatalf("request %d: ok %v err %v", i+1, ok, err)
		}
	}

	ok, retry, err := c.Allow(ctx, key)
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if ok {
		t.Error("third request should be limited")
	}
	if retry <= 0 || retry > time.Minute {
		t.Errorf("retry after: got %s", retry)
	}

	if ok, _, _ := c.Allow(ctx, key+"-other"); !ok {
		t.Error("other keys have their own window")
	}
	client.Del(ctx, rateKeyPrefix+key+"-other")
}

func TestWindowCounterExpires(t *testing.T) {
	client := testValkeyClient(t)
	ctx := context.Background()
	key := "expire-" + time.Now().Format("150405.000000000")
	t.Cleanup(func() { client.Del(ctx, rateKeyPrefix+key) })

	c := NewWindowCounter(client, 1, 200*time.Millisecond)
	if ok, _, _ := c.Allow(ctx, key); !ok {
		t.Fatal("first request should pass")
	}
	if ok, _, _ := c.Allow(ctx, key); ok {
		t.Fatal("second request should be limited")
	}
	time.Sleep(300 * time.Millisecond)
	if ok, _, _ := c.Allow(ctx, key); !ok {
		t.Error("counter should reset after the window")
	}
}
