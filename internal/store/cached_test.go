package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"presently/internal/cache"
)

func testItemCache(t *testing.T) *cache.ItemCache {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:     envOr("VALKEY_HOST", "localhost") + ":" + envOr("VALKEY_PORT", "6379"),
		Password: os.Getenv("VALKEY_PASSWORD"),
		DB:       15,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return cache.NewItemCache(client, time.Minute)
}

func TestCachedContentStoreReadThrough(t *testing.T) {
	db := testDB(t)
	ic := testItemCache(t)
	owner := testUser(t, db, "cached@store-test.local")
	s := NewCachedContentStore(NewContentStore(db), ic)
	ctx := context.Background()

	item := newItem(owner.ID)
	if err := s.Insert(ctx, item); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	t.Cleanup(func() { ic.Invalidate(ctx, item.ID.String()) })

	if _, err := s.Get(ctx, item.ID); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, ok := ic.Get(ctx, item.ID.String()); !ok {
		t.Fatal("Get should fill the cache")
	}

	item.Title = "Cached update"
	if err := s.Save(ctx, item); err != nil {
		t.Fatalf("Save: %v", err)
	}
	doc, ok := ic.Get(ctx, item.ID.String())
	if !ok {
		t.Fatal("Save should write the saved document to the cache")
	}
	var cached struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(doc, &cached); err != nil || cached.Version != 2 {
		t.Errorf("cached version: got %d (%v), want 2", cached.Version, err)
	}

	got, err := s.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get after Save: %v", err)
	}
	if got.Title != "Cached update" || got.Version != 2 {
		t.Errorf("read-your-writes: title %q version %d", got.Title, got.Version)
	}

	if err := s.Delete(ctx, item.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, err := s.Get(ctx, item.ID); err != nil || got != nil {
		t.Errorf("Get after Delete: %+v, %v", got, err)
	}
}

// TestCachedContentStoreLateFillAfterSave interleaves a reader that loaded
// version 1 from PostgreSQL with a writer that saves version 2 before the
// reader fills the cache.
func TestCachedContentStoreLateFillAfterSave(t *testing.T) {
	db := testDB(t)
	ic := testItemCache(t)
	owner := testUser(t, db, "late-fill@store-test.local")
	plain := NewContentStore(db)
	s := NewCachedContentStore(plain, ic)
	ctx := context.Background()

	item := newItem(owner.ID)
	if err := plain.Insert(ctx, item); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	t.Cleanup(func() { ic.Invalidate(ctx, item.ID.String()) })

	// Reader misses the cache and loads version 1.
	stale, err := plain.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	// Writer moves the item to version 2.
	fresh := stale.Clone()
	fresh.Title = "Saved while a read was in flight"
	if err := s.Save(ctx, fresh); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Reader now fills the cache with what it loaded.
	doc, _ := json.Marshal(stale)
	if ic.Set(ctx, item.ID.String(), stale.Version, doc) {
		t.Error("an older version must not replace the cached document")
	}

	got, err := s.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Version != 2 || got.Title != fresh.Title {
		t.Errorf("read-your-writes: got version %d title %q", got.Version, got.Title)
	}
}

func TestCachedContentStoreConflictRefreshesCache(t *testing.T) {
	db := testDB(t)
	ic := testItemCache(t)
	owner := testUser(t, db, "conflict-cache@store-test.local")
	s := NewCachedContentStore(NewContentStore(db), ic)
	ctx := context.Background()

	item := newItem(owner.ID)
	if err := s.Insert(ctx, item); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	t.Cleanup(func() { ic.Invalidate(ctx, item.ID.String()) })

	first := item.Clone()
	second := item.Clone()
	first.Title = "first writer"
	if err := s.Save(ctx, first); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	second.Title = "second writer"
	if err := s.Save(ctx, second); !errors.Is(err, ErrConflict) {
		t.Fatalf("second Save: got %v, want ErrConflict", err)
	}

	got, err := s.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "first writer" || got.Version != 2 {
		t.Errorf("got title %q version %d, want the winning write", got.Title, got.Version)
	}
}

func TestCachedContentStoreDeleteBlocksLateFill(t *testing.T) {
	db := testDB(t)
	ic := testItemCache(t)
	owner := testUser(t, db, "late-delete@store-test.local")
	plain := NewContentStore(db)
	s := NewCachedContentStore(plain, ic)
	ctx := context.Background()

	item := newItem(owner.ID)
	if err := plain.Insert(ctx, item); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	t.Cleanup(func() { ic.Invalidate(ctx, item.ID.String()) })

	stale, err := plain.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := s.Delete(ctx, item.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	doc, _ := json.Marshal(stale)
	if ic.Set(ctx, item.ID.String(), stale.Version, doc) {
		t.Error("a deleted item must not be cached again")
	}
	if got, err := s.Get(ctx, item.ID); err != nil || got != nil {
		t.Errorf("Get after Delete: %+v, %v", got, err)
	}
}
