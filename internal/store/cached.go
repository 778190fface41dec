// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"presently/internal/cache"
	"presently/internal/models"
)

// CachedContentStore reads single items through the Valkey item cache and
// writes every saved document back into it. Cache entries are versioned,
// so a fill from a read that raced a save never replaces the newer copy.
// Listings always hit PostgreSQL.
type CachedContentStore struct {
	*ContentStore
	cache *cache.ItemCache
}

// NewCachedContentStore wraps s with a versioned read-through cache.
func NewCachedContentStore(s *ContentStore, c *cache.ItemCache) *CachedContentStore {
	return &CachedContentStore{ContentStore: s, cache: c}
}

// Get returns the cached document when present, otherwise loads it from
// the database and fills the cache.
func (s *CachedContentStore) Get(ctx context.Context, id uuid.UUID) (*models.ContentItem, error) {
	key := id.String()
	if doc, ok := s.cache.Get(ctx, key); ok {
		item := &models.ContentItem{}
		if err := json.Unmarshal(doc, item); err == nil {
			return item, nil
		}
		slog.Warn("discarding undecodable cached item", "id", key)
		s.cache.Invalidate(ctx, key)
	}

	item, err := s.ContentStore.Get(ctx, id)
	if err != nil || item == nil {
		return item, err
	}
	s.fill(ctx, item)
	return item, nil
}

// Insert stores a new item and caches it.
func (s *CachedContentStore) Insert(ctx context.Context, item *models.ContentItem) error {
	if err := s.ContentStore.Insert(ctx, item); err != nil {
		return err
	}
	s.fill(ctx, item)
	return nil
}

// Save writes to the database and then caches the saved document. After
// a conflict the cache is refreshed from the database so the next read
// sees the winning version.
func (s *CachedContentStore) Save(ctx context.Context, item *models.ContentItem) error {
	err := s.ContentStore.Save(ctx, item)
	switch {
	case err == nil:
		s.fill(ctx, item)
	case errors.Is(err, ErrConflict):
		s.refresh(ctx, item.ID)
	case errors.Is(err, ErrNotFound):
		s.cache.Forget(ctx, item.ID.String())
	default:
		// The write may or may not have landed.
		s.cache.Invalidate(ctx, item.ID.String())
	}
	return err
}

// Delete removes the row and leaves a tombstone in the cache.
func (s *CachedContentStore) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.ContentStore.Delete(ctx, id)
	if err == nil || errors.Is(err, ErrNotFound) {
		s.cache.Forget(ctx, id.String())
	} else {
		s.cache.Invalidate(ctx, id.String())
	}
	return err
}

func (s *CachedContentStore) fill(ctx context.Context, item *models.ContentItem) {
	doc, err := json.Marshal(item)
	if err != nil {
		slog.Warn("encode item for cache", "id", item.ID, "error", err)
		return
	}
	s.cache.Set(ctx, item.ID.String(), item.Version, doc)
}

func (s *CachedContentStore) refresh(ctx context.Context, id uuid.UUID) {
	current, err := s.ContentStore.Get(ctx, id)
	switch {
	case err != nil:
		s.cache.Invalidate(ctx, id.String())
	case current == nil:
		s.cache.Forget(ctx, id.String())
	default:
		s.fill(ctx, current)
	}
}
