// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"presently/internal/models"
)

var (
	// ErrConflict is returned by Save when the stored version has moved on
	// since the item was loaded.
	ErrConflict = errors.New("store: version conflict")

	// ErrNotFound is returned by mutations that target a missing record.
	ErrNotFound = errors.New("store: record not found")
)

// ContentStore persists content items as JSONB documents, one row per item.
// Status and created_at are copied into their own columns for filtering and
// ordering; the version column guards concurrent saves.
type ContentStore struct {
	db *sql.DB
}

// NewContentStore creates a new ContentStore with the given database connection.
func NewContentStore(db *sql.DB) *ContentStore {
	return &ContentStore{db: db}
}

// Get retrieves a content item by ID. Returns nil if not found.
func (s *ContentStore) Get(ctx context.Context, id uuid.UUID) (*models.ContentItem, error) {
	var (
		doc     []byte
		version int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT document, version FROM content_items WHERE id = $1
	`, id).Scan(&doc, &version)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get content item: %w", err)
	}
	return decodeItem(doc, version)
}

// List returns items matching the filter, newest first.
func (s *ContentStore) List(ctx context.Context, f models.ContentFilter) ([]*models.ContentItem, error) {
	f = f.Normalize()

	rows, err := s.db.QueryContext(ctx, `
		SELECT document, version FROM content_items
		WHERE ($1::text = '' OR status = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, string(f.Status), f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list content items: %w", err)
	}
	defer rows.Close()

	items := []*models.ContentItem{}
	for rows.Next() {
		var (
			doc     []byte
			version int64
		)
		if err := rows.Scan(&doc, &version); err != nil {
			return nil, fmt.Errorf("scan content item: %w", err)
		}
		item, err := decodeItem(doc, version)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Insert stores a new item. The item's Version is set to 1.
func (s *ContentStore) Insert(ctx context.Context, item *models.ContentItem) error {
	item.Version = 1
	doc, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode content item: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO content_items (id, status, owner_id, document, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, item.ID, item.Status, item.OwnerID, doc, item.Version, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert content item: %w", err)
	}
	return nil
}

// Save overwrites an existing item if its stored version still equals
// item.Version, then increments item.Version. A stale version yields
// ErrConflict; a missing row yields ErrNotFound.
func (s *ContentStore) Save(ctx context.Context, item *models.ContentItem) error {
	next := *item
	next.Version = item.Version + 1
	doc, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("encode content item: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE content_items
		SET status = $1, document = $2, version = $3, updated_at = $4
		WHERE id = $5 AND version = $6
	`, item.Status, doc, next.Version, item.UpdatedAt, item.ID, item.Version)
	if err != nil {
		return fmt.Errorf("save content item: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save content item: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM content_items WHERE id = $1)`, item.ID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("save content item: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrConflict
	}

	item.Version = next.Version
	return nil
}

// Delete removes an item. Returns ErrNotFound if no row matched.
func (s *ContentStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM content_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete content item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete content item: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// decodeItem parses a stored document. The version column is authoritative.
func decodeItem(doc []byte, version int64) (*models.ContentItem, error) {
	item := &models.ContentItem{}
	if err := json.Unmarshal(doc, item); err != nil {
		return nil, fmt.Errorf("decode content item: %w", err)
	}
	item.Version = version
	return item, nil
}
