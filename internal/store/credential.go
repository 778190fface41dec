// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"presently/internal/models"
	"presently/internal/secret"
)

// CredentialStore keeps one OAuth token per user and provider. Access and
// refresh tokens are sealed before they are written.
type CredentialStore struct {
	db  *sql.DB
	box *secret.Box
}

// NewCredentialStore creates a CredentialStore that seals tokens with box.
func NewCredentialStore(db *sql.DB, box *secret.Box) *CredentialStore {
	return &CredentialStore{db: db, box: box}
}

// Put inserts or replaces the credential for (c.UserID, c.Provider).
func (s *CredentialStore) Put(ctx context.Context, c *models.Credential) error {
	access, err := s.box.Seal(c.AccessToken)
	if err != nil {
		return fmt.Errorf("seal access token: %w", err)
	}
	refresh, err := s.box.Seal(c.RefreshToken)
	if err != nil {
		return fmt.Errorf("seal refresh token: %w", err)
	}

	var expiry sql.NullTime
	if !c.Expiry.IsZero() {
		expiry = sql.NullTime{Time: c.Expiry, Valid: true}
	}

	// An empty refresh token keeps the stored one; providers only return
	// it on the first consent.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO credentials (user_id, provider, access_token, refresh_token, token_type, expiry, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id, provider) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    refresh_token = CASE WHEN EXCLUDED.refresh_token = '' THEN credentials.refresh_token
		                         ELSE EXCLUDED.refresh_token END,
		    token_type = EXCLUDED.token_type,
		    expiry = EXCLUDED.expiry,
		    updated_at = NOW()
	`, c.UserID, c.Provider, access, refresh, c.TokenType, expiry)
	if err != nil {
		return fmt.Errorf("put credential: %w", err)
	}
	return nil
}

// Get returns the credential for a user and provider. Returns nil if the
// user never connected that provider.
func (s *CredentialStore) Get(ctx context.Context, userID uuid.UUID, provider string) (*models.Credential, error) {
	c := &models.Credential{}
	var (
		access, refresh string
		expiry          sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, provider, access_token, refresh_token, token_type, expiry, updated_at
		FROM credentials WHERE user_id = $1 AND provider = $2
	`, userID, provider).Scan(
		&c.UserID, &c.Provider, &access, &refresh, &c.TokenType, &expiry, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}

	if c.AccessToken, err = s.box.Open(access); err != nil {
		return nil, fmt.Errorf("open access token: %w", err)
	}
	if c.RefreshToken, err = s.box.Open(refresh); err != nil {
		return nil, fmt.Errorf("open refresh token: %w", err)
	}
	if expiry.Valid {
		c.Expiry = expiry.Time
	}
	return c, nil
}

// Delete removes a stored credential. Missing credentials are not an error.
func (s *CredentialStore) Delete(ctx context.Context, userID uuid.UUID, provider string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE user_id = $1 AND provider = $2`, userID, provider)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}
