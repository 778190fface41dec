// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"presently/internal/models"
)

// CredentialStore persists the OAuth tokens a user granted.
type CredentialStore interface {
	Get(ctx context.Context, userID uuid.UUID, provider string) (*models.Credential, error)
	Put(ctx context.Context, c *models.Credential) error
}

// Connections hands out token sources for the providers a user connected.
type Connections struct {
	creds   CredentialStore
	configs map[string]*oauth2.Config
}

// NewConnections creates Connections for the given provider configs. A nil
// config marks that provider as unavailable.
func NewConnections(creds CredentialStore, google, pinterest *oauth2.Config) *Connections {
	configs := map[string]*oauth2.Config{}
	if google != nil {
		configs[models.ProviderGoogle] = google
	}
	if pinterest != nil {
		configs[models.ProviderPinterest] = pinterest
	}
	return &Connections{creds: creds, configs: configs}
}

// TokenSource returns a refreshing token source for the user's credential.
// It returns nil without error when the provider is not configured or the
// user never connected it. Refreshed tokens are written back to the store.
func (c *Connections) TokenSource(ctx context.Context, userID uuid.UUID, provider string) (oauth2.TokenSource, error) {
	cfg := c.configs[provider]
	if cfg == nil {
		return nil, nil
	}

	cred, err := c.creds.Get(ctx, userID, provider)
	if err != nil {
		return nil, fmt.Errorf("load %s credential: %w", provider, err)
	}
	if cred == nil {
		return nil, nil
	}

	save := func(ctx context.Context, t *oauth2.Token) error {
		return c.creds.Put(ctx, TokenCredential(userID, provider, t))
	}
	return TokenSource(ctx, cfg, CredentialToken(cred), save), nil
}

// Connected reports which providers the user has a stored credential for.
func (c *Connections) Connected(ctx context.Context, userID uuid.UUID) (map[string]bool, error) {
	out := make(map[string]bool, 2)
	for _, p := range []string{models.ProviderGoogle, models.ProviderPinterest} {
		if c.configs[p] == nil {
			continue
		}
		cred, err := c.creds.Get(ctx, userID, p)
		if err != nil {
			return nil, fmt.Errorf("load %s credential: %w", p, err)
		}
		out[p] = cred != nil
	}
	return out, nil
}
