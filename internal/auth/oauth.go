// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package auth implements delegated sign-in. Google identifies the user
// and grants Blogger access; Pinterest grants pin access. The tokens are
// kept per user and turned back into refreshing token sources when a post
// is published.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"presently/internal/models"
)

// BloggerScope grants read and write access to the user's blogs.
const BloggerScope = "https://www.googleapis.com/auth/blogger"

// PinterestEndpoint is the Pinterest v5 OAuth endpoint.
var PinterestEndpoint = oauth2.Endpoint{
	AuthURL:   "https://www.pinterest.com/oauth/",
	TokenURL:  "https://api.pinterest.com/v5/oauth/token",
	AuthStyle: oauth2.AuthStyleInHeader,
}

// GoogleConfig builds the OAuth client used for sign-in and Blogger.
// baseURL is the public address of this service.
func GoogleConfig(clientID, clientSecret, baseURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     endpoints.Google,
		RedirectURL:  baseURL + "/auth/google/callback",
		Scopes:       []string{"openid", "email", "profile", BloggerScope},
	}
}

// PinterestConfig builds the OAuth client used for pin publishing.
func PinterestConfig(appID, appSecret, baseURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     appID,
		ClientSecret: appSecret,
		Endpoint:     PinterestEndpoint,
		RedirectURL:  baseURL + "/auth/pinterest/callback",
		Scopes:       []string{"boards:read", "pins:read", "pins:write", "user_accounts:read"},
	}
}

// NewState returns a random value for the OAuth state parameter.
func NewState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CredentialToken converts a stored credential into an OAuth token.
func CredentialToken(c *models.Credential) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Expiry:       c.Expiry,
	}
}

// TokenCredential converts an OAuth token into a credential for storage.
func TokenCredential(userID uuid.UUID, provider string, t *oauth2.Token) *models.Credential {
	return &models.Credential{
		UserID:       userID,
		Provider:     provider,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.Type(),
		Expiry:       t.Expiry,
	}
}

// SaveFunc persists a refreshed token.
type SaveFunc func(ctx context.Context, t *oauth2.Token) error

// TokenSource returns a source that refreshes tok through cfg and calls save
// whenever a new access token is issued. A failed save is logged; the new
// token is still returned.
func TokenSource(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token, save SaveFunc) oauth2.TokenSource {
	return &savingSource{
		ctx:  ctx,
		base: cfg.TokenSource(ctx, tok),
		last: tok.AccessToken,
		save: save,
	}
}

type savingSource struct {
	ctx  context.Context
	base oauth2.TokenSource
	save SaveFunc

	mu   sync.Mutex
	last string
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	t, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	changed := t.AccessToken != s.last
	s.last = t.AccessToken
	s.mu.Unlock()

	if changed && s.save != nil {
		if err := s.save(s.ctx, t); err != nil {
			slog.Warn("refreshed token not saved", "error", err)
		}
	}
	return t, nil
}
