// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// GoogleJWKSURL publishes the keys that sign Google ID tokens.
const GoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

// googleIssuers are the accepted values of the iss claim.
var googleIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

// ErrInvalidToken is wrapped by every verification failure.
var ErrInvalidToken = errors.New("auth: invalid id token")

// Identity is the verified content of a Google ID token.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

type googleClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Verifier checks Google ID tokens issued to one OAuth client.
type Verifier struct {
	keys     keyfunc.Keyfunc
	audience string
	issuers  []string
	leeway   time.Duration
}

// NewGoogleVerifier fetches Google's signing keys in the background and
// refreshes them every refresh interval. Startup does not fail when the
// first fetch does.
func NewGoogleVerifier(clientID string, timeout, refresh time.Duration) (*Verifier, error) {
	return newHTTPVerifier(GoogleJWKSURL, clientID, googleIssuers, timeout, refresh)
}

func newHTTPVerifier(jwksURL, audience string, issuers []string, timeout, refresh time.Duration) (*Verifier, error) {
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    &http.Client{Timeout: timeout},
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           refresh,
		RefreshErrorHandler: func(_ context.Context, err error) {
			slog.Error("jwks refresh failed", "url", jwksURL, "error", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("jwks storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("jwks keyfunc: %w", err)
	}
	return NewVerifier(k, audience, issuers), nil
}

// NewVerifier builds a Verifier around an existing key set.
func NewVerifier(k keyfunc.Keyfunc, audience string, issuers []string) *Verifier {
	return &Verifier{keys: k, audience: audience, issuers: issuers, leeway: 30 * time.Second}
}

// Verify checks the signature, expiry, audience and issuer of raw and
// returns the identity it carries. Unverified email addresses are rejected.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Identity, error) {
	claims := &googleClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, v.keys.KeyfuncCtx(ctx),
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(v.audience),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if !slices.Contains(v.issuers, claims.Issuer) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if claims.Email == "" || !claims.EmailVerified {
		return nil, fmt.Errorf("%w: email not verified", ErrInvalidToken)
	}

	return &Identity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}
