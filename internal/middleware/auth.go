// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"presently/internal/auth"
	"presently/internal/models"
	"presently/internal/pipeline"
	"presently/internal/session"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// SessionKey is the context key for the session data.
	SessionKey contextKey = "session"

	// ActorKey is the context key for the resolved pipeline actor.
	ActorKey contextKey = "actor"
)

// Sessions loads the browser session for a request.
type Sessions interface {
	Get(ctx context.Context, r *http.Request) (*session.Data, error)
}

// TokenVerifier checks a Google ID token.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*auth.Identity, error)
}

// UserFinder resolves the local user behind a session or a Google account.
type UserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*models.User, error)
}

// Authenticate resolves the actor for a request. A request with an
// Authorization header must carry a valid Google ID token of a known user
// and is answered with 401 otherwise; the session cookie is ignored for it.
// Without the header the session, if any, is used; its user is reloaded so
// role changes apply to live sessions. Requests with neither continue
// anonymously.
func Authenticate(sessions Sessions, verifier TokenVerifier, users UserFinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if header := r.Header.Get("Authorization"); header != "" {
				raw, ok := bearerToken(header)
				if !ok || verifier == nil {
					writeError(w, http.StatusUnauthorized, "invalid authorization header")
					return
				}
				id, err := verifier.Verify(ctx, raw)
				if err != nil {
					slog.Warn("id token rejected", "error", err, "remote", r.RemoteAddr)
					writeError(w, http.StatusUnauthorized, "invalid token")
					return
				}
				user, err := users.FindByGoogleID(ctx, id.Subject)
				if err != nil {
					slog.Error("user lookup failed", "error", err)
					writeError(w, http.StatusInternalServerError, "internal error")
					return
				}
				if user == nil {
					writeError(w, http.StatusUnauthorized, "unknown user, sign in through the browser first")
					return
				}
				actor := pipeline.ActorFromUser(user)
				setLogActor(ctx, actor.Label())
				ctx = context.WithValue(ctx, ActorKey, actor)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			data, err := sessions.Get(ctx, r)
			if err != nil {
				// Treated as anonymous.
				slog.Warn("session load failed", "error", err)
			}
			if data != nil {
				user, err := users.FindByID(ctx, data.UserID)
				if err != nil {
					slog.Error("session user lookup failed", "error", err, "user", data.UserID)
					writeError(w, http.StatusInternalServerError, "internal error")
					return
				}
				if user == nil {
					slog.Warn("session for a removed user", "user", data.UserID)
				} else {
					actor := pipeline.ActorFromUser(user)
					setLogActor(ctx, actor.Label())
					ctx = context.WithValue(ctx, SessionKey, data)
					ctx = context.WithValue(ctx, ActorKey, actor)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireActor answers 401 for requests without an authenticated actor.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ActorFromCtx(r.Context()).Valid() {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSession redirects requests without a browser session to the
// Google sign-in page.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromCtx(r.Context()) == nil {
			http.Redirect(w, r, "/auth/google/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionFromCtx returns the session loaded for the request, or nil.
func SessionFromCtx(ctx context.Context) *session.Data {
	data, _ := ctx.Value(SessionKey).(*session.Data)
	return data
}

// ActorFromCtx returns the resolved actor. The zero Actor is returned for
// anonymous requests.
func ActorFromCtx(ctx context.Context) pipeline.Actor {
	a, _ := ctx.Value(ActorKey).(pipeline.Actor)
	return a
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
