package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"presently/internal/auth"
	"presently/internal/middleware"
	"presently/internal/models"
	"presently/internal/session"
)

const (
	// stateCookie binds an OAuth round trip to the browser that started it.
	stateCookie = "presently_oauth_state"

	afterLogin = "/api/me"
)

// SessionWriter creates and destroys browser sessions.
type SessionWriter interface {
	Create(ctx context.Context, w http.ResponseWriter, data *session.Data) (string, error)
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// StateStore remembers pending OAuth logins.
type StateStore interface {
	Put(ctx context.Context, p *auth.PendingLogin) (string, error)
	Take(ctx context.Context, state string) (*auth.PendingLogin, error)
}

// IDTokenVerifier checks the id_token returned by Google.
type IDTokenVerifier interface {
	Verify(ctx context.Context, raw string) (*auth.Identity, error)
}

// UserUpserter records a Google sign-in.
type UserUpserter interface {
	UpsertGoogle(ctx context.Context, googleID, email, name string, avatarURL *string) (*models.User, error)
}

// CredentialWriter stores provider tokens.
type CredentialWriter interface {
	Put(ctx context.Context, c *models.Credential) error
}

// Auth groups the sign-in and account connection handlers.
type Auth struct {
	sessions  SessionWriter
	states    StateStore
	google    *oauth2.Config
	pinterest *oauth2.Config
	verifier  IDTokenVerifier
	users     UserUpserter
	creds     CredentialWriter
	secure    bool
}

// AuthDeps collects the Auth dependencies. Pinterest may be nil when the
// integration is not configured.
type AuthDeps struct {
	Sessions  SessionWriter
	States    StateStore
	Google    *oauth2.Config
	Pinterest *oauth2.Config
	Verifier  IDTokenVerifier
	Users     UserUpserter
	Creds     CredentialWriter
	Secure    bool
}

// NewAuth creates the Auth handler group.
func NewAuth(d AuthDeps) *Auth {
	return &Auth{
		sessions:  d.Sessions,
		states:    d.States,
		google:    d.Google,
		pinterest: d.Pinterest,
		verifier:  d.Verifier,
		users:     d.Users,
		creds:     d.Creds,
		secure:    d.Secure,
	}
}

// GoogleLogin starts the Google consent flow with PKCE. Offline access is
// requested so Blogger publishing keeps working after the access token
// expires.
func (a *Auth) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	verifier := oauth2.GenerateVerifier()
	state, err := a.states.Put(r.Context(), &auth.PendingLogin{
		Provider: models.ProviderGoogle,
		Verifier: verifier,
		ReturnTo: safeReturn(r.URL.Query().Get("return_to")),
	})
	if err != nil {
		slog.Error("store oauth state", "error", err)
		writeError(w, http.StatusInternalServerError, "could not start sign-in")
		return
	}
	a.setStateCookie(w, state)

	url := a.google.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.S256ChallengeOption(verifier),
	)
	http.Redirect(w, r, url, http.StatusFound)
}

// GoogleCallback completes sign-in: it verifies the ID token, records the
// user and their Blogger token, then opens a session.
func (a *Auth) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pending, code, ok := a.callback(w, r, models.ProviderGoogle)
	if !ok {
		return
	}

	tok, err := a.google.Exchange(ctx, code, oauth2.VerifierOption(pending.Verifier))
	if err != nil {
		slog.Warn("google code exchange failed", "error", err)
		writeError(w, http.StatusBadGateway, "Google sign-in failed")
		return
	}
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		writeError(w, http.StatusBadGateway, "Google did not return an identity")
		return
	}
	id, err := a.verifier.Verify(ctx, raw)
	if err != nil {
		slog.Warn("google id token rejected", "error", err)
		writeError(w, http.StatusUnauthorized, "Google identity could not be verified")
		return
	}

	var avatar *string
	if id.Picture != "" {
		avatar = &id.Picture
	}
	user, err := a.users.UpsertGoogle(ctx, id.Subject, id.Email, id.Name, avatar)
	if err != nil {
		slog.Error("upsert google user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := a.creds.Put(ctx, auth.TokenCredential(user.ID, models.ProviderGoogle, tok)); err != nil {
		slog.Error("store google credential", "error", err, "user", user.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if _, err := a.sessions.Create(ctx, w, &session.Data{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
	}); err != nil {
		slog.Error("create session", "error", err, "user", user.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("user signed in", "user", user.ID, "email", user.Email, "role", user.Role)
	http.Redirect(w, r, orDefault(pending.ReturnTo, afterLogin), http.StatusSeeOther)
}

// PinterestLogin connects the signed-in user's Pinterest account.
func (a *Auth) PinterestLogin(w http.ResponseWriter, r *http.Request) {
	if a.pinterest == nil {
		writeError(w, http.StatusNotFound, "Pinterest is not configured")
		return
	}
	sess := middleware.SessionFromCtx(r.Context())

	state, err := a.states.Put(r.Context(), &auth.PendingLogin{
		Provider: models.ProviderPinterest,
		UserID:   sess.UserID,
		ReturnTo: safeReturn(r.URL.Query().Get("return_to")),
	})
	if err != nil {
		slog.Error("store oauth state", "error", err)
		writeError(w, http.StatusInternalServerError, "could not start Pinterest connection")
		return
	}
	a.setStateCookie(w, state)
	http.Redirect(w, r, a.pinterest.AuthCodeURL(state), http.StatusFound)
}

// PinterestCallback stores the Pinterest token for the signed-in user.
func (a *Auth) PinterestCallback(w http.ResponseWriter, r *http.Request) {
	if a.pinterest == nil {
		writeError(w, http.StatusNotFound, "Pinterest is not configured")
		return
	}
	ctx := r.Context()
	sess := middleware.SessionFromCtx(ctx)

	pending, code, ok := a.callback(w, r, models.ProviderPinterest)
	if !ok {
		return
	}
	if pending.UserID != sess.UserID {
		writeError(w, http.StatusBadRequest, "sign-in state belongs to another session")
		return
	}

	tok, err := a.pinterest.Exchange(ctx, code)
	if err != nil {
		slog.Warn("pinterest code exchange failed", "error", err)
		writeError(w, http.StatusBadGateway, "Pinterest connection failed")
		return
	}
	if err := a.creds.Put(ctx, auth.TokenCredential(sess.UserID, models.ProviderPinterest, tok)); err != nil {
		slog.Error("store pinterest credential", "error", err, "user", sess.UserID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("pinterest connected", "user", sess.UserID)
	http.Redirect(w, r, orDefault(pending.ReturnTo, afterLogin), http.StatusSeeOther)
}

// Logout destroys the session.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Error("destroy session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// callback validates the provider redirect and consumes the stored state.
// It writes the error response itself and reports ok=false on failure.
func (a *Auth) callback(w http.ResponseWriter, r *http.Request, provider string) (*auth.PendingLogin, string, bool) {
	q := r.URL.Query()
	a.clearStateCookie(w)

	if e := q.Get("error"); e != "" {
		slog.Info("oauth consent denied", "provider", provider, "error", e)
		writeError(w, http.StatusBadRequest, "authorization was denied")
		return nil, "", false
	}

	state, code := q.Get("state"), q.Get("code")
	cookie, err := r.Cookie(stateCookie)
	if err != nil || state == "" || cookie.Value != state {
		writeError(w, http.StatusBadRequest, "sign-in state mismatch, please try again")
		return nil, "", false
	}
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return nil, "", false
	}

	pending, err := a.states.Take(r.Context(), state)
	if errors.Is(err, auth.ErrStateNotFound) {
		writeError(w, http.StatusBadRequest, "sign-in expired, please try again")
		return nil, "", false
	}
	if err != nil {
		slog.Error("load oauth state", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, "", false
	}
	if pending.Provider != provider {
		writeError(w, http.StatusBadRequest, "sign-in state mismatch, please try again")
		return nil, "", false
	}
	return pending, code, true
}

func (a *Auth) setStateCookie(w http.ResponseWriter, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(auth.StateTTL.Seconds()),
	})
}

func (a *Auth) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    "",
		Path:     "/auth",
		HttpOnly: true,
		Secure:   a.secure,
		MaxAge:   -1,
	})
}

// safeReturn accepts only local absolute paths as redirect targets.
func safeReturn(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return ""
	}
	return p
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

