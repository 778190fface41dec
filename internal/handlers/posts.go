// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"presently/internal/middleware"
	"presently/internal/models"
	"presently/internal/pipeline"
)

// Lifecycle is the set of orchestrator operations the API exposes.
type Lifecycle interface {
	Create(ctx context.Context, actor pipeline.Actor, title string, theme models.Theme) (*models.ContentItem, error)
	Get(ctx context.Context, id uuid.UUID) (*models.ContentItem, error)
	List(ctx context.Context, f models.ContentFilter) ([]*models.ContentItem, models.ContentFilter, error)
	UpdateTitle(ctx context.Context, actor pipeline.Actor, id uuid.UUID, title string) (*models.ContentItem, error)
	Delete(ctx context.Context, actor pipeline.Actor, id uuid.UUID) error
	GenerateText(ctx context.Context, actor pipeline.Actor, id uuid.UUID) (*models.ContentItem, error)
	GenerateImage(ctx context.Context, actor pipeline.Actor, id uuid.UUID) (*models.ContentItem, error)
	Approve(ctx context.Context, actor pipeline.Actor, id uuid.UUID, comment string) (*models.ContentItem, error)
	PublishToBlog(ctx context.Context, actor pipeline.Actor, id uuid.UUID, cred oauth2.TokenSource) (*models.ContentItem, error)
	PublishToPin(ctx context.Context, actor pipeline.Actor, id uuid.UUID, cred oauth2.TokenSource) (*models.ContentItem, error)
}

// TokenSources returns the actor's credential for a provider, or nil when
// the actor has not connected it.
type TokenSources interface {
	TokenSource(ctx context.Context, userID uuid.UUID, provider string) (oauth2.TokenSource, error)
	Connected(ctx context.Context, userID uuid.UUID) (map[string]bool, error)
}

// Posts serves the /api/posts resource.
type Posts struct {
	life   Lifecycle
	tokens TokenSources
}

// NewPosts creates the posts handler group.
func NewPosts(life Lifecycle, tokens TokenSources) *Posts {
	return &Posts{life: life, tokens: tokens}
}

type createRequest struct {
	Title       string `json:"title"`
	Occasion    string `json:"occasion"`
	Interest    string `json:"interest"`
	AgeGroup    string `json:"ageGroup"`
	BudgetRange string `json:"budgetRange"`
	Style       string `json:"style"`
	Profession  string `json:"profession"`
	Notes       string `json:"notes"`
}

type postResponse struct {
	Success bool                `json:"success"`
	Post    *models.ContentItem `json:"post"`
}

type listResponse struct {
	Success bool                  `json:"success"`
	Posts   []*models.ContentItem `json:"posts"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
}

// List handles GET /api/posts.
func (p *Posts) List(w http.ResponseWriter, r *http.Request) {
	f, msg := listFilter(r.URL.Query())
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	items, applied, err := p.life.List(r.Context(), f)
	if err != nil {
		writePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Success: true, Posts: items, Limit: applied.Limit, Offset: applied.Offset})
}

// Create handles POST /api/posts.
func (p *Posts) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if msg := decodeBody(w, r, &req, false); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	item, err := p.life.Create(r.Context(), middleware.ActorFromCtx(r.Context()), req.Title, models.Theme{
		Occasion:    req.Occasion,
		Interest:    req.Interest,
		AgeGroup:    req.AgeGroup,
		BudgetRange: req.BudgetRange,
		Style:       req.Style,
		Profession:  req.Profession,
		Notes:       req.Notes,
	})
	p.respond(w, r, http.StatusCreated, item, err)
}

// Get handles GET /api/posts/{id}.
func (p *Posts) Get(w http.ResponseWriter, r *http.Request) {
	id, msg := postID(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	item, err := p.life.Get(r.Context(), id)
	p.respond(w, r, http.StatusOK, item, err)
}

// Update handles PUT /api/posts/{id}. Only the title is editable.
func (p *Posts) Update(w http.ResponseWriter, r *http.Request) {
	id, msg := postID(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	var req struct {
		Title *string `json:"title"`
	}
	if msg := decodeBody(w, r, &req, false); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if req.Title == nil {
		writeError(w, http.StatusBadRequest, "title is required.")
		return
	}
	item, err := p.life.UpdateTitle(r.Context(), middleware.ActorFromCtx(r.Context()), id, *req.Title)
	p.respond(w, r, http.StatusOK, item, err)
}

// Delete handles DELETE /api/posts/{id}.
func (p *Posts) Delete(w http.ResponseWriter, r *http.Request) {
	id, msg := postID(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if err := p.life.Delete(r.Context(), middleware.ActorFromCtx(r.Context()), id); err != nil {
		writePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GenerateText handles POST /api/posts/{id}/generate-text.
func (p *Posts) GenerateText(w http.ResponseWriter, r *http.Request) {
	p.transition(w, r, p.life.GenerateText)
}

// GenerateImage handles POST /api/posts/{id}/generate-image.
func (p *Posts) GenerateImage(w http.ResponseWriter, r *http.Request) {
	p.transition(w, r, p.life.GenerateImage)
}

// Approve handles POST /api/posts/{id}/approve with an optional comment.
func (p *Posts) Approve(w http.ResponseWriter, r *http.Request) {
	id, msg := postID(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	var req struct {
		Comment string `json:"comment"`
	}
	if msg := decodeBody(w, r, &req, true); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	item, err := p.life.Approve(r.Context(), middleware.ActorFromCtx(r.Context()), id, req.Comment)
	p.respond(w, r, http.StatusOK, item, err)
}

// PublishBlogger handles POST /api/posts/{id}/publish/blogger.
func (p *Posts) PublishBlogger(w http.ResponseWriter, r *http.Request) {
	p.publish(w, r, models.ProviderGoogle, p.life.PublishToBlog)
}

// PublishPinterest handles POST /api/posts/{id}/publish/pinterest.
func (p *Posts) PublishPinterest(w http.ResponseWriter, r *http.Request) {
	p.publish(w, r, models.ProviderPinterest, p.life.PublishToPin)
}

// Me handles GET /api/me: the signed-in user, the CSRF token for cookie
// clients and which providers are connected.
func (p *Posts) Me(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	connected, err := p.tokens.Connected(r.Context(), actor.ID)
	if err != nil {
		slog.Error("load connections", "error", err, "user", actor.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user": map[string]any{
			"id":    actor.ID,
			"email": actor.Email,
			"role":  actor.Role,
		},
		"connections": connected,
		"csrfToken":   middleware.CSRFTokenFromCtx(r.Context()),
	})
}

type transitionFunc func(ctx context.Context, actor pipeline.Actor, id uuid.UUID) (*models.ContentItem, error)

func (p *Posts) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	id, msg := postID(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	item, err := fn(r.Context(), middleware.ActorFromCtx(r.Context()), id)
	p.respond(w, r, http.StatusOK, item, err)
}

type publishFunc func(ctx context.Context, actor pipeline.Actor, id uuid.UUID, cred oauth2.TokenSource) (*models.ContentItem, error)

func (p *Posts) publish(w http.ResponseWriter, r *http.Request, provider string, fn publishFunc) {
	id, msg := postID(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	actor := middleware.ActorFromCtx(r.Context())

	ts, err := p.tokens.TokenSource(r.Context(), actor.ID, provider)
	if err != nil {
		slog.Error("load credential", "error", err, "provider", provider, "user", actor.ID)
		writeError(w, http.StatusInternalServerError, "could not load your account connection")
		return
	}
	// A nil source is reported by the orchestrator as a missing connection.
	item, err := fn(r.Context(), actor, id, ts)
	p.respond(w, r, http.StatusOK, item, err)
}

func (p *Posts) respond(w http.ResponseWriter, r *http.Request, status int, item *models.ContentItem, err error) {
	if err != nil {
		writePipelineError(w, r, err)
		return
	}
	writeJSON(w, status, postResponse{Success: true, Post: item})
}
