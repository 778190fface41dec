// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package pipeline drives a content item through its lifecycle:
//
//	new → text_generated → image_generated → approved → published_to_blog → published_to_both
//
// Each transition loads the record, checks its precondition, calls at most
// one external gateway, then saves a modified copy with one new audit
// entry. A failed gateway call or a failed save leaves the stored record
// exactly as it was.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"presently/internal/generation"
	"presently/internal/metrics"
	"presently/internal/models"
	"presently/internal/publishing"
	"presently/internal/store"
)

// Store persists content items. Get returns nil, nil for a missing id.
// Save must fail with store.ErrConflict when the stored version differs
// from item.Version and must increment item.Version on success.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*models.ContentItem, error)
	List(ctx context.Context, f models.ContentFilter) ([]*models.ContentItem, error)
	Insert(ctx context.Context, item *models.ContentItem) error
	Save(ctx context.Context, item *models.ContentItem) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Generator drafts text and images from a theme.
type Generator interface {
	GenerateText(ctx context.Context, theme models.Theme) (*models.GeneratedContent, error)
	GenerateImage(ctx context.Context, theme models.Theme) (*models.Image, error)
}

// Assets removes stored image files.
type Assets interface {
	DeleteImage(ctx context.Context, url string) error
}

// BlogPublisher creates blog posts.
type BlogPublisher interface {
	PublishPost(ctx context.Context, ts oauth2.TokenSource, post publishing.BlogPost) (*publishing.Result, error)
}

// PinPublisher creates pins.
type PinPublisher interface {
	CreatePin(ctx context.Context, ts oauth2.TokenSource, pin publishing.Pin) (*publishing.Result, error)
}

// Deps are the collaborators of an Orchestrator. Blog and Pin may be nil
// when the platform is not configured.
type Deps struct {
	Store      Store
	Generator  Generator
	Assets     Assets
	Blog       BlogPublisher
	Pin        PinPublisher
	PinBoardID string
	Now        func() time.Time
}

// Orchestrator owns every status change of a content item.
type Orchestrator struct {
	store     Store
	generator Generator
	assets    Assets
	blog      BlogPublisher
	pin       PinPublisher
	boardID   string
	now       func() time.Time
}

// New creates an Orchestrator.
func New(d Deps) *Orchestrator {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		store:     d.Store,
		generator: d.Generator,
		assets:    d.Assets,
		blog:      d.Blog,
		pin:       d.Pin,
		boardID:   d.PinBoardID,
		now:       now,
	}
}

// Field limits for user input.
const (
	maxTitleLen = 200
	maxFieldLen = 100
	maxNotesLen = 1000
)

// Create validates the input and stores a new item in status new.
func (o *Orchestrator) Create(ctx context.Context, actor Actor, title string, theme models.Theme) (item *models.ContentItem, err error) {
	const op = "create"
	defer func() { observe(op, err) }()

	if !actor.Valid() {
		return nil, unauthorized(op)
	}
	title = strings.TrimSpace(title)
	theme = trimTheme(theme)
	if err := validateTitle(title); err != nil {
		return nil, newError(KindInvalid, op, nil, "%s", err)
	}
	if err := validateTheme(theme); err != nil {
		return nil, newError(KindInvalid, op, nil, "%s", err)
	}

	ts := o.now().UTC()
	item = &models.ContentItem{
		ID:        uuid.New(),
		Title:     title,
		Status:    models.StatusNew,
		OwnerID:   actor.ID,
		Theme:     theme,
		AuditLog:  []models.AuditEntry{{Action: models.ActionCreated, Actor: actor.Label(), Timestamp: ts}},
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if err := item.CheckInvariants(); err != nil {
		return nil, newError(KindStore, op, err, "refusing to save an inconsistent record")
	}
	if err := o.store.Insert(ctx, item); err != nil {
		return nil, newError(KindStore, op, err, "could not save the post")
	}

	slog.Info("content item created", "id", item.ID, "actor", actor.Label())
	return item, nil
}

// Get returns one item.
func (o *Orchestrator) Get(ctx context.Context, id uuid.UUID) (*models.ContentItem, error) {
	return o.load(ctx, "get", id)
}

// List returns items matching f, newest first, together with the filter
// that was actually applied.
func (o *Orchestrator) List(ctx context.Context, f models.ContentFilter) ([]*models.ContentItem, models.ContentFilter, error) {
	f = f.Normalize()
	if f.Status != "" && !f.Status.Valid() {
		return nil, f, newError(KindInvalid, "list", nil, "unknown status %q, expected one of %v", f.Status, models.Statuses())
	}
	items, err := o.store.List(ctx, f)
	if err != nil {
		return nil, f, newError(KindStore, "list", err, "could not load posts")
	}
	if items == nil {
		items = []*models.ContentItem{}
	}
	return items, f, nil
}

// UpdateTitle renames an item that has not been published yet. It is not a
// status transition but is still audited.
func (o *Orchestrator) UpdateTitle(ctx context.Context, actor Actor, id uuid.UUID, title string) (item *models.ContentItem, err error) {
	const op = "update_title"
	defer func() { observe(op, err) }()

	if !actor.Valid() {
		return nil, unauthorized(op)
	}
	title = strings.TrimSpace(title)
	if err := validateTitle(title); err != nil {
		return nil, newError(KindInvalid, op, nil, "%s", err)
	}

	cur, err := o.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if cur.Status.AtLeast(models.StatusPublishedBlog) {
		return nil, newError(KindPrecondition, op, nil, "the title cannot change after publishing (status %s)", cur.Status)
	}
	if cur.Title == title {
		return cur, nil
	}

	next := cur.Clone()
	next.Title = title
	return o.commit(ctx, op, next, actor, o.stamp(cur), models.ActionTitleUpdated, map[string]string{"from": cur.Title, "to": title})
}

// Delete removes the item and its image. The image goes first so a failed
// removal leaves a record the caller can delete again.
func (o *Orchestrator) Delete(ctx context.Context, actor Actor, id uuid.UUID) (err error) {
	const op = "delete"
	defer func() { observe(op, err) }()

	if !actor.Valid() {
		return unauthorized(op)
	}
	cur, err := o.load(ctx, op, id)
	if err != nil {
		return err
	}

	if cur.Image != nil && o.assets != nil {
		if err := o.assets.DeleteImage(ctx, cur.Image.URL); err != nil {
			slog.Error("image removal failed", "id", id, "url", cur.Image.URL, "error", err)
			return newError(KindStore, op, err, "could not remove the post image")
		}
	}
	if err := o.store.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return newError(KindNotFound, op, err, "post not found")
		}
		return newError(KindStore, op, err, "could not delete the post")
	}

	slog.Info("content item deleted", "id", id, "actor", actor.Label())
	return nil
}

// GenerateText moves new → text_generated.
func (o *Orchestrator) GenerateText(ctx context.Context, actor Actor, id uuid.UUID) (item *models.ContentItem, err error) {
	const op = "generate_text"
	defer func() { observe(op, err) }()

	cur, err := o.begin(ctx, op, actor, id, models.StatusNew)
	if err != nil {
		return nil, err
	}
	if o.generator == nil {
		return nil, newError(KindPrecondition, op, nil, "text generation is not configured")
	}

	start := time.Now()
	content, err := o.generator.GenerateText(ctx, cur.Theme)
	metrics.ObserveGateway("generate_text", start, err)
	if err == nil && content == nil {
		err = fmt.Errorf("%w: no content", generation.ErrMalformed)
	}
	if err != nil {
		return nil, generationError(op, id, err)
	}

	next := cur.Clone()
	next.Generated = content
	next.Status = models.StatusTextGenerated
	return o.commit(ctx, op, next, actor, o.stamp(cur), models.ActionTextGenerated, nil)
}

// GenerateImage moves text_generated → image_generated.
func (o *Orchestrator) GenerateImage(ctx context.Context, actor Actor, id uuid.UUID) (item *models.ContentItem, err error) {
	const op = "generate_image"
	defer func() { observe(op, err) }()

	cur, err := o.begin(ctx, op, actor, id, models.StatusTextGenerated)
	if err != nil {
		return nil, err
	}
	if o.generator == nil {
		return nil, newError(KindPrecondition, op, nil, "image generation is not configured")
	}

	start := time.Now()
	img, err := o.generator.GenerateImage(ctx, cur.Theme)
	metrics.ObserveGateway("generate_image", start, err)
	if err == nil && img == nil {
		err = fmt.Errorf("%w: no image", generation.ErrMalformed)
	}
	if err != nil {
		return nil, generationError(op, id, err)
	}

	next := cur.Clone()
	next.Image = img
	next.Status = models.StatusImageGenerated
	item, err = o.commit(ctx, op, next, actor, o.stamp(cur), models.ActionImageGenerated, map[string]string{"url": img.URL})
	if err != nil && o.assets != nil {
		// The upload is orphaned when the record could not be saved.
		if derr := o.assets.DeleteImage(context.WithoutCancel(ctx), img.URL); derr != nil {
			slog.Warn("orphaned image not removed", "url", img.URL, "error", derr)
		}
	}
	return item, err
}

// Approve moves image_generated → approved. Only reviewers and admins may
// approve.
func (o *Orchestrator) Approve(ctx context.Context, actor Actor, id uuid.UUID, comment string) (item *models.ContentItem, err error) {
	const op = "approve"
	defer func() { observe(op, err) }()

	if actor.Valid() && !actor.CanReview() {
		return nil, newError(KindForbidden, op, nil, "only reviewers can approve posts")
	}
	cur, err := o.begin(ctx, op, actor, id, models.StatusImageGenerated)
	if err != nil {
		return nil, err
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > maxNotesLen {
		return nil, newError(KindInvalid, op, nil, "comment must be at most %d characters", maxNotesLen)
	}

	ts := o.stamp(cur)
	next := cur.Clone()
	next.Approval = &models.Approval{ApprovedBy: actor.Label(), ApprovedAt: ts, Comment: comment}
	next.Status = models.StatusApproved
	var details map[string]string
	if comment != "" {
		details = map[string]string{"comment": comment}
	}
	return o.commit(ctx, op, next, actor, ts, models.ActionApproved, details)
}

// PublishToBlog moves approved → published_to_blog using the actor's
// Google credential.
func (o *Orchestrator) PublishToBlog(ctx context.Context, actor Actor, id uuid.UUID, cred oauth2.TokenSource) (item *models.ContentItem, err error) {
	const op = "publish_blog"
	defer func() { observe(op, err) }()

	cur, err := o.begin(ctx, op, actor, id, models.StatusApproved)
	if err != nil {
		return nil, err
	}
	if cur.Generated == nil || strings.TrimSpace(cur.Generated.BlogBody) == "" {
		return nil, newError(KindPrecondition, op, nil, "the post has no blog body")
	}
	if o.blog == nil {
		return nil, newError(KindPrecondition, op, nil, "blog publishing is not configured")
	}
	if cred == nil {
		return nil, newError(KindPrecondition, op, nil, "connect your Google account first")
	}

	start := time.Now()
	res, err := o.blog.PublishPost(ctx, cred, publishing.BlogPost{
		Title:  cur.Title,
		Body:   blogBody(cur),
		Labels: cur.Generated.PinTags,
	})
	metrics.ObserveGateway("blogger", start, err)
	if err != nil {
		return nil, publishError(op, id, "Blogger", "Google", err)
	}

	ts := o.stamp(cur)
	next := cur.Clone()
	next.Publishing.Blog = &models.Publication{ExternalURL: res.URL, ExternalID: res.ID, PublishedAt: ts}
	next.Status = models.StatusPublishedBlog
	return o.commit(ctx, op, next, actor, ts, models.ActionPublishedBlog, map[string]string{"url": res.URL})
}

// PublishToPin moves published_to_blog → published_to_both. The pin links
// to the blog post.
func (o *Orchestrator) PublishToPin(ctx context.Context, actor Actor, id uuid.UUID, cred oauth2.TokenSource) (item *models.ContentItem, err error) {
	const op = "publish_pin"
	defer func() { observe(op, err) }()

	cur, err := o.begin(ctx, op, actor, id, models.StatusPublishedBlog)
	if err != nil {
		return nil, err
	}
	if cur.Publishing.Blog == nil || cur.Publishing.Blog.ExternalURL == "" {
		return nil, newError(KindPrecondition, op, nil, "publish the blog post first")
	}
	if cur.Image == nil {
		return nil, newError(KindPrecondition, op, nil, "the post has no image")
	}
	if o.pin == nil || o.boardID == "" {
		return nil, newError(KindPrecondition, op, nil, "Pinterest publishing is not configured")
	}
	if cred == nil {
		return nil, newError(KindPrecondition, op, nil, "connect your Pinterest account first")
	}

	start := time.Now()
	res, err := o.pin.CreatePin(ctx, cred, publishing.Pin{
		BoardID:     o.boardID,
		ImageURL:    cur.Image.URL,
		Description: cur.Generated.PinDescription,
		Link:        cur.Publishing.Blog.ExternalURL,
		Title:       cur.Title,
		AltText:     cur.Image.AltText,
	})
	metrics.ObserveGateway("pinterest", start, err)
	if err != nil {
		return nil, publishError(op, id, "Pinterest", "Pinterest", err)
	}

	ts := o.stamp(cur)
	next := cur.Clone()
	next.Publishing.Pin = &models.Publication{ExternalURL: res.URL, ExternalID: res.ID, PublishedAt: ts}
	next.Status = models.StatusPublishedToBoth
	return o.commit(ctx, op, next, actor, ts, models.ActionPublishedPin, map[string]string{"url": res.URL})
}

// load fetches an item, mapping absence to KindNotFound.
func (o *Orchestrator) load(ctx context.Context, op string, id uuid.UUID) (*models.ContentItem, error) {
	item, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, newError(KindStore, op, err, "could not load the post")
	}
	if item == nil {
		return nil, newError(KindNotFound, op, nil, "post not found")
	}
	return item, nil
}

// begin authenticates the actor, loads the item and checks that it is in
// status want.
func (o *Orchestrator) begin(ctx context.Context, op string, actor Actor, id uuid.UUID, want models.Status) (*models.ContentItem, error) {
	if !actor.Valid() {
		return nil, unauthorized(op)
	}
	cur, err := o.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if cur.Status != want {
		return nil, newError(KindPrecondition, op, nil, "post is %s, expected %s", cur.Status, want)
	}
	return cur, nil
}

// stamp returns the transition time: now, but never earlier than the last
// audit entry.
func (o *Orchestrator) stamp(item *models.ContentItem) time.Time {
	ts := o.now().UTC()
	if last := item.LastAudit(); last != nil && ts.Before(last.Timestamp) {
		ts = last.Timestamp
	}
	return ts
}

// commit appends the audit entry stamped ts, validates and saves next.
func (o *Orchestrator) commit(ctx context.Context, op string, next *models.ContentItem, actor Actor, ts time.Time, action string, details map[string]string) (*models.ContentItem, error) {
	next.AuditLog = append(next.AuditLog, models.AuditEntry{
		Action:    action,
		Actor:     actor.Label(),
		Timestamp: ts,
		Details:   details,
	})
	next.UpdatedAt = ts

	if err := next.CheckInvariants(); err != nil {
		slog.Error("transition produced an inconsistent record", "op", op, "id", next.ID, "error", err)
		return nil, newError(KindStore, op, err, "refusing to save an inconsistent record")
	}

	if err := o.store.Save(ctx, next); err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			return nil, newError(KindConflict, op, err, "the post was changed by someone else, reload and try again")
		case errors.Is(err, store.ErrNotFound):
			return nil, newError(KindNotFound, op, err, "post not found")
		default:
			return nil, newError(KindStore, op, err, "could not save the post")
		}
	}

	slog.Info("content item transition", "op", op, "id", next.ID, "status", next.Status, "actor", actor.Label())
	return next, nil
}

func unauthorized(op string) *Error {
	return newError(KindUnauthorized, op, nil, "sign in required")
}

func generationError(op string, id uuid.UUID, err error) *Error {
	slog.Error("generation failed", "op", op, "id", id, "error", err)

	var flagged *generation.FlaggedError
	if errors.As(err, &flagged) {
		return newError(KindInvalid, op, err, "the theme was flagged by moderation (%s), please rephrase it",
			strings.Join(flagged.Categories, ", "))
	}
	if errors.Is(err, generation.ErrMalformed) {
		return newError(KindGeneration, op, err, "the AI reply could not be used, try again")
	}
	return newError(KindGeneration, op, err, "generation failed")
}

func publishError(op string, id uuid.UUID, platform, account string, err error) *Error {
	slog.Error("publishing failed", "op", op, "id", id, "platform", platform, "error", err)

	if errors.Is(err, publishing.ErrNoToken) {
		return newError(KindPrecondition, op, err, "connect your %s account first", account)
	}
	var pe *publishing.Error
	if errors.As(err, &pe) && pe.Status != 0 {
		return newError(KindPublish, op, err, "%s rejected the request (status %d)", platform, pe.Status)
	}
	return newError(KindPublish, op, err, "%s could not be reached", platform)
}

// observe counts an operation by its outcome.
func observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	metrics.ObserveTransition(op, outcome)
}

// blogBody places the product image above the article.
func blogBody(item *models.ContentItem) string {
	if item.Image == nil {
		return item.Generated.BlogBody
	}
	return fmt.Sprintf(`<p><img src="%s" alt="%s"></p>%s`,
		htmlAttr(item.Image.URL), htmlAttr(item.Image.AltText), item.Generated.BlogBody)
}
