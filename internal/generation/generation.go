// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package generation drafts the blog article, pin copy and product image
// for a gift theme. It owns the prompts and turns raw model output into
// validated content.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"presently/internal/ai"
	"presently/internal/imaging"
	"presently/internal/models"
	"presently/internal/slug"
)

// ErrMalformed is wrapped when the model reply cannot be used.
var ErrMalformed = errors.New("generation: malformed model output")

// FlaggedError is returned when moderation rejects the theme text.
type FlaggedError struct {
	Categories []string
}

func (e *FlaggedError) Error() string {
	return "generation: theme flagged by moderation: " + strings.Join(e.Categories, ", ")
}

// Models is the subset of *ai.Registry the service calls.
type Models interface {
	Generate(ctx context.Context, req ai.Request) (string, error)
	GenerateImage(ctx context.Context, req ai.ImageRequest) (*ai.GeneratedImage, error)
	CheckPrompt(ctx context.Context, text string) (*ai.ModerationResult, error)
}

// ObjectStore persists generated images and serves them publicly.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
	DeleteURL(ctx context.Context, url string) error
}

// Service implements text and image generation for content items.
type Service struct {
	models Models
	assets ObjectStore
	image  imaging.Options
	now    func() time.Time
}

// New creates a Service. assets may be nil, in which case GenerateImage
// fails because there is nowhere to keep the file.
func New(m Models, assets ObjectStore, image imaging.Options) *Service {
	return &Service{models: m, assets: assets, image: image, now: time.Now}
}

// GenerateText drafts the blog body, pin description and pin tags.
func (s *Service) GenerateText(ctx context.Context, theme models.Theme) (*models.GeneratedContent, error) {
	if err := s.moderate(ctx, theme); err != nil {
		return nil, err
	}

	reply, err := s.models.Generate(ctx, ai.Request{
		System:    textSystemPrompt,
		Prompt:    textPrompt(theme),
		JSON:      true,
		MaxTokens: 4096,
	})
	if err != nil {
		return nil, fmt.Errorf("generate text: %w", err)
	}

	out, err := parseTextReply(reply)
	if err != nil {
		slog.Error("unusable text generation reply", "error", err, "reply_len", len(reply))
		return nil, err
	}
	return out, nil
}

// GenerateImage creates the product photo, uploads it and returns its
// public reference.
func (s *Service) GenerateImage(ctx context.Context, theme models.Theme) (*models.Image, error) {
	if s.assets == nil {
		return nil, errors.New("generate image: object storage is not configured")
	}
	if err := s.moderate(ctx, theme); err != nil {
		return nil, err
	}

	img, err := s.models.GenerateImage(ctx, ai.ImageRequest{
		Prompt:      imagePrompt(theme),
		AspectRatio: ImageAspectRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}
	if img == nil || len(img.Data) == 0 {
		return nil, fmt.Errorf("generate image: %w: empty image", ErrMalformed)
	}

	enc, err := imaging.Encode(img.Data, img.ContentType, s.image)
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}

	key := imageKey(s.now(), theme.Interest, enc.Ext)
	url, err := s.assets.Upload(ctx, key, enc.ContentType, enc.Data)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	slog.Info("image generated", "key", key, "bytes", len(enc.Data), "content_type", enc.ContentType)
	return &models.Image{URL: url, AltText: AltText(theme)}, nil
}

// DeleteImage removes a previously uploaded image. Foreign URLs are ignored.
func (s *Service) DeleteImage(ctx context.Context, url string) error {
	if s.assets == nil || url == "" {
		return nil
	}
	if err := s.assets.DeleteURL(ctx, url); err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}

// moderate checks the user-supplied theme text. A failing moderation API
// lets the request through; providers still apply their own filters.
func (s *Service) moderate(ctx context.Context, theme models.Theme) error {
	text := themeText(theme)
	if text == "" {
		return nil
	}
	res, err := s.models.CheckPrompt(ctx, text)
	if err != nil {
		slog.Warn("moderation check failed, allowing theme", "error", err)
		return nil
	}
	if res.Safe {
		return nil
	}
	slog.Warn("theme flagged by moderation", "categories", strings.Join(res.Categories, ", "))
	return &FlaggedError{Categories: res.Categories}
}

// imageKey builds images/<yyyy>/<mm>/<unix>-<interest>.<ext>.
func imageKey(now time.Time, interest, ext string) string {
	now = now.UTC()
	return fmt.Sprintf("images/%04d/%02d/%d-%s.%s",
		now.Year(), int(now.Month()), now.Unix(), slug.GenerateOr(interest, "gift"), ext)
}

// AltText is the accessible description stored with the image.
func AltText(theme models.Theme) string {
	return fmt.Sprintf("Gift ideas for %s lovers", strings.TrimSpace(theme.Interest))
}
