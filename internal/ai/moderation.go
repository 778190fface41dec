// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ModerationResult contains the outcome of a prompt safety check.
type ModerationResult struct {
	Safe       bool     // true if the prompt passes moderation
	Categories []string // flagged category names, sorted (empty when safe)
}

// Moderator checks user-supplied text for policy violations before it is
// sent to a generation endpoint.
type Moderator interface {
	CheckSafety(ctx context.Context, text string) (*ModerationResult, error)
}

// moderationAPI covers the OpenAI and Mistral moderation endpoints, which
// share a request shape and differ only in the flag they report.
type moderationAPI struct {
	name   string
	model  string
	path   string
	client *resty.Client
}

// newOpenAIModerator uses OpenAI's free moderation endpoint.
func newOpenAIModerator(apiKey, baseURL string) *moderationAPI {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &moderationAPI{
		name:   "openai moderation",
		model:  "omni-moderation-latest",
		path:   "/moderations",
		client: newRESTClient(baseURL, 15*time.Second).SetAuthToken(apiKey),
	}
}

// newMistralModerator uses Mistral's moderation endpoint. baseURL is the
// chat base URL (ending in /v1).
func newMistralModerator(apiKey, baseURL string) *moderationAPI {
	if baseURL == "" {
		baseURL = "https://api.mistral.ai/v1"
	}
	return &moderationAPI{
		name:   "mistral moderation",
		model:  "mistral-moderation-latest",
		path:   "/moderations",
		client: newRESTClient(baseURL, 15*time.Second).SetAuthToken(apiKey),
	}
}

func (m *moderationAPI) CheckSafety(ctx context.Context, text string) (*ModerationResult, error) {
	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(moderationRequest{Model: m.model, Input: text}).
		Post(m.path)

	var result moderationResponse
	if err := decodeReply(m.name, resp, err, &result); err != nil {
		return nil, err
	}
	if len(result.Results) == 0 {
		return &ModerationResult{Safe: true}, nil
	}

	var flagged []string
	for cat, on := range result.Results[0].Categories {
		if on {
			flagged = append(flagged, categoryLabel(cat))
		}
	}
	sort.Strings(flagged)

	return &ModerationResult{
		Safe:       len(flagged) == 0 && !result.Results[0].Flagged,
		Categories: flagged,
	}, nil
}

// categoryLabel turns "hate/threatening" into "hate (threatening)" and
// "self_harm" into "self harm".
func categoryLabel(cat string) string {
	label := cat
	if i := strings.Index(label, "/"); i >= 0 {
		label = label[:i] + " (" + label[i+1:] + ")"
	}
	return strings.ReplaceAll(label, "_", " ")
}

// fallbackModerator tries each moderator in turn, moving on when one
// rejects its credentials. Other failures are returned as is.
type fallbackModerator struct {
	chain []Moderator
}

func (f *fallbackModerator) CheckSafety(ctx context.Context, text string) (*ModerationResult, error) {
	var lastErr error
	for _, m := range f.chain {
		res, err := m.CheckSafety(ctx, text)
		if err == nil {
			return res, nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) &&
			(apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
			slog.Warn("moderator rejected credentials, trying next", "moderator", apiErr.Provider)
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

type moderationRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type moderationResult struct {
	Flagged    bool            `json:"flagged"`
	Categories map[string]bool `json:"categories"`
}

type moderationResponse struct {
	Results []moderationResult `json:"results"`
}
