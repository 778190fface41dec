// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package ai provides a unified interface for interacting with multiple
// LLM providers (OpenAI, Gemini, Claude, Mistral). Each provider implements
// the Provider interface, and the Registry selects the active one by name.
package ai

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrNoProvider is returned when the active provider has no API key.
var ErrNoProvider = errors.New("ai: no provider configured")

// Request is a single text generation call.
type Request struct {
	System    string // model behaviour
	Prompt    string // the user's request
	JSON      bool   // ask for a single JSON object as the whole reply
	MaxTokens int    // 0 means the provider default
}

// Provider defines the interface that all AI providers must implement.
// Each provider handles its own HTTP communication and response parsing.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)

	// Name returns the provider identifier (e.g., "openai", "gemini").
	Name() string
}

// ProviderConfig holds the credentials and settings for a single provider.
type ProviderConfig struct {
	APIKey     string
	Model      string
	ModelImage string // empty for text-only providers
	BaseURL    string
}

// Registry holds the configured AI providers and the active one. It is
// not modified after NewRegistry, so it is safe for concurrent use.
type Registry struct {
	providers map[string]Provider
	active    string
	moderator Moderator // nil if no moderation API is available
}

// NewRegistry creates a registry and initialises providers for every config
// that has a non-empty API key. A Moderator is configured from the OpenAI
// and Mistral keys when present, OpenAI first.
func NewRegistry(active string, configs map[string]ProviderConfig) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		active:    active,
	}

	for name, cfg := range configs {
		if cfg.APIKey == "" {
			continue
		}
		switch name {
		case "openai":
			r.providers[name] = newOpenAI(cfg)
		case "gemini":
			r.providers[name] = newGemini(cfg)
		case "claude":
			r.providers[name] = newClaude(cfg)
		case "mistral":
			r.providers[name] = newMistral(cfg)
		}
	}

	var mods []Moderator
	if c := configs["openai"]; c.APIKey != "" {
		mods = append(mods, newOpenAIModerator(c.APIKey, c.BaseURL))
	}
	if c := configs["mistral"]; c.APIKey != "" {
		mods = append(mods, newMistralModerator(c.APIKey, c.BaseURL))
	}
	switch len(mods) {
	case 0:
	case 1:
		r.moderator = mods[0]
	default:
		r.moderator = &fallbackModerator{chain: mods}
	}

	return r
}

// Generate calls the active provider.
func (r *Registry) Generate(ctx context.Context, req Request) (string, error) {
	p, err := r.Active()
	if err != nil {
		return "", err
	}
	return p.Generate(ctx, req)
}

// Active returns the currently active provider.
func (r *Registry) Active() (Provider, error) {
	p, ok := r.providers[r.active]
	if !ok {
		return nil, fmt.Errorf("%w for %q", ErrNoProvider, r.active)
	}
	return p, nil
}

// ActiveName returns the name of the currently active provider.
func (r *Registry) ActiveName() string {
	return r.active
}

// Available returns the sorted names of all providers with API keys.
func (r *Registry) Available() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckPrompt runs text through the moderation API. With no moderator
// configured every prompt is reported safe; providers still apply their
// own safety filters.
func (r *Registry) CheckPrompt(ctx context.Context, text string) (*ModerationResult, error) {
	if r.moderator == nil {
		return &ModerationResult{Safe: true}, nil
	}
	return r.moderator.CheckSafety(ctx, text)
}
