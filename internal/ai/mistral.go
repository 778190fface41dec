// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"time"
)

// mistralProvider uses Mistral's OpenAI-compatible chat completions API.
// It has no image generation.
type mistralProvider struct {
	chat *openAIProvider
}

func newMistral(cfg ProviderConfig) *mistralProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mistral.ai/v1"
	}
	return &mistralProvider{
		chat: &openAIProvider{
			name:   "mistral",
			config: cfg,
			client: newRESTClient(cfg.BaseURL, 60*time.Second).SetAuthToken(cfg.APIKey),
		},
	}
}

func (p *mistralProvider) Name() string { return "mistral" }

func (p *mistralProvider) Generate(ctx context.Context, req Request) (string, error) {
	return p.chat.Generate(ctx, req)
}
