// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const claudeDefaultMaxTokens = 4096

// claudeProvider implements the Provider interface using the Anthropic
// Messages API (POST /v1/messages).
type claudeProvider struct {
	config ProviderConfig
	client *resty.Client
}

func newClaude(cfg ProviderConfig) *claudeProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	client := newRESTClient(cfg.BaseURL, 60*time.Second).
		SetHeader("x-api-key", cfg.APIKey).
		SetHeader("anthropic-version", "2023-06-01")
	return &claudeProvider{config: cfg, client: client}
}

func (p *claudeProvider) Name() string { return "claude" }

// Generate sends one user message. The Messages API has no JSON mode, so a
// JSON request prefills the reply with "{" and restores it afterwards.
func (p *claudeProvider) Generate(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = claudeDefaultMaxTokens
	}

	body := claudeRequest{
		Model:     p.config.Model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages:  []claudeMessage{{Role: "user", Content: req.Prompt}},
	}
	if req.JSON {
		body.Messages = append(body.Messages, claudeMessage{Role: "assistant", Content: "{"})
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(&body).
		Post("/v1/messages")

	var result claudeResponse
	if err := decodeReply("claude", resp, err, &result); err != nil {
		return "", err
	}

	for _, block := range result.Content {
		if block.Type == "text" {
			if req.JSON {
				return "{" + block.Text, nil
			}
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("claude: no text content in response")
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type claudeResponse struct {
	Content []claudeContentBlock `json:"content"`
}
