// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// geminiProvider implements Provider and ImageGenerator with the Gemini
// REST API (POST /v1beta/models/{model}:generateContent).
type geminiProvider struct {
	config ProviderConfig
	client *resty.Client
	images *resty.Client
}

func newGemini(cfg ProviderConfig) *geminiProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	return &geminiProvider{
		config: cfg,
		client: newRESTClient(cfg.BaseURL, 60*time.Second).SetHeader("x-goog-api-key", cfg.APIKey),
		images: newRESTClient(cfg.BaseURL, 120*time.Second).SetHeader("x-goog-api-key", cfg.APIKey),
	}
}

func (p *geminiProvider) Name() string { return "gemini" }

// Generate sends a generateContent request with the text model.
func (p *geminiProvider) Generate(ctx context.Context, req Request) (string, error) {
	body := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: req.Prompt}}}},
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	if req.JSON || req.MaxTokens > 0 {
		body.GenerationConfig = &geminiGenerationConfig{MaxOutputTokens: req.MaxTokens}
		if req.JSON {
			body.GenerationConfig.ResponseMimeType = "application/json"
		}
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(&body).
		SetPathParam("model", p.config.Model).
		Post("/v1beta/models/{model}:generateContent")

	var result geminiResponse
	if err := decodeReply("gemini", resp, err, &result); err != nil {
		return "", err
	}
	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("gemini: no candidates returned")
	}
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			return part.Text, nil
		}
	}
	return "", fmt.Errorf("gemini: no text in response")
}

// GenerateImage asks the image model for an IMAGE response and returns the
// first inline image part.
func (p *geminiProvider) GenerateImage(ctx context.Context, req ImageRequest) (*GeneratedImage, error) {
	if p.config.ModelImage == "" {
		return nil, fmt.Errorf("gemini: image generation requires GEMINI_MODEL_IMAGE to be set")
	}

	body := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: req.Prompt}}}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}
	if req.AspectRatio != "" {
		body.GenerationConfig.ImageConfig = &geminiImageConfig{AspectRatio: req.AspectRatio}
	}

	resp, err := p.images.R().
		SetContext(ctx).
		SetBody(&body).
		SetPathParam("model", p.config.ModelImage).
		Post("/v1beta/models/{model}:generateContent")

	var result geminiResponse
	if err := decodeReply("gemini image", resp, err, &result); err != nil {
		return nil, err
	}

	for _, c := range result.Candidates {
		for _, part := range c.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("gemini image decode base64: %w", err)
			}
			ct := part.InlineData.MimeType
			if ct == "" {
				ct = "image/png"
			}
			return &GeneratedImage{Data: data, ContentType: ct}, nil
		}
	}
	return nil, fmt.Errorf("gemini image: no image data in response")
}

// --- Gemini API types ---

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseMimeType   string             `json:"responseMimeType,omitempty"`
	ResponseModalities []string           `json:"responseModalities,omitempty"`
	MaxOutputTokens    int                `json:"maxOutputTokens,omitempty"`
	ImageConfig        *geminiImageConfig `json:"imageConfig,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"system_instruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}
