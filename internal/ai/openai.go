package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// openAIProvider talks to the OpenAI chat completions and image
// generation APIs. Mistral reuses the chat half.
type openAIProvider struct {
	name   string
	config ProviderConfig
	client *resty.Client
	images *resty.Client
}

func newOpenAI(cfg ProviderConfig) *openAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	return &openAIProvider{
		name:   "openai",
		config: cfg,
		client: newRESTClient(cfg.BaseURL, 60*time.Second).SetAuthToken(cfg.APIKey),
		images: newRESTClient(cfg.BaseURL, 120*time.Second).SetAuthToken(cfg.APIKey),
	}
}

func (p *openAIProvider) Name() string { return p.name }

// Generate sends a chat completion request and returns the assistant's reply.
func (p *openAIProvider) Generate(ctx context.Context, req Request) (string, error) {
	body := chatRequest{
		Model: p.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		MaxTokens: req.MaxTokens,
	}
	if req.JSON {
		body.ResponseFormat = &chatResponseFormat{Type: "json_object"}
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(&body).
		Post("/chat/completions")

	var result chatResponse
	if err := decodeReply(p.name, resp, err, &result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices returned", p.name)
	}
	return result.Choices[0].Message.Content, nil
}

// GenerateImage calls the images endpoint and returns the decoded PNG.
func (p *openAIProvider) GenerateImage(ctx context.Context, req ImageRequest) (*GeneratedImage, error) {
	if p.config.ModelImage == "" {
		return nil, fmt.Errorf("openai: image generation requires OPENAI_MODEL_IMAGE to be set")
	}

	body := openAIImageRequest{
		Model:          p.config.ModelImage,
		Prompt:         req.Prompt,
		N:              1,
		Size:           openAIImageSize(req.AspectRatio),
		ResponseFormat: "b64_json",
	}

	resp, err := p.images.R().
		SetContext(ctx).
		SetBody(&body).
		Post("/images/generations")

	var result openAIImageResponse
	if err := decodeReply("openai image", resp, err, &result); err != nil {
		return nil, err
	}
	if len(result.Data) == 0 || result.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("openai image: no image data in response")
	}

	data, err := base64.StdEncoding.DecodeString(result.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("openai image decode base64: %w", err)
	}
	return &GeneratedImage{Data: data, ContentType: "image/png"}, nil
}

// openAIImageSize maps an aspect ratio onto the sizes the images API
// accepts.
func openAIImageSize(aspect string) string {
	switch aspect {
	case "4:3", "16:9", "3:2":
		return "1792x1024"
	case "3:4", "9:16", "2:3":
		return "1024x1792"
	default:
		return "1024x1024"
	}
}

// --- OpenAI-compatible request/response types ---

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string              `json:"model"`
	Messages       []chatMessage       `json:"messages"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	ResponseFormat *chatResponseFormat `json:"response_format,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type openAIImageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

type openAIImageData struct {
	B64JSON string `json:"b64_json"`
}

type openAIImageResponse struct {
	Data []openAIImageData `json:"data"`
}
