// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"fmt"
)

// ImageRequest describes one image to generate.
type ImageRequest struct {
	Prompt      string
	AspectRatio string // e.g. "4:3"; providers pick the nearest size they support
}

// GeneratedImage is the raw output of an image model.
type GeneratedImage struct {
	Data        []byte
	ContentType string // e.g. "image/png"
}

// ImageGenerator is implemented by providers that can create images.
// Claude and Mistral are text-only.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (*GeneratedImage, error)
}

// GenerateImage calls the active provider's image generation if supported.
func (r *Registry) GenerateImage(ctx context.Context, req ImageRequest) (*GeneratedImage, error) {
	p, err := r.Active()
	if err != nil {
		return nil, err
	}

	ig, ok := p.(ImageGenerator)
	if !ok {
		return nil, fmt.Errorf("ai: provider %q does not support image generation", p.Name())
	}
	return ig.GenerateImage(ctx, req)
}

// SupportsImageGeneration returns true if the active provider can generate images.
func (r *Registry) SupportsImageGeneration() bool {
	p, err := r.Active()
	if err != nil {
		return false
	}
	_, ok := p.(ImageGenerator)
	return ok
}
