// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"presently/internal/markdown"
	"presently/internal/models"
)

// maxPinTags caps the hashtags kept from a reply.
const maxPinTags = 12

type textReply struct {
	BlogHTML       string   `json:"blogHtml"`
	PinDescription string   `json:"pinDescription"`
	PinTags        []string `json:"pinTags"`
}

// parseTextReply validates the JSON reply and normalizes each field.
func parseTextReply(reply string) (*models.GeneratedContent, error) {
	raw := extractJSON(stripCodeFences(reply))

	var r textReply
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	body, err := markdown.Article(strings.TrimSpace(r.BlogHTML))
	if err != nil {
		return nil, fmt.Errorf("%w: render body: %v", ErrMalformed, err)
	}
	if body == "" {
		return nil, fmt.Errorf("%w: empty blog body", ErrMalformed)
	}

	desc := markdown.PlainText(r.PinDescription)
	if desc == "" {
		return nil, fmt.Errorf("%w: empty pin description", ErrMalformed)
	}

	return &models.GeneratedContent{
		BlogBody:       body,
		PinDescription: desc,
		PinTags:        normalizeTags(r.PinTags),
	}, nil
}

// stripCodeFences removes a surrounding ```json ... ``` block.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.Index(s, "\n"); nl != -1 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// extractJSON cuts any prose around the outermost JSON object.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

// normalizeTags gives every tag a single leading '#' and removes inner
// whitespace. Order and repeats are kept as the model returned them.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimLeft(strings.TrimSpace(tag), "#")
		tag = strings.Join(strings.Fields(tag), "")
		if tag == "" {
			continue
		}
		out = append(out, "#"+tag)
		if len(out) == maxPinTags {
			break
		}
	}
	return out
}
