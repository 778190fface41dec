// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generation

import (
	"fmt"
	"strings"

	"presently/internal/models"
)

// ImageAspectRatio is requested for every product image.
const ImageAspectRatio = "4:3"

const textSystemPrompt = `You are an experienced gift-guide editor who writes SEO-friendly blog articles and Pinterest copy.

Rules:
- Reply with a single JSON object and nothing else.
- Do NOT wrap the reply in code fences.
- Write in a friendly, informative tone that encourages buying.`

func textPrompt(t models.Theme) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write an SEO-optimised blog article about gift ideas for %s lovers for the occasion %s.\n\n", t.Interest, t.Occasion)
	fmt.Fprintf(&b, "Audience: %s\n", t.AgeGroup)
	fmt.Fprintf(&b, "Budget: %s\n", t.BudgetRange)
	fmt.Fprintf(&b, "Style: %s\n", t.Style)
	if t.Profession != "" {
		fmt.Fprintf(&b, "Profession: %s\n", t.Profession)
	}
	if t.Notes != "" {
		fmt.Fprintf(&b, "Additional notes: %s\n", t.Notes)
	}
	b.WriteString(`
Structure the article as follows:
1. Introduction with an emotional hook (2-3 sentences)
2. 5-7 concrete gift ideas, each with a short description
3. Buying advice and tips
4. A short conclusion

Format the article as HTML using h1, h2 and p tags.

Also write:
- A Pinterest pin description (2-3 sentences, emotional, with a call to action)
- 8-12 relevant Pinterest hashtags

Reply in this JSON format:
{
  "blogHtml": "...",
  "pinDescription": "...",
  "pinTags": ["#tag1", "#tag2"]
}`)
	return b.String()
}

func imagePrompt(t models.Theme) string {
	return fmt.Sprintf(`Professional product photography showing gift ideas for %s enthusiasts.
Style: %s, occasion: %s, budget range: %s.
Composition: Flat lay or arranged display on clean white background.
Lighting: Soft, natural lighting. High quality, Pinterest-ready image.
No text overlays, focus on products only.`, t.Interest, t.Style, t.Occasion, t.BudgetRange)
}

// themeText joins the free-text theme fields for moderation.
func themeText(t models.Theme) string {
	parts := make([]string, 0, 7)
	for _, v := range []string{t.Occasion, t.Interest, t.AgeGroup, t.BudgetRange, t.Style, t.Profession, t.Notes} {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "\n")
}
