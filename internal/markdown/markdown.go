// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package markdown normalizes generated article bodies into safe HTML.
// Models answer in HTML most of the time and in Markdown the rest; both
// shapes pass through the same sanitizer before they are stored.
package markdown

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Typographer),
	goldmark.WithRendererOptions(
		html.WithUnsafe(), // raw HTML is cleaned by the sanitizer afterwards
	),
)

var (
	// article keeps the structural tags a blog post needs and drops scripts,
	// styles, event handlers and iframes.
	article = newArticlePolicy()
	// plain strips every tag.
	plain = bluemonday.StrictPolicy()

	htmlTag    = regexp.MustCompile(`(?i)<(h[1-6]|p|ul|ol|li|div|article|section)[\s>]`)
	whitespace = regexp.MustCompile(`\s+`)
)

func newArticlePolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("article", "section", "figure", "figcaption")
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// ToHTML converts Markdown source into HTML without sanitizing it.
func ToHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// LooksLikeHTML reports whether s already contains block-level HTML.
func LooksLikeHTML(s string) bool {
	return htmlTag.MatchString(s)
}

// Sanitize removes anything unsafe from an HTML fragment.
func Sanitize(fragment string) string {
	return strings.TrimSpace(article.Sanitize(fragment))
}

// Article returns a sanitized HTML body for body, converting it from
// Markdown first when it does not already look like HTML.
func Article(body string) (string, error) {
	if !LooksLikeHTML(body) {
		converted, err := ToHTML(body)
		if err != nil {
			return "", err
		}
		body = converted
	}
	return Sanitize(body), nil
}

// PlainText strips all markup and collapses whitespace.
func PlainText(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(plain.Sanitize(s), " "))
}
