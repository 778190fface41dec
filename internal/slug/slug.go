// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug turns free text such as a theme interest into a short,
// URL-safe path segment.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength bounds the length of a generated slug.
const MaxLength = 60

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	separators      = regexp.MustCompile(`[\s_-]+`)
)

// Generate creates a slug from s. Accented letters are folded to ASCII
// ("Café Crème" becomes "cafe-creme") and the result is cut at a hyphen
// boundary when it exceeds MaxLength. It returns "" when nothing usable
// remains.
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(fold(s)))
	result = strings.ReplaceAll(result, "_", " ")
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = separators.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	return truncate(result)
}

// GenerateOr returns Generate(s), or fallback when s has no usable characters.
func GenerateOr(s, fallback string) string {
	if out := Generate(s); out != "" {
		return out
	}
	return fallback
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func truncate(s string) string {
	if len(s) <= MaxLength {
		return s
	}
	s = s[:MaxLength]
	if i := strings.LastIndexByte(s, '-'); i > 0 {
		s = s[:i]
	}
	return strings.Trim(s, "-")
}
