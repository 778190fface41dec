// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import "net/http"

// hstsValue pins HTTPS for a year once the API has been reached over TLS.
const hstsValue = "max-age=31536000; includeSubDomains"

// NewSecureHeaders adds security headers suited to a JSON API to every
// response. tls adds Strict-Transport-Security.
func NewSecureHeaders(tls bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return secureHeaders(next, tls)
	}
}

func secureHeaders(next http.Handler, tls bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if tls {
			h.Set("Strict-Transport-Security", hstsValue)
		}

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Permissions-Policy", "interest-cohort=()")

		// Responses carry per-user drafts.
		h.Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}
