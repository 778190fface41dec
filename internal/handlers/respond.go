// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the JSON API and the OAuth sign-in flows.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"presently/internal/pipeline"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps an orchestrator error kind to its HTTP status.
func statusFor(kind pipeline.Kind) int {
	switch kind {
	case pipeline.KindNotFound:
		return http.StatusNotFound
	case pipeline.KindUnauthorized:
		return http.StatusUnauthorized
	case pipeline.KindForbidden:
		return http.StatusForbidden
	case pipeline.KindPrecondition, pipeline.KindInvalid:
		return http.StatusBadRequest
	case pipeline.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writePipelineError logs err and writes its caller-facing message.
func writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(pipeline.KindOf(err))
	attrs := []any{"error", err, "method", r.Method, "path", r.URL.Path}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", attrs...)
	} else {
		slog.Info("request rejected", attrs...)
	}
	writeError(w, status, pipeline.Message(err))
}
