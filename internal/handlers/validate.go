package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"presently/internal/models"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

// decodeBody reads a JSON body into v and returns a caller-facing message
// for the first problem found. An empty body decodes as {} when
// allowEmpty is set.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) string {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	err := dec.Decode(v)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		if allowEmpty {
			return ""
		}
		return "Request body is required."
	default:
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return "Request body is too large."
		}
		return "Request body is not valid JSON."
	}
	if dec.More() {
		return "Request body must contain a single JSON object."
	}
	return ""
}

// postID parses the {id} URL parameter.
func postID(r *http.Request) (uuid.UUID, string) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, "Invalid post id."
	}
	return id, ""
}

// listFilter parses status, limit and offset query parameters. Range
// clamping is left to the orchestrator.
func listFilter(q url.Values) (models.ContentFilter, string) {
	f := models.ContentFilter{Status: models.Status(q.Get("status"))}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, "limit must be an integer."
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, "offset must be an integer."
		}
		f.Offset = n
	}
	return f, ""
}
