// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package publishing sends approved content to the external platforms:
// Google Blogger for the article and Pinterest for the pin. Each call is
// made once with the signed-in user's OAuth token; failures are reported,
// never retried.
package publishing

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
)

// DefaultTimeout bounds a single publish request.
const DefaultTimeout = 30 * time.Second

// maxErrorBody limits how much of a failed reply is kept in an Error.
const maxErrorBody = 512

// ErrNoToken is returned when the caller has no usable OAuth token.
var ErrNoToken = errors.New("publishing: no access token")

// Result identifies the created resource on the remote platform.
type Result struct {
	URL string
	ID  string
}

// Error describes a failed publish call. Status is 0 for transport errors.
type Error struct {
	Platform string
	Status   int
	Body     string
	Err      error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: request failed: %v", e.Platform, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Platform, e.Status, e.Body)
}

func (e *Error) Unwrap() error { return e.Err }

func newClient(baseURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)
}

// accessToken resolves a token from ts, refreshing it when it has expired.
func accessToken(platform string, ts oauth2.TokenSource) (string, error) {
	if ts == nil {
		return "", ErrNoToken
	}
	tok, err := ts.Token()
	if err != nil {
		return "", &Error{Platform: platform, Err: fmt.Errorf("token: %w", err)}
	}
	if tok.AccessToken == "" {
		return "", ErrNoToken
	}
	return tok.AccessToken, nil
}

// decode checks a reply for a 2xx status and unmarshals its body into out.
func decode(platform string, resp *resty.Response, err error, out any) error {
	if err != nil {
		return &Error{Platform: platform, Err: err}
	}
	if !resp.IsSuccess() {
		body := resp.String()
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return &Error{Platform: platform, Status: resp.StatusCode(), Body: body}
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &Error{Platform: platform, Status: resp.StatusCode(), Err: fmt.Errorf("decode reply: %w", err)}
	}
	return nil
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
