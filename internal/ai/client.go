// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// APIError is returned when a provider answers with a non-success status.
type APIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.Status, e.Body)
}

// newRESTClient builds the shared HTTP client setup for provider APIs.
// Rate-limit and overload replies are retried twice with backoff.
func newRESTClient(baseURL string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil || r == nil {
				return false
			}
			return r.StatusCode() == http.StatusTooManyRequests ||
				r.StatusCode() == http.StatusServiceUnavailable
		})
}

// decodeReply checks the status of a provider response and unmarshals its
// body into out.
func decodeReply(provider string, resp *resty.Response, err error, out any) error {
	if err != nil {
		return fmt.Errorf("%s http: %w", provider, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return &APIError{Provider: provider, Status: resp.StatusCode(), Body: resp.String()}
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s unmarshal: %w", provider, err)
	}
	return nil
}
