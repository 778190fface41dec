// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package publishing

import (
	"context"
	"errors"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
)

// PinterestBaseURL is the Pinterest v5 REST endpoint.
const PinterestBaseURL = "https://api.pinterest.com/v5"

// Pinterest field limits.
const (
	pinTitleMax       = 100
	pinDescriptionMax = 500
	pinAltTextMax     = 500
)

// Pin is a single image pin.
type Pin struct {
	BoardID     string
	ImageURL    string
	Description string
	Link        string
	Title       string
	AltText     string
}

// Pinterest creates pins.
type Pinterest struct {
	client *resty.Client
}

// NewPinterest creates a Pinterest gateway. An empty baseURL uses
// PinterestBaseURL.
func NewPinterest(baseURL string, timeout time.Duration) *Pinterest {
	if baseURL == "" {
		baseURL = PinterestBaseURL
	}
	return &Pinterest{client: newClient(baseURL, timeout)}
}

type pinMediaSource struct {
	SourceType string `json:"source_type"`
	URL        string `json:"url"`
}

type pinRequest struct {
	BoardID     string         `json:"board_id"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Link        string         `json:"link,omitempty"`
	AltText     string         `json:"alt_text,omitempty"`
	MediaSource pinMediaSource `json:"media_source"`
}

type pinResponse struct {
	ID string `json:"id"`
}

// CreatePin posts pin to its board.
func (p *Pinterest) CreatePin(ctx context.Context, ts oauth2.TokenSource, pin Pin) (*Result, error) {
	if pin.BoardID == "" {
		return nil, errors.New("pinterest: board id is not configured")
	}
	if pin.ImageURL == "" {
		return nil, errors.New("pinterest: image url is required")
	}
	token, err := accessToken("pinterest", ts)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(pinRequest{
			BoardID:     pin.BoardID,
			Title:       truncateRunes(pin.Title, pinTitleMax),
			Description: truncateRunes(pin.Description, pinDescriptionMax),
			Link:        pin.Link,
			AltText:     truncateRunes(pin.AltText, pinAltTextMax),
			MediaSource: pinMediaSource{SourceType: "image_url", URL: pin.ImageURL},
		}).
		Post("/pins")

	var out pinResponse
	if err := decode("pinterest", resp, err, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, &Error{Platform: "pinterest", Status: resp.StatusCode(), Body: "reply without id"}
	}
	return &Result{URL: PinURL(out.ID), ID: out.ID}, nil
}

// PinURL is the public address of a pin.
func PinURL(id string) string {
	return "https://www.pinterest.com/pin/" + id + "/"
}
