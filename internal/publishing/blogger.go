// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package publishing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
)

// BloggerBaseURL is the Blogger v3 REST endpoint.
const BloggerBaseURL = "https://www.googleapis.com/blogger/v3"

// BlogPost is the article sent to Blogger.
type BlogPost struct {
	Title  string
	Body   string // HTML
	Labels []string
}

// Blogger publishes posts to a single blog.
type Blogger struct {
	client *resty.Client
	blogID string
}

// NewBlogger creates a Blogger gateway. An empty baseURL uses BloggerBaseURL.
func NewBlogger(baseURL, blogID string, timeout time.Duration) *Blogger {
	if baseURL == "" {
		baseURL = BloggerBaseURL
	}
	return &Blogger{client: newClient(baseURL, timeout), blogID: blogID}
}

type bloggerPostRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Labels  []string `json:"labels"`
}

type bloggerPostResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PublishPost creates a live post on the blog.
func (b *Blogger) PublishPost(ctx context.Context, ts oauth2.TokenSource, post BlogPost) (*Result, error) {
	if b.blogID == "" {
		return nil, errors.New("blogger: blog id is not configured")
	}
	token, err := accessToken("blogger", ts)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetPathParam("blogID", b.blogID).
		SetBody(bloggerPostRequest{
			Title:   post.Title,
			Content: post.Body,
			Labels:  Labels(post.Labels),
		}).
		Post("/blogs/{blogID}/posts/")

	var out bloggerPostResponse
	if err := decode("blogger", resp, err, &out); err != nil {
		return nil, err
	}
	if out.ID == "" || out.URL == "" {
		return nil, &Error{Platform: "blogger", Status: resp.StatusCode(), Body: "reply without id or url"}
	}
	return &Result{URL: out.URL, ID: out.ID}, nil
}

// Labels turns pin hashtags into Blogger labels: the leading '#' is removed
// and empty or repeated labels are dropped.
func Labels(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(t), "#"))
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		out = append(out, t)
	}
	return out
}
