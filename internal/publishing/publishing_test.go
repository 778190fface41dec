package publishing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

type captured struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

func newServer(t *testing.T, c *captured, status int, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.method = r.Method
		c.path = r.URL.Path
		c.auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		c.body = nil
		_ = json.Unmarshal(raw, &c.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func token(s string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: s, TokenType: "Bearer"})
}

func TestBloggerPublishPost(t *testing.T) {
	var c captured
	srv := newServer(t, &c, http.StatusOK, `{"id":"987","url":"https://gifts.blogspot.com/2026/01/coffee.html"}`)
	b := NewBlogger(srv.URL, "blog-1", time.Second)

	res, err := b.PublishPost(context.Background(), token("tok"), BlogPost{
		Title:  "Coffee gifts",
		Body:   "<h1>Coffee</h1>",
		Labels: []string{"#coffee", "gifts", "#Coffee", "#"},
	})
	if err != nil {
		t.Fatalf("PublishPost: %v", err)
	}
	if res.ID != "987" || res.URL != "https://gifts.blogspot.com/2026/01/coffee.html" {
		t.Errorf("result = %+v", res)
	}
	if c.method != http.MethodPost || c.path != "/blogs/blog-1/posts/" {
		t.Errorf("request = %s %s", c.method, c.path)
	}
	if c.auth != "Bearer tok" {
		t.Errorf("Authorization = %q", c.auth)
	}
	if c.body["title"] != "Coffee gifts" || c.body["content"] != "<h1>Coffee</h1>" {
		t.Errorf("body = %v", c.body)
	}
	labels, _ := c.body["labels"].([]any)
	if len(labels) != 2 || labels[0] != "coffee" || labels[1] != "gifts" {
		t.Errorf("labels = %v", c.body["labels"])
	}
}

func TestBloggerErrors(t *testing.T) {
	t.Run("non-2xx", func(t *testing.T) {
		var c captured
		srv := newServer(t, &c, http.StatusForbidden, `{"error":{"message":"insufficient scope"}}`)
		_, err := NewBlogger(srv.URL, "b", time.Second).PublishPost(context.Background(), token("t"), BlogPost{Title: "x"})

		var pe *Error
		if !errors.As(err, &pe) {
			t.Fatalf("expected *Error, got %v", err)
		}
		if pe.Platform != "blogger" || pe.Status != http.StatusForbidden || !strings.Contains(pe.Body, "insufficient scope") {
			t.Errorf("error = %+v", pe)
		}
	})

	t.Run("missing id in reply", func(t *testing.T) {
		var c captured
		srv := newServer(t, &c, http.StatusOK, `{}`)
		_, err := NewBlogger(srv.URL, "b", time.Second).PublishPost(context.Background(), token("t"), BlogPost{})
		var pe *Error
		if !errors.As(err, &pe) {
			t.Fatalf("expected *Error, got %v", err)
		}
	})

	t.Run("no token", func(t *testing.T) {
		_, err := NewBlogger("http://unused", "b", time.Second).PublishPost(context.Background(), nil, BlogPost{})
		if !errors.Is(err, ErrNoToken) {
			t.Errorf("expected ErrNoToken, got %v", err)
		}
	})

	t.Run("no blog id", func(t *testing.T) {
		if _, err := NewBlogger("http://unused", "", time.Second).PublishPost(context.Background(), token("t"), BlogPost{}); err == nil {
			t.Error("expected error without blog id")
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := NewBlogger(url, "b", time.Second).PublishPost(context.Background(), token("t"), BlogPost{})
		var pe *Error
		if !errors.As(err, &pe) || pe.Status != 0 {
			t.Errorf("expected transport *Error, got %v", err)
		}
	})
}

func TestPinterestCreatePin(t *testing.T) {
	var c captured
	srv := newServer(t, &c, http.StatusCreated, `{"id":"813"}`)
	p := NewPinterest(srv.URL, time.Second)

	res, err := p.CreatePin(context.Background(), token("pin-tok"), Pin{
		BoardID:     "board-9",
		ImageURL:    "https://cdn.example.com/images/a.webp",
		Description: strings.Repeat("d", 600),
		Link:        "https://gifts.blogspot.com/post",
		Title:       "Coffee gifts",
		AltText:     "Gift ideas for coffee lovers",
	})
	if err != nil {
		t.Fatalf("CreatePin: %v", err)
	}
	if res.ID != "813" || res.URL != "https://www.pinterest.com/pin/813/" {
		t.Errorf("result = %+v", res)
	}
	if c.path != "/pins" || c.auth != "Bearer pin-tok" {
		t.Errorf("request path %q auth %q", c.path, c.auth)
	}
	if c.body["board_id"] != "board-9" || c.body["link"] != "https://gifts.blogspot.com/post" {
		t.Errorf("body = %v", c.body)
	}
	media, _ := c.body["media_source"].(map[string]any)
	if media["source_type"] != "image_url" || media["url"] != "https://cdn.example.com/images/a.webp" {
		t.Errorf("media_source = %v", media)
	}
	if d, _ := c.body["description"].(string); len(d) != pinDescriptionMax {
		t.Errorf("description length = %d, want %d", len(d), pinDescriptionMax)
	}
}

func TestPinterestErrors(t *testing.T) {
	t.Run("rate limited", func(t *testing.T) {
		var c captured
		srv := newServer(t, &c, http.StatusTooManyRequests, `{"code":8,"message":"slow down"}`)
		_, err := NewPinterest(srv.URL, time.Second).CreatePin(context.Background(), token("t"),
			Pin{BoardID: "b", ImageURL: "https://x/y.png"})
		var pe *Error
		if !errors.As(err, &pe) || pe.Status != http.StatusTooManyRequests {
			t.Errorf("expected 429 *Error, got %v", err)
		}
	})

	t.Run("missing board", func(t *testing.T) {
		_, err := NewPinterest("http://unused", time.Second).CreatePin(context.Background(), token("t"), Pin{ImageURL: "x"})
		if err == nil {
			t.Error("expected error without board")
		}
	})

	t.Run("missing image", func(t *testing.T) {
		_, err := NewPinterest("http://unused", time.Second).CreatePin(context.Background(), token("t"), Pin{BoardID: "b"})
		if err == nil {
			t.Error("expected error without image")
		}
	})
}

func TestLabels(t *testing.T) {
	got := Labels([]string{" #Coffee ", "#coffee", "", "##beans"})
	if strings.Join(got, "|") != "Coffee|beans" {
		t.Errorf("Labels = %v", got)
	}
}

func TestErrorMessage(t *testing.T) {
	e := &Error{Platform: "pinterest", Status: 401, Body: "expired"}
	if e.Error() != "pinterest: status 401: expired" {
		t.Errorf("Error() = %q", e.Error())
	}
	inner := errors.New("dial tcp")
	e = &Error{Platform: "blogger", Err: inner}
	if !errors.Is(e, inner) {
		t.Error("Error should unwrap the transport error")
	}
}
