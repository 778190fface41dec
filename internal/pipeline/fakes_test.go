package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"presently/internal/models"
	"presently/internal/publishing"
	"presently/internal/store"
)

// memStore is an in-memory Store with the same version semantics as the
// PostgreSQL store.
type memStore struct {
	mu      sync.Mutex
	items   map[uuid.UUID]*models.ContentItem
	saveErr error
	getErr  error
	saves   int
}

func newMemStore() *memStore {
	return &memStore{items: make(map[uuid.UUID]*models.ContentItem)}
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (*models.ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	item, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return item.Clone(), nil
}

func (m *memStore) List(_ context.Context, f models.ContentFilter) ([]*models.ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ContentItem
	for _, item := range m.items {
		if f.Status == "" || item.Status == f.Status {
			out = append(out, item.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memStore) Insert(_ context.Context, item *models.ContentItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.Version = 1
	m.items[item.ID] = item.Clone()
	return nil
}

func (m *memStore) Save(_ context.Context, item *models.ContentItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	cur, ok := m.items[item.ID]
	if !ok {
		return store.ErrNotFound
	}
	if cur.Version != item.Version {
		return store.ErrConflict
	}
	item.Version++
	m.items[item.ID] = item.Clone()
	m.saves++
	return nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

// raw returns the stored record without going through Get.
func (m *memStore) raw(id uuid.UUID) *models.ContentItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[id]; ok {
		return item.Clone()
	}
	return nil
}

type fakeGenerator struct {
	textErr  error
	imageErr error
	calls    []string
}

func (g *fakeGenerator) GenerateText(_ context.Context, theme models.Theme) (*models.GeneratedContent, error) {
	g.calls = append(g.calls, "text")
	if g.textErr != nil {
		return nil, g.textErr
	}
	return &models.GeneratedContent{
		BlogBody:       "<h1>Gifts for " + theme.Interest + " lovers</h1><p>Ideas.</p>",
		PinDescription: "Perfect gifts. Save this pin!",
		PinTags:        []string{"#" + theme.Interest, "#gifts"},
	}, nil
}

func (g *fakeGenerator) GenerateImage(_ context.Context, theme models.Theme) (*models.Image, error) {
	g.calls = append(g.calls, "image")
	if g.imageErr != nil {
		return nil, g.imageErr
	}
	return &models.Image{URL: "https://cdn.example.com/images/" + theme.Interest + ".webp", AltText: "Gift ideas for " + theme.Interest + " lovers"}, nil
}

type fakeAssets struct {
	deleted []string
	err     error
}

func (a *fakeAssets) DeleteImage(_ context.Context, url string) error {
	if a.err != nil {
		return a.err
	}
	a.deleted = append(a.deleted, url)
	return nil
}

type fakeBlog struct {
	err   error
	posts []publishing.BlogPost
}

func (b *fakeBlog) PublishPost(_ context.Context, ts oauth2.TokenSource, post publishing.BlogPost) (*publishing.Result, error) {
	if _, err := ts.Token(); err != nil {
		return nil, err
	}
	if b.err != nil {
		return nil, b.err
	}
	b.posts = append(b.posts, post)
	return &publishing.Result{URL: "https://gifts.blogspot.com/2026/01/post.html", ID: "blog-1"}, nil
}

type fakePin struct {
	err  error
	pins []publishing.Pin
}

func (p *fakePin) CreatePin(_ context.Context, _ oauth2.TokenSource, pin publishing.Pin) (*publishing.Result, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.pins = append(p.pins, pin)
	return &publishing.Result{URL: publishing.PinURL("pin-1"), ID: "pin-1"}, nil
}

// clock returns base and then moves forward one minute per call.
type clock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC), step: time.Minute}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

var errGateway = errors.New("gateway exploded")

func staticToken() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok"})
}
