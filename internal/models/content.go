// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a content item. Values only ever move
// forward, one step at a time, in the order returned by Rank.
type Status string

const (
	StatusNew             Status = "new"
	StatusTextGenerated   Status = "text_generated"
	StatusImageGenerated  Status = "image_generated"
	StatusApproved        Status = "approved"
	StatusPublishedBlog   Status = "published_to_blog"
	StatusPublishedToBoth Status = "published_to_both"
)

// statusOrder lists every status in lifecycle order.
var statusOrder = []Status{
	StatusNew,
	StatusTextGenerated,
	StatusImageGenerated,
	StatusApproved,
	StatusPublishedBlog,
	StatusPublishedToBoth,
}

// Statuses returns all lifecycle states in order.
func Statuses() []Status {
	out := make([]Status, len(statusOrder))
	copy(out, statusOrder)
	return out
}

// Rank returns the position of the status in the lifecycle, or -1 for an
// unknown value.
func (s Status) Rank() int {
	for i, v := range statusOrder {
		if v == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the defined lifecycle states.
func (s Status) Valid() bool {
	return s.Rank() >= 0
}

// AtLeast reports whether s is at or beyond other in the lifecycle.
func (s Status) AtLeast(other Status) bool {
	return s.Valid() && s.Rank() >= other.Rank()
}

// Next returns the immediate successor of s. The second return value is
// false for the final state and for unknown values.
func (s Status) Next() (Status, bool) {
	r := s.Rank()
	if r < 0 || r == len(statusOrder)-1 {
		return "", false
	}
	return statusOrder[r+1], true
}

// Theme is the immutable input that drives text and image generation.
// It is fixed when the item is created.
type Theme struct {
	Occasion    string `json:"occasion"`
	Interest    string `json:"interest"`
	AgeGroup    string `json:"ageGroup"`
	BudgetRange string `json:"budgetRange"`
	Style       string `json:"style"`
	Profession  string `json:"profession,omitempty"`
	Notes       string `json:"freeformNotes,omitempty"`
}

// GeneratedContent is the text produced by the generation gateway.
type GeneratedContent struct {
	BlogBody       string   `json:"blogBody"`
	PinDescription string   `json:"pinDescription"`
	PinTags        []string `json:"pinTags"`
}

// Image references the generated product image in object storage.
type Image struct {
	URL     string `json:"url"`
	AltText string `json:"altText"`
}

// Approval records the reviewer sign-off.
type Approval struct {
	ApprovedBy string    `json:"approvedBy"`
	ApprovedAt time.Time `json:"approvedAt"`
	Comment    string    `json:"comment,omitempty"`
}

// Publication records where an item was published on an external platform.
type Publication struct {
	ExternalURL string    `json:"externalUrl"`
	ExternalID  string    `json:"externalId"`
	PublishedAt time.Time `json:"publishedAt"`
}

// Publishing holds one optional publication per target platform.
type Publishing struct {
	Blog *Publication `json:"blog,omitempty"`
	Pin  *Publication `json:"pin,omitempty"`
}

// Audit actions written by the lifecycle orchestrator.
const (
	ActionCreated        = "created"
	ActionTitleUpdated   = "title_updated"
	ActionTextGenerated  = "text_generated"
	ActionImageGenerated = "image_generated"
	ActionApproved       = "approved"
	ActionPublishedBlog  = "published_blog"
	ActionPublishedPin   = "published_pin"
)

// AuditEntry is one immutable line of an item's history.
type AuditEntry struct {
	Action    string            `json:"action"`
	Actor     string            `json:"actor"`
	Timestamp time.Time         `json:"timestamp"`
	Details   map[string]string `json:"details,omitempty"`
}

// ContentItem is a single gift-idea post moving through the lifecycle.
// It is persisted as one JSON document per ID.
type ContentItem struct {
	ID         uuid.UUID         `json:"id"`
	Title      string            `json:"title"`
	Status     Status            `json:"status"`
	OwnerID    uuid.UUID         `json:"ownerId"`
	Theme      Theme             `json:"theme"`
	Generated  *GeneratedContent `json:"generatedContent,omitempty"`
	Image      *Image            `json:"image,omitempty"`
	Approval   *Approval         `json:"approval,omitempty"`
	Publishing Publishing        `json:"publishing"`
	AuditLog   []AuditEntry      `json:"auditLog"`
	Version    int64             `json:"version"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// ErrInvariant is wrapped by every error returned from CheckInvariants.
var ErrInvariant = errors.New("content item invariant violated")

// CheckInvariants verifies that the optional parts of the item agree with
// its status. The orchestrator calls it before every save.
func (c *ContentItem) CheckInvariants() error {
	if !c.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvariant, c.Status)
	}
	if len(c.AuditLog) == 0 {
		return fmt.Errorf("%w: audit log is empty", ErrInvariant)
	}
	if (c.Generated != nil) != c.Status.AtLeast(StatusTextGenerated) {
		return fmt.Errorf("%w: generated content does not match status %q", ErrInvariant, c.Status)
	}
	if (c.Image != nil) != c.Status.AtLeast(StatusImageGenerated) {
		return fmt.Errorf("%w: image does not match status %q", ErrInvariant, c.Status)
	}
	if (c.Approval != nil) != c.Status.AtLeast(StatusApproved) {
		return fmt.Errorf("%w: approval does not match status %q", ErrInvariant, c.Status)
	}
	if (c.Publishing.Blog != nil) != c.Status.AtLeast(StatusPublishedBlog) {
		return fmt.Errorf("%w: blog publication does not match status %q", ErrInvariant, c.Status)
	}
	if (c.Publishing.Pin != nil) != c.Status.AtLeast(StatusPublishedToBoth) {
		return fmt.Errorf("%w: pin publication does not match status %q", ErrInvariant, c.Status)
	}
	if c.Publishing.Blog != nil && c.Approval == nil {
		return fmt.Errorf("%w: blog publication without approval", ErrInvariant)
	}
	if c.Publishing.Pin != nil && c.Publishing.Blog == nil {
		return fmt.Errorf("%w: pin publication without blog publication", ErrInvariant)
	}
	for i := 1; i < len(c.AuditLog); i++ {
		if c.AuditLog[i].Timestamp.Before(c.AuditLog[i-1].Timestamp) {
			return fmt.Errorf("%w: audit entry %d is older than its predecessor", ErrInvariant, i)
		}
	}
	return nil
}

// Clone returns a deep copy so a transition can be built without touching
// the loaded record.
func (c *ContentItem) Clone() *ContentItem {
	out := *c
	if c.Generated != nil {
		g := *c.Generated
		g.PinTags = append([]string(nil), c.Generated.PinTags...)
		out.Generated = &g
	}
	if c.Image != nil {
		img := *c.Image
		out.Image = &img
	}
	if c.Approval != nil {
		a := *c.Approval
		out.Approval = &a
	}
	if c.Publishing.Blog != nil {
		b := *c.Publishing.Blog
		out.Publishing.Blog = &b
	}
	if c.Publishing.Pin != nil {
		p := *c.Publishing.Pin
		out.Publishing.Pin = &p
	}
	out.AuditLog = make([]AuditEntry, len(c.AuditLog))
	for i, e := range c.AuditLog {
		out.AuditLog[i] = e
		if e.Details != nil {
			d := make(map[string]string, len(e.Details))
			for k, v := range e.Details {
				d[k] = v
			}
			out.AuditLog[i].Details = d
		}
	}
	return &out
}

// LastAudit returns the most recent audit entry, or nil if there is none.
func (c *ContentItem) LastAudit() *AuditEntry {
	if len(c.AuditLog) == 0 {
		return nil
	}
	return &c.AuditLog[len(c.AuditLog)-1]
}

// List paging bounds.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ContentFilter narrows a listing. A zero Status matches every status.
type ContentFilter struct {
	Status Status
	Limit  int
	Offset int
}

// Normalize clamps Limit and Offset into their allowed ranges.
func (f ContentFilter) Normalize() ContentFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
