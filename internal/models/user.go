// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's permission level in the system.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleReviewer Role = "reviewer"
	RoleEditor   Role = "editor"
)

// User is a person who signed in through the identity provider.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	GoogleID  string    `json:"-"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleReviewer || r == RoleEditor
}

// CanReview returns true if the role may approve drafts.
func (r Role) CanReview() bool {
	return r == RoleReviewer || r == RoleAdmin
}

// Provider names for stored OAuth credentials.
const (
	ProviderGoogle    = "google"
	ProviderPinterest = "pinterest"
)

// Credential is an OAuth token a user granted for one external provider.
// The token fields are sealed before they reach the database.
type Credential struct {
	UserID       uuid.UUID `json:"user_id"`
	Provider     string    `json:"provider"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
	UpdatedAt    time.Time `json:"updated_at"`
}
