// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package pipeline

import (
	"github.com/google/uuid"

	"presently/internal/models"
)

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID    uuid.UUID
	Email string
	Role  models.Role
}

// ActorFromUser builds the actor for a signed-in user.
func ActorFromUser(u *models.User) Actor {
	return Actor{ID: u.ID, Email: u.Email, Role: u.Role}
}

// Valid reports whether the actor carries an identity.
func (a Actor) Valid() bool { return a.ID != uuid.Nil }

// CanReview reports whether the actor may approve content.
func (a Actor) CanReview() bool { return a.Role.CanReview() }

// IsAdmin reports whether the actor may manage other users.
func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// Label is the name written to audit entries and approvals.
func (a Actor) Label() string {
	if a.Email != "" {
		return a.Email
	}
	return a.ID.String()
}
