// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"presently/internal/middleware"
	"presently/internal/models"
)

// RoleStore reads users and changes their role.
type RoleStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetRole(ctx context.Context, id uuid.UUID, role models.Role) error
}

// Users serves user administration for admins.
type Users struct {
	store RoleStore
}

// NewUsers creates the user administration handlers.
func NewUsers(store RoleStore) *Users {
	return &Users{store: store}
}

// SetRole handles PUT /api/users/{id}/role with {"role": "..."}. Only
// admins may call it, and an admin cannot change their own role.
func (u *Users) SetRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.ActorFromCtx(ctx)
	if !actor.IsAdmin() {
		writeError(w, http.StatusForbidden, "only admins can change roles")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id.")
		return
	}
	if id == actor.ID {
		writeError(w, http.StatusBadRequest, "You cannot change your own role.")
		return
	}

	var req struct {
		Role models.Role `json:"role"`
	}
	if msg := decodeBody(w, r, &req, false); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if !req.Role.Valid() {
		writeError(w, http.StatusBadRequest, "role must be editor, reviewer or admin.")
		return
	}

	user, err := u.store.FindByID(ctx, id)
	if err != nil {
		slog.Error("find user", "error", err, "user", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	if err := u.store.SetRole(ctx, id, req.Role); err != nil {
		slog.Error("set user role", "error", err, "user", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	slog.Info("user role changed", "user", user.Email, "from", user.Role, "to", req.Role, "by", actor.Label())

	user.Role = req.Role
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}
