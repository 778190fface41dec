// Package store provides database access methods for users, their OAuth
// credentials and content items. Each store struct wraps a *sql.DB and
// exposes typed query methods.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"presently/internal/models"
)

const userColumns = `id, email, name, role, google_id, avatar_url, created_at, updated_at`

// UserStore handles all user-related database operations.
type UserStore struct {
	db     *sql.DB
	admins map[string]bool
}

// NewUserStore creates a new UserStore with the given database connection.
// Users signing in with one of adminEmails are promoted to admin.
func NewUserStore(db *sql.DB, adminEmails ...string) *UserStore {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		admins[strings.ToLower(e)] = true
	}
	return &UserStore{db: db, admins: admins}
}

// FindByID retrieves a user by their UUID. Returns nil if not found.
func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

// FindByGoogleID retrieves a user by the subject of their Google account.
// Returns nil if not found.
func (s *UserStore) FindByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by google id: %w", err)
	}
	return u, nil
}

// UpsertGoogle records a Google sign-in. A user already linked to googleID
// has their profile refreshed; otherwise a user with the same email is
// linked, and failing that a new editor is created. Configured admin
// emails are promoted on every sign-in.
func (s *UserStore) UpsertGoogle(ctx context.Context, googleID, email, name string, avatarURL *string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `
		UPDATE users SET email = $2, name = $3, avatar_url = $4, updated_at = NOW()
		WHERE google_id = $1
		RETURNING `+userColumns,
		googleID, email, name, avatarURL))
	if err == nil {
		return s.promote(ctx, u)
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("update google user: %w", err)
	}

	u, err = scanUser(s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, name, role, google_id, avatar_url)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name, google_id = EXCLUDED.google_id,
		    avatar_url = EXCLUDED.avatar_url, updated_at = NOW()
		RETURNING `+userColumns,
		email, name, models.RoleEditor, googleID, avatarURL))
	if err != nil {
		return nil, fmt.Errorf("insert google user: %w", err)
	}
	return s.promote(ctx, u)
}

func (s *UserStore) promote(ctx context.Context, u *models.User) (*models.User, error) {
	if u.Role == models.RoleAdmin || !s.admins[strings.ToLower(u.Email)] {
		return u, nil
	}
	if err := s.SetRole(ctx, u.ID, models.RoleAdmin); err != nil {
		return nil, err
	}
	slog.Info("user promoted to admin from ADMIN_EMAILS", "email", u.Email)
	u.Role = models.RoleAdmin
	return u, nil
}

// SetRole changes a user's role.
func (s *UserStore) SetRole(ctx context.Context, id uuid.UUID, role models.Role) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2`, role, id)
	if err != nil {
		return fmt.Errorf("set user role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	var googleID sql.NullString
	if err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.Role, &googleID, &u.AvatarURL,
		&u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.GoogleID = googleID.String
	return u, nil
}
