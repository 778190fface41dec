package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"presently/internal/models"
)

// SeedAdminEmail is the address of the development admin account. Signing in
// with a Google account that has this email links to the seeded user.
const SeedAdminEmail = "admin@presently.local"

// Seed populates the database with development data: an admin user and one
// fully published sample post. It does nothing if any user exists already.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	var adminID uuid.UUID
	err = tx.QueryRow(`
		INSERT INTO users (email, name, role)
		VALUES ($1, $2, $3)
		RETURNING id
	`, SeedAdminEmail, "Admin", models.RoleAdmin).Scan(&adminID)
	if err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	item := SampleItem(adminID)
	doc, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("seed marshal sample: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO content_items (id, status, owner_id, document, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, item.ID, item.Status, item.OwnerID, doc, item.Version, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("seed insert sample: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded", "admin", SeedAdminEmail, "sample_post", item.ID)
	return nil
}

// SampleItem builds the "coffee lovers" demo post owned by ownerID. Every
// stage of the lifecycle is filled in so the record is fully published.
func SampleItem(ownerID uuid.UUID) *models.ContentItem {
	at := func(hour, min int) time.Time {
		return time.Date(2024, 1, 15, hour, min, 0, 0, time.UTC)
	}
	actor := ownerID.String()

	return &models.ContentItem{
		ID:      uuid.New(),
		Title:   "Gifts for coffee lovers",
		Status:  models.StatusPublishedToBoth,
		OwnerID: ownerID,
		Theme: models.Theme{
			Occasion:    "birthday",
			Interest:    "coffee",
			AgeGroup:    "adults",
			BudgetRange: "50-100",
			Style:       "practical",
		},
		Generated: &models.GeneratedContent{
			BlogBody:       "<h1>The best gifts for coffee lovers</h1><p>Coffee is more than a drink...</p>",
			PinDescription: "Discover the perfect gifts for coffee lovers! From premium beans to clever brewing gear.",
			PinTags:        []string{"#coffee", "#gifts", "#coffeelover", "#birthday"},
		},
		Image: &models.Image{
			URL:     "https://placehold.co/600x400.png",
			AltText: "Gift ideas for coffee lovers",
		},
		Approval: &models.Approval{
			ApprovedBy: actor,
			ApprovedAt: at(14, 0),
		},
		Publishing: models.Publishing{
			Blog: &models.Publication{
				ExternalURL: "https://blog.example.com/coffee-gifts",
				ExternalID:  "sample-blog-post",
				PublishedAt: at(15, 0),
			},
			Pin: &models.Publication{
				ExternalURL: "https://www.pinterest.com/pin/123456/",
				ExternalID:  "123456",
				PublishedAt: at(15, 30),
			},
		},
		AuditLog: []models.AuditEntry{
			{Action: models.ActionCreated, Actor: actor, Timestamp: at(10, 0)},
			{Action: models.ActionTextGenerated, Actor: actor, Timestamp: at(10, 30)},
			{Action: models.ActionImageGenerated, Actor: actor, Timestamp: at(11, 0)},
			{Action: models.ActionApproved, Actor: actor, Timestamp: at(14, 0)},
			{Action: models.ActionPublishedBlog, Actor: actor, Timestamp: at(15, 0),
				Details: map[string]string{"url": "https://blog.example.com/coffee-gifts"}},
			{Action: models.ActionPublishedPin, Actor: actor, Timestamp: at(15, 30),
				Details: map[string]string{"url": "https://www.pinterest.com/pin/123456/"}},
		},
		Version:   1,
		CreatedAt: at(10, 0),
		UpdatedAt: at(15, 30),
	}
}
