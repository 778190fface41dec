package store

import (
	"bytes"
	"context"
	"testing"
	"time"

	"presently/internal/models"
	"presently/internal/secret"
)

func testBox(t *testing.T) *secret.Box {
	t.Helper()
	b, err := secret.New(bytes.Repeat([]byte{7}, 32))
	if err != nil {
		t.Fatalf("secret.New: %v", err)
	}
	return b
}

func TestCredentialStorePutGet(t *testing.T) {
	db := testDB(t)
	owner := testUser(t, db, "creds@store-test.local")
	s := NewCredentialStore(db, testBox(t))
	ctx := context.Background()

	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	err := s.Put(ctx, &models.Credential{
		UserID:       owner.ID,
		Provider:     models.ProviderGoogle,
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
		Expiry:       expiry,
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	var raw string
	if err := db.QueryRow(
		`SELECT access_token FROM credentials WHERE user_id = $1 AND provider = $2`,
		owner.ID, models.ProviderGoogle,
	).Scan(&raw); err != nil {
		t.Fatalf("read raw token: %v", err)
	}
	if raw == "access-1" {
		t.Error("access token stored in plaintext")
	}

	got, err := s.Get(ctx, owner.ID, models.ProviderGoogle)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.AccessToken != "access-1" || got.RefreshToken != "refresh-1" {
		t.Errorf("tokens: got %q / %q", got.AccessToken, got.RefreshToken)
	}
	if !got.Expiry.Equal(expiry) {
		t.Errorf("expiry: got %v, want %v", got.Expiry, expiry)
	}

	// A later grant without a refresh token keeps the stored one.
	if err := s.Put(ctx, &models.Credential{
		UserID: owner.ID, Provider: models.ProviderGoogle,
		AccessToken: "access-2", TokenType: "Bearer",
	}); err != nil {
		t.Fatalf("second Put: %v", err)
	}
	got, err = s.Get(ctx, owner.ID, models.ProviderGoogle)
	if err != nil {
		t.Fatalf("Get after second Put: %v", err)
	}
	if got.AccessToken != "access-2" || got.RefreshToken != "refresh-1" {
		t.Errorf("after refresh: got %q / %q", got.AccessToken, got.RefreshToken)
	}
	if !got.Expiry.IsZero() {
		t.Errorf("expiry should be cleared, got %v", got.Expiry)
	}
}

func TestCredentialStoreMissingAndDelete(t *testing.T) {
	db := testDB(t)
	owner := testUser(t, db, "creds-delete@store-test.local")
	s := NewCredentialStore(db, testBox(t))
	ctx := context.Background()

	got, err := s.Get(ctx, owner.ID, models.ProviderPinterest)
	if err != nil || got != nil {
		t.Fatalf("Get missing: %+v, %v", got, err)
	}

	if err := s.Put(ctx, &models.Credential{
		UserID: owner.ID, Provider: models.ProviderPinterest, AccessToken: "pina", TokenType: "bearer",
	}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Delete(ctx, owner.ID, models.ProviderPinterest); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := s.Get(ctx, owner.ID, models.ProviderPinterest); got != nil {
		t.Error("credential still present after Delete")
	}
	if err := s.Delete(ctx, owner.ID, models.ProviderPinterest); err != nil {
		t.Errorf("Delete of missing credential: %v", err)
	}
}
