// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package config

import (
	"encoding/base64"
	"strings"
	"testing"
)

// allEnvVars lists every variable Load reads.
var allEnvVars = []string{
	"APP_HOST", "APP_PORT", "APP_ENV", "PUBLIC_BASE_URL",
	"POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB",
	"VALKEY_HOST", "VALKEY_PORT", "VALKEY_PASSWORD", "VALKEY_DB",
	"AI_PROVIDER",
	"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_MODEL_IMAGE", "OPENAI_BASE_URL",
	"GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_MODEL_IMAGE", "GEMINI_BASE_URL",
	"CLAUDE_API_KEY", "CLAUDE_MODEL", "CLAUDE_BASE_URL",
	"MISTRAL_API_KEY", "MISTRAL_MODEL", "MISTRAL_BASE_URL",
	"S3_ENDPOINT", "S3_REGION", "S3_ACCESS_KEY", "S3_SECRET_KEY",
	"S3_BUCKET_PUBLIC", "S3_PUBLIC_URL", "IMAGE_FORMAT", "IMAGE_QUALITY", "IMAGE_MAX_WIDTH",
	"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "BLOGGER_BLOG_ID",
	"PINTEREST_APP_ID", "PINTEREST_APP_SECRET", "PINTEREST_BOARD_ID",
	"TOKEN_SEAL_KEY", "RATE_LIMIT_GENERATE", "RATE_LIMIT_STORE", "ADMIN_EMAILS",
}

// clearEnv sets every variable to "" which envOrDefault treats as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvVars {
		t.Setenv(key, "")
	}
}

// TestLoad_Defaults verifies that Load returns sensible development defaults
// when no environment variables are set.
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	checks := map[string][2]string{
		"Host":          {cfg.Host, "0.0.0.0"},
		"Port":          {cfg.Port, "8080"},
		"Env":           {cfg.Env, "development"},
		"PublicBaseURL": {cfg.PublicBaseURL, "http://localhost:8080"},
		"DBUser":        {cfg.DBUser, "presently"},
		"DBName":        {cfg.DBName, "presently"},
		"ValkeyPort":    {cfg.ValkeyPort, "6379"},
		"AIProvider":    {cfg.AIProvider, "gemini"},
		"OpenAIBaseURL": {cfg.OpenAIBaseURL, "https://api.openai.com/v1"},
		"GeminiBaseURL": {cfg.GeminiBaseURL, "https://generativelanguage.googleapis.com"},
		"S3Region":      {cfg.S3Region, "us-east-1"},
		"S3Bucket":      {cfg.S3BucketPublic, "presently-public"},
		"ImageFormat":   {cfg.ImageFormat, "webp"},
		"RateLimit":     {cfg.RateLimitStore, "valkey"},
	}
	for name, c := range checks {
		if c[0] != c[1] {
			t.Errorf("%s: got %q, want %q", name, c[0], c[1])
		}
	}

	if cfg.GenerateRateLimit != 10 {
		t.Errorf("GenerateRateLimit: got %d, want 10", cfg.GenerateRateLimit)
	}
	if cfg.ImageQuality != 85 {
		t.Errorf("ImageQuality: got %d, want 85", cfg.ImageQuality)
	}
	if cfg.ImageMaxWidth != 1600 {
		t.Errorf("ImageMaxWidth: got %d, want 1600", cfg.ImageMaxWidth)
	}
	if len(cfg.TokenSealKey) != 32 {
		t.Errorf("TokenSealKey: got %d bytes, want 32", len(cfg.TokenSealKey))
	}
	if !cfg.IsDev() {
		t.Error("IsDev() should be true by default")
	}
	if cfg.PinterestEnabled() {
		t.Error("PinterestEnabled() should be false without credentials")
	}
	if len(cfg.AdminEmails) != 0 {
		t.Errorf("AdminEmails: got %v, want none", cfg.AdminEmails)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_PORT", "9090")
	t.Setenv("PUBLIC_BASE_URL", "https://gifts.example.com/")
	t.Setenv("AI_PROVIDER", "openai")
	t.Setenv("RATE_LIMIT_GENERATE", "3")
	t.Setenv("PINTEREST_APP_ID", "app")
	t.Setenv("PINTEREST_APP_SECRET", "secret")
	t.Setenv("PINTEREST_BOARD_ID", "board")
	t.Setenv("ADMIN_EMAILS", " Ana@Example.com, ,bob@example.com ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port: got %q", cfg.Port)
	}
	if cfg.PublicBaseURL != "https://gifts.example.com" {
		t.Errorf("PublicBaseURL should drop the trailing slash, got %q", cfg.PublicBaseURL)
	}
	if cfg.AIProvider != "openai" {
		t.Errorf("AIProvider: got %q", cfg.AIProvider)
	}
	if cfg.GenerateRateLimit != 3 {
		t.Errorf("GenerateRateLimit: got %d", cfg.GenerateRateLimit)
	}
	if !cfg.PinterestEnabled() {
		t.Error("PinterestEnabled() should be true")
	}
	if got := strings.Join(cfg.AdminEmails, ","); got != "ana@example.com,bob@example.com" {
		t.Errorf("AdminEmails: got %q", got)
	}
}

func TestLoad_Errors(t *testing.T) {
	validKey := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "bad rate limit",
			env:     map[string]string{"RATE_LIMIT_GENERATE": "zero"},
			wantErr: "RATE_LIMIT_GENERATE",
		},
		{
			name:    "negative rate limit",
			env:     map[string]string{"RATE_LIMIT_GENERATE": "-1"},
			wantErr: "RATE_LIMIT_GENERATE",
		},
		{
			name:    "unknown rate limit store",
			env:     map[string]string{"RATE_LIMIT_STORE": "postgres"},
			wantErr: "RATE_LIMIT_STORE",
		},
		{
			name:    "valkey db out of range",
			env:     map[string]string{"VALKEY_DB": "16"},
			wantErr: "VALKEY_DB",
		},
		{
			name:    "image quality out of range",
			env:     map[string]string{"IMAGE_QUALITY": "101"},
			wantErr: "IMAGE_QUALITY",
		},
		{
			name:    "seal key not base64",
			env:     map[string]string{"TOKEN_SEAL_KEY": "%%%"},
			wantErr: "base64",
		},
		{
			name:    "seal key wrong length",
			env:     map[string]string{"TOKEN_SEAL_KEY": base64.StdEncoding.EncodeToString([]byte("short"))},
			wantErr: "32 bytes",
		},
		{
			name:    "production without seal key",
			env:     map[string]string{"APP_ENV": "production", "POSTGRES_PASSWORD": "s3cret"},
			wantErr: "TOKEN_SEAL_KEY",
		},
		{
			name:    "production with default password",
			env:     map[string]string{"APP_ENV": "production", "TOKEN_SEAL_KEY": validKey},
			wantErr: "POSTGRES_PASSWORD",
		},
		{
			name: "production without google client",
			env: map[string]string{
				"APP_ENV": "production", "TOKEN_SEAL_KEY": validKey, "POSTGRES_PASSWORD": "s3cret",
			},
			wantErr: "GOOGLE_CLIENT_ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoad_ProductionComplete(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("POSTGRES_PASSWORD", "s3cret")
	t.Setenv("TOKEN_SEAL_KEY", base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef")))
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IsDev() {
		t.Error("IsDev() should be false in production")
	}
}

func TestDSNAndAddr(t *testing.T) {
	cfg := &Config{
		Host: "127.0.0.1", Port: "8080",
		DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "5432", DBName: "n",
	}
	if got, want := cfg.DSN(), "postgres://u:p@db:5432/n?sslmode=disable"; got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
	if got, want := cfg.Addr(), "127.0.0.1:8080"; got != want {
		t.Errorf("Addr() = %q, want %q", got, want)
	}
	cfg.ValkeyHost, cfg.ValkeyPort = "cache", "6380"
	if got, want := cfg.ValkeyAddr(), "cache:6380"; got != want {
		t.Errorf("ValkeyAddr() = %q, want %q", got, want)
	}
}
