// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host          string
	Port          string
	Env           string // "development", "production", "testing"
	PublicBaseURL string // external URL used for OAuth redirect URIs

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible cache + sessions)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string
	ValkeyDB       int

	// AI provider settings
	AIProvider       string // "openai", "gemini", "claude", "mistral"
	OpenAIKey        string
	OpenAIModel      string
	OpenAIModelImage string
	OpenAIBaseURL    string
	GeminiKey        string
	GeminiModel      string
	GeminiModelImage string
	GeminiBaseURL    string
	ClaudeKey        string
	ClaudeModel      string
	ClaudeBaseURL    string
	MistralKey       string
	MistralModel     string
	MistralBaseURL   string

	// S3-compatible object storage for generated images
	S3Endpoint     string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	S3BucketPublic string
	S3PublicURL    string

	// Generated image encoding before upload
	ImageFormat   string // "webp", "jpeg" or "original"
	ImageQuality  int
	ImageMaxWidth int

	// Delegated sign-in and publishing targets
	GoogleClientID     string
	GoogleClientSecret string
	BloggerBlogID      string
	PinterestAppID     string
	PinterestAppSecret string
	PinterestBoardID   string

	// AdminEmails are promoted to admin when they sign in.
	AdminEmails []string

	// TokenSealKey encrypts stored OAuth tokens (32 bytes, base64).
	TokenSealKey []byte

	// GenerateRateLimit is the number of generation requests a client may
	// make per minute.
	GenerateRateLimit int
	// RateLimitStore is "valkey" (shared by all instances) or "memory".
	RateLimitStore string
}

// devSealKey is only accepted outside production.
const devSealKey = "ZGV2LW9ubHktc2VhbC1rZXktMzItYnl0ZXMtbG9uZyE="

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing in production mode.
func Load() (*Config, error) {
	cfg := &Config{
		Host:          envOrDefault("APP_HOST", "0.0.0.0"),
		Port:          envOrDefault("APP_PORT", "8080"),
		Env:           envOrDefault("APP_ENV", "development"),
		PublicBaseURL: strings.TrimRight(envOrDefault("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "presently"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "presently"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		AIProvider:       envOrDefault("AI_PROVIDER", "gemini"),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      envOrDefault("OPENAI_MODEL", "gpt-4o"),
		OpenAIModelImage: envOrDefault("OPENAI_MODEL_IMAGE", "dall-e-3"),
		OpenAIBaseURL:    envOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		GeminiKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      envOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiModelImage: envOrDefault("GEMINI_MODEL_IMAGE", "gemini-2.5-flash-image"),
		GeminiBaseURL:    envOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		ClaudeKey:        os.Getenv("CLAUDE_API_KEY"),
		ClaudeModel:      envOrDefault("CLAUDE_MODEL", "claude-sonnet-4-5"),
		ClaudeBaseURL:    envOrDefault("CLAUDE_BASE_URL", "https://api.anthropic.com"),
		MistralKey:       os.Getenv("MISTRAL_API_KEY"),
		MistralModel:     envOrDefault("MISTRAL_MODEL", "mistral-large-latest"),
		MistralBaseURL:   envOrDefault("MISTRAL_BASE_URL", "https://api.mistral.ai/v1"),

		S3Endpoint:     os.Getenv("S3_ENDPOINT"),
		S3Region:       envOrDefault("S3_REGION", "us-east-1"),
		S3AccessKey:    os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:    os.Getenv("S3_SECRET_KEY"),
		S3BucketPublic: envOrDefault("S3_BUCKET_PUBLIC", "presently-public"),
		S3PublicURL:    os.Getenv("S3_PUBLIC_URL"),

		ImageFormat: envOrDefault("IMAGE_FORMAT", "webp"),

		RateLimitStore: envOrDefault("RATE_LIMIT_STORE", "valkey"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		BloggerBlogID:      os.Getenv("BLOGGER_BLOG_ID"),
		PinterestAppID:     os.Getenv("PINTEREST_APP_ID"),
		PinterestAppSecret: os.Getenv("PINTEREST_APP_SECRET"),
		PinterestBoardID:   os.Getenv("PINTEREST_BOARD_ID"),

		AdminEmails: splitList(os.Getenv("ADMIN_EMAILS")),
	}

	valkeyDB, err := strconv.Atoi(envOrDefault("VALKEY_DB", "0"))
	if err != nil || valkeyDB < 0 || valkeyDB > 15 {
		return nil, fmt.Errorf("VALKEY_DB must be an integer between 0 and 15")
	}
	cfg.ValkeyDB = valkeyDB

	limit, err := strconv.Atoi(envOrDefault("RATE_LIMIT_GENERATE", "10"))
	if err != nil || limit <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_GENERATE must be a positive integer")
	}
	cfg.GenerateRateLimit = limit
	if cfg.RateLimitStore != "valkey" && cfg.RateLimitStore != "memory" {
		return nil, fmt.Errorf("RATE_LIMIT_STORE must be \"valkey\" or \"memory\"")
	}

	quality, err := strconv.Atoi(envOrDefault("IMAGE_QUALITY", "85"))
	if err != nil || quality < 1 || quality > 100 {
		return nil, fmt.Errorf("IMAGE_QUALITY must be an integer between 1 and 100")
	}
	cfg.ImageQuality = quality

	maxWidth, err := strconv.Atoi(envOrDefault("IMAGE_MAX_WIDTH", "1600"))
	if err != nil || maxWidth < 0 {
		return nil, fmt.Errorf("IMAGE_MAX_WIDTH must be a non-negative integer")
	}
	cfg.ImageMaxWidth = maxWidth

	rawKey := os.Getenv("TOKEN_SEAL_KEY")
	if rawKey == "" {
		if cfg.Env == "production" {
			return nil, fmt.Errorf("TOKEN_SEAL_KEY must be set in production")
		}
		rawKey = devSealKey
	}
	key, err := base64.StdEncoding.DecodeString(rawKey)
	if err != nil {
		return nil, fmt.Errorf("TOKEN_SEAL_KEY is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("TOKEN_SEAL_KEY must decode to 32 bytes, got %d", len(key))
	}
	cfg.TokenSealKey = key

	if cfg.Env == "production" {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
		if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
			return nil, fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set in production")
		}
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// ValkeyAddr returns the Valkey address (host:port).
func (c *Config) ValkeyAddr() string {
	return fmt.Sprintf("%s:%s", c.ValkeyHost, c.ValkeyPort)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// PinterestEnabled reports whether Pinterest sign-in and publishing are configured.
func (c *Config) PinterestEnabled() bool {
	return c.PinterestAppID != "" && c.PinterestAppSecret != "" && c.PinterestBoardID != ""
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitList parses a comma-separated list, lowercasing entries and dropping
// empty ones.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.ToLower(strings.TrimSpace(part)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
