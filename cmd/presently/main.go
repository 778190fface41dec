// Package main is the entry point for the presently API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/oauth2"

	"presently/internal/ai"
	"presently/internal/auth"
	"presently/internal/cache"
	"presently/internal/config"
	"presently/internal/database"
	"presently/internal/generation"
	"presently/internal/handlers"
	"presently/internal/imaging"
	"presently/internal/middleware"
	"presently/internal/pipeline"
	"presently/internal/publishing"
	"presently/internal/router"
	"presently/internal/secret"
	"presently/internal/session"
	"presently/internal/storage"
	"presently/internal/store"
)

func main() {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: JSON in production, text in development.
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	if !cfg.IsDev() {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	ctx := context.Background()

	// Connect to PostgreSQL.
	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if _, err := database.Migrate(ctx, db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (item cache, sessions and OAuth state).
	valkeyClient, err := cache.ConnectValkey(ctx, cfg.ValkeyAddr(), cfg.ValkeyPassword, cfg.ValkeyDB)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, secureCookies)

	box, err := secret.New(cfg.TokenSealKey)
	if err != nil {
		slog.Error("failed to initialize token sealing", "error", err)
		os.Exit(1)
	}

	// Initialize data stores.
	userStore := store.NewUserStore(db, cfg.AdminEmails...)
	credentialStore := store.NewCredentialStore(db, box)
	itemCache := cache.NewItemCache(valkeyClient, cache.DefaultItemTTL)
	// Migrations and the dev seed write rows behind the cache.
	itemCache.InvalidateAll(ctx)
	contentStore := store.NewCachedContentStore(store.NewContentStore(db), itemCache)

	// S3-compatible object storage is optional; image generation needs it.
	var assets generation.ObjectStore
	if cfg.S3Endpoint != "" && cfg.S3AccessKey != "" {
		storageClient, err := storage.New(
			cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey,
			cfg.S3BucketPublic, cfg.S3PublicURL,
		)
		if err != nil {
			slog.Error("failed to initialize S3 storage", "error", err)
			os.Exit(1)
		}
		assets = storageClient
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3BucketPublic)
	} else {
		slog.Warn("s3 storage not configured, image generation disabled")
	}

	// Initialize the AI provider registry with all configured providers.
	aiRegistry := ai.NewRegistry(cfg.AIProvider, map[string]ai.ProviderConfig{
		"openai":  {APIKey: cfg.OpenAIKey, Model: cfg.OpenAIModel, ModelImage: cfg.OpenAIModelImage, BaseURL: cfg.OpenAIBaseURL},
		"gemini":  {APIKey: cfg.GeminiKey, Model: cfg.GeminiModel, ModelImage: cfg.GeminiModelImage, BaseURL: cfg.GeminiBaseURL},
		"claude":  {APIKey: cfg.ClaudeKey, Model: cfg.ClaudeModel, BaseURL: cfg.ClaudeBaseURL},
		"mistral": {APIKey: cfg.MistralKey, Model: cfg.MistralModel, BaseURL: cfg.MistralBaseURL},
	})

	slog.Info("ai providers initialized",
		"active", aiRegistry.ActiveName(),
		"available", aiRegistry.Available(),
	)
	if !aiRegistry.SupportsImageGeneration() {
		slog.Warn("active ai provider cannot generate images", "provider", aiRegistry.ActiveName())
	}

	format, err := imaging.ParseFormat(cfg.ImageFormat)
	if err != nil {
		slog.Error("invalid IMAGE_FORMAT", "error", err)
		os.Exit(1)
	}
	generator := generation.New(aiRegistry, assets, imaging.Options{
		Format:   format,
		Quality:  cfg.ImageQuality,
		MaxWidth: cfg.ImageMaxWidth,
	})

	deps := pipeline.Deps{
		Store:      contentStore,
		Generator:  generator,
		Assets:     generator,
		PinBoardID: cfg.PinterestBoardID,
	}
	if cfg.BloggerBlogID != "" {
		deps.Blog = publishing.NewBlogger("", cfg.BloggerBlogID, publishing.DefaultTimeout)
	} else {
		slog.Warn("BLOGGER_BLOG_ID not set, blog publishing disabled")
	}
	if cfg.PinterestEnabled() {
		deps.Pin = publishing.NewPinterest("", publishing.DefaultTimeout)
	} else {
		slog.Warn("pinterest not configured, pin publishing disabled")
	}
	orchestrator := pipeline.New(deps)

	// Delegated sign-in.
	googleConfig := auth.GoogleConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.PublicBaseURL)
	var pinterestConfig *oauth2.Config
	if cfg.PinterestEnabled() {
		pinterestConfig = auth.PinterestConfig(cfg.PinterestAppID, cfg.PinterestAppSecret, cfg.PublicBaseURL)
	}

	var verifier middleware.TokenVerifier
	var idVerifier handlers.IDTokenVerifier
	if cfg.GoogleClientID != "" {
		v, err := auth.NewGoogleVerifier(cfg.GoogleClientID, 10*time.Second, time.Hour)
		if err != nil {
			slog.Error("failed to initialize google token verifier", "error", err)
			os.Exit(1)
		}
		verifier, idVerifier = v, v
	} else {
		slog.Warn("GOOGLE_CLIENT_ID not set, sign-in disabled")
		idVerifier = disabledVerifier{}
	}

	connections := auth.NewConnections(credentialStore, googleConfig, pinterestConfig)

	var limiter middleware.Counter = cache.NewWindowCounter(valkeyClient, cfg.GenerateRateLimit, time.Minute)
	if cfg.RateLimitStore == "memory" {
		mem := middleware.NewRateLimiter(cfg.GenerateRateLimit, time.Minute)
		defer mem.Stop()
		limiter = mem
	}

	r := router.New(router.Deps{
		Sessions: sessionStore,
		Verifier: verifier,
		Users:    userStore,
		Posts:    handlers.NewPosts(orchestrator, connections),
		Roles:    handlers.NewUsers(userStore),
		Auth: handlers.NewAuth(handlers.AuthDeps{
			Sessions:  sessionStore,
			States:    auth.NewStateStore(valkeyClient),
			Google:    googleConfig,
			Pinterest: pinterestConfig,
			Verifier:  idVerifier,
			Users:     userStore,
			Creds:     credentialStore,
			Secure:    secureCookies,
		}),
		GenerateLimiter: limiter,
		SecureCookies:   secureCookies,
		Checks: map[string]router.Check{
			"postgres": db.PingContext,
			"valkey": func(ctx context.Context) error {
				return valkeyClient.Ping(ctx).Err()
			},
		},
	})

	// WriteTimeout must accommodate generation endpoints that wait on the
	// model and on the image upload.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

// disabledVerifier rejects every ID token when Google sign-in is not
// configured.
type disabledVerifier struct{}

func (disabledVerifier) Verify(context.Context, string) (*auth.Identity, error) {
	return nil, auth.ErrInvalidToken
}
