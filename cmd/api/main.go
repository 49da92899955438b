package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/DougGuttenberg/halacha-helper/internal/cache"
	"github.com/DougGuttenberg/halacha-helper/internal/feedback"
	apphttp "github.com/DougGuttenberg/halacha-helper/internal/http"
	"github.com/DougGuttenberg/halacha-helper/internal/llm"
	"github.com/DougGuttenberg/halacha-helper/internal/logging"
	"github.com/DougGuttenberg/halacha-helper/internal/pipeline"
	"github.com/DougGuttenberg/halacha-helper/internal/retrieval"
	"github.com/DougGuttenberg/halacha-helper/internal/sefaria"
)

func main() {
	logging.Init()

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration from environment.
	projectID := envOrDefault("GCP_PROJECT_ID", "")
	region := envOrDefault("GCP_REGION", "us-central1")
	model := envOrDefault("GEMINI_MODEL", "gemini-2.5-flash")
	sefariaURL := envOrDefault("SEFARIA_BASE_URL", "https://www.sefaria.org")
	sessionSecret := envOrDefault("SESSION_SECRET", "")
	feedbackDB := envOrDefault("FEEDBACK_DB_PATH", "data/feedback.db")
	allowOrigin := envOrDefault("ALLOW_ORIGIN", "*")
	port := envOrDefault("PORT", "8080")
	promptsPath := envOrDefault("PROMPTS_PATH", "docs/prompts.md")

	maxSources := envOrDefaultInt("MAX_SOURCES", retrieval.DefaultMaxSources)
	cacheTTL := envOrDefaultInt("CACHE_TTL_MINUTES", 30)
	rateLimitRPS := envOrDefaultFloat("RATE_LIMIT_RPS", 10.0)
	rateLimitBurst := envOrDefaultInt("RATE_LIMIT_BURST", 20)

	if projectID == "" {
		return fmt.Errorf("GCP_PROJECT_ID is required")
	}
	if sessionSecret == "" {
		// Tokens only need to survive a single multi-turn exchange, so a
		// per-process secret is acceptable when none is configured.
		sessionSecret = randomSecret()
		slog.Warn("SESSION_SECRET not set, using ephemeral per-process secret")
	}

	// Load prompt templates.
	prompts, err := llm.LoadPrompts(promptsPath)
	if err != nil {
		return fmt.Errorf("load prompts: %w", err)
	}
	slog.Info("prompts loaded", "path", promptsPath)

	// Initialize LLM client.
	completer, err := llm.NewGeminiClient(ctx, projectID, region, model)
	if err != nil {
		return fmt.Errorf("init llm client: %w", err)
	}
	defer completer.Close()

	// Sefaria library client and retrieval.
	library := sefaria.NewClient(sefariaURL)
	retriever := retrieval.New(library, maxSources)

	// Response cache and session tokens.
	responseCache := cache.New(time.Duration(cacheTTL)*time.Minute, cache.DefaultCapacity, nil)
	tokens := pipeline.NewTokenCodec(sessionSecret)

	synth := pipeline.NewSynthesizer(completer, prompts)
	controller := pipeline.NewController(completer, retriever, synth, responseCache, tokens, prompts)

	// Feedback store.
	fbStore, err := feedback.Open(feedbackDB)
	if err != nil {
		return fmt.Errorf("open feedback store: %w", err)
	}
	defer fbStore.Close()

	// Build handler and server.
	handler := apphttp.NewHandler(controller, fbStore)
	rateLimiter := apphttp.NewIPRateLimiter(rateLimitRPS, rateLimitBurst)
	router := apphttp.NewRouter(handler, rateLimiter, allowOrigin)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", port)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
