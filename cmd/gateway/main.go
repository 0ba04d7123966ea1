package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/shahin-ai/ai-gateway/config"
	"github.com/shahin-ai/ai-gateway/internal/auth"
	"github.com/shahin-ai/ai-gateway/internal/cache"
	"github.com/shahin-ai/ai-gateway/internal/gateway"
	"github.com/shahin-ai/ai-gateway/internal/provider"
	"github.com/shahin-ai/ai-gateway/internal/provider/anthropic"
	"github.com/shahin-ai/ai-gateway/internal/provider/azure"
	"github.com/shahin-ai/ai-gateway/internal/provider/custom"
	"github.com/shahin-ai/ai-gateway/internal/provider/gemini"
	"github.com/shahin-ai/ai-gateway/internal/provider/local"
	"github.com/shahin-ai/ai-gateway/internal/provider/openai"
	"github.com/shahin-ai/ai-gateway/internal/providercfg"
	"github.com/shahin-ai/ai-gateway/internal/proxy"
	"github.com/shahin-ai/ai-gateway/internal/ratelimit"
	"github.com/shahin-ai/ai-gateway/internal/seeder"
	"github.com/shahin-ai/ai-gateway/internal/telemetry"
	"github.com/shahin-ai/ai-gateway/internal/usage"
	"github.com/shahin-ai/ai-gateway/pkg/edgelimit"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Init telemetry
	shutdownTracer, err := telemetry.InitTracer("ai-gateway", cfg)
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}
	defer shutdownTracer()

	// 3. Connect PostgreSQL
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect postgres: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("failed to ping postgres: %v", err)
	}
	log.Println("PostgreSQL connected")

	// 4. Connect Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to ping redis: %v", err)
	}
	log.Println("Redis connected")

	// 5. Init auth
	authStore := auth.NewPostgresStore(pool)
	authMiddleware := auth.RequireAPIKey(authStore, rdb)

	// 6. Init stores and resolver
	configStore := providercfg.NewPostgresStore(pool)
	resolver := providercfg.NewResolver(configStore, cfg.FallbackProviderConfig())

	// 7. Init gateway core
	registry := provider.NewRegistry(
		anthropic.New(),
		openai.New(),
		azure.New(),
		gemini.New(),
		local.New(),
		custom.New(),
	)
	gw := gateway.New(
		ratelimit.New(cfg.RateLimitPerMinute, time.Minute),
		resolver,
		registry,
		cache.New(),
		usage.NewMeter(usage.NewPostgresStore(pool)),
	)

	// 8. Init edge limiter and handler
	edgeLimiter := edgelimit.NewLimiter(rdb, cfg.EdgeRateLimitTPM)
	tracer := otel.GetTracerProvider().Tracer("ai-gateway")
	handler := proxy.NewHandler(gw, resolver, edgeLimiter, tracer)

	// 9. Seed dev fixtures if RUN_SEED=true
	if os.Getenv("RUN_SEED") == "true" {
		seeder.SeedTestAPIKey(ctx, authStore)
		seeder.SeedProviderConfig(ctx, configStore, cfg.FallbackAPIKey, cfg.FallbackModel)
	}

	// 10. Init Chi router
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// Public routes
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"ai-gateway"}`))
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/v1/chat", handler.HandleChat)
		r.Post("/v1/conversation", handler.HandleConversation)
		r.Post("/v1/prompt", handler.HandleTypedPrompt)
		r.Get("/v1/providers", handler.HandleListProviders)
		r.Get("/v1/providers/available", handler.HandleAvailable)
		r.Post("/v1/providers/{id}/test", handler.HandleTestProvider)
	})

	// 11. Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("AI gateway starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
