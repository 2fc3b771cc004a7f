package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nomadev-io/whatsapp-autopilot/internal/agents"
	"github.com/nomadev-io/whatsapp-autopilot/internal/api/router"
	appconfig "github.com/nomadev-io/whatsapp-autopilot/internal/config"
	"github.com/nomadev-io/whatsapp-autopilot/internal/conversation"
	"github.com/nomadev-io/whatsapp-autopilot/internal/http/handlers"
	observemetrics "github.com/nomadev-io/whatsapp-autopilot/internal/observability/metrics"
	"github.com/nomadev-io/whatsapp-autopilot/internal/whatsapp"
	"github.com/nomadev-io/whatsapp-autopilot/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting whatsapp-autopilot API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Postgres
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to ping postgres", "error", err)
		os.Exit(1)
	}

	// Redis (optional agent cache)
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, agent cache disabled", "error", err)
			redisClient = nil
		}
	}

	// Agent lookup with optional read-through cache
	var agentRepo agents.Repository = agents.NewPostgresRepository(pool)
	if redisClient != nil {
		agentRepo = agents.NewCachedRepository(agentRepo, redisClient, cfg.AgentCacheTTL, logger)
	}

	// OpenAI client
	openaiCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		openaiCfg.BaseURL = cfg.OpenAIBaseURL
	}
	openaiClient := openai.NewClientWithConfig(openaiCfg)

	// Metrics
	registry := prometheus.NewRegistry()
	metrics := observemetrics.NewWebhookMetrics(registry)

	// Pipeline
	store := conversation.NewStore(pool)
	replies := conversation.NewReplyService(openaiClient, cfg.DefaultModel, cfg.LLMTimeout, logger)
	waClient := whatsapp.NewClient(cfg.GraphAPIBaseURL, cfg.GraphAPIVersion, cfg.SendTimeout, logger)
	processor := conversation.NewProcessor(conversation.ProcessorConfig{
		Agents:       agentRepo,
		Store:        store,
		Replies:      replies,
		Sender:       waClient,
		Logger:       logger,
		Metrics:      metrics,
		HistoryLimit: cfg.HistoryLimit,
	})

	// Handlers
	webhookHandler := handlers.NewWebhookHandler(handlers.WebhookConfig{
		VerifyToken: cfg.WebhookVerifyToken,
		AppSecret:   cfg.MetaAppSecret,
		Processor:   processor,
		Logger:      logger,
		Metrics:     metrics,
	})
	adminHandler := handlers.NewAdminHandler(store, logger)

	// Setup router
	r := router.New(&router.Config{
		Logger:             logger,
		WebhookHandler:     webhookHandler,
		AdminHandler:       adminHandler,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
