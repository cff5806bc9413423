package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felipepmaragno/chat-gateway/internal/api"
	"github.com/felipepmaragno/chat-gateway/internal/catalog"
	"github.com/felipepmaragno/chat-gateway/internal/config"
	"github.com/felipepmaragno/chat-gateway/internal/connector"
	"github.com/felipepmaragno/chat-gateway/internal/connector/bedrock"
	"github.com/felipepmaragno/chat-gateway/internal/connector/gemini"
	"github.com/felipepmaragno/chat-gateway/internal/connector/relay"
	"github.com/felipepmaragno/chat-gateway/internal/conversation"
	"github.com/felipepmaragno/chat-gateway/internal/domain"
	"github.com/felipepmaragno/chat-gateway/internal/httputil"
	"github.com/felipepmaragno/chat-gateway/internal/notifications"
	"github.com/felipepmaragno/chat-gateway/internal/orchestrator"
	"github.com/felipepmaragno/chat-gateway/internal/quota"
	"github.com/felipepmaragno/chat-gateway/internal/secrets"
	"github.com/felipepmaragno/chat-gateway/internal/selector"
	"github.com/felipepmaragno/chat-gateway/internal/telemetry"
	"github.com/felipepmaragno/chat-gateway/internal/usageevents"

	_ "github.com/lib/pq"
)

const geminiKeySecretName = "chat-gateway/gemini-api-key"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	slog.Info("starting chat gateway", "addr", cfg.Addr, "version", "0.1.0")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Init(ctx, "chat-gateway", cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	var secretStore secrets.SecretStore
	if cfg.AWSRegion != "" {
		secretStore, err = secrets.NewAWSSecretsManager(ctx, cfg.AWSRegion)
		if err != nil {
			slog.Warn("failed to init secrets manager, secret refs unavailable", "error", err)
			secretStore = nil
		}
	}

	geminiKey := cfg.GeminiAPIKey
	if geminiKey == "" && secretStore != nil {
		geminiKey, err = secretStore.GetSecret(ctx, geminiKeySecretName)
		if err != nil {
			slog.Warn("gemini api key not found in secrets manager", "error", err)
		}
	}

	var (
		modelCatalog catalog.Catalog
		usageStore   quota.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			slog.Error("failed to ping database", "error", err)
			os.Exit(1)
		}

		modelCatalog = catalog.NewPostgresCatalog(db)
		usageStore = quota.NewPostgresStore(db)
		slog.Info("using postgres model catalog")
	} else {
		memUsage := quota.NewInMemoryStore()
		modelCatalog = catalog.NewInMemoryCatalog(memUsage, seedModels(cfg, geminiKey != "")...)
		usageStore = memUsage
		slog.Warn("no DATABASE_URL set, using in-memory model catalog")
	}

	var conversations conversation.Store
	if cfg.RedisURL != "" {
		redisStore, err := conversation.NewRedisStore(cfg.RedisURL, cfg.ConversationTTL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		conversations = redisStore
		slog.Info("using redis conversation store", "ttl", cfg.ConversationTTL)
	} else {
		conversations = conversation.NewInMemoryStore(cfg.ConversationTTL)
		slog.Warn("no REDIS_URL set, conversations are not durable")
	}

	providerClient := httputil.ProviderClient(cfg.ProviderTimeout)
	registry := connector.NewRegistry()

	if geminiKey != "" {
		registry.Register(gemini.New(gemini.Config{
			APIKey:  geminiKey,
			BaseURL: cfg.GeminiBaseURL,
			Model:   cfg.GeminiModel,
			Client:  providerClient,
		}))
		slog.Info("registered connector", "integration", "gemini")
	}

	if cfg.RelayBaseURL != "" {
		registry.Register(relay.New(relay.Config{
			BaseURL: cfg.RelayBaseURL,
			APIKey:  cfg.RelayAPIKey,
			Model:   cfg.RelayModel,
			Client:  providerClient,
		}))
		slog.Info("registered connector", "integration", "relay", "url", cfg.RelayBaseURL)
	}

	if cfg.BedrockEnabled && cfg.AWSRegion != "" {
		bedrockConn, err := bedrock.New(ctx, cfg.AWSRegion, cfg.BedrockModel)
		if err != nil {
			slog.Error("failed to init bedrock connector", "error", err)
			os.Exit(1)
		}
		registry.Register(bedrockConn)
		slog.Info("registered connector", "integration", "bedrock", "model", cfg.BedrockModel)
	}

	if len(registry.Integrations()) == 0 {
		slog.Error("no connectors configured")
		os.Exit(1)
	}

	var notifier notifications.Notifier
	if cfg.QuotaAlertTopicARN != "" && cfg.AWSRegion != "" {
		notifier, err = notifications.NewSNSNotifier(ctx, cfg.AWSRegion, cfg.QuotaAlertTopicARN)
		if err != nil {
			slog.Warn("failed to init sns notifier, quota alerts disabled", "error", err)
			notifier = nil
		} else {
			slog.Info("quota alerts enabled", "topic", cfg.QuotaAlertTopicARN)
		}
	}

	var usageEvents usageevents.Publisher
	if cfg.UsageQueueURL != "" && cfg.AWSRegion != "" {
		usageEvents, err = usageevents.NewSQSPublisher(ctx, cfg.AWSRegion, cfg.UsageQueueURL)
		if err != nil {
			slog.Warn("failed to init sqs publisher, usage events disabled", "error", err)
			usageEvents = nil
		} else {
			slog.Info("usage events enabled", "queue", cfg.UsageQueueURL)
		}
	}

	orch := orchestrator.New(orchestrator.Config{
		Selector:        selector.New(modelCatalog),
		Registry:        registry,
		Conversations:   conversations,
		Quota:           usageStore,
		Notifier:        notifier,
		UsageEvents:     usageEvents,
		ProviderTimeout: cfg.ProviderTimeout,
	})

	handler := api.NewHandler(api.HandlerConfig{
		Orchestrator:  orch,
		Conversations: conversations,
		Quota:         usageStore,
		Integrations:  registry.Integrations(),
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// seedModels builds the fallback catalog used when no database is
// configured. One row per configured integration, priority ordered
// gemini, bedrock, relay.
func seedModels(cfg *config.Config, geminiConfigured bool) []domain.Model {
	var models []domain.Model
	now := time.Now()

	if geminiConfigured {
		models = append(models, domain.Model{
			ID:          1,
			Name:        cfg.GeminiModel,
			Integration: "gemini",
			Priority:    1,
			RPM:         10,
			TPM:         250000,
			RPD:         250,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	if cfg.BedrockEnabled && cfg.AWSRegion != "" {
		models = append(models, domain.Model{
			ID:          2,
			Name:        cfg.BedrockModel,
			Integration: "bedrock",
			Priority:    2,
			RPM:         10,
			TPM:         200000,
			RPD:         500,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	if cfg.RelayBaseURL != "" {
		models = append(models, domain.Model{
			ID:          3,
			Name:        cfg.RelayModel,
			Integration: "relay",
			Priority:    3,
			RPM:         5,
			TPM:         250000,
			RPD:         100,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	return models
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
