// Command api serves the sync engine's HTTP surface: the webhook ingestor
// (C7) and the connection lifecycle endpoints of spec §6. Job execution
// itself happens in the separate worker process (cmd/worker); this process
// only enqueues.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirimku/catalog-sync-engine/internal/config"
	"github.com/kirimku/catalog-sync-engine/internal/infrastructure/database"
	"github.com/kirimku/catalog-sync-engine/internal/infrastructure/logger"
	infraQueue "github.com/kirimku/catalog-sync-engine/internal/infrastructure/queue"
	infraRepo "github.com/kirimku/catalog-sync-engine/internal/infrastructure/repository"
	"github.com/kirimku/catalog-sync-engine/internal/infrastructure/vault"
	httpinterfaces "github.com/kirimku/catalog-sync-engine/internal/interfaces/http"
	"github.com/kirimku/catalog-sync-engine/internal/interfaces/http/handler"
	"github.com/kirimku/catalog-sync-engine/internal/platform"
	"github.com/kirimku/catalog-sync-engine/internal/platform/shopify"
	"github.com/kirimku/catalog-sync-engine/internal/queue"
	"github.com/kirimku/catalog-sync-engine/internal/webhook"
	"github.com/kirimku/catalog-sync-engine/pkg/cache"
	"github.com/kirimku/catalog-sync-engine/pkg/otel"
	redis "github.com/redis/go-redis/v9"
)

func main() {
	logger.InitLogger()
	logger.Logger.Info().Msg("catalog sync api starting up")

	if err := config.LoadConfig(); err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := database.Connect(config.AppConfig.DatabaseDSN())
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	otelClient, err := otel.NewOTelClient()
	if err != nil {
		logger.ErrorLogger().Err(err).Msg("otel client init failed, continuing without it")
	}

	connections := infraRepo.NewPostgreSQLPlatformConnectionRepository(db)
	mappings := infraRepo.NewPostgreSQLPlatformProductMappingRepository(db)
	variants := infraRepo.NewPostgreSQLProductVariantRepository(db)

	_, err = vault.New(config.AppConfig.Vault.Passphrase, config.AppConfig.Vault.Salt, connections.UpdateEncryptedCredentials)
	if err != nil {
		log.Fatalf("failed to initialize credential vault: %v", err)
	}

	registry := platform.NewRegistry()
	registry.Register(shopify.New(http.DefaultClient))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.Redis.Addr,
		Password: config.AppConfig.Redis.Password,
		DB:       config.AppConfig.Redis.DB,
	})

	asynqClient := infraQueue.NewClient(infraQueue.RedisConfig{
		Addr:     config.AppConfig.Redis.Addr,
		Password: config.AppConfig.Redis.Password,
		DB:       config.AppConfig.Redis.DB,
	})
	defer asynqClient.Close()
	enqueuer := queue.NewEnqueuer(asynqClient)
	progress := queue.NewProgressReporter(redisClient, time.Hour)

	suggestions := cache.NewInMemoryCache(10*time.Minute, 20*time.Minute)

	connHandler := handler.NewConnectionHandler(connections, mappings, variants, enqueuer, progress, suggestions)

	locator := webhook.NewRepositoryLocator(connections)
	ingestor := webhook.NewIngestor(locator, registry, enqueuer)

	router := httpinterfaces.NewRouter(connHandler, ingestor)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.Port,
		Handler:      router.Engine(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Logger.Info().Str("port", config.AppConfig.Port).Msg("catalog sync api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Msg("catalog sync api shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.ErrorLogger().Err(err).Msg("server forced to shutdown")
	}
	if otelClient != nil {
		_ = otelClient.Shutdown(ctx)
	}

	logger.Logger.Info().Msg("catalog sync api shutdown complete")
}
