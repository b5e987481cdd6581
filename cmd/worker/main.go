// Command worker runs the asynq server processing every queue in the sync
// engine's task catalog (C4): initial scans (C5), reconciliation (C6),
// pushes (C8), and deferred webhook processing (C7). It also runs the
// scheduled reconciliation sweep (a cron trigger the task catalog itself
// doesn't define, running independently of any enqueued job type).
package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/kirimku/catalog-sync-engine/internal/config"
	"github.com/kirimku/catalog-sync-engine/internal/infrastructure/database"
	"github.com/kirimku/catalog-sync-engine/internal/infrastructure/logger"
	infraQueue "github.com/kirimku/catalog-sync-engine/internal/infrastructure/queue"
	infraRepo "github.com/kirimku/catalog-sync-engine/internal/infrastructure/repository"
	"github.com/kirimku/catalog-sync-engine/internal/infrastructure/vault"
	"github.com/kirimku/catalog-sync-engine/internal/platform"
	"github.com/kirimku/catalog-sync-engine/internal/platform/shopify"
	"github.com/kirimku/catalog-sync-engine/internal/push"
	"github.com/kirimku/catalog-sync-engine/internal/queue"
	"github.com/kirimku/catalog-sync-engine/internal/scan"
	"github.com/kirimku/catalog-sync-engine/internal/webhook"
	"github.com/kirimku/catalog-sync-engine/internal/worker"
)

func main() {
	logger.InitLogger()
	logger.Logger.Info().Msg("catalog sync worker starting up")

	if err := config.LoadConfig(); err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := database.Connect(config.AppConfig.DatabaseDSN())
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	connections := infraRepo.NewPostgreSQLPlatformConnectionRepository(db)
	products := infraRepo.NewPostgreSQLProductRepository(db)
	variants := infraRepo.NewPostgreSQLProductVariantRepository(db)
	inventory := infraRepo.NewPostgreSQLInventoryLevelRepository(db)
	mappings := infraRepo.NewPostgreSQLPlatformProductMappingRepository(db)
	activity := infraRepo.NewPostgreSQLActivityLogRepository(db)

	credVault, err := vault.New(config.AppConfig.Vault.Passphrase, config.AppConfig.Vault.Salt, connections.UpdateEncryptedCredentials)
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

	redisCfg := infraQueue.RedisConfig{
		Addr:     config.AppConfig.Redis.Addr,
		Password: config.AppConfig.Redis.Password,
		DB:       config.AppConfig.Redis.DB,
	}
	asynqClient := infraQueue.NewClient(redisCfg)
	defer asynqClient.Close()
	enqueuer := queue.NewEnqueuer(asynqClient)
	progress := queue.NewProgressReporter(redisClient, time.Hour)
	rateLimiter := queue.NewPushRateLimiter(redisClient, time.Minute)

	scanner := scan.New(connections, products, variants, inventory, credVault, registry, progress)

	pushCoordinator := &push.Coordinator{
		Connections: connections,
		Products:    products,
		Variants:    variants,
		Inventory:   inventory,
		Mappings:    mappings,
		Activity:    activity,
		Vault:       credVault,
		Registry:    registry,
		Enqueuer:    enqueuer,
		RateLimiter: rateLimiter,
	}

	webhookProcessor := &webhook.Processor{
		Mappings:    mappings,
		Inventory:   inventory,
		Connections: connections,
		Registry:    registry,
	}

	mux := worker.NewMux(&worker.Handlers{
		Connections:      connections,
		Scanner:          scanner,
		Push:             pushCoordinator,
		WebhookProcessor: webhookProcessor,
		Registry:         registry,
		Progress:         progress,
	})

	semaphores := infraQueue.NewSemaphores()
	mux.Use(semaphores.Middleware())
	server := infraQueue.NewServer(redisCfg, config.AppConfig.Worker.Concurrency)

	scheduler := scan.NewScheduler(connections, enqueuer)
	if err := scheduler.Start(config.AppConfig.Reconciliation.CronSpec); err != nil {
		log.Fatalf("failed to start reconciliation scheduler: %v", err)
	}

	if err := server.Start(mux); err != nil {
		log.Fatalf("failed to start worker server: %v", err)
	}
	logger.Logger.Info().Msg("catalog sync worker listening for tasks")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Msg("catalog sync worker shutting down")

	scheduler.Stop()
	server.Shutdown()

	logger.Logger.Info().Msg("catalog sync worker shutdown complete")
}
