package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/persona/backend/internal/assets"
	"github.com/persona/backend/internal/config"
	"github.com/persona/backend/internal/database"
	"github.com/persona/backend/internal/editor"
	"github.com/persona/backend/internal/handlers"
	"github.com/persona/backend/internal/metrics"
	"github.com/persona/backend/internal/middleware"
	"github.com/persona/backend/internal/services"
	"github.com/persona/backend/internal/storage"
	"github.com/persona/backend/internal/telemetry"
	"github.com/persona/backend/pkg/logger"
	"github.com/persona/backend/pkg/utils"
	"github.com/persona/backend/pkg/visittoken"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()
	logger.InitWithLevel(cfg.Server.LogLevel)

	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)
	utils.ConfigureEncryption(cfg.Server.EncryptionSecret)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.InitTracer(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatalf("tracer initialization failed: %v", err)
	}
	if tp != nil {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	var objectStore storage.ObjectStore
	if cfg.MinIO.Endpoint != "" {
		minioClient, err := storage.NewMinIOClient(cfg.MinIO)
		if err != nil {
			log.Fatalf("minio initialization failed: %v", err)
		}
		if err := minioClient.EnsureBucket(ctx); err != nil {
			log.Fatalf("failed ensuring minio bucket: %v", err)
		}
		objectStore = minioClient
	} else {
		logger.Warn("object_storage_in_memory", map[string]interface{}{"reason": "MINIO_ENDPOINT is empty"})
		objectStore = storage.NewMemoryStore()
	}

	var assetCache assets.Cache = assets.NewMemoryCache()
	var visitLedger visittoken.Ledger = visittoken.NewMemoryLedger()
	if cfg.Redis.Enabled() {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisClient.Close()
		assetCache = assets.NewRedisCache(redisClient)
		visitLedger = visittoken.NewRedisLedger(redisClient)
	}

	auditService := services.NewAuditService(db, objectStore)
	auditService.StartExporter(ctx, cfg.Audit.ExportInterval)

	profileService := services.NewProfileService(db, cfg.Limits)
	uploadService := services.NewUploadService(db, objectStore, cfg.Limits)
	storeService := services.NewStoreService(db)
	templateService := services.NewTemplateService(db, cfg.Limits.TemplatesPerUser)
	platformService := services.NewPlatformLinkService(db, cfg.Discord)
	directoryService := services.NewDirectoryService(cfg.Discord)
	publicService := &services.PublicService{
		Profiles: profileService,
		Store:    storeService,
		Users:    platformService,
		Servers:  directoryService,
	}

	registry := editor.NewRegistry(editor.Deps{
		Profiles:  profileService,
		Uploads:   uploadService,
		Store:     storeService,
		Platform:  platformService,
		Directory: directoryService,
		Templates: templateService,
		Cache:     assetCache,
		CacheTTL:  cfg.Limits.AssetCacheTTL,
		PageSize:  cfg.Limits.AssetPageSize,
	}, cfg.Editor.SessionIdleTTL)
	registry.StartSweeper(ctx, cfg.Editor.SweepInterval)
	metrics.TrackEditorSessions(registry.Len)

	visits := visittoken.NewIssuer(cfg.Server.VisitTokenSecret, 30*time.Minute, visitLedger)
	visits.StartCleanup(ctx, 5*time.Minute)

	authMiddleware := middleware.NewAuthMiddleware(db)

	bodyLimit := int(cfg.Limits.MaxUploadBytes) + 1<<20
	app := fiber.New(fiber.Config{BodyLimit: bodyLimit})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	app.Use(otelfiber.Middleware())
	app.Use(middleware.Metrics())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handlers.RegisterRoutes(app, handlers.Handlers{
		Auth:      handlers.NewAuthHandler(db, auditService),
		Profile:   handlers.NewProfileHandler(profileService, registry, auditService),
		Assets:    handlers.NewAssetsHandler(registry),
		Uploads:   handlers.NewUploadsHandler(uploadService, registry, auditService),
		Store:     handlers.NewStoreHandler(storeService, registry, auditService),
		Presence:  handlers.NewPresenceHandler(registry, auditService),
		Templates: handlers.NewTemplatesHandler(templateService, registry, auditService),
		Platform:  handlers.NewPlatformHandler(platformService, registry, auditService, cfg.Server.FrontendURL),
		Public:    handlers.NewPublicHandler(publicService, visits),
		Audit:     handlers.NewAuditHandler(auditService),
		Users:     handlers.NewUsersHandler(db, registry, auditService),
	}, authMiddleware)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":          cfg.Server.Port,
		"address":       listenAddr,
		"body_limit":    bodyLimit,
		"redis":         cfg.Redis.Enabled(),
		"platform_link": cfg.Discord.OAuthEnabled(),
		"tracing":       tp != nil,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}

	cancel()
	auditService.Close()
}
