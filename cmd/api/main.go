package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/music-school-api/api/swagger"
	"github.com/noah-isme/music-school-api/internal/handler"
	"github.com/noah-isme/music-school-api/internal/middleware"
	"github.com/noah-isme/music-school-api/internal/repository"
	"github.com/noah-isme/music-school-api/internal/seed"
	"github.com/noah-isme/music-school-api/internal/service"
	"github.com/noah-isme/music-school-api/internal/store"
	"github.com/noah-isme/music-school-api/migrations"
	"github.com/noah-isme/music-school-api/pkg/cache"
	"github.com/noah-isme/music-school-api/pkg/config"
	"github.com/noah-isme/music-school-api/pkg/database"
	"github.com/noah-isme/music-school-api/pkg/jobs"
	"github.com/noah-isme/music-school-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/music-school-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/music-school-api/pkg/middleware/requestid"
	"github.com/noah-isme/music-school-api/pkg/storage"
)

// @title Music School API
// @version 1.0.0
// @description Scheduling, enrollment and attendance for a music school.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{}

	var backend store.Backend = store.NopBackend{}
	if cfg.Storage.Backend == config.StoragePostgres {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer db.Close()
		if cfg.Storage.MigrateOnBoot {
			migrateUp(ctx, db, logr)
		}
		backend = repository.NewPostgresBackend(db, metrics)
		checks["postgres"] = func(ctx context.Context) error { return db.PingContext(ctx) }
	}

	st, err := store.Open(ctx, backend, logr.Named("store"), store.WithCommitObserver(metrics.ObserveCommit))
	if err != nil {
		logr.Fatal("failed to load school data", zap.Error(err))
	}

	var cacheRepo service.CacheRepository
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer client.Close()
		cacheRepo = repository.NewRedisCacheRepository(client, logr)
		checks["redis"] = redisCheck(client)
	case config.CacheMemory:
		cacheRepo = repository.NewMemoryCacheRepository(cache.NewMemory(cfg.Cache))
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cacheRepo != nil)

	exportFiles, importFiles := openFileStores(ctx, cfg, logr)
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	notifier := buildNotifier(ctx, cfg, logr)

	validate := validator.New()
	auth := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	enrollment := service.NewEnrollmentService(st, notifier, metrics, logr,
		service.WithDefaultSpecialization(cfg.Schedule.DefaultSpecialization))
	requests := service.NewChangeRequestService(st, notifier, metrics, logr,
		service.WithRequestAppliers(enrollment.RequestAppliers()))
	schedule := service.NewScheduleService(st, cfg.Schedule.GridStartHour, logr)
	imports := service.NewImportService(st, importFiles, metrics, notifier, cfg.Schedule.DefaultSpecialization, logr)
	reports := service.NewReportService(st, cacheSvc, cfg.Cache.TTL, logr)
	exports := service.NewExportService(schedule, exportFiles, signer, service.ExportConfig{APIPrefix: cfg.APIPrefix}, logr, nil, nil)
	st.OnCommit(reports.Invalidate)

	if cfg.Schedule.Seed {
		if err := seed.Apply(ctx, st, imports, seed.Options{TermID: cfg.Schedule.SeedTermID}, logr); err != nil {
			logr.Fatal("failed to seed sample data", zap.Error(err))
		}
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Terms:       handler.NewTermHandler(service.NewTermService(st, validate, logr), schedule),
		Schedule:    handler.NewScheduleHandler(schedule),
		Enrollments: handler.NewEnrollmentHandler(enrollment),
		Attendance:  handler.NewAttendanceHandler(service.NewAttendanceService(st, logr)),
		Imports:     handler.NewImportHandler(imports),
		Exclusions:  handler.NewExclusionHandler(service.NewExclusionService(st, validate, logr)),
		Exports:     handler.NewExportHandler(exports),
		Students:    handler.NewStudentHandler(service.NewStudentService(st, enrollment, validate, logr)),
		Requests:    handler.NewRequestHandler(requests),
		Leaves:      handler.NewLeaveHandler(service.NewLeaveService(st, notifier, validate, logr)),
		Reports:     handler.NewReportHandler(reports),
		Teachers:    handler.NewTeacherHandler(service.NewTeacherService(st, validate, logr)),
	}, middleware.Actor(auth))

	if local, ok := exportFiles.(*storage.LocalStorage); ok {
		go cleanupExports(ctx, local, cfg.Exports, logr)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "storage", cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

func migrateUp(ctx context.Context, db *sqlx.DB, logr *zap.Logger) {
	migrator, err := database.NewMigrator(db, migrations.FS, ".", logr)
	if err != nil {
		logr.Fatal("failed to prepare migrations", zap.Error(err))
	}
	if err := migrator.Up(ctx); err != nil {
		logr.Fatal("failed to apply migrations", zap.Error(err))
	}
}

func redisCheck(client *redis.Client) handler.ReadinessCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

// openFileStores returns the export store and, for MinIO, the roster import bucket.
func openFileStores(ctx context.Context, cfg *config.Config, logr *zap.Logger) (storage.FileStore, storage.FileStore) {
	if cfg.Exports.Backend == config.FilesMinio {
		client, err := storage.NewMinioClient(cfg.MinIO)
		if err != nil {
			logr.Fatal("failed to create minio client", zap.Error(err))
		}
		exportsBucket, err := storage.NewMinioStorage(ctx, client, cfg.MinIO.Bucket)
		if err != nil {
			logr.Fatal("failed to open export bucket", zap.Error(err))
		}
		importBucket, err := storage.NewMinioStorage(ctx, client, cfg.MinIO.ImportBucket)
		if err != nil {
			logr.Fatal("failed to open import bucket", zap.Error(err))
		}
		return exportsBucket, importBucket
	}

	local, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to open export directory", zap.Error(err))
	}
	return local, nil
}

func buildNotifier(ctx context.Context, cfg *config.Config, logr *zap.Logger) service.Notifier {
	logNotifier := service.NewLogNotifier(logr.Named("notify"))
	mailer := service.NewSendGridNotifier(service.SendGridConfig{
		APIKey:     cfg.Notify.SendGridKey,
		FromName:   cfg.Notify.FromName,
		FromEmail:  cfg.Notify.FromEmail,
		Recipients: cfg.Notify.AdminEmails,
	}, logr)
	if !mailer.Enabled() {
		return logNotifier
	}
	queue := service.NewNotificationQueue(mailer.Deliver, jobs.QueueConfig{
		Workers:    cfg.Notify.Workers,
		BufferSize: 64,
		MaxRetries: cfg.Notify.Retries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	queue.Start(ctx)
	return service.NewQueuedNotifier(queue, logNotifier, logr)
}

func cleanupExports(ctx context.Context, local *storage.LocalStorage, cfg config.ExportsConfig, logr *zap.Logger) {
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := local.CleanupOlderThan(cfg.SignedURLTTL)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("expired exports removed", zap.Int("count", len(removed)))
			}
		}
	}
}
