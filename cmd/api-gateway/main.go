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

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/cohort-admin-api/api/swagger"
	"github.com/noah-isme/cohort-admin-api/internal/handler"
	"github.com/noah-isme/cohort-admin-api/internal/repository"
	"github.com/noah-isme/cohort-admin-api/internal/service"
	"github.com/noah-isme/cohort-admin-api/pkg/cache"
	"github.com/noah-isme/cohort-admin-api/pkg/config"
	"github.com/noah-isme/cohort-admin-api/pkg/database"
	"github.com/noah-isme/cohort-admin-api/pkg/jobs"
	"github.com/noah-isme/cohort-admin-api/pkg/logger"
	"github.com/noah-isme/cohort-admin-api/pkg/revenue"
)

// @title Cohort Admin API
// @version 1.0.0
// @description Teachers, batches, students and sales for the cohort admin console.
// @BasePath /api
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.EnableJsonDecoderDisallowUnknownFields()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		version, err := database.Migrate(ctx, db, logr)
		if err != nil {
			logr.Fatal("database migration failed", zap.Error(err))
		}
		logr.Info("database migrated", zap.Int64("version", version))
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("redis connection failed", zap.Error(err))
	}

	metrics := service.NewMetricsService()
	validate := validator.New()
	allocator := revenue.NewAllocator(revenue.Rates{
		TeacherBatch:    cfg.Revenue.TeacherBatchRate,
		PlatformBatch:   cfg.Revenue.PlatformBatchRate,
		TeacherEarnings: cfg.Revenue.TeacherEarningsRate,
	})

	teacherRepo := repository.NewTeacherRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	dashCache := service.NewDashboardCache(cacheRepo, metrics, logr, redisClient != nil)

	earningsSvc := service.NewEarningsService(teacherRepo, studentRepo, saleRepo, allocator, dashCache, metrics, logr)
	queue := jobs.NewQueue("earnings", earningsSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Earnings.Workers,
		BufferSize: cfg.Earnings.BufferSize,
		MaxRetries: cfg.Earnings.MaxRetries,
		RetryDelay: cfg.Earnings.RetryDelay,
		Logger:     logr,
	})
	if cfg.Earnings.AsyncRecompute {
		queue.Start(ctx)
		earningsSvc.AttachQueue(queue)
	}

	authSvc := service.NewAuthService(teacherRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	router := handler.NewRouter(handler.RouterDeps{
		Config:  cfg,
		Logger:  logr,
		Metrics: metrics,
		Tokens:  authSvc,
		Checks: map[string]handler.Pinger{
			"database": db,
			"cache":    handler.PingerFunc(cacheRepo.Ping),
		},
		Teachers: service.NewTeacherService(teacherRepo, earningsSvc, dashCache, validate, logr),
		Batches:  service.NewBatchService(batchRepo, teacherRepo, allocator, dashCache, validate, logr, cfg.Export.PDFTitle),
		Students: service.NewStudentService(studentRepo, teacherRepo, validate, logr),
		Sales:    service.NewSaleService(saleRepo, studentRepo, earningsSvc, validate, logr),
		Auth:     authSvc,
		Dashboard: service.NewDashboardService(service.DashboardServiceParams{
			Teachers:  teacherRepo,
			Batches:   batchRepo,
			Allocator: allocator,
			Cache:     dashCache,
			Logger:    logr,
			Config:    service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
		}),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	queue.Stop()
}
