package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/avramart/tutorhub-api/api/swagger"
	"github.com/avramart/tutorhub-api/internal/handler"
	internalmiddleware "github.com/avramart/tutorhub-api/internal/middleware"
	"github.com/avramart/tutorhub-api/internal/repository"
	"github.com/avramart/tutorhub-api/internal/service"
	"github.com/avramart/tutorhub-api/pkg/cache"
	"github.com/avramart/tutorhub-api/pkg/config"
	"github.com/avramart/tutorhub-api/pkg/database"
	"github.com/avramart/tutorhub-api/pkg/export"
	"github.com/avramart/tutorhub-api/pkg/jobs"
	"github.com/avramart/tutorhub-api/pkg/logger"
	corsmiddleware "github.com/avramart/tutorhub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/avramart/tutorhub-api/pkg/middleware/requestid"
	"github.com/avramart/tutorhub-api/pkg/storage"
)

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var cacheRepo service.CacheRepository
	cacheEnabled := false
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, running without cache", zap.Error(err))
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			cacheEnabled = true
		}
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.CourseTTL, logr, cacheEnabled)

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	meetingRepo := repository.NewMeetingRepository(db)
	requestRepo := repository.NewTeachingRequestRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:             cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "tutorhub-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(courseRepo, cacheSvc, validate, logr)
	bookingSvc := service.NewBookingService(meetingRepo, courseRepo, validate, logr)
	requestSvc := service.NewTeachingRequestService(requestRepo, userRepo, courseRepo, userRepo, cacheSvc,
		service.TeachingRequestConfig{ReapplyAfterRejection: cfg.Teaching.ReapplyAfterRejection}, logr)
	exportSvc := service.NewScheduleExportService(meetingRepo, export.NewCSVRenderer(), export.NewPDFRenderer(), logr)

	exportStore, err := storage.NewLocalStore(cfg.Export.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewTokenSigner(cfg.Export.TokenSecret, cfg.Export.TokenTTL)
	worker := service.NewExportWorker(exportJobRepo, userRepo, exportSvc, exportStore, signer, cfg.Export.MaxRetries, logr)
	exportQueue := jobs.New("schedule-export", worker.Handle, jobs.Options{
		Workers:    cfg.Export.Workers,
		MaxRetries: cfg.Export.MaxRetries,
		Logger:     logr,
	})
	jobSvc := service.NewExportJobService(exportJobRepo, exportQueue, exportStore, signer, service.ExportJobConfig{
		ResultTTL:       cfg.Export.ResultTTL,
		CleanupInterval: cfg.Export.CleanupInterval,
		MaxRetries:      cfg.Export.MaxRetries,
	}, logr)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exportQueue.Start(rootCtx)
	defer exportQueue.Stop()
	jobSvc.RecoverPendingJobs(rootCtx)
	jobSvc.StartCleanup(rootCtx)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	handler.Register(api, handler.Services{
		Auth:     authSvc,
		Users:    userSvc,
		Courses:  enrollmentSvc,
		Booking:  bookingSvc,
		Requests: requestSvc,
		Export:   exportSvc,
		Jobs:     jobSvc,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
