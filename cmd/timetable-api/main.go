package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/mattva01/timetable-api/api/swagger"
	"github.com/mattva01/timetable-api/internal/handler"
	"github.com/mattva01/timetable-api/internal/middleware"
	"github.com/mattva01/timetable-api/internal/repository"
	"github.com/mattva01/timetable-api/internal/service"
	"github.com/mattva01/timetable-api/pkg/cache"
	"github.com/mattva01/timetable-api/pkg/config"
	"github.com/mattva01/timetable-api/pkg/database"
	"github.com/mattva01/timetable-api/pkg/logger"
	corsmiddleware "github.com/mattva01/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/mattva01/timetable-api/pkg/middleware/requestid"
	"github.com/mattva01/timetable-api/pkg/storage"
)

// @title Timetable API
// @version 0.1.0
// @description Schedule generation engine: day templates, term calendars, exceptions and calendar projection
// @BasePath /api/v1
// @schemes http

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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.Migrate {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, running without schedule cache", zap.Error(err))
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	termRepo := repository.NewTermRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	exceptionRepo := repository.NewExceptionRepository(db)

	termSvc := service.NewTermService(termRepo, validate, logr, cfg.Scheduler.CalendarCacheTTL, cfg.Holidays.MaxOccurrences)
	timetableSvc := service.NewTimetableService(timetableRepo, exceptionRepo, termSvc, validate, logr)
	exceptionSvc := service.NewExceptionService(exceptionRepo, timetableSvc, cacheRepo, validate, logr)
	calendarSvc := service.NewCalendarService(timetableSvc, cacheRepo, metricsSvc, validate, logr, cfg.Scheduler.EventCacheTTL, cfg.Scheduler.MaxRangeDays)

	var exportSvc *service.ExportService
	scheduler := cron.New()
	if cfg.Exports.Enabled {
		store, serr := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if serr != nil {
			logr.Fatal("failed to init export storage", zap.Error(serr))
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc = service.NewExportService(timetableSvc, calendarSvc, store, signer, metricsSvc, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
			Workers:   cfg.Exports.WorkerConcurrency,
			Retries:   cfg.Exports.WorkerRetries,
		}, validate, logr)
		exportSvc.Start(context.Background())

		spec := fmt.Sprintf("@every %s", cfg.Exports.CleanupInterval)
		if _, cerr := scheduler.AddFunc(spec, exportSvc.Cleanup); cerr != nil {
			logr.Warn("failed to schedule export cleanup", zap.Error(cerr))
		}
		scheduler.Start()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	termHandler := handler.NewTermHandler(termSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	exceptionHandler := handler.NewExceptionHandler(exceptionSvc)
	calendarHandler := handler.NewCalendarHandler(calendarSvc)

	api := r.Group(cfg.APIPrefix)
	{
		terms := api.Group("/terms")
		terms.GET("", termHandler.List)
		terms.POST("", termHandler.Create)
		terms.GET("/:id", termHandler.Get)
		terms.PUT("/:id", termHandler.Update)
		terms.DELETE("/:id", termHandler.Delete)
		terms.GET("/:id/calendar", termHandler.Calendar)
		terms.GET("/:id/overrides", termHandler.ListDayOverrides)
		terms.POST("/:id/overrides", termHandler.AddDayOverride)
		terms.DELETE("/:id/overrides/:oid", termHandler.DeleteDayOverride)
		if cfg.Holidays.Enabled {
			terms.POST("/:id/holidays/import", termHandler.ImportHolidays)
		}

		timetables := api.Group("/timetables")
		timetables.GET("", timetableHandler.List)
		timetables.POST("", timetableHandler.Create)
		timetables.GET("/:id", timetableHandler.Get)
		timetables.PUT("/:id", timetableHandler.Update)
		timetables.DELETE("/:id", timetableHandler.Delete)
		timetables.GET("/:id/template", timetableHandler.GetTemplate)
		timetables.PUT("/:id/template", timetableHandler.ReplaceTemplate)
		timetables.POST("/:id/activate", timetableHandler.Activate)

		timetables.GET("/:id/exceptions", exceptionHandler.List)
		timetables.POST("/:id/exceptions", exceptionHandler.Create)
		timetables.DELETE("/:id/exceptions/:eid", exceptionHandler.Delete)
		timetables.POST("/:id/emergency-day", exceptionHandler.EmergencyDay)

		timetables.GET("/:id/meetings", calendarHandler.Meetings)
		timetables.GET("/:id/events", calendarHandler.Events)
		timetables.GET("/:id/feed.ics", calendarHandler.ICSFeed)

		if exportSvc != nil {
			exportHandler := handler.NewExportHandler(exportSvc)
			timetables.POST("/:id/exports", exportHandler.Create)
			api.GET("/exports/:jobId", exportHandler.Get)
			api.GET("/exports/download/:token", exportHandler.Download)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down")

	scheduler.Stop()
	if exportSvc != nil {
		exportSvc.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
