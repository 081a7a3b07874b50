package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/presentia-id/presentia-api/api/swagger"
	"github.com/presentia-id/presentia-api/internal/handler"
	"github.com/presentia-id/presentia-api/internal/middleware"
	"github.com/presentia-id/presentia-api/internal/models"
	"github.com/presentia-id/presentia-api/internal/repository"
	"github.com/presentia-id/presentia-api/internal/service"
	"github.com/presentia-id/presentia-api/pkg/cache"
	"github.com/presentia-id/presentia-api/pkg/config"
	"github.com/presentia-id/presentia-api/pkg/database"
	"github.com/presentia-id/presentia-api/pkg/logger"
	corsmiddleware "github.com/presentia-id/presentia-api/pkg/middleware/cors"
	reqidmiddleware "github.com/presentia-id/presentia-api/pkg/middleware/requestid"
)

// @title Presentia API
// @version 1.0.0
// @description Timetable-aware attendance core: session resolution, override workflow, scan recording
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			repo := repository.NewCacheRepository(redisClient, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.DaySheetTTL, logr, cacheRepo != nil)

	slotRepo := repository.NewScheduleSlotRepository(db)
	overrideRepo := repository.NewOverrideRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	validate := validator.New()

	tokenSvc := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	resolverSvc := service.NewResolverService(slotRepo, overrideRepo, metrics, logr)
	overrideSvc := service.NewOverrideService(overrideRepo, slotRepo, auditRepo, metrics, validate, logr)
	recorderSvc := service.NewRecorderService(enrollmentRepo, slotRepo, resolverSvc, attendanceRepo, cacheSvc, auditRepo, metrics, validate, logr, cfg.Attendance)
	scheduleSvc := service.NewScheduleService(slotRepo, resolverSvc, validate, logr)
	exportSvc := service.NewExportService(recorderSvc, logr)

	scanHandler := handler.NewScanHandler(recorderSvc)
	overrideHandler := handler.NewOverrideHandler(overrideSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	recordHandler := handler.NewRecordHandler(recorderSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Docs.Enabled && cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))
	{
		schedules := api.Group("/schedules")
		{
			schedules.POST("", middleware.RBAC(models.RoleAdmin), scheduleHandler.Create)
			schedules.GET("", middleware.RBAC(models.RoleAdmin, models.RoleTeacher), scheduleHandler.List)
			schedules.GET("/:id", middleware.RBAC(models.RoleAdmin, models.RoleTeacher), scheduleHandler.Get)
			schedules.DELETE("/:id", middleware.RBAC(models.RoleAdmin), scheduleHandler.Deactivate)
			schedules.GET("/:id/session", middleware.RBAC(models.RoleAdmin, models.RoleTeacher, models.RoleScanner), scheduleHandler.Session)
			schedules.GET("/:id/day-sheet", middleware.RBAC(models.RoleAdmin, models.RoleTeacher), recordHandler.DaySheet)
			schedules.GET("/:id/day-sheet/export", middleware.RBAC(models.RoleAdmin, models.RoleTeacher), recordHandler.Export)
		}

		overrides := api.Group("/overrides")
		{
			overrides.POST("", middleware.RBAC(models.RoleTeacher), overrideHandler.Create)
			overrides.GET("", middleware.RBAC(models.RoleAdmin, models.RoleTeacher), overrideHandler.List)
			overrides.GET("/:id", middleware.RBAC(models.RoleAdmin, models.RoleTeacher), overrideHandler.Get)
			overrides.POST("/:id/decision", middleware.RBAC(models.RoleAdmin), overrideHandler.Decide)
		}

		api.POST("/scans", middleware.RBAC(models.RoleScanner, models.RoleTeacher, models.RoleAdmin), scanHandler.Create)
		api.GET("/attendance/records", middleware.RBAC(models.RoleAdmin, models.RoleTeacher), recordHandler.List)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
