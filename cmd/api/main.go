package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campusplan/timetable-api/api/swagger"
	"github.com/campusplan/timetable-api/internal/handler"
	"github.com/campusplan/timetable-api/internal/middleware"
	"github.com/campusplan/timetable-api/internal/repository"
	"github.com/campusplan/timetable-api/internal/service"
	"github.com/campusplan/timetable-api/pkg/cache"
	"github.com/campusplan/timetable-api/pkg/config"
	"github.com/campusplan/timetable-api/pkg/database"
	"github.com/campusplan/timetable-api/pkg/logger"
	corsmiddleware "github.com/campusplan/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusplan/timetable-api/pkg/middleware/requestid"
	"github.com/campusplan/timetable-api/pkg/solver"
)

// @title Campus Timetable API
// @version 1.0.0
// @description Weekly timetable planning with an external constraint solver
// @BasePath /
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("postgres connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, timetable cache disabled", "error", err)
		redisClient = nil
	}

	// Repositories.
	instanceRepo := repository.NewScheduleInstanceRepository(db)
	availabilityRepo := repository.NewAvailabilityTemplateRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	personnelRepo := repository.NewPersonnelRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	eventRepo := repository.NewEventRepository(db)
	preferenceRepo := repository.NewPreferenceRepository(db)

	// Services.
	metricsSvc := service.NewMetricsService()
	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Timetable.CacheTTL, logr, cfg.Timetable.CacheEnabled)
	}

	availabilitySvc := service.NewAvailabilityService(availabilityRepo, nil, logr)
	poolMembers := service.NewPoolMembership(courseRepo, sectionRepo, personnelRepo, roomRepo)
	instanceSvc := service.NewInstanceService(instanceRepo, availabilityRepo, poolMembers, nil, logr)
	courseSvc := service.NewCourseService(courseRepo, nil, logr)
	structureSvc := service.NewStructureService(sectionRepo, nil, logr)
	personnelSvc := service.NewPersonnelService(personnelRepo, nil, logr)
	roomSvc := service.NewRoomService(roomRepo, nil, logr)
	preferenceSvc := service.NewPreferenceService(preferenceRepo, instanceRepo, personnelRepo, courseRepo, nil, logr)

	solverClient := solver.New(cfg.Solver, logr)
	allocationSvc := service.NewAllocationService(
		instanceRepo,
		courseRepo,
		sectionRepo,
		personnelRepo,
		roomRepo,
		preferenceRepo,
		eventRepo,
		availabilitySvc,
		solverClient,
		db,
		cacheSvc,
		metricsSvc,
		logr,
	)
	timetableSvc := service.NewTimetableService(eventRepo, instanceRepo, roomRepo, personnelRepo, courseRepo, cacheSvc, nil, logr)

	// Handlers.
	instanceHandler := handler.NewInstanceHandler(instanceSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	sectionHandler := handler.NewSectionHandler(structureSvc)
	personnelHandler := handler.NewPersonnelHandler(personnelSvc)
	roomHandler := handler.NewRoomHandler(roomSvc)
	preferenceHandler := handler.NewPreferenceHandler(preferenceSvc)
	allocationHandler := handler.NewAllocationHandler(allocationSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r, cfg,
		instanceHandler, availabilityHandler, courseHandler, sectionHandler,
		personnelHandler, roomHandler, preferenceHandler, allocationHandler,
		timetableHandler)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

func registerRoutes(
	r *gin.Engine,
	cfg *config.Config,
	instances *handler.InstanceHandler,
	availability *handler.AvailabilityHandler,
	courses *handler.CourseHandler,
	sections *handler.SectionHandler,
	personnel *handler.PersonnelHandler,
	rooms *handler.RoomHandler,
	preferences *handler.PreferenceHandler,
	allocation *handler.AllocationHandler,
	timetable *handler.TimetableHandler,
) {
	api := r.Group(cfg.APIPrefix)

	// Read surface stays open; every mutation sits behind bearer auth.
	api.GET("/schedule-instances", instances.List)
	api.GET("/schedule-instances/:id", instances.Get)
	api.GET("/schedule-instances/:id/pool", instances.Pool)
	api.GET("/schedule-instances/:id/preferences", preferences.ListByInstance)
	api.GET("/schedule-instances/:id/solver-request", allocation.ExportRequest)
	api.GET("/schedule-instances/:id/timetable.csv", timetable.ExportCSV)
	api.GET("/schedule-instances/:id/timetable.pdf", timetable.ExportPDF)
	api.GET("/availability-templates", availability.List)
	api.GET("/availability-templates/:id", availability.Get)
	api.GET("/courses", courses.List)
	api.GET("/courses/:id", courses.Get)
	api.GET("/sections", sections.List)
	api.GET("/sections/:id", sections.Get)
	api.GET("/personnel", personnel.List)
	api.GET("/personnel/:id", personnel.Get)
	api.GET("/rooms", rooms.List)
	api.GET("/rooms/:id", rooms.Get)
	api.GET("/timetable/events", timetable.ListEvents)
	api.GET("/timetable/free-resources", timetable.FreeResources)

	protected := api.Group("")
	protected.Use(middleware.JWT(cfg.JWT.Secret))

	protected.POST("/schedule-instances", instances.Create)
	protected.PUT("/schedule-instances/:id", instances.Update)
	protected.DELETE("/schedule-instances/:id", instances.Delete)
	protected.PUT("/schedule-instances/:id/status", instances.SetStatus)
	protected.PUT("/schedule-instances/:id/pool/:resource/:resourceId", instances.AssignResource)
	protected.DELETE("/schedule-instances/:id/pool/:resource/:resourceId", instances.UnassignResource)
	protected.POST("/schedule-instances/:id/solve", allocation.Solve)
	protected.POST("/schedule-instances/:id/solution", allocation.ImportSolution)
	protected.PUT("/schedule-instances/:id/preferences", preferences.Upsert)
	protected.DELETE("/preferences/:id", preferences.Delete)

	protected.POST("/availability-templates", availability.Create)
	protected.PUT("/availability-templates/:id/blocks", availability.ReplaceBlocks)
	protected.DELETE("/availability-templates/:id", availability.Delete)

	protected.POST("/courses", courses.Create)
	protected.PUT("/courses/:id", courses.Update)
	protected.DELETE("/courses/:id", courses.Delete)
	protected.POST("/courses/:id/activity-templates", courses.AddTemplate)
	protected.DELETE("/activity-templates/:id", courses.RemoveTemplate)

	protected.POST("/sections", sections.Create)
	protected.DELETE("/sections/:id", sections.Delete)
	protected.POST("/sections/:id/groups", sections.CreateGroup)
	protected.DELETE("/groups/:id", sections.DeleteGroup)

	protected.POST("/personnel", personnel.Create)
	protected.PUT("/personnel/:id", personnel.Update)
	protected.DELETE("/personnel/:id", personnel.Delete)

	protected.POST("/rooms", rooms.Create)
	protected.PUT("/rooms/:id", rooms.Update)
	protected.DELETE("/rooms/:id", rooms.Delete)

	protected.PATCH("/events/:id/assignment", timetable.PatchAssignment)
}
