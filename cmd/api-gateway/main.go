package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/opencampus/sis-api/api/swagger"
	"github.com/opencampus/sis-api/internal/handler"
	"github.com/opencampus/sis-api/internal/middleware"
	"github.com/opencampus/sis-api/internal/repository"
	"github.com/opencampus/sis-api/internal/service"
	"github.com/opencampus/sis-api/pkg/cache"
	"github.com/opencampus/sis-api/pkg/config"
	"github.com/opencampus/sis-api/pkg/database"
	"github.com/opencampus/sis-api/pkg/jobs"
	"github.com/opencampus/sis-api/pkg/logger"
	corsmiddleware "github.com/opencampus/sis-api/pkg/middleware/cors"
	reqidmiddleware "github.com/opencampus/sis-api/pkg/middleware/requestid"
)

// @title Student Information System API
// @version 1.0.0
// @description Course catalog, registration and grades for the student portal
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, catalog cache disabled", "error", err)
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()

	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	instructorRepo := repository.NewInstructorRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	eventSvc := service.NewEventService(enrollmentRepo, jobs.QueueConfig{
		Workers:    cfg.Events.Workers,
		BufferSize: cfg.Events.BufferSize,
		MaxRetries: cfg.Events.MaxRetries,
	}, logr)
	eventSvc.Start(ctx)
	defer eventSvc.Stop()

	catalogSvc := service.NewCatalogService(sectionRepo, cacheRepo, metricsSvc, service.CatalogConfig{
		Semester:     cfg.Registration.Semester,
		Year:         cfg.Registration.Year,
		CacheEnabled: cfg.Catalog.CacheEnabled,
		CacheTTL:     cfg.Catalog.CacheTTL,
	}, logr)

	registrationSvc := service.NewRegistrationService(
		enrollmentRepo, studentRepo, sectionRepo, courseRepo,
		catalogSvc, eventSvc, metricsSvc,
		service.RegistrationPolicy{AutoPromote: cfg.Registration.AutoPromote},
		logr,
	)

	gpaSvc := service.NewGPAService(enrollmentRepo, studentRepo, logr)

	studentSvc := service.NewStudentService(
		studentRepo, sectionRepo, enrollmentRepo, instructorRepo, gpaSvc,
		service.TermConfig{Semester: cfg.Registration.Semester, Year: cfg.Registration.Year},
		validate, logr,
	)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: cfg.JWT.Issuer,
	})

	authHandler := handler.NewAuthHandler(authSvc)
	registrationHandler := handler.NewRegistrationHandler(registrationSvc, catalogSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)

		api.GET("/students/available-sections", middleware.OptionalJWT(authSvc), registrationHandler.AvailableSections)

		students := api.Group("/students/:id", middleware.JWT(authSvc))
		{
			students.GET("", studentHandler.Profile)
			students.GET("/courses", studentHandler.Courses)
			students.GET("/grades", studentHandler.Grades)
			students.GET("/grades/transcript", studentHandler.Transcript)
			students.PUT("/grades/:enrollmentId", studentHandler.UpdateGrade)
			students.GET("/instructors", studentHandler.Instructors)

			students.POST("/courses/:sectionId", registrationHandler.Register)
			students.PUT("/courses/:sectionId/drop", registrationHandler.Drop)
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	_ = cacheRepo.Close()
}
