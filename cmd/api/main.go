package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httptransport "github.com/coursekit/course-service/internal/api/http"
	"github.com/coursekit/course-service/internal/api/http/handlers"
	"github.com/coursekit/course-service/internal/auth"
	"github.com/coursekit/course-service/internal/config"
	"github.com/coursekit/course-service/internal/enrollment"
	"github.com/coursekit/course-service/internal/events"
	"github.com/coursekit/course-service/internal/notify"
	"github.com/coursekit/course-service/internal/observability"
	"github.com/coursekit/course-service/internal/payments"
	"github.com/coursekit/course-service/internal/persistence"
	"github.com/coursekit/course-service/internal/repository"
	"github.com/coursekit/course-service/internal/service"
	"github.com/coursekit/course-service/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, cfg.App.Name, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	if pg.PoolHandle() == nil {
		logger.Fatal("POSTGRES_DSN is required")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	store := repository.NewStore(pg.PoolHandle())
	dispatcher := events.NewInMemoryDispatcher()
	deps := service.Dependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Clock:      enrollment.SystemClock,
		Metrics:    metrics,
		Logger:     logger,
	}

	var mailer notify.Mailer = notify.NewLogMailer(logger)
	if cfg.Notification.SendGridAPIKey != "" {
		mailer = notify.NewSendGridMailer(cfg.Notification.SendGridAPIKey, "", cfg.Notification.EmailFromName, cfg.Notification.EmailFrom, logger)
	} else {
		logger.Warn("SENDGRID_API_KEY not provided; emails are only logged")
	}
	service.NewNotificationService(dispatcher, mailer, logger).RegisterHandlers()

	var gateway payments.Gateway
	if cfg.Square.Enabled() {
		sq, err := payments.NewSquareGateway(cfg.Square, "", logger)
		if err != nil {
			logger.Fatal("invalid square configuration", zap.Error(err))
		}
		gateway = sq
	} else {
		logger.Warn("square not configured; checkout disabled")
	}

	var uploader storage.Uploader
	if cfg.Storage.UploadURL != "" {
		uploader = storage.NewHTTPUploader(cfg.Storage.UploadURL, cfg.Storage.APIKey, cfg.Storage.PublicBaseURL, cfg.Storage.Timeout())
	} else {
		logger.Warn("STORAGE_UPLOAD_URL not provided; image upload disabled")
	}

	attendance := enrollment.NewAttendance(cfg.Attendance.Offset())
	attendance.MaxDraws = cfg.Attendance.MaxCodeDrawsPerIssue
	limiter := persistence.NewAttemptLimiter(redis.Client, "attendance:attempts", cfg.Attendance.MaxValidateAttempts, cfg.Attendance.AttemptWindow())

	authService := service.NewAuthService(cfg.Auth, deps)
	courseService := service.NewCourseService(deps, cfg.Square.Currency)
	enrollmentService := service.NewEnrollmentService(deps)
	attendanceService := service.NewAttendanceService(deps, attendance, limiter)
	approvalService := service.NewApprovalService(deps)
	checkoutService := service.NewCheckoutService(deps, gateway)
	assetService := service.NewAssetService(deps, uploader, cfg.Storage.MaxImageBytes)

	if cfg.Auth.AdminEmail != "" && cfg.Auth.AdminPassword != "" {
		if _, err := authService.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			logger.Fatal("failed to seed admin", zap.Error(err))
		}
	}

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), store.Repos().Users)

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: int(cfg.Storage.MaxImageBytes) + 1<<20,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	routes := httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Courses:        handlers.NewCourseHandler(courseService, assetService),
		Enrollment:     handlers.NewEnrollmentHandler(enrollmentService, attendanceService, approvalService, checkoutService),
		AuthMiddleware: authMiddleware,
	}
	if cfg.Metrics.Enabled {
		routes.Metrics = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
		routes.MetricsPath = cfg.Metrics.Path
	}
	httptransport.RegisterRoutes(app, routes)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
