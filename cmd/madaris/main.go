package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/madaris-app/madaris/internal/app"
	"github.com/madaris-app/madaris/internal/auth"
	"github.com/madaris-app/madaris/internal/classes"
	"github.com/madaris-app/madaris/internal/enrollment"
	"github.com/madaris-app/madaris/internal/grades"
	"github.com/madaris-app/madaris/internal/ledger"
	"github.com/madaris-app/madaris/internal/observability"
	"github.com/madaris-app/madaris/internal/platform/cache"
	"github.com/madaris-app/madaris/internal/platform/db"
	"github.com/madaris-app/madaris/internal/rbac"
	"github.com/madaris-app/madaris/internal/shared"
	"github.com/madaris-app/madaris/internal/storage"
	"github.com/madaris-app/madaris/internal/students"
	"github.com/madaris-app/madaris/internal/teachers"
	"github.com/madaris-app/madaris/internal/users"
	"github.com/madaris-app/madaris/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "madaris_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	rbacMiddleware := rbac.Middleware{Logger: logger}
	metrics := observability.NewMetrics()

	fileStore, err := storage.NewFSStore(cfg.StorageDir, cfg.FilesBaseURL)
	if err != nil {
		logger.Error("init file store", slog.Any("error", err))
		os.Exit(1)
	}

	taskClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Warn("task client close", slog.Any("error", err))
		}
	}()

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, logger)
	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(usersService, authRepo, redisClient, logger).WithTaskClient(taskClient)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	studentsRepo := students.NewRepository(dbpool)
	studentsService := students.NewService(studentsRepo, logger)
	studentsHandler := students.NewHandler(logger, studentsService, rbacMiddleware)

	teachersRepo := teachers.NewRepository(dbpool)
	teachersService := teachers.NewService(teachersRepo, logger)
	teachersHandler := teachers.NewHandler(logger, teachersService, rbacMiddleware)

	classesRepo := classes.NewRepository(dbpool)
	classesService := classes.NewService(classesRepo, fileStore, logger).
		WithTeacherDirectory(teachersService)

	enrollmentRepo := enrollment.NewRepository(dbpool)
	enrollmentService := enrollment.NewService(enrollmentRepo, classesService, logger)
	classesService.WithEnrollments(enrollmentService)

	classesHandler := classes.NewHandler(logger, classesService, rbacMiddleware)
	enrollmentHandler := enrollment.NewHandler(logger, enrollmentService, rbacMiddleware)

	gradesRepo := grades.NewRepository(dbpool)
	gradesService := grades.NewService(gradesRepo, logger)
	gradesHandler := grades.NewHandler(logger, gradesService, rbacMiddleware)

	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerFeed := ledger.NewFeed(redisClient, logger)
	reportCache := ledger.NewReportCache(redisClient, 10*time.Minute)
	ledgerService := ledger.NewService(ledgerRepo, ledgerFeed, reportCache, metrics, logger).
		WithStudentDirectory(studentsService).
		WithDefaultCurrency(cfg.DefaultCurrency)
	ledgerHandler := ledger.NewHandler(logger, ledgerService, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		AuthHandler:       authHandler,
		UsersHandler:      usersHandler,
		StudentsHandler:   studentsHandler,
		TeachersHandler:   teachersHandler,
		ClassesHandler:    classesHandler,
		EnrollmentHandler: enrollmentHandler,
		GradesHandler:     gradesHandler,
		LedgerHandler:     ledgerHandler,
		JobHandler:        jobHandler,
		FileStore:         fileStore,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
