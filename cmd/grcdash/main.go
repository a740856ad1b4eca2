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

	"github.com/grcdash/grcdash/internal/app"
	"github.com/grcdash/grcdash/internal/auth"
	"github.com/grcdash/grcdash/internal/grc"
	grchttp "github.com/grcdash/grcdash/internal/grc/http"
	"github.com/grcdash/grcdash/internal/observability"
	"github.com/grcdash/grcdash/internal/platform/cache"
	"github.com/grcdash/grcdash/internal/platform/db"
	"github.com/grcdash/grcdash/internal/platform/filestore"
	"github.com/grcdash/grcdash/internal/shared"
	"github.com/grcdash/grcdash/internal/users"
	"github.com/grcdash/grcdash/internal/view"
	"github.com/grcdash/grcdash/jobs"
	"github.com/grcdash/grcdash/migrations"
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

	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if cfg.MigrateOnRun {
		applied, err := db.Migrate(ctx, dbpool, migrations.Files)
		if err != nil {
			logger.Error("apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migrations applied", slog.Any("files", applied))
	}

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

	files, err := filestore.New(ctx, cfg.FileStore())
	if err != nil {
		logger.Error("open file store", slog.String("backend", cfg.FileStoreBackend), slog.Any("error", err))
		os.Exit(1)
	}

	sessionManager := shared.NewSessionManager(redisClient, "grcdash_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	authService := auth.NewService(auth.NewRepository(dbpool))
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	userService := users.NewService(users.NewRepository(dbpool))
	usersHandler := users.NewHandler(logger, userService, templates, csrfManager)

	grcService := grc.NewService(grc.NewRepository(dbpool), files, shared.NewAuditLogger(dbpool), logger)
	grcHandler := grchttp.NewHandler(logger, grcService, userService, templates, csrfManager, cfg.MaxUploadBytes)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    authHandler,
		GRCHandler:     grcHandler,
		UsersHandler:   usersHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("filestore", cfg.FileStoreBackend))
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
