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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/grcdash/grcdash/internal/app"
	"github.com/grcdash/grcdash/internal/grc"
	jobmetrics "github.com/grcdash/grcdash/internal/jobs"
	"github.com/grcdash/grcdash/internal/platform/db"
	"github.com/grcdash/grcdash/internal/platform/filestore"
	"github.com/grcdash/grcdash/internal/shared"
	"github.com/grcdash/grcdash/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	files, err := filestore.New(ctx, cfg.FileStore())
	if err != nil {
		logger.Error("open file store", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	client, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)
	repo := grc.NewRepository(pool)
	grcService := grc.NewService(repo, files, shared.NewAuditLogger(pool), logger)

	mailJob := &jobs.SendEmailJob{Mailer: jobs.SMTPMailer{Addr: cfg.SMTPAddr(), From: cfg.SMTPFrom}, Logger: logger, Metrics: metrics}
	digestJob := jobs.NewPOAMDigestJob(grcService, client, logger, metrics)
	sweepJob := jobs.NewOrphanSweepJob(repo, files, cfg.OrphanGrace, logger, metrics)

	digestTask, err := jobs.NewPOAMDigestTask(time.Time{})
	if err != nil {
		logger.Error("build digest task", slog.Any("error", err))
		os.Exit(1)
	}
	sweepTask, err := jobs.NewOrphanSweepTask(false)
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: mailJob.Handle},
			{Type: jobs.TaskPOAMOverdueDigest, Handler: digestJob.Handle},
			{Type: jobs.TaskArtifactOrphanSweep, Handler: sweepJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.DigestCron, Task: digestTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.OrphanSweepCron, Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("starting worker", slog.String("digest_cron", cfg.DigestCron), slog.String("sweep_cron", cfg.OrphanSweepCron))
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
	}
}
