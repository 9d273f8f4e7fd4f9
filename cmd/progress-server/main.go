package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gyssa-prince/student-progress-system/internal/api"
	"github.com/gyssa-prince/student-progress-system/internal/codeforces"
	"github.com/gyssa-prince/student-progress-system/internal/config"
	"github.com/gyssa-prince/student-progress-system/internal/mailer"
	"github.com/gyssa-prince/student-progress-system/internal/notify"
	"github.com/gyssa-prince/student-progress-system/internal/scheduler"
	"github.com/gyssa-prince/student-progress-system/internal/storage"
	"github.com/gyssa-prince/student-progress-system/internal/syncer"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting progress-server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Run database migrations
	slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
	if err := storage.MigrateFromDSN(initCtx, cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize database repository
	repo, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: int32(cfg.Database.MaxOpenConns),
		MaxIdleConns: int32(cfg.Database.MaxIdleConns),
	})
	if err != nil {
		slog.Error("failed to create database repository", "error", err)
		os.Exit(1)
	}
	slog.Info("database connected successfully")

	// Redis backs the sync-run lease
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(initCtx).Err(); err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	lease := syncer.NewRedisLease(redisClient, "progress:sync:lease", cfg.Sync.LeaseTTL)

	// Codeforces client, shared across workers so the rate ceiling holds
	// in aggregate
	cfClient := codeforces.NewClient(codeforces.Options{
		BaseURL:            cfg.Codeforces.BaseURL,
		MinRequestInterval: cfg.Codeforces.MinRequestInterval,
		RequestTimeout:     cfg.Codeforces.RequestTimeout,
		MaxAttempts:        cfg.Codeforces.MaxAttempts,
		PageSize:           cfg.Codeforces.PageSize,
	})

	// Sync engine
	worker := syncer.NewWorker(cfClient, repo)
	orchestrator := syncer.NewOrchestrator(repo, worker, lease, syncer.Options{
		Workers:        cfg.Sync.Workers,
		AccountTimeout: cfg.Sync.AccountTimeout,
	})

	// Mail + inactivity notifier
	reminderTemplate, err := mailer.LoadReminderTemplate(cfg.Templates.Dir)
	if err != nil {
		slog.Error("failed to load reminder template", "error", err)
		os.Exit(1)
	}

	smtpMailer := mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
	})
	notifier := notify.NewNotifier(repo, smtpMailer, reminderTemplate)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start scheduled sync trigger
	runner := scheduler.NewRunner(orchestrator, notifier, cfg.Sync.Interval, cfg.Sync.InactivityWindowDays)
	runner.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, repo, orchestrator, notifier, cfg.Sync.InactivityWindowDays)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Minute, // sync-all responds only when the run completes
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if err := redisClient.Close(); err != nil {
		slog.Error("redis close error", "error", err)
	}

	if err := repo.Close(); err != nil {
		slog.Error("repository close error", "error", err)
	}

	slog.Info("progress-server stopped")
}
