package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alexsenin/academy-scheduler/internal/app"
	"github.com/alexsenin/academy-scheduler/internal/config"
	"github.com/alexsenin/academy-scheduler/internal/repository"
	"github.com/alexsenin/academy-scheduler/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Sugar().Infow("Starting academy scheduler",
		"environment", cfg.Environment,
		"window_days", cfg.GenerationWindowDays,
		"workers", cfg.GenerationWorkers,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Sugar().Fatalw("Failed to create connection pool", "error", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Sugar().Fatalw("Failed to ping database", "error", err)
	}

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		logger.Sugar().Fatalw("Failed to create migrator", "error", err)
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Sugar().Fatalw("Failed to apply migrations", "error", err)
	}
	if err := migrator.Close(); err != nil {
		logger.Sugar().Warnw("Failed to close migrator", "error", err)
	}

	seriesRepo := repository.NewSeriesRepository(pool, logger)
	instanceRepo := repository.NewInstanceRepository(pool, logger)

	generationService := service.NewGenerationService(seriesRepo, instanceRepo, cfg.GenerationWorkers, logger)

	job := app.NewGenerationJob(
		generationService,
		cfg.GenerationWindowDays,
		time.Duration(cfg.GenerationIntervalHours)*time.Hour,
		logger,
	)
	job.Start(ctx)

	logger.Info("Academy scheduler started")

	<-ctx.Done()

	job.Stop()
	logger.Info("Academy scheduler stopped")
}
