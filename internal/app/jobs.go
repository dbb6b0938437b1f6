package app

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/alexsenin/academy-scheduler/internal/calendar"
	"github.com/alexsenin/academy-scheduler/internal/service"
)

// GenerationJob периодически запускает пасс генерации занятий над скользящим
// окном. Сам движок генерации при этом остаётся вызываемым по требованию:
// здесь только крон-подобный вызывающий и его политика ретраев.
type GenerationJob struct {
	generation *service.GenerationService
	windowDays int
	interval   time.Duration
	logger     *zap.Logger
	stopChan   chan struct{}
}

// NewGenerationJob создаёт новую фоновую задачу генерации
func NewGenerationJob(generation *service.GenerationService, windowDays int, interval time.Duration, logger *zap.Logger) *GenerationJob {
	return &GenerationJob{
		generation: generation,
		windowDays: windowDays,
		interval:   interval,
		logger:     logger,
		stopChan:   make(chan struct{}),
	}
}

// Start запускает фоновую задачу
func (j *GenerationJob) Start(ctx context.Context) {
	j.logger.Info("Starting generation job",
		zap.Int("window_days", j.windowDays),
		zap.Duration("interval", j.interval),
	)

	go j.run(ctx)
}

// Stop останавливает фоновую задачу
func (j *GenerationJob) Stop() {
	j.logger.Info("Stopping generation job")
	close(j.stopChan)
}

func (j *GenerationJob) run(ctx context.Context) {
	// Первый запуск сразу при старте
	j.runOnce(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.runOnce(ctx)
		case <-j.stopChan:
			j.logger.Info("Generation job stopped")
			return
		case <-ctx.Done():
			j.logger.Info("Generation job cancelled")
			return
		}
	}
}

// runOnce выполняет один пасс генерации с ретраями на транзиентных сбоях
// хранилища. Ретраить весь пасс безопасно: генерация идемпотентна.
// Ошибки отдельных серий внутри успешного пасса не ретраятся здесь -
// они дождутся следующего тика.
func (j *GenerationJob) runOnce(ctx context.Context) {
	today := calendar.FromTime(time.Now())
	windowEnd := today.AddDays(j.windowDays)

	backoff := retry.WithMaxRetries(3, retry.NewExponential(time.Second))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		result, err := j.generation.GenerateInstances(ctx, today, windowEnd, nil)
		if err != nil {
			return retry.RetryableError(err)
		}

		for _, se := range result.Errors {
			j.logger.Error("Series generation failed",
				zap.String("series_id", se.SeriesID.String()),
				zap.Error(se.Err),
			)
		}

		j.logger.Info("Generation pass finished",
			zap.String("window_start", today.String()),
			zap.String("window_end", windowEnd.String()),
			zap.Int("created", result.Created),
			zap.Int("failed_series", len(result.Errors)),
		)
		return nil
	})

	if err != nil {
		j.logger.Error("Generation pass failed after retries", zap.Error(err))
	}
}
