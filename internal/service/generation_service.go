package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alexsenin/academy-scheduler/internal/calendar"
	"github.com/alexsenin/academy-scheduler/internal/model"
	"github.com/alexsenin/academy-scheduler/internal/schedule"
)

// GenerationService материализует занятия серий в скользящем окне.
// Сервис не хранит состояния между вызовами: каждый вызов заново строит
// свой снимок из хранилища.
type GenerationService struct {
	seriesStore   SeriesStore
	instanceStore InstanceStore
	workers       int
	logger        *zap.Logger
}

// NewGenerationService создаёт новый сервис генерации.
// workers ограничивает параллелизм массовой реконсиляции.
func NewGenerationService(seriesStore SeriesStore, instanceStore InstanceStore, workers int, logger *zap.Logger) *GenerationService {
	if workers < 1 {
		workers = 1
	}
	return &GenerationService{
		seriesStore:   seriesStore,
		instanceStore: instanceStore,
		workers:       workers,
		logger:        logger,
	}
}

// SeriesError ошибка генерации по одной серии
type SeriesError struct {
	SeriesID uuid.UUID
	Err      error
}

// GenerationResult итог пасса генерации: сколько занятий создано
// и какие серии не удалось обработать
type GenerationResult struct {
	Created int
	Errors  []SeriesError
}

// GenerateInstances выполняет один пасс реконсиляции над окном
// [windowStart, windowEnd]. Если seriesID задан, обрабатывается только эта
// серия; иначе все активные серии, чьё окно пересекается с запрошенным.
//
// Пасс идемпотентен: повторный вызов с тем же окном не создаёт новых строк.
// Ошибка одной серии не прерывает остальные - она попадает в result.Errors.
func (s *GenerationService) GenerateInstances(ctx context.Context, windowStart, windowEnd calendar.Date, seriesID *uuid.UUID) (*GenerationResult, error) {
	if windowStart.After(windowEnd) {
		return nil, fmt.Errorf("generate instances: window start %s after window end %s", windowStart, windowEnd)
	}

	if seriesID != nil {
		series, err := s.seriesStore.GetByID(ctx, *seriesID)
		if err != nil {
			return nil, fmt.Errorf("get series: %w", err)
		}
		if series == nil {
			return nil, ErrSeriesNotFound
		}

		created, err := s.generateForSeries(ctx, series, windowStart, windowEnd)
		result := &GenerationResult{Created: created}
		if err != nil {
			result.Errors = append(result.Errors, SeriesError{SeriesID: series.ID, Err: err})
		}
		return result, nil
	}

	list, err := s.seriesStore.ListActiveIntersecting(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("list active series: %w", err)
	}

	var (
		mu     sync.Mutex
		result GenerationResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, series := range list {
		g.Go(func() error {
			created, err := s.generateForSeries(gctx, series, windowStart, windowEnd)

			mu.Lock()
			defer mu.Unlock()
			result.Created += created
			if err != nil {
				// Ошибка серии изолирована: соседние серии продолжают
				result.Errors = append(result.Errors, SeriesError{SeriesID: series.ID, Err: err})
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("generate instances: %w", err)
	}

	sort.Slice(result.Errors, func(i, j int) bool {
		return result.Errors[i].SeriesID.String() < result.Errors[j].SeriesID.String()
	})

	s.logger.Info("Instance generation pass completed",
		zap.String("window_start", windowStart.String()),
		zap.String("window_end", windowEnd.String()),
		zap.Int("series_total", len(list)),
		zap.Int("created", result.Created),
		zap.Int("failed_series", len(result.Errors)),
	)

	return &result, nil
}

// generateForSeries реконсилирует одну серию: снимок существующих дат
// читается целиком до первой вставки, чтобы решение "чего не хватает"
// принималось по консистентному состоянию.
func (s *GenerationService) generateForSeries(ctx context.Context, series *model.Series, windowStart, windowEnd calendar.Date) (int, error) {
	existing, err := s.instanceStore.DatesBySeries(ctx, series.ID, windowStart, windowEnd)
	if err != nil {
		return 0, fmt.Errorf("read existing dates: %w", err)
	}

	wanted := schedule.Expand(series, windowStart, windowEnd)
	missing := schedule.MissingDates(wanted, existing)

	created := 0
	for _, date := range missing {
		seriesID := series.ID
		inst := &model.ClassInstance{
			SeriesID:   &seriesID,
			Date:       date,
			StartTime:  series.StartTime,
			EndTime:    series.EndTime,
			Instructor: series.Instructor,
			Capacity:   series.Capacity,
			Category:   series.Category,
			ClassType:  series.ClassType,
			Status:     model.InstanceStatusScheduled,
		}

		ok, err := s.instanceStore.CreateSkipConflict(ctx, inst)
		if err != nil {
			// Контекст даты нужен вызывающему, чтобы ретраить узко,
			// а не весь батч
			return created, fmt.Errorf("create instance on %s: %w", date, err)
		}
		if ok {
			created++
		} else {
			s.logger.Debug("Instance already exists, skipping",
				zap.String("series_id", series.ID.String()),
				zap.String("date", date.String()),
			)
		}
	}

	return created, nil
}
