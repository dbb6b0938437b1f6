package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alexsenin/academy-scheduler/internal/calendar"
	"github.com/alexsenin/academy-scheduler/internal/model"
	"github.com/alexsenin/academy-scheduler/internal/validation"
)

// SeriesService управляет жизненным циклом серий
type SeriesService struct {
	seriesStore   SeriesStore
	instanceStore InstanceStore
	logger        *zap.Logger
	now           func() time.Time
}

// NewSeriesService создаёт новый сервис серий
func NewSeriesService(seriesStore SeriesStore, instanceStore InstanceStore, logger *zap.Logger) *SeriesService {
	return &SeriesService{
		seriesStore:   seriesStore,
		instanceStore: instanceStore,
		logger:        logger,
		now:           time.Now,
	}
}

// Create валидирует и сохраняет новую серию. Занятия синхронно не создаются:
// их материализует ближайший пасс генерации над скользящим окном, так
// создание серии не зависит от политики размера окна.
func (s *SeriesService) Create(ctx context.Context, in validation.SeriesInput) (*model.Series, error) {
	series, verrs := validation.ValidateSeries(in)
	if verrs != nil {
		return nil, verrs
	}

	if err := s.seriesStore.Create(ctx, series); err != nil {
		return nil, fmt.Errorf("create series: %w", err)
	}

	s.logger.Info("Series created",
		zap.String("series_id", series.ID.String()),
		zap.String("title", series.Title),
		zap.Int("weekday", series.Weekday),
		zap.String("start_time", series.StartTime),
	)

	return series, nil
}

// Update применяет частичное обновление к серии. Уже созданные занятия
// не переписываются: их поля - снимок серии на момент генерации. Если нужно
// распространить изменение на будущие даты, вызывающий явно запускает
// повторный пасс генерации.
func (s *SeriesService) Update(ctx context.Context, id uuid.UUID, patch validation.SeriesPatch) (*model.Series, error) {
	upd, verrs := validation.ValidatePartialSeries(patch)
	if verrs != nil {
		return nil, verrs
	}

	series, err := s.seriesStore.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get series: %w", err)
	}
	if series == nil {
		return nil, ErrSeriesNotFound
	}

	upd.Apply(series)

	if err := s.seriesStore.Update(ctx, series); err != nil {
		return nil, fmt.Errorf("update series: %w", err)
	}

	s.logger.Info("Series updated",
		zap.String("series_id", series.ID.String()),
	)

	return series, nil
}

// RetireResult итог снятия серии
type RetireResult struct {
	Deactivated    bool
	CancelledCount int64
	CascadeErr     error // каскадная отмена не удалась, серия при этом снята
}

// Retire снимает серию: active=false, active_until=сегодня. При cascade=true
// дополнительно отменяются будущие занятия серии, кроме завершённых и уже
// отменённых.
//
// Деактивация не откатывается при сбое каскада: серия остаётся корректно
// снятой (генерация дальше сегодняшней даты невозможна), а оставшиеся
// занятия со статусом scheduled отражены в CascadeErr как частичный успех.
func (s *SeriesService) Retire(ctx context.Context, id uuid.UUID, cascade bool) (*RetireResult, error) {
	series, err := s.seriesStore.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get series: %w", err)
	}
	if series == nil {
		return nil, ErrSeriesNotFound
	}

	today := calendar.FromTime(s.now())

	if err := s.seriesStore.Retire(ctx, id, today); err != nil {
		return nil, fmt.Errorf("retire series: %w", err)
	}

	result := &RetireResult{Deactivated: true}

	if cascade {
		count, err := s.instanceStore.CancelFutureBySeries(ctx, id, today)
		if err != nil {
			result.CascadeErr = fmt.Errorf("cascade cancel: %w", err)
			s.logger.Warn("Series retired but cascade cancel failed",
				zap.String("series_id", id.String()),
				zap.Error(err),
			)
			return result, nil
		}
		result.CancelledCount = count
	}

	s.logger.Info("Series retired",
		zap.String("series_id", id.String()),
		zap.Bool("cascade", cascade),
		zap.Int64("cancelled", result.CancelledCount),
	)

	return result, nil
}
