package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alexsenin/academy-scheduler/internal/calendar"
	"github.com/alexsenin/academy-scheduler/internal/model"
	"github.com/alexsenin/academy-scheduler/internal/validation"
)

func validSeriesInput() validation.SeriesInput {
	return validation.SeriesInput{
		Title:      "Morning boxing",
		Weekday:    2,
		StartTime:  "10:00",
		EndTime:    "11:00",
		Category:   "adult",
		ClassType:  "group",
		Instructor: "Ivan Petrov",
		Capacity:   12,
		ActiveFrom: "2024-01-01",
	}
}

func fixedNow(date string) func() time.Time {
	return func() time.Time {
		return calendar.MustParseDate(date).Time().Add(12 * time.Hour)
	}
}

func TestSeriesService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("persists valid series", func(t *testing.T) {
		seriesStore := newMemSeriesStore()
		svc := NewSeriesService(seriesStore, newMemInstanceStore(), zap.NewNop())

		s, err := svc.Create(ctx, validSeriesInput())

		require.NoError(t, err)
		require.NotEqual(t, uuid.Nil, s.ID)
		assert.True(t, s.Active)

		stored, err := seriesStore.GetByID(ctx, s.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "Morning boxing", stored.Title)
	})

	t.Run("does not generate instances synchronously", func(t *testing.T) {
		instanceStore := newMemInstanceStore()
		svc := NewSeriesService(newMemSeriesStore(), instanceStore, zap.NewNop())

		s, err := svc.Create(ctx, validSeriesInput())

		require.NoError(t, err)
		assert.Empty(t, instanceStore.bySeries(s.ID))
	})

	t.Run("rejects invalid input without writes", func(t *testing.T) {
		seriesStore := newMemSeriesStore()
		svc := NewSeriesService(seriesStore, newMemInstanceStore(), zap.NewNop())

		in := validSeriesInput()
		in.EndTime = "09:00"

		_, err := svc.Create(ctx, in)

		var verrs validation.FieldErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, "end_time", verrs[0].Field)
		assert.Empty(t, seriesStore.series)
	})
}

func TestSeriesService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("applies partial update", func(t *testing.T) {
		seriesStore := newMemSeriesStore()
		svc := NewSeriesService(seriesStore, newMemInstanceStore(), zap.NewNop())

		s, err := svc.Create(ctx, validSeriesInput())
		require.NoError(t, err)

		newStart, newEnd := "18:00", "19:30"
		updated, err := svc.Update(ctx, s.ID, validation.SeriesPatch{
			StartTime: &newStart,
			EndTime:   &newEnd,
		})

		require.NoError(t, err)
		assert.Equal(t, "18:00", updated.StartTime)
		assert.Equal(t, "19:30", updated.EndTime)
		assert.Equal(t, s.Title, updated.Title)
	})

	t.Run("does not rewrite materialized instances", func(t *testing.T) {
		seriesStore := newMemSeriesStore()
		instanceStore := newMemInstanceStore()
		seriesSvc := NewSeriesService(seriesStore, instanceStore, zap.NewNop())
		genSvc := NewGenerationService(seriesStore, instanceStore, 2, zap.NewNop())

		s, err := seriesSvc.Create(ctx, validSeriesInput())
		require.NoError(t, err)

		_, err = genSvc.GenerateInstances(ctx,
			calendar.MustParseDate("2024-01-08"),
			calendar.MustParseDate("2024-01-29"),
			&s.ID,
		)
		require.NoError(t, err)

		newStart := "18:00"
		newEnd := "19:00"
		_, err = seriesSvc.Update(ctx, s.ID, validation.SeriesPatch{
			StartTime: &newStart,
			EndTime:   &newEnd,
		})
		require.NoError(t, err)

		// Снимки уже созданных занятий стабильны
		for _, inst := range instanceStore.bySeries(s.ID) {
			assert.Equal(t, "10:00", inst.StartTime)
			assert.Equal(t, "11:00", inst.EndTime)
		}
	})

	t.Run("unknown series", func(t *testing.T) {
		svc := NewSeriesService(newMemSeriesStore(), newMemInstanceStore(), zap.NewNop())

		_, err := svc.Update(ctx, uuid.New(), validation.SeriesPatch{})

		assert.ErrorIs(t, err, ErrSeriesNotFound)
	})

	t.Run("invalid patch", func(t *testing.T) {
		svc := NewSeriesService(newMemSeriesStore(), newMemInstanceStore(), zap.NewNop())

		badCapacity := 0
		_, err := svc.Update(ctx, uuid.New(), validation.SeriesPatch{Capacity: &badCapacity})

		var verrs validation.FieldErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, "capacity", verrs[0].Field)
	})
}

func TestSeriesService_Retire(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*SeriesService, *memSeriesStore, *memInstanceStore, *model.Series) {
		t.Helper()

		seriesStore := newMemSeriesStore()
		instanceStore := newMemInstanceStore()
		svc := NewSeriesService(seriesStore, instanceStore, zap.NewNop())
		svc.now = fixedNow("2024-01-10")

		s, err := svc.Create(ctx, validSeriesInput())
		require.NoError(t, err)

		genSvc := NewGenerationService(seriesStore, instanceStore, 2, zap.NewNop())
		_, err = genSvc.GenerateInstances(ctx,
			calendar.MustParseDate("2024-01-08"),
			calendar.MustParseDate("2024-01-29"),
			&s.ID,
		)
		require.NoError(t, err)

		return svc, seriesStore, instanceStore, s
	}

	t.Run("cascade cancels future instances only", func(t *testing.T) {
		svc, seriesStore, instanceStore, s := setup(t)

		// Завершённое будущее занятие каскад не трогает
		instances := instanceStore.bySeries(s.ID)
		require.Len(t, instances, 3) // 09, 16, 23 января
		instanceStore.instances[instances[2].ID].Status = model.InstanceStatusCompleted

		result, err := svc.Retire(ctx, s.ID, true)

		require.NoError(t, err)
		assert.True(t, result.Deactivated)
		assert.NoError(t, result.CascadeErr)
		assert.Equal(t, int64(1), result.CancelledCount) // только 16 января

		after := instanceStore.bySeries(s.ID)
		assert.Equal(t, model.InstanceStatusScheduled, after[0].Status, "прошедшее занятие 9 января не тронуто")
		assert.Equal(t, model.InstanceStatusCancelled, after[1].Status)
		assert.Equal(t, model.InstanceStatusCompleted, after[2].Status)

		stored, err := seriesStore.GetByID(ctx, s.ID)
		require.NoError(t, err)
		assert.False(t, stored.Active)
		require.NotNil(t, stored.ActiveUntil)
		assert.Equal(t, "2024-01-10", stored.ActiveUntil.String())
	})

	t.Run("without cascade leaves instances alone", func(t *testing.T) {
		svc, _, instanceStore, s := setup(t)

		result, err := svc.Retire(ctx, s.ID, false)

		require.NoError(t, err)
		assert.True(t, result.Deactivated)
		assert.Zero(t, result.CancelledCount)
		for _, inst := range instanceStore.bySeries(s.ID) {
			assert.Equal(t, model.InstanceStatusScheduled, inst.Status)
		}
	})

	t.Run("retirement stops future generation", func(t *testing.T) {
		svc, seriesStore, instanceStore, s := setup(t)

		_, err := svc.Retire(ctx, s.ID, true)
		require.NoError(t, err)

		genSvc := NewGenerationService(seriesStore, instanceStore, 2, zap.NewNop())
		result, err := genSvc.GenerateInstances(ctx,
			calendar.MustParseDate("2024-01-08"),
			calendar.MustParseDate("2024-03-01"),
			nil,
		)
		require.NoError(t, err)
		assert.Zero(t, result.Created)
	})

	t.Run("cascade failure keeps series retired", func(t *testing.T) {
		svc, seriesStore, instanceStore, s := setup(t)

		cascadeErr := errors.New("connection reset")
		instanceStore.cancelErr = cascadeErr

		result, err := svc.Retire(ctx, s.ID, true)

		// Частичный успех: деактивация не откатывается
		require.NoError(t, err)
		assert.True(t, result.Deactivated)
		require.Error(t, result.CascadeErr)
		assert.ErrorIs(t, result.CascadeErr, cascadeErr)

		stored, getErr := seriesStore.GetByID(ctx, s.ID)
		require.NoError(t, getErr)
		assert.False(t, stored.Active)
	})

	t.Run("unknown series", func(t *testing.T) {
		svc := NewSeriesService(newMemSeriesStore(), newMemInstanceStore(), zap.NewNop())

		_, err := svc.Retire(ctx, uuid.New(), true)

		assert.ErrorIs(t, err, ErrSeriesNotFound)
	})
}
