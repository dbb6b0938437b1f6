package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/alexsenin/academy-scheduler/internal/calendar"
	"github.com/alexsenin/academy-scheduler/internal/model"
)

var (
	ErrSeriesNotFound   = errors.New("series not found")
	ErrInstanceNotFound = errors.New("class instance not found")
)

// SeriesStore хранилище серий. Реализуется repository.SeriesRepository.
type SeriesStore interface {
	Create(ctx context.Context, s *model.Series) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Series, error)
	ListActiveIntersecting(ctx context.Context, from, to calendar.Date) ([]*model.Series, error)
	Update(ctx context.Context, s *model.Series) error
	Retire(ctx context.Context, id uuid.UUID, until calendar.Date) error
}

// InstanceStore хранилище занятий. Реализуется repository.InstanceRepository.
// CreateSkipConflict обязан опираться на уникальность (series_id, date)
// на уровне хранилища и возвращать false на уже существующую пару.
type InstanceStore interface {
	CreateSkipConflict(ctx context.Context, inst *model.ClassInstance) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.ClassInstance, error)
	DatesBySeries(ctx context.Context, seriesID uuid.UUID, from, to calendar.Date) ([]calendar.Date, error)
	CancelFutureBySeries(ctx context.Context, seriesID uuid.UUID, from calendar.Date) (int64, error)
}

// AttendanceStore хранилище отметок посещаемости.
// Реализуется repository.AttendanceRepository. Create возвращает false когда
// пара (instance_id, student_id) уже существует.
type AttendanceStore interface {
	GetByInstanceAndStudent(ctx context.Context, instanceID, studentID uuid.UUID) (*model.AttendanceRecord, error)
	Create(ctx context.Context, rec *model.AttendanceRecord) (bool, error)
	Update(ctx context.Context, rec *model.AttendanceRecord) error
}
