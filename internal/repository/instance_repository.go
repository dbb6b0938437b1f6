package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/alexsenin/academy-scheduler/internal/calendar"
	"github.com/alexsenin/academy-scheduler/internal/model"
	"github.com/alexsenin/academy-scheduler/internal/repository/base"
)

// InstanceRepository управляет датированными занятиями в базе данных
type InstanceRepository struct {
	*base.Repository
	logger *zap.Logger
}

// NewInstanceRepository создаёт новый репозиторий
func NewInstanceRepository(pool *pgxpool.Pool, logger *zap.Logger) *InstanceRepository {
	return &InstanceRepository{
		Repository: base.NewRepository(pool),
		logger:     logger,
	}
}

const instanceColumns = `id, series_id, date, start_time, end_time, instructor, capacity, category, class_type, status, created_at`

// CreateSkipConflict вставляет занятие, пропуская уже существующую пару
// (series_id, date). Возвращает true если строка реально создана.
// Уникальный индекс в схеме - авторитетная защита от дублей при
// конкурентных пассах генерации; проигравший INSERT здесь не ошибка.
func (r *InstanceRepository) CreateSkipConflict(ctx context.Context, inst *model.ClassInstance) (bool, error) {
	query := `
		INSERT INTO class_instances (id, series_id, date, start_time, end_time, instructor, capacity, category, class_type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (series_id, date) WHERE series_id IS NOT NULL DO NOTHING
	`

	if inst.ID == uuid.Nil {
		inst.ID = uuid.New()
	}
	if inst.Status == "" {
		inst.Status = model.InstanceStatusScheduled
	}

	affected, err := r.ExecAffected(
		ctx, query,
		inst.ID,
		inst.SeriesID,
		inst.Date.Time(),
		inst.StartTime,
		inst.EndTime,
		inst.Instructor,
		inst.Capacity,
		inst.Category,
		inst.ClassType,
		inst.Status,
	)
	if err != nil {
		// Гонка двух вставок может успеть до ON CONFLICT только при
		// сериализационных аномалиях; unique violation трактуем одинаково
		if base.IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("create class instance: %w", err)
	}

	return affected == 1, nil
}

// GetByID получает занятие по ID
func (r *InstanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ClassInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM class_instances WHERE id = $1`

	inst, err := scanInstance(r.QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get class instance by id: %w", err)
	}

	return inst, nil
}

// DatesBySeries возвращает даты всех занятий серии в диапазоне [from, to]
// по возрастанию, независимо от статуса. Это снимок "что уже материализовано"
// для реконсиляции.
func (r *InstanceRepository) DatesBySeries(ctx context.Context, seriesID uuid.UUID, from, to calendar.Date) ([]calendar.Date, error) {
	query := `
		SELECT date
		FROM class_instances
		WHERE series_id = $1
		  AND date >= $2
		  AND date <= $3
		ORDER BY date
	`

	rows, err := r.Query(ctx, query, seriesID, from.Time(), to.Time())
	if err != nil {
		return nil, fmt.Errorf("get instance dates by series: %w", err)
	}
	defer rows.Close()

	var dates []calendar.Date
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan instance date: %w", err)
		}
		dates = append(dates, calendar.FromTime(t))
	}

	return dates, rows.Err()
}

// ListBySeries возвращает занятия серии в диапазоне [from, to] по возрастанию даты
func (r *InstanceRepository) ListBySeries(ctx context.Context, seriesID uuid.UUID, from, to calendar.Date) ([]*model.ClassInstance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM class_instances
		WHERE series_id = $1
		  AND date >= $2
		  AND date <= $3
		ORDER BY date
	`

	rows, err := r.Query(ctx, query, seriesID, from.Time(), to.Time())
	if err != nil {
		return nil, fmt.Errorf("get class instances by series: %w", err)
	}
	defer rows.Close()

	var instances []*model.ClassInstance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan class instance: %w", err)
		}
		instances = append(instances, inst)
	}

	return instances, rows.Err()
}

// CancelFutureBySeries отменяет занятия серии с датой >= from,
// кроме уже завершённых и отменённых. Возвращает число отменённых.
func (r *InstanceRepository) CancelFutureBySeries(ctx context.Context, seriesID uuid.UUID, from calendar.Date) (int64, error) {
	query := `
		UPDATE class_instances
		SET status = 'cancelled'
		WHERE series_id = $1
		  AND date >= $2
		  AND status NOT IN ('completed', 'cancelled')
	`

	affected, err := r.ExecAffected(ctx, query, seriesID, from.Time())
	if err != nil {
		return 0, fmt.Errorf("cancel future instances: %w", err)
	}

	r.logger.Info("Future instances cancelled",
		zap.String("series_id", seriesID.String()),
		zap.String("from", from.String()),
		zap.Int64("count", affected),
	)

	return affected, nil
}

// UpdateStatus обновляет статус занятия
func (r *InstanceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.InstanceStatus) error {
	query := `UPDATE class_instances SET status = $2 WHERE id = $1`

	affected, err := r.ExecAffected(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update instance status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update instance status: instance not found")
	}

	return nil
}

func scanInstance(row rowScanner) (*model.ClassInstance, error) {
	var (
		inst model.ClassInstance
		date time.Time
	)

	err := row.Scan(
		&inst.ID,
		&inst.SeriesID,
		&date,
		&inst.StartTime,
		&inst.EndTime,
		&inst.Instructor,
		&inst.Capacity,
		&inst.Category,
		&inst.ClassType,
		&inst.Status,
		&inst.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	inst.Date = calendar.FromTime(date)
	return &inst, nil
}
