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

// SeriesRepository управляет сериями занятий в базе данных
type SeriesRepository struct {
	*base.Repository
	logger *zap.Logger
}

// NewSeriesRepository создаёт новый репозиторий
func NewSeriesRepository(pool *pgxpool.Pool, logger *zap.Logger) *SeriesRepository {
	return &SeriesRepository{
		Repository: base.NewRepository(pool),
		logger:     logger,
	}
}

const seriesColumns = `id, title, weekday, start_time, end_time, category, class_type, instructor, capacity, active, active_from, active_until, created_at, updated_at`

// Create создаёт новую серию
func (r *SeriesRepository) Create(ctx context.Context, s *model.Series) error {
	query := `
		INSERT INTO series (id, title, weekday, start_time, end_time, category, class_type, instructor, capacity, active, active_from, active_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	err := r.QueryRow(
		ctx, query,
		s.ID,
		s.Title,
		s.Weekday,
		s.StartTime,
		s.EndTime,
		s.Category,
		s.ClassType,
		s.Instructor,
		s.Capacity,
		s.Active,
		s.ActiveFrom.Time(),
		activeUntilValue(s.ActiveUntil),
	).Scan(&s.CreatedAt, &s.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create series: %w", err)
	}

	return nil
}

// GetByID получает серию по ID
func (r *SeriesRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Series, error) {
	query := `SELECT ` + seriesColumns + ` FROM series WHERE id = $1`

	s, err := scanSeries(r.QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get series by id: %w", err)
	}

	return s, nil
}

// ListActiveIntersecting получает активные серии, чьё активное окно
// пересекается с [from, to]
func (r *SeriesRepository) ListActiveIntersecting(ctx context.Context, from, to calendar.Date) ([]*model.Series, error) {
	query := `
		SELECT ` + seriesColumns + `
		FROM series
		WHERE active = true
		  AND active_from <= $2
		  AND (active_until IS NULL OR active_until >= $1)
		ORDER BY id
	`

	rows, err := r.Query(ctx, query, from.Time(), to.Time())
	if err != nil {
		return nil, fmt.Errorf("list active series: %w", err)
	}
	defer rows.Close()

	var series []*model.Series
	for rows.Next() {
		s, err := scanSeries(rows)
		if err != nil {
			return nil, fmt.Errorf("scan series: %w", err)
		}
		series = append(series, s)
	}

	return series, rows.Err()
}

// Update обновляет серию целиком
func (r *SeriesRepository) Update(ctx context.Context, s *model.Series) error {
	query := `
		UPDATE series
		SET title = $2, weekday = $3, start_time = $4, end_time = $5, category = $6,
		    class_type = $7, instructor = $8, capacity = $9, active = $10,
		    active_from = $11, active_until = $12, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.QueryRow(
		ctx, query,
		s.ID,
		s.Title,
		s.Weekday,
		s.StartTime,
		s.EndTime,
		s.Category,
		s.ClassType,
		s.Instructor,
		s.Capacity,
		s.Active,
		s.ActiveFrom.Time(),
		activeUntilValue(s.ActiveUntil),
	).Scan(&s.UpdatedAt)

	if err != nil {
		return fmt.Errorf("update series: %w", err)
	}

	return nil
}

// Retire деактивирует серию и закрывает её активное окно датой until.
// Запись происходит одним UPDATE: пасс генерации, начатый после выхода
// из этого метода, уже не увидит серию активной за пределами until.
func (r *SeriesRepository) Retire(ctx context.Context, id uuid.UUID, until calendar.Date) error {
	query := `
		UPDATE series
		SET active = false, active_until = $2, updated_at = now()
		WHERE id = $1
	`

	affected, err := r.ExecAffected(ctx, query, id, until.Time())
	if err != nil {
		return fmt.Errorf("retire series: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("retire series: series not found")
	}

	r.logger.Info("Series retired",
		zap.String("series_id", id.String()),
		zap.String("active_until", until.String()),
	)

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeries(row rowScanner) (*model.Series, error) {
	var (
		s           model.Series
		activeFrom  time.Time
		activeUntil *time.Time
	)

	err := row.Scan(
		&s.ID,
		&s.Title,
		&s.Weekday,
		&s.StartTime,
		&s.EndTime,
		&s.Category,
		&s.ClassType,
		&s.Instructor,
		&s.Capacity,
		&s.Active,
		&activeFrom,
		&activeUntil,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.ActiveFrom = calendar.FromTime(activeFrom)
	if activeUntil != nil {
		d := calendar.FromTime(*activeUntil)
		s.ActiveUntil = &d
	}

	return &s, nil
}

func activeUntilValue(d *calendar.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time()
	return &t
}
