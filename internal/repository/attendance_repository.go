package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alexsenin/academy-scheduler/internal/model"
	"github.com/alexsenin/academy-scheduler/internal/repository/base"
)

// AttendanceRepository управляет отметками посещаемости в базе данных
type AttendanceRepository struct {
	*base.Repository
}

// NewAttendanceRepository создаёт новый репозиторий
func NewAttendanceRepository(pool *pgxpool.Pool) *AttendanceRepository {
	return &AttendanceRepository{Repository: base.NewRepository(pool)}
}

const attendanceColumns = `id, instance_id, student_id, status, check_in_at, created_at, updated_at`

// GetByInstanceAndStudent получает отметку по паре (instance_id, student_id)
func (r *AttendanceRepository) GetByInstanceAndStudent(ctx context.Context, instanceID, studentID uuid.UUID) (*model.AttendanceRecord, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendance_records
		WHERE instance_id = $1 AND student_id = $2
	`

	var rec model.AttendanceRecord
	err := r.QueryRow(ctx, query, instanceID, studentID).Scan(
		&rec.ID,
		&rec.InstanceID,
		&rec.StudentID,
		&rec.Status,
		&rec.CheckInAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)

	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attendance record: %w", err)
	}

	return &rec, nil
}

// Create вставляет отметку, пропуская уже существующую пару
// (instance_id, student_id). Возвращает true если строка реально создана;
// false означает что конкурентная вставка выиграла гонку и вызывающий
// должен перечитать запись и обновить её.
func (r *AttendanceRepository) Create(ctx context.Context, rec *model.AttendanceRecord) (bool, error) {
	query := `
		INSERT INTO attendance_records (id, instance_id, student_id, status, check_in_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (instance_id, student_id) DO NOTHING
		RETURNING created_at, updated_at
	`

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	err := r.QueryRow(
		ctx, query,
		rec.ID,
		rec.InstanceID,
		rec.StudentID,
		rec.Status,
		rec.CheckInAt,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)

	if base.IsNotFound(err) {
		// ON CONFLICT DO NOTHING ничего не вернул - пара уже существует
		return false, nil
	}
	if err != nil {
		if base.IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("create attendance record: %w", err)
	}

	return true, nil
}

// Update обновляет статус и время отметки по ID
func (r *AttendanceRepository) Update(ctx context.Context, rec *model.AttendanceRecord) error {
	query := `
		UPDATE attendance_records
		SET status = $2, check_in_at = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.QueryRow(ctx, query, rec.ID, rec.Status, rec.CheckInAt).Scan(&rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update attendance record: %w", err)
	}

	return nil
}
