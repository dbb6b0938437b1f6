package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alexsenin/academy-scheduler/internal/model"
	"github.com/alexsenin/academy-scheduler/internal/validation"
)

// AttendanceService гарантирует не больше одной отметки на пару
// (занятие, студент) и корректную простановку времени check-in
type AttendanceService struct {
	instanceStore   InstanceStore
	attendanceStore AttendanceStore
	logger          *zap.Logger
	now             func() time.Time
}

// NewAttendanceService создаёт новый сервис посещаемости
func NewAttendanceService(instanceStore InstanceStore, attendanceStore AttendanceStore, logger *zap.Logger) *AttendanceService {
	return &AttendanceService{
		instanceStore:   instanceStore,
		attendanceStore: attendanceStore,
		logger:          logger,
		now:             time.Now,
	}
}

// RecordAttendance создаёт или обновляет отметку посещаемости.
//
// Время check-in - чистая функция итогового статуса, а не диффа:
// при статусе present оно пересчитывается на момент вызова (повторный
// present обновляет время), при любом другом статусе сбрасывается в nil.
//
// Гонка двух одновременных созданий для одной пары разрешается хранилищем:
// проигравший вызов видит чужую строку и обновляет её.
func (s *AttendanceService) RecordAttendance(ctx context.Context, instanceID, studentID uuid.UUID, status model.AttendanceStatus) (*model.AttendanceRecord, error) {
	if !model.ValidAttendanceStatus(status) {
		return nil, validation.FieldErrors{{
			Field:   "status",
			Message: "must be one of: scheduled, present, absent, cancelled",
		}}
	}

	instance, err := s.instanceStore.GetByID(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("get class instance: %w", err)
	}
	if instance == nil {
		return nil, ErrInstanceNotFound
	}

	checkIn := s.checkInFor(status)

	existing, err := s.attendanceStore.GetByInstanceAndStudent(ctx, instanceID, studentID)
	if err != nil {
		return nil, fmt.Errorf("get attendance record: %w", err)
	}

	if existing == nil {
		rec := &model.AttendanceRecord{
			InstanceID: instanceID,
			StudentID:  studentID,
			Status:     status,
			CheckInAt:  checkIn,
		}

		created, err := s.attendanceStore.Create(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("create attendance record: %w", err)
		}
		if created {
			s.logger.Info("Attendance record created",
				zap.String("instance_id", instanceID.String()),
				zap.String("student_id", studentID.String()),
				zap.String("status", string(status)),
			)
			return rec, nil
		}

		// Конкурентная вставка выиграла - перечитываем её строку и обновляем
		existing, err = s.attendanceStore.GetByInstanceAndStudent(ctx, instanceID, studentID)
		if err != nil {
			return nil, fmt.Errorf("reread attendance record: %w", err)
		}
		if existing == nil {
			return nil, fmt.Errorf("attendance record missing after insert conflict")
		}
	}

	existing.Status = status
	existing.CheckInAt = checkIn

	if err := s.attendanceStore.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("update attendance record: %w", err)
	}

	s.logger.Info("Attendance record updated",
		zap.String("instance_id", instanceID.String()),
		zap.String("student_id", studentID.String()),
		zap.String("status", string(status)),
	)

	return existing, nil
}

func (s *AttendanceService) checkInFor(status model.AttendanceStatus) *time.Time {
	if status != model.AttendanceStatusPresent {
		return nil
	}
	t := s.now()
	return &t
}
