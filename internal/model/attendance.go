package model

import (
	"time"

	"github.com/google/uuid"
)

type AttendanceStatus string

const (
	AttendanceStatusScheduled AttendanceStatus = "scheduled"
	AttendanceStatusPresent   AttendanceStatus = "present"
	AttendanceStatusAbsent    AttendanceStatus = "absent"
	AttendanceStatusCancelled AttendanceStatus = "cancelled"
)

// ValidAttendanceStatus проверяет что статус входит в допустимый набор
func ValidAttendanceStatus(s AttendanceStatus) bool {
	switch s {
	case AttendanceStatusScheduled, AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusCancelled:
		return true
	}
	return false
}

// AttendanceRecord отметка посещаемости одного студента на одном занятии.
// На пару (instance_id, student_id) существует не больше одной записи.
type AttendanceRecord struct {
	ID         uuid.UUID        `json:"id"`
	InstanceID uuid.UUID        `json:"instance_id"`
	StudentID  uuid.UUID        `json:"student_id"`
	Status     AttendanceStatus `json:"status"`
	CheckInAt  *time.Time       `json:"check_in_at"` // заполнено только при статусе present
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}
