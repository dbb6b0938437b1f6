package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/alexsenin/academy-scheduler/internal/calendar"
)

type InstanceStatus string

const (
	InstanceStatusScheduled  InstanceStatus = "scheduled"
	InstanceStatusInProgress InstanceStatus = "in_progress"
	InstanceStatusCompleted  InstanceStatus = "completed"
	InstanceStatusCancelled  InstanceStatus = "cancelled"
)

// ClassInstance конкретное датированное занятие.
// Поля времени, инструктора и вместимости - снимок серии на момент генерации:
// последующее редактирование серии уже созданные занятия не меняет.
type ClassInstance struct {
	ID         uuid.UUID      `json:"id"`
	SeriesID   *uuid.UUID     `json:"series_id"` // nil - разовое занятие вне серии
	Date       calendar.Date  `json:"date"`
	StartTime  string         `json:"start_time"` // HH:MM
	EndTime    string         `json:"end_time"`   // HH:MM
	Instructor string         `json:"instructor"`
	Capacity   int            `json:"capacity"`
	Category   Category       `json:"category"`
	ClassType  ClassType      `json:"class_type"`
	Status     InstanceStatus `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
}
