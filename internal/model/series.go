package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/alexsenin/academy-scheduler/internal/calendar"
)

type Category string

const (
	CategoryChild Category = "child"
	CategoryAdult Category = "adult"
	CategoryAll   Category = "all"
)

type ClassType string

const (
	ClassTypeGroup      ClassType = "group"
	ClassTypeIndividual ClassType = "individual"
)

// Series представляет шаблон еженедельного регулярного занятия
type Series struct {
	ID          uuid.UUID      `json:"id"`
	Title       string         `json:"title"`
	Weekday     int            `json:"weekday"`    // 0 = Sunday, 6 = Saturday
	StartTime   string         `json:"start_time"` // HH:MM
	EndTime     string         `json:"end_time"`   // HH:MM, строго после start_time
	Category    Category       `json:"category"`
	ClassType   ClassType      `json:"class_type"`
	Instructor  string         `json:"instructor"`
	Capacity    int            `json:"capacity"` // 1-100
	Active      bool           `json:"active"`
	ActiveFrom  calendar.Date  `json:"active_from"`
	ActiveUntil *calendar.Date `json:"active_until"` // nil - без даты окончания
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
