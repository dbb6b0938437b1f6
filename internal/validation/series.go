package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/alexsenin/academy-scheduler/internal/calendar"
	"github.com/alexsenin/academy-scheduler/internal/model"
)

// FieldError нарушение одного правила на одном поле
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors список нарушений, по одному на поле
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has проверяет есть ли нарушение на указанном поле
func (e FieldErrors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Имена полей в ошибках берём из json-тегов
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("timeofday", func(fl validator.FieldLevel) bool {
		return calendar.IsTimeOfDay(fl.Field().String())
	}); err != nil {
		panic("register timeofday validation: " + err.Error())
	}

	if err := v.RegisterValidation("caldate", func(fl validator.FieldLevel) bool {
		_, err := calendar.ParseDate(fl.Field().String())
		return err == nil
	}); err != nil {
		panic("register caldate validation: " + err.Error())
	}

	return v
}

// SeriesInput сырые значения полей серии до валидации
type SeriesInput struct {
	Title       string `json:"title" validate:"min=3,max=80"`
	Weekday     int    `json:"weekday" validate:"min=0,max=6"`
	StartTime   string `json:"start_time" validate:"timeofday"`
	EndTime     string `json:"end_time" validate:"timeofday"`
	Category    string `json:"category" validate:"oneof=child adult all"`
	ClassType   string `json:"class_type" validate:"oneof=group individual"`
	Instructor  string `json:"instructor" validate:"min=3,max=60"`
	Capacity    int    `json:"capacity" validate:"min=1,max=100"`
	ActiveFrom  string `json:"active_from" validate:"caldate"`
	ActiveUntil string `json:"active_until" validate:"omitempty,caldate"`
}

// ValidateSeries проверяет сырые поля серии и возвращает нормализованную серию
// либо список нарушений (первое нарушение на каждое поле).
// Межполевые проверки (end_time > start_time, active_until >= active_from)
// выполняются только когда обе стороны прошли проверку формата.
func ValidateSeries(in SeriesInput) (*model.Series, FieldErrors) {
	in.Title = strings.TrimSpace(in.Title)
	in.Instructor = strings.TrimSpace(in.Instructor)

	errs := collect(validate.Struct(in))

	if !errs.Has("start_time") && !errs.Has("end_time") {
		if calendar.CompareTimeOfDay(in.EndTime, in.StartTime) <= 0 {
			errs = append(errs, FieldError{Field: "end_time", Message: "must be after start_time"})
		}
	}

	var activeFrom calendar.Date
	var activeUntil *calendar.Date
	if !errs.Has("active_from") {
		activeFrom, _ = calendar.ParseDate(in.ActiveFrom)
	}
	if in.ActiveUntil != "" && !errs.Has("active_until") {
		until, _ := calendar.ParseDate(in.ActiveUntil)
		activeUntil = &until
		if !errs.Has("active_from") && until.Before(activeFrom) {
			errs = append(errs, FieldError{Field: "active_until", Message: "must not be before active_from"})
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &model.Series{
		Title:       in.Title,
		Weekday:     in.Weekday,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Category:    model.Category(in.Category),
		ClassType:   model.ClassType(in.ClassType),
		Instructor:  in.Instructor,
		Capacity:    in.Capacity,
		Active:      true,
		ActiveFrom:  activeFrom,
		ActiveUntil: activeUntil,
	}, nil
}

// SeriesPatch частичное обновление: каждое поле опционально,
// но присутствующее поле проверяется теми же правилами что и при создании
type SeriesPatch struct {
	Title       *string `json:"title" validate:"omitnil,min=3,max=80"`
	Weekday     *int    `json:"weekday" validate:"omitnil,min=0,max=6"`
	StartTime   *string `json:"start_time" validate:"omitnil,timeofday"`
	EndTime     *string `json:"end_time" validate:"omitnil,timeofday"`
	Category    *string `json:"category" validate:"omitnil,oneof=child adult all"`
	ClassType   *string `json:"class_type" validate:"omitnil,oneof=group individual"`
	Instructor  *string `json:"instructor" validate:"omitnil,min=3,max=60"`
	Capacity    *int    `json:"capacity" validate:"omitnil,min=1,max=100"`
	ActiveFrom  *string `json:"active_from" validate:"omitnil,caldate"`
	ActiveUntil *string `json:"active_until" validate:"omitnil,omitempty,caldate"` // пустая строка снимает дату окончания
}

// SeriesUpdate нормализованное частичное обновление серии
type SeriesUpdate struct {
	Title            *string
	Weekday          *int
	StartTime        *string
	EndTime          *string
	Category         *model.Category
	ClassType        *model.ClassType
	Instructor       *string
	Capacity         *int
	ActiveFrom       *calendar.Date
	ActiveUntil      *calendar.Date
	ClearActiveUntil bool
}

// Apply накладывает обновление на серию. Поля со значением nil не трогаются.
func (u *SeriesUpdate) Apply(s *model.Series) {
	if u.Title != nil {
		s.Title = *u.Title
	}
	if u.Weekday != nil {
		s.Weekday = *u.Weekday
	}
	if u.StartTime != nil {
		s.StartTime = *u.StartTime
	}
	if u.EndTime != nil {
		s.EndTime = *u.EndTime
	}
	if u.Category != nil {
		s.Category = *u.Category
	}
	if u.ClassType != nil {
		s.ClassType = *u.ClassType
	}
	if u.Instructor != nil {
		s.Instructor = *u.Instructor
	}
	if u.Capacity != nil {
		s.Capacity = *u.Capacity
	}
	if u.ActiveFrom != nil {
		s.ActiveFrom = *u.ActiveFrom
	}
	if u.ClearActiveUntil {
		s.ActiveUntil = nil
	} else if u.ActiveUntil != nil {
		s.ActiveUntil = u.ActiveUntil
	}
}

// ValidatePartialSeries проверяет частичное обновление.
// Межполевые проверки выполняются только когда обе стороны пары присутствуют
// в самом обновлении.
func ValidatePartialSeries(p SeriesPatch) (*SeriesUpdate, FieldErrors) {
	if p.Title != nil {
		trimmed := strings.TrimSpace(*p.Title)
		p.Title = &trimmed
	}
	if p.Instructor != nil {
		trimmed := strings.TrimSpace(*p.Instructor)
		p.Instructor = &trimmed
	}

	errs := collect(validate.Struct(p))

	if p.StartTime != nil && p.EndTime != nil && !errs.Has("start_time") && !errs.Has("end_time") {
		if calendar.CompareTimeOfDay(*p.EndTime, *p.StartTime) <= 0 {
			errs = append(errs, FieldError{Field: "end_time", Message: "must be after start_time"})
		}
	}

	upd := &SeriesUpdate{
		Title:      p.Title,
		Weekday:    p.Weekday,
		StartTime:  p.StartTime,
		EndTime:    p.EndTime,
		Instructor: p.Instructor,
		Capacity:   p.Capacity,
	}
	if p.Category != nil && !errs.Has("category") {
		c := model.Category(*p.Category)
		upd.Category = &c
	}
	if p.ClassType != nil && !errs.Has("class_type") {
		ct := model.ClassType(*p.ClassType)
		upd.ClassType = &ct
	}
	if p.ActiveFrom != nil && !errs.Has("active_from") {
		from, _ := calendar.ParseDate(*p.ActiveFrom)
		upd.ActiveFrom = &from
	}
	if p.ActiveUntil != nil && !errs.Has("active_until") {
		if *p.ActiveUntil == "" {
			upd.ClearActiveUntil = true
		} else {
			until, _ := calendar.ParseDate(*p.ActiveUntil)
			upd.ActiveUntil = &until
			if upd.ActiveFrom != nil && until.Before(*upd.ActiveFrom) {
				errs = append(errs, FieldError{Field: "active_until", Message: "must not be before active_from"})
			}
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return upd, nil
}

// collect переводит ошибки validator'а в FieldErrors, первое нарушение на поле
func collect(err error) FieldErrors {
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return FieldErrors{{Field: "", Message: err.Error()}}
	}

	var errs FieldErrors
	for _, fe := range verrs {
		if errs.Has(fe.Field()) {
			continue
		}
		errs = append(errs, FieldError{Field: fe.Field(), Message: messageFor(fe)})
	}
	return errs
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.Join(strings.Fields(fe.Param()), ", "))
	case "timeofday":
		return "must be a time in HH:MM format"
	case "caldate":
		return "must be a date in YYYY-MM-DD format"
	default:
		return "is invalid"
	}
}
