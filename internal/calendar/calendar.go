package calendar

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DateLayout формат календарной даты, единственный принимаемый при парсинге
const DateLayout = "2006-01-02"

var (
	dateRe      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeOfDayRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

// Date календарная дата без времени суток и часового пояса.
// Внутри хранится как полночь UTC, чтобы арифметика не зависела от DST.
type Date struct {
	t time.Time
}

// NewDate создаёт дату из года, месяца и дня
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime обрезает время суток и часовой пояс у time.Time
func FromTime(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate парсит строго строку вида YYYY-MM-DD.
// Полные timestamp'ы отклоняются намеренно: разбор ISO datetime как локальной
// даты сдвигает день при смене часового пояса.
func ParseDate(s string) (Date, error) {
	if !dateRe.MatchString(s) {
		return Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

// MustParseDate как ParseDate, но паникует при ошибке. Для констант и тестов.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Time возвращает дату как полночь UTC
func (d Date) Time() time.Time {
	return d.t
}

func (d Date) String() string {
	return d.t.Format(DateLayout)
}

// IsZero проверяет что дата не заполнена
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

// Weekday возвращает день недели, 0 = Sunday, 6 = Saturday
func (d Date) Weekday() int {
	return int(d.t.Weekday())
}

// AddDays возвращает дату через n дней (n может быть отрицательным)
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

func (d Date) Equal(other Date) bool {
	return d.t.Equal(other.t)
}

func (d Date) Before(other Date) bool {
	return d.t.Before(other.t)
}

func (d Date) After(other Date) bool {
	return d.t.After(other.t)
}

// Compare возвращает -1, 0 или 1
func (d Date) Compare(other Date) int {
	return d.t.Compare(other.t)
}

// IsTimeOfDay проверяет строку вида HH:MM (00:00 - 23:59)
func IsTimeOfDay(s string) bool {
	return timeOfDayRe.MatchString(s)
}

// CompareTimeOfDay сравнивает два времени суток вида HH:MM.
// Лексикографическое сравнение корректно, т.к. формат фиксированной ширины
// с ведущими нулями.
func CompareTimeOfDay(a, b string) int {
	return strings.Compare(a, b)
}
