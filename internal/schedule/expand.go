// Package schedule содержит чистую логику разворачивания еженедельной серии
// в набор календарных дат и вычисления недостающих занятий.
// Функции детерминированы и не имеют побочных эффектов: одинаковый вход
// всегда даёт одинаковый выход, на этом держится идемпотентность генерации.
package schedule

import (
	"github.com/alexsenin/academy-scheduler/internal/calendar"
	"github.com/alexsenin/academy-scheduler/internal/model"
)

// Expand возвращает даты, на которые у серии должны существовать занятия
// в окне [windowStart, windowEnd], по возрастанию.
//
// Запрошенное окно сначала обрезается до собственного активного окна серии:
// дата за пределами [active_from, active_until] не возвращается никогда,
// каким бы широким ни было запрошенное окно. Неактивная серия не
// разворачивается вовсе.
func Expand(s *model.Series, windowStart, windowEnd calendar.Date) []calendar.Date {
	if !s.Active {
		return nil
	}

	start := windowStart
	if start.Before(s.ActiveFrom) {
		start = s.ActiveFrom
	}
	end := windowEnd
	if s.ActiveUntil != nil && s.ActiveUntil.Before(end) {
		end = *s.ActiveUntil
	}
	if start.After(end) {
		return nil
	}

	// Первая дата >= start с нужным днём недели, не дальше 7 дней вперёд
	first := start
	for i := 0; i < 7 && first.Weekday() != s.Weekday; i++ {
		first = first.AddDays(1)
	}
	if first.Weekday() != s.Weekday {
		// weekday вне 0..6 не совпадёт никогда
		return nil
	}

	var dates []calendar.Date
	for d := first; !d.After(end); d = d.AddDays(7) {
		dates = append(dates, d)
	}
	return dates
}

// MissingDates возвращает даты из wanted, отсутствующие в existing,
// с сохранением исходного порядка. Уже материализованная дата не создаётся
// повторно независимо от статуса занятия (отменённые и завершённые считаются
// существующими).
func MissingDates(wanted, existing []calendar.Date) []calendar.Date {
	if len(wanted) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(existing))
	for _, d := range existing {
		seen[d.String()] = struct{}{}
	}

	var missing []calendar.Date
	for _, d := range wanted {
		if _, ok := seen[d.String()]; !ok {
			missing = append(missing, d)
		}
	}
	return missing
}
