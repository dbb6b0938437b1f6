package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alexsenin/academy-scheduler/internal/calendar"
	"github.com/alexsenin/academy-scheduler/internal/model"
)

// In-memory реализации хранилищ с теми же контрактами уникальности,
// что и у Postgres-репозиториев.

type memSeriesStore struct {
	mu     sync.Mutex
	series map[uuid.UUID]*model.Series
}

func newMemSeriesStore() *memSeriesStore {
	return &memSeriesStore{series: make(map[uuid.UUID]*model.Series)}
}

func (m *memSeriesStore) Create(_ context.Context, s *model.Series) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt

	cp := *s
	m.series[s.ID] = &cp
	return nil
}

func (m *memSeriesStore) GetByID(_ context.Context, id uuid.UUID) (*model.Series, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.series[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memSeriesStore) ListActiveIntersecting(_ context.Context, from, to calendar.Date) ([]*model.Series, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Series
	for _, s := range m.series {
		if !s.Active {
			continue
		}
		if s.ActiveFrom.After(to) {
			continue
		}
		if s.ActiveUntil != nil && s.ActiveUntil.Before(from) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (m *memSeriesStore) Update(_ context.Context, s *model.Series) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.UpdatedAt = time.Now()
	cp := *s
	m.series[s.ID] = &cp
	return nil
}

func (m *memSeriesStore) Retire(_ context.Context, id uuid.UUID, until calendar.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.series[id]
	if !ok {
		return ErrSeriesNotFound
	}
	s.Active = false
	s.ActiveUntil = &until
	s.UpdatedAt = time.Now()
	return nil
}

type memInstanceStore struct {
	mu        sync.Mutex
	instances map[uuid.UUID]*model.ClassInstance

	// createErr эмулирует транзиентный сбой записи для конкретной серии
	createErr map[uuid.UUID]error
	// cancelErr эмулирует сбой каскадной отмены
	cancelErr error
}

func newMemInstanceStore() *memInstanceStore {
	return &memInstanceStore{
		instances: make(map[uuid.UUID]*model.ClassInstance),
		createErr: make(map[uuid.UUID]error),
	}
}

func (m *memInstanceStore) CreateSkipConflict(_ context.Context, inst *model.ClassInstance) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if inst.SeriesID != nil {
		if err := m.createErr[*inst.SeriesID]; err != nil {
			return false, err
		}
		for _, existing := range m.instances {
			if existing.SeriesID != nil && *existing.SeriesID == *inst.SeriesID && existing.Date.Equal(inst.Date) {
				return false, nil
			}
		}
	}

	if inst.ID == uuid.Nil {
		inst.ID = uuid.New()
	}
	inst.CreatedAt = time.Now()

	cp := *inst
	m.instances[inst.ID] = &cp
	return true, nil
}

func (m *memInstanceStore) GetByID(_ context.Context, id uuid.UUID) (*model.ClassInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.instances[id]
	if !ok {
		return nil, nil
	}
	cp := *inst
	return &cp, nil
}

func (m *memInstanceStore) DatesBySeries(_ context.Context, seriesID uuid.UUID, from, to calendar.Date) ([]calendar.Date, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var dates []calendar.Date
	for _, inst := range m.instances {
		if inst.SeriesID == nil || *inst.SeriesID != seriesID {
			continue
		}
		if inst.Date.Before(from) || inst.Date.After(to) {
			continue
		}
		dates = append(dates, inst.Date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

func (m *memInstanceStore) CancelFutureBySeries(_ context.Context, seriesID uuid.UUID, from calendar.Date) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancelErr != nil {
		return 0, m.cancelErr
	}

	var count int64
	for _, inst := range m.instances {
		if inst.SeriesID == nil || *inst.SeriesID != seriesID {
			continue
		}
		if inst.Date.Before(from) {
			continue
		}
		if inst.Status == model.InstanceStatusCompleted || inst.Status == model.InstanceStatusCancelled {
			continue
		}
		inst.Status = model.InstanceStatusCancelled
		count++
	}
	return count, nil
}

func (m *memInstanceStore) bySeries(seriesID uuid.UUID) []*model.ClassInstance {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.ClassInstance
	for _, inst := range m.instances {
		if inst.SeriesID != nil && *inst.SeriesID == seriesID {
			cp := *inst
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

type attendanceKey struct {
	instanceID uuid.UUID
	studentID  uuid.UUID
}

type memAttendanceStore struct {
	mu      sync.Mutex
	records map[attendanceKey]*model.AttendanceRecord

	// loseCreateRaceOnce эмулирует проигрыш гонки вставки: перед Create
	// появляется чужая строка и Create возвращает false
	loseCreateRaceOnce bool
}

func newMemAttendanceStore() *memAttendanceStore {
	return &memAttendanceStore{records: make(map[attendanceKey]*model.AttendanceRecord)}
}

func (m *memAttendanceStore) GetByInstanceAndStudent(_ context.Context, instanceID, studentID uuid.UUID) (*model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[attendanceKey{instanceID, studentID}]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *memAttendanceStore) Create(_ context.Context, rec *model.AttendanceRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := attendanceKey{rec.InstanceID, rec.StudentID}

	if m.loseCreateRaceOnce {
		m.loseCreateRaceOnce = false
		m.records[key] = &model.AttendanceRecord{
			ID:         uuid.New(),
			InstanceID: rec.InstanceID,
			StudentID:  rec.StudentID,
			Status:     model.AttendanceStatusScheduled,
			CreatedAt:  time.Now(),
			UpdatedAt:  time.Now(),
		}
	}

	if _, exists := m.records[key]; exists {
		return false, nil
	}

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt

	cp := *rec
	m.records[key] = &cp
	return true, nil
}

func (m *memAttendanceStore) Update(_ context.Context, rec *model.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := attendanceKey{rec.InstanceID, rec.StudentID}
	stored, ok := m.records[key]
	if !ok || stored.ID != rec.ID {
		return errors.New("attendance record not found")
	}

	rec.UpdatedAt = time.Now()
	cp := *rec
	m.records[key] = &cp
	return nil
}

func (m *memAttendanceStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
