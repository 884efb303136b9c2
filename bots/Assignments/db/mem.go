package db

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jmhodges/clock"
	"github.com/pkg/errors"
)

// MemStore represents a real database even though this is just a map. It's
// used for local runs without PostgreSQL and in tests.
type MemStore struct {
	mux         sync.Mutex
	clk         clock.Clock
	assignments map[string]Assignment
}

func NewMemStore(clk clock.Clock) *MemStore {
	return &MemStore{clk: clk, assignments: make(map[string]Assignment)}
}

func (m *MemStore) Create(_ context.Context, a *Assignment) (string, error) {
	m.mux.Lock()
	defer m.mux.Unlock()

	a.ID = uuid.NewString()
	a.CreatedAt = m.clk.Now().UTC()
	m.assignments[a.ID] = *a
	return a.ID, nil
}

func (m *MemStore) Get(_ context.Context, id string) (*Assignment, error) {
	m.mux.Lock()
	defer m.mux.Unlock()

	a, ok := m.assignments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *MemStore) GetAll(_ context.Context) (map[string]Assignment, error) {
	m.mux.Lock()
	defer m.mux.Unlock()

	set := make(map[string]Assignment, len(m.assignments))
	for id, a := range m.assignments {
		set[id] = a
	}
	return set, nil
}

func (m *MemStore) GetByField(_ context.Context, field string, value any) (map[string]Assignment, error) {
	if !knownField(field) {
		return nil, errors.Wrap(ErrUnknownField, field)
	}

	m.mux.Lock()
	defer m.mux.Unlock()

	set := make(map[string]Assignment)
	for id, a := range m.assignments {
		var v any
		switch field {
		case FieldChatID:
			v = a.ChatID
		case FieldCreatedIn:
			v = a.CreatedIn
		case FieldCourseCode:
			v = a.CourseCode
		}
		if v == value {
			set[id] = a
		}
	}
	return set, nil
}

func (m *MemStore) Update(_ context.Context, id string, d Details) error {
	m.mux.Lock()
	defer m.mux.Unlock()

	a, ok := m.assignments[id]
	if !ok {
		return ErrNotFound
	}

	a.Details = d
	m.assignments[id] = a
	return nil
}

func (m *MemStore) Delete(_ context.Context, id string) error {
	m.mux.Lock()
	defer m.mux.Unlock()

	delete(m.assignments, id)
	return nil
}
