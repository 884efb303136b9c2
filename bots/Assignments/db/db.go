package db

import (
	"context"
	"sort"

	"github.com/pkg/errors"
)

// Fields a store can filter by.
const (
	FieldChatID     = "chat_id"
	FieldCourseCode = "course_code"
	FieldCreatedIn  = "created_in"
)

var (
	ErrNotFound     = errors.New("assignment not found")
	ErrUnknownField = errors.New("unknown field")
)

// Store keeps assignments keyed by an opaque ID it assigns on creation.
type Store interface {
	Create(ctx context.Context, a *Assignment) (string, error)
	Get(ctx context.Context, id string) (*Assignment, error)
	GetAll(ctx context.Context) (map[string]Assignment, error)
	GetByField(ctx context.Context, field string, value any) (map[string]Assignment, error)
	Update(ctx context.Context, id string, d Details) error
	// Delete removes the assignment. Deleting an absent ID isn't an error.
	Delete(ctx context.Context, id string) error
}

// GetByChat returns assignments of the given chat.
func GetByChat(ctx context.Context, s Store, chatID int64) (map[string]Assignment, error) {
	return s.GetByField(ctx, FieldChatID, chatID)
}

// SortByDeadline flattens the set of assignments, earliest deadline first.
// Ties are broken by course code and ID so the order is stable.
func SortByDeadline(set map[string]Assignment) []Assignment {
	list := make([]Assignment, 0, len(set))
	for id, a := range set {
		a.ID = id
		list = append(list, a)
	}

	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.Deadline.Equal(b.Deadline) {
			return a.Deadline.Before(b.Deadline)
		}
		if a.CourseCode != b.CourseCode {
			return a.CourseCode < b.CourseCode
		}
		return a.ID < b.ID
	})

	return list
}

func knownField(field string) bool {
	switch field {
	case FieldChatID, FieldCourseCode, FieldCreatedIn:
		return true
	}
	return false
}
