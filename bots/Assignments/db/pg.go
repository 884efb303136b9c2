package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmhodges/clock"
	"github.com/pkg/errors"
)

/**
DB tables:
- assignments:
	- id: uuid - assignment ID, assigned on creation
	- course_code: text - course code
	- title: text - assignment title
	- deadline: date - due date, no time of day
	- description: text - free-form description
	- chat_id: bigint - chat reminders are sent to
	- created_in: bigint - chat the assignment was created from
	- created_at: timestamp - creation time (UTC)

Indexes:
- assignments:
	- id - primary key
	- chat_id
*/

const selectAssignments = `SELECT id, course_code, title, deadline, description, chat_id, created_in, created_at
FROM assignments`

// conn is the part of pgxpool.Pool the store uses
type conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgStore keeps assignments in PostgreSQL.
type PgStore struct {
	conn conn
	clk  clock.Clock
}

func NewPgStore(c conn, clk clock.Clock) *PgStore {
	return &PgStore{conn: c, clk: clk}
}

// Create inserts a new assignment and returns its ID
func (s *PgStore) Create(ctx context.Context, a *Assignment) (string, error) {
	id := uuid.NewString()
	createdAt := s.clk.Now().UTC()

	if _, err := s.conn.Exec(ctx, `INSERT INTO assignments(id, course_code, title, deadline, description, chat_id, created_in, created_at)
VALUES($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, a.CourseCode, a.Title, a.Deadline, a.Description, a.ChatID, a.CreatedIn, createdAt); err != nil {
		return "", errors.Wrap(err, "failed inserting assignment")
	}

	a.ID = id
	a.CreatedAt = createdAt
	return id, nil
}

func (s *PgStore) Get(ctx context.Context, id string) (*Assignment, error) {
	a, err := scanAssignment(s.conn.QueryRow(ctx, selectAssignments+`
WHERE id=$1`, id))

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		return nil, errors.Wrap(err, "failed fetching assignment")
	}

	return &a, nil
}

// GetAll returns every assignment of every chat
func (s *PgStore) GetAll(ctx context.Context) (map[string]Assignment, error) {
	rows, err := s.conn.Query(ctx, selectAssignments)
	if err != nil {
		return nil, errors.Wrap(err, "failed querying assignments")
	}

	return collectAssignments(rows)
}

// GetByField returns assignments whose field equals value
func (s *PgStore) GetByField(ctx context.Context, field string, value any) (map[string]Assignment, error) {
	if !knownField(field) {
		return nil, errors.Wrap(ErrUnknownField, field)
	}

	// field is one of the known column names, so it's safe to format it in
	rows, err := s.conn.Query(ctx, fmt.Sprintf("%s\nWHERE %s=$1", selectAssignments, field), value)
	if err != nil {
		return nil, errors.Wrapf(err, "failed querying assignments by %s", field)
	}

	return collectAssignments(rows)
}

// Update replaces the editable fields of the assignment
func (s *PgStore) Update(ctx context.Context, id string, d Details) error {
	tag, err := s.conn.Exec(ctx, `UPDATE assignments
SET course_code=$1, title=$2, deadline=$3, description=$4
WHERE id=$5`, d.CourseCode, d.Title, d.Deadline, d.Description, id)
	if err != nil {
		return errors.Wrap(err, "failed updating assignment")
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) Delete(ctx context.Context, id string) error {
	if _, err := s.conn.Exec(ctx, `DELETE FROM assignments WHERE id=$1`, id); err != nil {
		return errors.Wrap(err, "failed deleting assignment")
	}
	return nil
}

func scanAssignment(row pgx.Row) (Assignment, error) {
	var a Assignment
	err := row.Scan(&a.ID, &a.CourseCode, &a.Title, &a.Deadline, &a.Description, &a.ChatID, &a.CreatedIn, &a.CreatedAt)
	return a, err
}

func collectAssignments(rows pgx.Rows) (map[string]Assignment, error) {
	defer rows.Close()

	set := make(map[string]Assignment)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed scanning assignment")
		}
		set[a.ID] = a
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed reading assignments")
	}
	return set, nil
}
