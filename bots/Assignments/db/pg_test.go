package db

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"id", "course_code", "title", "deadline", "description", "chat_id", "created_in", "created_at"}

func newMock(t *testing.T) (*PgStore, pgxmock.PgxPoolIface, clock.FakeClock) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	clk := clock.NewFake()
	clk.Set(time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC))
	return NewPgStore(mock, clk), mock, clk
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPgCreate(t *testing.T) {
	store, mock, clk := newMock(t)

	a := &Assignment{
		Details: Details{CourseCode: "CSC101", Title: "Essay", Deadline: date(2024, time.March, 5), Description: "Write it"},
		ChatID:  -100, CreatedIn: -100,
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assignments")).
		WithArgs(pgxmock.AnyArg(), "CSC101", "Essay", date(2024, time.March, 5), "Write it", int64(-100), int64(-100), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := store.Create(context.Background(), a)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, a.ID)
	assert.Equal(t, clk.Now().UTC(), a.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCreateFailure(t *testing.T) {
	store, mock, _ := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assignments")).WillReturnError(errors.New("connection reset"))

	_, err := store.Create(context.Background(), &Assignment{})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgGetByField(t *testing.T) {
	store, mock, _ := newMock(t)

	created := time.Date(2024, time.February, 1, 10, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows(columns).
		AddRow("a1", "CSC101", "Essay", date(2024, time.March, 5), "Write it", int64(-100), int64(-100), created).
		AddRow("a2", "MTH201", "Sheet", date(2024, time.March, 7), "Solve it", int64(-100), int64(-100), created)
	mock.ExpectQuery(regexp.QuoteMeta("FROM assignments\nWHERE chat_id=$1")).
		WithArgs(int64(-100)).
		WillReturnRows(rows)

	set, err := GetByChat(context.Background(), store, -100)
	require.NoError(t, err)
	require.Len(t, set, 2)
	assert.Equal(t, "Essay", set["a1"].Title)
	assert.Equal(t, date(2024, time.March, 7), set["a2"].Deadline)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgGetByUnknownField(t *testing.T) {
	store, mock, _ := newMock(t)

	_, err := store.GetByField(context.Background(), "title; DROP TABLE assignments", "x")
	assert.True(t, errors.Is(err, ErrUnknownField))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgGetAll(t *testing.T) {
	store, mock, _ := newMock(t)

	rows := pgxmock.NewRows(columns).
		AddRow("a1", "CSC101", "Essay", date(2024, time.March, 5), "Write it", int64(-100), int64(-100), time.Time{}).
		AddRow("b1", "PHY110", "Lab", date(2024, time.March, 2), "Report", int64(-200), int64(-200), time.Time{})
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_code, title, deadline, description, chat_id, created_in, created_at")).
		WillReturnRows(rows)

	set, err := store.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, set, 2)
	assert.Equal(t, int64(-200), set["b1"].ChatID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgGetNotFound(t *testing.T) {
	store, mock, _ := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id=$1")).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(columns))

	_, err := store.Get(context.Background(), "missing")
	assert.Equal(t, ErrNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgUpdate(t *testing.T) {
	store, mock, _ := newMock(t)

	d := Details{CourseCode: "CSC102", Title: "Essay 2", Deadline: date(2024, time.March, 9), Description: "Rewrite it"}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE assignments")).
		WithArgs("CSC102", "Essay 2", date(2024, time.March, 9), "Rewrite it", "a1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE assignments")).
		WithArgs("CSC102", "Essay 2", date(2024, time.March, 9), "Rewrite it", "gone").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, store.Update(context.Background(), "a1", d))
	assert.Equal(t, ErrNotFound, store.Update(context.Background(), "gone", d))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgDeleteIsIdempotent(t *testing.T) {
	store, mock, _ := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM assignments WHERE id=$1")).
		WithArgs("a1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM assignments WHERE id=$1")).
		WithArgs("a1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.NoError(t, store.Delete(context.Background(), "a1"))
	assert.NoError(t, store.Delete(context.Background(), "a1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSortByDeadline(t *testing.T) {
	set := map[string]Assignment{
		"c": {Details: Details{CourseCode: "B", Deadline: date(2024, time.March, 5)}},
		"a": {Details: Details{CourseCode: "A", Deadline: date(2024, time.March, 5)}},
		"b": {Details: Details{CourseCode: "Z", Deadline: date(2024, time.March, 1)}},
	}

	list := SortByDeadline(set)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{list[0].ID, list[1].ID, list[2].ID})
}
