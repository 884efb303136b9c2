package form

import (
	"strings"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newParser(t *testing.T) *Parser {
	loc, err := time.LoadLocation("Africa/Lagos")
	require.NoError(t, err)

	clk := clock.NewFake()
	// 10:00 on 15 May 2024 in Lagos
	clk.Set(time.Date(2024, time.May, 15, 9, 0, 0, 0, time.UTC))
	return NewParser(loc, clk)
}

func TestInline(t *testing.T) {
	p := newParser(t)

	d, err := p.Inline(`Course Code: CSC101
Title: Essay on compilers
Deadline: 20/05/24
Description: Write 2000 words.
Mention: parsers`)
	require.NoError(t, err)
	assert.Equal(t, "CSC101", d.CourseCode)
	assert.Equal(t, "Essay on compilers", d.Title)
	assert.Equal(t, time.Date(2024, time.May, 20, 0, 0, 0, 0, time.UTC), d.Deadline)
	assert.Equal(t, "Write 2000 words.\nMention: parsers", d.Description)
}

func TestInlineMissingFields(t *testing.T) {
	p := newParser(t)

	_, err := p.Inline("Course Code: CSC101\nTitle: Essay")
	assert.Equal(t, ErrFieldCount, err)

	_, err = p.Inline("")
	assert.Equal(t, ErrFieldCount, err)
}

func TestLines(t *testing.T) {
	p := newParser(t)

	d, err := p.Lines(`
Course Code: MTH201

Title: Problem sheet 3
Deadline: 1/6/24
Description: Questions 1-10
Show all working`)
	require.NoError(t, err)
	assert.Equal(t, "MTH201", d.CourseCode)
	assert.Equal(t, "Problem sheet 3", d.Title)
	assert.Equal(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), d.Deadline)
	assert.Equal(t, "Questions 1-10\nShow all working", d.Description)
}

func TestLinesFieldCount(t *testing.T) {
	p := newParser(t)

	for _, text := range []string{
		"",
		"Course Code: MTH201\nTitle: Sheet\nDeadline: 01/06/24",
		"MTH201\nSheet\n01/06/24\nQuestions",
	} {
		_, err := p.Lines(text)
		assert.Equal(t, ErrFieldCount, err, "text %q", text)
	}
}

func TestMalformedDeadlines(t *testing.T) {
	p := newParser(t)

	for _, deadline := range []string{"31/13/24", "2024-01-01", "", "32/01/25", "31/02/25", "01/06/2024", "tomorrow"} {
		_, err := p.Deadline(deadline)
		assert.True(t, errors.Is(err, ErrDeadlineFormat), "deadline %q: %v", deadline, err)

		text := "Course Code: A\nTitle: B\nDeadline: " + deadline + "\nDescription: C"
		_, err = p.Lines(text)
		assert.Error(t, err, "deadline %q", deadline)
		_, err = p.Inline(text)
		assert.Error(t, err, "deadline %q", deadline)
	}
}

func TestDeadlineBoundaries(t *testing.T) {
	p := newParser(t)

	_, err := p.Deadline("14/05/24")
	assert.Equal(t, ErrDeadlinePast, err, "yesterday")

	today, err := p.Deadline("15/05/24")
	require.NoError(t, err, "today")
	assert.Equal(t, 15, today.Day())

	_, err = p.Deadline("16/05/24")
	assert.NoError(t, err, "tomorrow")
}

func TestDeadlineUsesReferenceZone(t *testing.T) {
	p := newParser(t)

	// 23:30 UTC on 15 May is already 16 May in Lagos
	p.clk.(clock.FakeClock).Set(time.Date(2024, time.May, 15, 23, 30, 0, 0, time.UTC))

	_, err := p.Deadline("15/05/24")
	assert.Equal(t, ErrDeadlinePast, err)
}

func TestEmptyFields(t *testing.T) {
	p := newParser(t)

	_, err := p.Lines("Course Code:\nTitle: Essay\nDeadline: 20/05/24\nDescription: Write")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidField))

	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "CourseCode", fe.Field)
	assert.Equal(t, "required", fe.Tag)
}

func TestTooLongField(t *testing.T) {
	p := newParser(t)

	_, err := p.Lines("Course Code: " + strings.Repeat("X", 40) + "\nTitle: Essay\nDeadline: 20/05/24\nDescription: Write")

	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "max", fe.Tag)
}
