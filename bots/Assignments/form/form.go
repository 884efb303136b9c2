// Package form parses the assignment details admins type into chat.
//
// Two shapes are understood. The inline shape follows the command on one
// message and is split on colons:
//
//	/addassignment Course Code: CSC101
//	Title: Essay
//	Deadline: 05/03/24
//	Description: Write it
//
// The line shape is a reply to a prompt, one "Label: value" pair per line.
// Both need exactly four fields: course code, title, deadline, description.
package form

import (
	"strings"
	"time"

	"studybot/bots/Assignments/db"
	"studybot/bots/Assignments/timezone"

	"github.com/go-playground/validator/v10"
	"github.com/jmhodges/clock"
	"github.com/pkg/errors"
)

// NumFields is the number of fields every form carries.
const NumFields = 4

var (
	ErrFieldCount     = errors.New("expected course code, title, deadline and description")
	ErrDeadlineFormat = timezone.ErrDateFormat
	ErrDeadlinePast   = errors.New("deadline has already passed")
	ErrInvalidField   = errors.New("invalid field")
)

// Parser turns text into validated assignment details.
type Parser struct {
	loc      *time.Location
	clk      clock.Clock
	validate *validator.Validate
}

func NewParser(loc *time.Location, clk clock.Clock) *Parser {
	return &Parser{loc: loc, clk: clk, validate: validator.New()}
}

// Inline parses the colon-delimited shape. Every segment after the first
// contributes its first line; the description is everything after the fourth
// colon.
func (p *Parser) Inline(text string) (db.Details, error) {
	segments := strings.Split(strings.TrimSpace(text), ":")
	if len(segments) < NumFields+1 {
		return db.Details{}, ErrFieldCount
	}

	return p.details(
		firstLine(segments[1]),
		firstLine(segments[2]),
		firstLine(segments[3]),
		strings.TrimSpace(strings.Join(segments[4:], ":")),
	)
}

// Lines parses the one-field-per-line shape. Each line is split once on a
// colon and the remainder is the value. Lines after the description are kept
// as part of it.
func (p *Parser) Lines(text string) (db.Details, error) {
	var values []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if len(values) == NumFields {
			values[NumFields-1] += "\n" + line
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			return db.Details{}, ErrFieldCount
		}
		values = append(values, strings.TrimSpace(parts[1]))
	}

	if len(values) != NumFields {
		return db.Details{}, ErrFieldCount
	}

	return p.details(values[0], values[1], values[2], values[3])
}

// Deadline parses a dd/mm/yy date and makes sure it isn't in the past. A
// deadline falling today is accepted.
func (p *Parser) Deadline(s string) (time.Time, error) {
	deadline, err := timezone.ParseDate(s)
	if err != nil {
		return time.Time{}, err
	}

	if timezone.DaysUntil(deadline, p.clk.Now(), p.loc) < 0 {
		return time.Time{}, ErrDeadlinePast
	}
	return deadline, nil
}

func (p *Parser) details(courseCode, title, deadline, description string) (db.Details, error) {
	d := db.Details{
		CourseCode:  courseCode,
		Title:       title,
		Description: description,
	}

	var err error
	if d.Deadline, err = p.Deadline(deadline); err != nil {
		return db.Details{}, err
	}

	if err := p.validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return db.Details{}, &FieldError{Field: verrs[0].Field(), Tag: verrs[0].Tag()}
		}
		return db.Details{}, errors.Wrap(ErrInvalidField, err.Error())
	}

	return d, nil
}

// FieldError names the field that failed validation.
type FieldError struct {
	Field string
	Tag   string // validator tag, "required" or "max"
}

func (e *FieldError) Error() string {
	return "invalid field " + e.Field + ": " + e.Tag
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidField
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
