package timezone

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DateLayout is the day/month/2-digit-year layout deadlines are written in.
const DateLayout = "02/01/06"

// parseLayout accepts one-digit days and months as well.
const parseLayout = "2/1/06"

const day = 24 * time.Hour

var (
	ErrDateFormat  = errors.New("expected date in the format dd/mm/yy")
	ErrClockFormat = errors.New("expected time in the format HH:MM")
)

// Load returns the reference time zone by its IANA name.
func Load(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed loading time zone %q", name)
	}
	return loc, nil
}

// ParseDate parses a calendar date. The result is midnight UTC of that date so
// that it carries no time zone of its own.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(parseLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, errors.Wrap(ErrDateFormat, err.Error())
	}
	return d, nil
}

// FormatDate renders a calendar date with DateLayout.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// Today returns the calendar date of now in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysUntil returns the number of whole days between today in loc and the
// calendar date of deadline. Zero means due today, negative means expired.
func DaysUntil(deadline, now time.Time, loc *time.Location) int {
	y, m, d := deadline.Date()
	due := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int(due.Sub(Today(now, loc)) / day)
}

// ParseClock parses hour and minute in the format HH:MM.
func ParseClock(s string) (hh, mm int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, ErrClockFormat
	}

	hh, err = strconv.Atoi(parts[0])
	if err != nil || hh < 0 || hh > 23 {
		return 0, 0, ErrClockFormat
	}

	mm, err = strconv.Atoi(parts[1])
	if err != nil || mm < 0 || mm > 59 {
		return 0, 0, ErrClockFormat
	}

	return hh, mm, nil
}

// NextOccurrence returns the next moment hh:mm happens in loc. A time equal to
// the current minute or earlier is moved to the next day.
func NextOccurrence(now time.Time, hh, mm int, loc *time.Location) time.Time {
	now = now.In(loc)
	y, m, d := now.Date()
	if (hh < now.Hour()) || (hh == now.Hour() && mm <= now.Minute()) {
		d++
	}
	return time.Date(y, m, d, hh, mm, 0, 0, loc)
}
