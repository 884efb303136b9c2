package format

import (
	"strings"
	"testing"
	"time"

	"studybot/bots/Assignments/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assignment(code, title, desc string, deadline time.Time) db.Assignment {
	return db.Assignment{Details: db.Details{CourseCode: code, Title: title, Description: desc, Deadline: deadline}}
}

func TestSingleKeepsFieldOrder(t *testing.T) {
	a := assignment("CSC101", "Essay", "Write it", time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, "<b>Course Code</b>: CSC101\n<b>Title</b>: Essay\n<b>Description</b>: Write it\n<b>Due Date</b>: 05/03/24", Single(a))
}

func TestListingTruncatesDescriptions(t *testing.T) {
	long := strings.Repeat("é", PreviewLen+10)
	a := assignment("CSC101", "Essay", long, time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC))

	pages := Listing([]db.Assignment{a, a})
	require.Len(t, pages, 1)
	txt := pages[0]
	assert.True(t, strings.HasPrefix(txt, txtListingHeader))
	assert.Contains(t, txt, strings.Repeat("é", PreviewLen)+"...")
	assert.NotContains(t, txt, long)
	assert.Equal(t, 2, strings.Count(txt, "<b>Course Code</b>"))

	assert.Contains(t, Single(a), long)
	assert.NotContains(t, Manage(a), long)
}

func TestEscapesUserText(t *testing.T) {
	a := assignment("<CSC>", "A & B", "x < y", time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC))

	txt := Single(a)
	assert.Contains(t, txt, "&lt;CSC&gt;")
	assert.Contains(t, txt, "A &amp; B")
	assert.Contains(t, txt, "x &lt; y")
	assert.Contains(t, Expired(a), "A &amp; B")
}

func TestReminder(t *testing.T) {
	d := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	pages := Reminder([]Due{
		{Assignment: assignment("A1", "Today", "t", d), Days: 0},
		{Assignment: assignment("A2", "Later", "l", d.AddDate(0, 0, 5)), Days: 5},
	})
	require.Len(t, pages, 1)
	txt := pages[0]

	assert.True(t, strings.HasPrefix(txt, txtReminderHeader))
	assert.Contains(t, txt, "<b>Time Left</b>: due today")
	assert.Contains(t, txt, "<b>Time Left</b>: 5 days left")
	assert.Less(t, strings.Index(txt, "A1"), strings.Index(txt, "A2"))
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, "due today", Remaining(0))
	assert.Equal(t, "1 day left", Remaining(1))
	assert.Equal(t, "12 days left", Remaining(12))
}

func TestReminderFitsInMessages(t *testing.T) {
	d := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	long := strings.Repeat("😀", 3000)
	title := strings.Repeat("&", 256)

	var items []Due
	for i := 0; i < 40; i++ {
		items = append(items, Due{Assignment: assignment("CSC101", title, long, d), Days: i})
	}

	pages := Reminder(items)
	require.Greater(t, len(pages), 1)
	assert.True(t, strings.HasPrefix(pages[0], txtReminderHeader))

	blocks := 0
	for _, p := range pages {
		assert.LessOrEqual(t, utf16Len(p), MaxMessageLen)
		assert.NotContains(t, p, long)
		blocks += strings.Count(p, "<b>Time Left</b>")
	}
	assert.Equal(t, len(items), blocks)
	assert.Contains(t, pages[len(pages)-1], "39 days left")
}

func TestReminderTwoLongDescriptions(t *testing.T) {
	d := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	long := strings.Repeat("x", 3000)

	pages := Reminder([]Due{
		{Assignment: assignment("A1", "One", long, d), Days: 1},
		{Assignment: assignment("A2", "Two", long, d), Days: 1},
	})
	require.Len(t, pages, 1)
	assert.LessOrEqual(t, utf16Len(pages[0]), MaxMessageLen)
}

func TestUTF16Len(t *testing.T) {
	assert.Equal(t, 0, utf16Len(""))
	assert.Equal(t, 3, utf16Len("abc"))
	assert.Equal(t, 1, utf16Len("é"))
	assert.Equal(t, 2, utf16Len("😀"))
}
