// Package format renders assignments as Telegram HTML messages.
package format

import (
	"fmt"
	"html"
	"strings"

	"studybot/bots/Assignments/db"
	"studybot/bots/Assignments/timezone"
)

// PreviewLen is the number of description characters shown in listings.
const PreviewLen = 50

// MaxMessageLen is the longest message Telegram accepts, in UTF-16 code units.
const MaxMessageLen = 4096

const numAssumedAvgAssignment = 200

const (
	txtListingHeader  = "Hey 👋, here's a quick rundown of your pending assignments:\n\n"
	txtReminderHeader = "⏰ Reminder! Here are your upcoming assignment deadlines:\n\n"
	txtDueToday       = "due today"
	txtOneDayLeft     = "1 day left"
	blockSep          = "\n\n"

	fmtCourseCode  = "<b>Course Code</b>: %s\n"
	fmtTitle       = "<b>Title</b>: %s\n"
	fmtDescription = "<b>Description</b>: %s\n"
	fmtDueDate     = "<b>Due Date</b>: %s"
	fmtTimeLeft    = "\n<b>Time Left</b>: %s"
	fmtDaysLeft    = "%d days left"
	fmtExpired     = "The deadline of <b>%s</b> (%s) has passed, so I've removed it from the list."
)

// Due is an assignment together with the number of whole days left.
type Due struct {
	db.Assignment
	Days int
}

// Assignment writes a single assignment block: course code, title,
// description and due date.
func Assignment(sb *strings.Builder, a db.Assignment, truncate bool) {
	desc := a.Description
	if truncate {
		desc = Truncate(desc, PreviewLen)
	}

	sb.WriteString(fmt.Sprintf(fmtCourseCode, html.EscapeString(a.CourseCode)))
	sb.WriteString(fmt.Sprintf(fmtTitle, html.EscapeString(a.Title)))
	sb.WriteString(fmt.Sprintf(fmtDescription, html.EscapeString(desc)))
	sb.WriteString(fmt.Sprintf(fmtDueDate, timezone.FormatDate(a.Deadline)))
}

// Listing renders the chat's assignments with shortened descriptions. Long
// listings are split into several messages.
func Listing(as []db.Assignment) []string {
	blocks := make([]string, 0, len(as))
	for _, a := range as {
		var sb strings.Builder
		Assignment(&sb, a, true)
		blocks = append(blocks, sb.String())
	}
	return paginate(txtListingHeader, blocks)
}

// Single renders one assignment with its whole description.
func Single(a db.Assignment) string {
	var sb strings.Builder
	Assignment(&sb, a, false)
	return sb.String()
}

// Manage renders the body of a message carrying the management buttons.
func Manage(a db.Assignment) string {
	var sb strings.Builder
	Assignment(&sb, a, true)
	return sb.String()
}

// Reminder renders the daily reminder of one chat with shortened
// descriptions. Long reminders are split into several messages.
func Reminder(items []Due) []string {
	blocks := make([]string, 0, len(items))
	for _, it := range items {
		var sb strings.Builder
		Assignment(&sb, it.Assignment, true)
		sb.WriteString(fmt.Sprintf(fmtTimeLeft, Remaining(it.Days)))
		blocks = append(blocks, sb.String())
	}
	return paginate(txtReminderHeader, blocks)
}

// paginate joins blocks into messages no longer than MaxMessageLen, the first
// one starting with header. Blocks are never split.
func paginate(header string, blocks []string) []string {
	var pages []string
	var sb strings.Builder
	sb.Grow(len(header) + numAssumedAvgAssignment*len(blocks))
	sb.WriteString(header)
	size, empty := utf16Len(header), true

	for _, b := range blocks {
		n := utf16Len(b)
		if !empty && size+utf16Len(blockSep)+n > MaxMessageLen {
			pages = append(pages, sb.String())
			sb.Reset()
			size, empty = 0, true
		}
		if !empty {
			sb.WriteString(blockSep)
			size += utf16Len(blockSep)
		}
		sb.WriteString(b)
		size += n
		empty = false
	}
	return append(pages, sb.String())
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r > 0xFFFF {
			n++
		}
		n++
	}
	return n
}

// Expired tells a chat that an assignment was removed after its deadline.
func Expired(a db.Assignment) string {
	return fmt.Sprintf(fmtExpired, html.EscapeString(a.Title), html.EscapeString(a.CourseCode))
}

// Remaining describes the number of whole days left.
func Remaining(days int) string {
	switch {
	case days <= 0:
		return txtDueToday
	case days == 1:
		return txtOneDayLeft
	default:
		return fmt.Sprintf(fmtDaysLeft, days)
	}
}

// Truncate shortens s to n characters, adding an ellipsis when it cuts.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
