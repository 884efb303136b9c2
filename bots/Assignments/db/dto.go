package db

import "time"

// Details are the fields an admin enters when creating or editing an
// assignment. An edit replaces all of them at once.
type Details struct {
	CourseCode  string    `json:"course_code" validate:"required,max=32"`
	Title       string    `json:"title" validate:"required,max=256"`
	Deadline    time.Time `json:"deadline" validate:"required"` // calendar date, midnight UTC
	Description string    `json:"description" validate:"required,max=3000"`
}

type Assignment struct {
	ID string `json:"id"`
	Details
	ChatID    int64     `json:"chat_id"`    // chat reminders are sent to
	CreatedIn int64     `json:"created_in"` // chat the assignment was created from
	CreatedAt time.Time `json:"created_at"`
}
