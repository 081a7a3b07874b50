package models

import "time"

// ScheduleSlot is the recurring weekly definition of a class meeting. Slots
// are created by administrators, fixed for the term, and deactivated rather
// than deleted once attendance exists against them.
type ScheduleSlot struct {
	ID        string    `db:"id" json:"id"`
	TermID    string    `db:"term_id" json:"term_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	// DayOfWeek follows time.Weekday numbering: 0 is Sunday.
	DayOfWeek    int       `db:"day_of_week" json:"day_of_week"`
	StartTime    ClockTime `db:"start_time" json:"start_time"`
	EndTime      ClockTime `db:"end_time" json:"end_time"`
	Room         *string   `db:"room" json:"room,omitempty"`
	DepartmentID *string   `db:"department_id" json:"department_id,omitempty"`
	YearLevel    *int      `db:"year_level" json:"year_level,omitempty"`
	Section      *string   `db:"section" json:"section,omitempty"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// MeetsOn reports whether the slot recurs on the weekday of the given date.
func (s *ScheduleSlot) MeetsOn(date time.Time) bool {
	return int(date.Weekday()) == s.DayOfWeek
}

// ScheduleSlotFilter describes query params for listing slots.
type ScheduleSlotFilter struct {
	TermID    string
	TeacherID string
	SubjectID string
	DayOfWeek *int
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
