package dto

// CreateScheduleSlotRequest declares one recurring weekly meeting.
type CreateScheduleSlotRequest struct {
	TermID    string  `json:"term_id" validate:"required"`
	TeacherID string  `json:"teacher_id" validate:"required"`
	SubjectID string  `json:"subject_id" validate:"required"`
	DayOfWeek int     `json:"day_of_week" validate:"min=0,max=6"`
	StartTime string  `json:"start_time" validate:"required"`
	EndTime   string  `json:"end_time" validate:"required"`
	Room      *string `json:"room,omitempty"`
}

// ScheduleSlotQuery filters slot listings.
type ScheduleSlotQuery struct {
	TermID    string `form:"term_id"`
	TeacherID string `form:"teacher_id"`
	SubjectID string `form:"subject_id"`
	DayOfWeek *int   `form:"day_of_week"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
}
