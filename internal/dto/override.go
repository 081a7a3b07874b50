package dto

// CreateOverrideRequest is a teacher's proposal to change or cancel one
// occurrence of their slot. Times use "HH:MM" and are required only for
// TIME_CHANGE.
type CreateOverrideRequest struct {
	ScheduleID     string  `json:"schedule_id" validate:"required"`
	Date           string  `json:"date" validate:"required"`
	Kind           string  `json:"kind" validate:"required,override_kind"`
	RequestedStart *string `json:"requested_start,omitempty"`
	RequestedEnd   *string `json:"requested_end,omitempty"`
	Reason         string  `json:"reason" validate:"required"`
}

// DecideOverrideRequest is an admin's decision on a pending override.
type DecideOverrideRequest struct {
	Decision   string  `json:"decision" validate:"required,override_decision"`
	AdminNotes *string `json:"admin_notes,omitempty"`
}

// OverrideQuery filters override listings.
type OverrideQuery struct {
	ScheduleID string
	Status     string
	Kind       string
	DateFrom   string
	DateTo     string
	Page       int
	PageSize   int
}
