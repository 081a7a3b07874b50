package models

import "time"

// OverrideKind distinguishes the two supported exceptions to a slot.
type OverrideKind string

const (
	OverrideKindTimeChange OverrideKind = "TIME_CHANGE"
	OverrideKindCancel     OverrideKind = "CANCEL"
)

// Valid returns true when the kind is a supported value.
func (k OverrideKind) Valid() bool {
	switch k {
	case OverrideKindTimeChange, OverrideKindCancel:
		return true
	default:
		return false
	}
}

// OverrideStatus captures the approval workflow states. PENDING transitions
// exactly once to APPROVED or REJECTED; both are terminal.
type OverrideStatus string

const (
	OverrideStatusPending  OverrideStatus = "PENDING"
	OverrideStatusApproved OverrideStatus = "APPROVED"
	OverrideStatusRejected OverrideStatus = "REJECTED"
)

// Valid returns true when the status is a supported value.
func (s OverrideStatus) Valid() bool {
	switch s {
	case OverrideStatusPending, OverrideStatusApproved, OverrideStatusRejected:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status permits no further transition.
func (s OverrideStatus) Terminal() bool {
	return s == OverrideStatusApproved || s == OverrideStatusRejected
}

// ScheduleOverride is one exception to exactly one slot on exactly one date.
// Requested times are set only for TIME_CHANGE overrides.
type ScheduleOverride struct {
	ID             string         `db:"id" json:"id"`
	ScheduleID     string         `db:"schedule_id" json:"schedule_id"`
	Date           time.Time      `db:"date" json:"date"`
	Kind           OverrideKind   `db:"kind" json:"kind"`
	RequestedStart *ClockTime     `db:"requested_start" json:"requested_start,omitempty"`
	RequestedEnd   *ClockTime     `db:"requested_end" json:"requested_end,omitempty"`
	Reason         string         `db:"reason" json:"reason"`
	Status         OverrideStatus `db:"status" json:"status"`
	AdminNotes     *string        `db:"admin_notes" json:"admin_notes,omitempty"`
	RequestedBy    string         `db:"requested_by" json:"requested_by"`
	DecidedBy      *string        `db:"decided_by" json:"decided_by,omitempty"`
	RequestedAt    time.Time      `db:"requested_at" json:"requested_at"`
	DecidedAt      *time.Time     `db:"decided_at" json:"decided_at,omitempty"`
}

// OverrideFilter constrains listing queries.
type OverrideFilter struct {
	ScheduleID  string
	Status      []OverrideStatus
	Kind        OverrideKind
	RequestedBy string
	DateFrom    *time.Time
	DateTo      *time.Time
	Limit       int
	Offset      int
}
