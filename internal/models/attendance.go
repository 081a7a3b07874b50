package models

import "time"

// AttendanceStatus represents the status for attendance records. Lateness is
// decided once, at time-in; ABSENT rows are written by the end-of-day sweep
// outside this service.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusLate    AttendanceStatus = "LATE"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusLate, AttendanceStatusAbsent:
		return true
	default:
		return false
	}
}

// ScanAction describes what a successful scan did to the record.
type ScanAction string

const (
	ScanActionTimeIn  ScanAction = "TIME_IN"
	ScanActionTimeOut ScanAction = "TIME_OUT"
)

// AttendanceRecord is the single row allowed per (enrollment, date). Created
// on the first successful scan of the day, completed at most once more with
// a time-out.
type AttendanceRecord struct {
	ID           string           `db:"id" json:"id"`
	EnrollmentID string           `db:"enrollment_id" json:"enrollment_id"`
	Date         time.Time        `db:"date" json:"date"`
	TimeIn       *ClockTime       `db:"time_in" json:"time_in,omitempty"`
	TimeOut      *ClockTime       `db:"time_out" json:"time_out,omitempty"`
	Status       AttendanceStatus `db:"status" json:"status"`
	LateMinutes  int              `db:"late_minutes" json:"late_minutes"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceRecordDetail extends the row with student and schedule metadata.
type AttendanceRecordDetail struct {
	AttendanceRecord
	StudentID  string `db:"student_id" json:"student_id"`
	SubjectID  string `db:"subject_id" json:"subject_id"`
	TermID     string `db:"term_id" json:"term_id"`
}

// AttendanceFilter defines query filters for raw record listings.
type AttendanceFilter struct {
	EnrollmentID string
	StudentID    string
	SubjectID    string
	TermID       string
	Status       *AttendanceStatus
	DateFrom     *time.Time
	DateTo       *time.Time
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// DaySheetRow is one raw attendance fact on a session day sheet.
type DaySheetRow struct {
	EnrollmentID string           `db:"enrollment_id" json:"enrollment_id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	TimeIn       *ClockTime       `db:"time_in" json:"time_in,omitempty"`
	TimeOut      *ClockTime       `db:"time_out" json:"time_out,omitempty"`
	Status       AttendanceStatus `db:"status" json:"status"`
	LateMinutes  int              `db:"late_minutes" json:"late_minutes"`
}
