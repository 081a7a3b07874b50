package dto

import "github.com/presentia-id/presentia-api/internal/models"

// ScanRequest is a single attendance scan submission. The timestamp is
// caller-supplied (RFC 3339) so devices can flush queued scans and admins can
// backfill; it is kept as an explicit, audited parameter rather than implicit
// server time.
type ScanRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	ScheduleID string `json:"schedule_id" validate:"required"`
	TermID     string `json:"term_id" validate:"required"`
	Timestamp  string `json:"timestamp" validate:"required"`
}

// ScanResult reports what a successful scan did.
type ScanResult struct {
	Action      models.ScanAction `json:"action"`
	RecordID    string            `json:"record_id"`
	LateMinutes int               `json:"late_minutes"`
	Status      models.AttendanceStatus `json:"status"`
}
