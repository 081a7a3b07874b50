package models

import "time"

// Audit actions recorded by the core.
const (
	AuditActionOverrideRequest = "OVERRIDE_REQUEST"
	AuditActionOverrideDecide  = "OVERRIDE_DECIDE"
	AuditActionScan            = "ATTENDANCE_SCAN"
)

// AuditLog captures who did what to which resource.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Detail     []byte    `db:"detail" json:"detail,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
