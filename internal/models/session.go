package models

import "time"

// OverrideRef points at the override that shaped an effective session, and
// keeps the slot's original window around for audit display.
type OverrideRef struct {
	OverrideID    string       `json:"override_id"`
	Kind          OverrideKind `json:"kind"`
	OriginalStart ClockTime    `json:"original_start"`
	OriginalEnd   ClockTime    `json:"original_end"`
	Reason        string       `json:"reason"`
}

// EffectiveSession is the resolved start/end/cancellation state of a slot on
// one specific date, after applying the approved override (if any). It is
// recomputed from the store on every decision and never cached.
type EffectiveSession struct {
	ScheduleID string    `json:"schedule_id"`
	Date       time.Time `json:"date"`
	StartTime  ClockTime `json:"start_time"`
	EndTime    ClockTime `json:"end_time"`
	// Cancelled marks an administrative cancellation; the original window is
	// preserved in StartTime/EndTime for display.
	Cancelled bool `json:"cancelled"`
	// DayMismatch marks "no session today" because the date's weekday does
	// not match the slot. Distinct from Cancelled: the messaging differs.
	DayMismatch bool         `json:"day_mismatch"`
	Override    *OverrideRef `json:"override,omitempty"`
}

// Active reports whether scans may be accepted against this session.
func (s *EffectiveSession) Active() bool {
	return !s.Cancelled && !s.DayMismatch
}
