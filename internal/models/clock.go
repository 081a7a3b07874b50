package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ClockTime is a time of day with minute precision, detached from any date.
// Schedule slots, overrides and attendance records all express their windows
// in local school time, so the value is plain minutes since midnight.
type ClockTime int

// NewClockTime builds a ClockTime from hour and minute.
func NewClockTime(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// ParseClock parses "HH:MM" (or "HH:MM:SS", seconds discarded).
func ParseClock(raw string) (ClockTime, error) {
	var hour, minute, second int
	if _, err := fmt.Sscanf(raw, "%d:%d:%d", &hour, &minute, &second); err != nil {
		if _, err := fmt.Sscanf(raw, "%d:%d", &hour, &minute); err != nil {
			return 0, fmt.Errorf("parse clock %q: expected HH:MM", raw)
		}
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("parse clock %q: out of range", raw)
	}
	return NewClockTime(hour, minute), nil
}

// ClockOf extracts the time of day from a timestamp.
func ClockOf(t time.Time) ClockTime {
	return NewClockTime(t.Hour(), t.Minute())
}

// Hour returns the hour component.
func (c ClockTime) Hour() int { return int(c) / 60 }

// Minute returns the minute component.
func (c ClockTime) Minute() int { return int(c) % 60 }

// Minutes returns the total minutes since midnight.
func (c ClockTime) Minutes() int { return int(c) }

// Before reports whether c is earlier than other.
func (c ClockTime) Before(other ClockTime) bool { return c < other }

// After reports whether c is later than other.
func (c ClockTime) After(other ClockTime) bool { return c > other }

// Add shifts the clock by a duration, clamped to the same day.
func (c ClockTime) Add(d time.Duration) ClockTime {
	shifted := int(c) + int(d/time.Minute)
	if shifted < 0 {
		return 0
	}
	if shifted > 24*60-1 {
		return ClockTime(24*60 - 1)
	}
	return ClockTime(shifted)
}

// Sub returns the signed distance to other in minutes.
func (c ClockTime) Sub(other ClockTime) int { return int(c) - int(other) }

// String renders the canonical "HH:MM" form.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// MarshalJSON encodes the clock as its "HH:MM" text form.
func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes "HH:MM" text.
func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseClock(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value implements driver.Valuer, storing the clock as a TIME column literal.
func (c ClockTime) Value() (driver.Value, error) {
	return c.String(), nil
}

// Scan implements sql.Scanner for TIME columns and text values.
func (c *ClockTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		return fmt.Errorf("scan clock: nil value")
	case time.Time:
		*c = ClockOf(v)
		return nil
	case []byte:
		parsed, err := ParseClock(string(v))
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	case string:
		parsed, err := ParseClock(v)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	default:
		return fmt.Errorf("scan clock: unsupported type %T", src)
	}
}
