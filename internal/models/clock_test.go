package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		raw     string
		want    ClockTime
		wantErr bool
	}{
		{raw: "07:30", want: NewClockTime(7, 30)},
		{raw: "00:00", want: NewClockTime(0, 0)},
		{raw: "23:59", want: NewClockTime(23, 59)},
		{raw: "08:15:45", want: NewClockTime(8, 15)},
		{raw: "24:00", wantErr: true},
		{raw: "12:60", wantErr: true},
		{raw: "noon", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseClock(tc.raw)
		if tc.wantErr {
			require.Error(t, err, tc.raw)
			continue
		}
		require.NoError(t, err, tc.raw)
		require.Equal(t, tc.want, got, tc.raw)
	}
}

func TestClockTimeAddClampsToDay(t *testing.T) {
	require.Equal(t, NewClockTime(0, 0), NewClockTime(0, 10).Add(-30*time.Minute))
	require.Equal(t, NewClockTime(23, 59), NewClockTime(23, 45).Add(time.Hour))
	require.Equal(t, NewClockTime(8, 0), NewClockTime(7, 30).Add(30*time.Minute))
}

func TestClockTimeOrdering(t *testing.T) {
	earlier := NewClockTime(7, 30)
	later := NewClockTime(9, 0)
	require.True(t, earlier.Before(later))
	require.True(t, later.After(earlier))
	require.Equal(t, 90, later.Sub(earlier))
	require.Equal(t, -90, earlier.Sub(later))
}

func TestClockTimeJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(NewClockTime(7, 5))
	require.NoError(t, err)
	require.Equal(t, `"07:05"`, string(data))

	var parsed ClockTime
	require.NoError(t, json.Unmarshal([]byte(`"18:45"`), &parsed))
	require.Equal(t, NewClockTime(18, 45), parsed)

	require.Error(t, json.Unmarshal([]byte(`"25:00"`), &parsed))
}

func TestClockTimeScan(t *testing.T) {
	var c ClockTime
	require.NoError(t, c.Scan("13:20:00"))
	require.Equal(t, NewClockTime(13, 20), c)

	require.NoError(t, c.Scan([]byte("06:00")))
	require.Equal(t, NewClockTime(6, 0), c)

	stamp := time.Date(2026, time.March, 2, 10, 40, 0, 0, time.UTC)
	require.NoError(t, c.Scan(stamp))
	require.Equal(t, NewClockTime(10, 40), c)

	require.Error(t, c.Scan(nil))
	require.Error(t, c.Scan(42))
}

func TestScheduleSlotMeetsOn(t *testing.T) {
	slot := ScheduleSlot{DayOfWeek: 1} // Monday
	monday := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	tuesday := monday.AddDate(0, 0, 1)
	require.True(t, slot.MeetsOn(monday))
	require.False(t, slot.MeetsOn(tuesday))
}
