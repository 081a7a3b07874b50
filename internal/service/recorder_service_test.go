package service

import (
	"context"
	"database/sql"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/presentia-id/presentia-api/internal/dto"
	"github.com/presentia-id/presentia-api/internal/models"
	"github.com/presentia-id/presentia-api/internal/repository"
	"github.com/presentia-id/presentia-api/pkg/config"
	appErrors "github.com/presentia-id/presentia-api/pkg/errors"
)

type enrollmentStub struct {
	enrollments map[string]*models.Enrollment
}

func enrollmentKey(studentID, subjectID, termID string) string {
	return studentID + "|" + subjectID + "|" + termID
}

func newEnrollmentStub(enrollments ...*models.Enrollment) *enrollmentStub {
	s := &enrollmentStub{enrollments: make(map[string]*models.Enrollment)}
	for _, e := range enrollments {
		s.enrollments[enrollmentKey(e.StudentID, e.SubjectID, e.TermID)] = e
	}
	return s
}

func (s *enrollmentStub) FindActive(ctx context.Context, studentID, subjectID, termID string) (*models.Enrollment, error) {
	if e, ok := s.enrollments[enrollmentKey(studentID, subjectID, termID)]; ok {
		copy := *e
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

// attendanceStub mimics the (enrollment_id, date) unique constraint.
type attendanceStub struct {
	records map[string]*models.AttendanceRecord
	nextID  int
}

func newAttendanceStub() *attendanceStub {
	return &attendanceStub{records: make(map[string]*models.AttendanceRecord)}
}

func recordKey(enrollmentID string, date time.Time) string {
	return enrollmentID + "|" + date.Format("2006-01-02")
}

func (s *attendanceStub) InsertTimeIn(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	key := recordKey(record.EnrollmentID, record.Date)
	if _, exists := s.records[key]; exists {
		return nil, repository.ErrRecordExists
	}
	s.nextID++
	stored := *record
	stored.ID = "rec-" + strconv.Itoa(s.nextID)
	s.records[key] = &stored
	copy := stored
	return &copy, nil
}

func (s *attendanceStub) Get(ctx context.Context, enrollmentID string, date time.Time) (*models.AttendanceRecord, error) {
	if r, ok := s.records[recordKey(enrollmentID, date)]; ok {
		copy := *r
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *attendanceStub) SetTimeOut(ctx context.Context, recordID string, timeOut models.ClockTime) error {
	for _, r := range s.records {
		if r.ID == recordID {
			if r.TimeOut != nil {
				return sql.ErrNoRows
			}
			r.TimeOut = &timeOut
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *attendanceStub) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, int, error) {
	result := make([]models.AttendanceRecordDetail, 0, len(s.records))
	for _, r := range s.records {
		result = append(result, models.AttendanceRecordDetail{AttendanceRecord: *r})
	}
	return result, len(result), nil
}

func (s *attendanceStub) DaySheet(ctx context.Context, scheduleID string, date time.Time) ([]models.DaySheetRow, error) {
	rows := make([]models.DaySheetRow, 0, len(s.records))
	for _, r := range s.records {
		rows = append(rows, models.DaySheetRow{
			EnrollmentID: r.EnrollmentID,
			TimeIn:       r.TimeIn,
			TimeOut:      r.TimeOut,
			Status:       r.Status,
			LateMinutes:  r.LateMinutes,
		})
	}
	return rows, nil
}

func testAttendanceConfig() config.AttendanceConfig {
	return config.AttendanceConfig{
		PreWindowGrace:  30 * time.Minute,
		PostWindowGrace: 30 * time.Minute,
		LateGrace:       15 * time.Minute,
	}
}

func newTestRecorder(t *testing.T, store *attendanceStub) *RecorderService {
	t.Helper()
	slots := newSlotStub(mondaySlot())
	resolver := NewResolverService(slots, newApprovedStub(), nil, nil)
	enrollments := newEnrollmentStub(&models.Enrollment{
		ID:        "enr-1",
		StudentID: "student-1",
		SubjectID: "subject-1",
		TermID:    "term-1",
		Status:    models.EnrollmentStatusActive,
	})
	return NewRecorderService(enrollments, slots, resolver, store, nil, nil, nil, nil, nil, testAttendanceConfig())
}

// scanAt builds a request timestamped on the slot's Monday.
func scanAt(hour, minute int) dto.ScanRequest {
	ts := time.Date(2026, time.March, 2, hour, minute, 0, 0, time.UTC)
	return dto.ScanRequest{
		StudentID:  "student-1",
		ScheduleID: "slot-1",
		TermID:     "term-1",
		Timestamp:  ts.Format(time.RFC3339),
	}
}

func TestRecordScanOnTimeIn(t *testing.T) {
	svc := newTestRecorder(t, newAttendanceStub())

	// Slot runs 07:30-09:00; 07:20 is within the pre-window grace.
	result, err := svc.RecordScan(context.Background(), scanAt(7, 20))
	require.NoError(t, err)
	require.Equal(t, models.ScanActionTimeIn, result.Action)
	require.Equal(t, models.AttendanceStatusPresent, result.Status)
	require.Zero(t, result.LateMinutes)
}

func TestRecordScanLateTimeIn(t *testing.T) {
	svc := newTestRecorder(t, newAttendanceStub())

	// 08:00 is 30 minutes after start; minus 15 minutes grace leaves 15 late.
	result, err := svc.RecordScan(context.Background(), scanAt(8, 0))
	require.NoError(t, err)
	require.Equal(t, models.ScanActionTimeIn, result.Action)
	require.Equal(t, models.AttendanceStatusLate, result.Status)
	require.Equal(t, 15, result.LateMinutes)
}

func TestRecordScanWithinLateGraceIsPresent(t *testing.T) {
	svc := newTestRecorder(t, newAttendanceStub())

	result, err := svc.RecordScan(context.Background(), scanAt(7, 44))
	require.NoError(t, err)
	require.Equal(t, models.AttendanceStatusPresent, result.Status)
	require.Zero(t, result.LateMinutes)
}

func TestRecordScanSecondScanIsTimeOut(t *testing.T) {
	store := newAttendanceStub()
	svc := newTestRecorder(t, store)

	first, err := svc.RecordScan(context.Background(), scanAt(7, 25))
	require.NoError(t, err)
	require.Equal(t, models.ScanActionTimeIn, first.Action)

	second, err := svc.RecordScan(context.Background(), scanAt(9, 10))
	require.NoError(t, err)
	require.Equal(t, models.ScanActionTimeOut, second.Action)
	// Lateness was decided at time-in and stays untouched.
	require.Equal(t, first.Status, second.Status)
	require.Equal(t, first.LateMinutes, second.LateMinutes)
}

func TestRecordScanThirdScanAlreadyComplete(t *testing.T) {
	svc := newTestRecorder(t, newAttendanceStub())

	_, err := svc.RecordScan(context.Background(), scanAt(7, 25))
	require.NoError(t, err)
	_, err = svc.RecordScan(context.Background(), scanAt(9, 10))
	require.NoError(t, err)

	_, err = svc.RecordScan(context.Background(), scanAt(9, 20))
	require.ErrorIs(t, err, appErrors.ErrAlreadyComplete)
}

func TestRecordScanOutsideWindow(t *testing.T) {
	svc := newTestRecorder(t, newAttendanceStub())

	_, err := svc.RecordScan(context.Background(), scanAt(6, 0))
	require.ErrorIs(t, err, appErrors.ErrOutsideWindow)

	_, err = svc.RecordScan(context.Background(), scanAt(10, 0))
	require.ErrorIs(t, err, appErrors.ErrOutsideWindow)
}

func TestRecordScanBoundaryOfWindowAccepted(t *testing.T) {
	svc := newTestRecorder(t, newAttendanceStub())

	// Exactly start minus pre-window grace.
	result, err := svc.RecordScan(context.Background(), scanAt(7, 0))
	require.NoError(t, err)
	require.Equal(t, models.ScanActionTimeIn, result.Action)

	// Exactly end plus post-window grace counts as the time-out.
	out, err := svc.RecordScan(context.Background(), scanAt(9, 30))
	require.NoError(t, err)
	require.Equal(t, models.ScanActionTimeOut, out.Action)
}

func TestRecordScanTimeOutBeforeTimeInRejected(t *testing.T) {
	store := newAttendanceStub()
	svc := newTestRecorder(t, store)

	_, err := svc.RecordScan(context.Background(), scanAt(8, 30))
	require.NoError(t, err)

	_, err = svc.RecordScan(context.Background(), scanAt(8, 0))
	require.ErrorIs(t, err, appErrors.ErrOutsideWindow)
}

func TestRecordScanNoSessionOnOtherWeekday(t *testing.T) {
	svc := newTestRecorder(t, newAttendanceStub())

	ts := time.Date(2026, time.March, 3, 8, 0, 0, 0, time.UTC) // Tuesday
	req := dto.ScanRequest{
		StudentID:  "student-1",
		ScheduleID: "slot-1",
		TermID:     "term-1",
		Timestamp:  ts.Format(time.RFC3339),
	}
	_, err := svc.RecordScan(context.Background(), req)
	require.ErrorIs(t, err, appErrors.ErrNoActiveSession)
}

func TestRecordScanCancelledSession(t *testing.T) {
	slots := newSlotStub(mondaySlot())
	overrides := newApprovedStub()
	overrides.put(&models.ScheduleOverride{
		ID:         "ov-1",
		ScheduleID: "slot-1",
		Date:       monday,
		Kind:       models.OverrideKindCancel,
		Status:     models.OverrideStatusApproved,
	})
	resolver := NewResolverService(slots, overrides, nil, nil)
	enrollments := newEnrollmentStub(&models.Enrollment{
		ID: "enr-1", StudentID: "student-1", SubjectID: "subject-1", TermID: "term-1",
		Status: models.EnrollmentStatusActive,
	})
	svc := NewRecorderService(enrollments, slots, resolver, newAttendanceStub(), nil, nil, nil, nil, nil, testAttendanceConfig())

	_, err := svc.RecordScan(context.Background(), scanAt(8, 0))
	require.ErrorIs(t, err, appErrors.ErrSessionCancelled)
}

func TestRecordScanTimeChangeShiftsLateness(t *testing.T) {
	slots := newSlotStub(mondaySlot())
	overrides := newApprovedStub()
	start := models.NewClockTime(8, 0)
	end := models.NewClockTime(9, 30)
	overrides.put(&models.ScheduleOverride{
		ID:             "ov-1",
		ScheduleID:     "slot-1",
		Date:           monday,
		Kind:           models.OverrideKindTimeChange,
		RequestedStart: &start,
		RequestedEnd:   &end,
		Status:         models.OverrideStatusApproved,
	})
	resolver := NewResolverService(slots, overrides, nil, nil)
	enrollments := newEnrollmentStub(&models.Enrollment{
		ID: "enr-1", StudentID: "student-1", SubjectID: "subject-1", TermID: "term-1",
		Status: models.EnrollmentStatusActive,
	})
	svc := NewRecorderService(enrollments, slots, resolver, newAttendanceStub(), nil, nil, nil, nil, nil, testAttendanceConfig())

	// 08:10 against the shifted 08:00 start is within the 15 minute grace.
	result, err := svc.RecordScan(context.Background(), scanAt(8, 10))
	require.NoError(t, err)
	require.Equal(t, models.AttendanceStatusPresent, result.Status)
	require.Zero(t, result.LateMinutes)
}

func TestRecordScanNotEnrolled(t *testing.T) {
	slots := newSlotStub(mondaySlot())
	resolver := NewResolverService(slots, newApprovedStub(), nil, nil)
	svc := NewRecorderService(newEnrollmentStub(), slots, resolver, newAttendanceStub(), nil, nil, nil, nil, nil, testAttendanceConfig())

	_, err := svc.RecordScan(context.Background(), scanAt(8, 0))
	require.ErrorIs(t, err, appErrors.ErrNotEnrolled)
}

func TestRecordScanWrongTerm(t *testing.T) {
	svc := newTestRecorder(t, newAttendanceStub())

	req := scanAt(8, 0)
	req.TermID = "term-2"
	_, err := svc.RecordScan(context.Background(), req)
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestRecordScanInvalidTimestamp(t *testing.T) {
	svc := newTestRecorder(t, newAttendanceStub())

	req := scanAt(8, 0)
	req.Timestamp = "next tuesday"
	_, err := svc.RecordScan(context.Background(), req)
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestRecordScanStaleTimestamp(t *testing.T) {
	slots := newSlotStub(mondaySlot())
	resolver := NewResolverService(slots, newApprovedStub(), nil, nil)
	enrollments := newEnrollmentStub(&models.Enrollment{
		ID: "enr-1", StudentID: "student-1", SubjectID: "subject-1", TermID: "term-1",
		Status: models.EnrollmentStatusActive,
	})
	cfg := testAttendanceConfig()
	cfg.EnforceClockSkew = true
	cfg.ClockSkewTolerance = time.Hour
	svc := NewRecorderService(enrollments, slots, resolver, newAttendanceStub(), nil, nil, nil, nil, nil, cfg).
		WithClock(func() time.Time {
			return time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
		})

	// Within tolerance.
	_, err := svc.RecordScan(context.Background(), scanAt(7, 30))
	require.NoError(t, err)

	// A two day old timestamp while enforcement is on.
	req := scanAt(8, 0)
	req.Timestamp = time.Date(2026, time.February, 28, 8, 0, 0, 0, time.UTC).Format(time.RFC3339)
	_, err = svc.RecordScan(context.Background(), req)
	require.ErrorIs(t, err, appErrors.ErrStaleTimestamp)
}

func TestRecordScanLosingInsertRaceBecomesTimeOut(t *testing.T) {
	store := newAttendanceStub()
	svc := newTestRecorder(t, store)

	// Another device already created the record for the same student.
	timeIn := models.NewClockTime(7, 31)
	_, err := store.InsertTimeIn(context.Background(), &models.AttendanceRecord{
		EnrollmentID: "enr-1",
		Date:         monday,
		TimeIn:       &timeIn,
		Status:       models.AttendanceStatusPresent,
	})
	require.NoError(t, err)

	result, err := svc.RecordScan(context.Background(), scanAt(8, 0))
	require.NoError(t, err)
	require.Equal(t, models.ScanActionTimeOut, result.Action)
}

func TestDaySheetFetchesRowsAndSession(t *testing.T) {
	store := newAttendanceStub()
	svc := newTestRecorder(t, store)

	_, err := svc.RecordScan(context.Background(), scanAt(7, 40))
	require.NoError(t, err)

	sheet, cached, err := svc.DaySheet(context.Background(), "slot-1", monday)
	require.NoError(t, err)
	require.False(t, cached)
	require.Len(t, sheet.Rows, 1)
	require.True(t, sheet.Session.Active())
}
