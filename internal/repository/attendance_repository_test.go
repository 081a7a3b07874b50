package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/presentia-id/presentia-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var testDate = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

func TestAttendanceRepositoryInsertTimeIn(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	timeIn := models.NewClockTime(7, 31)
	record := &models.AttendanceRecord{
		EnrollmentID: "enr-1",
		Date:         testDate,
		TimeIn:       &timeIn,
		Status:       models.AttendanceStatusPresent,
	}

	rows := sqlmock.NewRows([]string{"id", "enrollment_id", "date", "time_in", "time_out", "status", "late_minutes", "created_at", "updated_at"}).
		AddRow("rec-1", "enr-1", testDate, "07:31", nil, "PRESENT", 0, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO attendance_records")).
		WillReturnRows(rows)

	stored, err := repo.InsertTimeIn(context.Background(), record)
	require.NoError(t, err)
	require.Equal(t, "rec-1", stored.ID)
	require.NotNil(t, stored.TimeIn)
	require.Equal(t, models.NewClockTime(7, 31), *stored.TimeIn)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryInsertTimeInConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	timeIn := models.NewClockTime(7, 31)
	record := &models.AttendanceRecord{
		EnrollmentID: "enr-1",
		Date:         testDate,
		TimeIn:       &timeIn,
		Status:       models.AttendanceStatusPresent,
	}

	// ON CONFLICT DO NOTHING yields no rows when another scan won the insert.
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO attendance_records")).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.InsertTimeIn(context.Background(), record)
	require.ErrorIs(t, err, ErrRecordExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositorySetTimeOut(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE attendance_records SET time_out")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetTimeOut(context.Background(), "rec-1", models.NewClockTime(9, 5)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositorySetTimeOutAlreadySet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE attendance_records SET time_out")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetTimeOut(context.Background(), "rec-1", models.NewClockTime(9, 5))
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	listRows := sqlmock.NewRows([]string{"id", "enrollment_id", "date", "time_in", "time_out", "status", "late_minutes", "created_at", "updated_at", "student_id", "subject_id", "term_id"}).
		AddRow("rec-1", "enr-1", testDate, "07:31", "09:05", "PRESENT", 0, time.Now(), time.Now(), "student-1", "subject-1", "term-1")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT ar.id, ar.enrollment_id")).
		WithArgs("student-1", "term-1").
		WillReturnRows(listRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("student-1", "term-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	records, total, err := repo.List(context.Background(), models.AttendanceFilter{
		StudentID: "student-1",
		TermID:    "term-1",
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, records, 1)
	require.Equal(t, "student-1", records[0].StudentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryDaySheet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	rows := sqlmock.NewRows([]string{"enrollment_id", "student_id", "time_in", "time_out", "status", "late_minutes"}).
		AddRow("enr-1", "student-1", "07:31", nil, "PRESENT", 0).
		AddRow("enr-2", "student-2", "07:50", nil, "LATE", 5)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT ar.enrollment_id, e.student_id")).
		WithArgs("slot-1", testDate).
		WillReturnRows(rows)

	sheet, err := repo.DaySheet(context.Background(), "slot-1", testDate)
	require.NoError(t, err)
	require.Len(t, sheet, 2)
	require.Equal(t, models.AttendanceStatusLate, sheet[1].Status)
	require.Equal(t, 5, sheet[1].LateMinutes)
	require.NoError(t, mock.ExpectationsWereMet())
}
