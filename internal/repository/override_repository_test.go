package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/presentia-id/presentia-api/internal/models"
)

func TestOverrideRepositoryCreateDefaultsPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOverrideRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_overrides")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	override := &models.ScheduleOverride{
		ScheduleID:  "slot-1",
		Date:        testDate,
		Kind:        models.OverrideKindCancel,
		Reason:      "field trip",
		RequestedBy: "teacher-1",
	}
	require.NoError(t, repo.Create(context.Background(), override))
	require.NotEmpty(t, override.ID)
	require.Equal(t, models.OverrideStatusPending, override.Status)
	require.False(t, override.RequestedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOverrideRepositoryFindApproved(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOverrideRepository(db)
	rows := sqlmock.NewRows([]string{"id", "schedule_id", "date", "kind", "requested_start", "requested_end", "reason", "status", "admin_notes", "requested_by", "decided_by", "requested_at", "decided_at"}).
		AddRow("ov-1", "slot-1", testDate, "TIME_CHANGE", "08:00", "09:30", "assembly", "APPROVED", nil, "teacher-1", "admin-1", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, schedule_id, date, kind")).
		WithArgs("slot-1", testDate, models.OverrideStatusApproved).
		WillReturnRows(rows)

	override, err := repo.FindApproved(context.Background(), "slot-1", testDate)
	require.NoError(t, err)
	require.Equal(t, models.OverrideStatusApproved, override.Status)
	require.NotNil(t, override.RequestedStart)
	require.Equal(t, models.NewClockTime(8, 0), *override.RequestedStart)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOverrideRepositoryFindApprovedNone(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOverrideRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, schedule_id, date, kind")).
		WithArgs("slot-1", testDate, models.OverrideStatusApproved).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindApproved(context.Background(), "slot-1", testDate)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func decideParams() DecideOverrideParams {
	return DecideOverrideParams{
		ID:        "ov-1",
		Status:    models.OverrideStatusApproved,
		DecidedBy: "admin-1",
		DecidedAt: time.Now().UTC(),
	}
}

func TestOverrideRepositoryDecide(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOverrideRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedule_overrides")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Decide(context.Background(), decideParams()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOverrideRepositoryDecideAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOverrideRepository(db)
	// The conditional UPDATE matches nothing once the row left PENDING.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedule_overrides")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Decide(context.Background(), decideParams())
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOverrideRepositoryDecideDuplicateApproved(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOverrideRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedule_overrides")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Decide(context.Background(), decideParams())
	require.ErrorIs(t, err, ErrDuplicateApproved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOverrideRepositoryListBuildsConditions(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOverrideRepository(db)
	rows := sqlmock.NewRows([]string{"id", "schedule_id", "date", "kind", "requested_start", "requested_end", "reason", "status", "admin_notes", "requested_by", "decided_by", "requested_at", "decided_at"}).
		AddRow("ov-1", "slot-1", testDate, "CANCEL", nil, nil, "holiday", "PENDING", nil, "teacher-1", nil, time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, schedule_id, date, kind")).
		WithArgs("slot-1", models.OverrideStatusPending, "teacher-1").
		WillReturnRows(rows)

	overrides, err := repo.List(context.Background(), models.OverrideFilter{
		ScheduleID:  "slot-1",
		Status:      []models.OverrideStatus{models.OverrideStatusPending},
		RequestedBy: "teacher-1",
	})
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	require.Equal(t, models.OverrideKindCancel, overrides[0].Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}
