package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/presentia-id/presentia-api/internal/models"
)

const attendanceColumns = `id, enrollment_id, date, time_in, time_out, status, late_minutes, created_at, updated_at`

// ErrRecordExists signals that the (enrollment, date) row was created by a
// concurrent scan; the caller retries the write as a time-out attempt.
var ErrRecordExists = errors.New("attendance record already exists for this enrollment and date")

// AttendanceRepository handles persistence for attendance records. The two
// write paths are deliberately narrow: InsertTimeIn and SetTimeOut are each a
// single atomically-checked statement so racing scans cannot double-create or
// double-complete a row.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// InsertTimeIn creates the day's record with the time-in already set. The
// unique constraint on (enrollment_id, date) arbitrates races: when another
// scan won, no row comes back and ErrRecordExists is returned.
func (r *AttendanceRepository) InsertTimeIn(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	query := fmt.Sprintf(`INSERT INTO attendance_records (id, enrollment_id, date, time_in, time_out, status, late_minutes, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (enrollment_id, date) DO NOTHING
	RETURNING %s`, attendanceColumns)
	var stored models.AttendanceRecord
	err := r.db.GetContext(ctx, &stored, query,
		record.ID, record.EnrollmentID, record.Date, record.TimeIn, record.TimeOut,
		record.Status, record.LateMinutes, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordExists
		}
		return nil, fmt.Errorf("insert time-in: %w", err)
	}
	return &stored, nil
}

// Get returns the record for an enrollment and date, or sql.ErrNoRows.
func (r *AttendanceRepository) Get(ctx context.Context, enrollmentID string, date time.Time) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_records WHERE enrollment_id = $1 AND date = $2`, attendanceColumns)
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, enrollmentID, date); err != nil {
		return nil, err
	}
	return &record, nil
}

// SetTimeOut completes the record. The WHERE clause only matches rows whose
// time-out is still unset, so a repeat completion returns sql.ErrNoRows.
func (r *AttendanceRepository) SetTimeOut(ctx context.Context, recordID string, timeOut models.ClockTime) error {
	const query = `UPDATE attendance_records SET time_out = $2, updated_at = $3
	WHERE id = $1 AND time_out IS NULL`
	result, err := r.db.ExecContext(ctx, query, recordID, timeOut, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set time-out: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check time-out rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns raw attendance facts matching the filter.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, int, error) {
	base := `FROM attendance_records ar
JOIN enrollments e ON e.id = ar.enrollment_id`
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.EnrollmentID != "" {
		where = append(where, fmt.Sprintf("ar.enrollment_id = $%d", len(args)+1))
		args = append(args, filter.EnrollmentID)
	}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.SubjectID != "" {
		where = append(where, fmt.Sprintf("e.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.TermID != "" {
		where = append(where, fmt.Sprintf("e.term_id = $%d", len(args)+1))
		args = append(args, filter.TermID)
	}
	if filter.Status != nil && filter.Status.Valid() {
		where = append(where, fmt.Sprintf("ar.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("ar.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("ar.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	allowedSort := map[string]string{
		"date":       "ar.date",
		"status":     "ar.status",
		"created_at": "ar.created_at",
	}
	sortColumn, ok := allowedSort[filter.SortBy]
	if !ok {
		sortColumn = "ar.date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT ar.id, ar.enrollment_id, ar.date, ar.time_in, ar.time_out, ar.status, ar.late_minutes,
       ar.created_at, ar.updated_at, e.student_id, e.subject_id, e.term_id
	%s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, whereClause, sortColumn, order, size, offset)

	var rows []models.AttendanceRecordDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance records: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance records: %w", err)
	}
	return rows, total, nil
}

// DaySheet returns the raw per-record facts for one slot and date, joined
// through enrollments on the slot's subject and term.
func (r *AttendanceRepository) DaySheet(ctx context.Context, scheduleID string, date time.Time) ([]models.DaySheetRow, error) {
	const query = `SELECT ar.enrollment_id, e.student_id, ar.time_in, ar.time_out, ar.status, ar.late_minutes
FROM attendance_records ar
JOIN enrollments e ON e.id = ar.enrollment_id
JOIN schedule_slots ss ON ss.subject_id = e.subject_id AND ss.term_id = e.term_id
WHERE ss.id = $1 AND ar.date = $2
ORDER BY e.student_id ASC`
	var rows []models.DaySheetRow
	if err := r.db.SelectContext(ctx, &rows, query, scheduleID, date); err != nil {
		return nil, fmt.Errorf("day sheet: %w", err)
	}
	return rows, nil
}
