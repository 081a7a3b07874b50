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
	"github.com/lib/pq"

	"github.com/presentia-id/presentia-api/internal/models"
)

const overrideColumns = `id, schedule_id, date, kind, requested_start, requested_end, reason, status,
       admin_notes, requested_by, decided_by, requested_at, decided_at`

// ErrDuplicateApproved signals that an APPROVED override already exists for
// the same (schedule, date) pair. The partial unique index enforces this at
// the store level; callers translate it into a Conflict.
var ErrDuplicateApproved = errors.New("approved override already exists for this schedule and date")

// OverrideRepository persists schedule override workflow data.
type OverrideRepository struct {
	db *sqlx.DB
}

// NewOverrideRepository constructs the repository.
func NewOverrideRepository(db *sqlx.DB) *OverrideRepository {
	return &OverrideRepository{db: db}
}

// Create inserts a new override request in PENDING state.
func (r *OverrideRepository) Create(ctx context.Context, override *models.ScheduleOverride) error {
	if override.ID == "" {
		override.ID = uuid.NewString()
	}
	if override.Status == "" {
		override.Status = models.OverrideStatusPending
	}
	if override.RequestedAt.IsZero() {
		override.RequestedAt = time.Now().UTC()
	}
	const query = `INSERT INTO schedule_overrides
	(id, schedule_id, date, kind, requested_start, requested_end, reason, status, admin_notes, requested_by, decided_by, requested_at, decided_at)
	VALUES (:id, :schedule_id, :date, :kind, :requested_start, :requested_end, :reason, :status, :admin_notes, :requested_by, :decided_by, :requested_at, :decided_at)`
	if _, err := r.db.NamedExecContext(ctx, query, override); err != nil {
		return fmt.Errorf("create schedule override: %w", err)
	}
	return nil
}

// GetByID fetches an override by identifier.
func (r *OverrideRepository) GetByID(ctx context.Context, id string) (*models.ScheduleOverride, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_overrides WHERE id = $1", overrideColumns)
	var override models.ScheduleOverride
	if err := r.db.GetContext(ctx, &override, query, id); err != nil {
		return nil, err
	}
	return &override, nil
}

// FindApproved returns the unique APPROVED override for a slot and date, or
// sql.ErrNoRows when none is in force.
func (r *OverrideRepository) FindApproved(ctx context.Context, scheduleID string, date time.Time) (*models.ScheduleOverride, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedule_overrides
	WHERE schedule_id = $1 AND date = $2 AND status = $3`, overrideColumns)
	var override models.ScheduleOverride
	if err := r.db.GetContext(ctx, &override, query, scheduleID, date, models.OverrideStatusApproved); err != nil {
		return nil, err
	}
	return &override, nil
}

// List returns overrides matching the filter (latest request first).
func (r *OverrideRepository) List(ctx context.Context, filter models.OverrideFilter) ([]models.ScheduleOverride, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 6)
	builder.WriteString(fmt.Sprintf("SELECT %s FROM schedule_overrides", overrideColumns))

	conditions := make([]string, 0, 5)
	if filter.ScheduleID != "" {
		args = append(args, filter.ScheduleID)
		conditions = append(conditions, fmt.Sprintf("schedule_id = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.RequestedBy != "" {
		args = append(args, filter.RequestedBy)
		conditions = append(conditions, fmt.Sprintf("requested_by = $%d", len(args)))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY requested_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var overrides []models.ScheduleOverride
	if err := r.db.SelectContext(ctx, &overrides, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list schedule overrides: %w", err)
	}
	return overrides, nil
}

// DecideOverrideParams groups the columns written by a review.
type DecideOverrideParams struct {
	ID         string
	Status     models.OverrideStatus
	DecidedBy  string
	DecidedAt  time.Time
	AdminNotes *string
}

// Decide persists the admin decision. The UPDATE is conditional on the row
// still being PENDING, so a lost race surfaces as sql.ErrNoRows; approving a
// second override for a date that already has one trips the partial unique
// index and surfaces as ErrDuplicateApproved.
func (r *OverrideRepository) Decide(ctx context.Context, params DecideOverrideParams) error {
	query := fmt.Sprintf(`UPDATE schedule_overrides
	SET status = :status, decided_by = :decided_by, decided_at = :decided_at, admin_notes = :admin_notes
	WHERE id = :id AND status = '%s'`, models.OverrideStatusPending)
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":          params.ID,
		"status":      params.Status,
		"decided_by":  params.DecidedBy,
		"decided_at":  params.DecidedAt,
		"admin_notes": params.AdminNotes,
	})
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateApproved
		}
		return fmt.Errorf("decide schedule override: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check override decision rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
