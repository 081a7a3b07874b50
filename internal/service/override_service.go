package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/presentia-id/presentia-api/internal/dto"
	"github.com/presentia-id/presentia-api/internal/models"
	"github.com/presentia-id/presentia-api/internal/repository"
	appErrors "github.com/presentia-id/presentia-api/pkg/errors"
)

type overrideStore interface {
	Create(ctx context.Context, override *models.ScheduleOverride) error
	GetByID(ctx context.Context, id string) (*models.ScheduleOverride, error)
	FindApproved(ctx context.Context, scheduleID string, date time.Time) (*models.ScheduleOverride, error)
	List(ctx context.Context, filter models.OverrideFilter) ([]models.ScheduleOverride, error)
	Decide(ctx context.Context, params repository.DecideOverrideParams) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// OverrideService runs the request/approval workflow for schedule overrides.
type OverrideService struct {
	repo      overrideStore
	slots     slotReader
	audit     auditLogger
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOverrideService constructs the service.
func NewOverrideService(repo overrideStore, slots slotReader, audit auditLogger, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *OverrideService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &OverrideService{repo: repo, slots: slots, audit: audit, metrics: metrics, validator: validate, logger: logger}
	svc.validator.RegisterValidation("override_kind", func(fl validator.FieldLevel) bool {
		return models.OverrideKind(strings.ToUpper(fl.Field().String())).Valid()
	})
	svc.validator.RegisterValidation("override_decision", func(fl validator.FieldLevel) bool {
		status := models.OverrideStatus(strings.ToUpper(fl.Field().String()))
		return status == models.OverrideStatusApproved || status == models.OverrideStatusRejected
	})
	return svc
}

// Request creates a PENDING override for one occurrence of the teacher's own
// slot. Creation is refused outright when an APPROVED override already holds
// the date, so the teacher learns a decision is already in force instead of
// racing a second approval into the ledger.
func (s *OverrideService) Request(ctx context.Context, req dto.CreateOverrideRequest, teacherID string) (*models.ScheduleOverride, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid override payload")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reason is required")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	date = normalizeDate(date)

	slot, err := s.slots.GetByID(ctx, req.ScheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule slot")
	}
	if !slot.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule slot is inactive")
	}
	if slot.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owning teacher may request an override")
	}
	if !slot.MeetsOn(date) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date does not fall on the slot's weekday")
	}

	kind := models.OverrideKind(strings.ToUpper(req.Kind))
	override := &models.ScheduleOverride{
		ScheduleID:  slot.ID,
		Date:        date,
		Kind:        kind,
		Reason:      strings.TrimSpace(req.Reason),
		Status:      models.OverrideStatusPending,
		RequestedBy: teacherID,
	}

	switch kind {
	case models.OverrideKindTimeChange:
		if req.RequestedStart == nil || req.RequestedEnd == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "requested_start and requested_end are required for TIME_CHANGE")
		}
		start, err := models.ParseClock(*req.RequestedStart)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid requested_start, expected HH:MM")
		}
		end, err := models.ParseClock(*req.RequestedEnd)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid requested_end, expected HH:MM")
		}
		if !start.Before(end) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "requested_start must be before requested_end")
		}
		override.RequestedStart = &start
		override.RequestedEnd = &end
	case models.OverrideKindCancel:
		if req.RequestedStart != nil || req.RequestedEnd != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "requested times are not allowed for CANCEL")
		}
	}

	if _, err := s.repo.FindApproved(ctx, slot.ID, date); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an approved override already exists for this date")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing overrides")
	}

	if err := s.repo.Create(ctx, override); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create override request")
	}
	s.emitAudit(ctx, teacherID, models.AuditActionOverrideRequest, override)
	return override, nil
}

// Decide applies the admin decision. A record that advanced past PENDING is
// terminal: repeat decisions fail with Conflict, never silently succeed.
func (s *OverrideService) Decide(ctx context.Context, overrideID string, req dto.DecideOverrideRequest, adminID string) (*models.ScheduleOverride, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}
	decision := models.OverrideStatus(strings.ToUpper(req.Decision))

	override, err := s.repo.GetByID(ctx, overrideID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "override not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load override")
	}
	if override.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "override already decided")
	}

	// Approving must respect the one-approved-per-date policy. The store's
	// partial unique index is the authority; this check just produces a
	// friendlier message for the common case.
	if decision == models.OverrideStatusApproved {
		if _, err := s.repo.FindApproved(ctx, override.ScheduleID, override.Date); err == nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "another approved override is already in force for this date")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing overrides")
		}
	}

	now := time.Now().UTC()
	params := repository.DecideOverrideParams{
		ID:         override.ID,
		Status:     decision,
		DecidedBy:  adminID,
		DecidedAt:  now,
		AdminNotes: trimOptional(req.AdminNotes),
	}
	if err := s.repo.Decide(ctx, params); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrConflict, "override already decided")
		case errors.Is(err, repository.ErrDuplicateApproved):
			return nil, appErrors.Clone(appErrors.ErrConflict, "another approved override is already in force for this date")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store decision")
		}
	}

	override.Status = decision
	override.DecidedBy = &adminID
	override.DecidedAt = &now
	override.AdminNotes = params.AdminNotes
	if s.metrics != nil {
		s.metrics.RecordOverrideDecision(string(decision))
	}
	s.emitAudit(ctx, adminID, models.AuditActionOverrideDecide, override)
	return override, nil
}

// Get returns an override enforcing teacher scoping.
func (s *OverrideService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.ScheduleOverride, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	override, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "override not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load override")
	}
	if actor.Role == models.RoleTeacher && override.RequestedBy != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return override, nil
}

// List returns overrides visible to the actor. Teachers see their own
// requests; admins see everything.
func (s *OverrideService) List(ctx context.Context, query dto.OverrideQuery, actor *models.JWTClaims) ([]models.ScheduleOverride, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.OverrideFilter{
		ScheduleID: query.ScheduleID,
		Kind:       models.OverrideKind(strings.ToUpper(query.Kind)),
	}
	if query.Status != "" {
		status := models.OverrideStatus(strings.ToUpper(query.Status))
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid status filter")
		}
		filter.Status = []models.OverrideStatus{status}
	}
	if query.DateFrom != "" {
		from, err := time.Parse("2006-01-02", query.DateFrom)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date_from, expected YYYY-MM-DD")
		}
		filter.DateFrom = &from
	}
	if query.DateTo != "" {
		to, err := time.Parse("2006-01-02", query.DateTo)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date_to, expected YYYY-MM-DD")
		}
		filter.DateTo = &to
	}
	switch actor.Role {
	case models.RoleAdmin:
		// full visibility
	case models.RoleTeacher:
		filter.RequestedBy = actor.UserID
	default:
		return nil, appErrors.ErrForbidden
	}
	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 {
		size = 50
	}
	filter.Limit = size
	filter.Offset = (page - 1) * size

	overrides, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list overrides")
	}
	return overrides, nil
}

func (s *OverrideService) emitAudit(ctx context.Context, userID, action string, override *models.ScheduleOverride) {
	if s.audit == nil {
		return
	}
	detail, _ := json.Marshal(map[string]interface{}{
		"schedule_id": override.ScheduleID,
		"date":        override.Date.Format("2006-01-02"),
		"kind":        override.Kind,
		"status":      override.Status,
	})
	log := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "schedule_override",
		ResourceID: &override.ID,
		Detail:     detail,
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
