package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/presentia-id/presentia-api/internal/dto"
	"github.com/presentia-id/presentia-api/internal/models"
	appErrors "github.com/presentia-id/presentia-api/pkg/errors"
)

type slotStore interface {
	Create(ctx context.Context, slot *models.ScheduleSlot) error
	GetByID(ctx context.Context, id string) (*models.ScheduleSlot, error)
	List(ctx context.Context, filter models.ScheduleSlotFilter) ([]models.ScheduleSlot, int, error)
	Deactivate(ctx context.Context, id string) error
}

// ScheduleService owns the slot catalogue and the session query surface.
// Slots are the storage leaf everything else resolves against, so the CRUD
// here stays deliberately small: create, read, list, deactivate.
type ScheduleService struct {
	slots     slotStore
	resolver  sessionResolver
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs the schedule service.
func NewScheduleService(slots slotStore, resolver sessionResolver, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{slots: slots, resolver: resolver, validator: validate, logger: logger}
}

// CreateSlot registers a recurring weekly meeting.
func (s *ScheduleService) CreateSlot(ctx context.Context, req dto.CreateScheduleSlotRequest) (*models.ScheduleSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule slot payload")
	}
	start, err := models.ParseClock(req.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be HH:MM")
	}
	end, err := models.ParseClock(req.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be HH:MM")
	}
	if !start.Before(end) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}

	slot := &models.ScheduleSlot{
		TermID:    req.TermID,
		TeacherID: req.TeacherID,
		SubjectID: req.SubjectID,
		DayOfWeek: req.DayOfWeek,
		StartTime: start,
		EndTime:   end,
		Room:      req.Room,
		Active:    true,
	}
	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule slot")
	}
	s.logger.Info("schedule slot created",
		zap.String("slot_id", slot.ID),
		zap.String("term_id", slot.TermID),
		zap.Int("day_of_week", slot.DayOfWeek))
	return slot, nil
}

// GetSlot loads one slot by id.
func (s *ScheduleService) GetSlot(ctx context.Context, id string) (*models.ScheduleSlot, error) {
	slot, err := s.slots.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule slot")
	}
	return slot, nil
}

// ListSlots pages through the slot catalogue.
func (s *ScheduleService) ListSlots(ctx context.Context, query dto.ScheduleSlotQuery) ([]models.ScheduleSlot, *models.Pagination, error) {
	filter := models.ScheduleSlotFilter{
		TermID:    query.TermID,
		TeacherID: query.TeacherID,
		SubjectID: query.SubjectID,
		DayOfWeek: query.DayOfWeek,
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	slots, total, err := s.slots.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule slots")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return slots, pagination, nil
}

// DeactivateSlot retires a slot. Existing attendance facts stay untouched.
func (s *ScheduleService) DeactivateSlot(ctx context.Context, id string) error {
	if err := s.slots.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule slot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate schedule slot")
	}
	s.logger.Info("schedule slot deactivated", zap.String("slot_id", id))
	return nil
}

// GetSession resolves the effective session of a slot on a date.
func (s *ScheduleService) GetSession(ctx context.Context, scheduleID string, date time.Time) (*models.EffectiveSession, error) {
	return s.resolver.Resolve(ctx, scheduleID, date)
}
