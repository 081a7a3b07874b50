package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/presentia-id/presentia-api/internal/models"
	appErrors "github.com/presentia-id/presentia-api/pkg/errors"
)

type slotReader interface {
	GetByID(ctx context.Context, id string) (*models.ScheduleSlot, error)
}

type approvedOverrideReader interface {
	FindApproved(ctx context.Context, scheduleID string, date time.Time) (*models.ScheduleOverride, error)
}

// ResolverService computes the effective session of a slot on a date. It is
// a pure read-and-combine over the slot store and the override ledger: the
// result is a function of its inputs and the current ledger contents, which
// is why callers may (and must) re-resolve on every decision instead of
// caching the outcome.
type ResolverService struct {
	slots     slotReader
	overrides approvedOverrideReader
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewResolverService constructs the resolver.
func NewResolverService(slots slotReader, overrides approvedOverrideReader, metrics *MetricsService, logger *zap.Logger) *ResolverService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResolverService{slots: slots, overrides: overrides, metrics: metrics, logger: logger}
}

// Resolve combines a slot with the approved override for the date, if any.
// A weekday mismatch yields DayMismatch, not a cancellation: the causes and
// the messaging shown to teachers differ.
func (s *ResolverService) Resolve(ctx context.Context, scheduleID string, date time.Time) (*models.EffectiveSession, error) {
	slot, err := s.slots.GetByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule slot")
	}
	if !slot.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule slot is inactive")
	}

	date = normalizeDate(date)
	session := &models.EffectiveSession{
		ScheduleID: slot.ID,
		Date:       date,
		StartTime:  slot.StartTime,
		EndTime:    slot.EndTime,
	}

	if !slot.MeetsOn(date) {
		session.DayMismatch = true
		s.recordResolution("day_mismatch")
		return session, nil
	}

	override, err := s.overrides.FindApproved(ctx, scheduleID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordResolution("regular")
			return session, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load override")
	}

	ref := &models.OverrideRef{
		OverrideID:    override.ID,
		Kind:          override.Kind,
		OriginalStart: slot.StartTime,
		OriginalEnd:   slot.EndTime,
		Reason:        override.Reason,
	}

	switch override.Kind {
	case models.OverrideKindCancel:
		// The original window stays on the session for display.
		session.Cancelled = true
		session.Override = ref
		s.recordResolution("cancelled")
	case models.OverrideKindTimeChange:
		if override.RequestedStart != nil {
			session.StartTime = *override.RequestedStart
		}
		if override.RequestedEnd != nil {
			session.EndTime = *override.RequestedEnd
		}
		session.Override = ref
		s.recordResolution("time_change")
	default:
		return nil, appErrors.Clone(appErrors.ErrInternal, "unsupported override kind in ledger")
	}

	return session, nil
}

func (s *ResolverService) recordResolution(result string) {
	if s.metrics != nil {
		s.metrics.RecordResolution(result)
	}
}

// normalizeDate strips the time-of-day component so date comparisons and
// (enrollment, date) keys are stable regardless of how callers built the
// timestamp.
func normalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
