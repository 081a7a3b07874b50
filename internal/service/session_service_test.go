package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/presentia-id/presentia-api/internal/dto"
	"github.com/presentia-id/presentia-api/internal/models"
	appErrors "github.com/presentia-id/presentia-api/pkg/errors"
)

type slotCRUDStub struct {
	*slotStub
	deactivated []string
}

func (s *slotCRUDStub) Create(ctx context.Context, slot *models.ScheduleSlot) error {
	if slot.ID == "" {
		slot.ID = "slot-created"
	}
	s.slots[slot.ID] = slot
	return nil
}

func (s *slotCRUDStub) List(ctx context.Context, filter models.ScheduleSlotFilter) ([]models.ScheduleSlot, int, error) {
	result := make([]models.ScheduleSlot, 0, len(s.slots))
	for _, slot := range s.slots {
		result = append(result, *slot)
	}
	return result, len(result), nil
}

func (s *slotCRUDStub) Deactivate(ctx context.Context, id string) error {
	if _, ok := s.slots[id]; !ok {
		return sql.ErrNoRows
	}
	s.deactivated = append(s.deactivated, id)
	return nil
}

func TestScheduleServiceCreateSlot(t *testing.T) {
	store := &slotCRUDStub{slotStub: newSlotStub()}
	svc := NewScheduleService(store, nil, nil, nil)

	slot, err := svc.CreateSlot(context.Background(), dto.CreateScheduleSlotRequest{
		TermID:    "term-1",
		TeacherID: "teacher-1",
		SubjectID: "subject-1",
		DayOfWeek: 1,
		StartTime: "07:30",
		EndTime:   "09:00",
	})
	require.NoError(t, err)
	require.True(t, slot.Active)
	require.Equal(t, models.NewClockTime(7, 30), slot.StartTime)
}

func TestScheduleServiceCreateSlotRejectsInvertedWindow(t *testing.T) {
	store := &slotCRUDStub{slotStub: newSlotStub()}
	svc := NewScheduleService(store, nil, nil, nil)

	_, err := svc.CreateSlot(context.Background(), dto.CreateScheduleSlotRequest{
		TermID:    "term-1",
		TeacherID: "teacher-1",
		SubjectID: "subject-1",
		DayOfWeek: 1,
		StartTime: "09:00",
		EndTime:   "07:30",
	})
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestScheduleServiceDeactivateMissingSlot(t *testing.T) {
	store := &slotCRUDStub{slotStub: newSlotStub()}
	svc := NewScheduleService(store, nil, nil, nil)

	err := svc.DeactivateSlot(context.Background(), "missing")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestScheduleServiceGetSessionDelegates(t *testing.T) {
	store := &slotCRUDStub{slotStub: newSlotStub(mondaySlot())}
	resolver := NewResolverService(store, newApprovedStub(), nil, nil)
	svc := NewScheduleService(store, resolver, nil, nil)

	session, err := svc.GetSession(context.Background(), "slot-1", monday)
	require.NoError(t, err)
	require.True(t, session.Active())
}
