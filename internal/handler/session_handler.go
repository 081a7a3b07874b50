package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/presentia-id/presentia-api/internal/dto"
	"github.com/presentia-id/presentia-api/internal/models"
	appErrors "github.com/presentia-id/presentia-api/pkg/errors"
	"github.com/presentia-id/presentia-api/pkg/response"
)

type scheduleService interface {
	CreateSlot(ctx context.Context, req dto.CreateScheduleSlotRequest) (*models.ScheduleSlot, error)
	GetSlot(ctx context.Context, id string) (*models.ScheduleSlot, error)
	ListSlots(ctx context.Context, query dto.ScheduleSlotQuery) ([]models.ScheduleSlot, *models.Pagination, error)
	DeactivateSlot(ctx context.Context, id string) error
	GetSession(ctx context.Context, scheduleID string, date time.Time) (*models.EffectiveSession, error)
}

// ScheduleHandler exposes slot CRUD and the session resolution endpoint.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(service scheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

// Create godoc
// @Summary Create a schedule slot
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.CreateScheduleSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "schedule service not configured"))
		return
	}
	var req dto.CreateScheduleSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid schedule slot payload"))
		return
	}
	slot, err := h.service.CreateSlot(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, slot, nil)
}

// List godoc
// @Summary List schedule slots
// @Tags Schedules
// @Produce json
// @Param term_id query string false "Term ID"
// @Param teacher_id query string false "Teacher ID"
// @Param subject_id query string false "Subject ID"
// @Param day_of_week query int false "Weekday (0=Sunday)"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "schedule service not configured"))
		return
	}
	query := dto.ScheduleSlotQuery{
		TermID:    strings.TrimSpace(c.Query("term_id")),
		TeacherID: strings.TrimSpace(c.Query("teacher_id")),
		SubjectID: strings.TrimSpace(c.Query("subject_id")),
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "page_size", 50),
		SortBy:    strings.TrimSpace(c.Query("sort_by")),
		SortOrder: strings.TrimSpace(c.Query("sort_order")),
	}
	if raw := strings.TrimSpace(c.Query("day_of_week")); raw != "" {
		day := parseQueryInt(c, "day_of_week", -1)
		if day < 0 || day > 6 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "day_of_week must be between 0 and 6"))
			return
		}
		query.DayOfWeek = &day
	}
	slots, pagination, err := h.service.ListSlots(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, pagination)
}

// Get godoc
// @Summary Get schedule slot detail
// @Tags Schedules
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "schedule service not configured"))
		return
	}
	slot, err := h.service.GetSlot(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Deactivate godoc
// @Summary Deactivate a schedule slot
// @Tags Schedules
// @Produce json
// @Param id path string true "Slot ID"
// @Success 204
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Deactivate(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "schedule service not configured"))
		return
	}
	if err := h.service.DeactivateSlot(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Session godoc
// @Summary Resolve the effective session for a date
// @Tags Schedules
// @Produce json
// @Param id path string true "Slot ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/session [get]
func (h *ScheduleHandler) Session(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "schedule service not configured"))
		return
	}
	date, ok := parseDateQuery(c, "date")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date query parameter must be YYYY-MM-DD"))
		return
	}
	session, err := h.service.GetSession(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}
