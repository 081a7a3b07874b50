package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/presentia-id/presentia-api/internal/dto"
	"github.com/presentia-id/presentia-api/internal/models"
	appErrors "github.com/presentia-id/presentia-api/pkg/errors"
	"github.com/presentia-id/presentia-api/pkg/response"
)

type overrideService interface {
	Request(ctx context.Context, req dto.CreateOverrideRequest, teacherID string) (*models.ScheduleOverride, error)
	Decide(ctx context.Context, overrideID string, req dto.DecideOverrideRequest, adminID string) (*models.ScheduleOverride, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.ScheduleOverride, error)
	List(ctx context.Context, query dto.OverrideQuery, actor *models.JWTClaims) ([]models.ScheduleOverride, error)
}

// OverrideHandler exposes REST endpoints for the override workflow.
type OverrideHandler struct {
	service overrideService
}

// NewOverrideHandler constructs the handler.
func NewOverrideHandler(service overrideService) *OverrideHandler {
	return &OverrideHandler{service: service}
}

// Create godoc
// @Summary Request a schedule override
// @Tags Overrides
// @Accept json
// @Produce json
// @Param payload body dto.CreateOverrideRequest true "Override payload"
// @Success 201 {object} response.Envelope
// @Router /overrides [post]
func (h *OverrideHandler) Create(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "override service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid override payload"))
		return
	}
	override, err := h.service.Request(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, override, nil)
}

// List godoc
// @Summary List schedule overrides
// @Tags Overrides
// @Produce json
// @Param schedule_id query string false "Schedule slot ID"
// @Param status query string false "Comma separated statuses"
// @Param kind query string false "Override kind"
// @Param date_from query string false "Start date (YYYY-MM-DD)"
// @Param date_to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /overrides [get]
func (h *OverrideHandler) List(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "override service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.OverrideQuery{
		ScheduleID: strings.TrimSpace(c.Query("schedule_id")),
		Status:     strings.ToUpper(strings.TrimSpace(c.Query("status"))),
		Kind:       strings.ToUpper(strings.TrimSpace(c.Query("kind"))),
		DateFrom:   strings.TrimSpace(c.Query("date_from")),
		DateTo:     strings.TrimSpace(c.Query("date_to")),
		Page:       parseQueryInt(c, "page", 1),
		PageSize:   parseQueryInt(c, "page_size", 50),
	}
	overrides, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overrides, nil)
}

// Get godoc
// @Summary Get override detail
// @Tags Overrides
// @Produce json
// @Param id path string true "Override ID"
// @Success 200 {object} response.Envelope
// @Router /overrides/{id} [get]
func (h *OverrideHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "override service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	override, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, override, nil)
}

// Decide godoc
// @Summary Approve or reject a pending override
// @Tags Overrides
// @Accept json
// @Produce json
// @Param id path string true "Override ID"
// @Param payload body dto.DecideOverrideRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /overrides/{id}/decision [post]
func (h *OverrideHandler) Decide(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "override service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.DecideOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
		return
	}
	override, err := h.service.Decide(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, override, nil)
}
