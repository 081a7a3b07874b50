package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/presentia-id/presentia-api/internal/dto"
	appErrors "github.com/presentia-id/presentia-api/pkg/errors"
	"github.com/presentia-id/presentia-api/pkg/response"
)

type scanService interface {
	RecordScan(ctx context.Context, req dto.ScanRequest) (*dto.ScanResult, error)
}

// ScanHandler exposes the attendance scan endpoint used by gate devices.
type ScanHandler struct {
	service scanService
}

// NewScanHandler constructs the handler.
func NewScanHandler(service scanService) *ScanHandler {
	return &ScanHandler{service: service}
}

// Create godoc
// @Summary Record an attendance scan
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.ScanRequest true "Scan payload"
// @Success 201 {object} response.Envelope
// @Router /scans [post]
func (h *ScanHandler) Create(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "scan service not configured"))
		return
	}
	var req dto.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid scan payload"))
		return
	}
	result, err := h.service.RecordScan(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, result, nil)
}
