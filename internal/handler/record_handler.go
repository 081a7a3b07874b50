package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/presentia-id/presentia-api/internal/dto"
	"github.com/presentia-id/presentia-api/internal/models"
	"github.com/presentia-id/presentia-api/internal/service"
	appErrors "github.com/presentia-id/presentia-api/pkg/errors"
	"github.com/presentia-id/presentia-api/pkg/response"
)

type recordService interface {
	ListRecords(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, *models.Pagination, error)
	DaySheet(ctx context.Context, scheduleID string, date time.Time) (*dto.DaySheetResponse, bool, error)
}

type exportService interface {
	RenderDaySheet(ctx context.Context, scheduleID string, date time.Time, format service.ExportFormat) (*service.ExportFile, error)
}

// RecordHandler exposes raw attendance facts: listings, day sheets, exports.
type RecordHandler struct {
	records recordService
	exports exportService
}

// NewRecordHandler constructs the handler.
func NewRecordHandler(records recordService, exports exportService) *RecordHandler {
	return &RecordHandler{records: records, exports: exports}
}

// List godoc
// @Summary List raw attendance records
// @Tags Attendance
// @Produce json
// @Param student_id query string false "Student ID"
// @Param subject_id query string false "Subject ID"
// @Param term_id query string false "Term ID"
// @Param status query string false "PRESENT, LATE or ABSENT"
// @Param date_from query string false "Start date (YYYY-MM-DD)"
// @Param date_to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/records [get]
func (h *RecordHandler) List(c *gin.Context) {
	if h.records == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "record service not configured"))
		return
	}
	filter := models.AttendanceFilter{
		EnrollmentID: strings.TrimSpace(c.Query("enrollment_id")),
		StudentID:    strings.TrimSpace(c.Query("student_id")),
		SubjectID:    strings.TrimSpace(c.Query("subject_id")),
		TermID:       strings.TrimSpace(c.Query("term_id")),
		Page:         parseQueryInt(c, "page", 1),
		PageSize:     parseQueryInt(c, "page_size", 50),
		SortBy:       strings.TrimSpace(c.Query("sort_by")),
		SortOrder:    strings.TrimSpace(c.Query("sort_order")),
	}
	if raw := strings.ToUpper(strings.TrimSpace(c.Query("status"))); raw != "" {
		status := models.AttendanceStatus(raw)
		if !status.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status must be PRESENT, LATE or ABSENT"))
			return
		}
		filter.Status = &status
	}
	if from, ok := parseDateQuery(c, "date_from"); ok {
		filter.DateFrom = &from
	}
	if to, ok := parseDateQuery(c, "date_to"); ok {
		filter.DateTo = &to
	}
	records, pagination, err := h.records.ListRecords(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// DaySheet godoc
// @Summary Day sheet for one slot and date
// @Tags Attendance
// @Produce json
// @Param id path string true "Slot ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/day-sheet [get]
func (h *RecordHandler) DaySheet(c *gin.Context) {
	if h.records == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "record service not configured"))
		return
	}
	date, ok := parseDateQuery(c, "date")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date query parameter must be YYYY-MM-DD"))
		return
	}
	sheet, cached, err := h.records.DaySheet(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil, map[string]interface{}{"cached": cached})
}

// Export godoc
// @Summary Export a day sheet as CSV or PDF
// @Tags Attendance
// @Produce octet-stream
// @Param id path string true "Slot ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} binary
// @Router /schedules/{id}/day-sheet/export [get]
func (h *RecordHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export service not configured"))
		return
	}
	date, ok := parseDateQuery(c, "date")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date query parameter must be YYYY-MM-DD"))
		return
	}
	format := service.ExportFormat(strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "csv"))))
	file, err := h.exports.RenderDaySheet(c.Request.Context(), c.Param("id"), date, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Download(c, file.FileName, file.ContentType, file.Content)
}
