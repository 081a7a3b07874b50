package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/presentia-id/presentia-api/internal/dto"
	"github.com/presentia-id/presentia-api/internal/models"
	appErrors "github.com/presentia-id/presentia-api/pkg/errors"
	"github.com/presentia-id/presentia-api/pkg/export"
)

type daySheetProvider interface {
	DaySheet(ctx context.Context, scheduleID string, date time.Time) (*dto.DaySheetResponse, bool, error)
}

// ExportFormat enumerates supported download formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// Valid reports whether the format is one of the supported values.
func (f ExportFormat) Valid() bool {
	return f == ExportFormatCSV || f == ExportFormatPDF
}

// ExportFile is a rendered download.
type ExportFile struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ExportService renders day sheets as CSV or PDF downloads. Only raw facts
// go out: per-student time in, time out, status, late minutes. No rates or
// aggregates are computed here.
type ExportService struct {
	sheets daySheetProvider
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(sheets daySheetProvider, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		sheets: sheets,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

var daySheetHeaders = []string{"Student ID", "Time In", "Time Out", "Status", "Late Minutes"}

// RenderDaySheet fetches the day sheet and renders it in the requested format.
func (s *ExportService) RenderDaySheet(ctx context.Context, scheduleID string, date time.Time, format ExportFormat) (*ExportFile, error) {
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	sheet, _, err := s.sheets.DaySheet(ctx, scheduleID, date)
	if err != nil {
		return nil, err
	}

	table := export.Table{Columns: daySheetHeaders, Rows: make([][]string, 0, len(sheet.Rows))}
	for _, row := range sheet.Rows {
		table.Append(
			row.StudentID,
			clockOrDash(row.TimeIn),
			clockOrDash(row.TimeOut),
			string(row.Status),
			strconv.Itoa(row.LateMinutes),
		)
	}

	day := date.Format("2006-01-02")
	switch format {
	case ExportFormatPDF:
		title := fmt.Sprintf("Day Sheet %s %s", scheduleID, day)
		subtitle := fmt.Sprintf("Session %s-%s", sheet.Session.StartTime, sheet.Session.EndTime)
		if sheet.Session.Cancelled {
			subtitle = "Session cancelled"
		}
		content, err := s.pdf.Render(table, title, subtitle)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{
			FileName:    fmt.Sprintf("daysheet-%s-%s.pdf", scheduleID, day),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	default:
		content, err := s.csv.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{
			FileName:    fmt.Sprintf("daysheet-%s-%s.csv", scheduleID, day),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	}
}

func clockOrDash(ct *models.ClockTime) string {
	if ct == nil {
		return "-"
	}
	return ct.String()
}
