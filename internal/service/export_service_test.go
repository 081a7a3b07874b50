package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/presentia-id/presentia-api/internal/dto"
	"github.com/presentia-id/presentia-api/internal/models"
	appErrors "github.com/presentia-id/presentia-api/pkg/errors"
)

type daySheetStub struct {
	sheet *dto.DaySheetResponse
}

func (s *daySheetStub) DaySheet(ctx context.Context, scheduleID string, date time.Time) (*dto.DaySheetResponse, bool, error) {
	return s.sheet, false, nil
}

func testDaySheet() *dto.DaySheetResponse {
	timeIn := models.NewClockTime(7, 31)
	return &dto.DaySheetResponse{
		Session: models.EffectiveSession{
			ScheduleID: "slot-1",
			Date:       monday,
			StartTime:  models.NewClockTime(7, 30),
			EndTime:    models.NewClockTime(9, 0),
		},
		Rows: []models.DaySheetRow{
			{EnrollmentID: "enr-1", StudentID: "student-1", TimeIn: &timeIn, Status: models.AttendanceStatusPresent},
			{EnrollmentID: "enr-2", StudentID: "student-2", Status: models.AttendanceStatusAbsent},
		},
	}
}

func TestExportServiceRendersCSV(t *testing.T) {
	svc := NewExportService(&daySheetStub{sheet: testDaySheet()}, nil)

	file, err := svc.RenderDaySheet(context.Background(), "slot-1", monday, ExportFormatCSV)
	require.NoError(t, err)
	require.Equal(t, "text/csv", file.ContentType)
	require.Equal(t, "daysheet-slot-1-2026-03-02.csv", file.FileName)

	body := string(file.Content)
	require.True(t, strings.HasPrefix(body, "Student ID,Time In,Time Out,Status,Late Minutes"))
	require.Contains(t, body, "student-1,07:31,-,PRESENT,0")
	require.Contains(t, body, "student-2,-,-,ABSENT,0")
}

func TestExportServiceRendersPDF(t *testing.T) {
	svc := NewExportService(&daySheetStub{sheet: testDaySheet()}, nil)

	file, err := svc.RenderDaySheet(context.Background(), "slot-1", monday, ExportFormatPDF)
	require.NoError(t, err)
	require.Equal(t, "application/pdf", file.ContentType)
	require.True(t, strings.HasPrefix(string(file.Content), "%PDF"))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(&daySheetStub{sheet: testDaySheet()}, nil)

	_, err := svc.RenderDaySheet(context.Background(), "slot-1", monday, ExportFormat("xlsx"))
	require.ErrorIs(t, err, appErrors.ErrValidation)
}
