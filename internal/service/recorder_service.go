package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/presentia-id/presentia-api/internal/dto"
	"github.com/presentia-id/presentia-api/internal/models"
	"github.com/presentia-id/presentia-api/internal/repository"
	"github.com/presentia-id/presentia-api/pkg/config"
	appErrors "github.com/presentia-id/presentia-api/pkg/errors"
)

type enrollmentReader interface {
	FindActive(ctx context.Context, studentID, subjectID, termID string) (*models.Enrollment, error)
}

type attendanceStore interface {
	InsertTimeIn(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	Get(ctx context.Context, enrollmentID string, date time.Time) (*models.AttendanceRecord, error)
	SetTimeOut(ctx context.Context, recordID string, timeOut models.ClockTime) error
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, int, error)
	DaySheet(ctx context.Context, scheduleID string, date time.Time) ([]models.DaySheetRow, error)
}

type sessionResolver interface {
	Resolve(ctx context.Context, scheduleID string, date time.Time) (*models.EffectiveSession, error)
}

// Clock abstracts wall-clock time for the skew bound; tests pin it.
type Clock func() time.Time

// RecorderService turns scan events into time-in/time-out transitions. It
// re-resolves the session on every scan; a cached decision could diverge
// from a freshly approved override mid-session.
type RecorderService struct {
	enrollments enrollmentReader
	slots       slotReader
	resolver    sessionResolver
	records     attendanceStore
	cache       *CacheService
	audit       auditLogger
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         config.AttendanceConfig
	now         Clock
}

// NewRecorderService constructs the recorder.
func NewRecorderService(
	enrollments enrollmentReader,
	slots slotReader,
	resolver sessionResolver,
	records attendanceStore,
	cache *CacheService,
	audit auditLogger,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg config.AttendanceConfig,
) *RecorderService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecorderService{
		enrollments: enrollments,
		slots:       slots,
		resolver:    resolver,
		records:     records,
		cache:       cache,
		audit:       audit,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// WithClock overrides the wall clock; used by tests.
func (s *RecorderService) WithClock(clock Clock) *RecorderService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// RecordScan converts one scan submission into a time-in or time-out. The
// write path is insert-then-update against the (enrollment, date) unique
// constraint so two racing scans for the same credential serialise in the
// store instead of double-creating.
func (s *RecorderService) RecordScan(ctx context.Context, req dto.ScanRequest) (*dto.ScanResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, s.reject(appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scan payload"))
	}

	scanAt, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		return nil, s.reject(appErrors.Clone(appErrors.ErrValidation, "invalid timestamp, expected RFC 3339"))
	}
	if s.cfg.EnforceClockSkew {
		if drift := absDuration(s.now().Sub(scanAt)); drift > s.cfg.ClockSkewTolerance {
			return nil, s.reject(appErrors.Clone(appErrors.ErrStaleTimestamp,
				fmt.Sprintf("scan timestamp drifts %s from server time", drift.Truncate(time.Second))))
		}
	}
	date := normalizeDate(scanAt)
	scanClock := models.ClockOf(scanAt)

	slot, err := s.slots.GetByID(ctx, req.ScheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.reject(appErrors.Clone(appErrors.ErrNotFound, "schedule slot not found"))
		}
		return nil, s.reject(appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule slot"))
	}
	if slot.TermID != req.TermID {
		return nil, s.reject(appErrors.Clone(appErrors.ErrValidation, "schedule does not belong to the given academic period"))
	}

	enrollment, err := s.enrollments.FindActive(ctx, req.StudentID, slot.SubjectID, req.TermID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.reject(appErrors.Clone(appErrors.ErrNotEnrolled, "student is not enrolled in this subject for the period"))
		}
		return nil, s.reject(appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve enrollment"))
	}

	session, err := s.resolver.Resolve(ctx, req.ScheduleID, date)
	if err != nil {
		return nil, s.reject(err)
	}
	if session.DayMismatch {
		return nil, s.reject(appErrors.Clone(appErrors.ErrNoActiveSession, "the slot does not meet on this weekday"))
	}
	if session.Cancelled {
		return nil, s.reject(appErrors.Clone(appErrors.ErrSessionCancelled, "the session was cancelled by an approved override"))
	}

	windowStart := session.StartTime.Add(-s.cfg.PreWindowGrace)
	windowEnd := session.EndTime.Add(s.cfg.PostWindowGrace)
	if scanClock.Before(windowStart) || scanClock.After(windowEnd) {
		return nil, s.reject(appErrors.Clone(appErrors.ErrOutsideWindow,
			fmt.Sprintf("scan at %s is outside the window %s-%s", scanClock, windowStart, windowEnd)))
	}

	result, err := s.recordTransition(ctx, enrollment.ID, date, scanClock, session)
	if err != nil {
		return nil, s.reject(err)
	}

	s.invalidateDaySheet(ctx, req.ScheduleID, date)
	if s.metrics != nil {
		s.metrics.RecordScan(string(result.Action), "accepted")
	}
	s.emitScanAudit(ctx, req, result)
	return result, nil
}

// recordTransition is the atomic step 4 of the scan algorithm: create with
// time-in, else complete with time-out, else fail.
func (s *RecorderService) recordTransition(ctx context.Context, enrollmentID string, date time.Time, scanClock models.ClockTime, session *models.EffectiveSession) (*dto.ScanResult, error) {
	lateMinutes := scanClock.Sub(session.StartTime) - int(s.cfg.LateGrace/time.Minute)
	if lateMinutes < 0 {
		lateMinutes = 0
	}
	status := models.AttendanceStatusPresent
	if lateMinutes > 0 {
		status = models.AttendanceStatusLate
	}
	timeIn := scanClock
	record := &models.AttendanceRecord{
		EnrollmentID: enrollmentID,
		Date:         date,
		TimeIn:       &timeIn,
		Status:       status,
		LateMinutes:  lateMinutes,
	}

	stored, err := s.records.InsertTimeIn(ctx, record)
	if err == nil {
		return &dto.ScanResult{
			Action:      models.ScanActionTimeIn,
			RecordID:    stored.ID,
			LateMinutes: stored.LateMinutes,
			Status:      stored.Status,
		}, nil
	}
	if !errors.Is(err, repository.ErrRecordExists) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record time-in")
	}

	// A record already exists: this scan is a time-out attempt.
	existing, err := s.records.Get(ctx, enrollmentID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance record")
	}
	if existing.TimeOut != nil {
		return nil, appErrors.Clone(appErrors.ErrAlreadyComplete, "attendance already has time in and time out for this date")
	}
	if existing.TimeIn != nil && scanClock.Before(*existing.TimeIn) {
		return nil, appErrors.Clone(appErrors.ErrOutsideWindow, "time-out cannot be earlier than the recorded time-in")
	}
	if err := s.records.SetTimeOut(ctx, existing.ID, scanClock); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// A concurrent scan completed the record first.
			return nil, appErrors.Clone(appErrors.ErrAlreadyComplete, "attendance already has time in and time out for this date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record time-out")
	}
	// Status and lateness stay as decided at time-in.
	return &dto.ScanResult{
		Action:      models.ScanActionTimeOut,
		RecordID:    existing.ID,
		LateMinutes: existing.LateMinutes,
		Status:      existing.Status,
	}, nil
}

// ListRecords exposes raw attendance facts with pagination.
func (s *RecorderService) ListRecords(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	rows, total, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance records")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return rows, pagination, nil
}

// DaySheet returns the resolved session plus the raw per-record rows for one
// slot and date. Rows are served from cache when enabled; the session itself
// is always resolved fresh.
func (s *RecorderService) DaySheet(ctx context.Context, scheduleID string, date time.Time) (*dto.DaySheetResponse, bool, error) {
	date = normalizeDate(date)
	session, err := s.resolver.Resolve(ctx, scheduleID, date)
	if err != nil {
		return nil, false, err
	}

	key := DaySheetKey(scheduleID, date)
	var rows []models.DaySheetRow
	hit, _ := s.cache.Get(ctx, key, &rows)
	if !hit {
		rows, err = s.records.DaySheet(ctx, scheduleID, date)
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load day sheet")
		}
		_ = s.cache.Set(ctx, key, rows, 0)
	}
	return &dto.DaySheetResponse{Session: *session, Rows: rows}, hit, nil
}

func (s *RecorderService) invalidateDaySheet(ctx context.Context, scheduleID string, date time.Time) {
	if !s.cache.Enabled() {
		return
	}
	_ = s.cache.Invalidate(ctx, DaySheetKey(scheduleID, date))
}

// reject counts the rejection and passes the error back unchanged.
func (s *RecorderService) reject(err error) error {
	if s.metrics != nil {
		s.metrics.RecordScan("none", appErrors.FromError(err).Code)
	}
	return err
}

func (s *RecorderService) emitScanAudit(ctx context.Context, req dto.ScanRequest, result *dto.ScanResult) {
	if s.audit == nil {
		return
	}
	detail, _ := json.Marshal(map[string]interface{}{
		"student_id":   req.StudentID,
		"schedule_id":  req.ScheduleID,
		"timestamp":    req.Timestamp,
		"action":       result.Action,
		"late_minutes": result.LateMinutes,
	})
	log := &models.AuditLog{
		Action:     models.AuditActionScan,
		Resource:   "attendance_record",
		ResourceID: &result.RecordID,
		Detail:     detail,
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist scan audit log", zap.Error(err))
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
