package services

import (
	"context"
	"errors"
	"time"

	"github.com/autoattend/autoattend-backend/internal/database"
	"github.com/autoattend/autoattend-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// AttendanceLedger serializes writes to one employee's attendance history
type AttendanceLedger interface {
	WithEmployeeLock(ctx context.Context, employeeID int64, fn func(tx database.LedgerTx) error) error
}

// EventPublisher publishes attendance events to downstream consumers
type EventPublisher interface {
	PublishAttendanceRecorded(ctx context.Context, event models.AttendanceRecordedEvent) error
}

// RecordResult is the outcome of a successful scan
type RecordResult struct {
	Deduped    bool
	Employee   *models.BadgeHolder
	Resolution Resolution
	Record     *models.AttendanceRecord
	Timestamp  models.TimestampDetails
	RecordedAt string
}

// AttendanceService records badge scans: resolve, classify, guard, write
type AttendanceService struct {
	resolver    *BadgeResolver
	guard       *DuplicateGuard
	calendar    *Calendar
	ledger      AttendanceLedger
	publisher   EventPublisher
	companyUUID string
	logger      *logrus.Logger
	now         func() time.Time
}

// NewAttendanceService creates a new attendance recording service.
// publisher may be nil when no event queue is configured.
func NewAttendanceService(
	resolver *BadgeResolver,
	guard *DuplicateGuard,
	calendar *Calendar,
	ledger AttendanceLedger,
	publisher EventPublisher,
	companyUUID string,
	logger *logrus.Logger,
) *AttendanceService {
	return &AttendanceService{
		resolver:    resolver,
		guard:       guard,
		calendar:    calendar,
		ledger:      ledger,
		publisher:   publisher,
		companyUUID: companyUUID,
		logger:      logger,
		now:         time.Now,
	}
}

// Record processes one scan. It returns ErrInvalidBadge, ErrEmployeeNotFound,
// *DuplicateEventError or an error wrapping ErrRecordingFailed.
// A replay inside the dedupe window returns a result with Deduped set and writes nothing.
func (s *AttendanceService) Record(ctx context.Context, rawHex, action string) (*RecordResult, error) {
	resolution, hex, err := s.resolver.Resolve(ctx, rawHex)
	if err != nil {
		if errors.Is(err, ErrInvalidBadge) || errors.Is(err, ErrEmployeeNotFound) {
			s.logger.WithFields(logrus.Fields{
				"hex_value": hex,
				"reason":    err.Error(),
			}).Warn("Badge scan rejected")
			return nil, err
		}
		return nil, recordingFailed(err)
	}

	employee := resolution.Holder()
	status := ClassifyEvent(action)

	s.logger.WithFields(logrus.Fields{
		"employee_id": employee.ID,
		"hex_value":   hex,
		"resolved_by": resolution.Strategy(),
		"status":      status,
	}).Info("Badge resolved")

	result := &RecordResult{
		Employee:   employee,
		Resolution: resolution,
	}

	err = s.ledger.WithEmployeeLock(ctx, employee.ID, func(tx database.LedgerTx) error {
		now := s.now().UTC().Truncate(time.Millisecond)

		verdict, err := s.guard.Evaluate(ctx, tx, employee, status, now)
		if err != nil {
			return err
		}
		if verdict == VerdictDedupe {
			result.Deduped = true
			return nil
		}

		stamp := s.calendar.Stamp(now)
		record := &models.AttendanceRecord{
			EmployeeID:  employee.ID,
			CompanyUUID: s.companyUUID,
			HexValue:    hex,
			Status:      status,
			RecordedAt:  now,
			DayOfWeek:   stamp.Day,
			Date:        stamp.Date,
			Time:        stamp.Time,
			Month:       stamp.Month,
			Year:        stamp.Year,
		}
		if err := tx.Insert(ctx, record); err != nil {
			return err
		}

		result.Record = record
		result.Timestamp = stamp
		result.RecordedAt = FormatRecordedAt(now)
		return nil
	})
	if err != nil {
		var dup *DuplicateEventError
		if errors.As(err, &dup) {
			s.logger.WithFields(logrus.Fields{
				"employee_id": employee.ID,
				"status":      status,
			}).Warn("Duplicate attendance event blocked")
			return nil, err
		}
		s.logger.WithFields(logrus.Fields{
			"employee_id": employee.ID,
			"status":      status,
			"error":       err.Error(),
		}).Error("Failed to record attendance")
		return nil, recordingFailed(err)
	}

	if result.Deduped {
		s.logger.WithFields(logrus.Fields{
			"employee_id": employee.ID,
			"status":      status,
		}).Info("Attendance replay deduplicated")
		return result, nil
	}

	s.logger.WithFields(logrus.Fields{
		"employee_id": employee.ID,
		"record_id":   result.Record.ID,
		"status":      status,
		"recorded_at": result.RecordedAt,
	}).Info("Attendance recorded")

	s.publish(ctx, result)
	return result, nil
}

// publish sends the attendance.recorded event; failures are logged and never surfaced
func (s *AttendanceService) publish(ctx context.Context, result *RecordResult) {
	if s.publisher == nil {
		return
	}

	event := models.AttendanceRecordedEvent{
		Type:         "attendance.recorded",
		RecordID:     result.Record.ID,
		EmployeeID:   result.Employee.ID,
		EmployeeName: result.Employee.Name,
		Status:       result.Record.Status,
		RecordedAt:   result.RecordedAt,
		Date:         result.Record.Date,
		ResolvedBy:   result.Resolution.Strategy(),
	}
	if err := s.publisher.PublishAttendanceRecorded(ctx, event); err != nil {
		s.logger.WithFields(logrus.Fields{
			"record_id": result.Record.ID,
			"error":     err.Error(),
		}).Warn("Failed to publish attendance event")
	}
}
