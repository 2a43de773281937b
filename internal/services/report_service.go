package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/autoattend/autoattend-backend/internal/models"
)

const (
	DefaultListLimit         = 100
	MaxListLimit             = 1000
	DefaultEmployeeListLimit = 50

	shortBreakThreshold = 5 * time.Minute
	lunchBreakThreshold = 10 * time.Minute
)

var ErrExportRangeRequired = errors.New("export requires a date or a month")

var exportHeaders = []string{
	"Date", "Time", "Employee", "Status", "Break Type", "Break Duration",
	"First Of Day", "Last Of Day", "Hex Value", "Employee ID",
}

// AttendanceReader is the read side of the attendance ledger
type AttendanceReader interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceView, error)
	ListChronological(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceView, error)
	ListByEmployee(ctx context.Context, employeeID int64, limit int) ([]models.AttendanceView, error)
	CountCheckinsOn(ctx context.Context, date string) (int, error)
	CountPresentOn(ctx context.Context, date string) (int, error)
}

// EmployeeCounter counts the active workforce
type EmployeeCounter interface {
	CountActive(ctx context.Context) (int, error)
}

// ReportService serves attendance listings, daily stats and CSV exports
type ReportService struct {
	records   AttendanceReader
	employees EmployeeCounter
	calendar  *Calendar
	now       func() time.Time
}

// NewReportService creates a new report service
func NewReportService(records AttendanceReader, employees EmployeeCounter, calendar *Calendar) *ReportService {
	return &ReportService{
		records:   records,
		employees: employees,
		calendar:  calendar,
		now:       time.Now,
	}
}

// List returns filtered records, newest first. The limit is clamped to MaxListLimit.
func (s *ReportService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceView, error) {
	filter.Limit = clampLimit(filter.Limit, DefaultListLimit)
	return s.records.List(ctx, filter)
}

// ListForEmployee returns the latest records of one employee
func (s *ReportService) ListForEmployee(ctx context.Context, employeeID int64, limit int) ([]models.AttendanceView, error) {
	return s.records.ListByEmployee(ctx, employeeID, clampLimit(limit, DefaultEmployeeListLimit))
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// Stats summarizes today, where today is the calendar date in the attendance zone
func (s *ReportService) Stats(ctx context.Context) (*models.AttendanceStats, error) {
	today := s.calendar.Today(s.now())

	checkins, err := s.records.CountCheckinsOn(ctx, today)
	if err != nil {
		return nil, err
	}
	present, err := s.records.CountPresentOn(ctx, today)
	if err != nil {
		return nil, err
	}
	total, err := s.employees.CountActive(ctx)
	if err != nil {
		return nil, err
	}

	return &models.AttendanceStats{
		TodayCheckins:    checkins,
		CurrentlyPresent: present,
		TotalEmployees:   total,
		Date:             today,
	}, nil
}

// ExportFilename returns the download name for an export of the given filter
func ExportFilename(filter models.AttendanceFilter) string {
	base := filter.Date
	if base == "" {
		base = filter.Month
	}
	return fmt.Sprintf("attendance-%s.csv", base)
}

// ExportCSV writes the filtered records as CSV with break annotations.
// A date or a month is required.
func (s *ReportService) ExportCSV(ctx context.Context, filter models.AttendanceFilter, w io.Writer) error {
	if filter.Date == "" && filter.Month == "" {
		return ErrExportRangeRequired
	}

	rows, err := s.records.ListChronological(ctx, filter)
	if err != nil {
		return err
	}

	annotations := AnnotateBreaks(rows)

	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeaders); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range rows {
		ann := annotations[r.ID]
		if err := writer.Write([]string{
			r.Date,
			r.Time,
			r.EmployeeName,
			string(r.Status),
			ann.BreakType,
			ann.BreakDuration,
			yesIf(ann.FirstOfDay),
			yesIf(ann.LastOfDay),
			r.HexValue,
			r.EmployeeEmpID.String,
		}); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func yesIf(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

// BreakAnnotation describes one record's place in its employee's day
type BreakAnnotation struct {
	BreakType     string
	BreakDuration string
	FirstOfDay    bool
	LastOfDay     bool
}

type dayKey struct {
	employeeID int64
	date       string
}

// AnnotateBreaks groups records by employee and date and, for each check-in that
// follows a checkout, classifies the gap. The first check-in and last checkout of
// each day are flagged. Results are keyed by record ID.
func AnnotateBreaks(rows []models.AttendanceView) map[int64]BreakAnnotation {
	groups := make(map[dayKey][]models.AttendanceView)
	var order []dayKey
	for _, r := range rows {
		key := dayKey{employeeID: r.EmployeeID, date: r.Date}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	annotations := make(map[int64]BreakAnnotation)
	for _, key := range order {
		var lastCheckout *time.Time
		var firstCheckinID, lastCheckoutID int64
		haveFirst, haveLast := false, false

		for _, r := range groups[key] {
			ts := localTimestamp(r.Date, r.Time)
			switch r.Status {
			case models.StatusCheckin:
				if !haveFirst {
					firstCheckinID, haveFirst = r.ID, true
				}
				if lastCheckout != nil {
					gap := ts.Sub(*lastCheckout)
					ann := annotations[r.ID]
					ann.BreakType = classifyBreak(gap)
					ann.BreakDuration = FormatBreakDuration(gap)
					annotations[r.ID] = ann
				}
			case models.StatusCheckout:
				t := ts
				lastCheckout = &t
				lastCheckoutID, haveLast = r.ID, true
			}
		}

		if haveFirst {
			ann := annotations[firstCheckinID]
			ann.FirstOfDay = true
			annotations[firstCheckinID] = ann
		}
		if haveLast {
			ann := annotations[lastCheckoutID]
			ann.LastOfDay = true
			annotations[lastCheckoutID] = ann
		}
	}

	return annotations
}

func localTimestamp(date, clock string) time.Time {
	if ts, err := time.Parse("2006-01-02 15:04:05", date+" "+clock); err == nil {
		return ts
	}
	ts, _ := time.Parse("2006-01-02", date)
	return ts
}

func classifyBreak(gap time.Duration) string {
	switch {
	case gap < shortBreakThreshold:
		return "Short break"
	case gap >= lunchBreakThreshold:
		return "Lunch break"
	default:
		return "Break"
	}
}

// FormatBreakDuration renders a gap as "Ns", "Nm" or "Nm Ns". Negative gaps render as "0s".
func FormatBreakDuration(d time.Duration) string {
	seconds := int(d / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	minutes, rem := seconds/60, seconds%60
	switch {
	case minutes == 0:
		return fmt.Sprintf("%ds", rem)
	case rem == 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return fmt.Sprintf("%dm %ds", minutes, rem)
	}
}
