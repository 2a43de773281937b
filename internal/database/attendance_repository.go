package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/autoattend/autoattend-backend/internal/models"
	"github.com/jmoiron/sqlx"
)

const attendanceViewColumns = `
	ar.id, ar.employee_id, ar.company_uuid, ar.hex_value, ar.status, ar.recorded_at,
	ar.day_of_week, ar.date, ar.time, ar.month, ar.year, ar.created_at,
	e.name AS employee_name,
	ed.role AS employee_role,
	ed.department AS employee_department,
	ed.emp_id AS employee_emp_id`

const attendanceViewFrom = `
	FROM attendance_records ar
	JOIN employees e ON ar.employee_id = e.id
	LEFT JOIN employee_details ed ON e.id = ed.employee_id`

// LedgerTx is the view of the attendance ledger available while an employee's lock is held
type LedgerTx interface {
	LastRecord(ctx context.Context, employeeID int64) (*models.AttendanceRecord, error)
	LastRecordWithStatus(ctx context.Context, employeeID int64, status models.AttendanceStatus) (*models.AttendanceRecord, error)
	Insert(ctx context.Context, record *models.AttendanceRecord) error
}

// AttendanceRepository handles attendance_records database operations
type AttendanceRepository struct {
	db DB
}

// NewAttendanceRepository creates a new attendance repository
func NewAttendanceRepository(db DB) *AttendanceRepository {
	return &AttendanceRepository{
		db: db,
	}
}

// WithEmployeeLock runs fn in a transaction holding a transaction-scoped advisory lock on
// the employee, so concurrent scans for the same employee read and write one at a time.
// The lock is released on commit or rollback.
func (r *AttendanceRepository) WithEmployeeLock(ctx context.Context, employeeID int64, fn func(tx LedgerTx) error) error {
	return WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, employeeID); err != nil {
			return fmt.Errorf("failed to lock employee ledger: %w", err)
		}
		return fn(&ledgerTx{q: tx})
	})
}

type ledgerTx struct {
	q Queryer
}

// LastRecord returns the employee's most recent record, or nil when there is none
func (l *ledgerTx) LastRecord(ctx context.Context, employeeID int64) (*models.AttendanceRecord, error) {
	query := `
		SELECT id, employee_id, company_uuid, hex_value, status, recorded_at,
			day_of_week, date, time, month, year, created_at
		FROM attendance_records
		WHERE employee_id = $1
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1
	`

	var record models.AttendanceRecord
	err := l.q.GetContext(ctx, &record, query, employeeID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last attendance record: %w", err)
	}
	return &record, nil
}

// LastRecordWithStatus returns the employee's most recent record of the given status, or nil
func (l *ledgerTx) LastRecordWithStatus(ctx context.Context, employeeID int64, status models.AttendanceStatus) (*models.AttendanceRecord, error) {
	query := `
		SELECT id, employee_id, company_uuid, hex_value, status, recorded_at,
			day_of_week, date, time, month, year, created_at
		FROM attendance_records
		WHERE employee_id = $1 AND status = $2
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1
	`

	var record models.AttendanceRecord
	err := l.q.GetContext(ctx, &record, query, employeeID, status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last %s record: %w", status, err)
	}
	return &record, nil
}

// Insert appends a record to the ledger and sets its ID and created_at
func (l *ledgerTx) Insert(ctx context.Context, record *models.AttendanceRecord) error {
	query := `
		INSERT INTO attendance_records (
			employee_id, company_uuid, hex_value, status, recorded_at,
			day_of_week, date, time, month, year
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	err := l.q.QueryRowxContext(ctx, query,
		record.EmployeeID,
		record.CompanyUUID,
		record.HexValue,
		record.Status,
		record.RecordedAt,
		record.DayOfWeek,
		record.Date,
		record.Time,
		record.Month,
		record.Year,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert attendance record: %w", err)
	}
	return nil
}

// buildAttendanceFilter turns a filter into a WHERE clause with positional args
func buildAttendanceFilter(filter models.AttendanceFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	add := func(cond string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.Date != "" {
		add("ar.date = $%d", filter.Date)
	}
	if filter.Month != "" {
		add("ar.date LIKE $%d", filter.Month+"-%")
	}
	if filter.EmployeeID > 0 {
		add("ar.employee_id = $%d", filter.EmployeeID)
	}
	if filter.Status != "" {
		add("ar.status = $%d", filter.Status)
	}
	if filter.Department != "" {
		add("ed.department = $%d", filter.Department)
	}
	if filter.Role != "" {
		add("ed.role = $%d", filter.Role)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns filtered attendance records, newest first
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceView, error) {
	where, args := buildAttendanceFilter(filter)
	args = append(args, filter.Limit)
	query := `SELECT ` + attendanceViewColumns + attendanceViewFrom + where +
		fmt.Sprintf(" ORDER BY ar.recorded_at DESC, ar.id DESC LIMIT $%d", len(args))

	records := []models.AttendanceView{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	return records, nil
}

// ListChronological returns all filtered records ordered by date and time, for exports
func (r *AttendanceRepository) ListChronological(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceView, error) {
	where, args := buildAttendanceFilter(filter)
	query := `SELECT ` + attendanceViewColumns + attendanceViewFrom + where +
		` ORDER BY ar.date ASC, ar.time ASC, ar.id ASC`

	records := []models.AttendanceView{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list attendance for export: %w", err)
	}
	return records, nil
}

// ListByEmployee returns the latest records of a single employee
func (r *AttendanceRepository) ListByEmployee(ctx context.Context, employeeID int64, limit int) ([]models.AttendanceView, error) {
	query := `SELECT ` + attendanceViewColumns + attendanceViewFrom + `
		WHERE ar.employee_id = $1
		ORDER BY ar.recorded_at DESC, ar.id DESC
		LIMIT $2
	`

	records := []models.AttendanceView{}
	if err := r.db.SelectContext(ctx, &records, query, employeeID, limit); err != nil {
		return nil, fmt.Errorf("failed to list employee attendance: %w", err)
	}
	return records, nil
}

// CountCheckinsOn counts check-in events on a calendar date
func (r *AttendanceRepository) CountCheckinsOn(ctx context.Context, date string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM attendance_records WHERE date = $1 AND status = 'checkin'
	`, date)
	if err != nil {
		return 0, fmt.Errorf("failed to count check-ins: %w", err)
	}
	return count, nil
}

// CountPresentOn counts employees with a check-in on date that has no later checkout that day
func (r *AttendanceRepository) CountPresentOn(ctx context.Context, date string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(DISTINCT ar1.employee_id)
		FROM attendance_records ar1
		WHERE ar1.date = $1
			AND ar1.status = 'checkin'
			AND NOT EXISTS (
				SELECT 1 FROM attendance_records ar2
				WHERE ar2.employee_id = ar1.employee_id
					AND ar2.date = $1
					AND ar2.status = 'checkout'
					AND ar2.recorded_at > ar1.recorded_at
			)
	`, date)
	if err != nil {
		return 0, fmt.Errorf("failed to count present employees: %w", err)
	}
	return count, nil
}
