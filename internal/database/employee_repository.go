package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/autoattend/autoattend-backend/internal/models"
	"github.com/jmoiron/sqlx"
)

const employeeWithDetailsColumns = `
	e.id, e.name, e.uuid, e.is_active, e.created_at, e.updated_at,
	ed.id AS details_id, ed.hex_value, ed.role, ed.department, ed.emp_id,
	ed.email, ed.phone, ed.hire_date, ed.manager, ed.location, ed.notes, ed.working_mode,
	ed.created_at AS details_created_at, ed.updated_at AS details_updated_at`

// employeeRow is the flat shape of an employee LEFT JOIN employee_details
type employeeRow struct {
	ID               int64             `db:"id"`
	Name             string            `db:"name"`
	UUID             string            `db:"uuid"`
	IsActive         bool              `db:"is_active"`
	CreatedAt        time.Time         `db:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at"`
	DetailsID        sql.NullInt64     `db:"details_id"`
	HexValue         sql.NullString    `db:"hex_value"`
	Role             models.NullString `db:"role"`
	Department       models.NullString `db:"department"`
	EmpID            models.NullString `db:"emp_id"`
	Email            models.NullString `db:"email"`
	Phone            models.NullString `db:"phone"`
	HireDate         models.NullString `db:"hire_date"`
	Manager          models.NullString `db:"manager"`
	Location         models.NullString `db:"location"`
	Notes            models.NullString `db:"notes"`
	WorkingMode      models.NullString `db:"working_mode"`
	DetailsCreatedAt sql.NullTime      `db:"details_created_at"`
	DetailsUpdatedAt sql.NullTime      `db:"details_updated_at"`
}

func (row *employeeRow) toModel() *models.Employee {
	emp := &models.Employee{
		ID:        row.ID,
		Name:      row.Name,
		UUID:      row.UUID,
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.DetailsID.Valid {
		emp.Details = &models.EmployeeDetails{
			ID:          row.DetailsID.Int64,
			EmployeeID:  row.ID,
			HexValue:    row.HexValue.String,
			Role:        row.Role,
			Department:  row.Department,
			EmpID:       row.EmpID,
			Email:       row.Email,
			Phone:       row.Phone,
			HireDate:    row.HireDate,
			Manager:     row.Manager,
			Location:    row.Location,
			Notes:       row.Notes,
			WorkingMode: row.WorkingMode,
			CreatedAt:   row.DetailsCreatedAt.Time,
			UpdatedAt:   row.DetailsUpdatedAt.Time,
		}
	}
	return emp
}

// EmployeeRepository handles employee and employee_details database operations
type EmployeeRepository struct {
	db DB
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db DB) *EmployeeRepository {
	return &EmployeeRepository{
		db: db,
	}
}

// FindActiveByHex finds the active employee whose badge hex matches exactly.
// Returns nil, nil when there is no match.
func (r *EmployeeRepository) FindActiveByHex(ctx context.Context, hex string) (*models.BadgeHolder, error) {
	query := `
		SELECT e.id, e.name, e.uuid, ed.role, ed.department, ed.emp_id
		FROM employees e
		JOIN employee_details ed ON e.id = ed.employee_id
		WHERE ed.hex_value = $1 AND e.is_active = TRUE
		LIMIT 1
	`

	var holder models.BadgeHolder
	err := r.db.GetContext(ctx, &holder, query, hex)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find employee by hex: %w", err)
	}
	return &holder, nil
}

// FindActiveByName finds an active employee by case-insensitive exact name.
// Returns nil, nil when there is no match.
func (r *EmployeeRepository) FindActiveByName(ctx context.Context, name string) (*models.BadgeHolder, error) {
	query := `
		SELECT e.id, e.name, e.uuid, ed.role, ed.department, ed.emp_id
		FROM employees e
		LEFT JOIN employee_details ed ON e.id = ed.employee_id
		WHERE LOWER(e.name) = LOWER($1) AND e.is_active = TRUE
		ORDER BY e.id ASC
		LIMIT 1
	`

	var holder models.BadgeHolder
	err := r.db.GetContext(ctx, &holder, query, name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find employee by name: %w", err)
	}
	return &holder, nil
}

// ListActive returns all active employees with their details, ordered by name
func (r *EmployeeRepository) ListActive(ctx context.Context) ([]models.Employee, error) {
	query := `SELECT ` + employeeWithDetailsColumns + `
		FROM employees e
		LEFT JOIN employee_details ed ON e.id = ed.employee_id
		WHERE e.is_active = TRUE
		ORDER BY e.name ASC
	`

	var rows []employeeRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}

	employees := make([]models.Employee, 0, len(rows))
	for i := range rows {
		employees = append(employees, *rows[i].toModel())
	}
	return employees, nil
}

// GetByID returns an employee with details regardless of active state.
// Returns nil, nil when the employee does not exist.
func (r *EmployeeRepository) GetByID(ctx context.Context, id int64) (*models.Employee, error) {
	query := `SELECT ` + employeeWithDetailsColumns + `
		FROM employees e
		LEFT JOIN employee_details ed ON e.id = ed.employee_id
		WHERE e.id = $1
	`

	var row employeeRow
	err := r.db.GetContext(ctx, &row, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return row.toModel(), nil
}

// FindByHexAnyState returns the employee owning a hex value, active or not.
// Returns nil, nil when the hex is unused.
func (r *EmployeeRepository) FindByHexAnyState(ctx context.Context, hex string) (*models.Employee, error) {
	query := `SELECT ` + employeeWithDetailsColumns + `
		FROM employees e
		JOIN employee_details ed ON e.id = ed.employee_id
		WHERE ed.hex_value = $1
		LIMIT 1
	`

	var row employeeRow
	err := r.db.GetContext(ctx, &row, query, hex)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find employee by hex: %w", err)
	}
	return row.toModel(), nil
}

// HexExists checks whether any employee_details row already uses the hex value
func (r *EmployeeRepository) HexExists(ctx context.Context, hex string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM employee_details WHERE hex_value = $1)`, hex)
	if err != nil {
		return false, fmt.Errorf("failed to check hex value: %w", err)
	}
	return exists, nil
}

// CountActive returns the number of active employees
func (r *EmployeeRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM employees WHERE is_active = TRUE`); err != nil {
		return 0, fmt.Errorf("failed to count employees: %w", err)
	}
	return count, nil
}

// Create inserts an employee and its details in one transaction.
// IDs and timestamps are written back into emp and details.
func (r *EmployeeRepository) Create(ctx context.Context, emp *models.Employee, details *models.EmployeeDetails) error {
	return WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO employees (name, uuid, is_active)
			VALUES ($1, $2, TRUE)
			RETURNING id, created_at, updated_at
		`, emp.Name, emp.UUID).Scan(&emp.ID, &emp.CreatedAt, &emp.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create employee: %w", err)
		}
		emp.IsActive = true

		details.EmployeeID = emp.ID
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO employee_details (
				employee_id, hex_value, role, department, emp_id,
				email, phone, hire_date, manager, location, notes, working_mode
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id, created_at, updated_at
		`,
			details.EmployeeID,
			details.HexValue,
			details.Role,
			details.Department,
			details.EmpID,
			details.Email,
			details.Phone,
			details.HireDate,
			details.Manager,
			details.Location,
			details.Notes,
			details.WorkingMode,
		).Scan(&details.ID, &details.CreatedAt, &details.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create employee details: %w", err)
		}

		emp.Details = details
		return nil
	})
}

// Reactivate marks an inactive employee active again, renaming it and replacing its details
func (r *EmployeeRepository) Reactivate(ctx context.Context, id int64, name string, details *models.EmployeeDetails) error {
	return WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE employees SET name = $1, is_active = TRUE, updated_at = NOW() WHERE id = $2
		`, name, id)
		if err != nil {
			return fmt.Errorf("failed to reactivate employee: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE employee_details
			SET role = $1, department = $2, emp_id = $3, email = $4, phone = $5, hire_date = $6,
				manager = $7, location = $8, notes = $9, working_mode = $10, updated_at = NOW()
			WHERE employee_id = $11
		`,
			details.Role,
			details.Department,
			details.EmpID,
			details.Email,
			details.Phone,
			details.HireDate,
			details.Manager,
			details.Location,
			details.Notes,
			details.WorkingMode,
			id,
		)
		if err != nil {
			return fmt.Errorf("failed to update employee details: %w", err)
		}
		return nil
	})
}

// Update applies a partial update to the employee and its details in one transaction.
// Returns false when the employee does not exist.
func (r *EmployeeRepository) Update(ctx context.Context, id int64, req *models.UpdateEmployeeRequest) (bool, error) {
	found := false
	err := WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM employees WHERE id = $1)`, id); err != nil {
			return fmt.Errorf("failed to check employee: %w", err)
		}
		if !exists {
			return nil
		}
		found = true

		var sets []string
		var args []interface{}
		if req.Name != nil {
			args = append(args, *req.Name)
			sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
		}
		if req.IsActive != nil {
			args = append(args, *req.IsActive)
			sets = append(sets, fmt.Sprintf("is_active = $%d", len(args)))
		}
		if len(sets) > 0 {
			args = append(args, id)
			query := fmt.Sprintf("UPDATE employees SET %s, updated_at = NOW() WHERE id = $%d", strings.Join(sets, ", "), len(args))
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to update employee: %w", err)
			}
		}

		fields := req.DetailFields()
		if len(fields) == 0 {
			return nil
		}

		// Column names come from a fixed whitelist; sorting keeps the statement stable.
		columns := make([]string, 0, len(fields))
		for column := range fields {
			columns = append(columns, column)
		}
		sort.Strings(columns)

		sets = sets[:0]
		args = args[:0]
		for _, column := range columns {
			value := *fields[column]
			if column == "hex_value" {
				args = append(args, value)
			} else {
				args = append(args, nullString(value))
			}
			sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
		}
		args = append(args, id)
		query := fmt.Sprintf("UPDATE employee_details SET %s, updated_at = NOW() WHERE employee_id = $%d", strings.Join(sets, ", "), len(args))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to update employee details: %w", err)
		}
		return nil
	})
	return found, err
}

// Deactivate soft-deletes an employee. Returns false when the employee does not exist.
func (r *EmployeeRepository) Deactivate(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE employees SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate employee: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// HardDelete removes an employee with its details and attendance history in one transaction.
// Returns false when the employee does not exist.
func (r *EmployeeRepository) HardDelete(ctx context.Context, id int64) (bool, error) {
	deleted := false
	err := WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM attendance_records WHERE employee_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete attendance records: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM employee_details WHERE employee_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete employee details: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete employee: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		deleted = affected > 0
		return nil
	})
	return deleted, err
}
