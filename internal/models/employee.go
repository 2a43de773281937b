package models

import "time"

// Employee represents a person whose badge can be scanned
type Employee struct {
	ID        int64            `db:"id" json:"id"`
	Name      string           `db:"name" json:"name"`
	UUID      string           `db:"uuid" json:"uuid"`
	IsActive  bool             `db:"is_active" json:"is_active"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
	Details   *EmployeeDetails `db:"-" json:"details"`
}

// EmployeeDetails holds the HR profile and badge hex of an employee (one per employee)
type EmployeeDetails struct {
	ID          int64      `db:"id" json:"id"`
	EmployeeID  int64      `db:"employee_id" json:"employee_id"`
	HexValue    string     `db:"hex_value" json:"hex_value"`
	Role        NullString `db:"role" json:"role"`
	Department  NullString `db:"department" json:"department"`
	EmpID       NullString `db:"emp_id" json:"emp_id"`
	Email       NullString `db:"email" json:"email"`
	Phone       NullString `db:"phone" json:"phone"`
	HireDate    NullString `db:"hire_date" json:"hire_date"`
	Manager     NullString `db:"manager" json:"manager"`
	Location    NullString `db:"location" json:"location"`
	Notes       NullString `db:"notes" json:"notes"`
	WorkingMode NullString `db:"working_mode" json:"working_mode"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// BadgeHolder is the minimal view of an active employee needed to record a scan
type BadgeHolder struct {
	ID         int64      `db:"id"`
	Name       string     `db:"name"`
	UUID       string     `db:"uuid"`
	Role       NullString `db:"role"`
	Department NullString `db:"department"`
	EmpID      NullString `db:"emp_id"`
}

// CreateEmployeeRequest represents the payload to create or reactivate an employee
type CreateEmployeeRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	HexValue    string `json:"hex_value" binding:"omitempty,badgehex"`
	Role        string `json:"role" binding:"required"`
	Department  string `json:"department" binding:"required"`
	EmpID       string `json:"emp_id"`
	Email       string `json:"email" binding:"omitempty,email"`
	Phone       string `json:"phone"`
	HireDate    string `json:"hire_date" binding:"omitempty,datetime=2006-01-02"`
	Manager     string `json:"manager"`
	Location    string `json:"location"`
	Notes       string `json:"notes"`
	WorkingMode string `json:"working_mode"`
}

// UpdateEmployeeRequest represents a partial employee update; nil fields are left unchanged
type UpdateEmployeeRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=200"`
	IsActive    *bool   `json:"is_active"`
	HexValue    *string `json:"hex_value" binding:"omitempty,badgehex"`
	Role        *string `json:"role"`
	Department  *string `json:"department"`
	EmpID       *string `json:"emp_id"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	HireDate    *string `json:"hire_date"`
	Manager     *string `json:"manager"`
	Location    *string `json:"location"`
	Notes       *string `json:"notes"`
	WorkingMode *string `json:"working_mode"`
}

// DetailFields returns the details columns that are set on the request, keyed by column name
func (r *UpdateEmployeeRequest) DetailFields() map[string]*string {
	fields := map[string]*string{
		"hex_value":    r.HexValue,
		"role":         r.Role,
		"department":   r.Department,
		"emp_id":       r.EmpID,
		"email":        r.Email,
		"phone":        r.Phone,
		"hire_date":    r.HireDate,
		"manager":      r.Manager,
		"location":     r.Location,
		"notes":        r.Notes,
		"working_mode": r.WorkingMode,
	}
	for k, v := range fields {
		if v == nil {
			delete(fields, k)
		}
	}
	return fields
}

// HasChanges reports whether the request updates anything
func (r *UpdateEmployeeRequest) HasChanges() bool {
	return r.Name != nil || r.IsActive != nil || len(r.DetailFields()) > 0
}
