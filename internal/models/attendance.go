package models

import "time"

// AttendanceStatus is the kind of an attendance event
type AttendanceStatus string

const (
	StatusCheckin  AttendanceStatus = "checkin"
	StatusCheckout AttendanceStatus = "checkout"
)

// AttendanceRecord is one immutable row of the attendance ledger.
// The calendar fields are computed once at insert and never recomputed.
type AttendanceRecord struct {
	ID          int64            `db:"id" json:"id"`
	EmployeeID  int64            `db:"employee_id" json:"employee_id"`
	CompanyUUID string           `db:"company_uuid" json:"company_uuid"`
	HexValue    string           `db:"hex_value" json:"hex_value"`
	Status      AttendanceStatus `db:"status" json:"status"`
	RecordedAt  time.Time        `db:"recorded_at" json:"recorded_at"`
	DayOfWeek   string           `db:"day_of_week" json:"day_of_week"`
	Date        string           `db:"date" json:"date"`
	Time        string           `db:"time" json:"time"`
	Month       string           `db:"month" json:"month"`
	Year        int              `db:"year" json:"year"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

// AttendanceView is an attendance record joined with employee name and details
type AttendanceView struct {
	AttendanceRecord
	EmployeeName       string     `db:"employee_name" json:"employee_name"`
	EmployeeRole       NullString `db:"employee_role" json:"employee_role"`
	EmployeeDepartment NullString `db:"employee_department" json:"employee_department"`
	EmployeeEmpID      NullString `db:"employee_emp_id" json:"employee_emp_id"`
}

// TimestampDetails are the calendar fields echoed back to the scanner
type TimestampDetails struct {
	Day   string `json:"day"`
	Date  string `json:"date"`
	Time  string `json:"time"`
	Month string `json:"month"`
	Year  int    `json:"year"`
}

// DetectRequest is the payload posted by a badge scanner
type DetectRequest struct {
	HexValue string `json:"hex_value" binding:"required"`
	Action   string `json:"action"`
}

// DetectResponse is returned when a scan was written to the ledger
type DetectResponse struct {
	Success            bool             `json:"success"`
	EmployeeName       string           `json:"employee_name"`
	EmployeeRole       NullString       `json:"employee_role"`
	EmployeeDepartment NullString       `json:"employee_department"`
	EmployeeEmpID      NullString       `json:"employee_emp_id"`
	Status             AttendanceStatus `json:"status"`
	RecordedAt         string           `json:"recorded_at"`
	TimestampDetails   TimestampDetails `json:"timestamp_details"`
}

// DedupedResponse is returned when a scan replay was absorbed without writing
type DedupedResponse struct {
	Success bool `json:"success"`
	Deduped bool `json:"deduped"`
}

// AttendanceFilter narrows attendance listings and exports. Zero values mean "no filter".
type AttendanceFilter struct {
	Date       string `form:"date" binding:"omitempty,datetime=2006-01-02"`
	Month      string `form:"month" binding:"omitempty,datetime=2006-01"`
	EmployeeID int64  `form:"employee_id" binding:"omitempty,min=1"`
	Status     string `form:"status" binding:"omitempty,oneof=checkin checkout"`
	Department string `form:"department"`
	Role       string `form:"role"`
	Limit      int    `form:"limit" binding:"omitempty,min=1"`
}

// AttendanceStats summarizes today's attendance
type AttendanceStats struct {
	TodayCheckins    int    `json:"today_checkins"`
	CurrentlyPresent int    `json:"currently_present"`
	TotalEmployees   int    `json:"total_employees"`
	Date             string `json:"date"`
}

// AttendanceRecordedEvent is published after a scan is written to the ledger
type AttendanceRecordedEvent struct {
	Type         string           `json:"type"`
	RecordID     int64            `json:"record_id"`
	EmployeeID   int64            `json:"employee_id"`
	EmployeeName string           `json:"employee_name"`
	Status       AttendanceStatus `json:"status"`
	RecordedAt   string           `json:"recorded_at"`
	Date         string           `json:"date"`
	ResolvedBy   string           `json:"resolved_by"`
}
