package services

import (
	"errors"
	"fmt"

	"github.com/autoattend/autoattend-backend/internal/models"
)

var (
	// ErrInvalidBadge indicates the badge hex is malformed or does not decode to a name
	ErrInvalidBadge = errors.New("invalid badge hex")

	// ErrEmployeeNotFound indicates no active employee matches the badge
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrRecordingFailed indicates the ledger could not be read or written
	ErrRecordingFailed = errors.New("failed to record attendance")
)

// DuplicateEventError is returned when an employee repeats the status of their last event
type DuplicateEventError struct {
	EmployeeName string
	Status       models.AttendanceStatus
}

func (e *DuplicateEventError) Error() string {
	return e.Title() + ": " + e.Message()
}

// Title is the short error label returned to scanners
func (e *DuplicateEventError) Title() string {
	if e.Status == models.StatusCheckout {
		return "Duplicate checkout blocked"
	}
	return "Duplicate check-in blocked"
}

// Message names the employee and the action they need to take next
func (e *DuplicateEventError) Message() string {
	if e.Status == models.StatusCheckout {
		return fmt.Sprintf("Employee %s is already checked out. Please checkin first.", e.EmployeeName)
	}
	return fmt.Sprintf("Employee %s is already checked in. Please checkout first.", e.EmployeeName)
}

// recordingFailed wraps a storage error so callers can match ErrRecordingFailed
func recordingFailed(err error) error {
	return fmt.Errorf("%w: %w", ErrRecordingFailed, err)
}
