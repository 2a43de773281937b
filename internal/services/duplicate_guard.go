package services

import (
	"context"
	"time"

	"github.com/autoattend/autoattend-backend/internal/models"
)

// LedgerReader reads an employee's attendance history
type LedgerReader interface {
	LastRecord(ctx context.Context, employeeID int64) (*models.AttendanceRecord, error)
	LastRecordWithStatus(ctx context.Context, employeeID int64, status models.AttendanceStatus) (*models.AttendanceRecord, error)
}

// GuardVerdict is the duplicate guard's decision for a proposed event
type GuardVerdict int

const (
	// VerdictAccept means the event should be written
	VerdictAccept GuardVerdict = iota
	// VerdictDedupe means the event is a replay and must be absorbed without writing
	VerdictDedupe
)

// DefaultDedupeWindow is how far back a same-status event makes a new one a replay
const DefaultDedupeWindow = 60 * time.Second

// DuplicateGuard enforces check-in/checkout alternation and absorbs rapid replays
type DuplicateGuard struct {
	window time.Duration
}

// NewDuplicateGuard creates a guard with the given replay window
func NewDuplicateGuard(window time.Duration) *DuplicateGuard {
	return &DuplicateGuard{window: window}
}

// Evaluate decides whether employee may record status at now.
//   - no prior record: accept
//   - last record has the same status: *DuplicateEventError
//   - a record with the same status exists at or after now-window: dedupe
//   - otherwise: accept
func (g *DuplicateGuard) Evaluate(ctx context.Context, ledger LedgerReader, employee *models.BadgeHolder, status models.AttendanceStatus, now time.Time) (GuardVerdict, error) {
	last, err := ledger.LastRecord(ctx, employee.ID)
	if err != nil {
		return VerdictAccept, err
	}
	if last == nil {
		return VerdictAccept, nil
	}

	if last.Status == status {
		return VerdictAccept, &DuplicateEventError{EmployeeName: employee.Name, Status: status}
	}

	recent, err := ledger.LastRecordWithStatus(ctx, employee.ID, status)
	if err != nil {
		return VerdictAccept, err
	}
	if recent != nil && !recent.RecordedAt.Before(now.Add(-g.window)) {
		return VerdictDedupe, nil
	}

	return VerdictAccept, nil
}
