package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/autoattend/autoattend-backend/internal/database"
	"github.com/autoattend/autoattend-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyEvent(t *testing.T) {
	cases := map[string]models.AttendanceStatus{
		"checkout": models.StatusCheckout,
		"checkin":  models.StatusCheckin,
		"":         models.StatusCheckin,
		"CHECKOUT": models.StatusCheckin,
		"break":    models.StatusCheckin,
	}

	for action, want := range cases {
		t.Run(fmt.Sprintf("%q", action), func(t *testing.T) {
			assert.Equal(t, want, ClassifyEvent(action))
		})
	}
}

func TestDuplicateGuard(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	guard := NewDuplicateGuard(time.Minute)
	employee := &models.BadgeHolder{ID: 1, Name: "Jane"}

	evaluate := func(records ...models.AttendanceRecord) (GuardVerdict, error) {
		ledger := newFakeLedger()
		for _, r := range records {
			r.EmployeeID = employee.ID
			ledger.seed(r)
		}
		var verdict GuardVerdict
		var err error
		_ = ledger.WithEmployeeLock(ctx, employee.ID, func(tx database.LedgerTx) error {
			verdict, err = guard.Evaluate(ctx, tx, employee, models.StatusCheckin, now)
			return nil
		})
		return verdict, err
	}

	t.Run("No history", func(t *testing.T) {
		verdict, err := evaluate()
		require.NoError(t, err)
		assert.Equal(t, VerdictAccept, verdict)
	})

	t.Run("Same status as last", func(t *testing.T) {
		_, err := evaluate(models.AttendanceRecord{Status: models.StatusCheckin, RecordedAt: now.Add(-8 * time.Hour)})
		var dup *DuplicateEventError
		assert.ErrorAs(t, err, &dup)
	})

	t.Run("Recent same status behind a different last", func(t *testing.T) {
		verdict, err := evaluate(
			models.AttendanceRecord{Status: models.StatusCheckin, RecordedAt: now.Add(-40 * time.Second)},
			models.AttendanceRecord{Status: models.StatusCheckout, RecordedAt: now.Add(-20 * time.Second)},
		)
		require.NoError(t, err)
		assert.Equal(t, VerdictDedupe, verdict)
	})

	t.Run("Old same status behind a different last", func(t *testing.T) {
		verdict, err := evaluate(
			models.AttendanceRecord{Status: models.StatusCheckin, RecordedAt: now.Add(-2 * time.Hour)},
			models.AttendanceRecord{Status: models.StatusCheckout, RecordedAt: now.Add(-time.Hour)},
		)
		require.NoError(t, err)
		assert.Equal(t, VerdictAccept, verdict)
	})
}

func TestCalendarStamp(t *testing.T) {
	instant := time.Date(2023, 12, 31, 23, 59, 59, 999000000, time.UTC)

	utc := NewCalendar(nil).Stamp(instant)
	assert.Equal(t, models.TimestampDetails{Day: "Sunday", Date: "2023-12-31", Time: "23:59:59", Month: "December", Year: 2023}, utc)

	ahead := NewCalendar(time.FixedZone("UTC+1", 3600)).Stamp(instant)
	assert.Equal(t, models.TimestampDetails{Day: "Monday", Date: "2024-01-01", Time: "00:59:59", Month: "January", Year: 2024}, ahead)

	assert.Equal(t, "2023-12-31T23:59:59.999Z", FormatRecordedAt(instant))
	assert.Equal(t, "2024-01-01T00:00:00.000Z", FormatRecordedAt(time.Date(2024, 1, 1, 1, 0, 0, 0, time.FixedZone("UTC+1", 3600))))
}

func TestDuplicateEventError(t *testing.T) {
	err := &DuplicateEventError{EmployeeName: "Jane", Status: models.StatusCheckin}
	assert.Equal(t, "Duplicate check-in blocked: Employee Jane is already checked in. Please checkout first.", err.Error())

	wrapped := recordingFailed(fmt.Errorf("boom"))
	assert.ErrorIs(t, wrapped, ErrRecordingFailed)
	assert.Contains(t, wrapped.Error(), "boom")
}
