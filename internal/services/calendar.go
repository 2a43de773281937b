package services

import (
	"time"

	"github.com/autoattend/autoattend-backend/internal/models"
)

const (
	dateLayout       = "2006-01-02"
	clockLayout      = "15:04:05"
	recordedAtLayout = "2006-01-02T15:04:05.000Z"
)

// Calendar derives the denormalized calendar fields of an attendance event in one fixed zone
type Calendar struct {
	loc *time.Location
}

// NewCalendar creates a calendar for loc; nil means UTC
func NewCalendar(loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{loc: loc}
}

// Stamp returns the weekday, date, clock time, month and year of t in the calendar's zone
func (c *Calendar) Stamp(t time.Time) models.TimestampDetails {
	local := t.In(c.loc)
	return models.TimestampDetails{
		Day:   local.Weekday().String(),
		Date:  local.Format(dateLayout),
		Time:  local.Format(clockLayout),
		Month: local.Month().String(),
		Year:  local.Year(),
	}
}

// Today returns the calendar date of t in the calendar's zone
func (c *Calendar) Today(t time.Time) string {
	return t.In(c.loc).Format(dateLayout)
}

// FormatRecordedAt renders an instant as ISO-8601 UTC with millisecond precision
func FormatRecordedAt(t time.Time) string {
	return t.UTC().Format(recordedAtLayout)
}
