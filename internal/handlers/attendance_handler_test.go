package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/autoattend/autoattend-backend/internal/models"
	"github.com/autoattend/autoattend-backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	result *services.RecordResult
	err    error
	gotHex string
	gotAct string
}

func (f *fakeRecorder) Record(ctx context.Context, rawHex, action string) (*services.RecordResult, error) {
	f.gotHex = rawHex
	f.gotAct = action
	return f.result, f.err
}

type fakeReports struct {
	rows       []models.AttendanceView
	stats      *models.AttendanceStats
	err        error
	lastFilter models.AttendanceFilter
}

func (f *fakeReports) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceView, error) {
	f.lastFilter = filter
	return f.rows, f.err
}

func (f *fakeReports) Stats(ctx context.Context) (*models.AttendanceStats, error) {
	return f.stats, f.err
}

func (f *fakeReports) ExportCSV(ctx context.Context, filter models.AttendanceFilter, w io.Writer) error {
	f.lastFilter = filter
	if filter.Date == "" && filter.Month == "" {
		return services.ErrExportRangeRequired
	}
	if f.err != nil {
		return f.err
	}
	_, err := fmt.Fprint(w, "Date,Time,Employee\n2024-03-05,09:00:00,Jane\n")
	return err
}

func setupAttendanceRouter(recorder *fakeRecorder, reports *fakeReports) http.Handler {
	handler := NewAttendanceHandler(recorder, reports, quietLogger())
	router := setupTestRouter()
	router.POST("/api/esp32/detect", handler.Detect)
	router.GET("/api/attendance", handler.ListAttendance)
	router.GET("/api/attendance/stats", handler.GetStats)
	router.GET("/api/attendance/export", handler.ExportAttendance)
	return router
}

func TestDetect_Recorded(t *testing.T) {
	recorder := &fakeRecorder{result: &services.RecordResult{
		Employee: &models.BadgeHolder{
			ID:         3,
			Name:       "Jane",
			Role:       models.NewNullString("Engineer"),
			Department: models.NewNullString("R&D"),
		},
		Record: &models.AttendanceRecord{ID: 10, Status: models.StatusCheckin},
		Timestamp: models.TimestampDetails{
			Day: "Tuesday", Date: "2024-03-05", Time: "09:00:00", Month: "March", Year: 2024,
		},
		RecordedAt: "2024-03-05T03:30:00.000Z",
	}}
	router := setupAttendanceRouter(recorder, &fakeReports{})

	w := doJSON(t, router, http.MethodPost, "/api/esp32/detect", map[string]string{"hex_value": "4A616E65"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"success": true,
		"employee_name": "Jane",
		"employee_role": "Engineer",
		"employee_department": "R&D",
		"employee_emp_id": null,
		"status": "checkin",
		"recorded_at": "2024-03-05T03:30:00.000Z",
		"timestamp_details": {"day":"Tuesday","date":"2024-03-05","time":"09:00:00","month":"March","year":2024}
	}`, w.Body.String())
	assert.Equal(t, "4A616E65", recorder.gotHex)
	assert.Equal(t, "", recorder.gotAct)
}

func TestDetect_Deduped(t *testing.T) {
	recorder := &fakeRecorder{result: &services.RecordResult{Deduped: true}}
	router := setupAttendanceRouter(recorder, &fakeReports{})

	w := doJSON(t, router, http.MethodPost, "/api/esp32/detect", map[string]string{"hex_value": "4A616E65", "action": "checkin"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"deduped":true}`, w.Body.String())
	assert.Equal(t, "checkin", recorder.gotAct)
}

func TestDetect_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "invalid badge",
			err:        services.ErrInvalidBadge,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Invalid hex value - cannot convert to employee name"}`,
		},
		{
			name:       "unknown employee",
			err:        services.ErrEmployeeNotFound,
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":"Employee not found","details":"No active employee found with hex value '4A6F686E'"}`,
		},
		{
			name:       "duplicate checkin",
			err:        &services.DuplicateEventError{EmployeeName: "John", Status: models.StatusCheckin},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"success":false,"error":"Duplicate check-in blocked","message":"Employee John is already checked in. Please checkout first."}`,
		},
		{
			name:       "duplicate checkout",
			err:        &services.DuplicateEventError{EmployeeName: "John", Status: models.StatusCheckout},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"success":false,"error":"Duplicate checkout blocked","message":"Employee John is already checked out. Please checkin first."}`,
		},
		{
			name:       "storage failure",
			err:        fmt.Errorf("%w: %w", services.ErrRecordingFailed, errors.New("connection reset")),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"Failed to record attendance"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupAttendanceRouter(&fakeRecorder{err: tt.err}, &fakeReports{})

			w := doJSON(t, router, http.MethodPost, "/api/esp32/detect", map[string]string{"hex_value": "4a6f686e"})

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestDetect_MissingHex(t *testing.T) {
	recorder := &fakeRecorder{}
	router := setupAttendanceRouter(recorder, &fakeReports{})

	w := doJSON(t, router, http.MethodPost, "/api/esp32/detect", map[string]string{"action": "checkin"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, recorder.gotHex)
}

func TestListAttendance_Filters(t *testing.T) {
	reports := &fakeReports{}
	router := setupAttendanceRouter(&fakeRecorder{}, reports)

	w := doJSON(t, router, http.MethodGet, "/api/attendance?date=2024-03-05&status=checkout&employee_id=3&limit=20&department=R%26D", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
	assert.Equal(t, models.AttendanceFilter{
		Date:       "2024-03-05",
		Status:     "checkout",
		EmployeeID: 3,
		Department: "R&D",
		Limit:      20,
	}, reports.lastFilter)
}

func TestListAttendance_InvalidQuery(t *testing.T) {
	router := setupAttendanceRouter(&fakeRecorder{}, &fakeReports{})

	for _, query := range []string{"date=05-03-2024", "month=2024-3-1", "status=break", "limit=abc"} {
		w := doJSON(t, router, http.MethodGet, "/api/attendance?"+query, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestGetStats(t *testing.T) {
	reports := &fakeReports{stats: &models.AttendanceStats{TodayCheckins: 4, CurrentlyPresent: 2, TotalEmployees: 9, Date: "2024-03-05"}}
	router := setupAttendanceRouter(&fakeRecorder{}, reports)

	w := doJSON(t, router, http.MethodGet, "/api/attendance/stats", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"today_checkins":4,"currently_present":2,"total_employees":9,"date":"2024-03-05"}`, w.Body.String())
}

func TestExportAttendance(t *testing.T) {
	router := setupAttendanceRouter(&fakeRecorder{}, &fakeReports{})

	w := doJSON(t, router, http.MethodGet, "/api/attendance/export?month=2024-03", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="attendance-2024-03.csv"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Body.String(), "2024-03-05,09:00:00,Jane")
}

func TestExportAttendance_RequiresRange(t *testing.T) {
	router := setupAttendanceRouter(&fakeRecorder{}, &fakeReports{})

	w := doJSON(t, router, http.MethodGet, "/api/attendance/export", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Provide either ?date=YYYY-MM-DD or ?month=YYYY-MM", decodeBody(t, w)["error"])
}

func TestExportAttendance_Failure(t *testing.T) {
	router := setupAttendanceRouter(&fakeRecorder{}, &fakeReports{err: errors.New("db down")})

	w := doJSON(t, router, http.MethodGet, "/api/attendance/export?date=2024-03-05", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
}
