package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/autoattend/autoattend-backend/internal/models"
	"github.com/autoattend/autoattend-backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmployeeManager struct {
	employees   []models.Employee
	createErr   error
	updateErr   error
	deleteErr   error
	created     *models.CreateEmployeeRequest
	updated     *models.UpdateEmployeeRequest
	deactivated int64
}

func (f *fakeEmployeeManager) List(ctx context.Context) ([]models.Employee, error) {
	return f.employees, nil
}

func (f *fakeEmployeeManager) Create(ctx context.Context, req *models.CreateEmployeeRequest) (*models.Employee, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = req
	return &models.Employee{
		ID:       11,
		Name:     req.Name,
		IsActive: true,
		Details:  &models.EmployeeDetails{EmployeeID: 11, HexValue: "4A616E65"},
	}, nil
}

func (f *fakeEmployeeManager) Update(ctx context.Context, id int64, req *models.UpdateEmployeeRequest) (*models.Employee, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updated = req
	return &models.Employee{ID: id, Name: "Jane", IsActive: true}, nil
}

func (f *fakeEmployeeManager) Deactivate(ctx context.Context, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deactivated = id
	return nil
}

func (f *fakeEmployeeManager) HardDelete(ctx context.Context, id int64) (*models.Employee, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &models.Employee{ID: id, Name: "Jane"}, nil
}

type fakeHistory struct {
	gotLimit int
}

func (f *fakeHistory) ListForEmployee(ctx context.Context, employeeID int64, limit int) ([]models.AttendanceView, error) {
	f.gotLimit = limit
	return nil, nil
}

func setupEmployeeRouter(manager *fakeEmployeeManager, history *fakeHistory, audit *fakeAudit) http.Handler {
	handler := NewEmployeeHandler(manager, history, audit, quietLogger())
	router := setupTestRouter()
	router.GET("/api/employees", handler.ListEmployees)
	router.POST("/api/employees", handler.CreateEmployee)
	router.PATCH("/api/employees/:id", handler.UpdateEmployee)
	router.DELETE("/api/employees/:id", handler.DeactivateEmployee)
	router.DELETE("/api/employees/:id/hard", handler.HardDeleteEmployee)
	router.GET("/api/employees/:id/attendance", handler.GetEmployeeAttendance)
	return router
}

func TestListEmployees_EmptyIsArray(t *testing.T) {
	router := setupEmployeeRouter(&fakeEmployeeManager{}, &fakeHistory{}, &fakeAudit{})

	w := doJSON(t, router, http.MethodGet, "/api/employees", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestCreateEmployee(t *testing.T) {
	manager := &fakeEmployeeManager{}
	audit := &fakeAudit{}
	router := setupEmployeeRouter(manager, &fakeHistory{}, audit)

	w := doJSON(t, router, http.MethodPost, "/api/employees", map[string]string{
		"name":       "Jane",
		"role":       "Engineer",
		"department": "R&D",
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Jane", body["name"])
	assert.Equal(t, "4A616E65", body["details"].(map[string]interface{})["hex_value"])
	assert.Equal(t, []string{"employee_create"}, audit.actions())
}

func TestCreateEmployee_Validation(t *testing.T) {
	manager := &fakeEmployeeManager{}
	router := setupEmployeeRouter(manager, &fakeHistory{}, &fakeAudit{})

	bodies := []map[string]string{
		{"role": "Engineer", "department": "R&D"},
		{"name": "Jane", "department": "R&D"},
		{"name": "Jane", "role": "Engineer", "department": "R&D", "email": "not-an-email"},
		{"name": "Jane", "role": "Engineer", "department": "R&D", "hex_value": "XYZ"},
		{"name": "Jane", "role": "Engineer", "department": "R&D", "hire_date": "03/05/2024"},
	}
	for _, body := range bodies {
		w := doJSON(t, router, http.MethodPost, "/api/employees", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Nil(t, manager.created)
}

func TestCreateEmployee_HexTaken(t *testing.T) {
	manager := &fakeEmployeeManager{createErr: &services.EmployeeInputError{
		Message: "Hex value already exists. Please use a unique Hex Value for this employee.",
	}}
	router := setupEmployeeRouter(manager, &fakeHistory{}, &fakeAudit{})

	w := doJSON(t, router, http.MethodPost, "/api/employees", map[string]string{
		"name": "Jane", "role": "Engineer", "department": "R&D", "hex_value": "4a616e65",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Hex value already exists. Please use a unique Hex Value for this employee.", decodeBody(t, w)["error"])
}

func TestUpdateEmployee(t *testing.T) {
	manager := &fakeEmployeeManager{}
	router := setupEmployeeRouter(manager, &fakeHistory{}, &fakeAudit{})

	w := doJSON(t, router, http.MethodPatch, "/api/employees/4", map[string]interface{}{
		"is_active":    false,
		"working_mode": "Remote",
	})

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, manager.updated)
	require.NotNil(t, manager.updated.IsActive)
	assert.False(t, *manager.updated.IsActive)
	assert.Equal(t, "Remote", *manager.updated.WorkingMode)
	assert.Nil(t, manager.updated.Name)
}

func TestUpdateEmployee_NotFound(t *testing.T) {
	router := setupEmployeeRouter(&fakeEmployeeManager{updateErr: services.ErrEmployeeMissing}, &fakeHistory{}, &fakeAudit{})

	w := doJSON(t, router, http.MethodPatch, "/api/employees/99", map[string]string{"name": "Ghost"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Employee not found", decodeBody(t, w)["error"])
}

func TestUpdateEmployee_InvalidID(t *testing.T) {
	router := setupEmployeeRouter(&fakeEmployeeManager{}, &fakeHistory{}, &fakeAudit{})

	w := doJSON(t, router, http.MethodPatch, "/api/employees/abc", map[string]string{"name": "Jane"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeactivateEmployee(t *testing.T) {
	manager := &fakeEmployeeManager{}
	audit := &fakeAudit{}
	router := setupEmployeeRouter(manager, &fakeHistory{}, audit)

	w := doJSON(t, router, http.MethodDelete, "/api/employees/5", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	assert.Equal(t, int64(5), manager.deactivated)
	assert.Equal(t, []string{"employee_deactivate"}, audit.actions())
}

func TestHardDeleteEmployee(t *testing.T) {
	audit := &fakeAudit{}
	router := setupEmployeeRouter(&fakeEmployeeManager{}, &fakeHistory{}, audit)

	w := doJSON(t, router, http.MethodDelete, "/api/employees/5/hard", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"employee_hard_delete"}, audit.actions())
}

func TestHardDeleteEmployee_Failure(t *testing.T) {
	router := setupEmployeeRouter(&fakeEmployeeManager{deleteErr: errors.New("fk violation")}, &fakeHistory{}, &fakeAudit{})

	w := doJSON(t, router, http.MethodDelete, "/api/employees/5/hard", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to hard delete employee", decodeBody(t, w)["error"])
}

func TestGetEmployeeAttendance(t *testing.T) {
	history := &fakeHistory{}
	router := setupEmployeeRouter(&fakeEmployeeManager{}, history, &fakeAudit{})

	w := doJSON(t, router, http.MethodGet, "/api/employees/5/attendance?limit=10", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
	assert.Equal(t, 10, history.gotLimit)

	w = doJSON(t, router, http.MethodGet, "/api/employees/5/attendance?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
