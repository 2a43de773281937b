package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/autoattend/autoattend-backend/internal/models"
	"github.com/autoattend/autoattend-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// EmployeeManager maintains the employee directory
type EmployeeManager interface {
	List(ctx context.Context) ([]models.Employee, error)
	Create(ctx context.Context, req *models.CreateEmployeeRequest) (*models.Employee, error)
	Update(ctx context.Context, id int64, req *models.UpdateEmployeeRequest) (*models.Employee, error)
	Deactivate(ctx context.Context, id int64) error
	HardDelete(ctx context.Context, id int64) (*models.Employee, error)
}

// EmployeeHistoryReader returns one employee's attendance history
type EmployeeHistoryReader interface {
	ListForEmployee(ctx context.Context, employeeID int64, limit int) ([]models.AttendanceView, error)
}

// EmployeeHandler handles employee management endpoints
type EmployeeHandler struct {
	employees EmployeeManager
	history   EmployeeHistoryReader
	audit     auditTrail
	logger    *logrus.Logger
}

// NewEmployeeHandler creates a new employee handler
func NewEmployeeHandler(employees EmployeeManager, history EmployeeHistoryReader, audit AuditLogger, logger *logrus.Logger) *EmployeeHandler {
	return &EmployeeHandler{
		employees: employees,
		history:   history,
		audit:     auditTrail{audit: audit, logger: logger},
		logger:    logger,
	}
}

// ListEmployees handles GET /api/employees
func (h *EmployeeHandler) ListEmployees(c *gin.Context) {
	employees, err := h.employees.List(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list employees")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch employees"})
		return
	}
	if employees == nil {
		employees = []models.Employee{}
	}
	c.JSON(http.StatusOK, employees)
}

// CreateEmployee handles POST /api/employees
func (h *EmployeeHandler) CreateEmployee(c *gin.Context) {
	var req models.CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	employee, err := h.employees.Create(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err, "Failed to create employee")
		return
	}

	h.audit.safeLogUserAction(c, "employee_create", "employee", strconv.FormatInt(employee.ID, 10), map[string]interface{}{
		"name": employee.Name,
	})
	c.JSON(http.StatusOK, employee)
}

// UpdateEmployee handles PATCH /api/employees/:id
func (h *EmployeeHandler) UpdateEmployee(c *gin.Context) {
	id, ok := parseEmployeeID(c)
	if !ok {
		return
	}

	var req models.UpdateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	employee, err := h.employees.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.writeError(c, err, "Failed to update employee")
		return
	}

	h.audit.safeLogUserAction(c, "employee_update", "employee", strconv.FormatInt(id, 10), nil)
	c.JSON(http.StatusOK, employee)
}

// DeactivateEmployee handles DELETE /api/employees/:id
func (h *EmployeeHandler) DeactivateEmployee(c *gin.Context) {
	id, ok := parseEmployeeID(c)
	if !ok {
		return
	}

	if err := h.employees.Deactivate(c.Request.Context(), id); err != nil {
		h.writeError(c, err, "Failed to delete employee")
		return
	}

	h.audit.safeLogUserAction(c, "employee_deactivate", "employee", strconv.FormatInt(id, 10), nil)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HardDeleteEmployee handles DELETE /api/employees/:id/hard
func (h *EmployeeHandler) HardDeleteEmployee(c *gin.Context) {
	id, ok := parseEmployeeID(c)
	if !ok {
		return
	}

	employee, err := h.employees.HardDelete(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "Failed to hard delete employee")
		return
	}

	h.audit.safeLogUserAction(c, "employee_hard_delete", "employee", strconv.FormatInt(id, 10), map[string]interface{}{
		"name": employee.Name,
	})
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetEmployeeAttendance handles GET /api/employees/:id/attendance
func (h *EmployeeHandler) GetEmployeeAttendance(c *gin.Context) {
	id, ok := parseEmployeeID(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	records, err := h.history.ListForEmployee(c.Request.Context(), id, limit)
	if err != nil {
		h.logger.WithError(err).WithField("employee_id", id).Error("Failed to fetch employee attendance")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch attendance"})
		return
	}
	if records == nil {
		records = []models.AttendanceView{}
	}
	c.JSON(http.StatusOK, records)
}

func (h *EmployeeHandler) writeError(c *gin.Context, err error, fallback string) {
	var inputErr *services.EmployeeInputError
	switch {
	case errors.As(err, &inputErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: inputErr.Message})
	case errors.Is(err, services.ErrEmployeeMissing):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Employee not found"})
	default:
		h.logger.WithError(err).Error(fallback)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: fallback})
	}
}

func parseEmployeeID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid employee ID"})
		return 0, false
	}
	return id, true
}
