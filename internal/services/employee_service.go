package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/autoattend/autoattend-backend/internal/database"
	"github.com/autoattend/autoattend-backend/internal/models"
	"github.com/autoattend/autoattend-backend/pkg/validator"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultWorkingMode = "Office"
	maxNameSuffix      = 10
)

var ErrEmployeeMissing = errors.New("employee not found")

// EmployeeInputError is a client error on create/update, mapped to 400
type EmployeeInputError struct {
	Message string
}

func (e *EmployeeInputError) Error() string {
	return e.Message
}

// EmployeeStore is the subset of the employee repository used by EmployeeService
type EmployeeStore interface {
	ListActive(ctx context.Context) ([]models.Employee, error)
	GetByID(ctx context.Context, id int64) (*models.Employee, error)
	FindByHexAnyState(ctx context.Context, hex string) (*models.Employee, error)
	HexExists(ctx context.Context, hex string) (bool, error)
	Create(ctx context.Context, emp *models.Employee, details *models.EmployeeDetails) error
	Reactivate(ctx context.Context, id int64, name string, details *models.EmployeeDetails) error
	Update(ctx context.Context, id int64, req *models.UpdateEmployeeRequest) (bool, error)
	Deactivate(ctx context.Context, id int64) (bool, error)
	HardDelete(ctx context.Context, id int64) (bool, error)
}

// EmployeeService manages the employee directory and badge assignments
type EmployeeService struct {
	store  EmployeeStore
	badges *validator.BadgeValidator
	logger *logrus.Logger
}

// NewEmployeeService creates a new employee service
func NewEmployeeService(store EmployeeStore, logger *logrus.Logger) *EmployeeService {
	return &EmployeeService{
		store:  store,
		badges: validator.NewBadgeValidator(),
		logger: logger,
	}
}

// List returns active employees ordered by name
func (s *EmployeeService) List(ctx context.Context) ([]models.Employee, error) {
	return s.store.ListActive(ctx)
}

// Create adds an employee. When no hex is given it is derived from the name, adding
// a " 2".." 10" suffix if needed. An inactive employee owning the hex is reactivated.
func (s *EmployeeService) Create(ctx context.Context, req *models.CreateEmployeeRequest) (*models.Employee, error) {
	fullName := strings.TrimSpace(req.Name)
	if fullName == "" {
		return nil, &EmployeeInputError{Message: "Name is required"}
	}

	providedHex := strings.ToUpper(strings.TrimSpace(req.HexValue))
	baseHex := providedHex
	if baseHex == "" {
		baseHex = s.badges.Encode(fullName)
	}

	details := detailsFromRequest(req)

	existing, err := s.store.FindByHexAnyState(ctx, baseHex)
	if err != nil {
		return nil, err
	}
	if existing != nil && !existing.IsActive {
		if err := s.store.Reactivate(ctx, existing.ID, fullName, details); err != nil {
			return nil, s.mapWriteError(err)
		}
		s.logger.WithFields(logrus.Fields{
			"employee_id": existing.ID,
			"hex_value":   baseHex,
		}).Info("Reactivated employee")
		return s.store.GetByID(ctx, existing.ID)
	}

	hexToUse := baseHex
	taken := existing != nil
	if !taken {
		if taken, err = s.store.HexExists(ctx, baseHex); err != nil {
			return nil, err
		}
	}
	if taken {
		if providedHex != "" {
			return nil, &EmployeeInputError{Message: "Hex value already exists. Please use a unique Hex Value for this employee."}
		}
		hexToUse, err = s.deriveUniqueHex(ctx, fullName)
		if err != nil {
			return nil, err
		}
	}

	details.HexValue = hexToUse
	emp := &models.Employee{
		Name: fullName,
		UUID: uuid.New().String(),
	}
	if err := s.store.Create(ctx, emp, details); err != nil {
		return nil, s.mapWriteError(err)
	}

	s.logger.WithFields(logrus.Fields{
		"employee_id": emp.ID,
		"uuid":        emp.UUID,
		"hex_value":   hexToUse,
	}).Info("Created employee")

	return emp, nil
}

func (s *EmployeeService) deriveUniqueHex(ctx context.Context, fullName string) (string, error) {
	for i := 2; i <= maxNameSuffix; i++ {
		candidate := s.badges.Encode(fmt.Sprintf("%s %d", fullName, i))
		exists, err := s.store.HexExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", &EmployeeInputError{Message: "Unable to derive a unique Hex automatically. Please provide a unique Hex Value."}
}

// Update applies a partial update. Returns ErrEmployeeMissing when the employee does not exist.
func (s *EmployeeService) Update(ctx context.Context, id int64, req *models.UpdateEmployeeRequest) (*models.Employee, error) {
	if req.HexValue != nil {
		normalized := strings.ToUpper(strings.TrimSpace(*req.HexValue))
		if normalized == "" {
			return nil, &EmployeeInputError{Message: "Hex value cannot be empty"}
		}
		req.HexValue = &normalized
	}
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			return nil, &EmployeeInputError{Message: "Name cannot be empty"}
		}
		req.Name = &trimmed
	}

	if req.HasChanges() {
		found, err := s.store.Update(ctx, id, req)
		if err != nil {
			return nil, s.mapWriteError(err)
		}
		if !found {
			return nil, ErrEmployeeMissing
		}
	}

	emp, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, ErrEmployeeMissing
	}
	return emp, nil
}

// Deactivate soft-deletes an employee; their history is kept
func (s *EmployeeService) Deactivate(ctx context.Context, id int64) error {
	found, err := s.store.Deactivate(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return ErrEmployeeMissing
	}
	return nil
}

// HardDelete removes an employee together with details and attendance history.
// The removed employee is returned for auditing.
func (s *EmployeeService) HardDelete(ctx context.Context, id int64) (*models.Employee, error) {
	emp, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, ErrEmployeeMissing
	}

	deleted, err := s.store.HardDelete(ctx, id)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, ErrEmployeeMissing
	}

	s.logger.WithFields(logrus.Fields{
		"employee_id": id,
		"name":        emp.Name,
	}).Warn("Hard deleted employee and attendance history")

	return emp, nil
}

func (s *EmployeeService) mapWriteError(err error) error {
	if database.IsUniqueViolation(err) {
		return &EmployeeInputError{Message: "Name, hex value, or employee ID may already exist."}
	}
	return err
}

func detailsFromRequest(req *models.CreateEmployeeRequest) *models.EmployeeDetails {
	workingMode := strings.TrimSpace(req.WorkingMode)
	if workingMode == "" {
		workingMode = defaultWorkingMode
	}
	return &models.EmployeeDetails{
		Role:        models.NewNullString(req.Role),
		Department:  models.NewNullString(req.Department),
		EmpID:       models.NewNullString(req.EmpID),
		Email:       models.NewNullString(req.Email),
		Phone:       models.NewNullString(req.Phone),
		HireDate:    models.NewNullString(req.HireDate),
		Manager:     models.NewNullString(req.Manager),
		Location:    models.NewNullString(req.Location),
		Notes:       models.NewNullString(req.Notes),
		WorkingMode: models.NewNullString(workingMode),
	}
}
