package services

import (
	"context"
	"fmt"

	"github.com/autoattend/autoattend-backend/internal/models"
	"github.com/autoattend/autoattend-backend/pkg/validator"
)

// EmployeeLookup finds active employees for badge resolution
type EmployeeLookup interface {
	FindActiveByHex(ctx context.Context, hex string) (*models.BadgeHolder, error)
	FindActiveByName(ctx context.Context, name string) (*models.BadgeHolder, error)
}

// Resolution is the outcome of resolving a badge. It is either ResolvedByHex or
// ResolvedByDecodedName.
type Resolution interface {
	Holder() *models.BadgeHolder
	Strategy() string
	isResolution()
}

// ResolvedByHex means the badge hex matched an employee's registered hex exactly
type ResolvedByHex struct {
	Employee *models.BadgeHolder
}

func (r ResolvedByHex) Holder() *models.BadgeHolder { return r.Employee }
func (r ResolvedByHex) Strategy() string             { return "hex" }
func (ResolvedByHex) isResolution()                  {}

// ResolvedByDecodedName means the badge hex decoded to the employee's name
type ResolvedByDecodedName struct {
	Employee    *models.BadgeHolder
	DecodedName string
}

func (r ResolvedByDecodedName) Holder() *models.BadgeHolder { return r.Employee }
func (r ResolvedByDecodedName) Strategy() string             { return "decoded_name" }
func (ResolvedByDecodedName) isResolution()                  {}

// BadgeResolver maps a scanned badge hex to an active employee
type BadgeResolver struct {
	employees EmployeeLookup
	badges    *validator.BadgeValidator
}

// NewBadgeResolver creates a new badge resolver
func NewBadgeResolver(employees EmployeeLookup) *BadgeResolver {
	return &BadgeResolver{
		employees: employees,
		badges:    validator.NewBadgeValidator(),
	}
}

// Resolve validates the badge hex and finds its employee. An exact hex match wins;
// otherwise the hex is decoded as UTF-8 and matched case-insensitively against names.
// The canonical hex is returned alongside the resolution.
func (r *BadgeResolver) Resolve(ctx context.Context, rawHex string) (Resolution, string, error) {
	hex, err := r.badges.Validate(rawHex)
	if err != nil {
		return nil, r.badges.Sanitize(rawHex), fmt.Errorf("%w: %v", ErrInvalidBadge, err)
	}

	holder, err := r.employees.FindActiveByHex(ctx, hex)
	if err != nil {
		return nil, hex, err
	}
	if holder != nil {
		return ResolvedByHex{Employee: holder}, hex, nil
	}

	name, err := r.badges.Decode(hex)
	if err != nil {
		return nil, hex, fmt.Errorf("%w: %v", ErrInvalidBadge, err)
	}

	holder, err = r.employees.FindActiveByName(ctx, name)
	if err != nil {
		return nil, hex, err
	}
	if holder == nil {
		return nil, hex, ErrEmployeeNotFound
	}

	return ResolvedByDecodedName{Employee: holder, DecodedName: name}, hex, nil
}
