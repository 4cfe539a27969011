package auth

import (
	"context"
	"database/sql"
	"errors"
)

// DriverAccessChecker validates that a caller may see a driver's data.
type DriverAccessChecker interface {
	EnsureDriverAccess(ctx context.Context, driverID string) error
}

// DriverChecker checks driver visibility against the users table: drivers
// see themselves, companies see their roster, family members see their
// linked driver, admins see everyone.
type DriverChecker struct {
	db *sql.DB
}

// NewDriverChecker constructs a DriverChecker.
func NewDriverChecker(db *sql.DB) *DriverChecker {
	if db == nil {
		return nil
	}
	return &DriverChecker{db: db}
}

// EnsureDriverAccess verifies the identity in ctx may access driverID.
func (c *DriverChecker) EnsureDriverAccess(ctx context.Context, driverID string) error {
	if c == nil || c.db == nil {
		return nil
	}
	if driverID == "" {
		return ErrNotFound
	}

	role := RoleFromContext(ctx)
	userID := UserIDFromContext(ctx)

	switch role {
	case RoleAdmin:
		return nil
	case RoleDriver:
		if userID == driverID {
			return nil
		}
		return ErrForbidden
	case RoleCompany:
		companyID := CompanyIDFromContext(ctx)
		if companyID == "" {
			return ErrForbidden
		}
		var driverCompany sql.NullString
		err := c.db.QueryRowContext(ctx,
			`SELECT company_id FROM users WHERE id = $1 AND role = 'driver'`, driverID,
		).Scan(&driverCompany)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if !driverCompany.Valid || driverCompany.String != companyID {
			return ErrForbidden
		}
		return nil
	case RoleFamily:
		var linkedDriver sql.NullString
		err := c.db.QueryRowContext(ctx,
			`SELECT driver_id FROM users WHERE id = $1 AND role = 'family'`, userID,
		).Scan(&linkedDriver)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrForbidden
		}
		if err != nil {
			return err
		}
		if !linkedDriver.Valid || linkedDriver.String != driverID {
			return ErrForbidden
		}
		return nil
	default:
		return ErrForbidden
	}
}
