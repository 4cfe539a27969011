package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	users "safedrive/internal/users/domain"
)

// Repository is the Postgres-backed user store.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, name, email, password_hash, role, phone, subscription, company_id, driver_id, created_at, updated_at`

func (r *Repository) CreateUser(ctx context.Context, user *users.User) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (email) DO NOTHING
	`,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		nullString(user.Phone),
		user.Subscription,
		nullString(user.CompanyID),
		nullString(user.DriverID),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert user: rows affected: %w", err)
	}
	if n == 0 {
		return users.ErrEmailTaken
	}
	return nil
}

func (r *Repository) CreateCompany(ctx context.Context, company *users.Company) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO companies (id, name, email, phone, address, subscription_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		company.ID,
		company.Name,
		company.Email,
		nullString(company.Phone),
		nullString(company.Address),
		company.SubscriptionType,
		company.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

func (r *Repository) CreateDriverDetail(ctx context.Context, detail *users.DriverDetail) error {
	var expiry sql.NullTime
	if !detail.LicenseExpiry.IsZero() {
		expiry = sql.NullTime{Time: detail.LicenseExpiry, Valid: true}
	}
	contacts := detail.EmergencyContacts
	if len(contacts) == 0 {
		contacts = []byte("[]")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO driver_details (user_id, license_number, license_expiry, vehicle_type, vehicle_plate, emergency_contacts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		detail.UserID,
		detail.LicenseNumber,
		expiry,
		nullString(detail.VehicleType),
		nullString(detail.VehiclePlate),
		[]byte(contacts),
		detail.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert driver detail: %w", err)
	}
	return nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1
	`, email)
	return scanUser(row)
}

func (r *Repository) GetByID(ctx context.Context, id string) (*users.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*users.User, error) {
	var u users.User
	var phone, companyID, driverID sql.NullString
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&phone,
		&u.Subscription,
		&companyID,
		&driverID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Phone = phone.String
	u.CompanyID = companyID.String
	u.DriverID = driverID.String
	return &u, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
