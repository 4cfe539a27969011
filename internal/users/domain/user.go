package users

import (
	"context"
	"encoding/json"
	"time"
)

// User is an account holder: an admin, a company operator, a driver, or a
// family member linked to a driver.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Phone        string    `json:"phone,omitempty"`
	Subscription string    `json:"subscription"`
	CompanyID    string    `json:"company_id,omitempty"`
	DriverID     string    `json:"driver_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Company owns a driver roster.
type Company struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone,omitempty"`
	Address          string    `json:"address,omitempty"`
	SubscriptionType string    `json:"subscription_type"`
	CreatedAt        time.Time `json:"created_at"`
}

// DriverDetail holds licensing and vehicle data for a driver account.
type DriverDetail struct {
	UserID            string          `json:"user_id"`
	LicenseNumber     string          `json:"license_number"`
	LicenseExpiry     time.Time       `json:"license_expiry,omitempty"`
	VehicleType       string          `json:"vehicle_type,omitempty"`
	VehiclePlate      string          `json:"vehicle_plate,omitempty"`
	EmergencyContacts json.RawMessage `json:"emergency_contacts,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Repository persists users, companies and driver details.
type Repository interface {
	CreateUser(ctx context.Context, user *User) error
	CreateCompany(ctx context.Context, company *Company) error
	CreateDriverDetail(ctx context.Context, detail *DriverDetail) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}
