package application

import (
	"context"
	"crypto/rand"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"safedrive/internal/auth"
	users "safedrive/internal/users/domain"
)

// Service implements registration, login and token refresh.
type Service struct {
	repo     users.Repository
	secret   []byte
	tokenTTL time.Duration
}

func NewService(repo users.Repository, secret []byte, tokenTTL time.Duration) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users service: nil repository")
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("users service: empty jwt secret")
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{repo: repo, secret: secret, tokenTTL: tokenTTL}, nil
}

// RegisterInput carries registration fields. Company fields are used when
// role is company, driver fields when role is driver, and DriverID links a
// family account to the driver it watches.
type RegisterInput struct {
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Password     string          `json:"password"`
	Role         string          `json:"role"`
	Phone        string          `json:"phone"`
	Subscription string          `json:"subscription"`
	CompanyName  string          `json:"company_name"`
	CompanyID    string          `json:"company_id"`
	DriverID     string          `json:"driver_id"`
	License      string          `json:"license_number"`
	VehicleType  string          `json:"vehicle_type"`
	VehiclePlate string          `json:"vehicle_plate"`
	Contacts     json.RawMessage `json:"emergency_contacts"`
}

// AuthResult is returned on register, login and refresh.
type AuthResult struct {
	User  *users.User `json:"user"`
	Token string      `json:"token"`
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	role, ok := auth.NormalizeRole(in.Role)
	if !ok {
		return nil, fmt.Errorf("users service: unknown role %q", in.Role)
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" || in.Name == "" {
		return nil, errors.New("users service: name and email are required")
	}
	if len(in.Password) < 8 {
		return nil, errors.New("users service: password must be at least 8 characters")
	}
	if _, err := s.repo.GetByEmail(ctx, in.Email); err == nil {
		return nil, users.ErrEmailTaken
	} else if !errors.Is(err, users.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("users service: hash password: %w", err)
	}

	now := time.Now().UTC()
	subscription := in.Subscription
	if subscription == "" {
		subscription = "free"
	}

	user := &users.User{
		ID:           newID("user"),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         string(role),
		Phone:        in.Phone,
		Subscription: subscription,
		CompanyID:    in.CompanyID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	switch role {
	case auth.RoleCompany:
		name := in.CompanyName
		if name == "" {
			name = in.Name
		}
		company := &users.Company{
			ID:               newID("company"),
			Name:             name,
			Email:            in.Email,
			Phone:            in.Phone,
			SubscriptionType: subscription,
			CreatedAt:        now,
		}
		if err := s.repo.CreateCompany(ctx, company); err != nil {
			return nil, err
		}
		user.CompanyID = company.ID
	case auth.RoleFamily:
		if in.DriverID == "" {
			return nil, errors.New("users service: family account requires driver_id")
		}
		if _, err := s.repo.GetByID(ctx, in.DriverID); err != nil {
			return nil, fmt.Errorf("users service: linked driver: %w", err)
		}
		user.DriverID = in.DriverID
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	if role == auth.RoleDriver {
		detail := &users.DriverDetail{
			UserID:            user.ID,
			LicenseNumber:     in.License,
			VehicleType:       in.VehicleType,
			VehiclePlate:      in.VehiclePlate,
			EmergencyContacts: in.Contacts,
			CreatedAt:         now,
		}
		if err := s.repo.CreateDriverDetail(ctx, detail); err != nil {
			return nil, err
		}
	}

	return s.issue(user)
}

func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, users.ErrNotFound) {
		return nil, users.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, users.ErrInvalidCredentials
	}
	return s.issue(user)
}

// Refresh re-issues a token for the already-authenticated caller.
func (s *Service) Refresh(ctx context.Context) (*AuthResult, error) {
	userID := auth.UserIDFromContext(ctx)
	if userID == "" {
		return nil, auth.ErrForbidden
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Me returns the authenticated caller's profile.
func (s *Service) Me(ctx context.Context) (*users.User, error) {
	userID := auth.UserIDFromContext(ctx)
	if userID == "" {
		return nil, auth.ErrForbidden
	}
	return s.repo.GetByID(ctx, userID)
}

func (s *Service) issue(user *users.User) (*AuthResult, error) {
	token, err := auth.SignJWT(user.ID, auth.Role(user.Role), user.CompanyID, user.Name, s.secret, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("users service: sign token: %w", err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func newID(kind string) string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		sum := sha1.Sum([]byte(time.Now().String()))
		copy(buf, sum[:12])
	}
	return kind + "-" + hex.EncodeToString(buf)
}
