package application

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"time"

	"safedrive/internal/auth"
	"safedrive/internal/observability/metrics"
	trips "safedrive/internal/trips/domain"
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// Service handles the trip lifecycle and role-scoped queries.
type Service struct {
	repo    trips.Repository
	checker auth.DriverAccessChecker
	clock   Clock
}

// ServiceOption customizes the trip service.
type ServiceOption func(*Service)

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		s.clock = clock
	}
}

// NewService constructs a trip service.
func NewService(repo trips.Repository, checker auth.DriverAccessChecker, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("trips: nil repository")
	}
	service := &Service{repo: repo, checker: checker, clock: systemClock{}}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Start opens a new trip for the driver. At most one trip per driver may be
// active.
func (s *Service) Start(ctx context.Context, driverID, startLocation string) (*trips.Trip, error) {
	if s == nil {
		return nil, errors.New("trips: nil service")
	}
	if driverID == "" {
		return nil, errors.New("trips: driver id required")
	}
	active, err := s.repo.FindActiveByDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, trips.ErrActiveTripExists
	}
	now := s.clock.Now().UTC()
	trip := &trips.Trip{
		ID:            buildTripID(driverID, now),
		DriverID:      driverID,
		StartTime:     now,
		StartLocation: startLocation,
		Status:        trips.StatusActive,
		Route:         []trips.RoutePoint{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, trip); err != nil {
		return nil, err
	}
	metrics.IncTripEvent("started")
	return trip, nil
}

// End completes the driver's trip.
func (s *Service) End(ctx context.Context, driverID, tripID, endLocation string, distanceKM float64) (*trips.Trip, error) {
	if s == nil {
		return nil, errors.New("trips: nil service")
	}
	trip, err := s.repo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, trips.ErrNotFound
	}
	if trip.DriverID != driverID {
		return nil, auth.ErrForbidden
	}
	endedAt := s.clock.Now().UTC()
	if err := s.repo.Complete(ctx, tripID, endLocation, distanceKM, endedAt); err != nil {
		return nil, err
	}
	trip.Status = trips.StatusCompleted
	trip.EndTime = endedAt
	trip.EndLocation = endLocation
	trip.DistanceKM = distanceKM
	trip.UpdatedAt = endedAt
	metrics.IncTripEvent("completed")
	return trip, nil
}

// Get returns a trip when the caller may see its driver's data.
func (s *Service) Get(ctx context.Context, tripID string) (*trips.Trip, error) {
	if s == nil {
		return nil, errors.New("trips: nil service")
	}
	trip, err := s.repo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, trips.ErrNotFound
	}
	if err := s.ensureAccess(ctx, trip.DriverID); err != nil {
		return nil, err
	}
	return trip, nil
}

// List returns trips scoped by the caller's role: drivers their own,
// companies their roster's, admins everything.
func (s *Service) List(ctx context.Context) ([]trips.Trip, error) {
	if s == nil {
		return nil, errors.New("trips: nil service")
	}
	switch auth.RoleFromContext(ctx) {
	case auth.RoleAdmin:
		return s.repo.ListAll(ctx)
	case auth.RoleCompany:
		companyID := auth.CompanyIDFromContext(ctx)
		if companyID == "" {
			return nil, auth.ErrForbidden
		}
		return s.repo.ListByCompany(ctx, companyID)
	case auth.RoleDriver:
		return s.repo.ListByDriver(ctx, auth.UserIDFromContext(ctx))
	default:
		return nil, auth.ErrForbidden
	}
}

// Delete removes a trip. Admin only; the RBAC policy enforces the role, the
// service re-checks as a guard.
func (s *Service) Delete(ctx context.Context, tripID string) error {
	if s == nil {
		return errors.New("trips: nil service")
	}
	if auth.RoleFromContext(ctx) != auth.RoleAdmin {
		return auth.ErrForbidden
	}
	if err := s.repo.Delete(ctx, tripID); err != nil {
		return err
	}
	metrics.IncTripEvent("deleted")
	return nil
}

// Stats aggregates a trip's fatigue logs for the caller.
func (s *Service) Stats(ctx context.Context, tripID string) (*trips.FatigueStats, error) {
	if s == nil {
		return nil, errors.New("trips: nil service")
	}
	trip, err := s.repo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, trips.ErrNotFound
	}
	if err := s.ensureAccess(ctx, trip.DriverID); err != nil {
		return nil, err
	}
	return s.repo.FatigueStats(ctx, tripID)
}

func (s *Service) ensureAccess(ctx context.Context, driverID string) error {
	if s.checker == nil {
		return nil
	}
	return s.checker.EnsureDriverAccess(ctx, driverID)
}

func buildTripID(driverID string, at time.Time) string {
	sum := sha1.Sum([]byte(driverID + "|" + at.Format(time.RFC3339Nano)))
	return "trip-" + hex.EncodeToString(sum[:8])
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
