package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	trips "safedrive/internal/trips/domain"
)

// Repository is a Postgres repository for trips.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const tripColumns = `id, driver_id, start_time, end_time, start_location, end_location,
	distance_km, status, route_coordinates, created_at, updated_at`

// Create inserts a new trip.
func (r *Repository) Create(ctx context.Context, trip *trips.Trip) error {
	if r == nil || r.db == nil {
		return errors.New("trip repo: nil db")
	}
	if trip == nil {
		return errors.New("trip repo: nil trip")
	}
	if trip.ID == "" || trip.DriverID == "" {
		return errors.New("trip repo: missing fields")
	}
	if trip.CreatedAt.IsZero() {
		trip.CreatedAt = time.Now().UTC()
	}
	if trip.UpdatedAt.IsZero() {
		trip.UpdatedAt = trip.CreatedAt
	}
	route, err := marshalRoute(trip.Route)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO trips (
	id, driver_id, start_time, end_time, start_location, end_location,
	distance_km, status, route_coordinates, created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6,
	$7, $8, $9, $10, $11
)`,
		trip.ID,
		trip.DriverID,
		trip.StartTime,
		nullableTime(trip.EndTime),
		trip.StartLocation,
		trip.EndLocation,
		trip.DistanceKM,
		trip.Status,
		route,
		trip.CreatedAt,
		trip.UpdatedAt,
	)
	return err
}

// GetByID fetches a trip by id.
func (r *Repository) GetByID(ctx context.Context, id string) (*trips.Trip, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("trip repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+tripColumns+`
FROM trips
WHERE id = $1`, id)
	return scanTrip(row)
}

// FindActiveByDriver returns the driver's trip in progress, nil when none.
func (r *Repository) FindActiveByDriver(ctx context.Context, driverID string) (*trips.Trip, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("trip repo: nil db")
	}
	if driverID == "" {
		return nil, errors.New("trip repo: driver id required")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+tripColumns+`
FROM trips
WHERE driver_id = $1 AND status = $2
ORDER BY start_time DESC
LIMIT 1`, driverID, trips.StatusActive)
	return scanTrip(row)
}

// AppendRoutePoint appends one point to the trip's route trace. The jsonb
// concatenation keeps the append atomic under concurrent ingestion.
func (r *Repository) AppendRoutePoint(ctx context.Context, tripID string, point trips.RoutePoint) error {
	if r == nil || r.db == nil {
		return errors.New("trip repo: nil db")
	}
	if tripID == "" {
		return errors.New("trip repo: trip id required")
	}
	element, err := json.Marshal([]trips.RoutePoint{point})
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE trips
SET route_coordinates = COALESCE(route_coordinates, '[]'::jsonb) || $1::jsonb,
	updated_at = $2
WHERE id = $3`, element, time.Now().UTC(), tripID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return trips.ErrNotFound
	}
	return nil
}

// Complete marks a trip finished.
func (r *Repository) Complete(ctx context.Context, id, endLocation string, distanceKM float64, endedAt time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("trip repo: nil db")
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE trips
SET status = $1, end_time = $2, end_location = $3, distance_km = $4, updated_at = $2
WHERE id = $5 AND status = $6`,
		trips.StatusCompleted, endedAt, endLocation, distanceKM, id, trips.StatusActive)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return trips.ErrNotActive
	}
	return nil
}

// Delete removes a trip.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return errors.New("trip repo: nil db")
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return trips.ErrNotFound
	}
	return nil
}

// ListByDriver returns a driver's trips, newest first.
func (r *Repository) ListByDriver(ctx context.Context, driverID string) ([]trips.Trip, error) {
	return r.list(ctx, `
SELECT `+tripColumns+`
FROM trips
WHERE driver_id = $1
ORDER BY start_time DESC`, driverID)
}

// ListByCompany returns trips of every driver on the company roster.
func (r *Repository) ListByCompany(ctx context.Context, companyID string) ([]trips.Trip, error) {
	return r.list(ctx, `
SELECT `+tripColumns+`
FROM trips
WHERE driver_id IN (SELECT id FROM users WHERE company_id = $1)
ORDER BY start_time DESC`, companyID)
}

// ListAll returns every trip.
func (r *Repository) ListAll(ctx context.Context) ([]trips.Trip, error) {
	return r.list(ctx, `
SELECT `+tripColumns+`
FROM trips
ORDER BY start_time DESC`)
}

// FatigueStats aggregates a trip's fatigue logs.
func (r *Repository) FatigueStats(ctx context.Context, tripID string) (*trips.FatigueStats, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("trip repo: nil db")
	}
	if tripID == "" {
		return nil, errors.New("trip repo: trip id required")
	}
	var (
		stats trips.FatigueStats
		high  int
	)
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*),
	COALESCE(AVG(fatigue_score), 0),
	COUNT(*) FILTER (WHERE yawn_detected),
	COUNT(*) FILTER (WHERE eye_status = 'closed'),
	COUNT(*) FILTER (WHERE NOT seatbelt_on),
	COUNT(*) FILTER (WHERE fatigue_score > 0.7)
FROM fatigue_logs
WHERE trip_id = $1`, tripID).Scan(
		&stats.Samples, &stats.AvgFatigue, &stats.TotalYawns,
		&stats.EyeClosures, &stats.SeatbeltViolations, &high,
	)
	if err != nil {
		return nil, err
	}
	if stats.Samples > 0 {
		stats.HighFatiguePct = float64(high) / float64(stats.Samples) * 100
	}
	return &stats, nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]trips.Trip, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("trip repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []trips.Trip
	for rows.Next() {
		trip, err := scanTripRow(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *trip)
	}
	return list, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row *sql.Row) (*trips.Trip, error) {
	trip, err := scanTripRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return trip, err
}

func scanTripRow(row rowScanner) (*trips.Trip, error) {
	var (
		trip          trips.Trip
		endTime       sql.NullTime
		startLocation sql.NullString
		endLocation   sql.NullString
		route         []byte
	)
	if err := row.Scan(
		&trip.ID, &trip.DriverID, &trip.StartTime, &endTime, &startLocation, &endLocation,
		&trip.DistanceKM, &trip.Status, &route, &trip.CreatedAt, &trip.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if endTime.Valid {
		trip.EndTime = endTime.Time
	}
	trip.StartLocation = startLocation.String
	trip.EndLocation = endLocation.String
	if len(route) > 0 {
		if err := json.Unmarshal(route, &trip.Route); err != nil {
			return nil, err
		}
	}
	return &trip, nil
}

func marshalRoute(route []trips.RoutePoint) ([]byte, error) {
	if route == nil {
		route = []trips.RoutePoint{}
	}
	return json.Marshal(route)
}

func nullableTime(value time.Time) sql.NullTime {
	if value.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: value, Valid: true}
}
