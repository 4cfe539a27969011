package trips

import (
	"context"
	"time"
)

const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// RoutePoint is one entry in a trip's ordered route trace.
type RoutePoint struct {
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	Timestamp    time.Time `json:"timestamp"`
	FatigueScore float64   `json:"fatigue_score"`
	EyeStatus    string    `json:"eye_status"`
}

// Trip is one driving session. At most one trip per driver is active at a
// time.
type Trip struct {
	ID            string       `json:"id"`
	DriverID      string       `json:"driver_id"`
	StartTime     time.Time    `json:"start_time"`
	EndTime       time.Time    `json:"end_time,omitempty"`
	StartLocation string       `json:"start_location,omitempty"`
	EndLocation   string       `json:"end_location,omitempty"`
	DistanceKM    float64      `json:"distance_km"`
	Status        string       `json:"status"`
	Route         []RoutePoint `json:"route_coordinates"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// FatigueStats aggregates a trip's fatigue logs.
type FatigueStats struct {
	Samples            int     `json:"samples"`
	AvgFatigue         float64 `json:"avg_fatigue"`
	TotalYawns         int     `json:"total_yawns"`
	EyeClosures        int     `json:"eye_closures"`
	SeatbeltViolations int     `json:"seatbelt_violations"`
	HighFatiguePct     float64 `json:"high_fatigue_percentage"`
}

// Repository persists trips and their route traces.
type Repository interface {
	Create(ctx context.Context, trip *Trip) error
	GetByID(ctx context.Context, id string) (*Trip, error)
	FindActiveByDriver(ctx context.Context, driverID string) (*Trip, error)
	AppendRoutePoint(ctx context.Context, tripID string, point RoutePoint) error
	Complete(ctx context.Context, id, endLocation string, distanceKM float64, endedAt time.Time) error
	Delete(ctx context.Context, id string) error
	ListByDriver(ctx context.Context, driverID string) ([]Trip, error)
	ListByCompany(ctx context.Context, companyID string) ([]Trip, error)
	ListAll(ctx context.Context) ([]Trip, error)
	FatigueStats(ctx context.Context, tripID string) (*FatigueStats, error)
}
