package fatigue

import (
	"context"
	"encoding/json"
	"time"
)

// AlertType identifies the rule that raised an alert.
type AlertType string

const (
	AlertFatigueHigh  AlertType = "fatigue_high"
	AlertEyesClosed   AlertType = "eyes_closed"
	AlertNoSeatbelt   AlertType = "no_seatbelt"
	AlertYawnFrequent AlertType = "yawn_frequent"
)

// Severity grades an alert.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Alert is raised by the rule engine. Created once; only the acknowledgement
// state mutates afterwards, by operator action.
type Alert struct {
	ID             string          `json:"id"`
	DriverID       string          `json:"driver_id"`
	TripID         string          `json:"trip_id"`
	Type           AlertType       `json:"type"`
	Severity       Severity        `json:"severity"`
	Message        string          `json:"message"`
	Metadata       json.RawMessage `json:"metadata"`
	Acknowledged   bool            `json:"acknowledged"`
	AcknowledgedAt time.Time       `json:"acknowledged_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Rule-specific metadata variants. Each carries the creation timestamp in
// RFC3339 alongside its cause fields.

type HighFatigueMetadata struct {
	FatigueScore float64   `json:"fatigue_score"`
	EyeStatus    EyeStatus `json:"eye_status"`
	YawnDetected bool      `json:"yawn_detected"`
	Timestamp    string    `json:"timestamp"`
}

type EyeClosureMetadata struct {
	ConsecutiveClosures int    `json:"consecutive_closures"`
	TimeWindow          string `json:"time_window"`
	Timestamp           string `json:"timestamp"`
}

type SeatbeltMetadata struct {
	SeatbeltStatus bool   `json:"seatbelt_status"`
	Timestamp      string `json:"timestamp"`
}

type YawnMetadata struct {
	YawnCount  int    `json:"yawn_count"`
	TimeWindow string `json:"time_window"`
	Timestamp  string `json:"timestamp"`
}

// MarshalMetadata serializes a metadata variant for storage.
func MarshalMetadata(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

// AlertFilter narrows alert listings.
type AlertFilter struct {
	DriverID     string
	TripID       string
	Type         AlertType
	Acknowledged *bool
	From         time.Time
	To           time.Time
}

// AlertRepository persists alerts.
type AlertRepository interface {
	Create(ctx context.Context, alert *Alert) error
	GetByID(ctx context.Context, id string) (*Alert, error)
	List(ctx context.Context, filter AlertFilter) ([]Alert, error)
	MarkAcknowledged(ctx context.Context, id string, ackedAt time.Time) error
}
