package fatigue

import (
	"context"
	"encoding/json"
	"time"
)

// FatigueLog is a persisted reading with its computed score. Append-only;
// never updated after creation.
type FatigueLog struct {
	ID              string          `json:"id"`
	TripID          string          `json:"trip_id"`
	DriverID        string          `json:"driver_id"`
	EAR             float64         `json:"ear"`
	MAR             float64         `json:"mar"`
	EyeStatus       EyeStatus       `json:"eye_status"`
	YawnDetected    bool            `json:"yawn_detected"`
	SeatbeltOn      bool            `json:"seatbelt_on"`
	FatigueScore    float64         `json:"fatigue_score"`
	Accuracy        float64         `json:"accuracy"`
	ConfidenceLevel string          `json:"confidence_level"`
	Location        Location        `json:"location"`
	DetectionData   json.RawMessage `json:"detection_data,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// LogRepository persists fatigue logs and answers the rolling-window counts
// the rule engine needs. Counts are scoped per driver, not per trip, so
// recent signals carry across trip boundaries.
type LogRepository interface {
	Insert(ctx context.Context, log *FatigueLog) error
	CountClosedEyes(ctx context.Context, driverID string, since time.Time) (int, error)
	CountYawns(ctx context.Context, driverID string, since time.Time) (int, error)
}
