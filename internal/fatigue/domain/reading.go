package fatigue

import "encoding/json"

// EyeStatus classifies eye openness reported by the detector.
type EyeStatus string

const (
	EyeOpen    EyeStatus = "open"
	EyePartial EyeStatus = "partial"
	EyeClosed  EyeStatus = "closed"
)

// Valid returns true when the status is a known classification.
func (s EyeStatus) Valid() bool {
	switch s {
	case EyeOpen, EyePartial, EyeClosed:
		return true
	default:
		return false
	}
}

// Reading is a single biometric sample submitted by the in-cab detector.
// FatigueLevel, when present, is a caller-supplied score that bypasses the
// scorer.
type Reading struct {
	EyeStatus       EyeStatus `json:"eye_status"`
	YawnDetected    bool      `json:"yawn_detected"`
	SeatbeltOn      bool      `json:"seatbelt_on"`
	EAR             float64   `json:"ear"`
	MAR             float64   `json:"mar"`
	Accuracy        float64   `json:"accuracy"`
	ConfidenceLevel string    `json:"confidence_level"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`

	FatigueLevel  *float64        `json:"fatigue_level,omitempty"`
	DetectionData json.RawMessage `json:"detection_data,omitempty"`
}

// Validate checks reading invariants.
func (r Reading) Validate() error {
	if !r.EyeStatus.Valid() {
		return ErrInvalidReading
	}
	return nil
}

// Location is the {lat,lng} pair persisted with each log.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
