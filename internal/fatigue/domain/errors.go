package fatigue

import "errors"

var (
	// ErrNoActiveTrip indicates the driver has no trip in progress to attach
	// readings to. Surfaced to callers as a client error.
	ErrNoActiveTrip = errors.New("fatigue: no active trip")
	// ErrInvalidReading indicates a malformed reading.
	ErrInvalidReading = errors.New("fatigue: invalid reading")
	// ErrAlertNotFound indicates a missing alert record.
	ErrAlertNotFound = errors.New("fatigue: alert not found")
)
