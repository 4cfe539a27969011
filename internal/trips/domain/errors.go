package trips

import "errors"

var (
	// ErrNotFound indicates a missing trip record.
	ErrNotFound = errors.New("trip: not found")
	// ErrActiveTripExists indicates the driver already has a trip in
	// progress.
	ErrActiveTripExists = errors.New("trip: active trip already exists")
	// ErrNotActive indicates the trip is not in progress.
	ErrNotActive = errors.New("trip: not active")
)
