package dashboard

import "errors"

var (
	// ErrSourceUnavailable marks a discovery, manual or registration read
	// that failed. Passes absorb it; only direct reads return it.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrValidation marks an action rejected for missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrNotDiscovered is returned when registering an identity that the
	// current discovery snapshot does not contain.
	ErrNotDiscovered = errors.New("device not currently discovered")
	// ErrNotFound is returned when removing a manual device that does not exist.
	ErrNotFound = errors.New("device not found")
	// ErrScanInFlight is returned when a scan is requested while one runs.
	ErrScanInFlight = errors.New("scan already in progress")
)
