package detect

import "errors"

// Sentinel errors for detector construction.
var (
	// ErrInvalidThreshold indicates a threshold that cannot be compared
	// against sample values.
	ErrInvalidThreshold = errors.New("invalid threshold")

	// ErrInvalidDuration indicates a run-length duration below one sample.
	ErrInvalidDuration = errors.New("invalid duration")
)
