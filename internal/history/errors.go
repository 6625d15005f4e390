package history

import "errors"

// Configuration errors are rejected synchronously before any I/O and are
// always fatal to the call.
var (
	ErrEmptyAssets        = errors.New("history: empty asset list")
	ErrEmptyDates         = errors.New("history: empty date list")
	ErrBadField           = errors.New("history: unknown field")
	ErrNonContiguousDates = errors.New("history: dates are not a contiguous ascending session run")
)
