package ledgergen

import "errors"

// Error constants.
var (
	ErrInvalidConfig    = errors.New("invalid generator config")
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrRunFailed        = errors.New("run failed")
)

// ErrInconsistent reports standings that break ordering or conservation.
var ErrInconsistent = errors.New("inconsistent standings")
