package rating

import "errors"

// Sentinel kinds for rating errors.
var (
	ErrInvalidRoster = errors.New("invalid game roster")
	ErrInvalidParams = errors.New("invalid rating parameters")
)
