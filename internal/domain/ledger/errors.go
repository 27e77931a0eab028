package ledger

import "errors"

// Sentinel kinds for ledger errors.
var (
	ErrSchema         = errors.New("ledger schema error")
	ErrEmptyDataset   = errors.New("ledger has no data rows")
	ErrInvalidCell    = errors.New("invalid ledger cell")
	ErrUnknownGame    = errors.New("unknown game")
	ErrRosterMismatch = errors.New("snapshot roster does not match game rows")
	ErrUnknownField   = errors.New("unknown ledger field")
)
