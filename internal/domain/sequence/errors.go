package sequence

import "errors"

// Sentinel kinds for protocol violations.
var (
	ErrPendingCommit     = errors.New("previous game has not been committed")
	ErrNotCurrentGame    = errors.New("snapshot is not the current game")
	ErrSequenceExhausted = errors.New("all games have been processed")
)
