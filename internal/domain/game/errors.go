package game

import "errors"

// Sentinel kinds for snapshot errors.
var (
	ErrDuplicatePlayer    = errors.New("duplicate player in game")
	ErrIncompleteSnapshot = errors.New("game snapshot is incomplete")
	ErrUnknownPlayer      = errors.New("player is not in the game")
	ErrSealed             = errors.New("game snapshot is sealed")
)
