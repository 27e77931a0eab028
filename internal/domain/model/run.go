package model

// RunRequest asks for one recompute of a submitted games table.
type RunRequest struct {
	ID          string
	Fingerprint string
	Table       Table
	Settings    Settings
}
