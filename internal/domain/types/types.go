// Package types contains common types used across the application
package types

import "time"

// Standing represents one player's line in the published standings.
type Standing struct {
	Rank   int     `json:"rank"`
	Player string  `json:"player"`
	Rating float64 `json:"rating"`
	Games  int     `json:"games"`
}

// RunState is the lifecycle position of a submitted recompute.
type RunState string

const (
	RunQueued  RunState = "queued"
	RunRunning RunState = "running"
	RunDone    RunState = "done"
	RunFailed  RunState = "failed"
)

// Run reports the status of one submitted recompute.
type Run struct {
	ID          string    `json:"run_id"`
	State       RunState  `json:"status"`
	Games       int       `json:"games,omitempty"`
	Players     int       `json:"players,omitempty"`
	Error       string    `json:"error,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
	FinishedAt  time.Time `json:"finished_at,omitzero"`
}

// Submission acknowledges a submitted games table.
type Submission struct {
	RunID     string `json:"run_id"`
	Duplicate bool   `json:"duplicate"`
}
