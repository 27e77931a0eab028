// Package repository holds the published standings.
package repository

import "context"

// Entry is one standings row.
type Entry struct {
	Rank   int
	Player string
	Rating float64
	Games  int
}

// Store provides read/write access to the standings.
type Store interface {
	// Replace swaps the whole standings for the final ratings of a run.
	Replace(ctx context.Context, ratings map[string]float64, games map[string]int) error

	// Rank returns the current rank and rating for a player.
	// Returns ErrNotFound if the player is unknown.
	Rank(ctx context.Context, player string) (Entry, error)

	// TopN returns the top-N entries ordered by rating desc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of ranked players.
	Count(ctx context.Context) int
}
