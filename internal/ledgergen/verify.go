package ledgergen

import (
	"fmt"
	"math"

	"github.com/okian/vists/internal/domain/types"
)

// VerifyLeaderboard checks that entries are ordered by rating descending
// then player ascending, with dense ranks starting at 1.
func VerifyLeaderboard(entries []types.Standing) error {
	for i, e := range entries {
		if i == 0 {
			if e.Rank != 1 {
				return fmt.Errorf("%w: first rank is %d", ErrInconsistent, e.Rank)
			}
			continue
		}
		prev := entries[i-1]
		switch {
		case e.Rating > prev.Rating:
			return fmt.Errorf("%w: entry %d rates above entry %d", ErrInconsistent, i, i-1)
		case e.Rating == prev.Rating && (e.Player < prev.Player || e.Rank != prev.Rank):
			return fmt.Errorf("%w: tie at entry %d is misordered", ErrInconsistent, i)
		case e.Rating < prev.Rating && e.Rank != prev.Rank+1:
			return fmt.Errorf("%w: rank %d follows rank %d", ErrInconsistent, e.Rank, prev.Rank)
		}
	}
	return nil
}

// VerifyConservation checks that a complete standings list keeps the mean
// rating at initial. Pairwise updates are zero-sum.
func VerifyConservation(entries []types.Standing, initial, tolerance float64) error {
	if len(entries) == 0 {
		return nil
	}
	var sum float64
	for _, e := range entries {
		sum += e.Rating
	}
	want := initial * float64(len(entries))
	if math.Abs(sum-want) > tolerance {
		return fmt.Errorf("%w: rating sum %.6f, want %.6f", ErrInconsistent, sum, want)
	}
	return nil
}
