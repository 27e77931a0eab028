package rating

import (
	"maps"
)

// Ratings is the running player -> rating map of one recompute pass.
// Players absent from the map are rated at the initial rating.
type Ratings struct {
	initial float64
	current map[string]float64
	games   map[string]int
}

// NewRatings creates an empty map seeded lazily with initial.
func NewRatings(initial float64) *Ratings {
	return &Ratings{
		initial: initial,
		current: make(map[string]float64),
		games:   make(map[string]int),
	}
}

// Rating returns the player's current rating, or the initial rating for a
// player not seen yet. It never mutates the map.
func (r *Ratings) Rating(player string) float64 {
	if v, ok := r.current[player]; ok {
		return v
	}
	return r.initial
}

// Known reports whether the player has been rated in this pass.
func (r *Ratings) Known(player string) bool {
	_, ok := r.current[player]
	return ok
}

// Apply stores the new ratings of one game. All outcomes must come from the
// same game so that every delta was computed from the pre-game ratings.
func (r *Ratings) Apply(outcomes []Outcome) {
	for _, o := range outcomes {
		r.current[o.Player] = o.RatingAfter
		r.games[o.Player]++
	}
}

// Len returns the number of rated players.
func (r *Ratings) Len() int { return len(r.current) }

// All returns a copy of the current ratings.
func (r *Ratings) All() map[string]float64 { return maps.Clone(r.current) }

// Games returns a copy of the per-player game counts.
func (r *Ratings) Games() map[string]int { return maps.Clone(r.games) }
