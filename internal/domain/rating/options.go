package rating

import "github.com/okian/vists/internal/domain/model"

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithSettings sets the initial rating, K-factor and difference divisor.
func WithSettings(s model.Settings) Option {
	return func(e *Engine) {
		e.settings = s
	}
}

// WithRosterBounds restricts the accepted roster size. A max of 0 means no
// upper bound; min is never allowed below 2.
func WithRosterBounds(minPlayers, maxPlayers int) Option {
	return func(e *Engine) {
		e.minRoster = max(minPlayers, minRosterSize)
		e.maxRoster = maxPlayers
	}
}

// WithRoundedInitialRating rounds the initial rating to an integer before first use.
func WithRoundedInitialRating(enabled bool) Option {
	return func(e *Engine) {
		e.roundInitial = enabled
	}
}
