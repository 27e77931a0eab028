// Package rating implements the pairwise Elo update for free-for-all games.
//
// Every player is compared with every other player of the same game. The
// per-pair expectations and outcomes are averaged over the n-1 opponents and
// the difference is scaled by the K-factor.
package rating

import (
	"fmt"
	"math"

	"github.com/okian/vists/internal/domain/game"
	"github.com/okian/vists/internal/domain/model"
)

const (
	minRosterSize = 2

	defaultInitialRating     = 1500
	defaultKFactor           = 32
	defaultDifferenceDivisor = 400
)

// Lookup gives read access to pre-game ratings.
type Lookup interface {
	Rating(player string) float64
}

// Outcome is one player's result for a game.
type Outcome struct {
	Player string
	game.Values
}

// Engine computes game outcomes. It holds no per-run state.
type Engine struct {
	settings     model.Settings
	minRoster    int
	maxRoster    int
	roundInitial bool
}

// NewEngine creates an engine; the difference divisor must be positive.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		settings: model.Settings{
			InitialRating:     defaultInitialRating,
			KFactor:           defaultKFactor,
			DifferenceDivisor: defaultDifferenceDivisor,
		},
		minRoster: minRosterSize,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.settings.DifferenceDivisor <= 0 {
		return nil, fmt.Errorf("%w: difference divisor must be positive, got %d", ErrInvalidParams, e.settings.DifferenceDivisor)
	}
	if math.IsNaN(e.settings.InitialRating) || math.IsInf(e.settings.InitialRating, 0) {
		return nil, fmt.Errorf("%w: initial rating must be finite", ErrInvalidParams)
	}
	if e.maxRoster != 0 && e.maxRoster < e.minRoster {
		return nil, fmt.Errorf("%w: roster bounds %d..%d", ErrInvalidParams, e.minRoster, e.maxRoster)
	}
	return e, nil
}

// Settings returns the constants the engine was built with.
func (e *Engine) Settings() model.Settings { return e.settings }

// NewRatings returns an empty running rating map for one pass.
func (e *Engine) NewRatings() *Ratings {
	initial := e.settings.InitialRating
	if e.roundInitial {
		initial = math.Floor(initial + 0.5)
	}
	return NewRatings(initial)
}

// ExpectedScore is the logistic probability that a player rated ra beats one
// rated rb.
func ExpectedScore(ra, rb float64, divisor int) float64 {
	return 1 / (1 + math.Pow(10, (rb-ra)/float64(divisor)))
}

// ActualScore compares two raw scores: 1 for a win, 0.5 for a tie, 0 for a loss.
func ActualScore(a, b float64) float64 {
	switch {
	case a > b:
		return 1
	case a == b:
		return 0.5
	default:
		return 0
	}
}

// Rate computes every player's outcome for one game from the pre-game
// ratings in lookup. The lookup is only read.
func (e *Engine) Rate(roster []game.Participant, lookup Lookup) ([]Outcome, error) {
	n := len(roster)
	if n < e.minRoster || (e.maxRoster > 0 && n > e.maxRoster) {
		return nil, fmt.Errorf("%w: %d players", ErrInvalidRoster, n)
	}

	before := make([]float64, n)
	seen := make(map[string]struct{}, n)
	for i, p := range roster {
		if _, dup := seen[p.Player]; dup {
			return nil, fmt.Errorf("%w: %q", game.ErrDuplicatePlayer, p.Player)
		}
		seen[p.Player] = struct{}{}
		before[i] = lookup.Rating(p.Player)
	}

	expected := make([]float64, n)
	actual := make([]float64, n)
	d := e.settings.DifferenceDivisor
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			expected[i] += ExpectedScore(before[i], before[j], d)
			expected[j] += ExpectedScore(before[j], before[i], d)
			actual[i] += ActualScore(roster[i].Vists, roster[j].Vists)
			actual[j] += ActualScore(roster[j].Vists, roster[i].Vists)
		}
	}

	opponents := float64(n - 1)
	k := float64(e.settings.KFactor)
	out := make([]Outcome, n)
	for i, p := range roster {
		exp := expected[i] / opponents
		res := actual[i] / opponents
		out[i] = Outcome{
			Player: p.Player,
			Values: game.Values{
				RatingBefore:   before[i],
				ExpectedResult: exp,
				Result:         res,
				RatingAfter:    before[i] + k*(res-exp),
			},
		}
	}
	return out, nil
}

// Updates converts outcomes into a full snapshot merge.
func Updates(outcomes []Outcome) map[string]game.Update {
	out := make(map[string]game.Update, len(outcomes))
	for _, o := range outcomes {
		out[o.Player] = game.Full(o.Values)
	}
	return out
}
