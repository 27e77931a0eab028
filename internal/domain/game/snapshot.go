// Package game holds the per-game value snapshot filled in by a rating pass.
//
// A Snapshot is the mutable, possibly partial view of one game. Sealing it
// yields a Sealed value that is complete by construction and read-only.
package game

import (
	"fmt"
	"math"

	"github.com/okian/vists/internal/domain/model"
)

// Participant is one player's raw input for a game.
type Participant struct {
	Player string
	Vists  float64
}

// Values are the four computed fields of one player's row.
type Values struct {
	RatingBefore   float64
	ExpectedResult float64
	Result         float64
	RatingAfter    float64
}

// Update is a partial change to a player's computed fields; nil leaves a field as is.
type Update struct {
	RatingBefore   *float64
	ExpectedResult *float64
	Result         *float64
	RatingAfter    *float64
}

// Full returns an Update that sets all four fields from v.
func Full(v Values) Update {
	return Update{
		RatingBefore:   &v.RatingBefore,
		ExpectedResult: &v.ExpectedResult,
		Result:         &v.Result,
		RatingAfter:    &v.RatingAfter,
	}
}

type slot struct {
	vists          float64
	ratingBefore   *float64
	expectedResult *float64
	result         *float64
	ratingAfter    *float64
}

func (s *slot) filled() bool {
	for _, p := range []*float64{s.ratingBefore, s.expectedResult, s.result, s.ratingAfter} {
		if p == nil || math.IsNaN(*p) {
			return false
		}
	}
	return true
}

// Snapshot is the in-flight view of one game.
type Snapshot struct {
	id       model.GameID
	order    []string
	slots    map[string]*slot
	complete bool
	sealed   bool
}

// New builds a snapshot for game id. Players keep their first-seen order.
func New(id model.GameID, participants []Participant) (*Snapshot, error) {
	s := &Snapshot{
		id:    id,
		order: make([]string, 0, len(participants)),
		slots: make(map[string]*slot, len(participants)),
	}
	for _, p := range participants {
		if _, dup := s.slots[p.Player]; dup {
			return nil, fmt.Errorf("%w: %q in game %s", ErrDuplicatePlayer, p.Player, id)
		}
		s.order = append(s.order, p.Player)
		s.slots[p.Player] = &slot{vists: p.Vists}
	}
	return s, nil
}

// ID returns the game identifier.
func (s *Snapshot) ID() model.GameID { return s.id }

// Players returns the roster in first-seen order.
func (s *Snapshot) Players() []string {
	return append([]string(nil), s.order...)
}

// Participants returns the roster with raw scores.
func (s *Snapshot) Participants() []Participant {
	out := make([]Participant, len(s.order))
	for i, p := range s.order {
		out[i] = Participant{Player: p, Vists: s.slots[p].vists}
	}
	return out
}

// Merge applies partial updates and recomputes completeness.
// The whole batch is rejected if it names a player outside the roster.
func (s *Snapshot) Merge(updates map[string]Update) error {
	if s.sealed {
		return fmt.Errorf("%w: game %s", ErrSealed, s.id)
	}
	for player := range updates {
		if _, ok := s.slots[player]; !ok {
			return fmt.Errorf("%w: %q in game %s", ErrUnknownPlayer, player, s.id)
		}
	}
	for player, u := range updates {
		sl := s.slots[player]
		assign(&sl.ratingBefore, u.RatingBefore)
		assign(&sl.expectedResult, u.ExpectedResult)
		assign(&sl.result, u.Result)
		assign(&sl.ratingAfter, u.RatingAfter)
	}
	s.complete = s.recompute()
	return nil
}

func assign(dst **float64, src *float64) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

func (s *Snapshot) recompute() bool {
	if len(s.order) == 0 {
		return false
	}
	for _, p := range s.order {
		if !s.slots[p].filled() {
			return false
		}
	}
	return true
}

// IsComplete reports whether every player has all four computed fields.
func (s *Snapshot) IsComplete() bool { return s.complete }

// Seal freezes a complete snapshot. Later merges fail with ErrSealed.
func (s *Snapshot) Seal() (Sealed, error) {
	if !s.complete {
		return Sealed{}, fmt.Errorf("%w: game %s", ErrIncompleteSnapshot, s.id)
	}
	s.sealed = true
	values := make(map[string]Values, len(s.order))
	for _, p := range s.order {
		sl := s.slots[p]
		values[p] = Values{
			RatingBefore:   *sl.ratingBefore,
			ExpectedResult: *sl.expectedResult,
			Result:         *sl.result,
			RatingAfter:    *sl.ratingAfter,
		}
	}
	return Sealed{id: s.id, order: append([]string(nil), s.order...), values: values}, nil
}

func (s *Snapshot) String() string {
	return fmt.Sprintf("game %s: %d players, complete=%t", s.id, len(s.order), s.complete)
}

// Sealed is an immutable, complete game result ready to be written back.
// The zero value is not complete.
type Sealed struct {
	id     model.GameID
	order  []string
	values map[string]Values
}

// ID returns the game identifier.
func (s Sealed) ID() model.GameID { return s.id }

// IsComplete is false only for the zero value.
func (s Sealed) IsComplete() bool { return len(s.order) > 0 }

// Players returns the roster in first-seen order.
func (s Sealed) Players() []string { return append([]string(nil), s.order...) }

// Values returns the computed fields for player.
func (s Sealed) Values(player string) (Values, bool) {
	v, ok := s.values[player]
	return v, ok
}
