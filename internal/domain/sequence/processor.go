// Package sequence walks the games of a ledger in ascending id order and
// allows exactly one game to be in flight between Next and Commit.
package sequence

import (
	"fmt"

	"github.com/okian/vists/internal/domain/game"
	"github.com/okian/vists/internal/domain/model"
)

// Source is the record store the processor reads games from and commits to.
type Source interface {
	OrderedGameIDs() []model.GameID
	GameView(id model.GameID) (*game.Snapshot, error)
	Commit(sealed game.Sealed) error
}

type state int

const (
	stateIdle state = iota
	stateAwaitingCommit
	stateDone
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateAwaitingCommit:
		return "awaiting_commit"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Processor is the request-next / commit state machine.
type Processor struct {
	src     Source
	ids     []model.GameID
	cursor  int
	state   state
	pending *game.Snapshot
}

// New starts a processor in Idle(0) over src's ordered game ids.
func New(src Source) *Processor {
	return &Processor{src: src, ids: src.OrderedGameIDs(), state: stateIdle}
}

// Next returns the snapshot of the next game.
func (p *Processor) Next() (*game.Snapshot, error) {
	switch p.state {
	case stateAwaitingCommit:
		return nil, fmt.Errorf("%w: game %s", ErrPendingCommit, p.ids[p.cursor])
	case stateDone:
		return nil, ErrSequenceExhausted
	}
	if p.cursor == len(p.ids) {
		return nil, ErrSequenceExhausted
	}

	snap, err := p.src.GameView(p.ids[p.cursor])
	if err != nil {
		return nil, err
	}
	p.pending = snap
	p.state = stateAwaitingCommit
	return snap, nil
}

// Commit seals snap and writes it back through the source, then advances.
// On error the processor keeps waiting for the current game.
func (p *Processor) Commit(snap *game.Snapshot) error {
	if p.state != stateAwaitingCommit {
		return fmt.Errorf("%w: no game is awaiting commit (state %s)", ErrNotCurrentGame, p.state)
	}
	current := p.ids[p.cursor]
	if snap == nil || snap.ID() != current {
		got := "nil"
		if snap != nil {
			got = snap.ID().String()
		}
		return fmt.Errorf("%w: got game %s, expected %s", ErrNotCurrentGame, got, current)
	}
	if !snap.IsComplete() {
		return fmt.Errorf("%w: game %s", game.ErrIncompleteSnapshot, current)
	}

	sealed, err := snap.Seal()
	if err != nil {
		return err
	}
	if err := p.src.Commit(sealed); err != nil {
		return fmt.Errorf("commit game %s: %w", current, err)
	}

	p.pending = nil
	p.cursor++
	if p.cursor == len(p.ids) {
		p.state = stateDone
	} else {
		p.state = stateIdle
	}
	return nil
}

// IsFinished reports whether every game has been committed.
func (p *Processor) IsFinished() bool {
	return p.state == stateDone || (p.state == stateIdle && p.cursor == len(p.ids))
}

// Committed returns the number of games committed so far.
func (p *Processor) Committed() int { return p.cursor }

// Len returns the number of games in the sequence.
func (p *Processor) Len() int { return len(p.ids) }

// Pending returns the snapshot awaiting commit, or nil.
func (p *Processor) Pending() *game.Snapshot { return p.pending }
