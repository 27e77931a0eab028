// Package ledger is the indexed record store over the raw games table.
//
// It validates the header, groups data rows by game id and is the only
// component allowed to write computed values back into the rows.
package ledger

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/okian/vists/internal/domain/game"
	"github.com/okian/vists/internal/domain/model"
)

// Ledger indexes the rows of one games table.
type Ledger struct {
	schema  model.Schema
	format  func(float64) string
	header  []string
	columns map[model.Field]int
	rows    [][]string

	index map[model.GameID][]int
	order []model.GameID
}

// Validate checks that every labelled column is present and at least one
// data row follows the header.
func Validate(table model.Table, schema model.Schema) error {
	if len(table) == 0 {
		return fmt.Errorf("%w: header row is missing", ErrSchema)
	}
	header := table[0]
	for _, f := range model.Fields {
		label := schema.Label(f)
		if !slices.Contains(header, label) {
			return fmt.Errorf("%w: column %q is missing", ErrSchema, label)
		}
	}
	if len(table) < 2 {
		return ErrEmptyDataset
	}
	return nil
}

// New validates table and builds the game index. The ledger keeps its own
// copy of the rows.
func New(table model.Table, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		schema: model.DefaultSchema(),
		format: FormatFloat,
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := Validate(table, l.schema); err != nil {
		return nil, err
	}

	l.header = append([]string(nil), table[0]...)
	l.columns = make(map[model.Field]int, len(model.Fields))
	for i, label := range l.header {
		for _, f := range model.Fields {
			if _, seen := l.columns[f]; !seen && l.schema.Label(f) == label {
				l.columns[f] = i
			}
		}
	}

	l.rows = make([][]string, len(table)-1)
	for i, row := range table[1:] {
		padded := make([]string, max(len(row), len(l.header)))
		copy(padded, row)
		l.rows[i] = padded
	}

	if err := l.buildIndex(); err != nil {
		return nil, err
	}
	return l, nil
}

// buildIndex groups row positions by game id, keeping first-seen order inside
// a game, and sorts the distinct ids once.
func (l *Ledger) buildIndex() error {
	l.index = make(map[model.GameID][]int)
	for i, row := range l.rows {
		if blank(row) {
			continue
		}
		id, err := l.gameID(i)
		if err != nil {
			return err
		}
		if _, ok := l.index[id]; !ok {
			l.order = append(l.order, id)
		}
		l.index[id] = append(l.index[id], i)
	}
	if len(l.order) == 0 {
		return ErrEmptyDataset
	}
	slices.Sort(l.order)
	return nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func (l *Ledger) cell(row int, f model.Field) string {
	return strings.TrimSpace(l.rows[row][l.columns[f]])
}

func (l *Ledger) gameID(row int) (model.GameID, error) {
	raw := l.cell(row, model.FieldGameID)
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil || math.IsInf(v, 0) || v != float64(int64(v)) {
		return 0, fmt.Errorf("%w: row %d: game id %q is not an integer", ErrInvalidCell, row+2, raw)
	}
	return model.GameID(v), nil
}

func (l *Ledger) vists(row int) (float64, error) {
	raw := l.cell(row, model.FieldVists)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: row %d: vists %q is not a number", ErrInvalidCell, row+2, raw)
	}
	return v, nil
}

// OrderedGameIDs returns the distinct game ids in ascending order.
func (l *Ledger) OrderedGameIDs() []model.GameID {
	return slices.Clone(l.order)
}

// Rows returns the number of data rows.
func (l *Ledger) Rows() int { return len(l.rows) }

// GameView builds a snapshot of the rows belonging to id.
func (l *Ledger) GameView(id model.GameID) (*game.Snapshot, error) {
	positions, ok := l.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGame, id)
	}
	participants := make([]game.Participant, 0, len(positions))
	for _, row := range positions {
		v, err := l.vists(row)
		if err != nil {
			return nil, err
		}
		participants = append(participants, game.Participant{
			Player: l.cell(row, model.FieldPlayer),
			Vists:  v,
		})
	}
	return game.New(id, participants)
}

// Commit writes the four computed fields of every player of a sealed game
// into the underlying rows.
func (l *Ledger) Commit(sealed game.Sealed) error {
	if !sealed.IsComplete() {
		return fmt.Errorf("%w: game %s", game.ErrIncompleteSnapshot, sealed.ID())
	}
	positions, ok := l.index[sealed.ID()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGame, sealed.ID())
	}
	if len(positions) != len(sealed.Players()) {
		return fmt.Errorf("%w: game %s", ErrRosterMismatch, sealed.ID())
	}

	updates := make([]game.Values, len(positions))
	for i, row := range positions {
		v, ok := sealed.Values(l.cell(row, model.FieldPlayer))
		if !ok {
			return fmt.Errorf("%w: game %s", ErrRosterMismatch, sealed.ID())
		}
		updates[i] = v
	}

	for i, row := range positions {
		v := updates[i]
		l.rows[row][l.columns[model.FieldRatingBefore]] = l.format(v.RatingBefore)
		l.rows[row][l.columns[model.FieldExpectedResult]] = l.format(v.ExpectedResult)
		l.rows[row][l.columns[model.FieldResult]] = l.format(v.Result)
		l.rows[row][l.columns[model.FieldRatingAfter]] = l.format(v.RatingAfter)
	}
	return nil
}

// ColumnValues returns one field's cells in row order.
func (l *Ledger) ColumnValues(f model.Field) ([]string, error) {
	col, ok := l.columns[f]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, f)
	}
	out := make([]string, len(l.rows))
	for i, row := range l.rows {
		out[i] = row[col]
	}
	return out, nil
}

// Table returns a copy of the header and rows, including computed values.
func (l *Ledger) Table() model.Table {
	out := make(model.Table, 0, len(l.rows)+1)
	out = append(out, slices.Clone(l.header))
	for _, row := range l.rows {
		out = append(out, slices.Clone(row))
	}
	return out
}

// Label returns the header label of f.
func (l *Ledger) Label(f model.Field) string { return l.schema.Label(f) }

// FormatFloat renders v with the shortest representation that round-trips.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
