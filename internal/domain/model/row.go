// Package model contains domain models passed between layers.
package model

import "strconv"

// GameID groups ledger rows into one played session.
type GameID int64

func (id GameID) String() string { return strconv.FormatInt(int64(id), 10) }

// Field names one of the eight columns of the ledger row contract.
type Field int

const (
	FieldGameID Field = iota
	FieldDate
	FieldPlayer
	FieldVists
	FieldRatingBefore
	FieldExpectedResult
	FieldResult
	FieldRatingAfter

	fieldCount
)

// Fields lists every column of the row contract in canonical order.
var Fields = []Field{
	FieldGameID, FieldDate, FieldPlayer, FieldVists,
	FieldRatingBefore, FieldExpectedResult, FieldResult, FieldRatingAfter,
}

// ComputedFields are the columns written back by a recompute run.
var ComputedFields = []Field{FieldRatingBefore, FieldExpectedResult, FieldResult, FieldRatingAfter}

var fieldNames = [fieldCount]string{
	"game_id", "date", "player", "vists",
	"rating_before", "expected_result", "result", "rating_after",
}

func (f Field) String() string {
	if f < 0 || f >= fieldCount {
		return "field(" + strconv.Itoa(int(f)) + ")"
	}
	return fieldNames[f]
}

// Schema maps each field to the header label identifying its column.
type Schema struct {
	labels [fieldCount]string
}

// DefaultSchema returns the labels used by the club's games sheet.
func DefaultSchema() Schema {
	return Schema{labels: [fieldCount]string{
		"Номер игры",
		"Дата игры",
		"Игрок",
		"Висты",
		"Рейтинг до",
		"Ожидаемый рез-тат",
		"Результат",
		"Рейтинг после",
	}}
}

// NewSchema overrides the default labels with the non-empty entries of labels.
func NewSchema(labels map[Field]string) Schema {
	s := DefaultSchema()
	for f, label := range labels {
		if f >= 0 && f < fieldCount && label != "" {
			s.labels[f] = label
		}
	}
	return s
}

// Label returns the header label for f.
func (s Schema) Label(f Field) string {
	if f < 0 || f >= fieldCount {
		return ""
	}
	return s.labels[f]
}

// Table is a two-dimensional grid of cells; row 0 is the header.
type Table [][]string

// Clone returns a deep copy of t.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for i, row := range t {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// Settings holds the three constants consumed by the rating engine.
type Settings struct {
	InitialRating     float64
	KFactor           int
	DifferenceDivisor int
}

// Keys of the settings sheet.
const (
	SettingInitialRating     = "initialRating"
	SettingKFactor           = "k-factor"
	SettingDifferenceDivisor = "difference_divisor"
)
