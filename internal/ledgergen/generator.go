// Package ledgergen builds synthetic games tables and submits them to a
// running service for load tests.
package ledgergen

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/okian/vists/internal/domain/model"
)

// Roster size bounds of a generated game.
const (
	minRoster = 3
	maxRoster = 5

	// maxVists bounds the vists written for one player.
	maxVists = 120
)

// Config controls Generate.
type Config struct {
	Games   int
	Players int
	Seed    uint64
	Start   time.Time
	Schema  model.Schema
}

// DefaultConfig returns a small config with the default column labels.
func DefaultConfig() Config {
	return Config{
		Games:   100,
		Players: 12,
		Seed:    1,
		Start:   time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Schema:  model.DefaultSchema(),
	}
}

// Generate returns a games table with cfg.Games games. Every game seats three
// to five distinct players drawn from a pool of cfg.Players; the same config
// always yields the same table.
func Generate(cfg Config) (model.Table, error) {
	if cfg.Games < 1 {
		return nil, fmt.Errorf("%w: games must be positive, got %d", ErrInvalidConfig, cfg.Games)
	}
	if cfg.Players < minRoster {
		return nil, fmt.Errorf("%w: need at least %d players, got %d", ErrInvalidConfig, minRoster, cfg.Players)
	}
	if cfg.Start.IsZero() {
		cfg.Start = DefaultConfig().Start
	}
	if cfg.Schema.Label(model.FieldGameID) == "" {
		cfg.Schema = model.DefaultSchema()
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	pool := make([]string, cfg.Players)
	for i := range pool {
		pool[i] = PlayerName(i)
	}

	header := make([]string, len(model.Fields))
	for i, f := range model.Fields {
		header[i] = cfg.Schema.Label(f)
	}
	table := model.Table{header}

	for g := 1; g <= cfg.Games; g++ {
		roster := minRoster + rng.IntN(min(maxRoster, cfg.Players)-minRoster+1)
		date := cfg.Start.AddDate(0, 0, g/4).Format(time.DateOnly)
		for _, p := range rng.Perm(cfg.Players)[:roster] {
			row := make([]string, len(model.Fields))
			row[model.FieldGameID] = strconv.Itoa(g)
			row[model.FieldDate] = date
			row[model.FieldPlayer] = pool[p]
			row[model.FieldVists] = strconv.Itoa(rng.IntN(maxVists + 1))
			table = append(table, row)
		}
	}
	return table, nil
}

// PlayerName returns the name of the i-th pooled player.
func PlayerName(i int) string {
	return fmt.Sprintf("player-%03d", i+1)
}
