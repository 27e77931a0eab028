// Package config defines process configuration and the settings sheet parser.
//
// Values are layered by Load: defaults from New, an optional YAML file and
// finally VISTS_ environment variables.
package config

import (
	"fmt"

	"github.com/okian/vists/internal/domain/model"
	"github.com/okian/vists/pkg/metrics"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory run queue.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize sets how many ledger fingerprints are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// Metric name prefix, subsystem and instance label. Empty keeps the
	// built-in names and omits the label.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`
	MetricsInstance  string `koanf:"metrics_instance"`

	// MetricsBuckets are the millisecond buckets of the duration histograms,
	// in increasing order. VISTS_METRICS_BUCKETS takes a comma separated list.
	MetricsBuckets []float64 `koanf:"metrics_buckets"`

	// Rating constants used when no settings sheet is given.
	InitialRating     float64 `koanf:"initial_rating"`
	KFactor           int     `koanf:"k_factor"`
	DifferenceDivisor int     `koanf:"difference_divisor"`

	// RoundInitialRating rounds the initial rating to an integer before use.
	RoundInitialRating bool `koanf:"round_initial_rating"`

	// RosterMin and RosterMax bound the number of players per game.
	// RosterMax of 0 disables the upper bound.
	RosterMin int `koanf:"roster_min"`
	RosterMax int `koanf:"roster_max"`

	// Sheet names inside a SQLite workbook.
	GamesSheet    string `koanf:"games_sheet"`
	SettingsSheet string `koanf:"settings_sheet"`

	// Column header labels; empty keeps the default label.
	ColumnGameID         string `koanf:"column_game_id"`
	ColumnDate           string `koanf:"column_date"`
	ColumnPlayer         string `koanf:"column_player"`
	ColumnVists          string `koanf:"column_vists"`
	ColumnRatingBefore   string `koanf:"column_rating_before"`
	ColumnExpectedResult string `koanf:"column_expected_result"`
	ColumnResult         string `koanf:"column_result"`
	ColumnRatingAfter    string `koanf:"column_rating_after"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		QueueSize:           64,
		DedupeSize:          1024,
		MaxLeaderboardLimit: 100,
		InitialRating:       1500,
		KFactor:             32,
		DifferenceDivisor:   400,
		RosterMin:           2,
		GamesSheet:          "Games",
		SettingsSheet:       "Settings",
	}
}

// Validate reports the first invalid value.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.DedupeSize <= 0:
		return fmt.Errorf("%w: dedupe_size must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case c.DifferenceDivisor <= 0:
		return fmt.Errorf("%w: difference_divisor must be positive", ErrInvalidConfig)
	case c.RosterMin < 2:
		return fmt.Errorf("%w: roster_min must be at least 2", ErrInvalidConfig)
	case c.RosterMax != 0 && c.RosterMax < c.RosterMin:
		return fmt.Errorf("%w: roster_max %d below roster_min %d", ErrInvalidConfig, c.RosterMax, c.RosterMin)
	}
	for i := 1; i < len(c.MetricsBuckets); i++ {
		if c.MetricsBuckets[i] <= c.MetricsBuckets[i-1] {
			return fmt.Errorf("%w: metrics_buckets must be increasing", ErrInvalidConfig)
		}
	}
	return nil
}

// MetricsOptions returns the metrics manager options configured on c.
func (c *Config) MetricsOptions() []metrics.Option {
	opts := []metrics.Option{
		metrics.WithNamespace(c.MetricsNamespace),
		metrics.WithSubsystem(c.MetricsSubsystem),
		metrics.WithHistogramBuckets(c.MetricsBuckets),
	}
	if c.MetricsInstance != "" {
		opts = append(opts, metrics.WithConstLabels(map[string]string{"instance": c.MetricsInstance}))
	}
	return opts
}

// Settings returns the rating constants configured on c.
func (c *Config) Settings() model.Settings {
	return model.Settings{
		InitialRating:     c.InitialRating,
		KFactor:           c.KFactor,
		DifferenceDivisor: c.DifferenceDivisor,
	}
}

// Schema returns the column labels, falling back to the defaults.
func (c *Config) Schema() model.Schema {
	return model.NewSchema(map[model.Field]string{
		model.FieldGameID:         c.ColumnGameID,
		model.FieldDate:           c.ColumnDate,
		model.FieldPlayer:         c.ColumnPlayer,
		model.FieldVists:          c.ColumnVists,
		model.FieldRatingBefore:   c.ColumnRatingBefore,
		model.FieldExpectedResult: c.ColumnExpectedResult,
		model.FieldResult:         c.ColumnResult,
		model.FieldRatingAfter:    c.ColumnRatingAfter,
	})
}
