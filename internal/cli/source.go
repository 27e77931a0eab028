package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/vists/internal/adapters/sheet"
	"github.com/okian/vists/internal/adapters/sqlite"
	service "github.com/okian/vists/internal/app"
	"github.com/okian/vists/internal/config"
	"github.com/okian/vists/internal/domain/model"
	"github.com/okian/vists/internal/domain/rating"
	"github.com/okian/vists/pkg/logger"
)

// ErrNoSource is returned when neither a CSV file nor a database is given.
var ErrNoSource = errors.New("either --input or --db is required")

// sourceFlags selects where the games table and settings come from.
type sourceFlags struct {
	input    string
	settings string

	db            string
	gamesSheet    string
	settingsSheet string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "games table CSV file")
	cmd.Flags().StringVarP(&f.settings, "settings", "s", "", "settings sheet CSV file (key,value rows)")
	cmd.Flags().StringVar(&f.db, "db", "", "SQLite workbook holding the games and settings sheets")
	cmd.Flags().StringVar(&f.gamesSheet, "games-sheet", "", "games sheet name inside --db")
	cmd.Flags().StringVar(&f.settingsSheet, "settings-sheet", "", "settings sheet name inside --db")
	cmd.MarkFlagsMutuallyExclusive("input", "db")
}

// source is an opened games table with its settings.
type source struct {
	table    model.Table
	settings model.Settings

	// flush writes computed columns back; output is only used for CSV.
	flush func(ctx context.Context, res *service.Result, output string) error
	close func() error
}

func openSource(ctx context.Context, cfg *config.Config, f *sourceFlags) (*source, error) {
	switch {
	case f.input != "":
		return openCSV(cfg, f)
	case f.db != "":
		return openSQLite(ctx, cfg, f)
	default:
		return nil, ErrNoSource
	}
}

func openCSV(cfg *config.Config, f *sourceFlags) (*source, error) {
	table, err := sheet.ReadFile(f.input)
	if err != nil {
		return nil, err
	}
	settings := cfg.Settings()
	if f.settings != "" {
		kv, err := sheet.ReadFile(f.settings)
		if err != nil {
			return nil, err
		}
		if settings, err = config.ParseSettings(settings, sheet.KeyValues(kv)); err != nil {
			return nil, err
		}
	}
	input := f.input
	return &source{
		table:    table,
		settings: settings,
		flush: func(_ context.Context, res *service.Result, output string) error {
			if output == "" {
				output = input
			}
			return sheet.WriteFile(output, res.Table())
		},
		close: func() error { return nil },
	}, nil
}

func openSQLite(ctx context.Context, cfg *config.Config, f *sourceFlags) (*source, error) {
	games, settingsName := cfg.GamesSheet, cfg.SettingsSheet
	if f.gamesSheet != "" {
		games = f.gamesSheet
	}
	if f.settingsSheet != "" {
		settingsName = f.settingsSheet
	}

	store, err := sqlite.Open(f.db)
	if err != nil {
		return nil, err
	}
	sh, err := store.LoadSheet(ctx, games)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	settings := cfg.Settings()
	kv, err := store.LoadSettings(ctx, settingsName)
	switch {
	case err == nil:
		if settings, err = config.ParseSettings(settings, kv); err != nil {
			_ = store.Close()
			return nil, err
		}
	case errors.Is(err, sqlite.ErrSheetNotFound) && f.settingsSheet == "":
		logger.Get().Warn(ctx, "settings sheet not found; using configured constants", logger.String("sheet", settingsName))
	default:
		_ = store.Close()
		return nil, err
	}

	return &source{
		table:    sh.Table,
		settings: settings,
		flush: func(ctx context.Context, res *service.Result, _ string) error {
			return store.Flush(ctx, sh, res.ComputedColumns())
		},
		close: store.Close,
	}, nil
}

func newRunner(cfg *config.Config) *service.Runner {
	return service.NewRunner(
		service.WithSchema(cfg.Schema()),
		service.WithEngineOptions(
			rating.WithRosterBounds(cfg.RosterMin, cfg.RosterMax),
			rating.WithRoundedInitialRating(cfg.RoundInitialRating),
		),
		service.WithRunnerLogger(logger.Named("runner")),
	)
}

// recomputeSource runs a full recompute of src.
func recomputeSource(ctx context.Context, cfg *config.Config, src *source) (*service.Result, error) {
	res, err := newRunner(cfg).Recompute(ctx, src.table, src.settings)
	if err != nil {
		return nil, fmt.Errorf("recompute: %w", err)
	}
	return res, nil
}
