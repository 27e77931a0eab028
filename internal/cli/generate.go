package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/vists/internal/adapters/sheet"
	"github.com/okian/vists/internal/adapters/sqlite"
	"github.com/okian/vists/internal/ledgergen"
	"github.com/okian/vists/pkg/logger"
)

const defaultRequestTimeout = 30 * time.Second

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	gen := ledgergen.DefaultConfig()
	var (
		output  string
		db      string
		url     string
		top     int
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic games table",
		Long: `Generate a reproducible games table for load tests.

The table is written as CSV to --output (stdout by default), imported into
a SQLite workbook with --db, or submitted to a running service with --url.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := rootOpts.Config()
			gen.Schema = cfg.Schema()

			table, err := ledgergen.Generate(gen)
			if err != nil {
				return err
			}
			logger.Get().Info(ctx, "generated ledger",
				logger.Int("games", gen.Games),
				logger.Int("rows", len(table)-1),
			)

			switch {
			case db != "":
				store, err := sqlite.Open(db)
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
				return store.ImportTable(ctx, cfg.GamesSheet, table)
			case url != "":
				client := ledgergen.NewClient(url, timeout)
				sub, err := client.Submit(ctx, table)
				if err != nil {
					return err
				}
				run, err := client.WaitRun(ctx, sub.RunID)
				if err != nil {
					return err
				}
				entries, err := client.Leaderboard(ctx, min(top, cfg.MaxLeaderboardLimit))
				if err != nil {
					return err
				}
				if err := ledgergen.VerifyLeaderboard(entries); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d games, %d players, leaderboard verified\n", run.ID, run.Games, run.Players)
				return err
			case output != "":
				return sheet.WriteFile(output, table)
			default:
				return sheet.WriteTable(cmd.OutOrStdout(), table)
			}
		},
	}

	cmd.Flags().IntVar(&gen.Games, "games", gen.Games, "number of games")
	cmd.Flags().IntVar(&gen.Players, "players", gen.Players, "size of the player pool")
	cmd.Flags().Uint64Var(&gen.Seed, "seed", gen.Seed, "random seed")
	cmd.Flags().StringVarP(&output, "output", "o", "", "CSV file to write")
	cmd.Flags().StringVar(&db, "db", "", "SQLite workbook to import the games sheet into")
	cmd.Flags().StringVar(&url, "url", "", "base URL of a running service to submit to")
	cmd.Flags().IntVar(&top, "top", 10, "leaderboard entries to verify after submitting")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultRequestTimeout, "HTTP request timeout")
	cmd.MarkFlagsMutuallyExclusive("output", "db", "url")

	return cmd
}
