package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/vists/pkg/logger"
)

// NewRecomputeCommand creates the recompute command.
func NewRecomputeCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		src    sourceFlags
		output string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Recompute every rating of a games table",
		Long: `Recompute the rating columns of every row of the games table.

The table is read from a CSV file (--input) or a SQLite workbook (--db).
Computed columns are written back only when every game was rated; a failed
run leaves the source untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := rootOpts.Config()

			s, err := openSource(ctx, cfg, &src)
			if err != nil {
				return err
			}
			defer func() { _ = s.close() }()

			res, err := recomputeSource(ctx, cfg, s)
			if err != nil {
				return err
			}
			if !dryRun {
				if err := s.flush(ctx, res, output); err != nil {
					return err
				}
			}
			logger.Get().Info(ctx, "recompute finished",
				logger.Int("games", res.Games),
				logger.Bool("dry_run", dryRun),
			)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "rated %d games, %d players\n", res.Games, res.Ratings.Len())
			return err
		},
	}

	src.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "CSV file to write (defaults to --input)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute without writing results")

	return cmd
}
