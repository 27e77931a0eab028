package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/okian/vists/internal/adapters/repository"
)

const defaultStandingsLimit = 20

// NewStandingsCommand creates the standings command.
func NewStandingsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		src   sourceFlags
		limit int
	)

	cmd := &cobra.Command{
		Use:   "standings",
		Short: "Recompute and print the rating table",
		Args:  cobra.NoArgs,
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

			store := repository.NewTreapStore()
			if err := store.Replace(ctx, res.Ratings.All(), res.Ratings.Games()); err != nil {
				return err
			}
			return renderStandings(ctx, cmd.OutOrStdout(), store, limit)
		},
	}

	src.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultStandingsLimit, "number of players to print; 0 prints everyone")

	return cmd
}

func renderStandings(ctx context.Context, w io.Writer, store repository.Store, limit int) error {
	if limit <= 0 {
		limit = store.Count(ctx)
	}
	entries, err := store.TopN(ctx, max(limit, 1))
	if err != nil {
		return err
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	tbl.AppendHeader(table.Row{"#", "Player", "Rating", "Games"})
	for _, e := range entries {
		tbl.AppendRow(table.Row{e.Rank, e.Player, strconv.FormatFloat(e.Rating, 'f', 2, 64), e.Games})
	}
	tbl.AppendFooter(table.Row{"", fmt.Sprintf("%d players", store.Count(ctx)), "", ""})
	tbl.Render()
	return nil
}
