// Package cli implements the vists command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/vists/internal/config"
	"github.com/okian/vists/pkg/logger"
)

// RootOptions holds global flags and the configuration loaded from them.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	JSONLogs   bool

	cfg *config.Config
}

// Config returns the configuration loaded before the subcommand ran.
func (o *RootOptions) Config() *config.Config {
	if o.cfg == nil {
		return config.New()
	}
	return o.cfg
}

// NewRootCommand creates the root command for the vists CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "vists",
		Short: "Elo ratings for a free-for-all card game",
		Long: `Recompute player ratings from a games ledger.

Every game is rated as a set of pairwise matches between its players, in
ascending game id order, starting from the initial rating.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "YAML config file (defaults to $VISTS_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&opts.JSONLogs, "json-logs", false, "write logs as JSON lines")

	cmd.AddCommand(NewRecomputeCommand(opts))
	cmd.AddCommand(NewStandingsCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewGenerateCommand(opts))

	return cmd
}

func (o *RootOptions) setup(cmd *cobra.Command) error {
	if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr()), logger.WithJSON(o.JSONLogs)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	path := o.ConfigPath
	if path == "" {
		path = os.Getenv("VISTS_CONFIG")
	}
	cfg, err := config.LoadFile(cmd.Context(), path)
	if err != nil {
		return err
	}
	o.cfg = cfg

	level := cfg.LogLevel
	if o.LogLevel != "" {
		level = o.LogLevel
	}
	if err := logger.SetLevelString(level); err != nil {
		return err
	}
	return nil
}

// Execute runs the root command and reports errors on stderr.
func Execute() int {
	defer func() { _ = logger.Sync() }()

	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		return 1
	}
	return 0
}
