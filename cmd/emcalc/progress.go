package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/em-billing-mcp-server/internal/database"
	"github.com/em-billing-mcp-server/internal/progress"
)

func progressCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Export or import course module completions",
	}

	flags := cmd.PersistentFlags()
	flags.String("backend", "sqlite", "progress backend (sqlite, postgres, redis)")
	flags.String("sqlite-path", "./data/progress.db", "SQLite progress database")
	flags.String("progress-db", "", "PostgreSQL URL for the postgres backend")
	flags.String("redis-url", "", "Redis URL for the redis backend")

	_ = opts.v.BindPFlag("progress.backend", flags.Lookup("backend"))
	_ = opts.v.BindPFlag("progress.sqlite_path", flags.Lookup("sqlite-path"))
	_ = opts.v.BindPFlag("progress.database_url", flags.Lookup("progress-db"))
	_ = opts.v.BindPFlag("progress.redis_url", flags.Lookup("redis-url"))

	cmd.AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Write every completion as JSON to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := opts.openProgress(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			return store.ExportJSON(cmd.Context(), cmd.OutOrStdout())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import FILE",
		Short: "Load completions from a JSON export, skipping existing ones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			store, err := opts.openProgress(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			imported, skipped, err := store.ImportJSON(cmd.Context(), f)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d\n", imported, skipped)
			return err
		},
	})

	return cmd
}

func (o *rootOptions) openProgress(cmd *cobra.Command) (progress.Store, error) {
	ctx := cmd.Context()
	if strings.EqualFold(o.cfg.Progress.Backend, progress.BackendPostgres) && o.cfg.Progress.DatabaseURL != "" {
		if err := database.Migrate(ctx, o.cfg.Progress.DatabaseURL, o.logger); err != nil {
			return nil, err
		}
	}
	return progress.NewStore(ctx, o.cfg.Progress, filepath.Dir(o.cfg.Progress.SQLitePath))
}
