package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/em-billing-mcp-server/internal/database"
	"github.com/em-billing-mcp-server/internal/domain"
)

func migrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate [up|down|version]",
		Short: "Run PostgreSQL schema migrations",
		Long: `Apply, roll back or inspect the embedded PostgreSQL migrations.
The database is taken from --database-url, falling back to progress.database_url.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}

			url := opts.cfg.CodeTable.DatabaseURL
			if url == "" {
				url = opts.cfg.Progress.DatabaseURL
			}
			if url == "" {
				return domain.NewValidationError("database_url", "a PostgreSQL URL is required", nil)
			}

			runner, err := database.NewMigrationRunner(url, opts.logger)
			if err != nil {
				return err
			}
			defer runner.Close()

			switch action {
			case "up":
				err = runner.Up(cmd.Context())
			case "down":
				err = runner.Down(cmd.Context())
			case "version":
			default:
				return domain.NewValidationError("action", "expected up, down or version", action)
			}
			if err != nil {
				return err
			}

			version, dirty, err := runner.Version()
			if err != nil {
				return fmt.Errorf("reading migration version: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
			return err
		},
	}
	return cmd
}
