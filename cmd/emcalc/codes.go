package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/em-billing-mcp-server/internal/app"
	"github.com/em-billing-mcp-server/internal/codetable"
	"github.com/em-billing-mcp-server/internal/database"
	"github.com/em-billing-mcp-server/internal/domain"
)

func codesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codes",
		Short: "Inspect and seed the billing code table",
	}

	var category string
	list := &cobra.Command{
		Use:   "list",
		Short: "List billing codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.calculator(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return printJSON(cmd, a.Calculator.Codes(cmd.Context(), category))
		},
	}
	list.Flags().StringVar(&category, "category", "", "only list codes in this category")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "get CODE",
		Short: "Show one billing code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.calculator(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			code, err := a.Calculator.LookupCode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, code)
		},
	})

	var from string
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Write codes into the configured sqlite or postgres code table",
		Long: `Upsert billing codes into the configured writable code table source.
Codes come from --from (a YAML/JSON file with a "codes" list) or the bundled defaults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			codes := codetable.DefaultCodes()
			if from != "" {
				file, err := codetable.NewFileSource(from)
				if err != nil {
					return err
				}
				if codes, err = file.LoadCodes(ctx); err != nil {
					return err
				}
			}

			for _, url := range app.PostgresURLs(opts.cfg, false) {
				if err := database.Migrate(ctx, url, opts.logger); err != nil {
					return err
				}
			}

			source, err := codetable.NewSource(ctx, opts.cfg.CodeTable, opts.logger)
			if err != nil {
				return err
			}
			if closer, ok := source.(io.Closer); ok {
				defer closer.Close()
			}

			seeder, ok := source.(codetable.Seeder)
			if !ok {
				return domain.NewValidationError("code_table.source", "source is read-only", source.Name())
			}
			if err := seeder.Seed(ctx, codes); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d codes into %s\n", len(codes), source.Name())
			return err
		},
	}
	seed.Flags().StringVar(&from, "from", "", "code table file to import")
	cmd.AddCommand(seed)

	return cmd
}
