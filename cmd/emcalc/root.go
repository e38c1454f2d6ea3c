package main

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/em-billing-mcp-server/internal/app"
	"github.com/em-billing-mcp-server/internal/config"
	"github.com/em-billing-mcp-server/internal/domain"
	"github.com/em-billing-mcp-server/internal/service"
)

// rootOptions carries state shared by every subcommand.
type rootOptions struct {
	cfgFile string
	v       *viper.Viper
	cfg     *domain.Config
	logger  *logrus.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "emcalc",
		Short: "E/M billing calculators",
		Long: `emcalc classifies medical decision making complexity, projects revenue
for a patient panel from RVUs and a conversion factor, and scores
modifier appropriateness checklists.`,
		SilenceUsage:      true,
		PersistentPreRunE: opts.initConfig,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default: ./config.yaml)")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.Float64("conversion-factor", service.DefaultConversionFactor, "dollars per RVU")
	flags.String("code-source", "static", "code table source (static, file, sqlite, postgres, remote)")
	flags.String("code-path", "", "code table file or sqlite path")
	flags.String("database-url", "", "PostgreSQL URL for the postgres code source and migrations")

	_ = opts.v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = opts.v.BindPFlag("logging.format", flags.Lookup("log-format"))
	_ = opts.v.BindPFlag("billing.conversion_factor", flags.Lookup("conversion-factor"))
	_ = opts.v.BindPFlag("code_table.source", flags.Lookup("code-source"))
	_ = opts.v.BindPFlag("code_table.path", flags.Lookup("code-path"))
	_ = opts.v.BindPFlag("code_table.database_url", flags.Lookup("database-url"))

	cmd.AddCommand(
		mdmCmd(opts),
		revenueCmd(opts),
		wellnessCmd(opts),
		modifierCmd(opts),
		codesCmd(opts),
		progressCmd(opts),
		migrateCmd(opts),
		setupCmd(opts),
		versionCmd(),
	)
	return cmd
}

func (o *rootOptions) initConfig(cmd *cobra.Command, _ []string) error {
	manager, err := config.NewManagerWithViper(o.v, o.cfgFile)
	if err != nil {
		return err
	}
	o.cfg = manager.GetConfig()
	o.logger = config.NewLogger(o.cfg.Logging.Level, o.cfg.Logging.Format)
	o.logger.SetOutput(cmd.ErrOrStderr())
	return nil
}

// calculator builds the code table and calculator without progress storage.
func (o *rootOptions) calculator(cmd *cobra.Command) (*app.App, error) {
	a, err := app.New(cmd.Context(), o.cfg, o.logger, app.Options{SkipProgress: true})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "emcalc %s\n", version)
			return err
		},
	}
}
