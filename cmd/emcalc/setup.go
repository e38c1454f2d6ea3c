package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/em-billing-mcp-server/internal/setup"
)

func setupCmd(_ *rootOptions) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the MCP server with Claude Desktop",
	}
	cmd.PersistentFlags().StringVar(&configPath, "desktop-config", "", "Claude Desktop config file (default: platform location)")

	var (
		binary  string
		dataDir string
		env     map[string]string
	)
	install := &cobra.Command{
		Use:   "install",
		Short: "Add or update the billing calculator MCP server entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			written, err := setup.Configure(setup.Options{
				ConfigPath: configPath,
				BinaryPath: binary,
				DataDir:    dataDir,
				Env:        env,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "configured %s in %s\nrestart Claude Desktop to load it\n", setup.ServerName, written)
			return err
		},
	}
	install.Flags().StringVar(&binary, "binary", "", "path to the mcp-server binary (default: search PATH)")
	install.Flags().StringVar(&dataDir, "data-dir", "", "EMCALC_DATA_DIR for the server")
	install.Flags().StringToStringVar(&env, "env", nil, "extra EMCALC_* environment variables")
	cmd.AddCommand(install)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the Claude Desktop registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := setup.GetStatus(configPath)
			if err != nil {
				return err
			}
			return printJSON(cmd, status)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove",
		Short: "Remove the billing calculator MCP server entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			removed, err := setup.Remove(configPath)
			if err != nil {
				return err
			}
			if !removed {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "not configured")
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", setup.ServerName)
			return err
		},
	})

	return cmd
}
