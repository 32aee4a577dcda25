package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"censys-toolkit/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage credentials and settings",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var setCredentialsCmd = &cobra.Command{
	Use:   "set-credentials <api-id> <api-secret>",
	Short: "Store the Censys API ID and secret in ~/.censys.yaml",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.SetCredentials(args[0], args[1])
		if err != nil {
			return fmt.Errorf("saving credentials: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Credentials saved to %s\n", path)
		return nil
	},
}

var showConfigCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		row := func(name string, value any) {
			fmt.Fprintf(out, "%-20s %v\n", name, value)
		}
		row("API ID:", orUnset(cfg.APIID))
		row("API secret:", config.MaskSecret(cfg.APISecret))
		row("API URL:", cfg.APIURL)
		row("Timeout:", cfg.Timeout)
		row("Max retries:", cfg.MaxRetries)
		row("Rate limit (req/s):", cfg.RateLimit)
		row("Cache dir:", orUnset(cfg.CacheDir))
		row("Cache TTL:", cfg.CacheTTL)
		row("Output dir:", orUnset(cfg.OutputDir))
		row("Page size:", cfg.PageSize)
		row("Max pages:", cfg.MaxPages)
		row("Data age:", cfg.DataAge)
		row("Output format:", cfg.OutputFormat)
		row("Debug:", cfg.Debug)
		row("Log file:", orUnset(cfg.LogFile))
		return nil
	},
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(setCredentialsCmd)
	configCmd.AddCommand(showConfigCmd)
}
