package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration, then exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			pr := NewColorPrinter()
			fmt.Fprintln(cmd.OutOrStdout(), pr.Success("Configuration is valid"))
			fmt.Fprintf(cmd.OutOrStdout(), "listening on %s, cache %s, base url %s\n",
				cfg.Server.Address, cacheSummary(cfg.Cache.Enabled, cfg.Cache.TTL.String()), cfg.Preview.BaseURL)
			return nil
		},
	}
}

func cacheSummary(enabled bool, ttl string) string {
	if !enabled {
		return "disabled"
	}
	return "ttl " + ttl
}
