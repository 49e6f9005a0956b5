// Package cli is the linkpreview command line: the long-running server and
// one-shot tools sharing its configuration.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/wudi/linkpreview/internal/config"
)

// Version is set at build time.
var Version = "dev"

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linkpreview",
		Short: "Link preview and image proxy service",
		Long: `linkpreview fetches a page, extracts its Open Graph metadata and returns a
normalized preview. Images are proxied and re-encoded as WebP. Responses are
cached in memory for a fixed TTL.`,
		Example:       "linkpreview serve --config configs/linkpreview.yaml",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file (defaults apply when empty)")

	cmd.AddCommand(
		NewServeCmd(),
		NewExtractCmd(),
		NewValidateCmd(),
		NewVersionCmd(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.NewLoader().Load(path)
}
